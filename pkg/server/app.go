package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"PriceCast/internal/service/quotes"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	forecasts  *usecase.ForecastService
	tracker    *quotes.Tracker
	closers    []io.Closer
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	forecasts *usecase.ForecastService,
	tracker *quotes.Tracker,
	closers ...io.Closer,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		handler:   handler,
		forecasts: forecasts,
		tracker:   tracker,
		closers:   closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// Load the model artifact if one exists. A missing artifact is not
	// fatal: the API serves in degraded mode until a retrain + reload.
	if err := a.forecasts.Reload(ctx); err != nil {
		l.Warn("no model artifact loaded at startup", applogger.Error(err))
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start live quote tracker if configured
	if a.tracker != nil {
		go func() {
			if err := a.tracker.Run(ctx); err != nil {
				l.Error("quote tracker error", applogger.Error(err))
			}
		}()
		l.Info("quote tracker started")
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("api server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			l.Warn("close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
