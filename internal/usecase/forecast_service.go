package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"PriceCast/internal/artifact"
	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/forecast"
	applogger "PriceCast/pkg/logger"
	pkgcache "PriceCast/pkg/cache"
)

// engine is one immutable loaded model generation. A reload swaps the whole
// pointer so in-flight requests keep a consistent model+registry pair.
type engine struct {
	projector *forecast.Projector
	bundle    *artifact.Bundle
	loadedAt  time.Time
}

// ForecastService serves quantile forecasts from the loaded artifact.
type ForecastService struct {
	prices    domrepo.PriceStore
	artifacts domrepo.ArtifactStore
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	cache     pkgcache.Service
	logger    *applogger.Logger
	policy    forecast.Policy
	ttl       time.Duration

	current atomic.Pointer[engine]
}

func NewForecastService(
	prices domrepo.PriceStore,
	artifacts domrepo.ArtifactStore,
	publisher domrepo.Publisher,
	metrics domrepo.Metrics,
	cache pkgcache.Service,
	logger *applogger.Logger,
	policy forecast.Policy,
	cacheTTL time.Duration,
) *ForecastService {
	return &ForecastService{
		prices:    prices,
		artifacts: artifacts,
		publisher: publisher,
		metrics:   metrics,
		cache:     cache,
		logger:    logger,
		policy:    policy,
		ttl:       cacheTTL,
	}
}

// Reload loads the artifact from the store and atomically swaps it in.
// Cached forecasts from the previous generation are invalidated.
func (s *ForecastService) Reload(ctx context.Context) error {
	bundle, err := s.artifacts.Load(ctx)
	if err != nil {
		return fmt.Errorf("load artifact: %w", err)
	}
	net, reg, err := bundle.Materialize()
	if err != nil {
		return fmt.Errorf("materialize artifact: %w", err)
	}

	s.current.Store(&engine{
		projector: forecast.NewProjector(net, reg, s.policy),
		bundle:    bundle,
		loadedAt:  time.Now().UTC(),
	})

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "forecast:*"); err != nil && !errors.Is(err, pkgcache.ErrCacheMiss) {
			s.logger.Warn("forecast cache invalidation failed", applogger.Error(err))
		}
	}

	s.logger.Info("model artifact loaded",
		applogger.Int("assets", len(bundle.Registry.Assets)),
		applogger.Int("seq_len", bundle.ModelConfig.SeqLen),
		applogger.String("created_at", bundle.CreatedAt.Format(time.RFC3339)),
	)
	return nil
}

// Ready reports whether a model generation is loaded.
func (s *ForecastService) Ready() bool {
	return s.current.Load() != nil
}

// LoadedAt returns when the current generation was swapped in.
func (s *ForecastService) LoadedAt() (time.Time, bool) {
	e := s.current.Load()
	if e == nil {
		return time.Time{}, false
	}
	return e.loadedAt, true
}

var ErrModelNotLoaded = errors.New("model not loaded")

// Forecast returns the quantile forecast for an asset at the given horizon.
// Results are cached per (asset, clamped horizon) for the configured TTL.
func (s *ForecastService) Forecast(ctx context.Context, asset string, horizonDays int) (*models.Forecast, error) {
	e := s.current.Load()
	if e == nil {
		return nil, ErrModelNotLoaded
	}
	horizonDays = s.policy.ClampHorizon(horizonDays)

	key := pkgcache.GenerateKeyWithParams("forecast", asset, horizonDays)
	if s.cache != nil {
		var cached models.Forecast
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	start := time.Now()
	history, err := s.prices.History(ctx, asset)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("history")
		}
		return nil, err
	}
	closes := make([]float64, len(history))
	for i, b := range history {
		closes[i] = b.Close
	}

	f, err := e.projector.Forecast(asset, closes, horizonDays)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("forecast")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordForecast(asset, horizonDays)
		s.metrics.RecordLastPrice(asset, f.CurrentPrice)
		s.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, f, s.ttl); err != nil {
			s.logger.Warn("forecast cache set failed", applogger.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, f); err != nil {
			s.logger.Warn("forecast publish failed",
				applogger.String("asset", asset),
				applogger.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordError("publish")
			}
		}
	}
	return f, nil
}

// Assets lists the assets known to the loaded model.
func (s *ForecastService) Assets() ([]string, error) {
	e := s.current.Load()
	if e == nil {
		return nil, ErrModelNotLoaded
	}
	return e.projector.Assets(), nil
}
