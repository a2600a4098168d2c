package di

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"PriceCast/internal/domain/repository"
	"PriceCast/internal/forecast"
	"PriceCast/internal/handler/api"
	internalrepo "PriceCast/internal/repository"
	"PriceCast/internal/service/quotes"
	"PriceCast/internal/usecase"
	pkgcache "PriceCast/pkg/cache"
	pkgch "PriceCast/pkg/clickhouse"
	"PriceCast/pkg/config"
	pkgkafka "PriceCast/pkg/kafka"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return logger.New(&logger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePriceStore creates the configured price history backend.
func ProvidePriceStore(cfg *config.Config, l *logger.Logger) (repository.PriceStore, error) {
	switch cfg.Data.Backend {
	case "csv":
		return internalrepo.NewCSVPriceStore(cfg.Data.Dir, l), nil
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, 0),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store := internalrepo.NewCHPriceStore(client, cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table)
		store.SetLogger(l)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.Data.Backend)
	}
}

// ProvideArtifactStore creates the filesystem artifact store.
func ProvideArtifactStore(cfg *config.Config) repository.ArtifactStore {
	return internalrepo.NewFSArtifactStore(cfg.Model.ArtifactPath)
}

// ProvidePublisher creates the forecast publisher. Disabled Kafka yields a
// no-op publisher.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideCache creates the response cache: layered Redis+memory when Redis
// is enabled, in-process memory otherwise.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	host, port := splitHostPort(cfg.Cache.Redis.Addr)
	redis, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix("pricecast"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(redis), nil
}

// ProvidePolicy builds the forecast repair policy from config, falling back
// to defaults for unset fields.
func ProvidePolicy(cfg *config.Config) forecast.Policy {
	p := forecast.DefaultPolicy()
	if cfg.Forecast.MinHorizonDays > 0 {
		p.MinHorizonDays = cfg.Forecast.MinHorizonDays
	}
	if cfg.Forecast.MaxHorizonDays > 0 {
		p.MaxHorizonDays = cfg.Forecast.MaxHorizonDays
	}
	if cfg.Forecast.PriceFloor > 0 {
		p.PriceFloor = cfg.Forecast.PriceFloor
	}
	if cfg.Forecast.LowerMargin > 0 {
		p.LowerMargin = cfg.Forecast.LowerMargin
	}
	if cfg.Forecast.UpperMargin > 0 {
		p.UpperMargin = cfg.Forecast.UpperMargin
	}
	if cfg.Forecast.MaxMovePct > 0 {
		p.MaxMovePct = cfg.Forecast.MaxMovePct
	}
	return p
}

// ProvideForecastService creates the forecasting use case.
func ProvideForecastService(
	prices repository.PriceStore,
	artifacts repository.ArtifactStore,
	publisher repository.Publisher,
	m repository.Metrics,
	cache pkgcache.Service,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.ForecastService {
	return usecase.NewForecastService(
		prices, artifacts, publisher, m, cache, l,
		ProvidePolicy(cfg), cfg.Cache.ForecastTTL,
	)
}

// ProvideRiskService creates the risk reporting use case.
func ProvideRiskService(
	prices repository.PriceStore,
	cache pkgcache.Service,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.RiskService {
	return usecase.NewRiskService(prices, cache, l, cfg.Cache.RiskTTL)
}

// ProvideRetrainLauncher creates the detached trainer launcher. The trainer
// binary is expected next to the running server binary.
func ProvideRetrainLauncher(configPath string, l *logger.Logger) *usecase.RetrainLauncher {
	binary := "pricecast-train"
	if exe, err := os.Executable(); err == nil {
		binary = filepath.Join(filepath.Dir(exe), "pricecast-train")
	}
	return usecase.NewRetrainLauncher(binary, configPath, l)
}

// ProvideQuoteTracker creates the live quote tracker, or nil when the quote
// stream is disabled.
func ProvideQuoteTracker(cfg *config.Config, m repository.Metrics, l *logger.Logger, prices repository.PriceStore) (*quotes.Tracker, error) {
	if !cfg.Quotes.Enabled {
		return nil, nil
	}
	symbols, err := prices.ListAssets(context.Background())
	if err != nil {
		return nil, fmt.Errorf("list assets for quote stream: %w", err)
	}
	stream := quotes.New(
		cfg.Quotes.APIKey,
		cfg.Quotes.WebSocketURL,
		symbols,
		cfg.Quotes.ReconnectDelay,
		cfg.Quotes.PingInterval,
	)
	return quotes.NewTracker(stream, m, l), nil
}

// ProvideHandler creates the API handler.
func ProvideHandler(
	l *logger.Logger,
	forecasts *usecase.ForecastService,
	risks *usecase.RiskService,
	retrain *usecase.RetrainLauncher,
	tracker *quotes.Tracker,
) *api.ForecastHandler {
	var live api.LiveQuoter
	if tracker != nil {
		live = tracker
	}
	return api.NewForecastHandler(l, forecasts, risks, retrain, live)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	handler *api.ForecastHandler,
	forecasts *usecase.ForecastService,
	tracker *quotes.Tracker,
	prices repository.PriceStore,
	publisher repository.Publisher,
) *server.App {
	closers := []io.Closer{prices, publisher}
	return server.New(cfg, l, handler, forecasts, tracker, closers...)
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
