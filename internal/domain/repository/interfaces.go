package repository

import (
	"context"

	"PriceCast/internal/artifact"
	"PriceCast/internal/domain/models"
)

// PriceStore supplies per-asset close-price histories, grouped by asset
// identifier. Backends: CSV directory, ClickHouse.
type PriceStore interface {
	ListAssets(ctx context.Context) ([]string, error)
	History(ctx context.Context, asset string) ([]models.PriceBar, error)
	Health(ctx context.Context) error
	Close() error
}

// ArtifactStore persists the trained model and its registry as one atomic
// bundle. Load must reject a mismatched pair.
type ArtifactStore interface {
	Save(ctx context.Context, b *artifact.Bundle) error
	Load(ctx context.Context) (*artifact.Bundle, error)
}

// Publisher emits served forecasts to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, f *models.Forecast) error
	Close() error
}

// QuoteStream is a live market-quote feed.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records operational counters and gauges.
type Metrics interface {
	RecordForecast(asset string, horizonDays int)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
