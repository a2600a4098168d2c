package dataset

import (
	"context"
	"fmt"
	"sort"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/registry"
	xlogger "PriceCast/pkg/logger"
)

const (
	// DefaultSeqLen is the fixed input window length shared by every asset.
	DefaultSeqLen = 30
	// DefaultLookbackDays bounds training to a recency window so assets that
	// recently made new all-time highs or lows are not swamped by stale scale
	// regimes.
	DefaultLookbackDays = 730
)

// Example is one training triple: a window of SeqLen consecutive normalized
// prices from a single asset, the normalized price immediately after it, and
// the asset's dense index.
type Example struct {
	Window     []float64
	Target     float64
	AssetIndex int
}

// Config controls windowing and recency filtering.
type Config struct {
	SeqLen       int
	LookbackDays int
}

// DefaultConfig returns the production windowing scheme.
func DefaultConfig() Config {
	return Config{SeqLen: DefaultSeqLen, LookbackDays: DefaultLookbackDays}
}

// Result is the full example set plus the registry covering exactly the
// assets that contributed at least one example.
type Result struct {
	Examples []Example
	Registry *registry.Registry
}

// Builder turns per-asset price histories into fixed-length normalized
// training examples. Each asset is filtered, registered, and windowed
// independently; one bad asset is skipped and logged, never fatal.
type Builder struct {
	store  domrepo.PriceStore
	logger *xlogger.Logger
	cfg    Config
}

func NewBuilder(store domrepo.PriceStore, logger *xlogger.Logger, cfg Config) *Builder {
	if cfg.SeqLen <= 0 {
		cfg.SeqLen = DefaultSeqLen
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	return &Builder{store: store, logger: logger, cfg: cfg}
}

// Build walks every asset in the store and emits the full training set.
// Returns ErrNoUsableAssets when nothing survived filtering.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	assets, err := b.store.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	// Deterministic first-seen order keeps index assignment reproducible.
	sort.Strings(assets)

	reg := registry.New(b.cfg.SeqLen)
	var examples []Example

	for _, asset := range assets {
		bars, err := b.store.History(ctx, asset)
		if err != nil {
			b.logger.Warn("skipping asset: history load failed",
				xlogger.String("asset", asset), xlogger.Error(err))
			continue
		}

		prices := b.filterRecent(bars)
		if len(prices) < b.cfg.SeqLen+1 {
			b.logger.Warn("skipping asset: insufficient rows",
				xlogger.String("asset", asset),
				xlogger.Int("rows", len(prices)),
				xlogger.Int("need", b.cfg.SeqLen+1))
			continue
		}

		idx, err := reg.Register(asset, prices)
		if err != nil {
			b.logger.Warn("skipping asset: registration failed",
				xlogger.String("asset", asset), xlogger.Error(err))
			continue
		}

		normalized, err := reg.Normalize(asset, prices)
		if err != nil {
			return nil, fmt.Errorf("normalize %s: %w", asset, err)
		}

		added := 0
		for i := 0; i+b.cfg.SeqLen < len(normalized); i++ {
			window := make([]float64, b.cfg.SeqLen)
			copy(window, normalized[i:i+b.cfg.SeqLen])
			examples = append(examples, Example{
				Window:     window,
				Target:     normalized[i+b.cfg.SeqLen],
				AssetIndex: idx,
			})
			added++
		}

		b.logger.Info("asset loaded",
			xlogger.String("asset", asset),
			xlogger.Int("rows", len(prices)),
			xlogger.Int("examples", added))
	}

	if len(examples) == 0 {
		return nil, fmt.Errorf("dataset build: %w", models.ErrNoUsableAssets)
	}

	b.logger.Info("dataset ready",
		xlogger.Int("examples", len(examples)),
		xlogger.Int("assets", reg.Len()))

	return &Result{Examples: examples, Registry: reg}, nil
}

// filterRecent restricts a history to the lookback window: by calendar days
// when timestamps are present, by row count otherwise.
func (b *Builder) filterRecent(bars []models.PriceBar) []float64 {
	if len(bars) == 0 {
		return nil
	}

	if bars[0].Timestamp.IsZero() {
		start := 0
		if len(bars) > b.cfg.LookbackDays {
			start = len(bars) - b.cfg.LookbackDays
		}
		out := make([]float64, 0, len(bars)-start)
		for _, bar := range bars[start:] {
			out = append(out, bar.Close)
		}
		return out
	}

	sorted := make([]models.PriceBar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	cutoff := sorted[len(sorted)-1].Timestamp.AddDate(0, 0, -b.cfg.LookbackDays)
	out := make([]float64, 0, len(sorted))
	for _, bar := range sorted {
		if bar.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, bar.Close)
	}
	return out
}
