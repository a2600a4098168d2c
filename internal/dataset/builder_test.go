package dataset

import (
	"context"
	"errors"
	"testing"
	"time"

	"PriceCast/internal/domain/models"
	xlogger "PriceCast/pkg/logger"
)

type memStore struct {
	histories map[string][]models.PriceBar
}

func (m *memStore) ListAssets(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(m.histories))
	for a := range m.histories {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) History(ctx context.Context, asset string) ([]models.PriceBar, error) {
	h, ok := m.histories[asset]
	if !ok {
		return nil, models.ErrUnknownAsset
	}
	return h, nil
}

func (m *memStore) Health(ctx context.Context) error { return nil }
func (m *memStore) Close() error                     { return nil }

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func bars(prices ...float64) []models.PriceBar {
	out := make([]models.PriceBar, len(prices))
	for i, p := range prices {
		out[i] = models.PriceBar{Close: p}
	}
	return out
}

func TestBuildWindowCount(t *testing.T) {
	// seqLen+1 rows yield exactly one example
	store := &memStore{histories: map[string][]models.PriceBar{
		"gold": bars(100, 101, 102, 103, 104),
	}}
	b := NewBuilder(store, testLogger(t), Config{SeqLen: 4, LookbackDays: 730})

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(res.Examples) != 1 {
		t.Fatalf("got %d examples, want 1", len(res.Examples))
	}
	ex := res.Examples[0]
	if len(ex.Window) != 4 {
		t.Fatalf("window len = %d, want 4", len(ex.Window))
	}
	idx, err := res.Registry.Index("gold")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if ex.AssetIndex != idx {
		t.Fatalf("example index %d, registry index %d", ex.AssetIndex, idx)
	}
}

func TestBuildStride(t *testing.T) {
	// n rows produce n - seqLen examples at stride one
	store := &memStore{histories: map[string][]models.PriceBar{
		"gold": bars(100, 101, 102, 103, 104, 105, 106, 107, 108, 109),
	}}
	b := NewBuilder(store, testLogger(t), Config{SeqLen: 4, LookbackDays: 730})

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(res.Examples) != 6 {
		t.Fatalf("got %d examples, want 6", len(res.Examples))
	}
}

func TestBuildSkipsShortAsset(t *testing.T) {
	store := &memStore{histories: map[string][]models.PriceBar{
		"gold":  bars(100, 101, 102, 103, 104),
		"stub":  bars(50, 51),
	}}
	b := NewBuilder(store, testLogger(t), Config{SeqLen: 4, LookbackDays: 730})

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Registry.Has("stub") {
		t.Fatalf("short asset should not be registered")
	}
	if !res.Registry.Has("gold") {
		t.Fatalf("usable asset missing from registry")
	}
}

func TestBuildNoUsableAssets(t *testing.T) {
	store := &memStore{histories: map[string][]models.PriceBar{
		"stub": bars(50, 51),
	}}
	b := NewBuilder(store, testLogger(t), Config{SeqLen: 4, LookbackDays: 730})

	_, err := b.Build(context.Background())
	if !errors.Is(err, models.ErrNoUsableAssets) {
		t.Fatalf("err = %v, want ErrNoUsableAssets", err)
	}
}

func TestFilterRecentByRows(t *testing.T) {
	b := NewBuilder(&memStore{}, testLogger(t), Config{SeqLen: 4, LookbackDays: 3})
	prices := b.filterRecent(bars(1, 2, 3, 4, 5))
	if len(prices) != 3 {
		t.Fatalf("got %d rows, want 3", len(prices))
	}
	if prices[0] != 3 || prices[2] != 5 {
		t.Fatalf("kept wrong tail: %v", prices)
	}
}

func TestFilterRecentByCalendarDays(t *testing.T) {
	b := NewBuilder(&memStore{}, testLogger(t), Config{SeqLen: 4, LookbackDays: 2})
	base := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	history := []models.PriceBar{
		{Timestamp: base.AddDate(0, 0, -5), Close: 1},
		{Timestamp: base.AddDate(0, 0, -2), Close: 2},
		{Timestamp: base.AddDate(0, 0, -1), Close: 3},
		{Timestamp: base, Close: 4},
	}
	prices := b.filterRecent(history)
	if len(prices) != 3 {
		t.Fatalf("got %d rows, want 3: %v", len(prices), prices)
	}
	if prices[0] != 2 {
		t.Fatalf("cutoff kept wrong rows: %v", prices)
	}
}

func TestFilterRecentSortsUnorderedHistory(t *testing.T) {
	b := NewBuilder(&memStore{}, testLogger(t), Config{SeqLen: 4, LookbackDays: 365})
	base := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	history := []models.PriceBar{
		{Timestamp: base, Close: 3},
		{Timestamp: base.AddDate(0, 0, -2), Close: 1},
		{Timestamp: base.AddDate(0, 0, -1), Close: 2},
	}
	prices := b.filterRecent(history)
	if len(prices) != 3 || prices[0] != 1 || prices[2] != 3 {
		t.Fatalf("history not sorted by time: %v", prices)
	}
}
