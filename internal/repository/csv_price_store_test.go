package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"PriceCast/internal/domain/models"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
}

func TestCSVPriceStoreListAssets(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "reliance.csv", "Date,Close\n2024-01-02,2900.5\n")
	writeCSV(t, dir, "GOLD.csv", "Date,Close\n2024-01-02,62000\n")
	writeCSV(t, dir, "notes.txt", "not a csv")

	store := NewCSVPriceStore(dir, nil)
	assets, err := store.ListAssets(context.Background())
	if err != nil {
		t.Fatalf("list assets: %v", err)
	}
	want := []string{"gold", "reliance"}
	if len(assets) != len(want) {
		t.Fatalf("assets = %v, want %v", assets, want)
	}
	for i := range want {
		if assets[i] != want[i] {
			t.Fatalf("assets = %v, want %v", assets, want)
		}
	}
}

func TestCSVPriceStoreHistory(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "gold.csv",
		"Date,Open,Close\n2024-01-02,61000,62000\n2024-01-03,62000,62500.25\nbad-date,not-a-number,oops\n2024-01-04,62500,63000\n")

	store := NewCSVPriceStore(dir, nil)
	bars, err := store.History(context.Background(), "gold")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3 (malformed row skipped)", len(bars))
	}
	if bars[1].Close != 62500.25 {
		t.Fatalf("bars[1].Close = %v, want 62500.25", bars[1].Close)
	}
	if bars[0].Timestamp.IsZero() {
		t.Fatalf("timestamp not parsed from date column")
	}
}

func TestCSVPriceStoreHistoryNoDateColumn(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "crude.csv", "Close\n80.1\n81.2\n")

	store := NewCSVPriceStore(dir, nil)
	bars, err := store.History(context.Background(), "crude")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if !bars[0].Timestamp.IsZero() {
		t.Fatalf("expected zero timestamp without a date column")
	}
}

func TestCSVPriceStoreUnknownAsset(t *testing.T) {
	store := NewCSVPriceStore(t.TempDir(), nil)
	_, err := store.History(context.Background(), "missing")
	if !errors.Is(err, models.ErrUnknownAsset) {
		t.Fatalf("err = %v, want ErrUnknownAsset", err)
	}
}

func TestCSVPriceStoreHealth(t *testing.T) {
	store := NewCSVPriceStore(t.TempDir(), nil)
	if err := store.Health(context.Background()); err != nil {
		t.Fatalf("health on existing dir: %v", err)
	}
	store = NewCSVPriceStore("/does/not/exist", nil)
	if err := store.Health(context.Background()); err == nil {
		t.Fatalf("expected health error for missing dir")
	}
}
