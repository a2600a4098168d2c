package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	applogger "PriceCast/pkg/logger"
	xutil "PriceCast/pkg/util"
)

// CSVPriceStore implements PriceStore backed by a directory of per-asset
// CSV files. Each file is <dir>/<asset>.csv with a header row; the close
// column is required, a date column is optional.
type CSVPriceStore struct {
	dir string
	l   *applogger.Logger
}

func NewCSVPriceStore(dir string, l *applogger.Logger) *CSVPriceStore {
	return &CSVPriceStore{dir: dir, l: l}
}

func (s *CSVPriceStore) ListAssets(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	assets := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		assets = append(assets, strings.ToLower(strings.TrimSuffix(e.Name(), ".csv")))
	}
	sort.Strings(assets)
	return assets, nil
}

func (s *CSVPriceStore) History(ctx context.Context, asset string) ([]models.PriceBar, error) {
	path := filepath.Join(s.dir, asset+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("asset %q: %w", asset, models.ErrUnknownAsset)
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	closeIdx, dateIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "close", "price", "adj close":
			if closeIdx < 0 {
				closeIdx = i
			}
		case "date", "timestamp", "ts":
			if dateIdx < 0 {
				dateIdx = i
			}
		}
	}
	if closeIdx < 0 {
		return nil, fmt.Errorf("%s: no close column in header %v", path, header)
	}

	bars := make([]models.PriceBar, 0, 1024)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if closeIdx >= len(rec) {
			continue
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(rec[closeIdx]), 64)
		if err != nil {
			// skip malformed rows but keep note of them
			if s.l != nil {
				s.l.Warn("skipping malformed price row",
					applogger.String("file", path),
					applogger.Int("line", line),
				)
			}
			continue
		}

		var ts time.Time
		if dateIdx >= 0 && dateIdx < len(rec) {
			ts, _ = xutil.ParseTime(strings.TrimSpace(rec[dateIdx]))
		}
		bars = append(bars, models.PriceBar{Timestamp: ts, Close: price})
	}

	return bars, nil
}

func (s *CSVPriceStore) Health(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %q is not a directory", s.dir)
	}
	return nil
}

func (s *CSVPriceStore) Close() error { return nil }
