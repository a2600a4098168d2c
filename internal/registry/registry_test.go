package registry

import (
	"errors"
	"math"
	"testing"

	"PriceCast/internal/domain/models"
)

func seriesOf(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestRobustScalerCenterScale(t *testing.T) {
	// 1..5: median 3, q25 2, q75 4
	s := FitRobustScaler([]float64{1, 2, 3, 4, 5})
	if s.Center != 3 {
		t.Fatalf("center = %v, want 3", s.Center)
	}
	if s.Scale != 2 {
		t.Fatalf("scale = %v, want 2", s.Scale)
	}
}

func TestRobustScalerDegenerateSeries(t *testing.T) {
	s := FitRobustScaler([]float64{7, 7, 7, 7})
	if s.Scale != 1 {
		t.Fatalf("scale = %v, want unit fallback", s.Scale)
	}
	got := s.Transform([]float64{7})
	if got[0] != 0 {
		t.Fatalf("transform(center) = %v, want 0", got[0])
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	r := New(30)
	prices := seriesOf(40, 19000, 12.5)
	if _, err := r.Register("nifty50", prices); err != nil {
		t.Fatalf("register: %v", err)
	}

	norm, err := r.Normalize("nifty50", prices)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	back, err := r.Denormalize("nifty50", norm)
	if err != nil {
		t.Fatalf("denormalize: %v", err)
	}
	for i := range prices {
		if math.Abs(back[i]-prices[i]) > 1e-9 {
			t.Fatalf("round trip at %d: got %v want %v", i, back[i], prices[i])
		}
	}
}

func TestRegisterInsufficientHistory(t *testing.T) {
	r := New(30)
	_, err := r.Register("usdinr", seriesOf(30, 83, 0.01))
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("err = %v, want ErrInsufficientHistory", err)
	}
	if r.Has("usdinr") {
		t.Fatalf("failed registration must not leave an entry")
	}
}

func TestIndexAssignmentFirstSeenOrder(t *testing.T) {
	r := New(30)
	prices := seriesOf(31, 100, 1)
	for i, id := range []string{"gold", "silver", "crudeoil"} {
		idx, err := r.Register(id, prices)
		if err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
		if idx != i {
			t.Fatalf("index for %s = %d, want %d", id, idx, i)
		}
	}

	// Re-registering keeps the index stable.
	idx, err := r.Register("silver", seriesOf(31, 200, 2))
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if idx != 1 {
		t.Fatalf("re-register index = %d, want 1", idx)
	}
	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
}

func TestUnknownAsset(t *testing.T) {
	r := New(30)
	if _, err := r.Normalize("ghost", []float64{1}); !errors.Is(err, models.ErrUnknownAsset) {
		t.Fatalf("normalize err = %v, want ErrUnknownAsset", err)
	}
	if _, err := r.Denormalize("ghost", []float64{1}); !errors.Is(err, models.ErrUnknownAsset) {
		t.Fatalf("denormalize err = %v, want ErrUnknownAsset", err)
	}
	if _, err := r.Index("ghost"); !errors.Is(err, models.ErrUnknownAsset) {
		t.Fatalf("index err = %v, want ErrUnknownAsset", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := New(30)
	prices := seriesOf(45, 50, 0.5)
	for _, id := range []string{"tcs", "infosys", "wipro"} {
		if _, err := r.Register(id, prices); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	restored, err := FromSnapshot(r.Snapshot())
	if err != nil {
		t.Fatalf("from snapshot: %v", err)
	}
	if restored.Len() != r.Len() {
		t.Fatalf("restored len = %d, want %d", restored.Len(), r.Len())
	}
	for _, id := range []string{"tcs", "infosys", "wipro"} {
		want, _ := r.Index(id)
		got, err := restored.Index(id)
		if err != nil || got != want {
			t.Fatalf("restored index for %s = %d (%v), want %d", id, got, err, want)
		}
	}
}

func TestFromSnapshotRejectsSparseIndices(t *testing.T) {
	snap := Snapshot{SeqLen: 30, Assets: []AssetEntry{
		{ID: "a", Index: 0, Scaler: RobustScaler{Scale: 1}},
		{ID: "b", Index: 2, Scaler: RobustScaler{Scale: 1}},
	}}
	if _, err := FromSnapshot(snap); err == nil {
		t.Fatalf("expected error for sparse indices")
	}
}
