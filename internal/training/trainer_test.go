package training

import (
	"context"
	"math"
	"testing"

	"PriceCast/internal/dataset"
	"PriceCast/internal/registry"
	xlogger "PriceCast/pkg/logger"
)

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// syntheticDataset builds a small two-asset example set with seqLen 4.
func syntheticDataset(t *testing.T) *dataset.Result {
	t.Helper()
	const seqLen = 4
	reg := registry.New(seqLen)

	series := map[string][]float64{
		"gold":   {1800, 1810, 1805, 1820, 1830, 1825, 1840, 1850, 1845, 1860},
		"silver": {22, 22.5, 22.2, 22.8, 23.1, 22.9, 23.4, 23.6, 23.5, 23.9},
	}

	var examples []dataset.Example
	for _, id := range []string{"gold", "silver"} {
		prices := series[id]
		idx, err := reg.Register(id, prices)
		if err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
		norm, err := reg.Normalize(id, prices)
		if err != nil {
			t.Fatalf("normalize %s: %v", id, err)
		}
		for i := 0; i+seqLen < len(norm); i++ {
			window := make([]float64, seqLen)
			copy(window, norm[i:i+seqLen])
			examples = append(examples, dataset.Example{
				Window: window, Target: norm[i+seqLen], AssetIndex: idx,
			})
		}
	}
	return &dataset.Result{Examples: examples, Registry: reg}
}

func TestTrainProducesValidBundle(t *testing.T) {
	data := syntheticDataset(t)
	cfg := DefaultConfig()
	cfg.Epochs = 5
	cfg.BatchSize = 4

	tr := New(testLogger(t), cfg)
	bundle, err := tr.Train(context.Background(), data)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if err := bundle.Validate(); err != nil {
		t.Fatalf("bundle validate: %v", err)
	}
	if bundle.Training.Epochs == 0 || bundle.Training.Examples != len(data.Examples) {
		t.Fatalf("training info incomplete: %+v", bundle.Training)
	}
	if math.IsInf(bundle.Training.BestValLoss, 0) || math.IsNaN(bundle.Training.BestValLoss) {
		t.Fatalf("best val loss = %v", bundle.Training.BestValLoss)
	}

	net, reg, err := bundle.Materialize()
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("registry len = %d, want 2", reg.Len())
	}
	q := net.Forward(data.Examples[0].Window, data.Examples[0].AssetIndex)
	for _, v := range []float64{q.Q10, q.Q50, q.Q90} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite prediction: %+v", q)
		}
	}
}

func TestTrainCancelled(t *testing.T) {
	data := syntheticDataset(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(testLogger(t), DefaultConfig())
	if _, err := tr.Train(ctx, data); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestTrainEmptyDataset(t *testing.T) {
	tr := New(testLogger(t), DefaultConfig())
	if _, err := tr.Train(context.Background(), &dataset.Result{}); err == nil {
		t.Fatalf("expected error for empty dataset")
	}
}

func TestRegressionMetrics(t *testing.T) {
	truth := []float64{1, 2, 3, 4}
	pred := []float64{1, 2, 3, 4}
	if got := RMSE(truth, pred); got != 0 {
		t.Fatalf("rmse = %v, want 0", got)
	}
	if got := R2(truth, pred); got != 1 {
		t.Fatalf("r2 = %v, want 1", got)
	}

	pred = []float64{2, 3, 4, 5}
	if got := MAE(truth, pred); got != 1 {
		t.Fatalf("mae = %v, want 1", got)
	}
	if got := RMSE(truth, pred); got != 1 {
		t.Fatalf("rmse = %v, want 1", got)
	}

	// MAPE skips zero truth values
	if got := MAPE([]float64{0, 100}, []float64{5, 110}); math.Abs(got-10) > 1e-9 {
		t.Fatalf("mape = %v, want 10", got)
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("median odd = %v, want 2", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("median even = %v, want 2.5", got)
	}
}
