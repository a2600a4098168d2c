package training

import (
	"math"
	"sort"

	"PriceCast/internal/artifact"
	"PriceCast/internal/dataset"
	"PriceCast/internal/model"
)

// Evaluate computes per-head diagnostic metrics over the full example set on
// the denormalized price scale, so the numbers read in currency units.
func Evaluate(net model.Network, data *dataset.Result) map[string]artifact.HeadMetrics {
	n := len(data.Examples)
	preds := [3][]float64{
		make([]float64, n), make([]float64, n), make([]float64, n),
	}
	truth := make([]float64, n)

	for i, ex := range data.Examples {
		q := net.Forward(ex.Window, ex.AssetIndex)
		asset, err := data.Registry.AssetAt(ex.AssetIndex)
		if err != nil {
			continue
		}
		scaler, err := data.Registry.Scaler(asset)
		if err != nil {
			continue
		}
		preds[0][i] = scaler.InverseOne(q.Q10)
		preds[1][i] = scaler.InverseOne(q.Q50)
		preds[2][i] = scaler.InverseOne(q.Q90)
		truth[i] = scaler.InverseOne(ex.Target)
	}

	return map[string]artifact.HeadMetrics{
		"q10": headMetrics(truth, preds[0]),
		"q50": headMetrics(truth, preds[1]),
		"q90": headMetrics(truth, preds[2]),
	}
}

// IntervalWidths aggregates predicted band widths on the normalized scale.
func IntervalWidths(net model.Network, examples []dataset.Example) artifact.IntervalStats {
	lower := make([]float64, 0, len(examples))
	upper := make([]float64, 0, len(examples))
	total := make([]float64, 0, len(examples))

	for _, ex := range examples {
		q := net.Forward(ex.Window, ex.AssetIndex)
		lower = append(lower, q.Q50-q.Q10)
		upper = append(upper, q.Q90-q.Q50)
		total = append(total, q.Q90-q.Q10)
	}

	return artifact.IntervalStats{
		MeanLower:   mean(lower),
		MeanUpper:   mean(upper),
		MeanTotal:   mean(total),
		MedianLower: median(lower),
		MedianUpper: median(upper),
		MedianTotal: median(total),
	}
}

func headMetrics(truth, pred []float64) artifact.HeadMetrics {
	return artifact.HeadMetrics{
		RMSE: RMSE(truth, pred),
		MAE:  MAE(truth, pred),
		MAPE: MAPE(truth, pred),
		R2:   R2(truth, pred),
	}
}

// RMSE is the root mean squared error.
func RMSE(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	sum := 0.0
	for i := range truth {
		d := truth[i] - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(truth)))
}

// MAE is the mean absolute error.
func MAE(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	sum := 0.0
	for i := range truth {
		sum += math.Abs(truth[i] - pred[i])
	}
	return sum / float64(len(truth))
}

// MAPE is the mean absolute percentage error over nonzero truth values.
func MAPE(truth, pred []float64) float64 {
	sum := 0.0
	count := 0
	for i := range truth {
		if truth[i] == 0 {
			continue
		}
		sum += math.Abs((truth[i] - pred[i]) / truth[i])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) * 100
}

// R2 is the coefficient of determination; 0 when truth has no variance.
func R2(truth, pred []float64) float64 {
	if len(truth) == 0 {
		return 0
	}
	m := mean(truth)
	ssRes, ssTot := 0.0, 0.0
	for i := range truth {
		d := truth[i] - pred[i]
		ssRes += d * d
		t := truth[i] - m
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
