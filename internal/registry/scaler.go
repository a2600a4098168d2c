package registry

import "sort"

// RobustScaler maps raw prices to a standardized scale using statistics that
// tolerate outliers: center is the median, scale is the interquartile range.
// It is always fitted on a single asset's own history; price scales differ by
// orders of magnitude across instruments, so sharing a scaler between assets
// is a correctness bug.
type RobustScaler struct {
	Center float64 `json:"center"`
	Scale  float64 `json:"scale"`
}

// FitRobustScaler fits center/scale over the given prices. A degenerate
// series (zero IQR) falls back to unit scale so the transform stays invertible.
func FitRobustScaler(prices []float64) RobustScaler {
	center := percentile(prices, 50)
	scale := percentile(prices, 75) - percentile(prices, 25)
	if scale == 0 {
		scale = 1
	}
	return RobustScaler{Center: center, Scale: scale}
}

// Transform maps raw prices to the normalized scale.
func (s RobustScaler) Transform(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = (p - s.Center) / s.Scale
	}
	return out
}

// Inverse maps normalized values back to raw prices.
func (s RobustScaler) Inverse(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v*s.Scale + s.Center
	}
	return out
}

// InverseOne maps a single normalized value back to a raw price.
func (s RobustScaler) InverseOne(v float64) float64 {
	return v*s.Scale + s.Center
}

// percentile computes the p-th percentile (0..100) with linear interpolation
// between closest ranks, matching the convention the scalers were tuned with.
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
