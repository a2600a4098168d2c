package forecast

import "math"

// Policy carries the extrapolation and repair constants. They are heuristics
// tuned for this instrument universe, not derived from a financial model, so
// they stay configurable rather than hard-coded at call sites.
type Policy struct {
	MinHorizonDays int     `yaml:"min_horizon_days"`
	MaxHorizonDays int     `yaml:"max_horizon_days"`
	PriceFloor     float64 `yaml:"price_floor"`
	LowerMargin    float64 `yaml:"lower_margin"`
	UpperMargin    float64 `yaml:"upper_margin"`
	MaxMovePct     float64 `yaml:"max_move_pct"`
}

// DefaultPolicy returns the production constants.
func DefaultPolicy() Policy {
	return Policy{
		MinHorizonDays: 1,
		MaxHorizonDays: 30,
		PriceFloor:     0.01,
		LowerMargin:    0.95,
		UpperMargin:    1.05,
		MaxMovePct:     0.5,
	}
}

// ClampHorizon snaps an out-of-range horizon to the nearest bound rather than
// rejecting it.
func (p Policy) ClampHorizon(days int) int {
	if days < p.MinHorizonDays {
		return p.MinHorizonDays
	}
	if days > p.MaxHorizonDays {
		return p.MaxHorizonDays
	}
	return days
}

// HorizonScale is the square-root-of-time volatility multiplier for a
// clamped horizon. Horizons beyond the trained range never scale past
// sqrt(MaxHorizonDays).
func (p Policy) HorizonScale(days int) float64 {
	return math.Sqrt(float64(p.ClampHorizon(days)))
}

// Repair forces the statistical sanity invariants onto a raw quantile triple:
// positive floor, q10 <= LowerMargin*q50 and q90 >= UpperMargin*q50, and a
// total move of at most MaxMovePct from the current price. Checks run in that
// order; the move cap is monotone so it cannot reintroduce a violation.
// Repair is pure and independent of any model.
func (p Policy) Repair(q10, q50, q90, current float64) (float64, float64, float64) {
	q10 = math.Max(q10, p.PriceFloor)
	q50 = math.Max(q50, p.PriceFloor)
	q90 = math.Max(q90, p.PriceFloor)

	if q10 > p.LowerMargin*q50 {
		q10 = p.LowerMargin * q50
	}
	if q90 < p.UpperMargin*q50 {
		q90 = p.UpperMargin * q50
	}

	if current > 0 {
		lo := current * (1 - p.MaxMovePct)
		hi := current * (1 + p.MaxMovePct)
		q10 = clamp(q10, lo, hi)
		q50 = clamp(q50, lo, hi)
		q90 = clamp(q90, lo, hi)
	}

	q10 = math.Max(q10, p.PriceFloor)
	q50 = math.Max(q50, p.PriceFloor)
	q90 = math.Max(q90, p.PriceFloor)
	return q10, q50, q90
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
