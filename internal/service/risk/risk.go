package risk

import (
	"math"
	"sort"

	"PriceCast/internal/domain/models"
)

const (
	// annualization assumes daily bars on a calendar-day basis
	tradingDaysPerYear = 365.0
	riskFreeRate       = 0.02
)

// Analyze computes descriptive risk statistics from a close-price history.
// VaR, CVaR, volatility and max drawdown are reported as percentages rounded
// to two decimals.
func Analyze(asset string, prices []float64, confidence float64) (*models.RiskReport, error) {
	rets := Returns(prices)
	if len(rets) == 0 {
		return nil, models.ErrInsufficientHistory
	}

	v := VaR(rets, confidence)
	cv := CVaR(rets, confidence)
	vol := AnnualizedVolatility(rets)

	return &models.RiskReport{
		Asset:       asset,
		VaR:         round2(v * 100),
		CVaR:        round2(cv * 100),
		Volatility:  round2(vol * 100),
		SharpeRatio: round2(SharpeRatio(rets)),
		MaxDrawdown: round2(MaxDrawdown(prices) * 100),
	}, nil
}

// Returns computes simple daily returns, skipping zero-price bars.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out = append(out, prices[i]/prices[i-1]-1)
	}
	return out
}

// VaR is the (1-confidence) quantile of the return distribution.
func VaR(returns []float64, confidence float64) float64 {
	return quantile(returns, 1-confidence)
}

// CVaR is the mean of returns at or below the VaR threshold.
func CVaR(returns []float64, confidence float64) float64 {
	threshold := VaR(returns, confidence)
	var sum float64
	var n int
	for _, r := range returns {
		if r <= threshold {
			sum += r
			n++
		}
	}
	if n == 0 {
		return threshold
	}
	return sum / float64(n)
}

// AnnualizedVolatility is the stddev of daily returns scaled by sqrt(365).
func AnnualizedVolatility(returns []float64) float64 {
	return stddev(returns) * math.Sqrt(tradingDaysPerYear)
}

// SharpeRatio is the annualized excess return over the risk-free rate
// divided by annualized volatility.
func SharpeRatio(returns []float64) float64 {
	vol := AnnualizedVolatility(returns)
	if vol == 0 {
		return 0
	}
	annReturn := mean(returns) * tradingDaysPerYear
	return (annReturn - riskFreeRate) / vol
}

// MaxDrawdown is the largest peak-to-trough decline over the history,
// returned as a negative fraction.
func MaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	peak := prices[0]
	worst := 0.0
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak > 0 {
			dd := p/peak - 1
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
