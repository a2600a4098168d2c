package risk

import (
	"errors"
	"math"
	"testing"

	"PriceCast/internal/domain/models"
)

func almost(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}

func TestReturns(t *testing.T) {
	rets := Returns([]float64{100, 110, 99})
	if len(rets) != 2 {
		t.Fatalf("got %d returns, want 2", len(rets))
	}
	almost(t, rets[0], 0.10, 1e-12, "rets[0]")
	almost(t, rets[1], -0.10, 1e-12, "rets[1]")
}

func TestReturnsSkipsZeroPrices(t *testing.T) {
	rets := Returns([]float64{100, 0, 50})
	// the bar following a zero price is dropped
	if len(rets) != 1 {
		t.Fatalf("got %d returns, want 1", len(rets))
	}
}

func TestVaRAndCVaR(t *testing.T) {
	rets := []float64{-0.10, 0.10}
	almost(t, VaR(rets, 0.95), -0.09, 1e-12, "VaR")
	almost(t, CVaR(rets, 0.95), -0.10, 1e-12, "CVaR")
}

func TestCVaRNeverAboveVaR(t *testing.T) {
	rets := []float64{-0.05, -0.02, 0.01, 0.03, -0.08, 0.02, 0.04, -0.01}
	if CVaR(rets, 0.95) > VaR(rets, 0.95) {
		t.Fatalf("CVaR %v above VaR %v", CVaR(rets, 0.95), VaR(rets, 0.95))
	}
}

func TestMaxDrawdown(t *testing.T) {
	almost(t, MaxDrawdown([]float64{100, 110, 99}), -0.1, 1e-12, "drawdown")
	almost(t, MaxDrawdown([]float64{100, 105, 110}), 0, 1e-12, "monotone drawdown")
}

func TestAnnualizedVolatilityConstantSeries(t *testing.T) {
	rets := Returns([]float64{100, 100, 100, 100})
	almost(t, AnnualizedVolatility(rets), 0, 1e-12, "volatility")
	almost(t, SharpeRatio(rets), 0, 1e-12, "sharpe on zero vol")
}

func TestAnalyze(t *testing.T) {
	report, err := Analyze("gold", []float64{100, 110, 99}, 0.95)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Asset != "gold" {
		t.Fatalf("asset = %q", report.Asset)
	}
	almost(t, report.VaR, -9.0, 1e-9, "VaR pct")
	almost(t, report.CVaR, -10.0, 1e-9, "CVaR pct")
	almost(t, report.MaxDrawdown, -10.0, 1e-9, "drawdown pct")
	if report.Volatility <= 0 {
		t.Fatalf("volatility = %v, want > 0", report.Volatility)
	}
}

func TestAnalyzeInsufficientHistory(t *testing.T) {
	_, err := Analyze("gold", []float64{100}, 0.95)
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("err = %v, want ErrInsufficientHistory", err)
	}
}
