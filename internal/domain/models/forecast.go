package models

import "time"

// PriceBar is one row of an asset's close-price history. Timestamp is zero
// when the source has no timestamp column; consumers then fall back to
// row-count recency filtering.
type PriceBar struct {
	Timestamp time.Time
	Close     float64
}

// Forecast is a horizon-adjusted quantile prediction for one asset.
/// Invariant after repair: Floor <= Q10 <= Q50 <= Q90 and each quantile moves
// at most 50% from CurrentPrice.
type Forecast struct {
	Asset        string    `json:"asset"`
	CurrentPrice float64   `json:"current_price"`
	HorizonDays  int       `json:"horizon_days"`
	Q10          float64   `json:"q10"`
	Q50          float64   `json:"q50"`
	Q90          float64   `json:"q90"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Quote is the latest observed price for a symbol from the live stream.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// RiskReport aggregates descriptive risk statistics over a price history.
// All values except SharpeRatio are percentages rounded to two decimals.
type RiskReport struct {
	Asset       string  `json:"asset"`
	VaR         float64 `json:"var"`
	CVaR        float64 `json:"cvar"`
	Volatility  float64 `json:"volatility"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// RetrainStatus reports a detached training process launch.
type RetrainStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	PID     int    `json:"process_id,omitempty"`
}
