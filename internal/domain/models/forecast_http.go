package models

// Requests for forecasting HTTP endpoints. Defined in domain for consistency and reuse.

type PredictRequest struct {
	Asset string `param:"asset" json:"asset" validate:"required"`
	// Days outside [1,30] is clamped by the projector, not rejected.
	Days int `query:"days" json:"days" default:"1"`
}

type RiskRequest struct {
	Asset      string  `param:"asset" json:"asset" validate:"required"`
	Confidence float64 `query:"confidence" json:"confidence" default:"0.95" validate:"gt=0,lt=1"`
}

type LiveRequest struct {
	Asset string `param:"asset" json:"asset" validate:"required"`
}

type CategoryRequest struct {
	Category string `param:"category" json:"category" validate:"required"`
}
