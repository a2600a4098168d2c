package forecast

import (
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/model"
	"PriceCast/internal/registry"
)

// Projector turns the model's one-step quantile output into an N-day-ahead
// forecast. The model only ever predicts one step; longer horizons are
// extrapolated by square-root-of-time scaling of each quantile's deviation
// from the current price, then repaired to satisfy the output invariants.
type Projector struct {
	net    model.Network
	reg    *registry.Registry
	policy Policy
}

func NewProjector(net model.Network, reg *registry.Registry, policy Policy) *Projector {
	return &Projector{net: net, reg: reg, policy: policy}
}

// Assets lists the assets the projector can forecast, sorted.
func (p *Projector) Assets() []string {
	return p.reg.Assets()
}

// Forecast predicts quantile prices horizonDays ahead from the latest raw
// prices of one asset. Only the trailing SeqLen values are used; fewer than
// SeqLen is ErrInsufficientHistory, an unregistered asset is ErrUnknownAsset.
func (p *Projector) Forecast(asset string, latest []float64, horizonDays int) (*models.Forecast, error) {
	if !p.reg.Has(asset) {
		return nil, fmt.Errorf("forecast %s: %w", asset, models.ErrUnknownAsset)
	}
	seqLen := p.reg.SeqLen()
	if len(latest) < seqLen {
		return nil, fmt.Errorf("forecast %s: %d prices, need %d: %w",
			asset, len(latest), seqLen, models.ErrInsufficientHistory)
	}

	horizonDays = p.policy.ClampHorizon(horizonDays)
	window := latest[len(latest)-seqLen:]
	current := window[seqLen-1]

	normalized, err := p.reg.Normalize(asset, window)
	if err != nil {
		return nil, err
	}
	idx, err := p.reg.Index(asset)
	if err != nil {
		return nil, err
	}

	q := p.net.Forward(normalized, idx)
	scaler, err := p.reg.Scaler(asset)
	if err != nil {
		return nil, err
	}
	q10 := scaler.InverseOne(q.Q10)
	q50 := scaler.InverseOne(q.Q50)
	q90 := scaler.InverseOne(q.Q90)

	if horizonDays > 1 {
		scale := p.policy.HorizonScale(horizonDays)
		q10 = current + (q10-current)*scale
		q50 = current + (q50-current)*scale
		q90 = current + (q90-current)*scale
	}

	q10, q50, q90 = p.policy.Repair(q10, q50, q90, current)

	return &models.Forecast{
		Asset:        asset,
		CurrentPrice: current,
		HorizonDays:  horizonDays,
		Q10:          q10,
		Q50:          q50,
		Q90:          q90,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}
