package artifact

import (
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/model"
	"PriceCast/internal/registry"
)

// SchemaVersion guards persisted bundles against format drift.
const SchemaVersion = 1

// HeadMetrics are diagnostic regression metrics for one quantile head,
// computed on denormalized prices.
type HeadMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	MAPE float64 `json:"mape"`
	R2   float64 `json:"r2"`
}

// IntervalStats characterize calibration sharpness: widths of the predicted
// bands on the normalized scale.
type IntervalStats struct {
	MeanLower   float64 `json:"mean_lower_interval"`
	MeanUpper   float64 `json:"mean_upper_interval"`
	MeanTotal   float64 `json:"mean_total_interval"`
	MedianLower float64 `json:"median_lower_interval"`
	MedianUpper float64 `json:"median_upper_interval"`
	MedianTotal float64 `json:"median_total_interval"`
}

// TrainingInfo records how the bundle was produced.
type TrainingInfo struct {
	Epochs      int                    `json:"epochs"`
	Examples    int                    `json:"examples"`
	BestValLoss float64                `json:"best_val_loss"`
	FinalLR     float64                `json:"final_lr"`
	Evaluation  map[string]HeadMetrics `json:"evaluation,omitempty"`
	Intervals   IntervalStats          `json:"prediction_intervals"`
}

// Bundle is the versioned model artifact: trained parameters plus the exact
// registry they were trained against. The two are only meaningful together;
// a model paired with a different registry would index the wrong embeddings
// and reverse-transform to the wrong price scale.
type Bundle struct {
	SchemaVersion int               `json:"schema_version"`
	CreatedAt     time.Time         `json:"created_at"`
	ModelConfig   model.Config      `json:"model_config"`
	ModelParams   []float64         `json:"model_params"`
	Registry      registry.Snapshot `json:"registry"`
	Training      TrainingInfo      `json:"training"`
}

// New assembles a bundle from a trained network and its registry.
func New(net model.Network, reg *registry.Registry, info TrainingInfo) *Bundle {
	return &Bundle{
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().UTC(),
		ModelConfig:   net.Config(),
		ModelParams:   net.SnapshotParams(),
		Registry:      reg.Snapshot(),
		Training:      info,
	}
}

// Validate rejects unusable bundles, in particular a model/registry
// cardinality disagreement, which must never be served.
func (b *Bundle) Validate() error {
	if b.SchemaVersion != SchemaVersion {
		return fmt.Errorf("artifact schema version %d, expected %d", b.SchemaVersion, SchemaVersion)
	}
	if b.ModelConfig.NumAssets != len(b.Registry.Assets) {
		return fmt.Errorf("embedding table has %d rows, registry has %d assets: %w",
			b.ModelConfig.NumAssets, len(b.Registry.Assets), models.ErrArtifactMismatch)
	}
	if b.ModelConfig.SeqLen != b.Registry.SeqLen {
		return fmt.Errorf("model window %d, registry window %d: %w",
			b.ModelConfig.SeqLen, b.Registry.SeqLen, models.ErrArtifactMismatch)
	}
	return nil
}

// Materialize validates the bundle and rebuilds the runtime pair.
func (b *Bundle) Materialize() (model.Network, *registry.Registry, error) {
	if err := b.Validate(); err != nil {
		return nil, nil, err
	}
	reg, err := registry.FromSnapshot(b.Registry)
	if err != nil {
		return nil, nil, fmt.Errorf("restore registry: %w", err)
	}
	net, err := model.Load(b.ModelConfig, b.ModelParams)
	if err != nil {
		return nil, nil, fmt.Errorf("restore model: %w", err)
	}
	return net, reg, nil
}
