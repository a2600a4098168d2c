package model

import (
	"fmt"
	"math/rand"
)

// Quantile levels emitted by the three output heads, in order.
var Levels = [3]float64{0.1, 0.5, 0.9}

// Quantiles is one prediction on the normalized price scale. Ordering is a
// learned property, not a guarantee; callers repair it at serve time.
type Quantiles struct {
	Q10 float64
	Q50 float64
	Q90 float64
}

// Config describes a network shape. NumAssets fixes the embedding cardinality
// and must equal the paired registry's asset count.
type Config struct {
	Arch      string `json:"arch"`
	SeqLen    int    `json:"seq_len"`
	NumAssets int    `json:"num_assets"`
	StepDim   int    `json:"step_dim"`
	EmbedDim  int    `json:"embed_dim"`
	Hidden1   int    `json:"hidden1"`
	Hidden2   int    `json:"hidden2"`
}

// DefaultConfig returns the production shape for a given universe size.
func DefaultConfig(seqLen, numAssets int) Config {
	return Config{
		Arch:      ArchAttention,
		SeqLen:    seqLen,
		NumAssets: numAssets,
		StepDim:   32,
		EmbedDim:  16,
		Hidden1:   64,
		Hidden2:   32,
	}
}

// Network is the shared quantile model: one function
// (window, assetIndex) -> (q10, q50, q90) across all assets. Forward is pure
// and safe for concurrent use; Backward accumulates gradients and is meant
// for the single-threaded training loop only.
type Network interface {
	Config() Config

	// Forward returns normalized-scale quantiles for a window of exactly
	// Config().SeqLen values.
	Forward(window []float64, assetIndex int) Quantiles

	// Backward runs a forward pass, accumulates gradients of the summed
	// pinball loss into the gradient buffer, and returns the example loss.
	Backward(window []float64, assetIndex int, target float64) float64

	// Params and Grads expose flat parameter and gradient buffers for the
	// optimizer. ZeroGrads clears the gradient buffer between batches.
	Params() []float64
	Grads() []float64
	ZeroGrads()

	// SnapshotParams copies the current parameters; RestoreParams loads a
	// snapshot back (checkpoint restore).
	SnapshotParams() []float64
	RestoreParams(params []float64) error
}

// Builder constructs a network for an architecture name.
type Builder func(cfg Config, rng *rand.Rand) Network

const ArchAttention = "attention"

var builders = map[string]Builder{
	ArchAttention: newAttentionNet,
}

// New builds a freshly initialized network for cfg.Arch.
func New(cfg Config, seed int64) (Network, error) {
	build, ok := builders[cfg.Arch]
	if !ok {
		return nil, fmt.Errorf("unknown architecture %q", cfg.Arch)
	}
	if cfg.SeqLen <= 0 || cfg.NumAssets <= 0 {
		return nil, fmt.Errorf("invalid config: seq_len=%d num_assets=%d", cfg.SeqLen, cfg.NumAssets)
	}
	return build(cfg, rand.New(rand.NewSource(seed))), nil
}

// Load rebuilds a network from persisted config and parameters.
func Load(cfg Config, params []float64) (Network, error) {
	n, err := New(cfg, 1)
	if err != nil {
		return nil, err
	}
	if err := n.RestoreParams(params); err != nil {
		return nil, err
	}
	return n, nil
}
