package models

import "errors"

// Domain error taxonomy. Handlers map these onto HTTP statuses; the engine
// itself only wraps them with context via fmt.Errorf("...: %w", err).
var (
	// ErrUnknownAsset is returned when an asset identifier was never registered.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrInsufficientHistory is returned when a price series is too short to
	// fit a scaler or form a single input window.
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrArtifactMismatch is returned when a model's embedding table and its
	// paired registry disagree on asset cardinality. Fatal: refuse to serve.
	ErrArtifactMismatch = errors.New("model artifact does not match registry")

	// ErrNoUsableAssets is returned when a dataset build produced zero
	// training examples across every asset. Fatal: abort training.
	ErrNoUsableAssets = errors.New("no usable assets in dataset")
)
