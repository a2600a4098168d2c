package registry

import (
	"fmt"
	"sort"

	"PriceCast/internal/domain/models"
)

// Registry owns the asset identifier<->index mapping used by the model's
// embedding table, and one fitted scaler per asset. Indices are dense,
// zero-based, and assigned in first-seen order; once a model has been trained
// against a registry the assignment must never change.
type Registry struct {
	seqLen  int
	indices map[string]int
	ids     []string
	scalers map[string]RobustScaler
}

// New creates an empty registry. seqLen is the model's input window length;
// registration requires at least seqLen+1 prices so the asset can contribute
// one (window, target) pair.
func New(seqLen int) *Registry {
	return &Registry{
		seqLen:  seqLen,
		indices: make(map[string]int),
		scalers: make(map[string]RobustScaler),
	}
}

// Register assigns the next unused index to an unseen asset and fits its
// scaler over the given history. Re-registering refits the scaler but keeps
// the existing index.
func (r *Registry) Register(assetID string, prices []float64) (int, error) {
	if len(prices) < r.seqLen+1 {
		return 0, fmt.Errorf("register %s: %d rows, need %d: %w",
			assetID, len(prices), r.seqLen+1, models.ErrInsufficientHistory)
	}

	idx, seen := r.indices[assetID]
	if !seen {
		idx = len(r.ids)
		r.indices[assetID] = idx
		r.ids = append(r.ids, assetID)
	}
	r.scalers[assetID] = FitRobustScaler(prices)
	return idx, nil
}

// Index returns the dense index for an asset identifier.
func (r *Registry) Index(assetID string) (int, error) {
	idx, ok := r.indices[assetID]
	if !ok {
		return 0, fmt.Errorf("index %s: %w", assetID, models.ErrUnknownAsset)
	}
	return idx, nil
}

// Has reports whether the identifier was ever registered.
func (r *Registry) Has(assetID string) bool {
	_, ok := r.indices[assetID]
	return ok
}

// Len returns the number of registered assets, i.e. the embedding cardinality
// a paired model must have.
func (r *Registry) Len() int { return len(r.ids) }

// Assets returns identifiers sorted alphabetically for stable listings.
func (r *Registry) Assets() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	sort.Strings(out)
	return out
}

// AssetAt returns the identifier owning a dense index.
func (r *Registry) AssetAt(index int) (string, error) {
	if index < 0 || index >= len(r.ids) {
		return "", fmt.Errorf("asset index %d: %w", index, models.ErrUnknownAsset)
	}
	return r.ids[index], nil
}

// SeqLen returns the window length the registry was built for.
func (r *Registry) SeqLen() int { return r.seqLen }

// Normalize maps raw prices to the asset's normalized scale.
func (r *Registry) Normalize(assetID string, prices []float64) ([]float64, error) {
	s, ok := r.scalers[assetID]
	if !ok {
		return nil, fmt.Errorf("normalize %s: %w", assetID, models.ErrUnknownAsset)
	}
	return s.Transform(prices), nil
}

// Denormalize maps normalized values back to raw prices.
func (r *Registry) Denormalize(assetID string, values []float64) ([]float64, error) {
	s, ok := r.scalers[assetID]
	if !ok {
		return nil, fmt.Errorf("denormalize %s: %w", assetID, models.ErrUnknownAsset)
	}
	return s.Inverse(values), nil
}

// Scaler returns the fitted scaler for an asset.
func (r *Registry) Scaler(assetID string) (RobustScaler, error) {
	s, ok := r.scalers[assetID]
	if !ok {
		return RobustScaler{}, fmt.Errorf("scaler %s: %w", assetID, models.ErrUnknownAsset)
	}
	return s, nil
}

// AssetEntry is the serialized form of one registry row.
type AssetEntry struct {
	ID     string       `json:"id"`
	Index  int          `json:"index"`
	Scaler RobustScaler `json:"scaler"`
}

// Snapshot is the serializable registry state, persisted inside the model
// artifact so the pair is versioned as a unit.
type Snapshot struct {
	SeqLen int          `json:"seq_len"`
	Assets []AssetEntry `json:"assets"`
}

// Snapshot captures the registry in index order.
func (r *Registry) Snapshot() Snapshot {
	entries := make([]AssetEntry, len(r.ids))
	for i, id := range r.ids {
		entries[i] = AssetEntry{ID: id, Index: i, Scaler: r.scalers[id]}
	}
	return Snapshot{SeqLen: r.seqLen, Assets: entries}
}

// FromSnapshot rebuilds a registry, rejecting snapshots whose indices are not
// dense and zero-based.
func FromSnapshot(s Snapshot) (*Registry, error) {
	r := New(s.SeqLen)
	r.ids = make([]string, len(s.Assets))
	for _, e := range s.Assets {
		if e.Index < 0 || e.Index >= len(s.Assets) {
			return nil, fmt.Errorf("registry snapshot: index %d out of range for %q", e.Index, e.ID)
		}
		if r.ids[e.Index] != "" {
			return nil, fmt.Errorf("registry snapshot: duplicate index %d", e.Index)
		}
		r.ids[e.Index] = e.ID
		r.indices[e.ID] = e.Index
		r.scalers[e.ID] = e.Scaler
	}
	return r, nil
}
