package model

import (
	"math"
	"math/rand"
	"testing"
)

func tinyConfig() Config {
	return Config{
		Arch:      ArchAttention,
		SeqLen:    4,
		NumAssets: 2,
		StepDim:   3,
		EmbedDim:  2,
		Hidden1:   4,
		Hidden2:   3,
	}
}

func TestPinball(t *testing.T) {
	// under-prediction of q90 is penalized 9x harder than over-prediction
	if got := Pinball(0.9, 1.0, 0.0); math.Abs(got-0.9) > 1e-12 {
		t.Fatalf("pinball under = %v, want 0.9", got)
	}
	if got := Pinball(0.9, 0.0, 1.0); math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("pinball over = %v, want 0.1", got)
	}
	if got := Pinball(0.5, 2.0, 2.0); got != 0 {
		t.Fatalf("pinball exact = %v, want 0", got)
	}
}

func TestForwardDeterministic(t *testing.T) {
	n, err := New(tinyConfig(), 7)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	window := []float64{0.1, -0.2, 0.3, 0.05}
	a := n.Forward(window, 1)
	b := n.Forward(window, 1)
	if a != b {
		t.Fatalf("forward not deterministic: %+v vs %+v", a, b)
	}
}

func TestUnknownArchitecture(t *testing.T) {
	cfg := tinyConfig()
	cfg.Arch = "lstm"
	if _, err := New(cfg, 1); err == nil {
		t.Fatalf("expected error for unregistered architecture")
	}
}

func TestSnapshotRestore(t *testing.T) {
	n, _ := New(tinyConfig(), 3)
	window := []float64{0.4, 0.1, -0.3, 0.2}
	before := n.Forward(window, 0)

	snap := n.SnapshotParams()
	params := n.Params()
	for i := range params {
		params[i] += 0.5
	}
	if n.Forward(window, 0) == before {
		t.Fatalf("perturbation should change output")
	}
	if err := n.RestoreParams(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := n.Forward(window, 0); got != before {
		t.Fatalf("restored output = %+v, want %+v", got, before)
	}
	if err := n.RestoreParams(snap[:3]); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}

// exampleLoss recomputes the training objective from Forward only, for
// finite-difference comparison against Backward's analytic gradients.
func exampleLoss(n Network, window []float64, asset int, target float64) float64 {
	q := n.Forward(window, asset)
	return Pinball(Levels[0], target, q.Q10) +
		Pinball(Levels[1], target, q.Q50) +
		Pinball(Levels[2], target, q.Q90)
}

func TestBackwardMatchesNumericGradient(t *testing.T) {
	n, _ := New(tinyConfig(), 11)
	window := []float64{0.2, -0.1, 0.35, 0.08}
	asset := 1
	target := 5.0 // far from the fresh network's outputs, away from loss kinks

	n.ZeroGrads()
	loss := n.Backward(window, asset, target)
	if loss <= 0 {
		t.Fatalf("loss = %v, want > 0", loss)
	}

	params := n.Params()
	grads := n.Grads()
	rng := rand.New(rand.NewSource(1))
	const eps = 1e-6

	checked := 0
	for k := 0; k < 40; k++ {
		i := rng.Intn(len(params))
		orig := params[i]

		params[i] = orig + eps
		up := exampleLoss(n, window, asset, target)
		params[i] = orig - eps
		down := exampleLoss(n, window, asset, target)
		params[i] = orig

		numeric := (up - down) / (2 * eps)
		diff := math.Abs(numeric - grads[i])
		if diff > 1e-5 && diff > 1e-3*math.Abs(numeric) {
			t.Fatalf("grad mismatch at param %d: analytic=%v numeric=%v", i, grads[i], numeric)
		}
		checked++
	}
	if checked == 0 {
		t.Fatalf("no gradients checked")
	}
}

func TestAdamReducesQuadratic(t *testing.T) {
	params := []float64{5, -3}
	opt := NewAdam(len(params), 0.1)
	for step := 0; step < 500; step++ {
		grads := []float64{2 * params[0], 2 * params[1]}
		opt.Step(params, grads)
	}
	if math.Abs(params[0]) > 0.05 || math.Abs(params[1]) > 0.05 {
		t.Fatalf("adam did not converge: %v", params)
	}
}

func TestBackwardTrainsTowardTarget(t *testing.T) {
	n, _ := New(tinyConfig(), 5)
	opt := NewAdam(len(n.Params()), 0.01)
	window := []float64{0.3, 0.1, -0.2, 0.4}
	target := 1.5

	first := exampleLoss(n, window, 0, target)
	for i := 0; i < 300; i++ {
		n.ZeroGrads()
		n.Backward(window, 0, target)
		opt.Step(n.Params(), n.Grads())
	}
	last := exampleLoss(n, window, 0, target)
	if last >= first {
		t.Fatalf("loss did not decrease: first=%v last=%v", first, last)
	}
}
