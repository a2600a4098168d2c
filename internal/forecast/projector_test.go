package forecast

import (
	"errors"
	"math"
	"testing"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/model"
	"PriceCast/internal/registry"
)

func TestRepairFloor(t *testing.T) {
	p := DefaultPolicy()
	q10, q50, q90 := p.Repair(-5, -1, -0.5, 0)
	for _, q := range []float64{q10, q50, q90} {
		if q < p.PriceFloor {
			t.Fatalf("quantile %v below floor %v", q, p.PriceFloor)
		}
	}
}

func TestRepairOrderingMargins(t *testing.T) {
	p := DefaultPolicy()

	// inverted ordering gets forced back around the median
	q10, q50, q90 := p.Repair(120, 100, 90, 100)
	if q10 > p.LowerMargin*q50 {
		t.Fatalf("q10 = %v, want <= %v", q10, p.LowerMargin*q50)
	}
	if q90 < p.UpperMargin*q50 {
		t.Fatalf("q90 = %v, want >= %v", q90, p.UpperMargin*q50)
	}
	if !(q10 <= q50 && q50 <= q90) {
		t.Fatalf("ordering violated: %v %v %v", q10, q50, q90)
	}

	// a too-narrow band is widened to the margins
	q10, q50, q90 = p.Repair(99.9, 100, 100.1, 100)
	if math.Abs(q10-95) > 1e-9 || math.Abs(q90-105) > 1e-9 {
		t.Fatalf("margins not applied: q10=%v q90=%v", q10, q90)
	}
}

func TestRepairMoveCap(t *testing.T) {
	p := DefaultPolicy()
	current := 200.0
	q10, q50, q90 := p.Repair(10, 500, 900, current)

	for _, q := range []float64{q10, q50, q90} {
		if move := math.Abs(q-current) / current; move > p.MaxMovePct+1e-12 {
			t.Fatalf("move %v exceeds cap %v", move, p.MaxMovePct)
		}
	}
	if !(q10 <= q50 && q50 <= q90) {
		t.Fatalf("ordering violated after cap: %v %v %v", q10, q50, q90)
	}
}

func TestClampHorizon(t *testing.T) {
	p := DefaultPolicy()
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 15: 15, 30: 30, 45: 30}
	for in, want := range cases {
		if got := p.ClampHorizon(in); got != want {
			t.Fatalf("clamp(%d) = %d, want %d", in, got, want)
		}
	}
	if got := p.HorizonScale(45); math.Abs(got-math.Sqrt(30)) > 1e-12 {
		t.Fatalf("scale(45) = %v, want sqrt(30)", got)
	}
}

func testProjector(t *testing.T) (*Projector, []float64) {
	t.Helper()
	const seqLen = 4
	reg := registry.New(seqLen)
	prices := []float64{100, 102, 101, 104, 103, 106, 105, 108}
	if _, err := reg.Register("reliance", prices); err != nil {
		t.Fatalf("register: %v", err)
	}

	cfg := model.Config{
		Arch: model.ArchAttention, SeqLen: seqLen, NumAssets: 1,
		StepDim: 3, EmbedDim: 2, Hidden1: 4, Hidden2: 3,
	}
	net, err := model.New(cfg, 9)
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	return NewProjector(net, reg, DefaultPolicy()), prices
}

func TestForecastInvariants(t *testing.T) {
	proj, prices := testProjector(t)

	for _, h := range []int{1, 7, 30, 45} {
		f, err := proj.Forecast("reliance", prices, h)
		if err != nil {
			t.Fatalf("forecast h=%d: %v", h, err)
		}
		if !(f.Q10 <= f.Q50 && f.Q50 <= f.Q90) {
			t.Fatalf("h=%d ordering violated: %+v", h, f)
		}
		cur := f.CurrentPrice
		for _, q := range []float64{f.Q10, f.Q50, f.Q90} {
			if q < DefaultPolicy().PriceFloor {
				t.Fatalf("h=%d quantile below floor: %+v", h, f)
			}
			if math.Abs(q-cur)/cur > 0.5+1e-12 {
				t.Fatalf("h=%d move cap violated: %+v", h, f)
			}
		}
	}
}

func TestForecastIdempotent(t *testing.T) {
	proj, prices := testProjector(t)
	a, err := proj.Forecast("reliance", prices, 5)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	b, err := proj.Forecast("reliance", prices, 5)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if a.Q10 != b.Q10 || a.Q50 != b.Q50 || a.Q90 != b.Q90 {
		t.Fatalf("forecast not idempotent: %+v vs %+v", a, b)
	}
}

// stubNet returns fixed normalized quantiles, so projection behavior can be
// verified without any trained model.
type stubNet struct {
	cfg model.Config
	q   model.Quantiles
}

func (s *stubNet) Config() model.Config                         { return s.cfg }
func (s *stubNet) Forward([]float64, int) model.Quantiles       { return s.q }
func (s *stubNet) Backward([]float64, int, float64) float64     { return 0 }
func (s *stubNet) Params() []float64                            { return nil }
func (s *stubNet) Grads() []float64                             { return nil }
func (s *stubNet) ZeroGrads()                                   {}
func (s *stubNet) SnapshotParams() []float64                    { return nil }
func (s *stubNet) RestoreParams([]float64) error                { return nil }

func TestForecastHorizonWidensInterval(t *testing.T) {
	const seqLen = 4
	reg := registry.New(seqLen)
	prices := []float64{100, 101, 102, 103, 104, 105, 106, 108}
	if _, err := reg.Register("reliance", prices); err != nil {
		t.Fatalf("register: %v", err)
	}

	// symmetric band around the current price on the normalized scale
	norm, _ := reg.Normalize("reliance", prices)
	cur := norm[len(norm)-1]
	net := &stubNet{
		cfg: model.Config{SeqLen: seqLen, NumAssets: 1},
		q:   model.Quantiles{Q10: cur - 2, Q50: cur, Q90: cur + 2},
	}
	proj := NewProjector(net, reg, DefaultPolicy())

	one, err := proj.Forecast("reliance", prices, 1)
	if err != nil {
		t.Fatalf("forecast h=1: %v", err)
	}
	week, err := proj.Forecast("reliance", prices, 7)
	if err != nil {
		t.Fatalf("forecast h=7: %v", err)
	}
	if week.Q90-week.Q10 < one.Q90-one.Q10 {
		t.Fatalf("interval narrowed with horizon: h1=%v h7=%v",
			one.Q90-one.Q10, week.Q90-week.Q10)
	}
}

func TestForecastRepairsInvertedModelOutput(t *testing.T) {
	const seqLen = 4
	reg := registry.New(seqLen)
	prices := []float64{50, 51, 52, 53, 54, 55}
	if _, err := reg.Register("crudeoil", prices); err != nil {
		t.Fatalf("register: %v", err)
	}

	norm, _ := reg.Normalize("crudeoil", prices)
	cur := norm[len(norm)-1]
	// deliberately inverted quantiles
	net := &stubNet{
		cfg: model.Config{SeqLen: seqLen, NumAssets: 1},
		q:   model.Quantiles{Q10: cur + 1, Q50: cur, Q90: cur - 1},
	}
	proj := NewProjector(net, reg, DefaultPolicy())

	f, err := proj.Forecast("crudeoil", prices, 1)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if !(f.Q10 <= f.Q50 && f.Q50 <= f.Q90) {
		t.Fatalf("inverted output not repaired: %+v", f)
	}
}

func TestForecastHorizonClampedEquivalence(t *testing.T) {
	proj, prices := testProjector(t)
	at30, err := proj.Forecast("reliance", prices, 30)
	if err != nil {
		t.Fatalf("forecast h=30: %v", err)
	}
	at45, err := proj.Forecast("reliance", prices, 45)
	if err != nil {
		t.Fatalf("forecast h=45: %v", err)
	}
	if at30.Q10 != at45.Q10 || at30.Q50 != at45.Q50 || at30.Q90 != at45.Q90 {
		t.Fatalf("clamped horizon differs: %+v vs %+v", at30, at45)
	}
	if at45.HorizonDays != 30 {
		t.Fatalf("horizon = %d, want clamped 30", at45.HorizonDays)
	}
}

func TestForecastErrors(t *testing.T) {
	proj, prices := testProjector(t)

	if _, err := proj.Forecast("unknown_id", prices, 5); !errors.Is(err, models.ErrUnknownAsset) {
		t.Fatalf("err = %v, want ErrUnknownAsset", err)
	}
	if _, err := proj.Forecast("reliance", prices[:2], 5); !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("err = %v, want ErrInsufficientHistory", err)
	}
}
