package model

import (
	"fmt"
	"math"
	"math/rand"
)

// attentionNet is a small additive-attention sequence encoder. Each scalar
// price step is projected to StepDim with a learned positional embedding and
// tanh, an attention head pools the steps into one vector, the pooled vector
// is concatenated with the asset embedding, and two ReLU layers feed three
// independent linear quantile heads.
type attentionNet struct {
	cfg Config

	params []float64
	grads  []float64

	// views into params / grads, carved out in layout order
	emb, gEmb     []float64 // NumAssets x EmbedDim
	wp, gWp       []float64 // StepDim
	bp, gBp       []float64 // StepDim
	pos, gPos     []float64 // SeqLen x StepDim
	wa, gWa       []float64 // StepDim x StepDim
	ba, gBa       []float64 // StepDim
	va, gVa       []float64 // StepDim
	w1, gW1       []float64 // Hidden1 x (StepDim+EmbedDim)
	b1, gB1       []float64 // Hidden1
	w2, gW2       []float64 // Hidden2 x Hidden1
	b2, gB2       []float64 // Hidden2
	heads, gHeads []float64 // 3 x Hidden2
	headB, gHeadB []float64 // 3
}

func newAttentionNet(cfg Config, rng *rand.Rand) Network {
	n := &attentionNet{cfg: cfg}

	total := cfg.NumAssets*cfg.EmbedDim +
		cfg.StepDim + cfg.StepDim +
		cfg.SeqLen*cfg.StepDim +
		cfg.StepDim*cfg.StepDim + cfg.StepDim + cfg.StepDim +
		cfg.Hidden1*(cfg.StepDim+cfg.EmbedDim) + cfg.Hidden1 +
		cfg.Hidden2*cfg.Hidden1 + cfg.Hidden2 +
		3*cfg.Hidden2 + 3

	n.params = make([]float64, total)
	n.grads = make([]float64, total)

	off := 0
	carve := func(size int) ([]float64, []float64) {
		p := n.params[off : off+size]
		g := n.grads[off : off+size]
		off += size
		return p, g
	}

	n.emb, n.gEmb = carve(cfg.NumAssets * cfg.EmbedDim)
	n.wp, n.gWp = carve(cfg.StepDim)
	n.bp, n.gBp = carve(cfg.StepDim)
	n.pos, n.gPos = carve(cfg.SeqLen * cfg.StepDim)
	n.wa, n.gWa = carve(cfg.StepDim * cfg.StepDim)
	n.ba, n.gBa = carve(cfg.StepDim)
	n.va, n.gVa = carve(cfg.StepDim)
	n.w1, n.gW1 = carve(cfg.Hidden1 * (cfg.StepDim + cfg.EmbedDim))
	n.b1, n.gB1 = carve(cfg.Hidden1)
	n.w2, n.gW2 = carve(cfg.Hidden2 * cfg.Hidden1)
	n.b2, n.gB2 = carve(cfg.Hidden2)
	n.heads, n.gHeads = carve(3 * cfg.Hidden2)
	n.headB, n.gHeadB = carve(3)

	initNormal(rng, n.emb, 0.05)
	initNormal(rng, n.wp, 0.5)
	initNormal(rng, n.pos, 0.05)
	initNormal(rng, n.wa, 1/math.Sqrt(float64(cfg.StepDim)))
	initNormal(rng, n.va, 1/math.Sqrt(float64(cfg.StepDim)))
	initNormal(rng, n.w1, 1/math.Sqrt(float64(cfg.StepDim+cfg.EmbedDim)))
	initNormal(rng, n.w2, 1/math.Sqrt(float64(cfg.Hidden1)))
	initNormal(rng, n.heads, 1/math.Sqrt(float64(cfg.Hidden2)))

	return n
}

func initNormal(rng *rand.Rand, dst []float64, std float64) {
	for i := range dst {
		dst[i] = rng.NormFloat64() * std
	}
}

func (n *attentionNet) Config() Config { return n.cfg }

func (n *attentionNet) Params() []float64 { return n.params }
func (n *attentionNet) Grads() []float64  { return n.grads }

func (n *attentionNet) ZeroGrads() {
	for i := range n.grads {
		n.grads[i] = 0
	}
}

func (n *attentionNet) SnapshotParams() []float64 {
	out := make([]float64, len(n.params))
	copy(out, n.params)
	return out
}

func (n *attentionNet) RestoreParams(params []float64) error {
	if len(params) != len(n.params) {
		return fmt.Errorf("parameter count %d does not match network size %d", len(params), len(n.params))
	}
	copy(n.params, params)
	return nil
}

// pass holds every intermediate value one forward pass produces, so Backward
// can reuse them. Allocated per call: Forward stays pure and concurrency-safe.
type pass struct {
	h     []float64 // SeqLen x StepDim, post-tanh step features
	u     []float64 // SeqLen x StepDim, attention tanh activations
	alpha []float64 // SeqLen, attention weights
	c     []float64 // StepDim, pooled context
	d1    []float64 // Hidden1, post-ReLU
	d2    []float64 // Hidden2, post-ReLU
	q     [3]float64
}

func (n *attentionNet) forward(window []float64, assetIndex int) *pass {
	cfg := n.cfg
	L, D, E := cfg.SeqLen, cfg.StepDim, cfg.EmbedDim

	p := &pass{
		h:     make([]float64, L*D),
		u:     make([]float64, L*D),
		alpha: make([]float64, L),
		c:     make([]float64, D),
		d1:    make([]float64, cfg.Hidden1),
		d2:    make([]float64, cfg.Hidden2),
	}

	// per-step projection with positional embedding
	for t := 0; t < L; t++ {
		x := window[t]
		for i := 0; i < D; i++ {
			p.h[t*D+i] = math.Tanh(n.wp[i]*x + n.pos[t*D+i] + n.bp[i])
		}
	}

	// additive attention scores
	scores := make([]float64, L)
	for t := 0; t < L; t++ {
		e := 0.0
		for i := 0; i < D; i++ {
			s := n.ba[i]
			for j := 0; j < D; j++ {
				s += n.wa[i*D+j] * p.h[t*D+j]
			}
			ut := math.Tanh(s)
			p.u[t*D+i] = ut
			e += n.va[i] * ut
		}
		scores[t] = e
	}

	// softmax over time steps
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	sum := 0.0
	for t := 0; t < L; t++ {
		p.alpha[t] = math.Exp(scores[t] - maxScore)
		sum += p.alpha[t]
	}
	for t := 0; t < L; t++ {
		p.alpha[t] /= sum
		for i := 0; i < D; i++ {
			p.c[i] += p.alpha[t] * p.h[t*D+i]
		}
	}

	// dense head over [context ; asset embedding]
	emb := n.emb[assetIndex*E : assetIndex*E+E]
	zDim := D + E
	for i := 0; i < cfg.Hidden1; i++ {
		s := n.b1[i]
		for j := 0; j < D; j++ {
			s += n.w1[i*zDim+j] * p.c[j]
		}
		for j := 0; j < E; j++ {
			s += n.w1[i*zDim+D+j] * emb[j]
		}
		if s > 0 {
			p.d1[i] = s
		}
	}
	for i := 0; i < cfg.Hidden2; i++ {
		s := n.b2[i]
		for j := 0; j < cfg.Hidden1; j++ {
			s += n.w2[i*cfg.Hidden1+j] * p.d1[j]
		}
		if s > 0 {
			p.d2[i] = s
		}
	}
	for k := 0; k < 3; k++ {
		s := n.headB[k]
		for j := 0; j < cfg.Hidden2; j++ {
			s += n.heads[k*cfg.Hidden2+j] * p.d2[j]
		}
		p.q[k] = s
	}
	return p
}

func (n *attentionNet) Forward(window []float64, assetIndex int) Quantiles {
	p := n.forward(window, assetIndex)
	return Quantiles{Q10: p.q[0], Q50: p.q[1], Q90: p.q[2]}
}

func (n *attentionNet) Backward(window []float64, assetIndex int, target float64) float64 {
	cfg := n.cfg
	L, D, E := cfg.SeqLen, cfg.StepDim, cfg.EmbedDim
	zDim := D + E

	p := n.forward(window, assetIndex)

	loss := 0.0
	var dq [3]float64
	for k := 0; k < 3; k++ {
		loss += Pinball(Levels[k], target, p.q[k])
		dq[k] = PinballGrad(Levels[k], target, p.q[k])
	}

	// heads -> d2
	dd2 := make([]float64, cfg.Hidden2)
	for k := 0; k < 3; k++ {
		n.gHeadB[k] += dq[k]
		for j := 0; j < cfg.Hidden2; j++ {
			n.gHeads[k*cfg.Hidden2+j] += dq[k] * p.d2[j]
			dd2[j] += dq[k] * n.heads[k*cfg.Hidden2+j]
		}
	}

	// d2 -> d1 through ReLU
	dd1 := make([]float64, cfg.Hidden1)
	for i := 0; i < cfg.Hidden2; i++ {
		if p.d2[i] <= 0 {
			continue
		}
		g := dd2[i]
		n.gB2[i] += g
		for j := 0; j < cfg.Hidden1; j++ {
			n.gW2[i*cfg.Hidden1+j] += g * p.d1[j]
			dd1[j] += g * n.w2[i*cfg.Hidden1+j]
		}
	}

	// d1 -> [c ; emb] through ReLU
	dc := make([]float64, D)
	demb := make([]float64, E)
	emb := n.emb[assetIndex*E : assetIndex*E+E]
	for i := 0; i < cfg.Hidden1; i++ {
		if p.d1[i] <= 0 {
			continue
		}
		g := dd1[i]
		n.gB1[i] += g
		for j := 0; j < D; j++ {
			n.gW1[i*zDim+j] += g * p.c[j]
			dc[j] += g * n.w1[i*zDim+j]
		}
		for j := 0; j < E; j++ {
			n.gW1[i*zDim+D+j] += g * emb[j]
			demb[j] += g * n.w1[i*zDim+D+j]
		}
	}
	for j := 0; j < E; j++ {
		n.gEmb[assetIndex*E+j] += demb[j]
	}

	// attention pooling backward
	dh := make([]float64, L*D)
	dalpha := make([]float64, L)
	for t := 0; t < L; t++ {
		for i := 0; i < D; i++ {
			dalpha[t] += dc[i] * p.h[t*D+i]
			dh[t*D+i] += p.alpha[t] * dc[i]
		}
	}
	weighted := 0.0
	for t := 0; t < L; t++ {
		weighted += p.alpha[t] * dalpha[t]
	}
	for t := 0; t < L; t++ {
		de := p.alpha[t] * (dalpha[t] - weighted)
		if de == 0 {
			continue
		}
		for i := 0; i < D; i++ {
			ut := p.u[t*D+i]
			n.gVa[i] += de * ut
			dupre := de * n.va[i] * (1 - ut*ut)
			n.gBa[i] += dupre
			for j := 0; j < D; j++ {
				n.gWa[i*D+j] += dupre * p.h[t*D+j]
				dh[t*D+j] += n.wa[i*D+j] * dupre
			}
		}
	}

	// step projection backward
	for t := 0; t < L; t++ {
		x := window[t]
		for i := 0; i < D; i++ {
			ht := p.h[t*D+i]
			dpre := dh[t*D+i] * (1 - ht*ht)
			n.gWp[i] += dpre * x
			n.gPos[t*D+i] += dpre
			n.gBp[i] += dpre
		}
	}

	return loss
}
