package model

import "math"

// Adam is a standard Adam optimizer over a flat parameter buffer.
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64

	m []float64
	v []float64
	t int
}

// NewAdam creates an optimizer for a parameter buffer of size n.
func NewAdam(n int, lr float64) *Adam {
	return &Adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
		m:     make([]float64, n),
		v:     make([]float64, n),
	}
}

// LR returns the current learning rate.
func (o *Adam) LR() float64 { return o.lr }

// SetLR adjusts the learning rate (plateau decay).
func (o *Adam) SetLR(lr float64) { o.lr = lr }

// Step applies one bias-corrected Adam update in place.
func (o *Adam) Step(params, grads []float64) {
	o.t++
	c1 := 1 - math.Pow(o.beta1, float64(o.t))
	c2 := 1 - math.Pow(o.beta2, float64(o.t))
	for i := range params {
		g := grads[i]
		o.m[i] = o.beta1*o.m[i] + (1-o.beta1)*g
		o.v[i] = o.beta2*o.v[i] + (1-o.beta2)*g*g
		mHat := o.m[i] / c1
		vHat := o.v[i] / c2
		params[i] -= o.lr * mHat / (math.Sqrt(vHat) + o.eps)
	}
}
