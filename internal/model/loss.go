package model

// Pinball is the asymmetric quantile loss max(q*e, (q-1)*e) for error
// e = y - yhat. Minimizing it makes a head converge to the q-th conditional
// quantile instead of a mean estimate.
func Pinball(q, y, yhat float64) float64 {
	e := y - yhat
	if e >= 0 {
		return q * e
	}
	return (q - 1) * e
}

// PinballGrad is the subgradient of Pinball with respect to yhat.
func PinballGrad(q, y, yhat float64) float64 {
	if y-yhat >= 0 {
		return -q
	}
	return 1 - q
}
