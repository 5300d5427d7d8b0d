//go:build !fastmath

package comb

import "math"

// saturate is the bounded nonlinearity of the feedback path.
func saturate(x float64) float64 {
	return math.Tanh(x)
}
