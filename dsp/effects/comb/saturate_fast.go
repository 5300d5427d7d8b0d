//go:build fastmath

package comb

import "github.com/meko-christian/algo-approx"

// saturateLimit is where tanh rounds to ±1 in float64.
const saturateLimit = 19.0

// saturate is the bounded nonlinearity of the feedback path, evaluated as
// tanh(x) = (e^2x - 1) / (e^2x + 1) with a fast exponential.
func saturate(x float64) float64 {
	if x >= saturateLimit {
		return 1
	}
	if x <= -saturateLimit {
		return -1
	}

	e := approx.FastExp(2 * x)
	return (e - 1) / (e + 1)
}
