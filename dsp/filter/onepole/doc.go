// Package onepole provides first-order IIR lowpass and highpass filters.
//
// The lowpass recurrence is
//
//	y[n] = a*y[n-1] + (1-a)*x[n],  a = exp(-2*pi*fc/fs)
//
// which is unconditionally stable for a in (0, 1). Coefficients are computed
// in Prepare or SetCutoff and never inside the sample loop.
package onepole
