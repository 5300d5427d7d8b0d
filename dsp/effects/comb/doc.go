// Package comb provides damped feedback comb filters and a bank that
// averages several of them.
//
// Each Filter keeps one delay.Ring and one onepole.Lowpass per channel. Per
// sample and channel it computes
//
//	delayed = lowpass(ring.Read(delaySamples))
//	ring.Push(tanh(x + feedback*delayed))
//	y = delayed * level
//
// The tanh soft clip bounds the recursive path, so the loop stays finite even
// at feedback 1. A bypassed filter returns silence without touching its
// history.
//
// Filters and banks are real-time safe after Prepare and not thread-safe.
package comb
