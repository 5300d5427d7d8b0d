// Package combbank is the host-facing comb filter bank effect.
//
// An Engine chains input gain, a comb.Bank, a dry/wet mix.Mixer and an
// optional first-order tone stage. Hosts drive it from one audio goroutine
// through ProcessBlock or ProcessInterleaved; any number of control
// goroutines may call the setters concurrently.
//
// Setters never touch DSP state. Each one publishes a new immutable Snapshot
// and the audio goroutine applies the latest Snapshot at the start of the
// next block, so a block is always processed with one consistent parameter
// set.
package combbank
