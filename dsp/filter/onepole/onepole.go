package onepole

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-combbank/dsp/core"
)

const (
	// maxCutoffRatio keeps the cutoff below Nyquist so a stays inside (0, 1).
	maxCutoffRatio = 0.49
	minCutoffHz    = 1e-3
)

// Lowpass is a single-channel first-order lowpass filter.
type Lowpass struct {
	sampleRate float64
	cutoffHz   float64
	a          float64
	y          float64
}

// NewLowpass returns a prepared lowpass.
func NewLowpass(sampleRate, cutoffHz float64) (*Lowpass, error) {
	lp := &Lowpass{}
	if err := lp.Prepare(sampleRate, cutoffHz); err != nil {
		return nil, err
	}
	return lp, nil
}

// Prepare computes the coefficient from sample rate and cutoff and clears
// the filter state.
func (lp *Lowpass) Prepare(sampleRate, cutoffHz float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("onepole: sample rate must be > 0: %f", sampleRate)
	}

	lp.sampleRate = sampleRate
	if err := lp.SetCutoff(cutoffHz); err != nil {
		return err
	}
	lp.Reset()
	return nil
}

// SetCutoff recomputes the coefficient for a new cutoff, keeping state.
// Cutoffs at or above Nyquist are clamped just below it.
func (lp *Lowpass) SetCutoff(cutoffHz float64) error {
	if cutoffHz <= 0 || !core.IsFinite(cutoffHz) {
		return fmt.Errorf("onepole: cutoff must be > 0: %f", cutoffHz)
	}
	if lp.sampleRate <= 0 {
		return fmt.Errorf("onepole: cutoff set before prepare")
	}

	cutoffHz = core.Clamp(cutoffHz, minCutoffHz, lp.sampleRate*maxCutoffRatio)
	lp.cutoffHz = cutoffHz
	lp.a = math.Exp(-2 * math.Pi * cutoffHz / lp.sampleRate)
	return nil
}

// ProcessSample filters one sample.
func (lp *Lowpass) ProcessSample(x float64) float64 {
	lp.y = core.FlushDenormals(lp.a*lp.y + (1-lp.a)*x)
	return lp.y
}

// ProcessBlock filters buf in place.
func (lp *Lowpass) ProcessBlock(buf []float64) {
	a, b := lp.a, 1-lp.a
	y := lp.y
	for i, x := range buf {
		y = core.FlushDenormals(a*y + b*x)
		buf[i] = y
	}
	lp.y = y
}

// Reset zeroes the filter state.
func (lp *Lowpass) Reset() {
	lp.y = 0
}

// Coefficient returns the feedback coefficient a.
func (lp *Lowpass) Coefficient() float64 { return lp.a }

// CutoffHz returns the effective cutoff in Hz.
func (lp *Lowpass) CutoffHz() float64 { return lp.cutoffHz }

// SampleRate returns the sample rate in Hz.
func (lp *Lowpass) SampleRate() float64 { return lp.sampleRate }

// Highpass is the first-order complement of Lowpass: x - lowpass(x).
type Highpass struct {
	lp Lowpass
}

// NewHighpass returns a prepared highpass.
func NewHighpass(sampleRate, cutoffHz float64) (*Highpass, error) {
	hp := &Highpass{}
	if err := hp.Prepare(sampleRate, cutoffHz); err != nil {
		return nil, err
	}
	return hp, nil
}

// Prepare computes the coefficient and clears the state.
func (hp *Highpass) Prepare(sampleRate, cutoffHz float64) error {
	return hp.lp.Prepare(sampleRate, cutoffHz)
}

// SetCutoff recomputes the coefficient, keeping state.
func (hp *Highpass) SetCutoff(cutoffHz float64) error {
	return hp.lp.SetCutoff(cutoffHz)
}

// ProcessSample filters one sample.
func (hp *Highpass) ProcessSample(x float64) float64 {
	return x - hp.lp.ProcessSample(x)
}

// ProcessBlock filters buf in place.
func (hp *Highpass) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = x - hp.lp.ProcessSample(x)
	}
}

// Reset zeroes the filter state.
func (hp *Highpass) Reset() { hp.lp.Reset() }

// Coefficient returns the feedback coefficient of the underlying lowpass.
func (hp *Highpass) Coefficient() float64 { return hp.lp.a }

// CutoffHz returns the effective cutoff in Hz.
func (hp *Highpass) CutoffHz() float64 { return hp.lp.cutoffHz }
