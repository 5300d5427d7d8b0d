package comb

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-combbank/dsp/core"
	"github.com/cwbudde/algo-combbank/dsp/delay"
	"github.com/cwbudde/algo-combbank/dsp/filter/onepole"
	"github.com/cwbudde/algo-combbank/dsp/internal/contract"
)

// ErrInvalidFrequency is returned when a resonance frequency is not a
// finite positive number.
var ErrInvalidFrequency = errors.New("comb: frequency must be finite and > 0")

// Filter is a feedback comb filter with a one-pole lowpass in the loop and a
// tanh soft clip on the recirculated signal.
type Filter struct {
	active         bool
	feedback       float64
	level          float64
	frequencyHz    float64
	dampingHz      float64
	dampingRatio   float64
	minFrequencyHz float64
	mode           OutputMode

	sampleRate   float64
	delaySamples int
	lines        []delay.Ring
	damping      []onepole.Lowpass
	prepared     bool
}

// New creates an unprepared comb filter. Call Prepare before processing.
func New(opts ...Option) (*Filter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Filter{
		active:         cfg.active,
		feedback:       cfg.feedback,
		level:          cfg.level,
		frequencyHz:    cfg.frequencyHz,
		dampingHz:      cfg.dampingHz,
		dampingRatio:   cfg.dampingRatio,
		minFrequencyHz: cfg.minFrequencyHz,
		mode:           cfg.mode,
	}, nil
}

// Prepare sizes per-channel delay lines and damping filters for sampleRate
// and clears all history. It allocates and must not be called from the
// audio thread.
func (f *Filter) Prepare(sampleRate float64, channels int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("comb: sample rate must be > 0 and finite: %f", sampleRate)
	}
	if channels <= 0 {
		return fmt.Errorf("comb: channels must be > 0: %d", channels)
	}

	if d := math.Ceil(sampleRate / f.minFrequencyHz); d > MaxDelaySamples {
		return fmt.Errorf("comb: min frequency %g Hz needs %g samples of delay at %g Hz, limit is %d",
			f.minFrequencyHz, d, sampleRate, MaxDelaySamples)
	}
	// Capacity depends only on the format and the minimum frequency, so a
	// repeated Prepare sizes the lines the same whatever pitch was last set.
	capacity := LongestDelay(sampleRate, f.minFrequencyHz) + 1

	if cap(f.lines) < channels {
		f.lines = make([]delay.Ring, channels)
		f.damping = make([]onepole.Lowpass, channels)
	}
	f.lines = f.lines[:channels]
	f.damping = f.damping[:channels]

	f.sampleRate = sampleRate
	cutoff := f.dampingCutoff()
	for ch := range f.lines {
		if err := f.lines[ch].Resize(capacity); err != nil {
			return fmt.Errorf("comb: %w", err)
		}
		if err := f.damping[ch].Prepare(sampleRate, cutoff); err != nil {
			return fmt.Errorf("comb: %w", err)
		}
	}

	f.updateDelay()
	f.prepared = true
	return nil
}

// Reset clears delay history and damping state on every channel. Parameters
// are kept.
func (f *Filter) Reset() {
	for ch := range f.lines {
		f.lines[ch].Clear()
		f.damping[ch].Reset()
	}
}

// ProcessSample runs one sample of channel ch through the comb.
//
// A bypassed filter returns 0 and leaves its state untouched, so re-enabling
// it resumes from the frozen history.
func (f *Filter) ProcessSample(ch int, x float64) float64 {
	if !f.active {
		return 0
	}
	if !f.prepared || ch < 0 || ch >= len(f.lines) {
		if contract.Enabled {
			contract.Failf("comb: process on channel %d with %d prepared", ch, len(f.lines))
		}
		return 0
	}

	line := &f.lines[ch]
	delayed := f.damping[ch].ProcessSample(line.Read(f.delaySamples))
	line.Push(saturate(x + f.feedback*delayed))

	if f.mode == OutputFeedForwardSum {
		return (x + delayed) * f.level
	}
	return delayed * f.level
}

// ProcessBlock processes in into out for channel ch. in and out may alias.
// Only min(len(in), len(out)) samples are written.
func (f *Filter) ProcessBlock(ch int, in, out []float64) {
	n := min(len(in), len(out))
	if !f.active {
		core.Zero(out[:n])
		return
	}
	for i := 0; i < n; i++ {
		out[i] = f.ProcessSample(ch, in[i])
	}
}

// SetActive enables or bypasses the filter.
func (f *Filter) SetActive(active bool) {
	f.active = active
}

// SetFeedback sets the feedback gain, clamped to [0, 1]. NaN is rejected.
func (f *Filter) SetFeedback(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("comb: feedback must not be NaN")
	}
	f.feedback = core.Clamp(v, 0, 1)
	return nil
}

// SetLevel sets the output level, clamped to [0, 1]. NaN is rejected.
func (f *Filter) SetLevel(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("comb: level must not be NaN")
	}
	f.level = core.Clamp(v, 0, 1)
	return nil
}

// SetFrequency retunes the comb. The delay is recomputed immediately when
// prepared; history is kept.
func (f *Filter) SetFrequency(hz float64) error {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return fmt.Errorf("%w: %f", ErrInvalidFrequency, hz)
	}
	f.frequencyHz = hz
	if !f.prepared {
		return nil
	}

	f.updateDelay()
	if f.dampingRatio > 0 {
		return f.retuneDamping()
	}
	return nil
}

// SetDelaySamples overrides the delay computed from the frequency. n is
// clamped to [1, capacity-1]. The override lasts until the next SetFrequency
// or Prepare.
func (f *Filter) SetDelaySamples(n int) {
	if !f.prepared {
		return
	}
	f.delaySamples = min(max(n, 1), f.lines[0].Len()-1)
}

// SetDampingCutoff sets the fixed feedback lowpass cutoff in Hz. It has no
// audible effect while damping tracking is enabled.
func (f *Filter) SetDampingCutoff(hz float64) error {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return fmt.Errorf("comb: damping cutoff must be finite and > 0: %f", hz)
	}
	f.dampingHz = hz
	if !f.prepared {
		return nil
	}
	return f.retuneDamping()
}

// SetDampingTracking sets the ratio of damping cutoff to resonance
// frequency. 0 disables tracking.
func (f *Filter) SetDampingTracking(ratio float64) error {
	if ratio < 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Errorf("comb: damping ratio must be finite and >= 0: %f", ratio)
	}
	f.dampingRatio = ratio
	if !f.prepared {
		return nil
	}
	return f.retuneDamping()
}

// SetOutputMode selects the output formula.
func (f *Filter) SetOutputMode(mode OutputMode) error {
	if mode != OutputResonator && mode != OutputFeedForwardSum {
		return fmt.Errorf("comb: invalid output mode: %d", mode)
	}
	f.mode = mode
	return nil
}

// Active reports whether the filter is enabled.
func (f *Filter) Active() bool { return f.active }

// Feedback returns the feedback gain.
func (f *Filter) Feedback() float64 { return f.feedback }

// Level returns the output level.
func (f *Filter) Level() float64 { return f.level }

// MinFrequency returns the lowest resonance the delay lines are sized for.
func (f *Filter) MinFrequency() float64 { return f.minFrequencyHz }

// Frequency returns the requested resonance frequency in Hz.
func (f *Filter) Frequency() float64 { return f.frequencyHz }

// DampingCutoff returns the effective feedback lowpass cutoff in Hz.
func (f *Filter) DampingCutoff() float64 { return f.dampingCutoff() }

// DampingTracking returns the damping tracking ratio, 0 when disabled.
func (f *Filter) DampingTracking() float64 { return f.dampingRatio }

// OutputMode returns the output formula.
func (f *Filter) OutputMode() OutputMode { return f.mode }

// DelaySamples returns the current delay in samples, 0 before Prepare.
func (f *Filter) DelaySamples() int { return f.delaySamples }

// SampleRate returns the prepared sample rate, 0 before Prepare.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// Channels returns the number of prepared channels.
func (f *Filter) Channels() int { return len(f.lines) }

// Prepared reports whether Prepare has succeeded.
func (f *Filter) Prepared() bool { return f.prepared }

// EffectiveFrequency returns the resonance the loop actually produces. One
// pass around the loop takes DelaySamples()+1 samples.
func (f *Filter) EffectiveFrequency() float64 {
	if !f.prepared {
		return 0
	}
	return f.sampleRate / float64(f.delaySamples+1)
}

// DecaySeconds estimates the time for the small-signal tail to fall by
// 60 dB. It returns +Inf for feedback 1.
func (f *Filter) DecaySeconds() float64 {
	if !f.prepared {
		return 0
	}
	return DecayTime(f.sampleRate, f.delaySamples, f.feedback)
}

func (f *Filter) dampingCutoff() float64 {
	if f.dampingRatio > 0 {
		return f.frequencyHz * f.dampingRatio
	}
	return f.dampingHz
}

func (f *Filter) retuneDamping() error {
	cutoff := f.dampingCutoff()
	for ch := range f.damping {
		if err := f.damping[ch].SetCutoff(cutoff); err != nil {
			return fmt.Errorf("comb: %w", err)
		}
	}
	return nil
}

func (f *Filter) updateDelay() {
	maxDelay := 1
	if len(f.lines) > 0 {
		maxDelay = f.lines[0].Len() - 1
	}
	f.delaySamples = min(max(DelaySamples(f.sampleRate, f.frequencyHz), 1), maxDelay)
}
