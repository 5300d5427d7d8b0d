package comb

import (
	"fmt"
	"math"
)

const (
	defaultFeedback     = 0.5
	defaultLevel        = 0.25
	defaultFrequencyHz  = 220.0
	defaultDampingHz    = 1000.0
	defaultMinFrequency = 20.0
)

// OutputMode selects how a Filter forms its output sample.
type OutputMode int

const (
	// OutputResonator emits only the damped delayed signal: delayed*level.
	OutputResonator OutputMode = iota
	// OutputFeedForwardSum adds the input to the delayed signal:
	// (x+delayed)*level.
	OutputFeedForwardSum
)

func (m OutputMode) String() string {
	switch m {
	case OutputResonator:
		return "resonator"
	case OutputFeedForwardSum:
		return "feedforward_sum"
	default:
		return "unknown"
	}
}

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	active         bool
	feedback       float64
	level          float64
	frequencyHz    float64
	dampingHz      float64
	dampingRatio   float64
	minFrequencyHz float64
	mode           OutputMode
}

func defaultConfig() config {
	return config{
		active:         true,
		feedback:       defaultFeedback,
		level:          defaultLevel,
		frequencyHz:    defaultFrequencyHz,
		dampingHz:      defaultDampingHz,
		minFrequencyHz: defaultMinFrequency,
		mode:           OutputResonator,
	}
}

// WithActive sets the initial enable state.
func WithActive(active bool) Option {
	return func(cfg *config) error {
		cfg.active = active
		return nil
	}
}

// WithFeedback sets the feedback gain in [0, 1].
func WithFeedback(v float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(v, 0, 1, "feedback"); err != nil {
			return err
		}
		cfg.feedback = v
		return nil
	}
}

// WithLevel sets the output level in [0, 1].
func WithLevel(v float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(v, 0, 1, "level"); err != nil {
			return err
		}
		cfg.level = v
		return nil
	}
}

// WithFrequency sets the target resonance frequency in Hz.
func WithFrequency(hz float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(hz, math.SmallestNonzeroFloat64, math.Inf(1), "frequency"); err != nil {
			return err
		}
		cfg.frequencyHz = hz
		return nil
	}
}

// WithDampingCutoff sets the fixed cutoff of the feedback lowpass in Hz.
func WithDampingCutoff(hz float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(hz, math.SmallestNonzeroFloat64, math.Inf(1), "damping cutoff"); err != nil {
			return err
		}
		cfg.dampingHz = hz
		return nil
	}
}

// WithDampingTracking makes the feedback lowpass cutoff follow
// ratio*frequency. A ratio of 0 restores the fixed cutoff.
func WithDampingTracking(ratio float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(ratio, 0, math.Inf(1), "damping ratio"); err != nil {
			return err
		}
		cfg.dampingRatio = ratio
		return nil
	}
}

// WithMinFrequency sets the lowest frequency the delay lines are sized for
// at Prepare. Lower pitches set later clamp to the longest available delay.
func WithMinFrequency(hz float64) Option {
	return func(cfg *config) error {
		if err := validateFiniteRange(hz, math.SmallestNonzeroFloat64, math.Inf(1), "min frequency"); err != nil {
			return err
		}
		cfg.minFrequencyHz = hz
		return nil
	}
}

// WithOutputMode selects the output formula.
func WithOutputMode(mode OutputMode) Option {
	return func(cfg *config) error {
		if mode != OutputResonator && mode != OutputFeedForwardSum {
			return fmt.Errorf("comb: invalid output mode: %d", mode)
		}
		cfg.mode = mode
		return nil
	}
}

func validateFiniteRange(v, min, max float64, name string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("comb: %s must be finite: %f", name, v)
	}
	if v < min || v > max {
		return fmt.Errorf("comb: %s must be in [%g, %g]: %f", name, min, max, v)
	}
	return nil
}
