package combbank

import (
	"fmt"

	"github.com/cwbudde/algo-combbank/dsp/effects/comb"
)

// Option mutates constructor configuration.
type Option func(*config) error

type config struct {
	slots    int
	combOpts []comb.Option
	snapshot *Snapshot
}

func defaultConfig() config {
	return config{slots: comb.DefaultSlots}
}

// WithSlots sets the number of comb slots.
func WithSlots(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return fmt.Errorf("combbank: slot count must be > 0: %d", n)
		}
		cfg.slots = n
		return nil
	}
}

// WithCombOptions forwards construction options to every comb slot. Slot
// parameters held in the Snapshot (active, frequency, feedback, level)
// override the matching comb options.
func WithCombOptions(opts ...comb.Option) Option {
	return func(cfg *config) error {
		cfg.combOpts = append(cfg.combOpts, opts...)
		return nil
	}
}

// WithSnapshot sets the initial parameters. The slot count of s must match
// the bank size.
func WithSnapshot(s Snapshot) Option {
	return func(cfg *config) error {
		if err := s.Validate(); err != nil {
			return err
		}
		c := s.Clone()
		cfg.snapshot = &c
		return nil
	}
}
