package combbank

import (
	"fmt"
	"math"
	"slices"

	"github.com/cwbudde/algo-combbank/dsp/effects/comb"
)

const (
	defaultLowpassHz  = 18000.0
	defaultHighpassHz = 20.0
)

// defaultNotes tunes the default slots to an A major chord (A2 E3 A3 C#4).
var defaultNotes = []int{45, 52, 57, 61}

// SlotParams holds the parameters of one comb slot.
type SlotParams struct {
	Active      bool    `json:"active"`
	FrequencyHz float64 `json:"frequencyHz"`
	Feedback    float64 `json:"feedback"`
	Level       float64 `json:"level"`
	// ShowBands marks the slot for band display in control surfaces.
	ShowBands bool `json:"showBands,omitempty"`
}

// ToneParams configures one first-order tone filter.
type ToneParams struct {
	Enabled  bool    `json:"enabled"`
	CutoffHz float64 `json:"cutoffHz"`
}

// Snapshot is the complete, flat parameter set of an Engine. It is the unit
// of parameter handoff between control and audio goroutines and the shape
// persisted by package preset.
type Snapshot struct {
	Bypass      bool         `json:"bypass"`
	PreGain     float64      `json:"preGain"`
	OutputGain  float64      `json:"outputGain"`
	WetDryRatio float64      `json:"wetDryRatio"`
	Slots       []SlotParams `json:"slots"`
	Lowpass     ToneParams   `json:"lowpass"`
	Highpass    ToneParams   `json:"highpass"`
}

// DefaultSnapshot returns the factory parameters for a bank of n slots.
func DefaultSnapshot(n int) Snapshot {
	s := Snapshot{
		PreGain:     1,
		OutputGain:  1,
		WetDryRatio: 0.5,
		Slots:       make([]SlotParams, max(n, 0)),
		Lowpass:     ToneParams{CutoffHz: defaultLowpassHz},
		Highpass:    ToneParams{CutoffHz: defaultHighpassHz},
	}
	for i := range s.Slots {
		note := defaultNotes[i%len(defaultNotes)] + 12*(i/len(defaultNotes))
		s.Slots[i] = SlotParams{
			Active:      true,
			FrequencyHz: comb.NoteFrequency(note),
			Feedback:    0.5,
			Level:       0.25,
		}
	}
	return s
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	s.Slots = slices.Clone(s.Slots)
	return s
}

// Validate checks that every gain and ratio lies in [0, 1] and every
// frequency is finite and positive.
func (s Snapshot) Validate() error {
	if err := validateUnit(s.PreGain, "pre gain"); err != nil {
		return err
	}
	if err := validateUnit(s.OutputGain, "output gain"); err != nil {
		return err
	}
	if err := validateUnit(s.WetDryRatio, "wet/dry ratio"); err != nil {
		return err
	}

	for i, slot := range s.Slots {
		if err := validateFrequency(slot.FrequencyHz); err != nil {
			return fmt.Errorf("combbank: slot %d: %w", i, err)
		}
		if err := validateUnit(slot.Feedback, fmt.Sprintf("slot %d feedback", i)); err != nil {
			return err
		}
		if err := validateUnit(slot.Level, fmt.Sprintf("slot %d level", i)); err != nil {
			return err
		}
	}

	if err := validateFrequency(s.Lowpass.CutoffHz); err != nil {
		return fmt.Errorf("combbank: lowpass: %w", err)
	}
	if err := validateFrequency(s.Highpass.CutoffHz); err != nil {
		return fmt.Errorf("combbank: highpass: %w", err)
	}
	return nil
}

// ActiveSlots returns the number of enabled slots.
func (s Snapshot) ActiveSlots() int {
	n := 0
	for _, slot := range s.Slots {
		if slot.Active {
			n++
		}
	}
	return n
}

func validateUnit(v float64, name string) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("combbank: %s must be in [0, 1]: %f", name, v)
	}
	return nil
}

func validateFrequency(hz float64) error {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return fmt.Errorf("%w: %f", comb.ErrInvalidFrequency, hz)
	}
	return nil
}
