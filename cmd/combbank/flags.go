package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-combbank/dsp/core"
	"github.com/cwbudde/algo-combbank/dsp/effects/comb"
	"github.com/cwbudde/algo-combbank/dsp/effects/combbank"
	"github.com/cwbudde/algo-combbank/preset"
)

// combSpec is one -comb override: slot[:pitch[:feedback[:level]]].
// Slots are numbered from 1. An empty field keeps the current value and a
// pitch of "off" deactivates the slot.
type combSpec struct {
	slot     int
	off      bool
	pitchHz  float64
	feedback float64
	level    float64
}

func parseCombSpec(s string) (combSpec, error) {
	fields := strings.Split(s, ":")
	if len(fields) > 4 {
		return combSpec{}, fmt.Errorf("comb %q: want slot[:pitch[:feedback[:level]]]", s)
	}

	spec := combSpec{pitchHz: math.NaN(), feedback: math.NaN(), level: math.NaN()}
	slot, err := strconv.Atoi(fields[0])
	if err != nil || slot < 1 {
		return combSpec{}, fmt.Errorf("comb %q: slot must be a number >= 1", s)
	}
	spec.slot = slot

	if len(fields) > 1 && fields[1] != "" {
		if strings.EqualFold(fields[1], "off") {
			spec.off = true
		} else {
			hz, err := comb.ParseFrequency(fields[1])
			if err != nil {
				return combSpec{}, fmt.Errorf("comb %q: %w", s, err)
			}
			spec.pitchHz = hz
		}
	}
	if len(fields) > 2 && fields[2] != "" {
		if spec.feedback, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return combSpec{}, fmt.Errorf("comb %q: feedback: %w", s, err)
		}
	}
	if len(fields) > 3 && fields[3] != "" {
		if spec.level, err = strconv.ParseFloat(fields[3], 64); err != nil {
			return combSpec{}, fmt.Errorf("comb %q: level: %w", s, err)
		}
	}
	return spec, nil
}

func (c combSpec) apply(s *combbank.Snapshot) error {
	i := c.slot - 1
	if i >= len(s.Slots) {
		return fmt.Errorf("comb slot %d: bank has %d slots", c.slot, len(s.Slots))
	}
	slot := &s.Slots[i]
	if c.off {
		slot.Active = false
		return nil
	}
	slot.Active = true
	if !math.IsNaN(c.pitchHz) {
		slot.FrequencyHz = c.pitchHz
	}
	if !math.IsNaN(c.feedback) {
		slot.Feedback = c.feedback
	}
	if !math.IsNaN(c.level) {
		slot.Level = c.level
	}
	return nil
}

// combList implements flag.Value for repeated -comb flags.
type combList []combSpec

func (l *combList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, c := range *l {
		parts[i] = strconv.Itoa(c.slot)
	}
	return strings.Join(parts, ",")
}

func (l *combList) Set(s string) error {
	c, err := parseCombSpec(s)
	if err != nil {
		return err
	}
	*l = append(*l, c)
	return nil
}

// engineFlags are the parameter flags shared by every processing command.
type engineFlags struct {
	presetPath string
	slots      int
	combs      combList
	mix        float64
	preGain    float64
	outputGain float64
	lowpassHz  float64
	highpassHz float64
	bypass     bool
	dampingHz  float64
	dampTrack  float64
	logLevel   string
}

func registerEngineFlags(fs *flag.FlagSet) *engineFlags {
	f := &engineFlags{}
	fs.StringVar(&f.presetPath, "preset", "", "JSON preset to start from")
	fs.IntVar(&f.slots, "slots", comb.DefaultSlots, "number of comb slots when no preset is given")
	fs.Var(&f.combs, "comb", "comb override slot[:pitch[:feedback[:level]]], pitch in Hz, a note like A2, or off (repeatable)")
	fs.Float64Var(&f.mix, "mix", math.NaN(), "wet/dry ratio in [0, 1]")
	fs.Float64Var(&f.preGain, "pre-gain", math.NaN(), "gain into the bank in [0, 1]")
	fs.Float64Var(&f.outputGain, "out-gain", math.NaN(), "output gain in [0, 1]")
	fs.Float64Var(&f.lowpassHz, "lowpass", 0, "enable the output lowpass at this cutoff in Hz")
	fs.Float64Var(&f.highpassHz, "highpass", 0, "enable the output highpass at this cutoff in Hz")
	fs.BoolVar(&f.bypass, "bypass", false, "pass audio through unprocessed")
	fs.Float64Var(&f.dampingHz, "damping", 0, "feedback lowpass cutoff in Hz (default 1000)")
	fs.Float64Var(&f.dampTrack, "damping-track", 0, "make the feedback lowpass follow this multiple of each comb's pitch")
	fs.StringVar(&f.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	return f
}

// snapshot builds the parameter set from the preset and overrides.
func (f *engineFlags) snapshot() (combbank.Snapshot, error) {
	s := combbank.DefaultSnapshot(f.slots)
	if f.presetPath != "" {
		p, err := preset.Load(f.presetPath)
		if err != nil {
			return combbank.Snapshot{}, err
		}
		logger.Debug("loaded preset", "path", f.presetPath, "name", p.Name, "slots", len(p.Slots))
		s = p.Snapshot
	}

	for _, c := range f.combs {
		if err := c.apply(&s); err != nil {
			return combbank.Snapshot{}, err
		}
	}
	if !math.IsNaN(f.mix) {
		s.WetDryRatio = f.mix
	}
	if !math.IsNaN(f.preGain) {
		s.PreGain = f.preGain
	}
	if !math.IsNaN(f.outputGain) {
		s.OutputGain = f.outputGain
	}
	if f.lowpassHz > 0 {
		s.Lowpass = combbank.ToneParams{Enabled: true, CutoffHz: f.lowpassHz}
	}
	if f.highpassHz > 0 {
		s.Highpass = combbank.ToneParams{Enabled: true, CutoffHz: f.highpassHz}
	}
	if f.bypass {
		s.Bypass = true
	}

	if err := s.Validate(); err != nil {
		return combbank.Snapshot{}, err
	}
	return s, nil
}

// engine creates and prepares an engine for the given stream format.
func (f *engineFlags) engine(sampleRate float64, blockSize, channels int) (*combbank.Engine, error) {
	s, err := f.snapshot()
	if err != nil {
		return nil, err
	}
	eng, err := combbank.New(
		combbank.WithSlots(len(s.Slots)),
		combbank.WithCombOptions(f.combOptions()...),
		combbank.WithSnapshot(s),
	)
	if err != nil {
		return nil, err
	}
	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(sampleRate),
		core.WithBlockSize(blockSize),
		core.WithChannels(channels),
	)
	if err := eng.PrepareConfig(cfg); err != nil {
		return nil, err
	}

	for i, slot := range s.Slots {
		logger.Info("comb", "slot", i+1, "active", slot.Active, "hz", slot.FrequencyHz,
			"feedback", slot.Feedback, "level", slot.Level)
	}
	return eng, nil
}

func (f *engineFlags) combOptions() []comb.Option {
	var opts []comb.Option
	if f.dampingHz > 0 {
		opts = append(opts, comb.WithDampingCutoff(f.dampingHz))
	}
	if f.dampTrack > 0 {
		opts = append(opts, comb.WithDampingTracking(f.dampTrack))
	}
	return opts
}

func (f *engineFlags) initLogger() error {
	return initLogger(os.Stderr, f.logLevel)
}
