// Package webdemo drives the comb filter bank from a step sequencer for the
// browser demo.
package webdemo

import (
	"bytes"
	"fmt"
	"math/rand/v2"

	"github.com/cwbudde/algo-combbank/dsp/core"
	"github.com/cwbudde/algo-combbank/dsp/effects/combbank"
	"github.com/cwbudde/algo-combbank/measure/response"
	"github.com/cwbudde/algo-combbank/preset"
)

const (
	stepCount       = 16
	minDecaySeconds = 0.001
	maxBursts       = 64
	blockSize       = 1024
)

// StepConfig defines one sequencer step.
type StepConfig struct {
	Enabled bool
	Level   float64
}

// CombParams are the parameters of one comb slot.
type CombParams struct {
	Active    bool
	FreqHz    float64
	Feedback  float64
	Level     float64
	ShowBands bool
}

// MixParams are the global gain and blend parameters.
type MixParams struct {
	WetDry     float64
	PreGain    float64
	OutputGain float64
	Bypass     bool
}

// ToneParams enables the output lowpass and highpass.
type ToneParams struct {
	Lowpass    bool
	LowpassHz  float64
	Highpass   bool
	HighpassHz float64
}

// Engine runs the web demo DSP pipeline in Go: sequenced excitation into a
// combbank.Engine, plus the analysers behind the response and spectrum
// graphs.
type Engine struct {
	sampleRate float64
	tempoBPM   float64
	decaySec   float64
	shuffle    float64
	running    bool
	excitation Excitation

	steps                [stepCount]StepConfig
	currentStep          int
	samplesUntilNextStep float64
	bursts               []burst
	rng                  *rand.Rand

	bank *combbank.Engine

	analyzer      *response.Analyzer
	responseDB    []float64
	responseDirty bool

	spectrumState
}

// NewEngine creates a configured audio engine.
func NewEngine(sampleRate float64) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0: %f", sampleRate)
	}

	bank, err := combbank.New()
	if err != nil {
		return nil, err
	}
	cfg := core.ApplyProcessorOptions(
		core.WithSampleRate(sampleRate),
		core.WithBlockSize(blockSize),
		core.WithChannels(1),
	)
	if err := bank.PrepareConfig(cfg); err != nil {
		return nil, err
	}
	analyzer, err := response.NewAnalyzer(response.Config{SampleRate: sampleRate})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		sampleRate:    sampleRate,
		tempoBPM:      110,
		decaySec:      0.01,
		excitation:    ExciteNoise,
		rng:           rand.New(rand.NewPCG(0x636f6d62, 0x62616e6b)),
		bank:          bank,
		analyzer:      analyzer,
		responseDirty: true,
	}
	for i := 0; i < stepCount; i++ {
		e.steps[i] = StepConfig{Enabled: i%4 == 0, Level: 0.8}
	}
	if err := e.initSpectrumAnalyzer(); err != nil {
		return nil, err
	}
	e.samplesUntilNextStep = e.stepDurationSamples()
	return e, nil
}

// SetComb updates one comb slot.
func (e *Engine) SetComb(slot int, p CombParams) error {
	if err := e.bank.SetCombPitch(slot, p.FreqHz); err != nil {
		return err
	}
	if err := e.bank.SetCombFeedback(slot, p.Feedback); err != nil {
		return err
	}
	if err := e.bank.SetCombLevel(slot, p.Level); err != nil {
		return err
	}
	if err := e.bank.SetCombShowBands(slot, p.ShowBands); err != nil {
		return err
	}
	if err := e.bank.SetCombActive(slot, p.Active); err != nil {
		return err
	}
	e.responseDirty = true
	return nil
}

// SetMix updates gains, blend and bypass.
func (e *Engine) SetMix(p MixParams) error {
	if err := e.bank.SetWetDryRatio(core.Clamp01(p.WetDry)); err != nil {
		return err
	}
	if err := e.bank.SetPreGain(core.Clamp01(p.PreGain)); err != nil {
		return err
	}
	if err := e.bank.SetOutputGain(core.Clamp01(p.OutputGain)); err != nil {
		return err
	}
	if err := e.bank.SetBypass(p.Bypass); err != nil {
		return err
	}
	e.responseDirty = true
	return nil
}

// SetTone updates the output tone filters.
func (e *Engine) SetTone(p ToneParams) error {
	lp := core.Clamp(p.LowpassHz, 20, e.sampleRate*0.49)
	hp := core.Clamp(p.HighpassHz, 20, e.sampleRate*0.49)
	if err := e.bank.SetLowpass(p.Lowpass, lp); err != nil {
		return err
	}
	if err := e.bank.SetHighpass(p.Highpass, hp); err != nil {
		return err
	}
	e.responseDirty = true
	return nil
}

// Snapshot returns the current bank parameters.
func (e *Engine) Snapshot() combbank.Snapshot {
	return e.bank.Snapshot()
}

// LoadPreset replaces all bank parameters with a JSON preset.
func (e *Engine) LoadPreset(data []byte) error {
	p, err := preset.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := e.bank.Restore(p.Snapshot); err != nil {
		return err
	}
	e.responseDirty = true
	return nil
}

// SavePreset encodes the current bank parameters as a JSON preset.
func (e *Engine) SavePreset(name string) ([]byte, error) {
	var buf bytes.Buffer
	if err := preset.Encode(&buf, preset.New(name, e.bank.Snapshot())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Bands lists the resonances of slots marked for band display.
func (e *Engine) Bands() []response.Band {
	return response.Bands(e.bank.Snapshot(), e.sampleRate)
}

// OutputLevel returns the RMS level of the last rendered block.
func (e *Engine) OutputLevel() float64 {
	return e.bank.OutputLevel(0)
}

// Reset silences the bank and drops pending excitation.
func (e *Engine) Reset() {
	e.bank.Reset()
	e.bursts = e.bursts[:0]
}

// Render fills dst with mono PCM samples in [-1, 1].
func (e *Engine) Render(dst []float32) {
	for i := range dst {
		if e.running {
			e.samplesUntilNextStep--
			for e.samplesUntilNextStep <= 0 {
				e.triggerCurrentStep()
				e.currentStep = (e.currentStep + 1) % stepCount
				e.samplesUntilNextStep += e.stepDurationSamplesForStep(e.currentStep)
			}
		}
		dst[i] = float32(e.nextSample())
	}

	if err := e.bank.ProcessInterleaved(dst, 1); err != nil {
		clear(dst)
		return
	}

	for i, v := range dst {
		x := core.Clamp(float64(v), -1, 1)
		dst[i] = float32(x)
		e.pushSpectrumSample(x)
	}
}
