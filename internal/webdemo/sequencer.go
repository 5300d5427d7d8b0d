package webdemo

import (
	"math"

	"github.com/cwbudde/algo-combbank/dsp/core"
)

// Excitation selects the signal each sequencer step feeds into the bank.
type Excitation int

const (
	// ExciteNoise plays a decaying white noise burst.
	ExciteNoise Excitation = iota
	// ExciteImpulse plays a single click.
	ExciteImpulse
)

// burst is one triggered excitation with its envelope state.
type burst struct {
	kind        Excitation
	level       float64
	ageSamples  int
	decaySample int
}

// SetExcitation selects the excitation used for newly triggered steps.
func (e *Engine) SetExcitation(name string) {
	switch name {
	case "impulse":
		e.excitation = ExciteImpulse
	default:
		e.excitation = ExciteNoise
	}
}

// SetTransport updates tempo, burst decay, and shuffle amount.
func (e *Engine) SetTransport(tempoBPM, decaySec, shuffle float64) {
	if tempoBPM > 0 {
		e.tempoBPM = tempoBPM
	}
	if decaySec < minDecaySeconds {
		decaySec = minDecaySeconds
	}
	e.decaySec = decaySec
	e.shuffle = core.Clamp(shuffle, 0, 1)
}

// SetRunning starts or stops new step triggering.
func (e *Engine) SetRunning(running bool) {
	if running && !e.running {
		e.currentStep = 0
		e.samplesUntilNextStep = 0
	}
	e.running = running
}

// SetSteps updates the full 16-step pattern.
func (e *Engine) SetSteps(steps []StepConfig) {
	for i := 0; i < stepCount && i < len(steps); i++ {
		cfg := steps[i]
		cfg.Level = core.Clamp(cfg.Level, 0, 1)
		e.steps[i] = cfg
	}
}

// CurrentStep returns the currently playing step index.
func (e *Engine) CurrentStep() int {
	return e.currentStep
}

// Trigger fires one excitation immediately, independent of the pattern.
func (e *Engine) Trigger(level float64) {
	e.addBurst(core.Clamp(level, 0, 1))
}

func (e *Engine) triggerCurrentStep() {
	step := e.steps[e.currentStep]
	if !step.Enabled || step.Level <= 0 {
		return
	}
	e.addBurst(step.Level)
}

func (e *Engine) addBurst(level float64) {
	if len(e.bursts) >= maxBursts {
		copy(e.bursts, e.bursts[1:])
		e.bursts = e.bursts[:maxBursts-1]
	}
	decaySamples := int(e.decaySec * e.sampleRate)
	if decaySamples < 1 || e.excitation == ExciteImpulse {
		decaySamples = 1
	}
	e.bursts = append(e.bursts, burst{
		kind:        e.excitation,
		level:       level,
		decaySample: decaySamples,
	})
}

func (e *Engine) nextSample() float64 {
	if len(e.bursts) == 0 {
		return 0
	}

	sum := 0.0
	write := 0
	for i := range e.bursts {
		b := e.bursts[i]
		if b.ageSamples >= b.decaySample {
			continue
		}

		switch b.kind {
		case ExciteImpulse:
			sum += b.level
		default:
			sum += b.level * envelope(b.ageSamples, b.decaySample) * (2*e.rng.Float64() - 1)
		}

		b.ageSamples++
		e.bursts[write] = b
		write++
	}
	e.bursts = e.bursts[:write]
	return sum
}

func (e *Engine) stepDurationSamples() float64 {
	return e.sampleRate * 60.0 / e.tempoBPM / 4.0
}

func (e *Engine) stepDurationSamplesForStep(stepIndex int) float64 {
	base := e.stepDurationSamples()
	ratio := shuffleRatio(e.shuffle)
	if ratio <= 0 {
		return base
	}
	if stepIndex%2 == 0 {
		return base * (1 + ratio)
	}
	return base * (1 - ratio)
}

func shuffleRatio(shuffle float64) float64 {
	// Map 0..1 control to 0..1/3 timing ratio with a gentle curve.
	return (1.0 / 3.0) * math.Pow(core.Clamp(shuffle, 0, 1), 1.6)
}

// envelope decays exponentially from 1 to -80 dB over decay samples.
func envelope(age, decay int) float64 {
	const end = 0.0001
	if decay <= 1 {
		return 1
	}
	t := float64(age) / float64(decay-1)
	return math.Pow(end, t)
}
