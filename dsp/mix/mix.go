// Package mix blends an unprocessed (dry) signal with a processed (wet) one.
package mix

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-combbank/dsp/core"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultWetDryRatio = 0.5
	defaultGain        = 1.0
)

// Mixer holds the output-stage parameters of an effect: bypass, input gain
// ahead of the processor, output gain and the dry/wet ratio (0 = dry,
// 1 = wet).
//
// Mixer is not thread-safe. Hosts change it between blocks only.
type Mixer struct {
	bypass      bool
	preGain     float64
	outputGain  float64
	wetDryRatio float64

	scratch []float64
}

// New returns a mixer with bypass off, unity gains and an even blend.
func New() *Mixer {
	return &Mixer{
		preGain:     defaultGain,
		outputGain:  defaultGain,
		wetDryRatio: defaultWetDryRatio,
	}
}

// Prepare sizes the block scratch buffer. ProcessBlock splits longer blocks.
func (m *Mixer) Prepare(maxBlockSize int) error {
	if maxBlockSize <= 0 {
		return fmt.Errorf("mix: max block size must be > 0: %d", maxBlockSize)
	}
	m.scratch = core.EnsureLen(m.scratch, maxBlockSize)
	return nil
}

// ProcessSample blends one dry and one wet sample. With bypass on it returns
// dry unchanged.
func (m *Mixer) ProcessSample(dry, wet float64) float64 {
	if m.bypass {
		return dry
	}
	return (dry*(1-m.wetDryRatio) + wet*m.wetDryRatio) * m.outputGain
}

// ProcessBlock writes the blend of dry and wet into dst. dst may alias dry
// or wet. Only the shortest of the three lengths is processed.
func (m *Mixer) ProcessBlock(dst, dry, wet []float64) {
	n := min(len(dst), len(dry), len(wet))
	if m.bypass {
		copy(dst[:n], dry[:n])
		return
	}
	if len(m.scratch) == 0 {
		for i := 0; i < n; i++ {
			dst[i] = m.ProcessSample(dry[i], wet[i])
		}
		return
	}

	for start := 0; start < n; start += len(m.scratch) {
		end := min(start+len(m.scratch), n)
		m.blend(dst[start:end], dry[start:end], wet[start:end])
	}
}

func (m *Mixer) blend(dst, dry, wet []float64) {
	tmp := m.scratch[:len(dst)]
	vecmath.ScaleBlock(tmp, wet, m.wetDryRatio)
	vecmath.ScaleBlock(dst, dry, 1-m.wetDryRatio)
	vecmath.AddBlockInPlace(dst, tmp)
	vecmath.ScaleBlock(dst, dst, m.outputGain)
}

// ApplyPreGain scales buf in place by the input gain.
func (m *Mixer) ApplyPreGain(buf []float64) {
	vecmath.ScaleBlock(buf, buf, m.preGain)
}

// SetBypass turns bypass on or off.
func (m *Mixer) SetBypass(bypass bool) {
	m.bypass = bypass
}

// SetPreGain sets the input gain, clamped to [0, 1].
func (m *Mixer) SetPreGain(v float64) error {
	return setUnit(&m.preGain, v, "pre gain")
}

// SetOutputGain sets the output gain, clamped to [0, 1].
func (m *Mixer) SetOutputGain(v float64) error {
	return setUnit(&m.outputGain, v, "output gain")
}

// SetWetDryRatio sets the blend, clamped to [0, 1].
func (m *Mixer) SetWetDryRatio(v float64) error {
	return setUnit(&m.wetDryRatio, v, "wet/dry ratio")
}

// Bypass reports whether bypass is on.
func (m *Mixer) Bypass() bool { return m.bypass }

// PreGain returns the input gain.
func (m *Mixer) PreGain() float64 { return m.preGain }

// OutputGain returns the output gain.
func (m *Mixer) OutputGain() float64 { return m.outputGain }

// WetDryRatio returns the blend ratio.
func (m *Mixer) WetDryRatio() float64 { return m.wetDryRatio }

func setUnit(dst *float64, v float64, name string) error {
	if math.IsNaN(v) {
		return fmt.Errorf("mix: %s must not be NaN", name)
	}
	*dst = core.Clamp01(v)
	return nil
}
