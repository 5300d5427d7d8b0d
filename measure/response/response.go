// Package response measures the magnitude response of the comb bank from
// its impulse response.
package response

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-combbank/dsp/core"
)

const (
	defaultFFTSize   = 8192
	defaultPeakRange = 30.0
	minMagnitude     = 1e-12
)

// ErrEmptyResponse is returned when there is nothing to analyse.
var ErrEmptyResponse = errors.New("response: empty impulse response")

// Config holds analysis parameters.
type Config struct {
	SampleRate float64
	// FFTSize is a power of two. Longer impulse responses are truncated.
	FFTSize int
	// PeakRangeDB limits Peaks to maxima within this many dB of the
	// strongest one.
	PeakRangeDB float64
}

// Point is one bin of a magnitude curve.
type Point struct {
	FrequencyHz float64
	MagnitudeDB float64
}

// Peak is a local maximum of the magnitude response.
type Peak struct {
	Bin         int
	FrequencyHz float64
	MagnitudeDB float64
}

// Analyzer computes magnitude responses with a reusable FFT plan.
// It is not safe for concurrent use.
type Analyzer struct {
	cfg  Config
	plan *algofft.Plan[complex128]
	in   []complex128
	out  []complex128
	re   []float64
	im   []float64
	mag  []float64
}

// NewAnalyzer validates cfg and allocates the FFT plan and buffers.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if cfg.SampleRate <= 0 || !core.IsFinite(cfg.SampleRate) {
		return nil, fmt.Errorf("response: sample rate must be > 0: %f", cfg.SampleRate)
	}
	if cfg.FFTSize == 0 {
		cfg.FFTSize = defaultFFTSize
	}
	if cfg.FFTSize < 2 || bits.OnesCount(uint(cfg.FFTSize)) != 1 {
		return nil, fmt.Errorf("response: fft size must be a power of two >= 2: %d", cfg.FFTSize)
	}
	if cfg.PeakRangeDB <= 0 {
		cfg.PeakRangeDB = defaultPeakRange
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}

	bins := cfg.FFTSize/2 + 1
	return &Analyzer{
		cfg:  cfg,
		plan: plan,
		in:   make([]complex128, cfg.FFTSize),
		out:  make([]complex128, cfg.FFTSize),
		re:   make([]float64, bins),
		im:   make([]float64, bins),
		mag:  make([]float64, bins),
	}, nil
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// BinFrequency returns the centre frequency of bin k in Hz.
func (a *Analyzer) BinFrequency(k int) float64 {
	return float64(k) * a.cfg.SampleRate / float64(a.cfg.FFTSize)
}

// Magnitude returns the linear magnitude of bins 0..FFTSize/2 of ir. The
// returned slice is owned by the Analyzer and overwritten by the next call.
func (a *Analyzer) Magnitude(ir []float64) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyResponse
	}

	for i := range a.in {
		v := 0.0
		if i < len(ir) {
			v = ir[i]
		}
		a.in[i] = complex(v, 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}

	for k := range a.re {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)
	return a.mag, nil
}

// Curve returns the magnitude response of ir in dB per bin.
func (a *Analyzer) Curve(ir []float64) ([]Point, error) {
	mag, err := a.Magnitude(ir)
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(mag))
	for k, m := range mag {
		points[k] = Point{FrequencyHz: a.BinFrequency(k), MagnitudeDB: toDB(m)}
	}
	return points, nil
}

// Peaks returns the local maxima of the magnitude response of ir, strongest
// first, limited to PeakRangeDB below the strongest and to maxPeaks entries
// when maxPeaks > 0. DC and Nyquist are never reported.
func (a *Analyzer) Peaks(ir []float64, maxPeaks int) ([]Peak, error) {
	mag, err := a.Magnitude(ir)
	if err != nil {
		return nil, err
	}

	var peaks []Peak
	for k := 1; k < len(mag)-1; k++ {
		if mag[k] > mag[k-1] && mag[k] >= mag[k+1] {
			peaks = append(peaks, Peak{
				Bin:         k,
				FrequencyHz: a.BinFrequency(k),
				MagnitudeDB: toDB(mag[k]),
			})
		}
	}
	if len(peaks) == 0 {
		return nil, nil
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].MagnitudeDB > peaks[j].MagnitudeDB
	})

	floor := peaks[0].MagnitudeDB - a.cfg.PeakRangeDB
	n := sort.Search(len(peaks), func(i int) bool { return peaks[i].MagnitudeDB < floor })
	peaks = peaks[:n]
	if maxPeaks > 0 && len(peaks) > maxPeaks {
		peaks = peaks[:maxPeaks]
	}
	return peaks, nil
}

func toDB(m float64) float64 {
	return 20 * math.Log10(math.Max(m, minMagnitude))
}
