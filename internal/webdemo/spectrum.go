package webdemo

import (
	"fmt"
	"math"
	"strings"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-combbank/dsp/core"
)

const spectrumFloorDB = -130.0

// SpectrumParams configures the live output spectrum.
type SpectrumParams struct {
	FFTSize   int
	Overlap   float64
	Smoothing float64
	Window    string
}

type spectrumState struct {
	spectrum           SpectrumParams
	spectrumWindow     []float64
	spectrumWindowGain float64
	spectrumPlan       *algofft.Plan[complex128]
	spectrumHopSize    int
	spectrumInput      []complex128
	spectrumOutput     []complex128
	spectrumRe         []float64
	spectrumIm         []float64
	spectrumMag        []float64
	spectrumRing       []float64
	spectrumWrite      int
	spectrumFilled     int
	spectrumToHop      int
	spectrumDB         []float64
	spectrumReady      bool
}

// SetSpectrum updates analyzer settings used for the spectrum graph.
func (e *Engine) SetSpectrum(p SpectrumParams) error {
	cfg := sanitizeSpectrumParams(p)

	win, err := spectrumWindow(cfg.Window, cfg.FFTSize)
	if err != nil {
		return err
	}
	sum := 0.0
	for _, w := range win {
		sum += w
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return fmt.Errorf("spectrum init fft plan: %w", err)
	}

	hop := int(math.Round(float64(cfg.FFTSize) * (1 - cfg.Overlap)))
	if hop < 1 {
		hop = 1
	}
	bins := cfg.FFTSize/2 + 1

	s := &e.spectrumState
	s.spectrum = cfg
	s.spectrumWindow = win
	s.spectrumWindowGain = sum / float64(cfg.FFTSize)
	s.spectrumPlan = plan
	s.spectrumHopSize = hop
	s.spectrumInput = make([]complex128, cfg.FFTSize)
	s.spectrumOutput = make([]complex128, cfg.FFTSize)
	s.spectrumRe = make([]float64, bins)
	s.spectrumIm = make([]float64, bins)
	s.spectrumMag = make([]float64, bins)
	s.spectrumRing = make([]float64, cfg.FFTSize)
	s.spectrumWrite = 0
	s.spectrumFilled = 0
	s.spectrumToHop = 0
	s.spectrumDB = make([]float64, bins)
	for i := range s.spectrumDB {
		s.spectrumDB[i] = spectrumFloorDB
	}
	s.spectrumReady = false
	return nil
}

// SpectrumCurveDB returns a smoothed real-time spectrum in dBFS for freqs.
func (e *Engine) SpectrumCurveDB(freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	if !e.spectrumReady {
		for i := range out {
			out[i] = spectrumFloorDB
		}
		return out
	}
	for i, f := range freqs {
		out[i] = interpolateBins(e.spectrumDB, f, e.sampleRate, e.spectrum.FFTSize)
	}
	return out
}

func (e *Engine) initSpectrumAnalyzer() error {
	return e.SetSpectrum(e.spectrum)
}

func (e *Engine) pushSpectrumSample(x float64) {
	s := &e.spectrumState
	s.spectrumRing[s.spectrumWrite] = x
	s.spectrumWrite++
	if s.spectrumWrite >= len(s.spectrumRing) {
		s.spectrumWrite = 0
	}
	if s.spectrumFilled < len(s.spectrumRing) {
		s.spectrumFilled++
	}

	s.spectrumToHop++
	if s.spectrumFilled < len(s.spectrumRing) || s.spectrumToHop < s.spectrumHopSize {
		return
	}
	s.spectrumToHop = 0
	s.updateSpectrumFrame()
}

func (s *spectrumState) updateSpectrumFrame() {
	n := len(s.spectrumRing)
	read := s.spectrumWrite
	for i := 0; i < n; i++ {
		s.spectrumInput[i] = complex(s.spectrumRing[read]*s.spectrumWindow[i], 0)
		read++
		if read >= n {
			read = 0
		}
	}

	if err := s.spectrumPlan.Forward(s.spectrumOutput, s.spectrumInput); err != nil {
		return
	}
	for k := range s.spectrumRe {
		s.spectrumRe[k] = real(s.spectrumOutput[k])
		s.spectrumIm[k] = imag(s.spectrumOutput[k])
	}
	vecmath.Magnitude(s.spectrumMag, s.spectrumRe, s.spectrumIm)

	norm := float64(n) * math.Max(s.spectrumWindowGain, 1e-12)
	last := len(s.spectrumDB) - 1
	for k, mag := range s.spectrumMag {
		mag /= norm
		if k > 0 && k < last {
			mag *= 2
		}
		valDB := math.Max(core.LinearToDB(math.Max(mag, 1e-12)), spectrumFloorDB)

		if !s.spectrumReady {
			s.spectrumDB[k] = valDB
			continue
		}
		smooth := s.spectrum.Smoothing
		s.spectrumDB[k] = smooth*s.spectrumDB[k] + (1-smooth)*valDB
	}
	s.spectrumReady = true
}

func sanitizeSpectrumParams(p SpectrumParams) SpectrumParams {
	cfg := p
	switch cfg.FFTSize {
	case 256, 512, 1024, 2048, 4096, 8192:
	default:
		cfg.FFTSize = 2048
	}

	cfg.Overlap = core.Clamp(cfg.Overlap, 0.25, 0.95)
	cfg.Smoothing = core.Clamp(cfg.Smoothing, 0, 0.95)

	cfg.Window = strings.ToLower(strings.TrimSpace(cfg.Window))
	if cfg.Window == "" {
		cfg.Window = "hann"
	}
	return cfg
}

// spectrumWindow returns a periodic analysis window.
func spectrumWindow(name string, n int) ([]float64, error) {
	var coeffs []float64
	switch name {
	case "rectangular":
		coeffs = []float64{1}
	case "hann":
		coeffs = []float64{0.5, 0.5}
	case "blackman":
		coeffs = []float64{0.42, 0.5, 0.08}
	case "blackmanharris":
		coeffs = []float64{0.35875, 0.48829, 0.14128, 0.01168}
	default:
		return nil, fmt.Errorf("unsupported spectrum window: %s", name)
	}

	win := make([]float64, n)
	for i := range win {
		x := 2 * math.Pi * float64(i) / float64(n)
		sign := 1.0
		for k, c := range coeffs {
			win[i] += sign * c * math.Cos(float64(k)*x)
			sign = -sign
		}
	}
	return win, nil
}

// interpolateBins reads a dB curve of fftSize/2+1 bins at frequency f.
func interpolateBins(db []float64, f, sampleRate float64, fftSize int) float64 {
	last := len(db) - 1
	pos := core.Clamp(f*float64(fftSize)/sampleRate, 0, float64(last))
	i := int(pos)
	if i >= last {
		return db[last]
	}
	frac := pos - float64(i)
	return db[i]*(1-frac) + db[i+1]*frac
}
