package response

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-combbank/dsp/effects/comb"
	"github.com/cwbudde/algo-combbank/dsp/effects/combbank"
	"github.com/cwbudde/algo-combbank/internal/testutil"
)

const testSampleRate = 48000.0

func combImpulseResponse(t *testing.T, length int, opts ...comb.Option) ([]float64, *comb.Filter) {
	t.Helper()

	f, err := comb.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Prepare(testSampleRate, 1); err != nil {
		t.Fatal(err)
	}

	ir := make([]float64, length)
	f.ProcessBlock(0, testutil.Impulse(length, 0), ir)
	return ir, f
}

func TestNewAnalyzerValidation(t *testing.T) {
	tests := []Config{
		{SampleRate: 0},
		{SampleRate: math.Inf(1)},
		{SampleRate: testSampleRate, FFTSize: 1000},
		{SampleRate: testSampleRate, FFTSize: 1},
	}
	for _, cfg := range tests {
		if _, err := NewAnalyzer(cfg); err == nil {
			t.Fatalf("NewAnalyzer(%+v) expected error", cfg)
		}
	}

	a, err := NewAnalyzer(Config{SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	if a.Config().FFTSize != defaultFFTSize || a.Config().PeakRangeDB != defaultPeakRange {
		t.Fatalf("defaults not applied: %+v", a.Config())
	}
}

func TestMagnitudeOfImpulseIsFlat(t *testing.T) {
	a, err := NewAnalyzer(Config{SampleRate: testSampleRate, FFTSize: 256})
	if err != nil {
		t.Fatal(err)
	}

	mag, err := a.Magnitude([]float64{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(mag) != 129 {
		t.Fatalf("bins = %d, want 129", len(mag))
	}
	for k, m := range mag {
		if math.Abs(m-1) > 1e-12 {
			t.Fatalf("bin %d magnitude = %g, want 1", k, m)
		}
	}

	if _, err := a.Magnitude(nil); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("Magnitude(nil) error = %v", err)
	}
}

func TestCurve(t *testing.T) {
	a, err := NewAnalyzer(Config{SampleRate: testSampleRate, FFTSize: 64})
	if err != nil {
		t.Fatal(err)
	}

	points, err := a.Curve([]float64{0.5})
	if err != nil {
		t.Fatal(err)
	}
	if got := points[32].FrequencyHz; got != testSampleRate/2 {
		t.Fatalf("last bin frequency = %g", got)
	}
	for _, p := range points {
		if math.Abs(p.MagnitudeDB-20*math.Log10(0.5)) > 1e-9 {
			t.Fatalf("point %+v, want -6.02 dB", p)
		}
	}

	silent, err := a.Curve([]float64{0})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(silent[0].MagnitudeDB+240) > 1e-9 {
		t.Fatalf("silence = %g dB, want floor -240", silent[0].MagnitudeDB)
	}
}

func TestPeaksAtCombHarmonics(t *testing.T) {
	ir, f := combImpulseResponse(t, 8192,
		comb.WithFrequency(testSampleRate/48),
		comb.WithFeedback(0.9),
		comb.WithLevel(1),
		comb.WithDampingCutoff(20000),
	)
	if f.DelaySamples() != 48 {
		t.Fatalf("DelaySamples() = %d", f.DelaySamples())
	}
	fundamental := f.EffectiveFrequency()

	a, err := NewAnalyzer(Config{SampleRate: testSampleRate, FFTSize: 8192})
	if err != nil {
		t.Fatal(err)
	}
	peaks, err := a.Peaks(ir, 0)
	if err != nil {
		t.Fatal(err)
	}

	tol := 2 * a.BinFrequency(1)
	for k := 1; k <= 3; k++ {
		want := float64(k) * fundamental
		found := false
		for _, p := range peaks {
			if math.Abs(p.FrequencyHz-want) <= tol {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("no peak within %.1f Hz of harmonic %d (%.1f Hz)", tol, k, want)
		}
	}

	for i := 1; i < len(peaks); i++ {
		if peaks[i].MagnitudeDB > peaks[i-1].MagnitudeDB {
			t.Fatal("peaks must be sorted strongest first")
		}
	}

	limited, err := a.Peaks(ir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("len(limited) = %d, want 2", len(limited))
	}
}

func TestPeaksOfFlatResponse(t *testing.T) {
	a, err := NewAnalyzer(Config{SampleRate: testSampleRate, FFTSize: 128})
	if err != nil {
		t.Fatal(err)
	}
	peaks, err := a.Peaks([]float64{1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(peaks) != 0 {
		t.Fatalf("flat response reported %d peaks", len(peaks))
	}
}

func TestImpulseResponseFromEngine(t *testing.T) {
	e, err := combbank.New()
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Prepare(testSampleRate, 256, 2); err != nil {
		t.Fatal(err)
	}
	_ = e.SetWetDryRatio(0)

	ir, err := ImpulseResponse(e, 2, 1000)
	if err != nil {
		t.Fatalf("ImpulseResponse() error = %v", err)
	}
	if len(ir) != 1000 || ir[0] != 1 || testutil.FirstNonZero(ir[1:], 0) != -1 {
		t.Fatal("dry-only engine must return the impulse itself")
	}

	if _, err := ImpulseResponse(e, 1, 10); !errors.Is(err, combbank.ErrChannelMismatch) {
		t.Fatalf("ImpulseResponse() error = %v, want ErrChannelMismatch", err)
	}
	if _, err := ImpulseResponse(e, 2, 0); err == nil {
		t.Fatal("expected length error")
	}
}

func TestBands(t *testing.T) {
	s := combbank.DefaultSnapshot(3)
	s.Slots[0].FrequencyHz = 4000
	s.Slots[0].ShowBands = true
	s.Slots[1].ShowBands = false
	s.Slots[2].ShowBands = true
	s.Slots[2].Active = false

	bands := Bands(s, testSampleRate)

	// delay 12 -> 48000/13 Hz, six harmonics below 24 kHz.
	if len(bands) != 6 {
		t.Fatalf("len(bands) = %d, want 6", len(bands))
	}
	f0 := testSampleRate / 13
	for i, b := range bands {
		if b.Slot != 0 || b.Harmonic != i+1 {
			t.Fatalf("band %d = %+v", i, b)
		}
		if math.Abs(b.FrequencyHz-float64(i+1)*f0) > 1e-9 {
			t.Fatalf("band %d frequency = %g", i, b.FrequencyHz)
		}
	}

	if Bands(s, 0) != nil {
		t.Fatal("zero sample rate must yield no bands")
	}
}
