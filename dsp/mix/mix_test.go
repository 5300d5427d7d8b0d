package mix

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-combbank/internal/testutil"
)

func TestNewDefaults(t *testing.T) {
	m := New()
	if m.Bypass() {
		t.Fatal("default mixer must not bypass")
	}
	if m.PreGain() != 1 || m.OutputGain() != 1 || m.WetDryRatio() != 0.5 {
		t.Fatalf("defaults pre=%g out=%g ratio=%g", m.PreGain(), m.OutputGain(), m.WetDryRatio())
	}
}

func TestBypassReturnsDryExactly(t *testing.T) {
	m := New()
	m.SetBypass(true)

	for _, ratio := range []float64{0, 0.3, 1} {
		if err := m.SetWetDryRatio(ratio); err != nil {
			t.Fatal(err)
		}
		_ = m.SetOutputGain(0.2)
		for _, dry := range []float64{-1, -0.123456789, 0, 0.75, 3} {
			if got := m.ProcessSample(dry, 0.9); got != dry {
				t.Fatalf("ratio %g: ProcessSample(%g) = %g", ratio, dry, got)
			}
		}
	}
}

func TestRatioEndpoints(t *testing.T) {
	m := New()
	dry := testutil.DeterministicNoise(1, 1, 256)
	wet := testutil.DeterministicNoise(2, 1, 256)

	_ = m.SetWetDryRatio(0)
	for i := range dry {
		if got := m.ProcessSample(dry[i], wet[i]); got != dry[i] {
			t.Fatalf("ratio 0 sample %d: got %g want %g", i, got, dry[i])
		}
	}

	_ = m.SetWetDryRatio(1)
	for i := range dry {
		if got := m.ProcessSample(dry[i], wet[i]); got != wet[i] {
			t.Fatalf("ratio 1 sample %d: got %g want %g", i, got, wet[i])
		}
	}
}

func TestBlendAndOutputGain(t *testing.T) {
	m := New()
	_ = m.SetWetDryRatio(0.25)
	_ = m.SetOutputGain(0.5)

	got := m.ProcessSample(1, -1)
	want := (0.75 - 0.25) * 0.5
	if math.Abs(got-want) > 1e-15 {
		t.Fatalf("ProcessSample() = %g, want %g", got, want)
	}
}

func TestSettersClamp(t *testing.T) {
	m := New()

	tests := []struct {
		name string
		set  func(float64) error
		get  func() float64
	}{
		{"pre gain", m.SetPreGain, m.PreGain},
		{"output gain", m.SetOutputGain, m.OutputGain},
		{"ratio", m.SetWetDryRatio, m.WetDryRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(2); err != nil || tt.get() != 1 {
				t.Fatalf("set(2): err=%v got=%g", err, tt.get())
			}
			if err := tt.set(-3); err != nil || tt.get() != 0 {
				t.Fatalf("set(-3): err=%v got=%g", err, tt.get())
			}
			if err := tt.set(math.NaN()); err == nil {
				t.Fatal("expected NaN error")
			}
			if tt.get() != 0 {
				t.Fatal("NaN must not change the value")
			}
		})
	}
}

func TestPrepareValidation(t *testing.T) {
	if err := New().Prepare(0); err == nil {
		t.Fatal("expected error")
	}
}

func TestProcessBlockMatchesSample(t *testing.T) {
	dry := testutil.DeterministicNoise(3, 1, 1000)
	wet := testutil.DeterministicNoise(4, 1, 1000)

	m := New()
	_ = m.SetWetDryRatio(0.3)
	_ = m.SetOutputGain(0.8)

	want := make([]float64, len(dry))
	for i := range dry {
		want[i] = m.ProcessSample(dry[i], wet[i])
	}

	for _, blockSize := range []int{0, 64, 1000, 4096} {
		if blockSize > 0 {
			if err := m.Prepare(blockSize); err != nil {
				t.Fatal(err)
			}
		}
		got := make([]float64, len(dry))
		m.ProcessBlock(got, dry, wet)
		testutil.RequireSliceNearlyEqual(t, got, want, 1e-15)
	}
}

func TestProcessBlockAliasing(t *testing.T) {
	dry := testutil.DeterministicNoise(5, 1, 128)
	wet := testutil.DeterministicNoise(6, 1, 128)

	m := New()
	_ = m.SetWetDryRatio(0.7)
	if err := m.Prepare(128); err != nil {
		t.Fatal(err)
	}

	want := make([]float64, len(dry))
	m.ProcessBlock(want, dry, wet)

	inDry := append([]float64(nil), dry...)
	m.ProcessBlock(inDry, inDry, wet)
	testutil.RequireSliceNearlyEqual(t, inDry, want, 0)

	inWet := append([]float64(nil), wet...)
	m.ProcessBlock(inWet, dry, inWet)
	testutil.RequireSliceNearlyEqual(t, inWet, want, 0)
}

func TestProcessBlockBypassCopiesDry(t *testing.T) {
	m := New()
	m.SetBypass(true)

	dry := []float64{0.1, -0.2, 0.3}
	dst := make([]float64, 3)
	m.ProcessBlock(dst, dry, []float64{9, 9, 9})
	testutil.RequireSliceNearlyEqual(t, dst, dry, 0)
}

func TestApplyPreGain(t *testing.T) {
	m := New()
	_ = m.SetPreGain(0.5)

	buf := []float64{1, -2, 4}
	m.ApplyPreGain(buf)
	testutil.RequireSliceNearlyEqual(t, buf, []float64{0.5, -1, 2}, 0)
}

func TestProcessBlockDoesNotAllocate(t *testing.T) {
	m := New()
	if err := m.Prepare(256); err != nil {
		t.Fatal(err)
	}
	dry := testutil.DeterministicNoise(1, 1, 256)
	wet := testutil.DeterministicNoise(2, 1, 256)
	dst := make([]float64, 256)

	allocs := testing.AllocsPerRun(100, func() {
		m.ProcessBlock(dst, dry, wet)
	})
	if allocs != 0 {
		t.Fatalf("ProcessBlock allocated %.1f times per run", allocs)
	}
}

func BenchmarkProcessBlock(b *testing.B) {
	m := New()
	if err := m.Prepare(512); err != nil {
		b.Fatal(err)
	}
	dry := testutil.DeterministicNoise(1, 1, 512)
	wet := testutil.DeterministicNoise(2, 1, 512)
	dst := make([]float64, 512)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.ProcessBlock(dst, dry, wet)
	}
}
