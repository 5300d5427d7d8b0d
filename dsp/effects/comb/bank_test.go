package comb

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-combbank/dsp/core"
	"github.com/cwbudde/algo-combbank/dsp/internal/contract"
	"github.com/cwbudde/algo-combbank/internal/testutil"
)

func mustBank(t *testing.T, n, channels, maxBlock int, opts ...Option) *Bank {
	t.Helper()

	b, err := NewBank(n, opts...)
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}
	if err := b.Prepare(testSampleRate, channels, maxBlock); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return b
}

func TestNewBankValidation(t *testing.T) {
	if _, err := NewBank(0); err == nil {
		t.Fatal("expected error for zero slots")
	}
	if _, err := NewBank(2, WithLevel(4)); err == nil {
		t.Fatal("expected option error")
	}

	b, err := NewBank(DefaultSlots)
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}
	if err := b.Prepare(testSampleRate, 1, 0); err == nil {
		t.Fatal("expected error for zero block size")
	}
}

func TestBankSlots(t *testing.T) {
	b := mustBank(t, DefaultSlots, 1, 64)

	if b.Len() != DefaultSlots {
		t.Fatalf("Len() = %d", b.Len())
	}
	if b.Slot(-1) != nil || b.Slot(DefaultSlots) != nil {
		t.Fatal("out-of-range Slot must return nil")
	}
	if b.ActiveCount() != DefaultSlots {
		t.Fatalf("ActiveCount() = %d, want %d", b.ActiveCount(), DefaultSlots)
	}

	if err := b.SetActive(1, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	b.Slot(2).SetActive(false)
	if b.ActiveCount() != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", b.ActiveCount())
	}
	if err := b.SetActive(9, true); err == nil {
		t.Fatal("expected out-of-range error")
	}

	if err := b.SetFeedback(0, 0.8); err != nil || b.Slot(0).Feedback() != 0.8 {
		t.Fatalf("SetFeedback: err=%v feedback=%g", err, b.Slot(0).Feedback())
	}
	if err := b.SetLevel(0, 0.5); err != nil || b.Slot(0).Level() != 0.5 {
		t.Fatalf("SetLevel: err=%v level=%g", err, b.Slot(0).Level())
	}
	if err := b.SetFrequency(0, 440); err != nil || b.Slot(0).DelaySamples() != 109 {
		t.Fatalf("SetFrequency: err=%v delay=%d", err, b.Slot(0).DelaySamples())
	}
	if err := b.SetFeedback(-1, 0.1); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if err := b.SetLevel(4, 0.1); err == nil {
		t.Fatal("expected out-of-range error")
	}
	if err := b.SetFrequency(4, 100); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestBankAveragesActiveSlots(t *testing.T) {
	b := mustBank(t, 3, 1, 64)
	freqs := []float64{220, 330, 0}
	refs := make([]*Filter, 2)
	for i := 0; i < 2; i++ {
		if err := b.Slot(i).SetFrequency(freqs[i]); err != nil {
			t.Fatal(err)
		}
		refs[i] = mustFilter(t, 1, WithFrequency(freqs[i]))
	}
	b.Slot(2).SetActive(false)

	in := testutil.DeterministicNoise(2, 0.5, 2000)
	for i, x := range in {
		got := b.ProcessSample(0, x)
		want := (refs[0].ProcessSample(0, x) + refs[1].ProcessSample(0, x)) / 2
		if d := got - want; d > 1e-15 || d < -1e-15 {
			t.Fatalf("sample %d: got %g want %g", i, got, want)
		}
	}
}

func TestBankSingleActiveSlotIsNotAttenuated(t *testing.T) {
	b := mustBank(t, DefaultSlots, 1, 64, WithFrequency(500))
	for i := 1; i < b.Len(); i++ {
		b.Slot(i).SetActive(false)
	}
	ref := mustFilter(t, 1, WithFrequency(500))

	in := testutil.DeterministicNoise(4, 0.5, 500)
	for i, x := range in {
		if got, want := b.ProcessSample(0, x), ref.ProcessSample(0, x); got != want {
			t.Fatalf("sample %d: got %g want %g", i, got, want)
		}
	}
}

func TestBankNoActiveSlotsIsSilent(t *testing.T) {
	b := mustBank(t, DefaultSlots, 1, 64, WithActive(false))

	if b.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d", b.ActiveCount())
	}

	in := testutil.DeterministicNoise(8, 1, 200)
	for i, x := range in {
		if y := b.ProcessSample(0, x); y != 0 {
			t.Fatalf("sample %d = %g, want 0", i, y)
		}
	}

	out := []float64{1, 1, 1, 1}
	b.ProcessBlock(0, in[:4], out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %g, want 0", i, v)
		}
	}
}

func TestBankBlockMatchesSample(t *testing.T) {
	in := testutil.DeterministicNoise(6, 0.7, 1000)

	block := mustBank(t, DefaultSlots, 1, 128)
	sample := mustBank(t, DefaultSlots, 1, 128)
	for i, hz := range []float64{110, 165, 220, 330} {
		_ = block.Slot(i).SetFrequency(hz)
		_ = sample.Slot(i).SetFrequency(hz)
	}
	block.Slot(3).SetActive(false)
	sample.Slot(3).SetActive(false)

	got := make([]float64, len(in))
	// Longer than the prepared block size, so it is processed in chunks.
	block.ProcessBlock(0, in, got)

	want := make([]float64, len(in))
	for i, x := range in {
		want[i] = sample.ProcessSample(0, x)
	}

	diff, err := testutil.MaxAbsDiff(got, want)
	if err != nil {
		t.Fatal(err)
	}
	if !core.NearlyEqual(diff, 0, 1e-12) {
		t.Fatalf("block and sample paths differ by %g", diff)
	}
}

func TestBankBlockInPlace(t *testing.T) {
	in := testutil.DeterministicNoise(12, 0.5, 256)

	a := mustBank(t, 2, 1, 256)
	b := mustBank(t, 2, 1, 256)
	_ = a.Slot(1).SetFrequency(440)
	_ = b.Slot(1).SetFrequency(440)

	want := make([]float64, len(in))
	a.ProcessBlock(0, in, want)

	buf := append([]float64(nil), in...)
	b.ProcessBlock(0, buf, buf)

	testutil.RequireSliceNearlyEqual(t, buf, want, 0)
}

func TestBankReset(t *testing.T) {
	b := mustBank(t, 2, 1, 64, WithFrequency(4000))

	out := make([]float64, 64)
	b.ProcessBlock(0, testutil.Impulse(64, 0), out)
	b.Reset()
	b.ProcessBlock(0, make([]float64, 64), out)

	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %g after reset, want 0", i, v)
		}
	}
}

func TestBankUnpreparedBlockIsSilent(t *testing.T) {
	if contract.Enabled {
		t.Skip("contract checks panic in debug builds")
	}

	b, err := NewBank(2)
	if err != nil {
		t.Fatal(err)
	}
	out := []float64{1, 2}
	b.ProcessBlock(0, []float64{1, 1}, out)
	if out[0] != 0 || out[1] != 0 {
		t.Fatalf("out = %v, want zeros", out)
	}
}

func TestBankProcessBlockDoesNotAllocate(t *testing.T) {
	b := mustBank(t, DefaultSlots, 2, 256)
	in := testutil.DeterministicNoise(1, 0.5, 256)
	out := make([]float64, len(in))

	allocs := testing.AllocsPerRun(100, func() {
		b.ProcessBlock(0, in, out)
		b.ProcessBlock(1, in, out)
	})
	if allocs != 0 {
		t.Fatalf("ProcessBlock allocated %.1f times per run", allocs)
	}
}

func BenchmarkBankProcessBlock(b *testing.B) {
	bank, err := NewBank(DefaultSlots, WithFeedback(0.9))
	if err != nil {
		b.Fatal(err)
	}
	if err := bank.Prepare(testSampleRate, 1, 512); err != nil {
		b.Fatal(err)
	}
	for i, hz := range []float64{110, 165, 220, 330} {
		_ = bank.Slot(i).SetFrequency(hz)
	}

	in := testutil.DeterministicNoise(1, 0.5, 512)
	out := make([]float64, len(in))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bank.ProcessBlock(0, in, out)
	}
}

func TestBankImpulseScenario(t *testing.T) {
	b := mustBank(t, DefaultSlots, 1, 64)
	for i := 1; i < b.Len(); i++ {
		b.Slot(i).SetActive(false)
	}
	slot := b.Slot(0)
	_ = slot.SetFeedback(0.5)
	_ = slot.SetLevel(0.25)
	slot.SetDelaySamples(4)

	out := make([]float64, 64)
	b.ProcessBlock(0, testutil.Impulse(len(out), 0), out)

	if got := testutil.FirstNonZero(out, 0); got != 5 {
		t.Fatalf("first non-zero sample = %d, want 5", got)
	}

	a := slot.damping[0].Coefficient()
	want := saturate(1) * (1 - a) * 0.25
	if math.Abs(out[5]-want) > 1e-15 {
		t.Fatalf("out[5] = %.17g, want %.17g", out[5], want)
	}
}
