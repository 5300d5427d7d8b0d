package delay

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-combbank/dsp/internal/contract"
	"github.com/cwbudde/algo-combbank/internal/testutil"
)

// --- construction and validation ---

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for capacity=0")
	}

	if _, err := New(-1); err == nil {
		t.Fatal("expected error for capacity=-1")
	}
}

func TestNewIsSilent(t *testing.T) {
	r, err := New(16)
	if err != nil {
		t.Fatal(err)
	}

	if r.Len() != 16 {
		t.Fatalf("Len: got %d want 16", r.Len())
	}

	for d := 0; d < r.Len(); d++ {
		if got := r.Read(d); got != 0 {
			t.Fatalf("Read(%d) = %v, want 0", d, got)
		}
	}
}

// --- push/read contract ---

func TestSilencePushesReadZero(t *testing.T) {
	for capacity := 1; capacity <= 33; capacity++ {
		r, err := New(capacity)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < capacity; i++ {
			r.Push(0)
		}
		for d := 0; d < capacity; d++ {
			if got := r.Read(d); got != 0 {
				t.Fatalf("capacity %d Read(%d) = %v, want 0", capacity, d, got)
			}
		}
	}
}

func TestRoundTripSequence(t *testing.T) {
	const capacity = 8

	for k := 0; k < capacity; k++ {
		r, err := New(capacity)
		if err != nil {
			t.Fatal(err)
		}

		seq := testutil.DeterministicNoise(int64(k+1), 1, k+1)
		for _, s := range seq {
			r.Push(s)
		}

		for i := 0; i <= k; i++ {
			if got := r.Read(k - i); got != seq[i] {
				t.Fatalf("k=%d Read(%d) = %v, want s%d=%v", k, k-i, got, i, seq[i])
			}
		}
	}
}

func TestReadWraparound(t *testing.T) {
	r, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		r.Push(float64(i))
	}

	want := []float64{9, 8, 7, 6}
	for d, w := range want {
		if got := r.Read(d); got != w {
			t.Fatalf("Read(%d) = %v, want %v", d, got, w)
		}
	}
}

func TestMostRecent(t *testing.T) {
	r, err := New(3)
	if err != nil {
		t.Fatal(err)
	}

	r.Push(0.25)
	r.Push(-0.5)

	if got := r.MostRecent(); got != -0.5 {
		t.Fatalf("MostRecent = %v, want -0.5", got)
	}
	if got := r.MostRecent(); got != -0.5 {
		t.Fatalf("MostRecent mutated ring: %v", got)
	}
}

func TestReadOutOfRangeClamped(t *testing.T) {
	if contract.Enabled {
		t.Skip("out-of-range reads panic in debug builds")
	}

	r, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 4; i++ {
		r.Push(float64(i))
	}

	if got := r.Read(-3); got != 4 {
		t.Fatalf("Read(-3) = %v, want clamp to Read(0)=4", got)
	}
	if got := r.Read(100); got != 1 {
		t.Fatalf("Read(100) = %v, want clamp to Read(3)=1", got)
	}
}

// --- lifecycle ---

func TestClearKeepsCapacity(t *testing.T) {
	r, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	r.Push(1)
	r.Push(2)
	r.Clear()

	if r.Len() != 4 {
		t.Fatalf("Len after Clear = %d, want 4", r.Len())
	}
	for d := 0; d < 4; d++ {
		if got := r.Read(d); got != 0 {
			t.Fatalf("after Clear Read(%d) = %v, want 0", d, got)
		}
	}

	r.Push(3)
	if got := r.MostRecent(); got != 3 {
		t.Fatalf("MostRecent after Clear+Push = %v, want 3", got)
	}
}

func TestResize(t *testing.T) {
	r, err := New(8)
	if err != nil {
		t.Fatal(err)
	}
	r.Push(1)

	if err := r.Resize(4); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 4 {
		t.Fatalf("Len = %d, want 4", r.Len())
	}
	for d := 0; d < r.Len(); d++ {
		if got := r.Read(d); got != 0 {
			t.Fatalf("Read(%d) after Resize = %v, want 0", d, got)
		}
	}

	if err := r.Resize(32); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 32 {
		t.Fatalf("Len = %d, want 32", r.Len())
	}

	if err := r.Resize(0); err == nil {
		t.Fatal("expected error for Resize(0)")
	}
}

func TestPushDoesNotAllocate(t *testing.T) {
	r, err := New(64)
	if err != nil {
		t.Fatal(err)
	}

	allocs := testing.AllocsPerRun(100, func() {
		r.Push(math.Pi)
		_ = r.Read(17)
	})
	if allocs != 0 {
		t.Fatalf("allocs = %v, want 0", allocs)
	}
}

// --- benchmarks ---

func BenchmarkPushRead(b *testing.B) {
	r, _ := New(1024)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		r.Push(r.Read(511))
	}
}
