// Package delay provides fixed-capacity circular delay lines.
package delay

import (
	"fmt"

	"github.com/cwbudde/algo-combbank/dsp/internal/contract"
)

// Ring is a circular delay line whose cursor moves backward on every push.
//
// Read(d) returns the sample pushed exactly d+1 pushes ago, so Read(0) is
// the most recent sample. Capacity is fixed between Resize calls; Resize
// belongs to the prepare/reset phase and never to the per-sample loop.
//
// Ring is not safe for concurrent use.
type Ring struct {
	buffer []float64
	cursor int
}

// New returns a silent ring of the given capacity.
func New(capacity int) (*Ring, error) {
	r := &Ring{}
	if err := r.Resize(capacity); err != nil {
		return nil, err
	}
	return r, nil
}

// Resize reallocates the ring to capacity samples of silence and resets the
// cursor. The backing array is reused when it is large enough.
func (r *Ring) Resize(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("delay: capacity must be > 0: %d", capacity)
	}

	if cap(r.buffer) >= capacity {
		r.buffer = r.buffer[:capacity]
	} else {
		r.buffer = make([]float64, capacity)
	}
	r.Clear()
	r.cursor = 0
	return nil
}

// Len returns the ring capacity in samples.
func (r *Ring) Len() int {
	return len(r.buffer)
}

// Clear fills the ring with silence. Capacity and cursor are unchanged.
func (r *Ring) Clear() {
	for i := range r.buffer {
		r.buffer[i] = 0
	}
}

// Push writes x at the cursor and moves the cursor back one slot.
func (r *Ring) Push(x float64) {
	r.buffer[r.cursor] = x
	if r.cursor == 0 {
		r.cursor = len(r.buffer) - 1
	} else {
		r.cursor--
	}
}

// Read returns the sample pushed d+1 pushes ago. d must lie in
// [0, Len()); out-of-range values are clamped, or panic in debug builds.
func (r *Ring) Read(d int) float64 {
	size := len(r.buffer)
	if size == 0 {
		if contract.Enabled {
			contract.Failf("delay: read from unsized ring")
		}
		return 0
	}

	if d < 0 || d >= size {
		if contract.Enabled {
			contract.Failf("delay: read delay %d outside [0, %d)", d, size)
		}
		if d < 0 {
			d = 0
		} else {
			d = size - 1
		}
	}

	idx := r.cursor + 1 + d
	if idx >= size {
		idx -= size
	}
	return r.buffer[idx]
}

// MostRecent returns the last pushed sample without mutating the ring.
func (r *Ring) MostRecent() float64 {
	return r.Read(0)
}
