package comb

import (
	"fmt"

	"github.com/cwbudde/algo-combbank/dsp/core"
	"github.com/cwbudde/algo-combbank/dsp/internal/contract"
	"github.com/cwbudde/algo-vecmath"
)

// DefaultSlots is the number of comb slots in a default bank.
const DefaultSlots = 4

// Bank owns a fixed set of comb filters and outputs the mean of the active
// ones. With no comb active the bank is silent.
//
// The active count is derived while processing, so enabling or bypassing a
// slot through Slot(i) directly is always reflected in the average.
type Bank struct {
	slots   []*Filter
	acc     []float64
	scratch []float64
}

// NewBank creates a bank of n slots, each built with opts.
func NewBank(n int, opts ...Option) (*Bank, error) {
	if n <= 0 {
		return nil, fmt.Errorf("comb: bank needs at least one slot: %d", n)
	}

	b := &Bank{slots: make([]*Filter, n)}
	for i := range b.slots {
		f, err := New(opts...)
		if err != nil {
			return nil, err
		}
		b.slots[i] = f
	}
	return b, nil
}

// Prepare prepares every slot and sizes block scratch for maxBlockSize
// samples. It allocates.
func (b *Bank) Prepare(sampleRate float64, channels, maxBlockSize int) error {
	if maxBlockSize <= 0 {
		return fmt.Errorf("comb: max block size must be > 0: %d", maxBlockSize)
	}
	for i, f := range b.slots {
		if err := f.Prepare(sampleRate, channels); err != nil {
			return fmt.Errorf("comb: slot %d: %w", i, err)
		}
	}

	b.acc = core.EnsureLen(b.acc, maxBlockSize)
	b.scratch = core.EnsureLen(b.scratch, maxBlockSize)
	return nil
}

// Reset clears history in every slot.
func (b *Bank) Reset() {
	for _, f := range b.slots {
		f.Reset()
	}
}

// Len returns the number of slots.
func (b *Bank) Len() int { return len(b.slots) }

// Slot returns slot i, or nil when i is out of range.
func (b *Bank) Slot(i int) *Filter {
	if i < 0 || i >= len(b.slots) {
		return nil
	}
	return b.slots[i]
}

// ActiveCount returns how many slots are enabled.
func (b *Bank) ActiveCount() int {
	n := 0
	for _, f := range b.slots {
		if f.active {
			n++
		}
	}
	return n
}

// SetActive enables or bypasses slot i.
func (b *Bank) SetActive(i int, active bool) error {
	f := b.Slot(i)
	if f == nil {
		return fmt.Errorf("comb: slot %d out of range [0, %d)", i, len(b.slots))
	}
	f.SetActive(active)
	return nil
}

// SetFeedback forwards to slot i.
func (b *Bank) SetFeedback(i int, v float64) error {
	f := b.Slot(i)
	if f == nil {
		return fmt.Errorf("comb: slot %d out of range [0, %d)", i, len(b.slots))
	}
	return f.SetFeedback(v)
}

// SetLevel forwards to slot i.
func (b *Bank) SetLevel(i int, v float64) error {
	f := b.Slot(i)
	if f == nil {
		return fmt.Errorf("comb: slot %d out of range [0, %d)", i, len(b.slots))
	}
	return f.SetLevel(v)
}

// SetFrequency forwards to slot i.
func (b *Bank) SetFrequency(i int, hz float64) error {
	f := b.Slot(i)
	if f == nil {
		return fmt.Errorf("comb: slot %d out of range [0, %d)", i, len(b.slots))
	}
	return f.SetFrequency(hz)
}

// ProcessSample runs x through every active slot on channel ch and returns
// their mean.
func (b *Bank) ProcessSample(ch int, x float64) float64 {
	sum := 0.0
	count := 0
	for _, f := range b.slots {
		if !f.active {
			continue
		}
		sum += f.ProcessSample(ch, x)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum * (1 / float64(count))
}

// ProcessBlock processes in into out for channel ch. in and out may alias.
// Blocks longer than the prepared maximum are processed in chunks.
func (b *Bank) ProcessBlock(ch int, in, out []float64) {
	n := min(len(in), len(out))
	if len(b.scratch) == 0 {
		if contract.Enabled {
			contract.Failf("comb: bank processed before prepare")
		}
		core.Zero(out[:n])
		return
	}

	for start := 0; start < n; start += len(b.scratch) {
		end := min(start+len(b.scratch), n)
		b.processChunk(ch, in[start:end], out[start:end])
	}
}

func (b *Bank) processChunk(ch int, in, out []float64) {
	m := len(in)
	acc := b.acc[:m]
	tmp := b.scratch[:m]
	core.Zero(acc)

	count := 0
	for _, f := range b.slots {
		if !f.active {
			continue
		}
		f.ProcessBlock(ch, in, tmp)
		vecmath.AddBlockInPlace(acc, tmp)
		count++
	}

	if count == 0 {
		core.Zero(out)
		return
	}
	vecmath.ScaleBlock(out, acc, 1/float64(count))
}
