package combbank

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-combbank/dsp/core"
	"github.com/cwbudde/algo-combbank/dsp/effects/comb"
	"github.com/cwbudde/algo-combbank/dsp/filter/onepole"
	"github.com/cwbudde/algo-combbank/dsp/internal/contract"
	"github.com/cwbudde/algo-combbank/dsp/mix"
	"github.com/cwbudde/algo-vecmath"
)

var (
	// ErrNotPrepared is returned when processing before a successful Prepare.
	ErrNotPrepared = errors.New("combbank: engine not prepared")
	// ErrSlotOutOfRange is returned for slot indices outside the bank.
	ErrSlotOutOfRange = errors.New("combbank: slot out of range")
	// ErrChannelMismatch is returned when a buffer's channel layout differs
	// from the prepared one.
	ErrChannelMismatch = errors.New("combbank: channel mismatch")
)

// Engine is a comb filter bank effect with dry/wet mixing and a tone stage.
type Engine struct {
	// Control side.
	mu      sync.Mutex
	params  atomic.Pointer[Snapshot]
	reset   atomic.Bool
	levels  []atomic.Uint64
	rate    atomic.Uint64
	slotCnt int
	minHz   float64

	// Audio side, owned by the goroutine calling ProcessBlock.
	applied  *Snapshot
	bank     *comb.Bank
	mixer    *mix.Mixer
	lowpass  []onepole.Lowpass
	highpass []onepole.Highpass

	cfg      core.ProcessorConfig
	prepared bool
	dry      []float64
	wet      []float64
	square   []float64
	planes   [][]float64
	view     [][]float64
}

// New creates an unprepared engine.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	bank, err := comb.NewBank(cfg.slots, cfg.combOpts...)
	if err != nil {
		return nil, fmt.Errorf("combbank: %w", err)
	}

	snap := DefaultSnapshot(cfg.slots)
	if cfg.snapshot != nil {
		if len(cfg.snapshot.Slots) != cfg.slots {
			return nil, fmt.Errorf("%w: snapshot has %d slots, bank has %d",
				ErrSlotOutOfRange, len(cfg.snapshot.Slots), cfg.slots)
		}
		snap = *cfg.snapshot
	}

	e := &Engine{
		bank:    bank,
		mixer:   mix.New(),
		slotCnt: cfg.slots,
		minHz:   bank.Slot(0).MinFrequency(),
	}
	e.params.Store(&snap)
	return e, nil
}

// Prepare sizes every buffer for the given stream format and clears all
// state. It allocates and must not run concurrently with processing.
func (e *Engine) Prepare(sampleRate float64, maxBlockSize, channels int) error {
	return e.PrepareConfig(core.ProcessorConfig{
		SampleRate: sampleRate,
		BlockSize:  maxBlockSize,
		Channels:   channels,
	})
}

// PrepareConfig is Prepare taking a core.ProcessorConfig.
func (e *Engine) PrepareConfig(cfg core.ProcessorConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("combbank: %w", err)
	}

	e.prepared = false
	if err := e.bank.Prepare(cfg.SampleRate, cfg.Channels, cfg.BlockSize); err != nil {
		return fmt.Errorf("combbank: %w", err)
	}
	if err := e.mixer.Prepare(cfg.BlockSize); err != nil {
		return fmt.Errorf("combbank: %w", err)
	}

	e.lowpass = make([]onepole.Lowpass, cfg.Channels)
	e.highpass = make([]onepole.Highpass, cfg.Channels)
	for ch := 0; ch < cfg.Channels; ch++ {
		if err := e.lowpass[ch].Prepare(cfg.SampleRate, defaultLowpassHz); err != nil {
			return fmt.Errorf("combbank: %w", err)
		}
		if err := e.highpass[ch].Prepare(cfg.SampleRate, defaultHighpassHz); err != nil {
			return fmt.Errorf("combbank: %w", err)
		}
	}

	e.dry = make([]float64, cfg.BlockSize)
	e.wet = make([]float64, cfg.BlockSize)
	e.square = make([]float64, cfg.BlockSize)
	e.planes = make([][]float64, cfg.Channels)
	for ch := range e.planes {
		e.planes[ch] = make([]float64, cfg.BlockSize)
	}
	e.view = make([][]float64, cfg.Channels)
	e.levels = make([]atomic.Uint64, cfg.Channels)

	e.cfg = cfg
	e.rate.Store(math.Float64bits(cfg.SampleRate))
	e.applied = nil
	e.reset.Store(false)
	e.applyParams()
	e.prepared = true
	return nil
}

// Reset asks the audio goroutine to clear all delay and filter history at
// the start of the next block. Parameters are kept.
func (e *Engine) Reset() {
	e.reset.Store(true)
}

// ProcessBlock processes channel-major audio in place. Every plane must have
// the same length and len(buf) must equal the prepared channel count.
// Blocks longer than the prepared maximum are split internally.
func (e *Engine) ProcessBlock(buf [][]float64) error {
	if !e.prepared {
		return ErrNotPrepared
	}
	if len(buf) != e.cfg.Channels {
		return fmt.Errorf("%w: got %d planes, prepared %d", ErrChannelMismatch, len(buf), e.cfg.Channels)
	}
	frames := len(buf[0])
	for ch := 1; ch < len(buf); ch++ {
		if len(buf[ch]) != frames {
			return fmt.Errorf("%w: plane %d has %d frames, plane 0 has %d",
				ErrChannelMismatch, ch, len(buf[ch]), frames)
		}
	}

	e.beginBlock()
	for start := 0; start < frames; start += e.cfg.BlockSize {
		end := min(start+e.cfg.BlockSize, frames)
		for ch := range buf {
			e.view[ch] = buf[ch][start:end]
		}
		e.process(e.view)
	}
	return nil
}

// ProcessInterleaved processes sample-major float32 audio in place.
// A trailing partial frame is left untouched.
func (e *Engine) ProcessInterleaved(buf []float32, channels int) error {
	if !e.prepared {
		return ErrNotPrepared
	}
	if channels != e.cfg.Channels {
		return fmt.Errorf("%w: got %d channels, prepared %d", ErrChannelMismatch, channels, e.cfg.Channels)
	}

	e.beginBlock()
	for offset := 0; offset+channels <= len(buf); {
		n := core.Deinterleave(e.planes, buf[offset:])
		for ch := range e.planes {
			e.view[ch] = e.planes[ch][:n]
		}
		e.process(e.view)
		core.Interleave(buf[offset:], e.view, n)
		offset += n * channels
	}
	return nil
}

// beginBlock honours a pending reset and applies the newest parameters.
func (e *Engine) beginBlock() {
	if e.reset.Swap(false) {
		e.clearState()
	}
	if e.params.Load() != e.applied {
		e.applyParams()
	}
}

// process runs one chunk of at most BlockSize frames.
func (e *Engine) process(planes [][]float64) {
	if e.applied.Bypass {
		for ch, plane := range planes {
			e.meter(ch, plane)
		}
		return
	}

	p := e.applied
	for ch, plane := range planes {
		n := len(plane)
		dry := e.dry[:n]
		wet := e.wet[:n]
		copy(dry, plane)
		copy(wet, plane)

		e.mixer.ApplyPreGain(wet)
		e.bank.ProcessBlock(ch, wet, wet)
		e.mixer.ProcessBlock(plane, dry, wet)

		if p.Lowpass.Enabled {
			e.lowpass[ch].ProcessBlock(plane)
		}
		if p.Highpass.Enabled {
			e.highpass[ch].ProcessBlock(plane)
		}
		e.meter(ch, plane)
	}
}

func (e *Engine) meter(ch int, plane []float64) {
	if len(plane) == 0 {
		return
	}
	sq := e.square[:len(plane)]
	vecmath.MulBlock(sq, plane, plane)

	sum := 0.0
	for _, v := range sq {
		sum += v
	}
	e.levels[ch].Store(math.Float64bits(math.Sqrt(sum / float64(len(sq)))))
}

func (e *Engine) clearState() {
	e.bank.Reset()
	for ch := range e.lowpass {
		e.lowpass[ch].Reset()
		e.highpass[ch].Reset()
	}
}

// applyParams pushes the newest Snapshot into the DSP objects. Only changed
// fields are written, so an unchanged pitch never disturbs a delay. Every
// value was validated when the Snapshot was published.
func (e *Engine) applyParams() {
	next := e.params.Load()
	prev := e.applied

	for i, slot := range next.Slots {
		f := e.bank.Slot(i)
		if prev != nil && prev.Slots[i] == slot {
			continue
		}
		f.SetActive(slot.Active)
		checkApplied(f.SetFeedback(slot.Feedback))
		checkApplied(f.SetLevel(slot.Level))
		if f.Frequency() != slot.FrequencyHz || prev == nil {
			checkApplied(f.SetFrequency(slot.FrequencyHz))
		}
	}

	e.mixer.SetBypass(next.Bypass)
	checkApplied(e.mixer.SetPreGain(next.PreGain))
	checkApplied(e.mixer.SetOutputGain(next.OutputGain))
	checkApplied(e.mixer.SetWetDryRatio(next.WetDryRatio))

	if prev == nil || prev.Lowpass.CutoffHz != next.Lowpass.CutoffHz {
		for ch := range e.lowpass {
			checkApplied(e.lowpass[ch].SetCutoff(next.Lowpass.CutoffHz))
		}
	}
	if prev == nil || prev.Highpass.CutoffHz != next.Highpass.CutoffHz {
		for ch := range e.highpass {
			checkApplied(e.highpass[ch].SetCutoff(next.Highpass.CutoffHz))
		}
	}

	e.applied = next
}

// checkApplied reports a setter error on an already validated value. Release
// builds ignore it; debug builds panic.
func checkApplied(err error) {
	if contract.Enabled && err != nil {
		contract.Failf("combbank: apply validated parameter: %v", err)
	}
}

// update publishes a modified copy of the current Snapshot.
func (e *Engine) update(fn func(*Snapshot) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.params.Load().Clone()
	if err := fn(&next); err != nil {
		return err
	}
	e.params.Store(&next)
	return nil
}

func (e *Engine) updateSlot(slot int, fn func(*SlotParams) error) error {
	if slot < 0 || slot >= e.slotCnt {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSlotOutOfRange, slot, e.slotCnt)
	}
	return e.update(func(s *Snapshot) error {
		return fn(&s.Slots[slot])
	})
}

// SetCombActive enables or bypasses one comb slot.
func (e *Engine) SetCombActive(slot int, active bool) error {
	return e.updateSlot(slot, func(p *SlotParams) error {
		p.Active = active
		return nil
	})
}

// SetCombFeedback sets the feedback of one slot, clamped to [0, 1].
func (e *Engine) SetCombFeedback(slot int, v float64) error {
	return e.updateSlot(slot, func(p *SlotParams) error {
		return setUnit(&p.Feedback, v, "feedback")
	})
}

// SetCombLevel sets the output level of one slot, clamped to [0, 1].
func (e *Engine) SetCombLevel(slot int, v float64) error {
	return e.updateSlot(slot, func(p *SlotParams) error {
		return setUnit(&p.Level, v, "level")
	})
}

// SetCombPitch sets the resonance frequency of one slot in Hz.
func (e *Engine) SetCombPitch(slot int, hz float64) error {
	if err := validateFrequency(hz); err != nil {
		return err
	}
	return e.updateSlot(slot, func(p *SlotParams) error {
		p.FrequencyHz = hz
		return nil
	})
}

// SetCombShowBands sets the band display flag of one slot. It does not
// affect processing.
func (e *Engine) SetCombShowBands(slot int, show bool) error {
	return e.updateSlot(slot, func(p *SlotParams) error {
		p.ShowBands = show
		return nil
	})
}

// SetWetDryRatio sets the blend, 0 = dry and 1 = wet, clamped to [0, 1].
func (e *Engine) SetWetDryRatio(v float64) error {
	return e.update(func(s *Snapshot) error {
		return setUnit(&s.WetDryRatio, v, "wet/dry ratio")
	})
}

// SetBypass turns bypass on or off. A bypassed engine passes input through
// unchanged and freezes all DSP state.
func (e *Engine) SetBypass(bypass bool) error {
	return e.update(func(s *Snapshot) error {
		s.Bypass = bypass
		return nil
	})
}

// SetPreGain sets the gain ahead of the comb bank, clamped to [0, 1].
func (e *Engine) SetPreGain(v float64) error {
	return e.update(func(s *Snapshot) error {
		return setUnit(&s.PreGain, v, "pre gain")
	})
}

// SetOutputGain sets the gain after mixing, clamped to [0, 1].
func (e *Engine) SetOutputGain(v float64) error {
	return e.update(func(s *Snapshot) error {
		return setUnit(&s.OutputGain, v, "output gain")
	})
}

// SetLowpass configures the post-mix lowpass tone filter.
func (e *Engine) SetLowpass(enabled bool, cutoffHz float64) error {
	if err := validateFrequency(cutoffHz); err != nil {
		return fmt.Errorf("combbank: lowpass: %w", err)
	}
	return e.update(func(s *Snapshot) error {
		s.Lowpass = ToneParams{Enabled: enabled, CutoffHz: cutoffHz}
		return nil
	})
}

// SetHighpass configures the post-mix highpass tone filter.
func (e *Engine) SetHighpass(enabled bool, cutoffHz float64) error {
	if err := validateFrequency(cutoffHz); err != nil {
		return fmt.Errorf("combbank: highpass: %w", err)
	}
	return e.update(func(s *Snapshot) error {
		s.Highpass = ToneParams{Enabled: enabled, CutoffHz: cutoffHz}
		return nil
	})
}

// Snapshot returns a copy of the newest published parameters.
func (e *Engine) Snapshot() Snapshot {
	return e.params.Load().Clone()
}

// Restore replaces every parameter with s. It fails without side effects
// when s is invalid or has a different slot count.
func (e *Engine) Restore(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if len(s.Slots) != e.slotCnt {
		return fmt.Errorf("%w: snapshot has %d slots, bank has %d", ErrSlotOutOfRange, len(s.Slots), e.slotCnt)
	}
	return e.update(func(next *Snapshot) error {
		*next = s.Clone()
		return nil
	})
}

// Slots returns the number of comb slots.
func (e *Engine) Slots() int { return e.slotCnt }

// SampleRate returns the prepared sample rate, 0 before Prepare.
func (e *Engine) SampleRate() float64 {
	return math.Float64frombits(e.rate.Load())
}

// OutputLevel returns the RMS level of the last processed chunk of
// channel ch, 0 for unknown channels.
func (e *Engine) OutputLevel(ch int) float64 {
	if ch < 0 || ch >= len(e.levels) {
		return 0
	}
	return math.Float64frombits(e.levels[ch].Load())
}

// TailSeconds estimates how long the output keeps ringing after the input
// stops: the slowest active comb's time to decay by 60 dB. It returns 0 when
// bypassed, unprepared or with no active comb, and +Inf when an active comb
// has feedback 1.
func (e *Engine) TailSeconds() float64 {
	rate := e.SampleRate()
	s := e.params.Load()
	if rate <= 0 || s.Bypass || s.WetDryRatio == 0 {
		return 0
	}

	tail := 0.0
	for _, slot := range s.Slots {
		if !slot.Active || slot.Level == 0 {
			continue
		}
		delay := min(comb.DelaySamples(rate, slot.FrequencyHz), comb.LongestDelay(rate, e.minHz))
		d := comb.DecayTime(rate, delay, slot.Feedback)
		tail = max(tail, d)
	}
	return tail
}

func setUnit(dst *float64, v float64, name string) error {
	if math.IsNaN(v) {
		return fmt.Errorf("combbank: %s must not be NaN", name)
	}
	*dst = core.Clamp01(v)
	return nil
}
