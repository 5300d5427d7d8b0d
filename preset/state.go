package preset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/algo-combbank/dsp/effects/combbank"
)

// stateMagic starts every binary state blob.
const stateMagic = "CMBANK"

// stateVersion is the binary layout version.
const stateVersion uint32 = 1

// maxStateSlots bounds the slot count accepted from a blob.
const maxStateSlots = 1024

// ErrInvalidState is returned for blobs without the expected header.
var ErrInvalidState = errors.New("preset: invalid state format")

// Parameter IDs of the binary state. Global IDs are below slotParamBase;
// slot IDs are slotParamBase + slot*slotParamStride + field.
const (
	paramBypass uint32 = iota
	paramPreGain
	paramOutputGain
	paramWetDryRatio
	paramLowpassEnabled
	paramLowpassCutoff
	paramHighpassEnabled
	paramHighpassCutoff
)

const (
	slotParamBase   uint32 = 100
	slotParamStride uint32 = 8
)

const (
	slotActive uint32 = iota
	slotFrequency
	slotFeedback
	slotLevel
	slotShowBands
	slotFieldCount
)

type stateParam struct {
	ID    uint32
	Value float64
}

// WriteState writes s as a binary state blob: magic, version, slot count,
// parameter count, then little-endian (id uint32, value float64) pairs.
func WriteState(w io.Writer, s combbank.Snapshot) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("preset: %w", err)
	}

	params := stateParams(s)
	if _, err := io.WriteString(w, stateMagic); err != nil {
		return fmt.Errorf("preset: write state: %w", err)
	}
	header := []uint32{stateVersion, uint32(len(s.Slots)), uint32(len(params))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("preset: write state: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, params); err != nil {
		return fmt.Errorf("preset: write state: %w", err)
	}
	return nil
}

// ReadState reads a blob written by WriteState. Parameters missing from the
// blob keep their factory values and unknown IDs are skipped, so older and
// newer blobs of the same major version load.
func ReadState(r io.Reader) (combbank.Snapshot, error) {
	magic := make([]byte, len(stateMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return combbank.Snapshot{}, fmt.Errorf("preset: read state: %w", err)
	}
	if string(magic) != stateMagic {
		return combbank.Snapshot{}, ErrInvalidState
	}

	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return combbank.Snapshot{}, fmt.Errorf("preset: read state: %w", err)
	}
	version, slots, count := header[0], header[1], header[2]
	if version > stateVersion {
		return combbank.Snapshot{}, fmt.Errorf("preset: state version %d is newer than supported version %d", version, stateVersion)
	}
	if slots == 0 || slots > maxStateSlots {
		return combbank.Snapshot{}, fmt.Errorf("%w: slot count %d", ErrInvalidState, slots)
	}

	s := combbank.DefaultSnapshot(int(slots))
	for i := uint32(0); i < count; i++ {
		var p stateParam
		if err := binary.Read(r, binary.LittleEndian, &p); err != nil {
			return combbank.Snapshot{}, fmt.Errorf("preset: read state: %w", err)
		}
		applyStateParam(&s, p)
	}

	if err := s.Validate(); err != nil {
		return combbank.Snapshot{}, fmt.Errorf("preset: %w", err)
	}
	return s, nil
}

func stateParams(s combbank.Snapshot) []stateParam {
	params := []stateParam{
		{paramBypass, boolValue(s.Bypass)},
		{paramPreGain, s.PreGain},
		{paramOutputGain, s.OutputGain},
		{paramWetDryRatio, s.WetDryRatio},
		{paramLowpassEnabled, boolValue(s.Lowpass.Enabled)},
		{paramLowpassCutoff, s.Lowpass.CutoffHz},
		{paramHighpassEnabled, boolValue(s.Highpass.Enabled)},
		{paramHighpassCutoff, s.Highpass.CutoffHz},
	}
	for i, slot := range s.Slots {
		base := slotParamBase + uint32(i)*slotParamStride
		params = append(params,
			stateParam{base + slotActive, boolValue(slot.Active)},
			stateParam{base + slotFrequency, slot.FrequencyHz},
			stateParam{base + slotFeedback, slot.Feedback},
			stateParam{base + slotLevel, slot.Level},
			stateParam{base + slotShowBands, boolValue(slot.ShowBands)},
		)
	}
	return params
}

func applyStateParam(s *combbank.Snapshot, p stateParam) {
	switch p.ID {
	case paramBypass:
		s.Bypass = p.Value != 0
	case paramPreGain:
		s.PreGain = p.Value
	case paramOutputGain:
		s.OutputGain = p.Value
	case paramWetDryRatio:
		s.WetDryRatio = p.Value
	case paramLowpassEnabled:
		s.Lowpass.Enabled = p.Value != 0
	case paramLowpassCutoff:
		s.Lowpass.CutoffHz = p.Value
	case paramHighpassEnabled:
		s.Highpass.Enabled = p.Value != 0
	case paramHighpassCutoff:
		s.Highpass.CutoffHz = p.Value
	}

	if p.ID < slotParamBase {
		return
	}
	slot := int((p.ID - slotParamBase) / slotParamStride)
	field := (p.ID - slotParamBase) % slotParamStride
	if slot >= len(s.Slots) || field >= slotFieldCount {
		return
	}

	sp := &s.Slots[slot]
	switch field {
	case slotActive:
		sp.Active = p.Value != 0
	case slotFrequency:
		sp.FrequencyHz = p.Value
	case slotFeedback:
		sp.Feedback = p.Value
	case slotLevel:
		sp.Level = p.Value
	case slotShowBands:
		sp.ShowBands = p.Value != 0
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
