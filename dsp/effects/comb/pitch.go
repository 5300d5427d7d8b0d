package comb

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxDelaySamples bounds the delay line of one comb channel. At 48 kHz it
// covers resonances down to about 0.05 Hz.
const MaxDelaySamples = 1 << 20

// LongestDelay returns the longest delay, in samples, of a comb prepared at
// sampleRate for resonances down to minFrequencyHz: ceil(sampleRate/
// minFrequencyHz), at least 1 and at most MaxDelaySamples.
func LongestDelay(sampleRate, minFrequencyHz float64) int {
	if sampleRate <= 0 || minFrequencyHz <= 0 {
		return 1
	}
	d := math.Ceil(sampleRate / minFrequencyHz)
	switch {
	case math.IsNaN(d) || d < 1:
		return 1
	case d > MaxDelaySamples:
		return MaxDelaySamples
	}
	return int(d)
}

// DelaySamples converts a resonance frequency to a delay in samples,
// round(sampleRate/frequencyHz), never less than 1.
func DelaySamples(sampleRate, frequencyHz float64) int {
	if frequencyHz <= 0 || sampleRate <= 0 {
		return 1
	}
	d := math.Round(sampleRate / frequencyHz)
	if d < 1 || math.IsNaN(d) {
		return 1
	}
	if d > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(d)
}

// DecayTime estimates how long a comb with the given delay and feedback
// rings before its small-signal tail falls by 60 dB. One loop pass takes
// delaySamples+1 samples and scales the signal by feedback.
func DecayTime(sampleRate float64, delaySamples int, feedback float64) float64 {
	if sampleRate <= 0 {
		return 0
	}

	period := float64(delaySamples+1) / sampleRate
	switch {
	case feedback >= 1:
		return math.Inf(1)
	case feedback <= 0:
		return period
	}
	return period * (1 + 3/-math.Log10(feedback))
}

// NoteFrequency returns the equal-tempered frequency of a MIDI note number
// with A4 (69) at 440 Hz.
func NoteFrequency(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

var noteOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseNote parses a note name like "A4", "C#3" or "Eb2" into a MIDI note
// number. C4 is 60.
func ParseNote(name string) (int, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("comb: empty note name")
	}

	offset, ok := noteOffsets[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("comb: invalid note name %q", name)
	}
	s = s[1:]

	for len(s) > 0 && (s[0] == '#' || s[0] == 'b') {
		if s[0] == '#' {
			offset++
		} else {
			offset--
		}
		s = s[1:]
	}

	octave, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("comb: invalid octave in note %q: %w", name, err)
	}

	note := (octave+1)*12 + offset
	if note < 0 || note > 127 {
		return 0, fmt.Errorf("comb: note %q out of MIDI range", name)
	}
	return note, nil
}

// ParseFrequency accepts either a frequency in Hz ("110", "82.4") or a note
// name ("A2") and returns Hz.
func ParseFrequency(s string) (float64, error) {
	if hz, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
		}
		return hz, nil
	}

	note, err := ParseNote(s)
	if err != nil {
		return 0, err
	}
	return NoteFrequency(note), nil
}
