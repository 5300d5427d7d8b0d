// Package playback streams audio through the comb bank engine to the
// system audio device.
package playback

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync/atomic"
)

const bytesPerSample = 4

// Processor processes interleaved float32 audio in place.
// combbank.Engine satisfies it.
type Processor interface {
	ProcessInterleaved(buf []float32, channels int) error
}

// Source is an io.Reader of little-endian float32 interleaved frames. It
// reads the input planes, optionally looping, runs each chunk through a
// Processor and appends tailFrames of silence-driven output before EOF.
type Source struct {
	proc       Processor
	input      [][]float64
	channels   int
	loop       bool
	tailFrames int

	pos     int
	tail    int
	samples []float32
	frames  atomic.Int64
	err     error
}

// NewSource builds a Source over channel-major input. With loop set the
// input repeats until the reader is abandoned and no tail is played.
func NewSource(proc Processor, input [][]float64, loop bool, tailFrames int) (*Source, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("playback: no input channels")
	}
	frames := len(input[0])
	for ch, plane := range input {
		if len(plane) != frames {
			return nil, fmt.Errorf("playback: channel %d has %d frames, channel 0 has %d", ch, len(plane), frames)
		}
	}
	if loop && frames == 0 {
		return nil, fmt.Errorf("playback: cannot loop empty input")
	}

	return &Source{
		proc:       proc,
		input:      input,
		channels:   len(input),
		loop:       loop,
		tailFrames: max(tailFrames, 0),
	}, nil
}

// Channels returns the interleaved channel count.
func (s *Source) Channels() int { return s.channels }

// FramesRead returns how many frames have been produced so far. It is safe
// to call while another goroutine reads.
func (s *Source) FramesRead() int64 { return s.frames.Load() }

// Read fills p with whole frames. It returns io.EOF once the input and the
// tail are exhausted.
func (s *Source) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}

	frameBytes := s.channels * bytesPerSample
	want := len(p) / frameBytes
	if want == 0 {
		return 0, nil
	}
	if cap(s.samples) < want*s.channels {
		s.samples = make([]float32, want*s.channels)
	}

	n := 0
	samples := s.samples[:want*s.channels]
	for n < want {
		if !s.next(samples[n*s.channels : (n+1)*s.channels]) {
			break
		}
		n++
	}
	if n == 0 {
		s.err = io.EOF
		return 0, io.EOF
	}

	samples = samples[:n*s.channels]
	if err := s.proc.ProcessInterleaved(samples, s.channels); err != nil {
		s.err = fmt.Errorf("playback: %w", err)
		return 0, s.err
	}

	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(v))
	}
	s.frames.Add(int64(n))
	return n * frameBytes, nil
}

// next writes the next input frame into frame and reports whether one was
// available.
func (s *Source) next(frame []float32) bool {
	frames := len(s.input[0])
	if s.pos >= frames && s.loop {
		s.pos = 0
	}

	if s.pos < frames {
		for ch := range frame {
			frame[ch] = float32(s.input[ch][s.pos])
		}
		s.pos++
		return true
	}

	if s.tail < s.tailFrames {
		for ch := range frame {
			frame[ch] = 0
		}
		s.tail++
		return true
	}
	return false
}
