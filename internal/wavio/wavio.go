// Package wavio reads and writes PCM WAV files as channel-major float64
// planes in [-1, 1].
package wavio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcmFormat = 1

// ErrUnsupported is returned for WAV encodings other than 16, 24 or 32 bit
// integer PCM.
var ErrUnsupported = errors.New("wavio: unsupported wav encoding")

// Audio is decoded multi-channel audio.
type Audio struct {
	SampleRate int
	BitDepth   int
	Channels   [][]float64
}

// Frames returns the number of frames per channel.
func (a *Audio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Read decodes a whole WAV stream.
func Read(r io.ReadSeeker) (*Audio, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wavio: not a valid wav file")
	}
	if dec.WavAudioFormat != pcmFormat || !supportedDepth(int(dec.BitDepth)) {
		return nil, fmt.Errorf("%w: format %d, %d bit", ErrUnsupported, dec.WavAudioFormat, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavio: decode: %w", err)
	}

	channels := int(dec.NumChans)
	if channels <= 0 {
		return nil, fmt.Errorf("wavio: invalid channel count %d", channels)
	}

	frames := len(buf.Data) / channels
	scale := 1 / math.Exp2(float64(dec.BitDepth-1))
	out := &Audio{
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
		Channels:   make([][]float64, channels),
	}
	for ch := range out.Channels {
		out.Channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out.Channels[ch][i] = float64(buf.Data[i*channels+ch]) * scale
		}
	}
	return out, nil
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavio: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Write encodes a as integer PCM. Samples are clipped to [-1, 1].
func Write(w io.WriteSeeker, a *Audio) error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("wavio: sample rate must be > 0: %d", a.SampleRate)
	}
	if len(a.Channels) == 0 {
		return fmt.Errorf("wavio: no channels")
	}
	if !supportedDepth(a.BitDepth) {
		return fmt.Errorf("%w: %d bit", ErrUnsupported, a.BitDepth)
	}

	channels := len(a.Channels)
	frames := a.Frames()
	for ch, plane := range a.Channels {
		if len(plane) != frames {
			return fmt.Errorf("wavio: channel %d has %d frames, channel 0 has %d", ch, len(plane), frames)
		}
	}

	full := math.Exp2(float64(a.BitDepth-1)) - 1
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := math.Max(-1, math.Min(1, a.Channels[ch][i]))
			if math.IsNaN(v) {
				v = 0
			}
			data[i*channels+ch] = int(math.Round(v * full))
		}
	}

	enc := wav.NewEncoder(w, a.SampleRate, a.BitDepth, channels, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: a.SampleRate},
		Data:           data,
		SourceBitDepth: a.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavio: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: encode: %w", err)
	}
	return nil
}

// WriteFile encodes a into a new file at path.
func WriteFile(path string, a *Audio) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: %w", err)
	}

	if err := Write(f, a); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("wavio: %w", err)
	}
	return nil
}

func supportedDepth(bits int) bool {
	return bits == 16 || bits == 24 || bits == 32
}
