package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/cwbudde/algo-combbank/internal/wavio"
)

const (
	renderBlockSize = 512
	maxAutoTail     = 10.0
)

func runRender(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("render", "-in in.wav -out out.wav [flags]")
	in := fs.String("in", "", "input WAV file")
	out := fs.String("out", "", "output WAV file")
	tail := fs.Float64("tail", -1, "seconds of ring-out appended after the input; negative estimates it from the decay time")
	bits := fs.Int("bits", 0, "output bit depth 16, 24 or 32 (default: input depth)")
	ef := registerEngineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := ef.initLogger(); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		fs.Usage()
		return fmt.Errorf("render: -in and -out are required")
	}

	src, err := wavio.ReadFile(*in)
	if err != nil {
		return err
	}
	logger.Info("read input", "path", *in, "rate", src.SampleRate, "bits", src.BitDepth,
		"channels", len(src.Channels), "frames", src.Frames())

	eng, err := ef.engine(float64(src.SampleRate), renderBlockSize, len(src.Channels))
	if err != nil {
		return err
	}

	tailSeconds := *tail
	if tailSeconds < 0 {
		tailSeconds = math.Min(eng.TailSeconds(), maxAutoTail)
	}
	tailFrames := int(math.Ceil(tailSeconds * float64(src.SampleRate)))

	frames := src.Frames() + tailFrames
	planes := make([][]float64, len(src.Channels))
	for ch := range planes {
		planes[ch] = make([]float64, frames)
		copy(planes[ch], src.Channels[ch])
	}

	start := time.Now()
	view := make([][]float64, len(planes))
	for pos := 0; pos < frames; pos += renderBlockSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(pos+renderBlockSize, frames)
		for ch := range planes {
			view[ch] = planes[ch][pos:end]
		}
		if err := eng.ProcessBlock(view); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	depth := src.BitDepth
	if *bits != 0 {
		depth = *bits
	}
	if err := wavio.WriteFile(*out, &wavio.Audio{
		SampleRate: src.SampleRate,
		BitDepth:   depth,
		Channels:   planes,
	}); err != nil {
		return err
	}

	audioSeconds := float64(frames) / float64(src.SampleRate)
	logger.Info("rendered", "path", *out, "seconds", audioSeconds, "elapsed", elapsed)
	_, err = fmt.Fprintf(stdout, "wrote %s: %d frames (%.2fs, %.2fs tail) in %v\n",
		*out, frames, audioSeconds, tailSeconds, elapsed.Round(time.Millisecond))
	return err
}
