package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/cwbudde/algo-combbank/internal/playback"
	"github.com/cwbudde/algo-combbank/internal/wavio"
)

const playBlockSize = 256

func runPlay(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("play", "-in in.wav [flags]")
	in := fs.String("in", "", "input WAV file")
	loop := fs.Bool("loop", false, "repeat the input until interrupted")
	buffer := fs.Duration("buffer", 50*time.Millisecond, "device buffer duration")
	ef := registerEngineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := ef.initLogger(); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return fmt.Errorf("play: -in is required")
	}

	src, err := wavio.ReadFile(*in)
	if err != nil {
		return err
	}
	channels := len(src.Channels)

	eng, err := ef.engine(float64(src.SampleRate), playBlockSize, channels)
	if err != nil {
		return err
	}

	tailFrames := int(math.Min(eng.TailSeconds(), maxAutoTail) * float64(src.SampleRate))
	stream, err := playback.NewSource(eng, src.Channels, *loop, tailFrames)
	if err != nil {
		return err
	}

	player, err := playback.NewPlayer(src.SampleRate, channels, *buffer)
	if err != nil {
		return err
	}
	defer func() {
		if err := player.Close(); err != nil {
			logger.Warn("close player", "err", err)
		}
	}()

	logger.Info("playing", "path", *in, "rate", src.SampleRate, "channels", channels, "loop", *loop)
	err = player.Play(ctx, stream)
	played := time.Duration(float64(stream.FramesRead()) / float64(src.SampleRate) * float64(time.Second))
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "played %v\n", played.Round(time.Millisecond))
	return err
}
