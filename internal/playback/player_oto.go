//go:build !headless

package playback

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

const pollInterval = 20 * time.Millisecond

// Player plays float32 streams on the default audio device.
type Player struct {
	ctx      *oto.Context
	channels int
}

// NewPlayer opens the audio device. Only one Player may exist per process.
func NewPlayer(sampleRate, channels int, bufferSize time.Duration) (*Player, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("playback: invalid format %d Hz, %d channels", sampleRate, channels)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("playback: open device: %w", err)
	}
	<-ready

	return &Player{ctx: ctx, channels: channels}, nil
}

// Play streams src until it is exhausted and drained or ctx is done.
func (p *Player) Play(ctx context.Context, src io.Reader) error {
	player := p.ctx.NewPlayer(src)
	defer player.Close()

	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if err := player.Err(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}

// Close releases the device.
func (p *Player) Close() error {
	return p.ctx.Suspend()
}
