//go:build headless

package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Player drains streams without an audio device, for CI and servers.
type Player struct {
	channels int
}

// NewPlayer returns a silent player.
func NewPlayer(sampleRate, channels int, _ time.Duration) (*Player, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("playback: invalid format %d Hz, %d channels", sampleRate, channels)
	}
	return &Player{channels: channels}, nil
}

// Play reads src to the end or until ctx is done.
func (p *Player) Play(ctx context.Context, src io.Reader) error {
	buf := make([]byte, 4096*p.channels)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := src.Read(buf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("playback: %w", err)
		}
	}
}

// Close is a no-op.
func (p *Player) Close() error { return nil }
