package response

import (
	"fmt"
)

// BlockProcessor processes channel-major audio in place.
// combbank.Engine satisfies it.
type BlockProcessor interface {
	ProcessBlock(buf [][]float64) error
}

// ImpulseResponse feeds a unit impulse followed by silence through p and
// returns length samples of its first channel. channels must match the
// layout p was prepared with.
func ImpulseResponse(p BlockProcessor, channels, length int) ([]float64, error) {
	if channels <= 0 || length <= 0 {
		return nil, fmt.Errorf("response: channels and length must be > 0: %d, %d", channels, length)
	}

	buf := make([][]float64, channels)
	for ch := range buf {
		buf[ch] = make([]float64, length)
		buf[ch][0] = 1
	}
	if err := p.ProcessBlock(buf); err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	return buf[0], nil
}
