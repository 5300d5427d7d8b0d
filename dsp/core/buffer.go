package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// Deinterleave splits sample-major float32 frames into channel-major planes.
// Returns the number of frames written, bounded by the shortest plane.
func Deinterleave(dst [][]float64, src []float32) int {
	channels := len(dst)
	if channels == 0 {
		return 0
	}

	frames := len(src) / channels
	for _, plane := range dst {
		if len(plane) < frames {
			frames = len(plane)
		}
	}

	for i := 0; i < frames; i++ {
		base := i * channels
		for ch := range dst {
			dst[ch][i] = float64(src[base+ch])
		}
	}
	return frames
}

// Interleave writes the first frames samples of channel-major planes into
// sample-major float32 frames.
func Interleave(dst []float32, src [][]float64, frames int) {
	channels := len(src)
	for i := 0; i < frames; i++ {
		base := i * channels
		for ch := range src {
			dst[base+ch] = float32(src[ch][i])
		}
	}
}
