package response

import (
	"github.com/cwbudde/algo-combbank/dsp/effects/comb"
	"github.com/cwbudde/algo-combbank/dsp/effects/combbank"
)

// Band is one resonance of a comb slot.
type Band struct {
	Slot        int
	Harmonic    int
	FrequencyHz float64
}

// Bands lists the resonances below Nyquist of every active slot whose
// ShowBands flag is set. The fundamental is the loop frequency
// sampleRate/(delay+1), which is where an undamped comb rings.
func Bands(s combbank.Snapshot, sampleRate float64) []Band {
	if sampleRate <= 0 {
		return nil
	}

	nyquist := sampleRate / 2
	var bands []Band
	for i, slot := range s.Slots {
		if !slot.Active || !slot.ShowBands {
			continue
		}
		f0 := sampleRate / float64(comb.DelaySamples(sampleRate, slot.FrequencyHz)+1)
		for k := 1; float64(k)*f0 < nyquist; k++ {
			bands = append(bands, Band{Slot: i, Harmonic: k, FrequencyHz: float64(k) * f0})
		}
	}
	return bands
}
