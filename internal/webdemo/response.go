package webdemo

import (
	"github.com/cwbudde/algo-combbank/dsp/core"
	"github.com/cwbudde/algo-combbank/dsp/effects/combbank"
	"github.com/cwbudde/algo-combbank/measure/response"
)

// ResponseCurveDB returns the bank's magnitude response in dB for freqs.
// The response is measured on a private copy of the bank, so the live
// audio state is untouched.
func (e *Engine) ResponseCurveDB(freqs []float64) []float64 {
	if e.responseDirty {
		if err := e.measureResponse(); err != nil {
			e.responseDB = nil
		}
		e.responseDirty = false
	}

	out := make([]float64, len(freqs))
	if len(e.responseDB) == 0 {
		for i := range out {
			out[i] = spectrumFloorDB
		}
		return out
	}

	size := e.analyzer.Config().FFTSize
	for i, f := range freqs {
		f = core.Clamp(f, 1, e.sampleRate*0.49)
		out[i] = interpolateBins(e.responseDB, f, e.sampleRate, size)
	}
	return out
}

func (e *Engine) measureResponse() error {
	snap := e.bank.Snapshot()
	shadow, err := combbank.New(combbank.WithSlots(len(snap.Slots)), combbank.WithSnapshot(snap))
	if err != nil {
		return err
	}
	size := e.analyzer.Config().FFTSize
	if err := shadow.Prepare(e.sampleRate, size, 1); err != nil {
		return err
	}

	ir, err := response.ImpulseResponse(shadow, 1, size)
	if err != nil {
		return err
	}
	curve, err := e.analyzer.Curve(ir)
	if err != nil {
		return err
	}

	e.responseDB = e.responseDB[:0]
	for _, p := range curve {
		e.responseDB = append(e.responseDB, p.MagnitudeDB)
	}
	return nil
}
