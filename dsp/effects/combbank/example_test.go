package combbank_test

import (
	"fmt"

	"github.com/cwbudde/algo-combbank/dsp/effects/combbank"
)

func ExampleEngine() {
	e, err := combbank.New()
	if err != nil {
		panic(err)
	}
	if err := e.Prepare(48000, 256, 2); err != nil {
		panic(err)
	}
	_ = e.SetWetDryRatio(0.7)
	_ = e.SetCombPitch(0, 98)

	buf := [][]float64{make([]float64, 256), make([]float64, 256)}
	buf[0][0], buf[1][0] = 1, 1
	if err := e.ProcessBlock(buf); err != nil {
		panic(err)
	}

	fmt.Printf("dry part: %.2f\n", buf[0][0])
	// Output: dry part: 0.30
}
