//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/cwbudde/algo-combbank/internal/webdemo"
)

var (
	engine *webdemo.Engine
	funcs  []js.Func
)

func main() {
	api := js.Global().Get("Object").New()
	api.Set("init", export(func(args []js.Value) any {
		sr := 48000.0
		if len(args) > 0 {
			sr = args[0].Float()
		}
		e, err := webdemo.NewEngine(sr)
		if err != nil {
			return err.Error()
		}
		engine = e
		return js.Null()
	}))

	api.Set("setTransport", export(func(args []js.Value) any {
		if engine == nil || len(args) < 3 {
			return js.Null()
		}
		engine.SetTransport(args[0].Float(), args[1].Float(), args[2].Float())
		return js.Null()
	}))

	api.Set("setRunning", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		engine.SetRunning(args[0].Bool())
		return js.Null()
	}))

	api.Set("setExcitation", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		engine.SetExcitation(args[0].String())
		return js.Null()
	}))

	api.Set("trigger", export(func(args []js.Value) any {
		if engine == nil {
			return js.Null()
		}
		level := 1.0
		if len(args) > 0 {
			level = args[0].Float()
		}
		engine.Trigger(level)
		return js.Null()
	}))

	api.Set("setSteps", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		arr := args[0]
		steps := make([]webdemo.StepConfig, arr.Length())
		for i := 0; i < arr.Length(); i++ {
			item := arr.Index(i)
			steps[i] = webdemo.StepConfig{
				Enabled: item.Get("enabled").Bool(),
				Level:   item.Get("level").Float(),
			}
		}
		engine.SetSteps(steps)
		return js.Null()
	}))

	api.Set("setComb", export(func(args []js.Value) any {
		if engine == nil || len(args) < 2 {
			return js.Null()
		}
		p := args[1]
		err := engine.SetComb(args[0].Int(), webdemo.CombParams{
			Active:    p.Get("active").Bool(),
			FreqHz:    p.Get("freq").Float(),
			Feedback:  p.Get("feedback").Float(),
			Level:     p.Get("level").Float(),
			ShowBands: p.Get("showBands").Bool(),
		})
		return errValue(err)
	}))

	api.Set("setMix", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		p := args[0]
		err := engine.SetMix(webdemo.MixParams{
			WetDry:     p.Get("wetDry").Float(),
			PreGain:    p.Get("preGain").Float(),
			OutputGain: p.Get("outputGain").Float(),
			Bypass:     p.Get("bypass").Bool(),
		})
		return errValue(err)
	}))

	api.Set("setTone", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		p := args[0]
		err := engine.SetTone(webdemo.ToneParams{
			Lowpass:    p.Get("lowpass").Bool(),
			LowpassHz:  p.Get("lowpassHz").Float(),
			Highpass:   p.Get("highpass").Bool(),
			HighpassHz: p.Get("highpassHz").Float(),
		})
		return errValue(err)
	}))

	api.Set("setSpectrum", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		p := args[0]
		err := engine.SetSpectrum(webdemo.SpectrumParams{
			FFTSize:   p.Get("fftSize").Int(),
			Overlap:   p.Get("overlap").Float(),
			Smoothing: p.Get("smoothing").Float(),
			Window:    p.Get("window").String(),
		})
		return errValue(err)
	}))

	api.Set("loadPreset", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Null()
		}
		return errValue(engine.LoadPreset([]byte(args[0].String())))
	}))

	api.Set("savePreset", export(func(args []js.Value) any {
		if engine == nil {
			return js.Null()
		}
		name := ""
		if len(args) > 0 {
			name = args[0].String()
		}
		data, err := engine.SavePreset(name)
		if err != nil {
			return js.Null()
		}
		return string(data)
	}))

	api.Set("render", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		n := args[0].Int()
		buf := make([]float32, n)
		engine.Render(buf)
		arr := js.Global().Get("Float32Array").New(n)
		for i := 0; i < n; i++ {
			arr.SetIndex(i, buf[i])
		}
		return arr
	}))

	api.Set("responseCurve", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		return curve(args[0], engine.ResponseCurveDB)
	}))

	api.Set("spectrumCurve", export(func(args []js.Value) any {
		if engine == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		return curve(args[0], engine.SpectrumCurveDB)
	}))

	api.Set("bands", export(func(args []js.Value) any {
		if engine == nil {
			return js.Global().Get("Array").New(0)
		}
		bands := engine.Bands()
		arr := js.Global().Get("Array").New(len(bands))
		for i, b := range bands {
			item := js.Global().Get("Object").New()
			item.Set("slot", b.Slot)
			item.Set("harmonic", b.Harmonic)
			item.Set("freq", b.FrequencyHz)
			arr.SetIndex(i, item)
		}
		return arr
	}))

	api.Set("outputLevel", export(func(args []js.Value) any {
		if engine == nil {
			return 0
		}
		return engine.OutputLevel()
	}))

	api.Set("reset", export(func(args []js.Value) any {
		if engine != nil {
			engine.Reset()
		}
		return js.Null()
	}))

	api.Set("currentStep", export(func(args []js.Value) any {
		if engine == nil {
			return -1
		}
		return engine.CurrentStep()
	}))

	js.Global().Set("CombBankDemo", api)
	select {}
}

func curve(input js.Value, fn func([]float64) []float64) js.Value {
	freqs := make([]float64, input.Length())
	for i := 0; i < input.Length(); i++ {
		freqs[i] = input.Index(i).Float()
	}
	resp := fn(freqs)
	arr := js.Global().Get("Float32Array").New(len(resp))
	for i := range resp {
		arr.SetIndex(i, resp[i])
	}
	return arr
}

func errValue(err error) any {
	if err != nil {
		return err.Error()
	}
	return js.Null()
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}
