package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cwbudde/algo-combbank/measure/response"
)

func runResponse(_ context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("response", "[flags]")
	rate := fs.Float64("rate", 48000, "sample rate in Hz")
	size := fs.Int("size", 8192, "FFT size, a power of two")
	maxPeaks := fs.Int("peaks", 16, "maximum number of peaks to print, 0 for all")
	rangeDB := fs.Float64("range", 30, "only print peaks within this many dB of the strongest")
	bands := fs.Bool("bands", false, "also list the harmonic bands of every active slot")
	ef := registerEngineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := ef.initLogger(); err != nil {
		return err
	}

	analyzer, err := response.NewAnalyzer(response.Config{
		SampleRate:  *rate,
		FFTSize:     *size,
		PeakRangeDB: *rangeDB,
	})
	if err != nil {
		return err
	}

	eng, err := ef.engine(*rate, *size, 1)
	if err != nil {
		return err
	}
	ir, err := response.ImpulseResponse(eng, 1, *size)
	if err != nil {
		return err
	}
	peaks, err := analyzer.Peaks(ir, *maxPeaks)
	if err != nil {
		return err
	}
	logger.Debug("analysed response", "size", *size, "peaks", len(peaks))

	if err := printPeaks(stdout, peaks); err != nil {
		return err
	}
	if !*bands {
		return nil
	}

	s := eng.Snapshot()
	for i := range s.Slots {
		s.Slots[i].ShowBands = true
	}
	_, _ = fmt.Fprintln(stdout)
	return printBands(stdout, response.Bands(s, *rate))
}

func printPeaks(w io.Writer, peaks []response.Peak) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Peak\tBin\tFrequency [Hz]\tMagnitude [dB]\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := fmt.Fprintf(tw, "----\t---\t--------------\t--------------\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range peaks {
		if _, err := fmt.Fprintf(tw, "%d\t%d\t%.1f\t%.2f\n", i+1, p.Bin, p.FrequencyHz, p.MagnitudeDB); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return tw.Flush()
}

func printBands(w io.Writer, bands []response.Band) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Slot\tHarmonic\tFrequency [Hz]\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := fmt.Fprintf(tw, "----\t--------\t--------------\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, b := range bands {
		if _, err := fmt.Fprintf(tw, "%d\t%d\t%.1f\n", b.Slot+1, b.Harmonic, b.FrequencyHz); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return tw.Flush()
}
