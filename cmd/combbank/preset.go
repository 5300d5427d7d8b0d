package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-combbank/preset"
)

func runPreset(_ context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("preset", "[-out file] [flags]")
	out := fs.String("out", "", "output file (default: stdout)")
	name := fs.String("name", "", "preset name")
	format := fs.String("format", "json", "file format: json or state")
	ef := registerEngineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := ef.initLogger(); err != nil {
		return err
	}

	s, err := ef.snapshot()
	if err != nil {
		return err
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create preset: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch *format {
	case "json":
		err = preset.Encode(w, preset.New(*name, s))
	case "state":
		err = preset.WriteState(w, s)
	default:
		return fmt.Errorf("preset: unknown format %q", *format)
	}
	if err != nil {
		return err
	}
	logger.Info("wrote preset", "path", *out, "format", *format, "slots", len(s.Slots))
	return nil
}
