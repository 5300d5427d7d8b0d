package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"text/tabwriter"

	"github.com/cwbudde/algo-vecmath/cpu"
)

func runInfo(_ context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("info", "")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := cpu.DetectFeatures()
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Go\t%s\n", runtime.Version())
	fmt.Fprintf(tw, "Platform\t%s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(tw, "Architecture\t%s\n", f.Architecture)
	fmt.Fprintf(tw, "SSE2\t%t\n", f.HasSSE2)
	fmt.Fprintf(tw, "AVX2\t%t\n", f.HasAVX2)
	fmt.Fprintf(tw, "Forced generic\t%t\n", f.ForceGeneric)
	fmt.Fprintf(tw, "Build tags\t%s\n", buildTags())
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			fmt.Fprintf(tw, "Dependency\t%s %s\n", dep.Path, dep.Version)
		}
	}
	return tw.Flush()
}

func buildTags() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range bi.Settings {
		if s.Key == "-tags" {
			return s.Value
		}
	}
	return "none"
}
