// Command combbank runs the comb filter bank offline, live or as an
// analyser.
//
// Usage:
//
//	combbank <command> [flags]
//
// Commands:
//
//	render    process a WAV file and write the result
//	play      process a WAV file and play it on the default device
//	response  print the resonant peaks of the bank's magnitude response
//	preset    write a preset file
//	info      print build and CPU information
//
// Examples:
//
//	combbank render -in drums.wav -out combed.wav -comb 1:A2:0.8:0.3
//	combbank play -in voice.wav -preset bright.json -loop
//	combbank response -comb 1:110 -comb 2:off -comb 3:off -comb 4:off
//	combbank preset -out default.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string, stdout io.Writer) error
}

var commands = []command{
	{"render", "process a WAV file and write the result", runRender},
	{"play", "process a WAV file and play it on the default device", runPlay},
	{"response", "print the resonant peaks of the magnitude response", runResponse},
	{"preset", "write a preset file", runPreset},
	{"info", "print build and CPU information", runInfo},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "help" {
		usage(os.Stderr)
		return flag.ErrHelp
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, args[1:], stdout)
		}
	}
	usage(os.Stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: combbank <command> [flags]\n\n")
	fmt.Fprintf(w, "Runs a bank of damped feedback comb filters over audio.\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun 'combbank <command> -h' for command flags.\n")
}

func newFlagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: combbank %s %s\n\nFlags:\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}
