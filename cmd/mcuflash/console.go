package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mcuflash/mcuflash-go/cmd/mcuflash/interactive"
)

func runConsole(args []string) {
	fs := flag.NewFlagSet("console", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mcuflash console [flags]")
		fmt.Fprintln(os.Stderr, "\nStarts an interactive console for device operations.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	var sf sessionFlags
	sf.register(fs)
	fs.Parse(args)

	fc, err := sf.resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogging(fc.LogLevel)

	tracer, closeTracer, err := setupTracer(fc.TraceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeTracer()

	ctx, cancel := signalContext()
	defer cancel()

	console, err := interactive.New(interactive.Config{
		Transport: fc.transportConfig(),
		Logger:    logger,
		Tracer:    tracer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	console.Run(ctx, cancel)
}
