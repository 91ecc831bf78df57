package main

import (
	"flag"
	"fmt"
	"os"
)

func runErase(args []string) {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mcuflash erase [flags]")
		fmt.Fprintln(os.Stderr, "\nErases the device flash.")
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

	ctx, cancel := signalContext()
	defer cancel()

	dev, cleanup, err := openDevice(ctx, fc, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	events, err := dev.Erase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := streamSession(events); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cleanup()
		os.Exit(1)
	}
}
