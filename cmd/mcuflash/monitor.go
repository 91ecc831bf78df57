package main

import (
	"flag"
	"fmt"
	"os"
)

func runMonitor(args []string) {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mcuflash monitor [flags]")
		fmt.Fprintln(os.Stderr, "\nStreams device serial output until interrupted (Ctrl-C).")
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

	sub := dev.SubscribeLogs()
	defer sub.Cancel()

	fmt.Println("Monitoring (Ctrl-C to stop)...")
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped.")
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			fmt.Printf("[%s] %-7s %s\n", ev.Timestamp.Format("15:04:05.000"), ev.Severity, ev.Text)
		}
	}
}
