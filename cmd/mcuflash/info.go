package main

import (
	"flag"
	"fmt"
	"os"
)

func runInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mcuflash info [flags]")
		fmt.Fprintln(os.Stderr, "\nQueries the bootloader for the device identity.")
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

	info, ok := dev.Info()
	if !ok {
		fmt.Fprintln(os.Stderr, "Error: no device identity available")
		cleanup()
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Chip type:    %s\n", info.ChipType)
	fmt.Printf("MAC address:  %s\n", info.MACAddress)
	fmt.Printf("Flash size:   %d bytes (%d KiB)\n", info.FlashSize, info.FlashSize/1024)
}
