package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mcuflash/mcuflash-go/pkg/firmware"
)

func runFlash(args []string) {
	fs := flag.NewFlagSet("flash", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mcuflash flash [flags] <image.bin>")
		fmt.Fprintln(os.Stderr, "\nWrites a firmware image to the device and verifies it.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	var sf sessionFlags
	sf.register(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: firmware image path required")
		fs.Usage()
		os.Exit(1)
	}
	imagePath := fs.Arg(0)

	fc, err := sf.resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogging(fc.LogLevel)

	img, err := firmware.LoadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Image: %s (%d bytes, sha256 %s)\n", img.Name(), img.Size(), img.DigestHex()[:16])

	ctx, cancel := signalContext()
	defer cancel()

	dev, cleanup, err := openDevice(ctx, fc, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	events, err := dev.Flash(ctx, img)
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
