package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcuflash/mcuflash-go/pkg/device"
	"github.com/mcuflash/mcuflash-go/pkg/flash"
)

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// openDevice connects to the device described by the resolved config.
// The returned cleanup disconnects the device and closes the tracer.
func openDevice(ctx context.Context, fc FileConfig, logger *slog.Logger) (*device.Device, func(), error) {
	tracer, closeTracer, err := setupTracer(fc.TraceFile)
	if err != nil {
		return nil, nil, err
	}

	opts := []device.Option{device.WithLogger(logger)}
	if tracer != nil {
		opts = append(opts, device.WithTracer(tracer))
	}

	dev := device.New(fc.transportConfig(), opts...)
	info, err := dev.Connect(ctx)
	if err != nil {
		closeTracer()
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	fmt.Printf("Connected: %s\n", info)

	cleanup := func() {
		_ = dev.Disconnect()
		closeTracer()
	}
	return dev, cleanup, nil
}

// streamSession consumes a session event stream and renders it to
// stdout. Write progress updates redraw a single line; stage changes
// get their own lines. Returns the terminal event's error, if any.
func streamSession(events <-chan flash.Event) error {
	lastStage := flash.StageIdle
	progressOpen := false

	for ev := range events {
		if ev.Stage != lastStage {
			if progressOpen {
				fmt.Println()
				progressOpen = false
			}
			switch ev.Stage {
			case flash.StageComplete, flash.StageError:
				fmt.Printf("==> %s: %s\n", ev.Stage, ev.Message)
			default:
				if ev.Message != "" {
					fmt.Printf("==> %s (%s)\n", ev.Stage, ev.Message)
				} else {
					fmt.Printf("==> %s\n", ev.Stage)
				}
			}
			lastStage = ev.Stage
		} else if ev.Stage == flash.StageWriting {
			fmt.Printf("\r    %3d%%  %s", ev.Progress, ev.Message)
			progressOpen = true
		}

		if ev.Stage == flash.StageError {
			return ev.Err
		}
	}
	return nil
}
