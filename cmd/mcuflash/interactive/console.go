// Package interactive provides the interactive console for mcuflash.
package interactive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"

	"github.com/mcuflash/mcuflash-go/pkg/device"
	"github.com/mcuflash/mcuflash-go/pkg/firmware"
	"github.com/mcuflash/mcuflash-go/pkg/flash"
	"github.com/mcuflash/mcuflash-go/pkg/trace"
	"github.com/mcuflash/mcuflash-go/pkg/transport"
)

// Config provides the settings for the interactive console.
type Config struct {
	// Transport selects the port the console operates on.
	Transport transport.Config

	// Logger receives operational log output. Nil uses slog.Default.
	Logger *slog.Logger

	// Tracer receives capture events. Nil disables capture.
	Tracer trace.Logger
}

// Console handles interactive mode for mcuflash.
type Console struct {
	cfg Config
	dev *device.Device
	rl  *readline.Instance

	// echo controls whether device log lines are displayed.
	echo atomic.Bool
}

// New creates a new interactive console. The device is not connected
// until the user runs the connect command.
func New(cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mcuflash> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	opts := []device.Option{}
	if cfg.Logger != nil {
		opts = append(opts, device.WithLogger(cfg.Logger))
	}
	if cfg.Tracer != nil {
		opts = append(opts, device.WithTracer(cfg.Tracer))
	}

	c := &Console{
		cfg: cfg,
		dev: device.New(cfg.Transport, opts...),
		rl:  rl,
	}
	c.echo.Store(true)
	return c, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.dev.Disconnect()

	go c.displayLogs(ctx)

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "connect", "c":
			c.cmdConnect(ctx)

		case "disconnect", "d":
			c.cmdDisconnect()

		case "info", "i":
			c.cmdInfo()

		case "flash", "f":
			c.cmdFlash(ctx, args)

		case "erase":
			c.cmdErase(ctx)

		case "monitor", "m":
			c.cmdMonitor(args)

		case "ports", "ls":
			c.cmdPorts()

		case "status", "s":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
mcuflash Commands:
  Device:
    connect            - Connect to the configured port
    disconnect         - Disconnect from the device
    info               - Show the device identity
    status             - Show connection and session status

  Flashing:
    flash <image.bin>  - Write a firmware image to the device
    erase              - Erase the device flash

  Monitoring:
    monitor on|off     - Toggle display of device log output
    ports              - List available serial ports

  General:
    help               - Show this help
    quit               - Exit the console`)
}

// cmdConnect handles the connect command.
func (c *Console) cmdConnect(ctx context.Context) {
	if c.dev.IsConnected() {
		fmt.Fprintln(c.rl.Stdout(), "Already connected")
		return
	}

	fmt.Fprintln(c.rl.Stdout(), "Connecting...")
	info, err := c.dev.Connect(ctx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Connected: %s\n", info)
}

// cmdDisconnect handles the disconnect command.
func (c *Console) cmdDisconnect() {
	if !c.dev.IsConnected() {
		fmt.Fprintln(c.rl.Stdout(), "Not connected")
		return
	}
	if err := c.dev.Disconnect(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Disconnect failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Disconnected")
}

// cmdInfo handles the info command.
func (c *Console) cmdInfo() {
	info, ok := c.dev.Info()
	if !ok {
		fmt.Fprintln(c.rl.Stdout(), "Not connected (use 'connect')")
		return
	}

	fmt.Fprintln(c.rl.Stdout(), "\nDevice Identity")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  Chip type:    %s\n", info.ChipType)
	fmt.Fprintf(c.rl.Stdout(), "  MAC address:  %s\n", info.MACAddress)
	fmt.Fprintf(c.rl.Stdout(), "  Flash size:   %d bytes (%d KiB)\n", info.FlashSize, info.FlashSize/1024)
	fmt.Fprintln(c.rl.Stdout())
}

// cmdFlash handles the flash command.
func (c *Console) cmdFlash(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: flash <image.bin>")
		return
	}
	if !c.dev.IsConnected() {
		fmt.Fprintln(c.rl.Stdout(), "Not connected (use 'connect')")
		return
	}

	img, err := firmware.LoadFile(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Image: %s (%d bytes)\n", img.Name(), img.Size())

	events, err := c.dev.Flash(ctx, img)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	c.streamSession(events)
}

// cmdErase handles the erase command.
func (c *Console) cmdErase(ctx context.Context) {
	if !c.dev.IsConnected() {
		fmt.Fprintln(c.rl.Stdout(), "Not connected (use 'connect')")
		return
	}

	events, err := c.dev.Erase(ctx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	c.streamSession(events)
}

// cmdMonitor handles the monitor command.
func (c *Console) cmdMonitor(args []string) {
	if len(args) < 1 {
		state := "off"
		if c.echo.Load() {
			state = "on"
		}
		fmt.Fprintf(c.rl.Stdout(), "Monitor display: %s (use 'monitor on' or 'monitor off')\n", state)
		return
	}

	switch strings.ToLower(args[0]) {
	case "on":
		c.echo.Store(true)
		fmt.Fprintln(c.rl.Stdout(), "Monitor display enabled")
	case "off":
		c.echo.Store(false)
		fmt.Fprintln(c.rl.Stdout(), "Monitor display disabled")
	default:
		fmt.Fprintln(c.rl.Stdout(), "Usage: monitor on|off")
	}
}

// cmdPorts handles the ports command.
func (c *Console) cmdPorts() {
	ports, err := transport.ListPorts()
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if len(ports) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No serial ports found")
		return
	}
	for _, p := range ports {
		fmt.Fprintf(c.rl.Stdout(), "  %s\n", p)
	}
}

// cmdStatus handles the status command.
func (c *Console) cmdStatus() {
	fmt.Fprintln(c.rl.Stdout(), "\nStatus")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")

	port := c.cfg.Transport.Port
	if c.cfg.Transport.Simulated {
		port = "simulated"
	} else if port == "" {
		port = "(probe)"
	}
	fmt.Fprintf(c.rl.Stdout(), "  Port:       %s\n", port)

	connected := "no"
	if c.dev.IsConnected() {
		connected = "yes"
	}
	fmt.Fprintf(c.rl.Stdout(), "  Connected:  %s\n", connected)

	if info, ok := c.dev.Info(); ok {
		fmt.Fprintf(c.rl.Stdout(), "  Device:     %s\n", info)
	}
	fmt.Fprintf(c.rl.Stdout(), "  Stage:      %s\n", c.dev.Stage())

	echo := "off"
	if c.echo.Load() {
		echo = "on"
	}
	fmt.Fprintf(c.rl.Stdout(), "  Monitor:    %s\n", echo)
	fmt.Fprintln(c.rl.Stdout())
}

// streamSession renders session events, redrawing write progress on a
// single line.
func (c *Console) streamSession(events <-chan flash.Event) {
	w := c.rl.Stdout()
	lastStage := flash.StageIdle
	progressOpen := false

	for ev := range events {
		if ev.Stage != lastStage {
			if progressOpen {
				fmt.Fprintln(w)
				progressOpen = false
			}
			switch ev.Stage {
			case flash.StageComplete, flash.StageError:
				fmt.Fprintf(w, "==> %s: %s\n", ev.Stage, ev.Message)
			default:
				if ev.Message != "" {
					fmt.Fprintf(w, "==> %s (%s)\n", ev.Stage, ev.Message)
				} else {
					fmt.Fprintf(w, "==> %s\n", ev.Stage)
				}
			}
			lastStage = ev.Stage
		} else if ev.Stage == flash.StageWriting {
			fmt.Fprintf(w, "\r    %3d%%  %s", ev.Progress, ev.Message)
			progressOpen = true
		}
	}
}

// displayLogs shows device log lines above the prompt while echo is
// enabled.
func (c *Console) displayLogs(ctx context.Context) {
	sub := c.dev.SubscribeLogs()
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !c.echo.Load() {
				continue
			}
			fmt.Fprintf(c.rl.Stdout(), "\n[%s] %-7s %s\n",
				ev.Timestamp.Format("15:04:05"),
				ev.Severity,
				ev.Text)
			c.rl.Refresh()
		}
	}
}
