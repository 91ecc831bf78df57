package transport

import (
	"fmt"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

// Default configuration values.
const (
	// DefaultBaudRate is the serial line speed used when none is
	// configured.
	DefaultBaudRate = 115200

	// DefaultReadPoll bounds Read cancellation latency on serial ports.
	DefaultReadPoll = 100 * time.Millisecond
)

// Config selects and parameterizes a transport.
type Config struct {
	// Port is the device path ("/dev/ttyUSB0", "COM3"). Empty means
	// probe: pick the first enumerable serial port, or fall back to the
	// simulator when none exists.
	Port string `yaml:"port"`

	// BaudRate is the serial line speed. Zero means DefaultBaudRate.
	BaudRate int `yaml:"baudRate"`

	// Simulated forces the simulated transport regardless of available
	// hardware.
	Simulated bool `yaml:"simulated"`

	// ReadPoll bounds Read cancellation latency on serial ports.
	// Zero means DefaultReadPoll.
	ReadPoll time.Duration `yaml:"readPoll"`

	// Tracer receives capture events for this transport. Nil disables
	// capture.
	Tracer trace.Logger `yaml:"-"`
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		BaudRate: DefaultBaudRate,
		ReadPoll: DefaultReadPoll,
	}
}

// withDefaults fills zero fields with their defaults.
func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadPoll <= 0 {
		c.ReadPoll = DefaultReadPoll
	}
	return c
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Simulated && c.Port != "" {
		return fmt.Errorf("transport: port %q conflicts with simulated mode", c.Port)
	}
	if c.BaudRate < 0 {
		return fmt.Errorf("transport: negative baud rate %d", c.BaudRate)
	}
	return nil
}
