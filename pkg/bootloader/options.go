package bootloader

import (
	"log/slog"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

// Default driver timing.
const (
	// DefaultSyncAttempts is how often EnterProgrammingMode retries the
	// handshake.
	DefaultSyncAttempts = 5

	// DefaultSyncTimeout is the response timeout of one sync attempt.
	DefaultSyncTimeout = 500 * time.Millisecond

	// DefaultResponseTimeout is the response timeout of ordinary commands.
	DefaultResponseTimeout = 2 * time.Second

	// DefaultEraseTimeout allows for slow mass erases.
	DefaultEraseTimeout = 10 * time.Second

	// DefaultResetHold is how long the reset line is held asserted.
	DefaultResetHold = 50 * time.Millisecond

	// DefaultBootSettle is the wait after releasing reset before the
	// first sync attempt.
	DefaultBootSettle = 100 * time.Millisecond
)

// Option configures a Driver.
type Option func(*Driver)

// WithSyncAttempts sets the handshake retry budget.
func WithSyncAttempts(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.syncAttempts = n
		}
	}
}

// WithSyncTimeout sets the per-attempt handshake timeout.
func WithSyncTimeout(t time.Duration) Option {
	return func(d *Driver) {
		if t > 0 {
			d.syncTimeout = t
		}
	}
}

// WithResponseTimeout sets the response timeout for info, write and
// verify commands.
func WithResponseTimeout(t time.Duration) Option {
	return func(d *Driver) {
		if t > 0 {
			d.responseTimeout = t
		}
	}
}

// WithEraseTimeout sets the response timeout for erase commands.
func WithEraseTimeout(t time.Duration) Option {
	return func(d *Driver) {
		if t > 0 {
			d.eraseTimeout = t
		}
	}
}

// WithResetHold sets how long the reset line is held asserted.
func WithResetHold(t time.Duration) Option {
	return func(d *Driver) {
		if t >= 0 {
			d.resetHold = t
		}
	}
}

// WithBootSettle sets the wait between releasing reset and the first
// sync attempt.
func WithBootSettle(t time.Duration) Option {
	return func(d *Driver) {
		if t >= 0 {
			d.bootSettle = t
		}
	}
}

// WithLogger sets the operational logger. Nil selects slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracer sets the capture logger for command events.
func WithTracer(tracer trace.Logger) Option {
	return func(d *Driver) {
		d.tracer = trace.OrNoop(tracer)
	}
}

// WithPortInfo attaches the transport identity to captured events.
func WithPortInfo(portID, port string) Option {
	return func(d *Driver) {
		d.portID = portID
		d.port = port
	}
}
