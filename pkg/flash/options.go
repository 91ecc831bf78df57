package flash

import (
	"log/slog"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
	"github.com/mcuflash/mcuflash-go/pkg/transport"
)

const (
	// DefaultSettleDelay is how long the orchestrator waits after a
	// terminal stage before resuming the monitor, giving the device
	// time to reboot.
	DefaultSettleDelay = 1500 * time.Millisecond

	// DefaultEventBuffer is the per-session event channel capacity.
	DefaultEventBuffer = 128
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGate makes sessions hold the port gate while they talk to the
// bootloader.
func WithGate(gate *transport.Gate) Option {
	return func(o *Orchestrator) {
		o.gate = gate
	}
}

// WithMonitor registers the monitor to stop before a session and
// restart after it.
func WithMonitor(mc MonitorController) Option {
	return func(o *Orchestrator) {
		o.monitor = mc
	}
}

// WithSettleDelay sets the pause between a terminal stage and the
// monitor restart.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.settleDelay = d
	}
}

// WithEventBuffer sets the session event channel capacity.
func WithEventBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer attaches a trace logger for stage transitions.
func WithTracer(tracer trace.Logger) Option {
	return func(o *Orchestrator) {
		o.tracer = trace.OrNoop(tracer)
	}
}

// WithPortInfo stamps trace events with the port identity.
func WithPortInfo(portID, port string) Option {
	return func(o *Orchestrator) {
		o.portID = portID
		o.port = port
	}
}
