package monitor

import (
	"log/slog"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/eventbus"
	"github.com/mcuflash/mcuflash-go/pkg/trace"
	"github.com/mcuflash/mcuflash-go/pkg/transport"
)

// DefaultRestartDelay is the pause between stop and start in Restart.
const DefaultRestartDelay = 250 * time.Millisecond

// Option configures a Monitor.
type Option func(*Monitor)

// WithGate makes the monitor acquire the given port gate while it
// reads.
func WithGate(gate *transport.Gate) Option {
	return func(m *Monitor) {
		m.gate = gate
	}
}

// WithBus publishes log events to a shared bus instead of a private
// one.
func WithBus(bus *eventbus.Bus[LogEvent]) Option {
	return func(m *Monitor) {
		m.bus = bus
	}
}

// WithRestartDelay sets the pause Restart waits between stop and
// start.
func WithRestartDelay(d time.Duration) Option {
	return func(m *Monitor) {
		m.restartDelay = d
	}
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTracer attaches a trace logger for lifecycle events.
func WithTracer(tracer trace.Logger) Option {
	return func(m *Monitor) {
		m.tracer = trace.OrNoop(tracer)
	}
}

// WithPortInfo stamps trace events with the port identity.
func WithPortInfo(portID, port string) Option {
	return func(m *Monitor) {
		m.portID = portID
		m.port = port
	}
}
