package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcuflash/mcuflash-go/pkg/eventbus"
	"github.com/mcuflash/mcuflash-go/pkg/trace"
	"github.com/mcuflash/mcuflash-go/pkg/transport"
)

// ErrAlreadyRunning is returned by Start when the monitor is running.
var ErrAlreadyRunning = errors.New("monitor already running")

// State describes the monitor lifecycle.
type State uint8

const (
	StateStopped State = iota
	StateRunning
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// Conn is the read side the monitor consumes. A transport.Transport
// satisfies it.
type Conn interface {
	Read(ctx context.Context, p []byte) (int, error)
}

const readBufSize = 1024

// Monitor continuously reads device output and publishes classified
// log lines. Start and Stop hand transport ownership back and forth
// through the port gate, so a monitor never reads while a flash
// session owns the port.
type Monitor struct {
	conn Conn
	gate *transport.Gate
	bus  *eventbus.Bus[LogEvent]

	restartDelay time.Duration
	logger       *slog.Logger
	tracer       trace.Logger
	portID       string
	port         string

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	dec    lineDecoder
}

// New creates a Monitor reading from conn.
func New(conn Conn, opts ...Option) *Monitor {
	m := &Monitor{
		conn:         conn,
		restartDelay: DefaultRestartDelay,
		logger:       slog.Default(),
		tracer:       trace.NoopLogger{},
	}
	for _, o := range opts {
		o(m)
	}
	if m.bus == nil {
		m.bus = eventbus.New[LogEvent]()
	}
	return m
}

// Subscribe registers a new log event subscriber.
func (m *Monitor) Subscribe() *eventbus.Subscription[LogEvent] {
	return m.bus.Subscribe()
}

// Bus returns the event bus the monitor publishes to. Callers can use
// it to inject operational messages into the same stream.
func (m *Monitor) Bus() *eventbus.Bus[LogEvent] {
	return m.bus
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Running reports whether the reader is active.
func (m *Monitor) Running() bool {
	return m.State() == StateRunning
}

// Start acquires the port gate and launches the reader. ctx bounds the
// gate acquisition only; the reader runs until Stop.
func (m *Monitor) Start(ctx context.Context) error {
	var token *transport.GateToken
	if m.gate != nil {
		t, err := m.gate.Acquire(ctx, "monitor")
		if err != nil {
			return fmt.Errorf("acquiring port: %w", err)
		}
		token = t
	}

	m.mu.Lock()
	if m.state == StateRunning {
		m.mu.Unlock()
		if token != nil {
			token.Release()
		}
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.state = StateRunning
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.logger.Info("monitor started", "port", m.port)
	m.traceState(StateStopped, StateRunning, "start")
	go m.run(runCtx, token, done)
	return nil
}

// Stop cancels the pending read and waits for the reader to exit,
// releasing the port gate. Stopping a stopped monitor is a no-op.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return nil
	}
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Restart stops the monitor, waits briefly and starts it again. ctx
// bounds the delay and the restart.
func (m *Monitor) Restart(ctx context.Context) error {
	if err := m.Stop(); err != nil {
		return err
	}
	if err := sleepCtx(ctx, m.restartDelay); err != nil {
		return err
	}
	return m.Start(ctx)
}

func (m *Monitor) run(ctx context.Context, token *transport.GateToken, done chan struct{}) {
	reason := "stop"
	defer func() {
		if token != nil {
			token.Release()
		}
		m.mu.Lock()
		m.state = StateStopped
		m.mu.Unlock()
		m.logger.Debug("monitor stopped", "reason", reason)
		m.traceState(StateRunning, StateStopped, reason)
		close(done)
	}()

	buf := make([]byte, readBufSize)
	for {
		n, err := m.conn.Read(ctx, buf)
		if err != nil {
			if ctx.Err() == nil {
				reason = err.Error()
				m.logger.Warn("monitor read failed", "err", err)
			}
			return
		}

		now := time.Now()
		for _, line := range m.dec.push(buf[:n]) {
			m.bus.Publish(LogEvent{
				ID:        uuid.NewString(),
				Text:      line,
				Severity:  classify(line),
				Timestamp: now,
			})
		}
	}
}

func (m *Monitor) traceState(old, new State, reason string) {
	m.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		PortID:    m.portID,
		Direction: trace.DirectionIn,
		Layer:     trace.LayerSession,
		Category:  trace.CategoryState,
		Port:      m.port,
		StateChange: &trace.StateChangeEvent{
			Entity:   trace.StateEntityMonitor,
			OldState: old.String(),
			NewState: new.String(),
			Reason:   reason,
		},
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
