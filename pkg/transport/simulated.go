package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mcuflash/mcuflash-go/internal/simdev"
	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

// SimulatedPortName is the port description of the simulated transport.
const SimulatedPortName = "simulated"

// Simulated is a Transport backed by an in-process simulated device.
// It behaves like a quiet serial port wired to a small MCU: the device
// boots, prints a log, and speaks the bootloader protocol.
type Simulated struct {
	mu    sync.Mutex
	state portState
	dev   *simdev.Device
	id    string
	tr    *portTracer
	opts  []simdev.Option
}

// NewSimulated creates an unopened simulated transport. Additional
// options tune the simulated device; callers outside this module use the
// defaults.
func NewSimulated(cfg Config, opts ...simdev.Option) *Simulated {
	return &Simulated{
		tr:   newPortTracer(cfg.Tracer, SimulatedPortName),
		opts: opts,
	}
}

// Open boots the simulated device.
func (s *Simulated) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateOpen:
		return &ConnectionError{Port: SimulatedPortName, Reason: "open failed", Err: ErrAlreadyOpen}
	case stateClosed:
		return &ConnectionError{Port: SimulatedPortName, Reason: "open failed", Err: ErrConsumed}
	}

	s.dev = simdev.New(s.opts...)
	s.state = stateOpen
	s.id = uuid.NewString()
	s.tr.setPortID(s.id)
	s.tr.state(stateNew.String(), stateOpen.String(), "")
	return nil
}

// Read fills p with the next bytes from the device.
func (s *Simulated) Read(ctx context.Context, p []byte) (int, error) {
	dev, err := s.liveDevice()
	if err != nil {
		return 0, err
	}

	n, err := dev.HostRead(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		return 0, &ConnectionError{Port: SimulatedPortName, Reason: "read failed", Err: err}
	}

	s.tr.chunk(trace.DirectionIn, p[:n])
	return n, nil
}

// Write sends p to the device.
func (s *Simulated) Write(ctx context.Context, p []byte) (int, error) {
	dev, err := s.liveDevice()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := dev.HostWrite(p)
	if err != nil {
		return n, &ConnectionError{Port: SimulatedPortName, Reason: "write failed", Err: err}
	}

	s.tr.chunk(trace.DirectionOut, p[:n])
	return n, nil
}

// SetControlLines drives the simulated reset and boot strap lines.
func (s *Simulated) SetControlLines(dtr, rts bool) error {
	dev, err := s.liveDevice()
	if err != nil {
		return err
	}
	dev.SetLines(dtr, rts)
	return nil
}

// Close shuts the simulated device down.
func (s *Simulated) Close() error {
	s.mu.Lock()
	if s.state != stateOpen {
		s.state = stateClosed
		s.mu.Unlock()
		return nil
	}
	dev := s.dev
	s.state = stateClosed
	s.mu.Unlock()

	dev.Close()
	s.tr.state(stateOpen.String(), stateClosed.String(), "")
	return nil
}

// IsOpen reports whether the transport is open.
func (s *Simulated) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateOpen
}

// Kind returns KindSimulated.
func (s *Simulated) Kind() Kind {
	return KindSimulated
}

// Describe identifies the simulated port.
func (s *Simulated) Describe() string {
	return SimulatedPortName
}

// ID returns the identifier assigned at Open.
func (s *Simulated) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Device exposes the underlying simulated device for inspection.
// It returns nil before Open.
func (s *Simulated) Device() *simdev.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev
}

func (s *Simulated) liveDevice() (*simdev.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateOpen {
		return nil, &ConnectionError{Port: SimulatedPortName, Reason: "not open", Err: ErrNotOpen}
	}
	return s.dev, nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*Simulated)(nil)
