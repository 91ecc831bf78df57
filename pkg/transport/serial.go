package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

// Serial is a Transport backed by a physical serial port.
type Serial struct {
	cfg Config

	mu    sync.Mutex
	state portState
	port  serial.Port
	id    string
	tr    *portTracer
}

// NewSerial creates an unopened serial transport for cfg.Port.
func NewSerial(cfg Config) *Serial {
	cfg = cfg.withDefaults()
	return &Serial{
		cfg: cfg,
		tr:  newPortTracer(cfg.Tracer, cfg.Port),
	}
}

// Open opens and configures the serial port.
func (s *Serial) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateOpen:
		return &ConnectionError{Port: s.cfg.Port, Reason: "open failed", Err: ErrAlreadyOpen}
	case stateClosed:
		return &ConnectionError{Port: s.cfg.Port, Reason: "open failed", Err: ErrConsumed}
	}

	mode := &serial.Mode{
		BaudRate: s.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.cfg.Port, mode)
	if err != nil {
		s.tr.error(err.Error(), "open")
		return &ConnectionError{Port: s.cfg.Port, Reason: "open failed", Err: err}
	}
	if err := port.SetReadTimeout(s.cfg.ReadPoll); err != nil {
		port.Close()
		return &ConnectionError{Port: s.cfg.Port, Reason: "configuring read timeout", Err: err}
	}
	// Drop whatever the device printed before we attached.
	_ = port.ResetInputBuffer()

	s.port = port
	s.state = stateOpen
	s.id = uuid.NewString()
	s.tr.setPortID(s.id)
	s.tr.state(stateNew.String(), stateOpen.String(), "")
	return nil
}

// Read fills p with the next available bytes. The OS read timeout makes
// the underlying call return periodically with no data, which is when
// cancellation is honored.
func (s *Serial) Read(ctx context.Context, p []byte) (int, error) {
	port, err := s.livePort()
	if err != nil {
		return 0, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		n, err := port.Read(p)
		if err != nil {
			if !s.IsOpen() {
				return 0, &ConnectionError{Port: s.cfg.Port, Reason: "port closed", Err: ErrNotOpen}
			}
			s.tr.error(err.Error(), "read")
			return 0, &ConnectionError{Port: s.cfg.Port, Reason: "read failed", Err: err}
		}
		if n == 0 {
			// Poll timeout expired, nothing received yet.
			continue
		}

		s.tr.chunk(trace.DirectionIn, p[:n])
		return n, nil
	}
}

// Write sends p to the device.
func (s *Serial) Write(ctx context.Context, p []byte) (int, error) {
	port, err := s.livePort()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := port.Write(p)
	if err != nil {
		s.tr.error(err.Error(), "write")
		return n, &ConnectionError{Port: s.cfg.Port, Reason: "write failed", Err: err}
	}

	s.tr.chunk(trace.DirectionOut, p[:n])
	return n, nil
}

// SetControlLines drives the DTR and RTS modem lines.
func (s *Serial) SetControlLines(dtr, rts bool) error {
	port, err := s.livePort()
	if err != nil {
		return err
	}
	if err := port.SetDTR(dtr); err != nil {
		return &ConnectionError{Port: s.cfg.Port, Reason: "setting DTR", Err: err}
	}
	if err := port.SetRTS(rts); err != nil {
		return &ConnectionError{Port: s.cfg.Port, Reason: "setting RTS", Err: err}
	}
	return nil
}

// Close releases the port. A blocked Read returns once the port closes
// under it.
func (s *Serial) Close() error {
	s.mu.Lock()
	if s.state != stateOpen {
		s.state = stateClosed
		s.mu.Unlock()
		return nil
	}
	port := s.port
	s.state = stateClosed
	s.mu.Unlock()

	err := port.Close()
	s.tr.state(stateOpen.String(), stateClosed.String(), "")
	if err != nil {
		return &ConnectionError{Port: s.cfg.Port, Reason: "close failed", Err: err}
	}
	return nil
}

// IsOpen reports whether the port is open.
func (s *Serial) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateOpen
}

// Kind returns KindSerial.
func (s *Serial) Kind() Kind {
	return KindSerial
}

// Describe returns the port path and line speed.
func (s *Serial) Describe() string {
	return fmt.Sprintf("%s @ %d baud", s.cfg.Port, s.cfg.BaudRate)
}

// ID returns the identifier assigned at Open.
func (s *Serial) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Serial) livePort() (serial.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateOpen {
		return nil, &ConnectionError{Port: s.cfg.Port, Reason: "not open", Err: ErrNotOpen}
	}
	return s.port, nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*Serial)(nil)
