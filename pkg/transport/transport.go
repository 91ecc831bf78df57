package transport

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies the concrete transport implementation.
type Kind uint8

const (
	// KindSerial is a physical serial port.
	KindSerial Kind = 0
	// KindSimulated is the in-process simulated device.
	KindSimulated Kind = 1
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "SERIAL"
	case KindSimulated:
		return "SIMULATED"
	default:
		return "UNKNOWN"
	}
}

// Transport is a duplex byte stream to a device.
//
// Lifecycle is strictly Closed -> Open -> Closed: Open succeeds at most
// once per instance, and a closed transport cannot be reopened.
// Read and Write are safe to call from different goroutines, but at most
// one goroutine may read and one may write at a time.
type Transport interface {
	// Open establishes the connection. It fails with a *ConnectionError
	// when the device cannot be reached and with ErrAlreadyOpen or
	// ErrConsumed on lifecycle misuse.
	Open(ctx context.Context) error

	// Close tears the connection down and releases the device. Close is
	// idempotent.
	Close() error

	// Read fills p with the next available bytes, blocking until data
	// arrives, the context is cancelled, or the transport fails.
	Read(ctx context.Context, p []byte) (int, error)

	// Write sends p to the device.
	Write(ctx context.Context, p []byte) (int, error)

	// SetControlLines drives the DTR and RTS lines, which reset the
	// device and select its boot mode.
	SetControlLines(dtr, rts bool) error

	// IsOpen reports whether the transport is currently open.
	IsOpen() bool

	// Kind identifies the implementation.
	Kind() Kind

	// Describe returns a human-readable port description.
	Describe() string

	// ID returns the unique identifier assigned when the transport was
	// opened, or "" before Open. It keys capture events for this port.
	ID() string
}

// Lifecycle errors.
var (
	// ErrAlreadyOpen indicates Open was called on an open transport.
	ErrAlreadyOpen = errors.New("transport: already open")

	// ErrNotOpen indicates I/O on a transport that is not open.
	ErrNotOpen = errors.New("transport: not open")

	// ErrConsumed indicates Open was called on a closed transport.
	// Transports are single-use; build a new one to reconnect.
	ErrConsumed = errors.New("transport: already consumed")
)

// ConnectionError describes a failure to reach or keep talking to the
// device: no such port, permission denied, port busy, device unplugged.
type ConnectionError struct {
	// Port is the device path or "simulated".
	Port string

	// Reason summarizes the failure.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("connection error on %s: %s", e.Port, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// portState tracks the one-way transport lifecycle.
type portState uint8

const (
	stateNew portState = iota
	stateOpen
	stateClosed
)

// String returns the state name.
func (s portState) String() string {
	switch s {
	case stateNew:
		return "NEW"
	case stateOpen:
		return "OPEN"
	case stateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
