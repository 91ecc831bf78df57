package bootloader

import (
	"errors"
	"fmt"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/wire"
)

// ErrVerificationUnsupported indicates the device bootloader does not
// implement the Verify command. Callers treat a fully written image as
// success in that case.
var ErrVerificationUnsupported = errors.New("bootloader: device does not support verification")

// HandshakeTimeoutError indicates the device never answered the sync
// handshake within the configured attempt budget.
type HandshakeTimeoutError struct {
	// Attempts is how many sync attempts were made.
	Attempts int

	// PerAttempt is the response timeout of each attempt.
	PerAttempt time.Duration
}

// Error implements the error interface.
func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("no response from bootloader after %d attempts (%s per attempt)", e.Attempts, e.PerAttempt)
}

// ProtocolError indicates the device answered outside the protocol:
// an unexpected status, a malformed payload, or silence where a response
// was required.
type ProtocolError struct {
	// Op is the command being executed.
	Op wire.Op

	// Status is the unexpected response status, when the device answered.
	Status *wire.Status

	// Reason summarizes the violation.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol error during %s: %s", e.Op, e.Reason)
	if e.Status != nil {
		msg += fmt.Sprintf(" (status %s)", *e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// EraseError indicates the device refused or failed an erase.
type EraseError struct {
	// Offset and Length identify the region.
	Offset uint32
	Length uint32

	// Status is the device's response status.
	Status wire.Status
}

// Error implements the error interface.
func (e *EraseError) Error() string {
	return fmt.Sprintf("erase of %d bytes at 0x%08X failed: %s", e.Length, e.Offset, e.Status)
}

// WriteError indicates a chunk write failed. Offset locates the failed
// chunk in flash.
type WriteError struct {
	// Offset is the flash offset of the failed chunk.
	Offset uint32

	// Status is the device's response status.
	Status wire.Status
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed at offset 0x%08X: %s", e.Offset, e.Status)
}

// VerificationError indicates device flash content does not match what
// was written.
type VerificationError struct {
	// Written is how many bytes the session wrote before verifying.
	Written uint32
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("flash verification failed after %d bytes", e.Written)
}
