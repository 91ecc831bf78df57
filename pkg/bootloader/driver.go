package bootloader

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
	"github.com/mcuflash/mcuflash-go/pkg/wire"
)

// Conn is the byte stream the driver talks through. A transport.Transport
// satisfies it.
type Conn interface {
	Read(ctx context.Context, p []byte) (int, error)
	Write(ctx context.Context, p []byte) (int, error)
	SetControlLines(dtr, rts bool) error
}

// Identity describes the connected chip as reported by the bootloader.
type Identity struct {
	// ChipType is the chip family name ("ESP32", "SIM32").
	ChipType string

	// MACAddress is the factory MAC in colon-separated hex.
	MACAddress string

	// FlashSize is the flash capacity in bytes.
	FlashSize uint32
}

// String returns a short human-readable identity.
func (i Identity) String() string {
	return fmt.Sprintf("%s (%s, %d KiB flash)", i.ChipType, i.MACAddress, i.FlashSize/1024)
}

// Driver executes bootloader commands over a Conn.
// It is not safe for concurrent use.
type Driver struct {
	conn Conn

	syncAttempts    int
	syncTimeout     time.Duration
	responseTimeout time.Duration
	eraseTimeout    time.Duration
	resetHold       time.Duration
	bootSettle      time.Duration

	logger *slog.Logger
	tracer trace.Logger
	portID string
	port   string

	scanner wire.Scanner
	readBuf []byte

	// Verify material accumulated since the last erase.
	written  uint32
	writeCRC uint32
}

// New creates a Driver for conn with default timing.
func New(conn Conn, opts ...Option) *Driver {
	d := &Driver{
		conn:            conn,
		syncAttempts:    DefaultSyncAttempts,
		syncTimeout:     DefaultSyncTimeout,
		responseTimeout: DefaultResponseTimeout,
		eraseTimeout:    DefaultEraseTimeout,
		resetHold:       DefaultResetHold,
		bootSettle:      DefaultBootSettle,
		logger:          slog.Default(),
		tracer:          trace.NoopLogger{},
		readBuf:         make([]byte, 4096),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ChunkSize returns the write granularity in bytes.
func (d *Driver) ChunkSize() int {
	return wire.ChunkSize
}

// EnterProgrammingMode resets the device into its bootloader and syncs.
// Each attempt pulses the reset lines, sends a Sync command and waits up
// to the sync timeout for an answer. It is the only driver operation
// that retries.
func (d *Driver) EnterProgrammingMode(ctx context.Context) error {
	for attempt := 1; attempt <= d.syncAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := d.resetInto(ctx, true); err != nil {
			return fmt.Errorf("resetting into bootloader: %w", err)
		}

		d.logger.Debug("sync attempt", "attempt", attempt, "max", d.syncAttempts)
		status, data, err := d.exchange(ctx, wire.OpSync, nil, d.syncTimeout, attempt)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return fmt.Errorf("sync: %w", err)
		}
		if !status.IsOK() {
			s := status
			return &ProtocolError{Op: wire.OpSync, Status: &s, Reason: "sync rejected"}
		}
		if len(data) != 1 {
			return &ProtocolError{Op: wire.OpSync, Reason: "malformed sync response"}
		}

		d.written = 0
		d.writeCRC = 0
		d.logger.Info("programming mode entered", "attempt", attempt, "protocol_version", data[0])
		return nil
	}

	err := &HandshakeTimeoutError{Attempts: d.syncAttempts, PerAttempt: d.syncTimeout}
	d.logger.Warn("handshake failed", "attempts", d.syncAttempts)
	d.traceError(err.Error(), "sync")
	return err
}

// QueryIdentity reads the chip identity. The device must be in
// programming mode.
func (d *Driver) QueryIdentity(ctx context.Context) (Identity, error) {
	status, data, err := d.exchange(ctx, wire.OpInfo, nil, d.responseTimeout, 0)
	if err != nil {
		return Identity{}, wrapExchangeErr(wire.OpInfo, err)
	}
	if !status.IsOK() {
		s := status
		return Identity{}, &ProtocolError{Op: wire.OpInfo, Status: &s, Reason: "identity query rejected"}
	}

	flashSize, mac, chip, err := wire.ParseIdentityPayload(data)
	if err != nil {
		return Identity{}, &ProtocolError{Op: wire.OpInfo, Reason: "malformed identity payload", Err: err}
	}

	id := Identity{
		ChipType:   chip,
		MACAddress: wire.FormatMAC(mac),
		FlashSize:  flashSize,
	}
	d.logger.Info("device identified", "chip", id.ChipType, "mac", id.MACAddress, "flash_size", id.FlashSize)
	return id, nil
}

// EraseRegion erases length bytes of flash starting at offset. Erasing
// an already erased region succeeds. A successful erase resets the
// verify material.
func (d *Driver) EraseRegion(ctx context.Context, offset, length uint32) error {
	status, _, err := d.exchange(ctx, wire.OpErase, wire.BuildErasePayload(offset, length), d.eraseTimeout, 0)
	if err != nil {
		return wrapExchangeErr(wire.OpErase, err)
	}
	if !status.IsOK() {
		return &EraseError{Offset: offset, Length: length, Status: status}
	}

	d.written = 0
	d.writeCRC = 0
	d.logger.Info("region erased", "offset", offset, "length", length)
	return nil
}

// WriteChunk programs one chunk at the given flash offset and returns
// the number of bytes written. Chunks are at most ChunkSize bytes.
func (d *Driver) WriteChunk(ctx context.Context, offset uint32, data []byte) (int, error) {
	payload, err := wire.BuildWritePayload(offset, data)
	if err != nil {
		return 0, &ProtocolError{Op: wire.OpWrite, Reason: "invalid chunk", Err: err}
	}

	status, _, err := d.exchange(ctx, wire.OpWrite, payload, d.responseTimeout, 0)
	if err != nil {
		return 0, wrapExchangeErr(wire.OpWrite, err)
	}
	if !status.IsOK() {
		return 0, &WriteError{Offset: offset, Status: status}
	}

	d.written += uint32(len(data))
	d.writeCRC = crc32.Update(d.writeCRC, crc32.IEEETable, data)
	return len(data), nil
}

// Verify asks the device to compare its flash against the bytes written
// since the last erase. It returns false with a *VerificationError on
// mismatch and false with ErrVerificationUnsupported when the device
// lacks the command.
func (d *Driver) Verify(ctx context.Context) (bool, error) {
	payload := wire.BuildVerifyPayload(d.written, d.writeCRC)
	status, _, err := d.exchange(ctx, wire.OpVerify, payload, d.responseTimeout, 0)
	if err != nil {
		return false, wrapExchangeErr(wire.OpVerify, err)
	}

	switch status {
	case wire.StatusOK:
		d.logger.Info("flash verified", "written", d.written)
		return true, nil
	case wire.StatusVerifyMismatch:
		return false, &VerificationError{Written: d.written}
	case wire.StatusUnsupported:
		return false, ErrVerificationUnsupported
	default:
		s := status
		return false, &ProtocolError{Op: wire.OpVerify, Status: &s, Reason: "verify rejected"}
	}
}

// Reset reboots the device into its application. It is fire and forget:
// the Reset command gets no response, and the control lines are pulsed
// afterwards so the device reboots even when the bootloader is not
// listening.
func (d *Driver) Reset(ctx context.Context) error {
	if raw, err := wire.BuildFrame(wire.OpReset, nil); err == nil {
		d.traceCommand(trace.DirectionOut, wire.OpReset, nil, nil, 0)
		_, _ = d.conn.Write(ctx, raw)
	}

	if err := d.resetInto(ctx, false); err != nil {
		return fmt.Errorf("resetting into application: %w", err)
	}
	d.logger.Info("device reset")
	return nil
}

// resetInto pulses the control lines: RTS asserted resets the chip, DTR
// at release selects bootloader (true) or application (false).
func (d *Driver) resetInto(ctx context.Context, bootloader bool) error {
	d.scanner.Reset()

	if err := d.conn.SetControlLines(bootloader, true); err != nil {
		return err
	}
	if err := sleepCtx(ctx, d.resetHold); err != nil {
		return err
	}
	if err := d.conn.SetControlLines(bootloader, false); err != nil {
		return err
	}
	return sleepCtx(ctx, d.bootSettle)
}

// exchange sends one command and waits for its response.
func (d *Driver) exchange(ctx context.Context, op wire.Op, payload []byte, timeout time.Duration, attempt int) (wire.Status, []byte, error) {
	raw, err := wire.BuildFrame(op, payload)
	if err != nil {
		return 0, nil, err
	}

	d.traceCommandOut(op, payload, attempt)

	start := time.Now()
	if _, err := d.conn.Write(ctx, raw); err != nil {
		return 0, nil, fmt.Errorf("sending %s: %w", op, err)
	}

	frame, err := d.readResponse(ctx, op, timeout)
	if err != nil {
		return 0, nil, err
	}

	status, data, err := wire.SplitResponse(frame)
	if err != nil {
		return 0, nil, &ProtocolError{Op: op, Reason: "malformed response", Err: err}
	}

	d.traceCommand(trace.DirectionIn, op, &status, nil, time.Since(start))
	return status, data, nil
}

// readResponse reads frames until one answers op, skipping boot chatter
// and stale responses.
func (d *Driver) readResponse(ctx context.Context, op wire.Op, timeout time.Duration) (wire.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		frame, ok, err := d.scanner.Next()
		if err != nil {
			// Corrupted frame on the line; keep scanning.
			continue
		}
		if ok {
			if frame.Op == op {
				return frame, nil
			}
			// Stale response from an earlier command.
			continue
		}

		n, err := d.conn.Read(ctx, d.readBuf)
		if err != nil {
			if isTimeout(err) {
				return wire.Frame{}, fmt.Errorf("waiting for %s response: %w", op, err)
			}
			return wire.Frame{}, fmt.Errorf("reading %s response: %w", op, err)
		}
		d.scanner.Push(d.readBuf[:n])
	}
}

func (d *Driver) traceCommandOut(op wire.Op, payload []byte, attempt int) {
	var offset, length *uint32
	switch op {
	case wire.OpErase:
		if o, l, err := wire.ParseErasePayload(payload); err == nil {
			offset, length = &o, &l
		}
	case wire.OpWrite:
		if o, data, err := wire.ParseWritePayload(payload); err == nil {
			l := uint32(len(data))
			offset, length = &o, &l
		}
	case wire.OpVerify:
		if l, _, err := wire.ParseVerifyPayload(payload); err == nil {
			length = &l
		}
	}

	cmd := &trace.CommandEvent{Op: op.String(), Offset: offset, Length: length}
	if attempt > 0 {
		cmd.Attempt = &attempt
	}
	d.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		PortID:    d.portID,
		Direction: trace.DirectionOut,
		Layer:     trace.LayerBootloader,
		Category:  trace.CategoryCommand,
		Port:      d.port,
		Command:   cmd,
	})
}

func (d *Driver) traceCommand(dir trace.Direction, op wire.Op, status *wire.Status, length *uint32, elapsed time.Duration) {
	cmd := &trace.CommandEvent{Op: op.String(), Length: length}
	if status != nil {
		s := uint8(*status)
		cmd.Status = &s
	}
	if elapsed > 0 {
		cmd.Elapsed = &elapsed
	}
	d.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		PortID:    d.portID,
		Direction: dir,
		Layer:     trace.LayerBootloader,
		Category:  trace.CategoryCommand,
		Port:      d.port,
		Command:   cmd,
	})
}

func (d *Driver) traceError(msg, context string) {
	d.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		PortID:    d.portID,
		Direction: trace.DirectionIn,
		Layer:     trace.LayerBootloader,
		Category:  trace.CategoryError,
		Port:      d.port,
		Error: &trace.ErrorEventData{
			Layer:   trace.LayerBootloader,
			Message: msg,
			Context: context,
		},
	})
}

// wrapExchangeErr converts transport-level exchange failures into
// protocol errors, preserving the cause chain.
func wrapExchangeErr(op wire.Op, err error) error {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	if isTimeout(err) {
		return &ProtocolError{Op: op, Reason: "no response", Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
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
