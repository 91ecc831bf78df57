package simdev

import (
	"bytes"
	"context"
	"hash/crc32"
	"io"
	"sync"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/wire"
)

// Mode is the boot mode of the simulated device.
type Mode uint8

const (
	// ModeRun means the application is running and printing its log.
	ModeRun Mode = 0
	// ModeBootloader means the bootloader is answering command frames.
	ModeBootloader Mode = 1
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeRun:
		return "RUN"
	case ModeBootloader:
		return "BOOTLOADER"
	default:
		return "UNKNOWN"
	}
}

// DefaultBootScript is the log the simulated application prints after a
// run-mode reset.
var DefaultBootScript = []string{
	"rst:0x1 (POWERON_RESET),boot:0x13 (SPI_FAST_FLASH_BOOT)",
	"I (31) boot: SIM32 bootloader v1.1",
	"I (58) cpu_start: Pro cpu up.",
	"WARN (90) rtc: no backup battery",
	"I (112) app: firmware ready",
}

// Device is a simulated MCU reachable through an in-memory byte stream.
// HostWrite and HostRead are the two ends the transport connects to.
type Device struct {
	mu      sync.Mutex
	mode    Mode
	synced  bool
	erased  bool     // an erase completed since the last boot
	eraseLo uint32   // erased region
	eraseHi uint32
	flash   []byte
	dtr     bool
	rts     bool
	closed  bool

	out     bytes.Buffer
	dataCh  chan struct{} // signals new output bytes
	scanner wire.Scanner

	bootGen int // invalidates in-flight boot script goroutines

	cfg options
}

// New creates a simulated device in run mode with quiet output. The boot
// log appears after the first run-mode reset, exactly as it would on real
// hardware.
func New(opts ...Option) *Device {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}
	d := &Device{
		flash:  make([]byte, cfg.flashSize),
		dataCh: make(chan struct{}, 1),
		cfg:    cfg,
	}
	return d
}

// Mode returns the current boot mode.
func (d *Device) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// FlashBytes copies length bytes of flash content starting at offset.
func (d *Device) FlashBytes(offset, length uint32) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if uint64(offset)+uint64(length) > uint64(len(d.flash)) {
		return nil
	}
	out := make([]byte, length)
	copy(out, d.flash[offset:offset+length])
	return out
}

// Close releases the device. Blocked HostRead calls return io.EOF and
// all further host operations fail.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.bootGen++
	d.mu.Unlock()
	d.signal()
}

// SetLines drives the control lines. RTS asserted holds the device in
// reset; on release the DTR level selects the boot mode.
func (d *Device) SetLines(dtr, rts bool) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	wasReset := d.rts
	d.dtr, d.rts = dtr, rts
	if wasReset && !rts {
		d.bootLocked(d.dtr)
	}
	d.mu.Unlock()
	d.signal()
}

// HostWrite is the host-to-device byte stream. Frames are processed as
// soon as they complete; run mode swallows everything.
func (d *Device) HostWrite(p []byte) (int, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if d.mode != ModeBootloader {
		d.mu.Unlock()
		return len(p), nil
	}

	d.scanner.Push(p)
	for {
		frame, ok, err := d.scanner.Next()
		if err != nil {
			// Corrupted frame. The bootloader stays silent and lets the
			// host time out and retry.
			continue
		}
		if !ok {
			break
		}
		d.handleLocked(frame)
	}
	d.mu.Unlock()
	d.signal()
	return len(p), nil
}

// HostRead is the device-to-host byte stream. It blocks until output is
// available, the context is cancelled, or the device is closed.
func (d *Device) HostRead(ctx context.Context, p []byte) (int, error) {
	for {
		d.mu.Lock()
		if d.out.Len() > 0 {
			n, _ := d.out.Read(p)
			d.mu.Unlock()
			return n, nil
		}
		if d.closed {
			d.mu.Unlock()
			return 0, io.EOF
		}
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-d.dataCh:
		}
	}
}

// boot resets protocol state and enters the selected mode.
// Callers hold d.mu.
func (d *Device) bootLocked(bootloader bool) {
	d.bootGen++
	d.synced = false
	d.erased = false
	d.scanner.Reset()

	if bootloader {
		d.mode = ModeBootloader
		d.emitLocked([]byte("waiting for download\r\n"))
		return
	}

	d.mode = ModeRun
	if d.cfg.lineDelay <= 0 {
		for _, line := range d.cfg.bootScript {
			d.emitLocked([]byte(line + "\r\n"))
		}
		return
	}

	gen := d.bootGen
	go d.playScript(gen)
}

// playScript drips the boot log out line by line until the script ends
// or the device reboots.
func (d *Device) playScript(gen int) {
	for _, line := range d.cfg.bootScript {
		time.Sleep(d.cfg.lineDelay)
		d.mu.Lock()
		if d.closed || d.bootGen != gen {
			d.mu.Unlock()
			return
		}
		d.emitLocked([]byte(line + "\r\n"))
		d.mu.Unlock()
		d.signal()
	}
}

func (d *Device) emitLocked(p []byte) {
	d.out.Write(p)
}

func (d *Device) signal() {
	select {
	case d.dataCh <- struct{}{}:
	default:
	}
}

// handleLocked executes one command frame and queues the response.
// Callers hold d.mu.
func (d *Device) handleLocked(frame wire.Frame) {
	switch frame.Op {
	case wire.OpSync:
		if d.cfg.syncDrops > 0 {
			d.cfg.syncDrops--
			return
		}
		d.synced = true
		d.respondLocked(frame.Op, wire.StatusOK, []byte{wire.ProtocolVersion})

	case wire.OpInfo:
		if !d.synced {
			d.respondLocked(frame.Op, wire.StatusOutOfOrder, nil)
			return
		}
		payload := wire.BuildIdentityPayload(uint32(len(d.flash)), d.cfg.mac, d.cfg.chip)
		d.respondLocked(frame.Op, wire.StatusOK, payload)

	case wire.OpErase:
		d.handleEraseLocked(frame)

	case wire.OpWrite:
		d.handleWriteLocked(frame)

	case wire.OpVerify:
		d.handleVerifyLocked(frame)

	case wire.OpReset:
		// No response: the device reboots into run mode immediately.
		d.bootLocked(false)

	default:
		d.respondLocked(frame.Op, wire.StatusUnknownCommand, nil)
	}
}

func (d *Device) handleEraseLocked(frame wire.Frame) {
	if !d.synced {
		d.respondLocked(frame.Op, wire.StatusOutOfOrder, nil)
		return
	}
	offset, length, err := wire.ParseErasePayload(frame.Payload)
	if err != nil {
		d.respondLocked(frame.Op, wire.StatusBadLength, nil)
		return
	}
	if uint64(offset)+uint64(length) > uint64(len(d.flash)) {
		d.respondLocked(frame.Op, wire.StatusBadRange, nil)
		return
	}
	if d.cfg.eraseFailures > 0 {
		d.cfg.eraseFailures--
		d.respondLocked(frame.Op, wire.StatusEraseFailed, nil)
		return
	}

	// Erasing twice is harmless: the region just returns to 0xFF.
	for i := offset; i < offset+length; i++ {
		d.flash[i] = 0xFF
	}
	d.erased = true
	d.eraseLo, d.eraseHi = offset, offset+length
	d.respondLocked(frame.Op, wire.StatusOK, nil)
}

func (d *Device) handleWriteLocked(frame wire.Frame) {
	if !d.synced || !d.erased {
		d.respondLocked(frame.Op, wire.StatusOutOfOrder, nil)
		return
	}
	offset, data, err := wire.ParseWritePayload(frame.Payload)
	if err != nil {
		d.respondLocked(frame.Op, wire.StatusBadLength, nil)
		return
	}
	end := uint64(offset) + uint64(len(data))
	if offset < d.eraseLo || end > uint64(d.eraseHi) {
		d.respondLocked(frame.Op, wire.StatusBadRange, nil)
		return
	}
	if d.cfg.failWriteAt != nil && *d.cfg.failWriteAt == offset {
		d.respondLocked(frame.Op, wire.StatusWriteFailed, nil)
		return
	}

	copy(d.flash[offset:], data)
	d.respondLocked(frame.Op, wire.StatusOK, nil)
}

func (d *Device) handleVerifyLocked(frame wire.Frame) {
	if !d.synced {
		d.respondLocked(frame.Op, wire.StatusOutOfOrder, nil)
		return
	}
	length, sum, err := wire.ParseVerifyPayload(frame.Payload)
	if err != nil {
		d.respondLocked(frame.Op, wire.StatusBadLength, nil)
		return
	}
	if d.cfg.verifyStatus != wire.StatusOK {
		d.respondLocked(frame.Op, d.cfg.verifyStatus, nil)
		return
	}
	if uint64(length) > uint64(len(d.flash)) {
		d.respondLocked(frame.Op, wire.StatusBadRange, nil)
		return
	}
	if crc32.ChecksumIEEE(d.flash[:length]) != sum {
		d.respondLocked(frame.Op, wire.StatusVerifyMismatch, nil)
		return
	}
	d.respondLocked(frame.Op, wire.StatusOK, nil)
}

func (d *Device) respondLocked(op wire.Op, status wire.Status, data []byte) {
	raw, err := wire.BuildResponse(op, status, data)
	if err != nil {
		return
	}
	d.emitLocked(raw)
}
