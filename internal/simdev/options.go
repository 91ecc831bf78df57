package simdev

import (
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/wire"
)

type options struct {
	chip          string
	mac           [6]byte
	flashSize     uint32
	bootScript    []string
	lineDelay     time.Duration
	syncDrops     int
	eraseFailures int
	failWriteAt   *uint32
	verifyStatus  wire.Status
}

func defaultOptions() options {
	return options{
		chip:         "SIM32",
		mac:          [6]byte{0x84, 0xF7, 0x03, 0x12, 0x34, 0x56},
		flashSize:    4 * 1024 * 1024,
		bootScript:   DefaultBootScript,
		lineDelay:    5 * time.Millisecond,
		verifyStatus: wire.StatusOK,
	}
}

// Option configures a simulated device.
type Option func(*options)

// WithChip sets the chip name reported by the Info command.
func WithChip(chip string) Option {
	return func(o *options) { o.chip = chip }
}

// WithMAC sets the MAC address reported by the Info command.
func WithMAC(mac [6]byte) Option {
	return func(o *options) { o.mac = mac }
}

// WithFlashSize sets the flash capacity in bytes.
func WithFlashSize(size uint32) Option {
	return func(o *options) { o.flashSize = size }
}

// WithBootScript replaces the log lines printed after a run-mode reset.
func WithBootScript(lines []string) Option {
	return func(o *options) { o.bootScript = append([]string(nil), lines...) }
}

// WithLineDelay sets the pause between boot log lines. Zero emits the
// whole script synchronously at reset.
func WithLineDelay(d time.Duration) Option {
	return func(o *options) { o.lineDelay = d }
}

// WithDroppedSyncs makes the bootloader ignore the first n Sync commands,
// forcing the host through its retry path.
func WithDroppedSyncs(n int) Option {
	return func(o *options) { o.syncDrops = n }
}

// WithEraseFailures makes the first n Erase commands fail.
func WithEraseFailures(n int) Option {
	return func(o *options) { o.eraseFailures = n }
}

// WithWriteFailureAt makes the Write command fail for the chunk at the
// given flash offset.
func WithWriteFailureAt(offset uint32) Option {
	return func(o *options) { o.failWriteAt = &offset }
}

// WithVerifyStatus forces the Verify command to answer with the given
// status regardless of flash content.
func WithVerifyStatus(status wire.Status) Option {
	return func(o *options) { o.verifyStatus = status }
}
