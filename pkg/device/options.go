package device

import (
	"log/slog"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/bootloader"
	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the operational logger shared by all layers.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracer attaches a trace logger shared by all layers.
func WithTracer(tracer trace.Logger) Option {
	return func(d *Device) {
		d.tracer = trace.OrNoop(tracer)
	}
}

// WithAuthorizer installs a permission hook consulted before every
// flash. It receives the identity captured at connect time; returning
// false fails the request with ErrFlashDenied. Erase is not gated.
func WithAuthorizer(authorize func(Info) bool) Option {
	return func(d *Device) {
		d.authorize = authorize
	}
}

// WithSettleDelay sets the pause between a session's terminal stage
// and the monitor restart.
func WithSettleDelay(delay time.Duration) Option {
	return func(d *Device) {
		d.settleDelay = delay
	}
}

// WithDriverOptions passes extra options to the bootloader driver,
// mostly to tighten timing in tests.
func WithDriverOptions(opts ...bootloader.Option) Option {
	return func(d *Device) {
		d.driverOpts = append(d.driverOpts, opts...)
	}
}

// WithTransportFactory replaces how the transport is built.
func WithTransportFactory(factory TransportFactory) Option {
	return func(d *Device) {
		if factory != nil {
			d.newTransport = factory
		}
	}
}
