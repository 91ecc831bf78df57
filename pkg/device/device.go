package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/bootloader"
	"github.com/mcuflash/mcuflash-go/pkg/eventbus"
	"github.com/mcuflash/mcuflash-go/pkg/firmware"
	"github.com/mcuflash/mcuflash-go/pkg/flash"
	"github.com/mcuflash/mcuflash-go/pkg/monitor"
	"github.com/mcuflash/mcuflash-go/pkg/trace"
	"github.com/mcuflash/mcuflash-go/pkg/transport"
)

// ErrAlreadyConnected is returned by Connect on a connected device.
var ErrAlreadyConnected = errors.New("device already connected")

// ErrFlashDenied is returned by Flash when the authorization hook
// rejects the connected device.
var ErrFlashDenied = errors.New("flashing not permitted for this device")

// Info describes the connected chip. It is created once during
// Connect and immutable afterwards.
type Info struct {
	ChipType   string
	MACAddress string
	FlashSize  uint32
}

// String returns a short human-readable description.
func (i Info) String() string {
	return fmt.Sprintf("%s (%s, %d KiB flash)", i.ChipType, i.MACAddress, i.FlashSize/1024)
}

// TransportFactory builds the transport a device connects through.
type TransportFactory func(cfg transport.Config) (transport.Transport, error)

// Device is one connected microcontroller: a transport plus the
// driver, orchestrator and monitor working it. A Device can connect,
// disconnect and connect again; each cycle uses a fresh transport and
// a fresh handshake.
type Device struct {
	cfg          transport.Config
	newTransport TransportFactory
	driverOpts   []bootloader.Option
	settleDelay  time.Duration
	logger       *slog.Logger
	tracer       trace.Logger
	authorize    func(Info) bool
	bus          *eventbus.Bus[monitor.LogEvent]

	mu         sync.Mutex
	connecting bool
	tr         transport.Transport
	gate       *transport.Gate
	orch       *flash.Orchestrator
	mon        *monitor.Monitor
	info       Info
}

// New creates a disconnected Device for the given transport config.
func New(cfg transport.Config, opts ...Option) *Device {
	d := &Device{
		cfg:          cfg,
		newTransport: transport.New,
		settleDelay:  flash.DefaultSettleDelay,
		logger:       slog.Default(),
		tracer:       trace.NoopLogger{},
		bus:          eventbus.New[monitor.LogEvent](),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Connect opens the transport, reads the chip identity through the
// bootloader, boots the device back into its application and starts
// the serial monitor.
func (d *Device) Connect(ctx context.Context) (Info, error) {
	d.mu.Lock()
	if d.tr != nil || d.connecting {
		d.mu.Unlock()
		return Info{}, ErrAlreadyConnected
	}
	d.connecting = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.connecting = false
		d.mu.Unlock()
	}()

	cfg := d.cfg
	if cfg.Tracer == nil {
		cfg.Tracer = d.tracer
	}
	tr, err := d.newTransport(cfg)
	if err != nil {
		return Info{}, err
	}
	if err := tr.Open(ctx); err != nil {
		return Info{}, err
	}

	gate := transport.NewGate()
	drv := d.newDriver(tr)

	id, err := d.identify(ctx, gate, drv)
	if err != nil {
		tr.Close()
		return Info{}, err
	}
	info := Info{
		ChipType:   id.ChipType,
		MACAddress: id.MACAddress,
		FlashSize:  id.FlashSize,
	}

	mon := monitor.New(tr,
		monitor.WithGate(gate),
		monitor.WithBus(d.bus),
		monitor.WithLogger(d.logger),
		monitor.WithTracer(d.tracer),
		monitor.WithPortInfo(tr.ID(), tr.Describe()),
	)
	orch := flash.New(drv,
		flash.WithGate(gate),
		flash.WithMonitor(mon),
		flash.WithSettleDelay(d.settleDelay),
		flash.WithLogger(d.logger),
		flash.WithTracer(d.tracer),
		flash.WithPortInfo(tr.ID(), tr.Describe()),
	)

	d.mu.Lock()
	d.tr = tr
	d.gate = gate
	d.orch = orch
	d.mon = mon
	d.info = info
	d.mu.Unlock()

	d.logger.Info("device connected", "port", tr.Describe(), "chip", info.ChipType, "mac", info.MACAddress)
	d.bus.Publish(monitor.NewLogEvent("connected: "+info.String(), monitor.SeverityInfo))

	if err := mon.Start(ctx); err != nil {
		d.logger.Warn("monitor start failed", "err", err)
	}
	return info, nil
}

// identify borrows the port, syncs with the bootloader, queries the
// identity and reboots the device into its application.
func (d *Device) identify(ctx context.Context, gate *transport.Gate, drv *bootloader.Driver) (bootloader.Identity, error) {
	token, err := gate.Acquire(ctx, "connect")
	if err != nil {
		return bootloader.Identity{}, err
	}
	defer token.Release()

	if err := drv.EnterProgrammingMode(ctx); err != nil {
		return bootloader.Identity{}, err
	}
	id, err := drv.QueryIdentity(ctx)
	if err != nil {
		return bootloader.Identity{}, err
	}
	if err := drv.Reset(ctx); err != nil {
		return bootloader.Identity{}, err
	}
	return id, nil
}

// Disconnect stops the monitor and closes the transport. A session
// still in flight fails with the transport's close error; nothing
// waits for it. Disconnecting a disconnected device is a no-op.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	tr, mon := d.tr, d.mon
	d.tr = nil
	d.gate = nil
	d.orch = nil
	d.mon = nil
	d.info = Info{}
	d.mu.Unlock()

	if tr == nil {
		return nil
	}

	mon.Stop()
	err := tr.Close()
	d.logger.Info("device disconnected", "port", tr.Describe())
	d.bus.Publish(monitor.NewLogEvent("disconnected", monitor.SeverityInfo))
	return err
}

// Flash programs img onto the device and returns the session event
// stream. Stage transitions are mirrored onto the log stream. When an
// authorization hook is installed it is consulted with the identity
// captured at connect time; a rejected device fails with
// ErrFlashDenied before any session starts.
func (d *Device) Flash(ctx context.Context, img *firmware.Image) (<-chan flash.Event, error) {
	d.mu.Lock()
	orch, info := d.orch, d.info
	d.mu.Unlock()
	if orch == nil {
		return nil, d.notConnected()
	}
	if d.authorize != nil && !d.authorize(info) {
		d.logger.Warn("flash denied by authorization hook",
			"chip", info.ChipType, "mac", info.MACAddress)
		return nil, ErrFlashDenied
	}

	stream, err := orch.Flash(ctx, img)
	if err != nil {
		return nil, err
	}
	return d.relay(stream), nil
}

// Erase wipes the device's entire flash, using the capacity reported
// at connect time.
func (d *Device) Erase(ctx context.Context) (<-chan flash.Event, error) {
	d.mu.Lock()
	orch, size := d.orch, d.info.FlashSize
	d.mu.Unlock()
	if orch == nil {
		return nil, d.notConnected()
	}

	stream, err := orch.Erase(ctx, 0, size)
	if err != nil {
		return nil, err
	}
	return d.relay(stream), nil
}

// SubscribeLogs attaches a subscriber to the shared log stream. The
// subscription's Cancel detaches it.
func (d *Device) SubscribeLogs() *eventbus.Subscription[monitor.LogEvent] {
	return d.bus.Subscribe()
}

// IsConnected reports whether the transport is open.
func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tr != nil && d.tr.IsOpen()
}

// Info returns the chip identity captured at connect time.
func (d *Device) Info() (Info, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info, d.tr != nil
}

// Stage returns the current session stage, or IDLE when disconnected.
func (d *Device) Stage() flash.Stage {
	d.mu.Lock()
	orch := d.orch
	d.mu.Unlock()
	if orch == nil {
		return flash.StageIdle
	}
	return orch.Stage()
}

// Busy reports whether a flash or erase session is running.
func (d *Device) Busy() bool {
	d.mu.Lock()
	orch := d.orch
	d.mu.Unlock()
	return orch != nil && orch.Busy()
}

func (d *Device) notConnected() error {
	return &transport.ConnectionError{Port: d.cfg.Port, Reason: "not connected"}
}

func (d *Device) newDriver(tr transport.Transport) *bootloader.Driver {
	opts := []bootloader.Option{
		bootloader.WithLogger(d.logger),
		bootloader.WithTracer(d.tracer),
		bootloader.WithPortInfo(tr.ID(), tr.Describe()),
	}
	opts = append(opts, d.driverOpts...)
	return bootloader.New(tr, opts...)
}

// relay forwards session events to the caller and mirrors stage
// changes onto the log stream. The returned channel closes when the
// session stream does.
func (d *Device) relay(in <-chan flash.Event) <-chan flash.Event {
	out := make(chan flash.Event, cap(in))
	go func() {
		defer close(out)
		last := flash.StageIdle
		for ev := range in {
			if ev.Stage != last {
				last = ev.Stage
				sev := monitor.SeverityInfo
				if ev.Stage == flash.StageError {
					sev = monitor.SeverityError
				}
				d.bus.Publish(monitor.NewLogEvent(
					fmt.Sprintf("[%s] %s", ev.Stage, ev.Message), sev))
			}
			forward(out, ev)
		}
	}()
	return out
}

// forward delivers ev without blocking, evicting the oldest pending
// event when the buffer is full.
func forward(ch chan flash.Event, ev flash.Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
