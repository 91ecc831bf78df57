package device

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mcuflash/mcuflash-go/internal/simdev"
	"github.com/mcuflash/mcuflash-go/pkg/bootloader"
	"github.com/mcuflash/mcuflash-go/pkg/eventbus"
	"github.com/mcuflash/mcuflash-go/pkg/firmware"
	"github.com/mcuflash/mcuflash-go/pkg/flash"
	"github.com/mcuflash/mcuflash-go/pkg/monitor"
	"github.com/mcuflash/mcuflash-go/pkg/transport"
)

// newSimDevice builds a Device backed by a simulated chip with tight
// timing. The returned getter exposes the transport once Connect has
// built it.
func newSimDevice(t *testing.T, devOpts ...simdev.Option) (*Device, func() *transport.Simulated) {
	t.Helper()

	var sim *transport.Simulated
	factory := func(cfg transport.Config) (transport.Transport, error) {
		opts := append([]simdev.Option{simdev.WithLineDelay(time.Millisecond)}, devOpts...)
		sim = transport.NewSimulated(cfg, opts...)
		return sim, nil
	}

	d := New(transport.Config{Simulated: true},
		WithTransportFactory(factory),
		WithSettleDelay(10*time.Millisecond),
		WithDriverOptions(
			bootloader.WithSyncTimeout(100*time.Millisecond),
			bootloader.WithResponseTimeout(300*time.Millisecond),
			bootloader.WithEraseTimeout(300*time.Millisecond),
			bootloader.WithResetHold(time.Millisecond),
			bootloader.WithBootSettle(time.Millisecond),
		),
	)
	t.Cleanup(func() { d.Disconnect() })
	return d, func() *transport.Simulated { return sim }
}

func connectSim(t *testing.T, devOpts ...simdev.Option) (*Device, *transport.Simulated, Info) {
	t.Helper()
	d, sim := newSimDevice(t, devOpts...)
	info, err := d.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return d, sim(), info
}

func collectSession(t *testing.T, ch <-chan flash.Event) []flash.Event {
	t.Helper()
	var events []flash.Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("session stream did not terminate, got %d events", len(events))
		}
	}
}

func waitForLog(t *testing.T, sub *eventbus.Subscription[monitor.LogEvent], match func(monitor.LogEvent) bool) monitor.LogEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatal("log stream closed")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("expected log event never arrived")
			return monitor.LogEvent{}
		}
	}
}

func TestConnectReadsIdentity(t *testing.T) {
	d, sim, info := connectSim(t)

	if info.ChipType != "SIM32" {
		t.Errorf("ChipType = %q, want SIM32", info.ChipType)
	}
	if info.MACAddress != "84:f7:03:12:34:56" {
		t.Errorf("MACAddress = %q", info.MACAddress)
	}
	if info.FlashSize != 4*1024*1024 {
		t.Errorf("FlashSize = %d, want 4 MiB", info.FlashSize)
	}

	if !d.IsConnected() {
		t.Error("IsConnected = false after Connect")
	}
	got, ok := d.Info()
	if !ok || got != info {
		t.Errorf("Info() = %+v/%v, want %+v/true", got, ok, info)
	}

	// Connect leaves the device running its application.
	if sim.Device().Mode() != simdev.ModeRun {
		t.Errorf("device mode = %s, want RUN", sim.Device().Mode())
	}
}

func TestConnectTwice(t *testing.T) {
	d, _, _ := connectSim(t)
	if _, err := d.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect = %v, want ErrAlreadyConnected", err)
	}
}

func TestConnectStreamsBootLog(t *testing.T) {
	d, _ := newSimDevice(t)
	sub := d.SubscribeLogs()
	defer sub.Cancel()

	info, err := d.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	first := waitForLog(t, sub, func(ev monitor.LogEvent) bool { return true })
	if !strings.HasPrefix(first.Text, "connected: ") || !strings.Contains(first.Text, info.ChipType) {
		t.Errorf("first log = %q, want connect message", first.Text)
	}

	// The monitor picks up the boot script the reset triggered.
	lastLine := simdev.DefaultBootScript[len(simdev.DefaultBootScript)-1]
	waitForLog(t, sub, func(ev monitor.LogEvent) bool { return ev.Text == lastLine })
}

func TestFlashEndToEnd(t *testing.T) {
	d, sim, _ := connectSim(t)

	data := make([]byte, 256000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	img, err := firmware.New("app.stable.bin", data)
	if err != nil {
		t.Fatalf("firmware.New: %v", err)
	}

	sub := d.SubscribeLogs()
	defer sub.Cancel()

	stream, err := d.Flash(context.Background(), img)
	if err != nil {
		t.Fatalf("Flash: %v", err)
	}
	events := collectSession(t, stream)

	last := events[len(events)-1]
	if last.Stage != flash.StageComplete || last.Progress != 100 || last.Err != nil {
		t.Fatalf("terminal event = %+v", last)
	}
	if d.Busy() {
		t.Error("Busy after session end")
	}
	if d.Stage() != flash.StageComplete {
		t.Errorf("Stage = %s, want COMPLETE", d.Stage())
	}

	if !bytes.Equal(sim.Device().FlashBytes(0, uint32(len(data))), data) {
		t.Error("flash content differs from image")
	}

	// Stage changes are mirrored onto the log stream, and the monitor
	// comes back to show the device booting the new firmware.
	waitForLog(t, sub, func(ev monitor.LogEvent) bool {
		return strings.HasPrefix(ev.Text, "[COMPLETE]")
	})
	lastLine := simdev.DefaultBootScript[len(simdev.DefaultBootScript)-1]
	waitForLog(t, sub, func(ev monitor.LogEvent) bool { return ev.Text == lastLine })
}

func TestEraseEndToEnd(t *testing.T) {
	d, sim, _ := connectSim(t)

	// Leave some residue so the wipe is observable.
	data := bytes.Repeat([]byte{0xAB}, 8192)
	img, err := firmware.New("residue.bin", data)
	if err != nil {
		t.Fatalf("firmware.New: %v", err)
	}
	stream, err := d.Flash(context.Background(), img)
	if err != nil {
		t.Fatalf("Flash: %v", err)
	}
	collectSession(t, stream)

	stream, err = d.Erase(context.Background())
	if err != nil {
		t.Fatalf("Erase: %v", err)
	}
	events := collectSession(t, stream)

	stages := make(map[flash.Stage]bool)
	for _, ev := range events {
		stages[ev.Stage] = true
	}
	if stages[flash.StageWriting] || stages[flash.StageVerifying] {
		t.Error("erase session entered a write or verify stage")
	}
	last := events[len(events)-1]
	if last.Stage != flash.StageComplete || last.Progress != 100 {
		t.Fatalf("terminal event = %+v", last)
	}

	erased := sim.Device().FlashBytes(0, 8192)
	if !bytes.Equal(erased, bytes.Repeat([]byte{0xFF}, 8192)) {
		t.Error("flash not blank after erase")
	}
}

func TestFlashAuthorization(t *testing.T) {
	d, sim := newSimDevice(t)
	allow := false
	var hookInfo Info
	WithAuthorizer(func(info Info) bool {
		hookInfo = info
		return allow
	})(d)

	info, err := d.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	data := bytes.Repeat([]byte{0x42}, 512)
	img, err := firmware.New("fw.bin", data)
	if err != nil {
		t.Fatalf("firmware.New: %v", err)
	}

	if _, err := d.Flash(context.Background(), img); !errors.Is(err, ErrFlashDenied) {
		t.Fatalf("Flash = %v, want ErrFlashDenied", err)
	}
	if hookInfo != info {
		t.Errorf("hook received %+v, want %+v", hookInfo, info)
	}
	if d.Busy() {
		t.Error("session started despite denial")
	}

	// Erase is not subject to the hook.
	stream, err := d.Erase(context.Background())
	if err != nil {
		t.Fatalf("Erase: %v", err)
	}
	collectSession(t, stream)

	allow = true
	stream, err = d.Flash(context.Background(), img)
	if err != nil {
		t.Fatalf("Flash after allow: %v", err)
	}
	events := collectSession(t, stream)
	if last := events[len(events)-1]; last.Stage != flash.StageComplete {
		t.Fatalf("terminal stage = %s, want COMPLETE", last.Stage)
	}
	if !bytes.Equal(sim().Device().FlashBytes(0, uint32(len(data))), data) {
		t.Error("flash content differs from image")
	}
}

func TestOperationsRequireConnect(t *testing.T) {
	d := New(transport.Config{Simulated: true})

	var connErr *transport.ConnectionError
	if _, err := d.Erase(context.Background()); !errors.As(err, &connErr) {
		t.Errorf("Erase while disconnected = %v, want *transport.ConnectionError", err)
	}

	img, err := firmware.New("fw.bin", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("firmware.New: %v", err)
	}
	if _, err := d.Flash(context.Background(), img); !errors.As(err, &connErr) {
		t.Errorf("Flash while disconnected = %v, want *transport.ConnectionError", err)
	}
	if d.IsConnected() {
		t.Error("IsConnected = true without Connect")
	}
}

func TestDisconnectAndReconnect(t *testing.T) {
	d, _ := newSimDevice(t)

	if _, err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := d.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if d.IsConnected() {
		t.Error("IsConnected after Disconnect")
	}
	if _, ok := d.Info(); ok {
		t.Error("Info still present after Disconnect")
	}
	if err := d.Disconnect(); err != nil {
		t.Errorf("second Disconnect: %v", err)
	}

	// A new connect performs a fresh handshake on a fresh transport.
	info, err := d.Connect(context.Background())
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if info.ChipType != "SIM32" {
		t.Errorf("ChipType after reconnect = %q", info.ChipType)
	}
}

func TestDisconnectDuringWrite(t *testing.T) {
	d, _, info := connectSim(t)

	// A whole-flash image keeps the writer busy long enough to yank
	// the transport out from under it.
	data := bytes.Repeat([]byte{0x5A}, int(info.FlashSize))
	img, err := firmware.New("big.bin", data)
	if err != nil {
		t.Fatalf("firmware.New: %v", err)
	}
	stream, err := d.Flash(context.Background(), img)
	if err != nil {
		t.Fatalf("Flash: %v", err)
	}

	var events []flash.Event
	disconnected := false
	timeout := time.After(10 * time.Second)
loop:
	for {
		select {
		case ev, ok := <-stream:
			if !ok {
				break loop
			}
			events = append(events, ev)
			if ev.Stage == flash.StageWriting && !disconnected {
				disconnected = true
				if err := d.Disconnect(); err != nil {
					t.Fatalf("Disconnect: %v", err)
				}
			}
		case <-timeout:
			t.Fatal("session stream did not terminate")
		}
	}
	if !disconnected {
		t.Fatal("session never reached WRITING")
	}

	last := events[len(events)-1]
	if last.Stage != flash.StageError || last.Err == nil {
		t.Fatalf("terminal event = %+v, want ERROR with cause", last)
	}
	if d.IsConnected() {
		t.Error("IsConnected after Disconnect")
	}

	// The handle survives and reconnects with a fresh handshake.
	again, err := d.Connect(context.Background())
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if again.ChipType != "SIM32" {
		t.Errorf("ChipType after reconnect = %q", again.ChipType)
	}
}

func TestSubscriptionCancel(t *testing.T) {
	d, _ := newSimDevice(t)
	sub := d.SubscribeLogs()
	sub.Cancel()

	if _, ok := <-sub.Events(); ok {
		t.Error("events channel still open after Cancel")
	}
}

func TestInfoString(t *testing.T) {
	info := Info{ChipType: "SIM32", MACAddress: "84:f7:03:12:34:56", FlashSize: 4 * 1024 * 1024}
	want := "SIM32 (84:f7:03:12:34:56, 4096 KiB flash)"
	if got := info.String(); got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}
