package flash

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
	"github.com/mcuflash/mcuflash-go/pkg/trace"
	"github.com/mcuflash/mcuflash-go/pkg/transport"
)

// Driver is the bootloader command set a session drives. A
// *bootloader.Driver satisfies it.
type Driver interface {
	EnterProgrammingMode(ctx context.Context) error
	EraseRegion(ctx context.Context, offset, length uint32) error
	WriteChunk(ctx context.Context, offset uint32, data []byte) (int, error)
	Verify(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
	ChunkSize() int
}

var _ Driver = (*bootloader.Driver)(nil)

// MonitorController is the hand-off surface of the serial monitor. A
// *monitor.Monitor satisfies it.
type MonitorController interface {
	Stop() error
	Start(ctx context.Context) error
}

// session holds the mutable state of one flash or erase run. It is
// created by a request and destroyed at the terminal stage.
type session struct {
	stage     Stage
	progress  int
	message   string
	startTime time.Time
	events    chan Event
}

// emit delivers ev without ever blocking, evicting the oldest pending
// event when the buffer is full.
func (s *session) emit(ev Event) {
	for {
		select {
		case s.events <- ev:
			return
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}

// Orchestrator runs flash and erase sessions, one at a time.
type Orchestrator struct {
	driver  Driver
	gate    *transport.Gate
	monitor MonitorController

	settleDelay time.Duration
	eventBuffer int
	logger      *slog.Logger
	tracer      trace.Logger
	portID      string
	port        string

	bus *eventbus.Bus[Event]

	mu        sync.Mutex
	session   *session
	lastStage Stage
}

// New creates an Orchestrator driving the given bootloader driver.
func New(driver Driver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		driver:      driver,
		settleDelay: DefaultSettleDelay,
		eventBuffer: DefaultEventBuffer,
		logger:      slog.Default(),
		tracer:      trace.NoopLogger{},
		bus:         eventbus.New[Event](),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Flash programs img onto the device. It returns immediately with the
// session's event stream; the channel is closed after the terminal
// event. A second request while a session is active fails with
// *SessionBusyError.
func (o *Orchestrator) Flash(ctx context.Context, img *firmware.Image) (<-chan Event, error) {
	if img == nil {
		return nil, errors.New("no firmware image")
	}
	s, err := o.begin()
	if err != nil {
		return nil, err
	}

	o.logger.Info("flash session started", "image", img.Name(), "size", img.Size())
	go o.runFlash(ctx, s, img)
	return s.events, nil
}

// Erase wipes length bytes of flash starting at offset. Like Flash it
// returns the session's event stream; the erase path never enters the
// WRITING or VERIFYING stages.
func (o *Orchestrator) Erase(ctx context.Context, offset, length uint32) (<-chan Event, error) {
	s, err := o.begin()
	if err != nil {
		return nil, err
	}

	o.logger.Info("erase session started", "offset", offset, "length", length)
	go o.runErase(ctx, s, offset, length)
	return s.events, nil
}

// Stage returns the stage of the active session, or the terminal
// stage of the last one.
func (o *Orchestrator) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		return o.session.stage
	}
	return o.lastStage
}

// Busy reports whether a session is active.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session != nil
}

// SubscribeSession attaches a subscriber to the event streams of all
// future sessions. Unlike the per-request channel, the subscription
// outlives individual sessions; its Cancel detaches it.
func (o *Orchestrator) SubscribeSession() *eventbus.Subscription[Event] {
	return o.bus.Subscribe()
}

func (o *Orchestrator) begin() (*session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		return nil, &SessionBusyError{Stage: o.session.stage}
	}

	s := &session{
		stage:     StageIdle,
		startTime: time.Now(),
		events:    make(chan Event, o.eventBuffer),
	}
	o.session = s
	return s, nil
}

func (o *Orchestrator) runFlash(ctx context.Context, s *session, img *firmware.Image) {
	token, err := o.takePort(ctx)
	if err != nil {
		o.finish(s, nil, "", fmt.Errorf("acquiring port: %w", err))
		return
	}

	if err := o.flashSteps(ctx, s, img); err != nil {
		o.resetQuiet()
		o.finish(s, token, "", err)
		return
	}
	o.finish(s, token, fmt.Sprintf("flashed %d bytes", img.Size()), nil)
}

func (o *Orchestrator) flashSteps(ctx context.Context, s *session, img *firmware.Image) error {
	o.transition(s, StageConnecting, 0, "entering programming mode")
	if err := o.driver.EnterProgrammingMode(ctx); err != nil {
		return err
	}

	total := img.Size()
	o.transition(s, StageErasing, 0, fmt.Sprintf("erasing %d bytes", total))
	if err := o.driver.EraseRegion(ctx, 0, total); err != nil {
		return err
	}

	o.transition(s, StageWriting, 0, fmt.Sprintf("writing %s", img.Name()))
	if err := o.writeImage(ctx, s, img); err != nil {
		return err
	}

	o.transition(s, StageVerifying, 100, "verifying flash")
	ok, err := o.driver.Verify(ctx)
	switch {
	case ok:
	case errors.Is(err, bootloader.ErrVerificationUnsupported):
		o.logger.Warn("device cannot verify, trusting the write path")
	case err != nil:
		return err
	default:
		return errors.New("verification failed")
	}

	if err := o.driver.Reset(ctx); err != nil {
		o.logger.Warn("reset after flash failed", "err", err)
	}
	return nil
}

func (o *Orchestrator) writeImage(ctx context.Context, s *session, img *firmware.Image) error {
	data := img.Bytes()
	total := len(data)
	chunkSize := o.driver.ChunkSize()
	if chunkSize <= 0 {
		return fmt.Errorf("invalid chunk size %d", chunkSize)
	}

	written := 0
	for written < total {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := written + chunkSize
		if end > total {
			end = total
		}
		n, err := o.driver.WriteChunk(ctx, uint32(written), data[written:end])
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("short write at offset %d", written)
		}

		written += n
		o.advance(s, progressFor(written, total), fmt.Sprintf("wrote %d of %d bytes", written, total))
	}
	return nil
}

func (o *Orchestrator) runErase(ctx context.Context, s *session, offset, length uint32) {
	token, err := o.takePort(ctx)
	if err != nil {
		o.finish(s, nil, "", fmt.Errorf("acquiring port: %w", err))
		return
	}

	if err := o.eraseSteps(ctx, s, offset, length); err != nil {
		o.resetQuiet()
		o.finish(s, token, "", err)
		return
	}
	o.finish(s, token, fmt.Sprintf("erased %d bytes", length), nil)
}

func (o *Orchestrator) eraseSteps(ctx context.Context, s *session, offset, length uint32) error {
	o.transition(s, StageConnecting, 0, "entering programming mode")
	if err := o.driver.EnterProgrammingMode(ctx); err != nil {
		return err
	}

	o.transition(s, StageErasing, 0, fmt.Sprintf("erasing %d bytes at 0x%08X", length, offset))
	if err := o.driver.EraseRegion(ctx, offset, length); err != nil {
		return err
	}

	if err := o.driver.Reset(ctx); err != nil {
		o.logger.Warn("reset after erase failed", "err", err)
	}
	return nil
}

// takePort stops the monitor and claims the port gate so the session
// is the only reader and writer on the transport.
func (o *Orchestrator) takePort(ctx context.Context) (*transport.GateToken, error) {
	if o.monitor != nil {
		if err := o.monitor.Stop(); err != nil {
			return nil, fmt.Errorf("stopping monitor: %w", err)
		}
	}
	if o.gate == nil {
		return nil, nil
	}
	return o.gate.Acquire(ctx, "flasher")
}

// resetQuiet tries to boot the device back into its application after
// a failed session so it is not left stranded in the bootloader.
func (o *Orchestrator) resetQuiet() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.driver.Reset(ctx); err != nil {
		o.logger.Debug("post-failure reset failed", "err", err)
	}
}

// transition moves the session to a new stage and emits an event.
func (o *Orchestrator) transition(s *session, stage Stage, progress int, message string) {
	o.mu.Lock()
	old := s.stage
	s.stage = stage
	if progress > s.progress {
		s.progress = progress
	}
	s.message = message
	ev := Event{Stage: stage, Progress: s.progress, Message: message}
	o.mu.Unlock()

	o.logger.Debug("stage change", "from", old, "to", stage, "progress", ev.Progress)
	o.traceStage(old, stage, message)
	s.emit(ev)
	o.bus.Publish(ev)
}

// advance reports progress within the current stage. Progress never
// moves backwards.
func (o *Orchestrator) advance(s *session, progress int, message string) {
	o.mu.Lock()
	if progress > s.progress {
		s.progress = progress
	}
	s.message = message
	ev := Event{Stage: s.stage, Progress: s.progress, Message: message}
	o.mu.Unlock()

	s.emit(ev)
	o.bus.Publish(ev)
}

// finish emits the terminal event, destroys the session and hands the
// port back to the monitor after the settle delay.
func (o *Orchestrator) finish(s *session, token *transport.GateToken, successMsg string, failure error) {
	o.mu.Lock()
	old := s.stage
	var ev Event
	if failure != nil {
		s.stage = StageError
		s.message = failure.Error()
		ev = Event{Stage: StageError, Progress: s.progress, Message: s.message, Err: failure}
	} else {
		s.stage = StageComplete
		s.progress = 100
		s.message = successMsg
		ev = Event{Stage: StageComplete, Progress: 100, Message: successMsg}
	}
	o.lastStage = s.stage
	o.session = nil
	o.mu.Unlock()

	elapsed := time.Since(s.startTime).Round(time.Millisecond)
	if failure != nil {
		o.logger.Warn("session failed", "stage", old, "elapsed", elapsed, "err", failure)
		o.traceSessionError(failure)
	} else {
		o.logger.Info("session complete", "elapsed", elapsed)
	}
	o.traceStage(old, s.stage, ev.Message)

	s.emit(ev)
	o.bus.Publish(ev)
	close(s.events)

	if token != nil {
		token.Release()
	}
	o.resumeMonitor()
}

// resumeMonitor restarts the monitor after the settle delay so the
// operator sees the device boot.
func (o *Orchestrator) resumeMonitor() {
	if o.monitor == nil {
		return
	}
	time.Sleep(o.settleDelay)
	if err := o.monitor.Start(context.Background()); err != nil {
		o.logger.Debug("monitor restart skipped", "reason", err)
	}
}

// progressFor converts a byte count to whole percent, rounded down
// and clamped to [0, 100].
func progressFor(written, total int) int {
	if total <= 0 {
		return 100
	}
	p := int(int64(written) * 100 / int64(total))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func (o *Orchestrator) traceStage(old, new Stage, reason string) {
	o.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		PortID:    o.portID,
		Direction: trace.DirectionOut,
		Layer:     trace.LayerSession,
		Category:  trace.CategoryState,
		Port:      o.port,
		StateChange: &trace.StateChangeEvent{
			Entity:   trace.StateEntitySession,
			OldState: old.String(),
			NewState: new.String(),
			Reason:   reason,
		},
	})
}

func (o *Orchestrator) traceSessionError(err error) {
	o.tracer.Log(trace.Event{
		Timestamp: time.Now(),
		PortID:    o.portID,
		Direction: trace.DirectionOut,
		Layer:     trace.LayerSession,
		Category:  trace.CategoryError,
		Port:      o.port,
		Error: &trace.ErrorEventData{
			Layer:   trace.LayerSession,
			Message: err.Error(),
		},
	})
}
