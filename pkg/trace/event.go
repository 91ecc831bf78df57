package trace

import "time"

// Event represents a capture event recorded at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// PortID uniquely identifies one opened transport (UUID).
	PortID string `cbor:"2,keyasint"`

	// Direction indicates byte or command flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Port is the device path ("/dev/ttyUSB0") or "simulated".
	Port string `cbor:"6,keyasint,omitempty"`

	// Chip is the reported chip type (populated after identification).
	Chip string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Chunk       *ChunkEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"` // Bootloader layer
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session/monitor/transport state
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of byte or command flow.
type Direction uint8

const (
	// DirectionIn indicates data received from the device.
	DirectionIn Direction = 0
	// DirectionOut indicates data sent to the device.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the raw byte layer.
	LayerTransport Layer = 0
	// LayerBootloader is the command/response layer.
	LayerBootloader Layer = 1
	// LayerSession is the orchestration layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerBootloader:
		return "BOOTLOADER"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryData indicates raw transport bytes.
	CategoryData Category = 0
	// CategoryCommand indicates a bootloader command or response.
	CategoryCommand Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategoryCommand:
		return "COMMAND"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MaxChunkCapture bounds how many raw bytes a ChunkEvent carries.
// Larger chunks are truncated; Size always reports the full length.
const MaxChunkCapture = 512

// ChunkEvent captures raw bytes at the transport layer.
type ChunkEvent struct {
	// Size is the full transfer size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw bytes (truncated to MaxChunkCapture).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewChunkEvent builds a ChunkEvent from a raw transfer, copying and
// truncating the data as needed.
func NewChunkEvent(data []byte) *ChunkEvent {
	ev := &ChunkEvent{Size: len(data)}
	n := len(data)
	if n > MaxChunkCapture {
		n = MaxChunkCapture
		ev.Truncated = true
	}
	ev.Data = make([]byte, n)
	copy(ev.Data, data[:n])
	return ev
}

// CommandEvent captures a bootloader command or its response.
type CommandEvent struct {
	// Op is the command name (SYNC, INFO, ERASE, WRITE, VERIFY, RESET).
	Op string `cbor:"1,keyasint"`

	// Offset is the flash offset for erase/write commands.
	Offset *uint32 `cbor:"2,keyasint,omitempty"`

	// Length is the data or region length for erase/write/verify.
	Length *uint32 `cbor:"3,keyasint,omitempty"`

	// Status is the response status code (responses only).
	Status *uint8 `cbor:"4,keyasint,omitempty"`

	// Attempt numbers handshake retries (1-based, sync only).
	Attempt *int `cbor:"5,keyasint,omitempty"`

	// Elapsed is the duration from command send to response receipt
	// (responses only). Stored as nanoseconds.
	Elapsed *time.Duration `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures session, monitor and transport lifecycle
// transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityTransport indicates a transport open/close.
	StateEntityTransport StateEntity = 0
	// StateEntitySession indicates a flash session stage change.
	StateEntitySession StateEntity = 1
	// StateEntityMonitor indicates a monitor start/stop.
	StateEntityMonitor StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityTransport:
		return "TRANSPORT"
	case StateEntitySession:
		return "SESSION"
	case StateEntityMonitor:
		return "MONITOR"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
