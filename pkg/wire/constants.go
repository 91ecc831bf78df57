package wire

// Frame delimiters.
const (
	// SOP marks the start of a frame.
	SOP byte = 0x7E
	// EOP marks the end of a frame.
	EOP byte = 0x7F
)

// Frame geometry.
const (
	// HeaderSize is SOP + opcode + 2-byte length.
	HeaderSize = 4
	// TrailerSize is 2-byte CRC + EOP.
	TrailerSize = 3
	// MinFrameSize is a frame with an empty payload.
	MinFrameSize = HeaderSize + TrailerSize

	// ChunkSize is the fixed write granularity. Write commands carry at
	// most this much data after the 4-byte offset.
	ChunkSize = 4096

	// MaxPayloadSize bounds the payload of any frame. The largest legal
	// payload is a full write chunk plus its offset.
	MaxPayloadSize = 4 + ChunkSize

	// ProtocolVersion is returned in the Sync response.
	ProtocolVersion byte = 0x01
)

// Op identifies a bootloader command.
type Op uint8

// Bootloader opcodes. Responses echo the opcode of the command they
// answer.
const (
	OpSync   Op = 0x21
	OpInfo   Op = 0x22
	OpErase  Op = 0x23
	OpWrite  Op = 0x24
	OpVerify Op = 0x25
	OpReset  Op = 0x26
)

// String returns the opcode name.
func (o Op) String() string {
	switch o {
	case OpSync:
		return "SYNC"
	case OpInfo:
		return "INFO"
	case OpErase:
		return "ERASE"
	case OpWrite:
		return "WRITE"
	case OpVerify:
		return "VERIFY"
	case OpReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether the opcode is one the protocol defines.
func (o Op) Valid() bool {
	return o >= OpSync && o <= OpReset
}

// Status is the first payload byte of every response frame.
type Status uint8

// Response status codes.
const (
	StatusOK             Status = 0x00
	StatusBadChecksum    Status = 0x01
	StatusBadLength      Status = 0x02
	StatusUnknownCommand Status = 0x03
	StatusOutOfOrder     Status = 0x04
	StatusBadRange       Status = 0x05
	StatusEraseFailed    Status = 0x06
	StatusWriteFailed    Status = 0x07
	StatusVerifyMismatch Status = 0x08
	StatusUnsupported    Status = 0x09
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBadChecksum:
		return "BAD_CHECKSUM"
	case StatusBadLength:
		return "BAD_LENGTH"
	case StatusUnknownCommand:
		return "UNKNOWN_COMMAND"
	case StatusOutOfOrder:
		return "OUT_OF_ORDER"
	case StatusBadRange:
		return "BAD_RANGE"
	case StatusEraseFailed:
		return "ERASE_FAILED"
	case StatusWriteFailed:
		return "WRITE_FAILED"
	case StatusVerifyMismatch:
		return "VERIFY_MISMATCH"
	case StatusUnsupported:
		return "UNSUPPORTED"
	default:
		return "UNKNOWN"
	}
}

// IsOK reports whether the status indicates success.
func (s Status) IsOK() bool {
	return s == StatusOK
}
