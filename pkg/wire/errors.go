package wire

import "errors"

// Codec errors. Callers match these with errors.Is; Build and Parse
// functions wrap them with the offending values.
var (
	// ErrPayloadTooLarge indicates a payload exceeding MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("wire: payload exceeds maximum frame size")

	// ErrFrameTruncated indicates a buffer too short to hold a complete frame.
	ErrFrameTruncated = errors.New("wire: truncated frame")

	// ErrBadDelimiter indicates a missing SOP or EOP byte.
	ErrBadDelimiter = errors.New("wire: bad frame delimiter")

	// ErrChecksumMismatch indicates the frame CRC does not match its contents.
	ErrChecksumMismatch = errors.New("wire: checksum mismatch")

	// ErrShortPayload indicates a payload too short for its opcode.
	ErrShortPayload = errors.New("wire: payload too short")

	// ErrEmptyResponse indicates a response frame without a status byte.
	ErrEmptyResponse = errors.New("wire: response missing status byte")
)
