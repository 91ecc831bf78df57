package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Frame is a decoded protocol frame.
type Frame struct {
	// Op is the command opcode (echoed in responses).
	Op Op

	// Payload is the opcode-specific payload.
	Payload []byte
}

// BuildFrame encodes op and payload into a complete frame ready for the
// wire.
func BuildFrame(op Op, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	buf := make([]byte, 0, MinFrameSize+len(payload))
	buf = append(buf, SOP, byte(op))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	crc := CRC16(buf[1:]) // opcode, length, payload
	buf = binary.LittleEndian.AppendUint16(buf, crc)
	buf = append(buf, EOP)
	return buf, nil
}

// BuildResponse encodes a response frame: the echoed opcode with a status
// byte prepended to the response data.
func BuildResponse(op Op, status Status, data []byte) ([]byte, error) {
	payload := make([]byte, 0, 1+len(data))
	payload = append(payload, byte(status))
	payload = append(payload, data...)
	return BuildFrame(op, payload)
}

// SplitResponse extracts the status byte and remaining data from a
// response frame payload.
func SplitResponse(f Frame) (Status, []byte, error) {
	if len(f.Payload) == 0 {
		return 0, nil, fmt.Errorf("%w: op %s", ErrEmptyResponse, f.Op)
	}
	return Status(f.Payload[0]), f.Payload[1:], nil
}

// ParseFrame decodes a single complete frame from buf. The buffer must
// start at the SOP byte and contain the whole frame.
func ParseFrame(buf []byte) (Frame, error) {
	if len(buf) < MinFrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameTruncated, len(buf))
	}
	if buf[0] != SOP {
		return Frame{}, fmt.Errorf("%w: expected SOP 0x%02X, got 0x%02X", ErrBadDelimiter, SOP, buf[0])
	}
	plen := int(binary.LittleEndian.Uint16(buf[2:4]))
	if plen > MaxPayloadSize {
		return Frame{}, fmt.Errorf("%w: declared payload %d bytes", ErrPayloadTooLarge, plen)
	}
	total := MinFrameSize + plen
	if len(buf) < total {
		return Frame{}, fmt.Errorf("%w: need %d bytes, have %d", ErrFrameTruncated, total, len(buf))
	}
	if buf[total-1] != EOP {
		return Frame{}, fmt.Errorf("%w: expected EOP 0x%02X, got 0x%02X", ErrBadDelimiter, EOP, buf[total-1])
	}
	want := binary.LittleEndian.Uint16(buf[total-3 : total-1])
	got := CRC16(buf[1 : total-3])
	if want != got {
		return Frame{}, fmt.Errorf("%w: frame 0x%04X, computed 0x%04X", ErrChecksumMismatch, want, got)
	}
	payload := make([]byte, plen)
	copy(payload, buf[HeaderSize:HeaderSize+plen])
	return Frame{Op: Op(buf[1]), Payload: payload}, nil
}

// Scanner reassembles frames from a raw byte stream.
//
// Push appends received bytes, Next extracts complete frames. Bytes ahead
// of a SOP are discarded, which resynchronizes the stream after line
// noise or a corrupted frame. The zero value is ready to use. Scanner is
// not safe for concurrent use.
type Scanner struct {
	buf []byte
}

// Push appends raw stream bytes to the scanner.
func (s *Scanner) Push(p []byte) {
	s.buf = append(s.buf, p...)
}

// Next extracts the next complete frame. ok is false when the buffered
// bytes do not yet form one. A non-nil error reports a malformed frame;
// the offending bytes are consumed, so the caller may keep scanning.
func (s *Scanner) Next() (frame Frame, ok bool, err error) {
	for {
		start := bytes.IndexByte(s.buf, SOP)
		if start < 0 {
			s.buf = s.buf[:0]
			return Frame{}, false, nil
		}
		if start > 0 {
			s.discard(start)
		}
		if len(s.buf) < HeaderSize {
			return Frame{}, false, nil
		}
		plen := int(binary.LittleEndian.Uint16(s.buf[2:4]))
		if plen > MaxPayloadSize {
			// Not a plausible header, likely a stray SOP inside noise.
			s.discard(1)
			continue
		}
		total := MinFrameSize + plen
		if len(s.buf) < total {
			return Frame{}, false, nil
		}
		frame, err := ParseFrame(s.buf[:total])
		if err != nil {
			s.discard(1)
			return Frame{}, false, err
		}
		s.discard(total)
		return frame, true, nil
	}
}

// Pending returns the number of buffered bytes not yet consumed.
func (s *Scanner) Pending() int {
	return len(s.buf)
}

// Reset drops all buffered bytes.
func (s *Scanner) Reset() {
	s.buf = s.buf[:0]
}

func (s *Scanner) discard(n int) {
	s.buf = append(s.buf[:0], s.buf[n:]...)
}
