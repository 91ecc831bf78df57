package wire

import (
	"encoding/binary"
	"fmt"
)

// BuildErasePayload encodes the payload of an Erase command.
func BuildErasePayload(offset, length uint32) []byte {
	buf := make([]byte, 0, 8)
	buf = binary.LittleEndian.AppendUint32(buf, offset)
	buf = binary.LittleEndian.AppendUint32(buf, length)
	return buf
}

// ParseErasePayload decodes the payload of an Erase command.
func ParseErasePayload(p []byte) (offset, length uint32, err error) {
	if len(p) != 8 {
		return 0, 0, fmt.Errorf("%w: erase payload must be 8 bytes, got %d", ErrShortPayload, len(p))
	}
	return binary.LittleEndian.Uint32(p[0:4]), binary.LittleEndian.Uint32(p[4:8]), nil
}

// BuildWritePayload encodes the payload of a Write command. The data
// length is bounded by ChunkSize.
func BuildWritePayload(offset uint32, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: write payload has no data", ErrShortPayload)
	}
	if len(data) > ChunkSize {
		return nil, fmt.Errorf("%w: write data %d bytes, chunk limit %d", ErrPayloadTooLarge, len(data), ChunkSize)
	}
	buf := make([]byte, 0, 4+len(data))
	buf = binary.LittleEndian.AppendUint32(buf, offset)
	buf = append(buf, data...)
	return buf, nil
}

// ParseWritePayload decodes the payload of a Write command. The returned
// data aliases p.
func ParseWritePayload(p []byte) (offset uint32, data []byte, err error) {
	if len(p) < 5 {
		return 0, nil, fmt.Errorf("%w: write payload must carry data after the offset", ErrShortPayload)
	}
	return binary.LittleEndian.Uint32(p[0:4]), p[4:], nil
}

// BuildVerifyPayload encodes the payload of a Verify command: the total
// written length and the CRC-32 (IEEE) of the written bytes.
func BuildVerifyPayload(length, checksum uint32) []byte {
	buf := make([]byte, 0, 8)
	buf = binary.LittleEndian.AppendUint32(buf, length)
	buf = binary.LittleEndian.AppendUint32(buf, checksum)
	return buf
}

// ParseVerifyPayload decodes the payload of a Verify command.
func ParseVerifyPayload(p []byte) (length, checksum uint32, err error) {
	if len(p) != 8 {
		return 0, 0, fmt.Errorf("%w: verify payload must be 8 bytes, got %d", ErrShortPayload, len(p))
	}
	return binary.LittleEndian.Uint32(p[0:4]), binary.LittleEndian.Uint32(p[4:8]), nil
}

// BuildIdentityPayload encodes the data portion of an Info response:
// flash size, MAC address and the chip name filling the rest of the
// payload.
func BuildIdentityPayload(flashSize uint32, mac [6]byte, chip string) []byte {
	buf := make([]byte, 0, 10+len(chip))
	buf = binary.LittleEndian.AppendUint32(buf, flashSize)
	buf = append(buf, mac[:]...)
	buf = append(buf, chip...)
	return buf
}

// ParseIdentityPayload decodes the data portion of an Info response.
func ParseIdentityPayload(p []byte) (flashSize uint32, mac [6]byte, chip string, err error) {
	if len(p) < 10 {
		return 0, [6]byte{}, "", fmt.Errorf("%w: identity payload must be at least 10 bytes, got %d", ErrShortPayload, len(p))
	}
	flashSize = binary.LittleEndian.Uint32(p[0:4])
	copy(mac[:], p[4:10])
	chip = string(p[10:])
	return flashSize, mac, chip, nil
}

// FormatMAC renders a MAC address in the conventional colon-separated
// lowercase hex form.
func FormatMAC(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}
