// Package wire implements the serial bootloader framing protocol.
//
// Every command and response travels inside a single frame:
//
//	[SOP][OP][LEN lo][LEN hi][PAYLOAD...][CRC lo][CRC hi][EOP]
//
// SOP (0x7E) and EOP (0x7F) delimit the frame. LEN is the payload length
// in bytes, little-endian. CRC is CRC-16-CCITT (poly 0x1021, init 0xFFFF)
// computed over OP, LEN and PAYLOAD. The CRC intentionally excludes the
// delimiter bytes so a receiver can validate a frame after stripping them.
//
// # Commands
//
// The host always initiates. Each command frame carries an opcode and an
// opcode-specific payload:
//
//	Sync    (0x21)  empty payload; device answers with the protocol version
//	Info    (0x22)  empty payload; device answers with chip identity
//	Erase   (0x23)  [OFFSET u32][LENGTH u32]
//	Write   (0x24)  [OFFSET u32][DATA...]
//	Verify  (0x25)  [LENGTH u32][CRC32 u32]
//	Reset   (0x26)  empty payload; device reboots without answering
//
// All multi-byte integers are little-endian. Write data is limited to
// ChunkSize bytes per frame.
//
// # Responses
//
// A response frame echoes the command opcode. Its payload starts with a
// one-byte status code followed by command-specific data. StatusOK means
// success; everything else identifies the failure. Reset is the only
// command that produces no response.
//
// # Stream Reassembly
//
// Serial reads deliver arbitrary byte runs, so frames rarely arrive whole.
// Scanner accumulates raw bytes and yields complete validated frames,
// discarding noise between frames (line glitches, boot chatter) by
// resynchronizing on the next SOP byte.
package wire
