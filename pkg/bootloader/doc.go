// Package bootloader drives the device-side flash bootloader over a byte
// stream.
//
// The Driver owns the command sequence of a programming session:
//
//	EnterProgrammingMode  reset into the bootloader and sync, with retries
//	QueryIdentity         read chip type, MAC address and flash size
//	EraseRegion           erase a flash region (safe to repeat)
//	WriteChunk            program one chunk at a flash offset
//	Verify                compare device flash against the written bytes
//	Reset                 reboot into the application, fire and forget
//
// Only EnterProgrammingMode retries on its own; every other command makes
// a single attempt and reports a typed error on failure, leaving retry
// policy to the caller.
//
// The driver tracks a running length and CRC of everything written since
// the last erase, which is what Verify sends to the device. A Driver is
// not safe for concurrent use; a session drives it from one goroutine.
package bootloader
