// Package flash runs firmware flash and erase sessions against a
// bootloader driver.
//
// A session walks a fixed stage sequence and reports each step on an
// event stream:
//
//	flash: IDLE -> CONNECTING -> ERASING -> WRITING -> VERIFYING -> COMPLETE
//	erase: IDLE -> CONNECTING -> ERASING -> COMPLETE
//
// Any failure moves the session to ERROR with the underlying error
// attached, and the stream always ends with exactly one terminal
// event. At most one session runs per orchestrator; concurrent
// requests fail with SessionBusyError.
//
// The orchestrator coordinates port ownership with the serial
// monitor: it stops the monitor and takes the port gate before the
// first protocol byte, and hands both back after a settle delay once
// the session reaches a terminal stage.
package flash
