// Package trace provides structured protocol capture for flashing sessions.
//
// This package defines the Logger interface and Event types for recording
// everything that crosses a transport: raw byte chunks, bootloader
// commands and responses, and session state changes. It is separate from
// operational logging (slog) - a capture file is a complete machine-readable
// record of a session that can be replayed and inspected after the fact.
//
// # Basic Usage
//
// Components accept a Logger; pass nil or NoopLogger to disable capture:
//
//	// For development: mirror events into the console via slog
//	tracer := trace.NewSlogAdapter(slog.Default())
//
//	// For field debugging: write a binary capture file
//	tracer, _ := trace.NewFileLogger("session.ftrace")
//
//	// Both at once
//	tracer := trace.NewMultiLogger(
//	    trace.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at three layers:
//   - Transport: raw bytes read from or written to the port (ChunkEvent)
//   - Bootloader: command/response exchanges (CommandEvent)
//   - Session: lifecycle transitions of sessions, monitors and transports
//     (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with integer keys,
// conventionally using the .ftrace extension. Reader streams them back,
// optionally filtered; the mcuflash-trace CLI renders them for humans.
package trace
