// Package monitor reads device output from a transport and turns it
// into classified log events.
//
// A Monitor owns the transport's read side while it runs: it acquires
// the port gate on Start and releases it when the reader exits, so a
// flash session can take the port over by stopping the monitor first.
// Stop cancels the in-flight read and returns once the reader is gone.
//
// Incoming bytes are split on newline boundaries. Partial lines,
// including multi-byte UTF-8 sequences cut by a read boundary, are
// carried over to the next read. Each complete line is classified by
// content and published as a LogEvent to all subscribers.
package monitor
