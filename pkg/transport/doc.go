// Package transport provides byte-stream access to a device over a
// serial port or an in-process simulator.
//
// A Transport is a plain duplex byte pipe with control lines. It has a
// strict one-way lifecycle: created closed, opened once, closed once.
// After Close a transport is spent; reconnecting means building a new
// one, which guarantees every connection starts with a fresh handshake.
//
// # Selecting a Transport
//
// New probes the environment once and picks the concrete implementation:
// an explicitly configured port or any enumerable serial port selects the
// serial transport, otherwise the simulated transport is used so the tool
// stays fully functional without hardware. The choice is fixed for the
// life of the returned Transport.
//
// # Sharing a Port
//
// Exactly one component may own the byte stream at a time: a running
// monitor and a flash session must not interleave reads. Gate is the
// ownership token handed between them; see its documentation.
//
// # Cancellation
//
// Read blocks until data arrives or the context is cancelled. The serial
// implementation polls with a short OS read timeout, so cancellation
// latency is bounded by the poll interval rather than by device silence.
package transport
