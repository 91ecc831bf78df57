// Package device ties transport, bootloader driver, flash
// orchestrator and serial monitor together behind a single handle.
//
// Connect opens the transport, enters the bootloader once to read the
// chip identity, resets the device and starts the serial monitor. From
// then on Flash and Erase run sessions through the orchestrator, which
// borrows the port from the monitor for the duration of the session.
//
// All device output and operational messages share one log event
// stream; SubscribeLogs taps into it and the returned subscription's
// Cancel detaches again.
package device
