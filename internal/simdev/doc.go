// Package simdev implements the device side of the bootloader protocol
// for the simulated transport.
//
// A Device models a small MCU with a serial bootloader. It has two boot
// modes selected by the control lines at reset release: run mode, where
// the "application" prints a scripted boot log and ignores protocol
// frames, and bootloader mode, where it answers command frames. The
// protocol state machine enforces command order: Sync must precede
// everything else, and Write is only accepted into an erased region.
//
// Control lines follow the conventional auto-reset wiring: RTS holds the
// chip in reset while asserted, and DTR is the boot strap sampled when
// reset is released. Releasing reset with DTR asserted lands in the
// bootloader; releasing with DTR clear boots the application.
//
// The flash array erases to 0xFF and records writes byte for byte, so a
// Verify command computes its CRC over real content. Failure injection
// hooks (dropped syncs, forced erase/write/verify statuses) exist so
// higher layers can exercise their error paths against realistic wire
// behavior.
package simdev
