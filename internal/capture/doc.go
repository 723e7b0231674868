// Package capture owns the capture device and the recording state machine.
// A Session moves Idle -> Recording -> Stopping -> Idle; chunks delivered by the
// device are collected through a bounded queue and flushed into a single blob
// when the device finishes.
package capture
