// Package comm provides L0 command protocol support.
package comm

// L0 command protocol runs on the device above a point-to-point wireless
// transport queue. The peer splits a command into a command packet, which
// declares the total payload size, followed by continuation payload packets.
// The device reassembles the payload into a single buffer and dispatches the
// command once all bytes arrived.
//
// Only one command is assembled at a time. A reserved abort command resets
// the assembly from any state. There's no retransmission, sequence numbers
// are only checked for diagnostics.
//
// Everything in this package is driven from a single polling context
// (see Worker.Step); the transport queue is the only cross-context handoff.
//
// Producer: L1 host (e.g. phone application)
// Consumer: L0 device firmware
