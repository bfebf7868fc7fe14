package comm

import (
	"github.com/golang/glog"
)

// Direction of a transport queue.
type Direction int

// Directions.
const (
	Inbound Direction = iota
	Outbound
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Diagnostics is the sink for protocol anomalies. None of the reported
// events is fatal; the worker continues on the next poll.
type Diagnostics interface {
	// Rejected reports a packet rejected by the assembler.
	Rejected(err error)
	// SeqMismatch reports an unexpected sequence number. The packet is
	// processed anyway.
	SeqMismatch(expected, received PacketSeq)
	// Dispatched reports a completed command and the handler result.
	Dispatched(cmd CommandID, size int, err error)
	// Sent reports an outbound container handed to the transport queue.
	Sent(c *Container)
	// Saturated reports the transport queue refused a container.
	Saturated(dir Direction)
}

// LogDiagnostics reports everything to glog.
type LogDiagnostics struct{}

// Rejected implements Diagnostics.
func (LogDiagnostics) Rejected(err error) {
	glog.Warningf("rejected: %v", err)
}

// SeqMismatch implements Diagnostics.
func (LogDiagnostics) SeqMismatch(expected, received PacketSeq) {
	glog.Warningf("incorrect seq expected %d received %d", expected, received)
}

// Dispatched implements Diagnostics.
func (LogDiagnostics) Dispatched(cmd CommandID, size int, err error) {
	if err != nil {
		glog.Errorf("command %d (%d bytes) failed: %v", cmd, size, err)
		return
	}
	glog.V(1).Infof("command %d (%d bytes) executed", cmd, size)
}

// Sent implements Diagnostics.
func (LogDiagnostics) Sent(c *Container) {
	glog.V(2).Infof("TX %s", c)
}

// Saturated implements Diagnostics.
func (LogDiagnostics) Saturated(dir Direction) {
	glog.Warningf("%s queue full", dir)
}

// MultiDiagnostics fans out to multiple sinks.
type MultiDiagnostics []Diagnostics

// Rejected implements Diagnostics.
func (m MultiDiagnostics) Rejected(err error) {
	for _, d := range m {
		d.Rejected(err)
	}
}

// SeqMismatch implements Diagnostics.
func (m MultiDiagnostics) SeqMismatch(expected, received PacketSeq) {
	for _, d := range m {
		d.SeqMismatch(expected, received)
	}
}

// Dispatched implements Diagnostics.
func (m MultiDiagnostics) Dispatched(cmd CommandID, size int, err error) {
	for _, d := range m {
		d.Dispatched(cmd, size, err)
	}
}

// Sent implements Diagnostics.
func (m MultiDiagnostics) Sent(c *Container) {
	for _, d := range m {
		d.Sent(c)
	}
}

// Saturated implements Diagnostics.
func (m MultiDiagnostics) Saturated(dir Direction) {
	for _, d := range m {
		d.Saturated(dir)
	}
}
