package comm

import (
	"context"
	"fmt"

	"github.com/golang/glog"
)

// State is the state of the command assembly.
type State int

const (
	// StateIdle means no command is in progress.
	StateIdle State = iota
	// StateAssembling means a multi-packet payload is being accumulated.
	StateAssembling
	// StateTxStarted is reserved for outbound multi-packet assembly.
	// Nothing transitions into it yet.
	StateTxStarted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAssembling:
		return "assembling"
	case StateTxStarted:
		return "tx-started"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// AssemblyBuffer holds the in-flight command.
// ReceivedSize <= TotalSize <= len(storage) always holds.
type AssemblyBuffer struct {
	Command      CommandID
	State        State
	ReceivedSize int
	TotalSize    int

	storage []byte
}

// Payload returns the bytes received so far.
func (b *AssemblyBuffer) Payload() []byte {
	return b.storage[:b.ReceivedSize]
}

// Capacity returns the size of the storage.
func (b *AssemblyBuffer) Capacity() int {
	return len(b.storage)
}

func (b *AssemblyBuffer) reset() {
	b.Command, b.State = 0, StateIdle
	b.ReceivedSize, b.TotalSize = 0, 0
}

// Assembler reassembles command payloads from packets.
// It's not safe for concurrent use, all calls must come from the
// same polling context.
type Assembler struct {
	Dispatcher  Dispatcher
	Diagnostics Diagnostics

	buf         AssemblyBuffer
	expectedSeq PacketSeq
}

// NewAssembler creates an Assembler with storage sized by limits.
func NewAssembler(limits Limits, d Dispatcher) *Assembler {
	a := &Assembler{Dispatcher: d}
	a.Init(limits)
	return a
}

// Init allocates the storage and resets to idle.
func (a *Assembler) Init(limits Limits) {
	a.buf.storage = make([]byte, limits.normalize().MaxCommandBufferSize)
	a.buf.reset()
}

// State gets the current state.
func (a *Assembler) State() State {
	return a.buf.State
}

// Buffer exposes the assembly buffer for inspection.
func (a *Assembler) Buffer() *AssemblyBuffer {
	return &a.buf
}

// ExpectedSeq returns the sequence number expected on next packet.
func (a *Assembler) ExpectedSeq() PacketSeq {
	return a.expectedSeq
}

// Reset discards any partial data and returns to idle.
func (a *Assembler) Reset() {
	a.buf.reset()
}

// Process consumes one packet. A non-nil error means the packet is rejected,
// it's never fatal. Completed commands are dispatched before Process returns.
func (a *Assembler) Process(ctx context.Context, c *Container) error {
	info := c.Info()
	if info.Seq != a.expectedSeq {
		// tolerated, only reported.
		a.diag().SeqMismatch(a.expectedSeq, info.Seq)
	}
	a.expectedSeq = info.Seq.Next()

	if info.Type == PacketTypeCommand {
		return a.processCommand(ctx, c)
	}
	return a.processPayload(ctx, c)
}

func (a *Assembler) processCommand(ctx context.Context, c *Container) error {
	h, payload := c.CommandHeader(), c.PayloadSlice()
	if glog.V(3) {
		glog.Infof("RX %s % X", c, payload)
	}

	if h.Command == CommandAbort {
		glog.V(1).Infof("abort command, reset from %s", a.buf.State)
		a.Reset()
		return nil
	}
	if a.buf.State != StateIdle {
		return a.reject(c, ErrUnexpectedPacket, false, "command %d in progress", a.buf.Command)
	}
	if uint64(h.TotalPayloadSize) > uint64(len(a.buf.storage)) {
		return a.reject(c, ErrPayloadTooLarge, false, "total %d, capacity %d", h.TotalPayloadSize, len(a.buf.storage))
	}
	if uint64(len(payload)) > uint64(h.TotalPayloadSize) {
		return a.reject(c, ErrInconsistentSize, false, "packet payload %d, total %d", len(payload), h.TotalPayloadSize)
	}

	a.buf.Command = h.Command
	a.buf.TotalSize = int(h.TotalPayloadSize)
	a.buf.ReceivedSize = copy(a.buf.storage, payload)
	a.buf.State = StateAssembling

	if a.buf.ReceivedSize >= a.buf.TotalSize {
		a.complete(ctx)
	}
	return nil
}

func (a *Assembler) processPayload(ctx context.Context, c *Container) error {
	payload := c.PayloadSlice()
	if glog.V(3) {
		glog.Infof("RX %s % X", c, payload)
	}

	if a.buf.State != StateAssembling {
		return a.reject(c, ErrUnexpectedPacket, false, "no command in progress")
	}
	received := a.buf.ReceivedSize + len(payload)
	if received > len(a.buf.storage) {
		return a.reject(c, ErrOverflow, true, "received %d, capacity %d", received, len(a.buf.storage))
	}
	if received > a.buf.TotalSize {
		return a.reject(c, ErrInconsistentSize, true, "received %d, total %d", received, a.buf.TotalSize)
	}

	copy(a.buf.storage[a.buf.ReceivedSize:], payload)
	a.buf.ReceivedSize = received

	if a.buf.ReceivedSize >= a.buf.TotalSize {
		a.complete(ctx)
	}
	return nil
}

// complete resets the buffer before dispatching, so the handler observes
// idle state and may queue a response. The payload aliases storage which is
// not touched until the next packet.
func (a *Assembler) complete(ctx context.Context) {
	cmd, payload := a.buf.Command, a.buf.storage[:a.buf.TotalSize]
	a.buf.reset()

	var err error
	if d := a.Dispatcher; d != nil {
		err = d.Dispatch(ctx, cmd, payload)
		if err != nil {
			err = &DispatchError{Command: cmd, Err: err}
		}
	} else {
		glog.Warningf("command %d dropped: no dispatcher", cmd)
	}
	a.diag().Dispatched(cmd, len(payload), err)
}

func (a *Assembler) reject(c *Container, kind error, reset bool, format string, args ...interface{}) error {
	err := &RejectError{
		Err:    kind,
		Seq:    c.Seq(),
		Type:   c.Type(),
		State:  a.buf.State,
		Detail: fmt.Sprintf(format, args...),
	}
	if err.Type == PacketTypeCommand {
		err.Command = c.CommandHeader().Command
	}
	if reset {
		a.Reset()
	}
	return err
}

func (a *Assembler) diag() Diagnostics {
	if d := a.Diagnostics; d != nil {
		return d
	}
	return LogDiagnostics{}
}
