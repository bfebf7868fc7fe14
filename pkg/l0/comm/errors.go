package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge indicates a declared or actual size exceeds
	// the buffer or packet capacity.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrInconsistentSize indicates the fragment size contradicts the
	// declared total payload size.
	ErrInconsistentSize = errors.New("inconsistent size")
	// ErrUnexpectedPacket indicates the packet is invalid for current state.
	ErrUnexpectedPacket = errors.New("unexpected packet")
	// ErrOverflow indicates accumulated payload would exceed the buffer.
	ErrOverflow = errors.New("payload overflow")
	// ErrStalled indicates an assembly was abandoned by the peer.
	ErrStalled = errors.New("assembly stalled")

	// ErrQueueFull indicates the transport queue is saturated.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueEmpty indicates nothing is available from the transport queue.
	ErrQueueEmpty = errors.New("queue empty")

	// ErrBusy indicates a response can't be queued now, either a command
	// is being assembled or another response is pending.
	ErrBusy = errors.New("busy")

	// ErrTruncated indicates packet bytes are shorter than its header.
	ErrTruncated = errors.New("truncated packet")
	// ErrPacketTooLarge indicates packet bytes exceed the maximum packet size.
	ErrPacketTooLarge = errors.New("packet too large")

	// ErrUnknownCommand indicates no handler is registered for the command.
	ErrUnknownCommand = errors.New("unknown command")
)

// RejectError describes a packet rejected by the assembler.
type RejectError struct {
	Err     error
	Seq     PacketSeq
	Type    PacketType
	Command CommandID
	State   State
	Detail  string
}

// Error implements error.
func (e *RejectError) Error() string {
	msg := fmt.Sprintf("%s packet seq %d rejected in %s: %v", e.Type, e.Seq, e.State, e.Err)
	if e.Type == PacketTypeCommand {
		msg = fmt.Sprintf("command %d %s", e.Command, msg)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap returns the error kind.
func (e *RejectError) Unwrap() error {
	return e.Err
}

// DispatchError wraps an error returned by a Dispatcher.
type DispatchError struct {
	Command CommandID
	Err     error
}

// Error implements error.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("command %d dispatch error: %v", e.Command, e.Err)
}

// Unwrap returns the handler error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}
