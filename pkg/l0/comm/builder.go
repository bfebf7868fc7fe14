package comm

import (
	"fmt"
)

// Builder constructs outbound packets and owns the outbound sequence counter.
type Builder struct {
	Limits Limits

	seq PacketSeq
}

// NewBuilder creates a Builder starting with seq.
func NewBuilder(limits Limits, seq PacketSeq) *Builder {
	return &Builder{Limits: limits, seq: seq & seqMask}
}

// Seq returns the sequence number used by the next packet.
func (b *Builder) Seq() PacketSeq {
	return b.seq
}

func (b *Builder) nextSeq() PacketSeq {
	s := b.seq
	b.seq = b.seq.Next()
	return s
}

// BuildCommandPacket constructs a command whose entire payload fits one packet.
// TODO: split larger responses once the peer supports outbound assembly.
func (b *Builder) BuildCommandPacket(cmd CommandID, payload []byte) (*Container, error) {
	if capacity := b.Limits.CommandPayloadCapacity(); len(payload) > capacity {
		return nil, fmt.Errorf("command %d payload size %d exceeds %d: %w",
			cmd, len(payload), capacity, ErrPayloadTooLarge)
	}
	c := &Container{}
	c.putCommand(CommandHeader{
		PacketInfo:       PacketInfo{Seq: b.nextSeq()},
		Command:          cmd,
		TotalPayloadSize: uint32(len(payload)),
	}, payload)
	return c, nil
}

// Abort constructs the abort command.
func (b *Builder) Abort() *Container {
	c, _ := b.BuildCommandPacket(CommandAbort, nil)
	return c
}

// Segment splits a command into a command packet followed by continuation
// packets, stamping consecutive sequence numbers. It's used on the sending
// side; the device only builds single packets.
func (b *Builder) Segment(cmd CommandID, payload []byte) []*Container {
	limits := b.Limits
	first := len(payload)
	if capacity := limits.CommandPayloadCapacity(); first > capacity {
		first = capacity
	}
	c := &Container{}
	c.putCommand(CommandHeader{
		PacketInfo:       PacketInfo{Seq: b.nextSeq()},
		Command:          cmd,
		TotalPayloadSize: uint32(len(payload)),
	}, payload[:first])
	containers := []*Container{c}

	capacity := limits.PayloadCapacity()
	for offset := first; offset < len(payload); {
		size := len(payload) - offset
		if size > capacity {
			size = capacity
		}
		c := &Container{}
		c.putPayload(b.nextSeq(), payload[offset:offset+size])
		containers = append(containers, c)
		offset += size
	}
	return containers
}

// Fragment constructs a single continuation packet. Mostly for peers which
// need full control of fragmentation.
func (b *Builder) Fragment(payload []byte) (*Container, error) {
	if capacity := b.Limits.PayloadCapacity(); len(payload) > capacity {
		return nil, fmt.Errorf("fragment size %d exceeds %d: %w", len(payload), capacity, ErrPayloadTooLarge)
	}
	c := &Container{}
	c.putPayload(b.nextSeq(), payload)
	return c, nil
}

// CommandPacket constructs a command packet with an explicit declared total,
// allowing the inline payload to be a prefix of a larger command.
func (b *Builder) CommandPacket(cmd CommandID, total uint32, inline []byte) (*Container, error) {
	if capacity := b.Limits.CommandPayloadCapacity(); len(inline) > capacity {
		return nil, fmt.Errorf("command %d inline size %d exceeds %d: %w", cmd, len(inline), capacity, ErrPayloadTooLarge)
	}
	c := &Container{}
	c.putCommand(CommandHeader{
		PacketInfo:       PacketInfo{Seq: b.nextSeq()},
		Command:          cmd,
		TotalPayloadSize: total,
	}, inline)
	return c, nil
}
