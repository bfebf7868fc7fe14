package comm

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PacketType discriminates packet headers.
type PacketType byte

// Packet types.
const (
	PacketTypeCommand PacketType = 0
	PacketTypePayload PacketType = 1
)

// String implements fmt.Stringer.
func (t PacketType) String() string {
	switch t {
	case PacketTypeCommand:
		return "command"
	case PacketTypePayload:
		return "payload"
	}
	return fmt.Sprintf("type(%d)", byte(t))
}

// PacketSeq defines the type of packet sequence number.
// Only the lower 7 bits go over the wire.
type PacketSeq byte

const seqMask = 0x7f

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	return (s + 1) & seqMask
}

// Wire layout constants.
const (
	// CommandHeaderSize is packet info, command id and total payload size.
	CommandHeaderSize = 6
	// PayloadHeaderSize is packet info only.
	PayloadHeaderSize = 1

	// MaxPacketSize is the BLE ATT MTU (247) minus the ATT header.
	MaxPacketSize = 244
	// MaxCommandBufferSize is the reassembly capacity.
	MaxCommandBufferSize = 8192

	// MaxCommandPayloadSize is the inline payload capacity of a command packet.
	MaxCommandPayloadSize = MaxPacketSize - CommandHeaderSize
	// MaxPayloadPayloadSize is the inline payload capacity of a continuation packet.
	MaxPayloadPayloadSize = MaxPacketSize - PayloadHeaderSize
)

const typeBit = 0x80

// PacketInfo identifies a single transport level packet.
type PacketInfo struct {
	Type PacketType
	Seq  PacketSeq
}

// Byte encodes the info.
func (i PacketInfo) Byte() byte {
	b := byte(i.Seq) & seqMask
	if i.Type == PacketTypePayload {
		b |= typeBit
	}
	return b
}

// PacketInfoFrom decodes the info byte.
func PacketInfoFrom(b byte) PacketInfo {
	info := PacketInfo{Seq: PacketSeq(b & seqMask)}
	if b&typeBit != 0 {
		info.Type = PacketTypePayload
	}
	return info
}

// HeaderSize returns the size of the header for the packet type.
func (t PacketType) HeaderSize() int {
	if t == PacketTypeCommand {
		return CommandHeaderSize
	}
	return PayloadHeaderSize
}

// CommandID identifies a command.
type CommandID byte

// CommandHeader is present only on the first packet of a command.
type CommandHeader struct {
	PacketInfo
	Command          CommandID
	TotalPayloadSize uint32
}

// PayloadHeader is present on continuation packets.
type PayloadHeader struct {
	PacketInfo
}

// Container is one unit exchanged with the transport queue.
type Container struct {
	size int
	buf  [MaxPacketSize]byte
}

// UnmarshalBinary decodes a container from packet bytes.
// It only checks the bytes are enough for the header.
func (c *Container) UnmarshalBinary(data []byte) error {
	if len(data) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(data))
	}
	if len(data) == 0 {
		return ErrTruncated
	}
	if l := PacketInfoFrom(data[0]).Type.HeaderSize(); len(data) < l {
		return fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(data), l)
	}
	c.size = copy(c.buf[:], data)
	return nil
}

// ContainerFrom decodes a new container.
func ContainerFrom(data []byte) (*Container, error) {
	c := &Container{}
	if err := c.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return c, nil
}

// Size returns the number of packet bytes.
func (c *Container) Size() int {
	return c.size
}

// Bytes returns encoded bytes for sending.
func (c *Container) Bytes() []byte {
	return c.buf[:c.size]
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Container) MarshalBinary() ([]byte, error) {
	b := make([]byte, c.size)
	copy(b, c.buf[:c.size])
	return b, nil
}

// WriteTo writes encoded bytes.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.buf[:c.size])
	return int64(n), err
}

// Info decodes the packet info.
func (c *Container) Info() PacketInfo {
	return PacketInfoFrom(c.buf[0])
}

// Type classifies the packet.
func (c *Container) Type() PacketType {
	return c.Info().Type
}

// Seq returns the sequence number.
func (c *Container) Seq() PacketSeq {
	return c.Info().Seq
}

// CommandHeader decodes the header of a command packet.
// The result is meaningless for payload packets.
func (c *Container) CommandHeader() CommandHeader {
	return CommandHeader{
		PacketInfo:       c.Info(),
		Command:          CommandID(c.buf[1]),
		TotalPayloadSize: binary.LittleEndian.Uint32(c.buf[2:CommandHeaderSize]),
	}
}

// PayloadHeader decodes the header of a payload packet.
func (c *Container) PayloadHeader() PayloadHeader {
	return PayloadHeader{PacketInfo: c.Info()}
}

// PayloadSlice returns the inline payload after the applicable header.
func (c *Container) PayloadSlice() []byte {
	return c.buf[c.Type().HeaderSize():c.size]
}

// String implements fmt.Stringer.
func (c *Container) String() string {
	info := c.Info()
	if info.Type == PacketTypeCommand {
		h := c.CommandHeader()
		return fmt.Sprintf("command[seq=%d cmd=%d total=%d len=%d]",
			info.Seq, h.Command, h.TotalPayloadSize, len(c.PayloadSlice()))
	}
	return fmt.Sprintf("payload[seq=%d len=%d]", info.Seq, len(c.PayloadSlice()))
}

func (c *Container) putCommand(h CommandHeader, payload []byte) {
	h.Type = PacketTypeCommand
	c.buf[0] = h.PacketInfo.Byte()
	c.buf[1] = byte(h.Command)
	binary.LittleEndian.PutUint32(c.buf[2:CommandHeaderSize], h.TotalPayloadSize)
	c.size = CommandHeaderSize + copy(c.buf[CommandHeaderSize:], payload)
}

func (c *Container) putPayload(seq PacketSeq, payload []byte) {
	c.buf[0] = PacketInfo{Type: PacketTypePayload, Seq: seq}.Byte()
	c.size = PayloadHeaderSize + copy(c.buf[PayloadHeaderSize:], payload)
}

// Limits carries the wire constants shared with the peer.
type Limits struct {
	MaxPacketSize        int
	MaxCommandBufferSize int
}

// DefaultLimits returns the compiled-in wire constants.
func DefaultLimits() Limits {
	return Limits{
		MaxPacketSize:        MaxPacketSize,
		MaxCommandBufferSize: MaxCommandBufferSize,
	}
}

func (l Limits) normalize() Limits {
	if l.MaxPacketSize <= CommandHeaderSize || l.MaxPacketSize > MaxPacketSize {
		l.MaxPacketSize = MaxPacketSize
	}
	if l.MaxCommandBufferSize <= 0 {
		l.MaxCommandBufferSize = MaxCommandBufferSize
	}
	return l
}

// CommandPayloadCapacity is the inline payload capacity of a command packet.
func (l Limits) CommandPayloadCapacity() int {
	return l.normalize().MaxPacketSize - CommandHeaderSize
}

// PayloadCapacity is the inline payload capacity of a continuation packet.
func (l Limits) PayloadCapacity() int {
	return l.normalize().MaxPacketSize - PayloadHeaderSize
}
