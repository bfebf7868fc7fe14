package stream

import (
	"encoding/binary"
	"fmt"
	"io"

	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
)

// ReadWriter implements PacketReadWriter.
// Each packet is prefixed by 2-byte (little-endian) indicate the length.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint16
	if err := binary.Read(p, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > l0.MaxPacketSize {
		return nil, fmt.Errorf("packet size %d exceeds %d: %w", size, l0.MaxPacketSize, l0.ErrPacketTooLarge)
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > l0.MaxPacketSize {
		return fmt.Errorf("packet size %d exceeds %d: %w", len(pkt), l0.MaxPacketSize, l0.ErrPacketTooLarge)
	}
	buf := make([]byte, 2+len(pkt))
	binary.LittleEndian.PutUint16(buf, uint16(len(pkt)))
	copy(buf[2:], pkt)
	_, err := p.Write(buf)
	return err
}

// Close implements io.Closer if the underlying stream is closable.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
