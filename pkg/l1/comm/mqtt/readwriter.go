package mqtt

import (
	"context"
	"io"
	"sync"

	"github.com/robotalks/cmdlink.go/pkg/l1"
)

// ReadWriter implements PacketReadWriter, one message per packet.
type ReadWriter struct {
	PubSub   *PubSub
	SubTopic string
	PubTopic string

	sub       *Subscription
	subLock   sync.Mutex
	packetCh  chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewReadWriter creates the ReadWriter.
func NewReadWriter(ps *PubSub) *ReadWriter {
	return &ReadWriter{
		PubSub:   ps,
		packetCh: make(chan []byte, 16),
		closeCh:  make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForDevice sets topics used by the device:
// SubTopic = TYPE/ID/rx
// PubTopic = TYPE/ID/tx
func (p *ReadWriter) ForDevice(ref l1.DeviceRef) *ReadWriter {
	return p.WithTopics(DeviceTopic(ref, TopicRx), DeviceTopic(ref, TopicTx))
}

// ForHost sets topics used by a host talking to the device:
// SubTopic = TYPE/ID/tx
// PubTopic = TYPE/ID/rx
func (p *ReadWriter) ForHost(ref l1.DeviceRef) *ReadWriter {
	return p.WithTopics(DeviceTopic(ref, TopicTx), DeviceTopic(ref, TopicRx))
}

// Open subscribes SubTopic.
func (p *ReadWriter) Open() error {
	sub := p.PubSub.Sub(p.SubTopic, p.handleMsg)
	p.subLock.Lock()
	p.sub = sub
	p.subLock.Unlock()
	sub.Token.Wait()
	return sub.Token.Error()
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.closeCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.PubSub.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Close implements io.Closer. Pending ReadPacket returns io.EOF.
func (p *ReadWriter) Close() (err error) {
	p.closeOnce.Do(func() {
		close(p.closeCh)
		p.subLock.Lock()
		sub := p.sub
		p.subLock.Unlock()
		if sub != nil {
			err = sub.Close()
		}
	})
	return
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	// Subscription is restored on reconnect.
	p.Open()
	<-ctx.Done()
	p.Close()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.closeCh:
	}
}
