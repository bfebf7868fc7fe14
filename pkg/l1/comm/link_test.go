package comm

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
)

type chanReadWriter struct {
	rx     chan []byte
	tx     chan []byte
	closed chan struct{}
}

func newChanReadWriter() *chanReadWriter {
	return &chanReadWriter{
		rx:     make(chan []byte, 4),
		tx:     make(chan []byte, 4),
		closed: make(chan struct{}),
	}
}

func (p *chanReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.rx:
		return pkt, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *chanReadWriter) WritePacket(pkt []byte) error {
	p.tx <- append([]byte{}, pkt...)
	return nil
}

func (p *chanReadWriter) Close() error {
	close(p.closed)
	return nil
}

type saturationCounter struct {
	l0.LogDiagnostics
	inbound int32
}

func (d *saturationCounter) Saturated(dir l0.Direction) {
	if dir == l0.Inbound {
		atomic.AddInt32(&d.inbound, 1)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timeout")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLinkInbound(t *testing.T) {
	q := l0.NewChanQueue(1)
	diag := &saturationCounter{}
	link := NewLink(q).WithDiagnostics(diag)
	rw := newChanReadWriter()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- link.Attach("test", rw).Run(ctx) }()

	rw.rx <- []byte{0x00, 5, 1, 0, 0, 0, 9}
	rw.rx <- []byte{}                     // dropped, truncated
	rw.rx <- []byte{0x01, 6, 0, 0, 0, 0} // dropped, queue full
	waitFor(t, func() bool { return len(rw.rx) == 0 && atomic.LoadInt32(&diag.inbound) == 1 })

	c, ok := q.DequeueInbound()
	require.True(t, ok)
	assert.Equal(t, l0.CommandID(5), c.CommandHeader().Command)
	assert.Equal(t, []byte{9}, c.PayloadSlice())
	assert.Equal(t, 1, link.Conns())

	cancel()
	assert.Equal(t, context.Canceled, <-errCh)
	assert.Equal(t, 0, link.Conns())
}

func TestLinkOutboundBroadcast(t *testing.T) {
	q := l0.NewChanQueue(4)
	link := NewLink(q)
	rw1, rw2 := newChanReadWriter(), newChanReadWriter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go link.Attach("rw1", rw1).Run(ctx)
	go link.Attach("rw2", rw2).Run(ctx)
	go link.Run(ctx)
	waitFor(t, func() bool { return link.Conns() == 2 })

	c, err := l0.NewBuilder(l0.Limits{}, 3).BuildCommandPacket(7, []byte{1})
	require.NoError(t, err)
	require.NoError(t, q.EnqueueOutbound(c))
	for _, rw := range []*chanReadWriter{rw1, rw2} {
		select {
		case pkt := <-rw.tx:
			assert.Equal(t, []byte{0x03, 7, 1, 0, 0, 0, 1}, pkt)
		case <-time.After(time.Second):
			t.Fatal("packet not written")
		}
	}
}
