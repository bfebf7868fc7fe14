package comm

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/cmdlink.go/pkg/framework"
	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
)

// Link is the radio side of the transport queue. Packets read from any
// attached connection are enqueued inbound, outbound packets are written
// to all attached connections, like notifications to every subscriber.
type Link struct {
	Queue       *l0.ChanQueue
	Diagnostics l0.Diagnostics

	lock  sync.RWMutex
	conns map[PacketWriter]string
}

// NewLink creates a Link.
func NewLink(q *l0.ChanQueue) *Link {
	return &Link{Queue: q, conns: make(map[PacketWriter]string)}
}

// WithDiagnostics sets the diagnostics sink.
func (l *Link) WithDiagnostics(d l0.Diagnostics) *Link {
	l.Diagnostics = d
	return l
}

// Attach returns a Runnable serving the connection.
func (l *Link) Attach(name string, rw PacketReadWriter) fx.Runnable {
	return fx.NamedRun(name, fx.RunFunc(func(ctx context.Context) error {
		return l.Serve(ctx, name, rw)
	}))
}

// Serve reads packets from the connection until it fails or ctx is done.
// A connection implementing io.Closer is closed on return.
func (l *Link) Serve(ctx context.Context, name string, rw PacketReadWriter) error {
	l.lock.Lock()
	if l.conns == nil {
		l.conns = make(map[PacketWriter]string)
	}
	l.conns[rw] = name
	l.lock.Unlock()
	glog.Infof("link %s attached", name)

	defer func() {
		l.lock.Lock()
		delete(l.conns, rw)
		l.lock.Unlock()
		glog.Infof("link %s detached", name)
	}()

	if closer, ok := rw.(io.Closer); ok {
		return fx.RunWithContextCloser(ctx, closer, func() error {
			return l.receive(name, rw)
		})
	}
	return l.receive(name, rw)
}

// Conns returns the number of attached connections.
func (l *Link) Conns() int {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return len(l.conns)
}

// Run implements Runnable. It drains the outbound queue.
func (l *Link) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-l.Queue.Outbound():
			l.broadcast(c)
		}
	}
}

// AddToLoop implements LoopAdder.
func (l *Link) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(fx.NamedRun("link", l))
}

func (l *Link) receive(name string, r PacketReader) error {
	for {
		pkt, err := r.ReadPacket()
		if err != nil {
			return err
		}
		c, err := l0.ContainerFrom(pkt)
		if err != nil {
			glog.Warningf("link %s: drop packet: %v", name, err)
			continue
		}
		glog.V(3).Infof("link %s RX %s", name, c)
		if err := l.Queue.EnqueueInbound(c); err != nil {
			l.diag().Saturated(l0.Inbound)
		}
	}
}

func (l *Link) broadcast(c *l0.Container) {
	l.lock.RLock()
	conns := make(map[PacketWriter]string, len(l.conns))
	for w, name := range l.conns {
		conns[w] = name
	}
	l.lock.RUnlock()
	if len(conns) == 0 {
		glog.V(2).Infof("no connection, drop %s", c)
		return
	}
	for w, name := range conns {
		if err := w.WritePacket(c.Bytes()); err != nil {
			glog.Errorf("link %s: write error: %v", name, err)
		}
	}
}

func (l *Link) diag() l0.Diagnostics {
	if d := l.Diagnostics; d != nil {
		return d
	}
	return l0.LogDiagnostics{}
}
