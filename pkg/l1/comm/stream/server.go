package stream

import (
	"context"
	"net"

	"github.com/golang/glog"

	fx "github.com/robotalks/cmdlink.go/pkg/framework"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm"
)

// ServeFunc serves a single connection until it's done.
type ServeFunc func(ctx context.Context, name string, rw comm.PacketReadWriter) error

// Server accepts TCP connections and serves each as a packet stream.
type Server struct {
	Addr  string
	Serve ServeFunc

	listener net.Listener
}

// NewServer creates a Server.
func NewServer(addr string, serve ServeFunc) *Server {
	return &Server{Addr: addr, Serve: serve}
}

// Listen starts listening, so the address is known before Run.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// ListenAddr returns the actual listening address.
func (s *Server) ListenAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	glog.Infof("stream listening on %s", s.listener.Addr())
	return fx.RunWithContextCloser(ctx, s.listener, func() error {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				return err
			}
			go s.serve(ctx, conn)
		}
	})
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	name := "tcp:" + conn.RemoteAddr().String()
	if err := s.Serve(ctx, name, New(conn)); err != nil && err != context.Canceled {
		glog.V(1).Infof("%s: %v", name, err)
	}
	conn.Close()
}

// Dial connects to a Server.
func Dial(ctx context.Context, addr string) (*ReadWriter, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}
