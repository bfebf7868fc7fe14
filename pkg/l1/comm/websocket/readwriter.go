package websocket

import (
	"context"
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/cmdlink.go/pkg/l1/comm"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm/stream"
)

// ReadWriter implements PacketReadWriter.
// Each binary message carries exactly one packet.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler serves each websocket connection with serve until ctx is done.
func Handler(ctx context.Context, serve stream.ServeFunc) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		name := "ws:" + conn.Request().RemoteAddr
		if err := serve(ctx, name, New(conn)); err != nil && err != context.Canceled {
			glog.V(1).Infof("%s: %v", name, err)
		}
	})
}

// Dial connects to a websocket endpoint, e.g. ws://host:port/packets.
func Dial(url string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

var _ comm.PacketReadWriteCloser = &ReadWriter{}
