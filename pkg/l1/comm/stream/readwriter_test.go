package stream

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
	"github.com/robotalks/cmdlink.go/pkg/l1/comm"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte{0x81, 1, 2}))
	require.NoError(t, rw.WritePacket(nil))
	assert.Equal(t, []byte{3, 0, 0x81, 1, 2, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x81, 1, 2}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	assert.Empty(t, pkt)
	assert.NoError(t, rw.Close())
}

func TestReadWriterTooLarge(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	assert.ErrorIs(t, rw.WritePacket(make([]byte, l0.MaxPacketSize+1)), l0.ErrPacketTooLarge)
	buf.Write([]byte{0xff, 0xff})
	_, err := rw.ReadPacket()
	assert.ErrorIs(t, err, l0.ErrPacketTooLarge)
}

func TestServer(t *testing.T) {
	received := make(chan []byte, 1)
	srv := NewServer("127.0.0.1:0", func(ctx context.Context, name string, rw comm.PacketReadWriter) error {
		pkt, err := rw.ReadPacket()
		if err != nil {
			return err
		}
		received <- pkt
		return rw.WritePacket(append([]byte{0xaa}, pkt...))
	})
	require.NoError(t, srv.Listen())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	conn, err := Dial(ctx, srv.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WritePacket([]byte{1, 2}))
	select {
	case pkt := <-received:
		assert.Equal(t, []byte{1, 2}, pkt)
	case <-time.After(time.Second):
		t.Fatal("packet not received")
	}
	pkt, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 1, 2}, pkt)

	cancel()
	assert.Equal(t, context.Canceled, <-errCh)
	_, err = net.Dial("tcp", srv.ListenAddr().String())
	assert.Error(t, err)
}
