package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/cmdlink.go/pkg/l1/comm"
)

func TestHandlerEcho(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(Handler(ctx, func(ctx context.Context, name string, rw comm.PacketReadWriter) error {
		for {
			pkt, err := rw.ReadPacket()
			if err != nil {
				return err
			}
			if err := rw.WritePacket(append(pkt, 0xff)); err != nil {
				return err
			}
		}
	}))
	defer srv.Close()

	conn, err := Dial("ws" + strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WritePacket([]byte{0x01, 0x02}))
	pkt, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0xff}, pkt)
}
