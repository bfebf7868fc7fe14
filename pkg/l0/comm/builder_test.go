package comm

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildCommandPacket(t *testing.T) {
	b := NewBuilder(Limits{}, 0x7e)
	payload := []byte{1, 2, 3}
	c, err := b.BuildCommandPacket(0x21, payload)
	require.NoError(t, err)
	require.Equal(t, []byte{0x7e, 0x21, 3, 0, 0, 0, 1, 2, 3}, c.Bytes())
	require.Equal(t, len(payload)+CommandHeaderSize, c.Size())

	h := c.CommandHeader()
	require.Equal(t, PacketTypeCommand, h.Type)
	require.Equal(t, PacketSeq(0x7e), h.Seq)
	require.Equal(t, uint32(3), h.TotalPayloadSize)

	// sequence wraps at 7 bits.
	c, err = b.BuildCommandPacket(0x21, nil)
	require.NoError(t, err)
	require.Equal(t, PacketSeq(0x7f), c.Seq())
	c, err = b.BuildCommandPacket(0x21, nil)
	require.NoError(t, err)
	require.Equal(t, PacketSeq(0), c.Seq())
}

func TestBuildCommandPacketTooLarge(t *testing.T) {
	b := NewBuilder(Limits{}, 1)
	c, err := b.BuildCommandPacket(0x21, make([]byte, MaxCommandPayloadSize+1))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	require.Nil(t, c)
	require.Equal(t, PacketSeq(1), b.Seq(), "failed build must not consume a sequence number")

	c, err = b.BuildCommandPacket(0x21, make([]byte, MaxCommandPayloadSize))
	require.NoError(t, err)
	require.Equal(t, MaxPacketSize, c.Size())
}

func TestBuildCommandPacketRoundTrip(t *testing.T) {
	testCases := []struct {
		name    string
		cmd     CommandID
		payload []byte
	}{
		{"empty", 1, nil},
		{"small", 2, []byte{0xde, 0xad}},
		{"full", 3, bytes.Repeat([]byte{0x5a}, MaxCommandPayloadSize)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := NewBuilder(Limits{}, 0).BuildCommandPacket(tc.cmd, tc.payload)
			require.NoError(t, err)
			decoded, err := ContainerFrom(c.Bytes())
			require.NoError(t, err)

			var got []dispatchedCmd
			asm := NewAssembler(DefaultLimits(), DispatchFunc(func(ctx context.Context, cmd CommandID, payload []byte) error {
				got = append(got, dispatchedCmd{cmd: cmd, payload: append([]byte{}, payload...)})
				return nil
			}))
			asm.Diagnostics = &recordDiagnostics{}
			require.NoError(t, asm.Process(context.Background(), decoded))
			require.Len(t, got, 1)
			require.Equal(t, tc.cmd, got[0].cmd)
			require.True(t, bytes.Equal(tc.payload, got[0].payload))
		})
	}
}

func TestSegment(t *testing.T) {
	b := NewBuilder(Limits{MaxPacketSize: 8}, 0)
	containers := b.Segment(4, seqBytes(12))
	require.Len(t, containers, 3)

	require.Equal(t, []byte{0x00, 4, 12, 0, 0, 0, 1, 2}, containers[0].Bytes())
	require.Equal(t, []byte{0x81, 3, 4, 5, 6, 7, 8, 9}, containers[1].Bytes())
	require.Equal(t, []byte{0x82, 10, 11, 12}, containers[2].Bytes())
	require.Equal(t, PacketSeq(3), b.Seq())

	containers = b.Segment(5, nil)
	require.Len(t, containers, 1)
	require.Equal(t, []byte{0x03, 5, 0, 0, 0, 0}, containers[0].Bytes())
}

func TestFragment(t *testing.T) {
	b := NewBuilder(Limits{MaxPacketSize: 8}, 0)
	_, err := b.Fragment(seqBytes(8))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	c, err := b.Fragment(seqBytes(7))
	require.NoError(t, err)
	require.Equal(t, PacketTypePayload, c.Type())
	require.Equal(t, seqBytes(7), c.PayloadSlice())

	_, err = b.CommandPacket(1, 100, seqBytes(3))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestAbortPacket(t *testing.T) {
	c := NewBuilder(Limits{}, 9).Abort()
	require.Equal(t, PacketTypeCommand, c.Type())
	require.Equal(t, CommandAbort, c.CommandHeader().Command)
	require.Equal(t, PacketSeq(9), c.Seq())
}
