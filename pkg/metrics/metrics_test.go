package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	l0 "github.com/robotalks/cmdlink.go/pkg/l0/comm"
)

func TestDiagnostics(t *testing.T) {
	reg := prometheus.NewRegistry()
	d, err := New(reg)
	require.NoError(t, err)

	d.Rejected(&l0.RejectError{Err: l0.ErrOverflow})
	d.Rejected(fmt.Errorf("wrapped: %w", l0.ErrOverflow))
	d.Rejected(l0.ErrStalled)
	d.SeqMismatch(1, 2)
	d.Dispatched(1, 0, nil)
	d.Dispatched(2, 0, &l0.DispatchError{Command: 2, Err: l0.ErrUnknownCommand})
	d.Dispatched(3, 0, fmt.Errorf("boom"))
	c, err := l0.NewBuilder(l0.Limits{}, 0).BuildCommandPacket(1, []byte{1, 2})
	require.NoError(t, err)
	d.Sent(c)
	d.Saturated(l0.Outbound)

	assert.Equal(t, 2.0, testutil.ToFloat64(d.Rejections.WithLabelValues("overflow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.Rejections.WithLabelValues("stalled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.SeqMismatches))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.Commands.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.Commands.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.Commands.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.PacketsSent))
	assert.Equal(t, 8.0, testutil.ToFloat64(d.BytesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.QueueSaturation.WithLabelValues("outbound")))

	_, err = New(reg)
	assert.Error(t, err, "duplicated registration")
}

func TestReason(t *testing.T) {
	assert.Equal(t, "payload_too_large", Reason(l0.ErrPayloadTooLarge))
	assert.Equal(t, "inconsistent_size", Reason(l0.ErrInconsistentSize))
	assert.Equal(t, "unexpected_packet", Reason(l0.ErrUnexpectedPacket))
	assert.Equal(t, "other", Reason(io.EOF))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	d, err := New(reg)
	require.NoError(t, err)
	d.SeqMismatch(0, 1)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "cmdlink_assembler_seq_mismatches_total 1"))
}
