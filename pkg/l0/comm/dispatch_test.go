package comm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandMux(t *testing.T) {
	var calls []CommandID
	record := func(ctx context.Context, cmd CommandID, payload []byte) error {
		calls = append(calls, cmd)
		return nil
	}
	mux := NewCommandMux().HandleFunc(1, record).HandleFunc(2, record)
	ctx := context.Background()

	require.NoError(t, mux.Dispatch(ctx, 1, nil))
	require.NoError(t, mux.Dispatch(ctx, 2, nil))
	assert.ErrorIs(t, mux.Dispatch(ctx, 3, nil), ErrUnknownCommand)
	assert.Equal(t, []CommandID{1, 2}, calls)

	mux.Fallback = DispatchFunc(record)
	require.NoError(t, mux.Dispatch(ctx, 3, nil))
	assert.Equal(t, []CommandID{1, 2, 3}, calls)
}

func TestCommandMuxZeroValue(t *testing.T) {
	var mux CommandMux
	called := false
	mux.HandleFunc(7, func(context.Context, CommandID, []byte) error {
		called = true
		return nil
	})
	require.NoError(t, mux.Dispatch(context.Background(), 7, nil))
	assert.True(t, called)
}

func TestDispatchers(t *testing.T) {
	err1, err2 := errors.New("first"), errors.New("second")
	var order []int
	ds := Dispatchers{
		DispatchFunc(func(context.Context, CommandID, []byte) error { order = append(order, 1); return nil }),
		DispatchFunc(func(context.Context, CommandID, []byte) error { order = append(order, 2); return err1 }),
		DispatchFunc(func(context.Context, CommandID, []byte) error { order = append(order, 3); return err2 }),
	}
	assert.Equal(t, err1, ds.Dispatch(context.Background(), 1, nil))
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestMultiDiagnostics(t *testing.T) {
	d1, d2 := &recordDiagnostics{}, &recordDiagnostics{}
	m := MultiDiagnostics{d1, d2}
	c := NewBuilder(Limits{}, 0).Abort()
	m.Rejected(ErrOverflow)
	m.SeqMismatch(1, 2)
	m.Dispatched(3, 4, nil)
	m.Sent(c)
	m.Saturated(Inbound)
	for _, d := range []*recordDiagnostics{d1, d2} {
		assert.Equal(t, []error{ErrOverflow}, d.rejected)
		assert.Equal(t, [][2]PacketSeq{{1, 2}}, d.mismatches)
		assert.Equal(t, []error{nil}, d.dispatched)
		assert.Equal(t, []*Container{c}, d.sent)
		assert.Equal(t, []Direction{Inbound}, d.saturations)
	}
	assert.Equal(t, "inbound", Inbound.String())
	assert.Equal(t, "outbound", Outbound.String())
}
