package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunIteration(t *testing.T) {
	var iterations []uint64
	l := NewLoop().AddController(ControlFunc(func(cc ControlContext) error {
		iterations = append(iterations, cc.Iteration())
		assert.NotNil(t, cc.Context())
		assert.False(t, cc.Time().IsZero())
		return errors.New("ignored")
	}))
	ctx := context.Background()
	l.RunIteration(ctx)
	l.RunIteration(ctx)
	assert.Equal(t, []uint64{0, 1}, iterations)
}

func TestLoopTriggerNext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	count := 0
	l := NewLoop()
	l.Interval = time.Hour
	l.AddController(ControlFunc(func(cc ControlContext) error {
		count++
		if count < 5 {
			cc.TriggerNext()
		} else {
			cancel()
		}
		return nil
	}))
	// kick off the first iteration without waiting for the ticker.
	l.RunIteration(ctx)
	err := l.Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 5, count)
}

func TestLoopStopsWhenRunnerExits(t *testing.T) {
	l := NewLoop().AddRunnable(RunFunc(func(ctx context.Context) error {
		return nil
	}))
	require.NoError(t, l.Run(context.Background()))

	failure := errors.New("failure")
	l = NewLoop().AddRunnable(RunFunc(func(ctx context.Context) error {
		return failure
	}))
	assert.Equal(t, failure, l.Run(context.Background()))
}

type runnableController struct {
	started chan struct{}
}

func (c *runnableController) Control(ControlContext) error { return nil }

func (c *runnableController) Run(ctx context.Context) error {
	close(c.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestLoopStartsRunnableControllers(t *testing.T) {
	ctl := &runnableController{started: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop().AddController(ctl)
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	select {
	case <-ctl.started:
	case <-time.After(time.Second):
		t.Fatal("runner not started")
	}
	cancel()
	assert.Equal(t, context.Canceled, <-errCh)
}
