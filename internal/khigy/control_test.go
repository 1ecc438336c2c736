package khigy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestControllerRunsOnLoop(t *testing.T) {
	h := newHarness(t, Options{})
	ctrl := NewController(h.ev)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.ev.Run(ctx, h.data) }()

	status, err := ctrl.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "offscreen", status.Backend)

	tops, err := ctrl.Toplevels(ctx)
	require.NoError(t, err)
	require.Empty(t, tops)

	require.NoError(t, ctrl.Quit(ctx))
	require.NoError(t, <-done)
	require.True(t, h.ev.Signal().Stopped())

	_, err = ctrl.Status(ctx)
	require.ErrorIs(t, err, ErrLoopStopped)
}

func TestControllerHonoursContext(t *testing.T) {
	h := newHarness(t, Options{})
	ctrl := NewController(h.ev)

	// Nothing runs the loop, so the call can only end through ctx.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ctrl.Status(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
