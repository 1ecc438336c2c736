package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type counters struct {
	ticks int
	idle  int
	posts []int
}

func runWithTimeout(t *testing.T, l *EventLoop[counters], data *counters) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.Run(ctx, data)
}

func TestTimerDropIsNotRescheduled(t *testing.T) {
	l := New[counters]()
	l.InsertTimer(time.Millisecond, func(_ time.Time, d *counters) TimeoutAction {
		d.ticks++
		return Drop
	})
	l.InsertTimer(30*time.Millisecond, func(time.Time, *counters) TimeoutAction {
		l.Signal().Stop()
		return Drop
	})

	var data counters
	require.NoError(t, runWithTimeout(t, l, &data))
	require.Equal(t, 1, data.ticks)
	require.Zero(t, l.Timers())
}

func TestTimerRepeatsUntilStopped(t *testing.T) {
	l := New[counters]()
	l.InsertTimer(time.Millisecond, func(_ time.Time, d *counters) TimeoutAction {
		d.ticks++
		if d.ticks == 3 {
			l.Signal().Stop()
		}
		return ToDuration(time.Millisecond)
	})

	var data counters
	require.NoError(t, runWithTimeout(t, l, &data))
	require.Equal(t, 3, data.ticks)
}

func TestStopRunsIdleOnceMore(t *testing.T) {
	l := New[counters]()
	l.OnIdle(func(d *counters) { d.idle++ })
	l.InsertTimer(time.Millisecond, func(_ time.Time, d *counters) TimeoutAction {
		d.ticks++
		l.Signal().Stop()
		return ToDuration(time.Millisecond)
	})

	var data counters
	require.NoError(t, runWithTimeout(t, l, &data))
	require.Equal(t, 1, data.ticks)
	require.Equal(t, 1, data.idle)
}

func TestPostFromOtherGoroutines(t *testing.T) {
	l := New[counters]()
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Post(func(d *counters) { d.posts = append(d.posts, i) })
		}()
	}
	go func() {
		wg.Wait()
		l.Post(func(*counters) { l.Signal().Stop() })
	}()

	var data counters
	require.NoError(t, runWithTimeout(t, l, &data))
	require.Len(t, data.posts, 10)
	require.False(t, l.Post(func(*counters) {}))
}

func TestContextCancelStopsLoop(t *testing.T) {
	l := New[counters]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var data counters
	require.ErrorIs(t, l.Run(ctx, &data), context.Canceled)
	require.True(t, l.Signal().Stopped())
}

func TestRemoveTimer(t *testing.T) {
	l := New[counters]()
	token := l.InsertTimer(time.Millisecond, func(_ time.Time, d *counters) TimeoutAction {
		d.ticks++
		return ToDuration(time.Millisecond)
	})
	l.InsertTimer(20*time.Millisecond, func(time.Time, *counters) TimeoutAction {
		l.Signal().Stop()
		return Drop
	})
	l.RemoveTimer(token)

	var data counters
	require.NoError(t, runWithTimeout(t, l, &data))
	require.Zero(t, data.ticks)
}
