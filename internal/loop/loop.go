// Package loop is a single-goroutine event loop. Every callback runs on the
// goroutine that called Run and receives the loop data by pointer; other
// goroutines hand work to it with Post.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TimeoutAction is what a timer callback wants next.
type TimeoutAction struct {
	drop  bool
	after time.Duration
}

// ToDuration reschedules the timer d after the current firing.
func ToDuration(d time.Duration) TimeoutAction {
	return TimeoutAction{after: d}
}

// Drop removes the timer.
var Drop = TimeoutAction{drop: true}

// IsDrop reports whether the action removes the timer.
func (a TimeoutAction) IsDrop() bool { return a.drop }

// TimerFunc is a timer callback.
type TimerFunc[D any] func(now time.Time, data *D) TimeoutAction

// TimerToken identifies an inserted timer.
type TimerToken uint64

type timer[D any] struct {
	token    TimerToken
	deadline time.Time
	fn       TimerFunc[D]
}

// LoopSignal stops a running loop. It is safe for concurrent use.
type LoopSignal struct {
	once    sync.Once
	ch      chan struct{}
	stopped atomic.Bool
}

// Stop raises the stop signal. The running callback completes, the idle hooks
// run once more and Run returns.
func (s *LoopSignal) Stop() {
	s.once.Do(func() {
		s.stopped.Store(true)
		close(s.ch)
	})
}

// Stopped reports whether Stop was called.
func (s *LoopSignal) Stopped() bool { return s.stopped.Load() }

// Done is closed once Stop was called.
func (s *LoopSignal) Done() <-chan struct{} { return s.ch }

// EventLoop dispatches timers and posted callbacks for loop data D.
type EventLoop[D any] struct {
	signal *LoopSignal

	mu     sync.Mutex
	posted []func(*D)
	notify chan struct{}

	timers    []*timer[D]
	nextToken TimerToken
	idle      []func(*D)
	now       func() time.Time
}

// New creates a loop that is not yet running.
func New[D any]() *EventLoop[D] {
	return &EventLoop[D]{
		signal: &LoopSignal{ch: make(chan struct{})},
		notify: make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Signal returns the loop's stop signal.
func (l *EventLoop[D]) Signal() *LoopSignal { return l.signal }

// InsertTimer schedules fn after d. Only call it from the loop goroutine or
// before Run.
func (l *EventLoop[D]) InsertTimer(d time.Duration, fn TimerFunc[D]) TimerToken {
	l.nextToken++
	l.timers = append(l.timers, &timer[D]{
		token:    l.nextToken,
		deadline: l.now().Add(d),
		fn:       fn,
	})
	return l.nextToken
}

// RemoveTimer cancels a timer. Unknown tokens are ignored.
func (l *EventLoop[D]) RemoveTimer(token TimerToken) {
	for i, t := range l.timers {
		if t.token == token {
			l.timers = append(l.timers[:i], l.timers[i+1:]...)
			return
		}
	}
}

// Timers returns the number of scheduled timers.
func (l *EventLoop[D]) Timers() int { return len(l.timers) }

// OnIdle registers a hook that runs after every dispatched callback.
func (l *EventLoop[D]) OnIdle(fn func(*D)) {
	l.idle = append(l.idle, fn)
}

// Post queues fn to run on the loop goroutine. It is safe to call from any
// goroutine and never blocks. It reports false once the loop was stopped.
func (l *EventLoop[D]) Post(fn func(*D)) bool {
	if l.signal.Stopped() {
		return false
	}
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	select {
	case l.notify <- struct{}{}:
	default:
	}
	return true
}

// Run dispatches until the stop signal is raised or ctx is cancelled.
func (l *EventLoop[D]) Run(ctx context.Context, data *D) error {
	wake := time.NewTimer(time.Hour)
	defer wake.Stop()

	for !l.signal.Stopped() {
		var timerC <-chan time.Time
		if next, ok := l.nextDeadline(); ok {
			wake.Reset(max(next.Sub(l.now()), 0))
			timerC = wake.C
		}

		select {
		case <-ctx.Done():
			l.signal.Stop()
			l.runIdle(data)
			return ctx.Err()
		case <-l.signal.Done():
			l.runIdle(data)
		case <-l.notify:
			l.dispatchPosted(data)
		case <-timerC:
			l.dispatchTimers(data)
		}
	}
	return nil
}

func (l *EventLoop[D]) nextDeadline() (time.Time, bool) {
	if len(l.timers) == 0 {
		return time.Time{}, false
	}
	next := l.timers[0].deadline
	for _, t := range l.timers[1:] {
		if t.deadline.Before(next) {
			next = t.deadline
		}
	}
	return next, true
}

func (l *EventLoop[D]) dispatchPosted(data *D) {
	l.mu.Lock()
	batch := l.posted
	l.posted = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn(data)
		l.runIdle(data)
		if l.signal.Stopped() {
			return
		}
	}
}

func (l *EventLoop[D]) dispatchTimers(data *D) {
	now := l.now()
	var due []*timer[D]
	for _, t := range l.timers {
		if !t.deadline.After(now) {
			due = append(due, t)
		}
	}
	for _, t := range due {
		if !l.scheduled(t.token) {
			continue
		}
		action := t.fn(now, data)
		if action.drop {
			l.RemoveTimer(t.token)
		} else {
			t.deadline = now.Add(action.after)
		}
		l.runIdle(data)
		if l.signal.Stopped() {
			return
		}
	}
}

func (l *EventLoop[D]) scheduled(token TimerToken) bool {
	for _, t := range l.timers {
		if t.token == token {
			return true
		}
	}
	return false
}

func (l *EventLoop[D]) runIdle(data *D) {
	for _, fn := range l.idle {
		fn(data)
	}
}
