package khigy

import (
	"context"
	"errors"

	"github.com/1broseidon/khigy/internal/loop"
)

// ErrLoopStopped is returned by Controller calls once the event loop ended.
var ErrLoopStopped = errors.New("compositor event loop stopped")

// Poster is the part of the event loop a Controller needs.
type Poster interface {
	Post(fn func(*LoopData)) bool
}

var _ Poster = (*loop.EventLoop[LoopData])(nil)

// Controller runs queries against compositor state from other goroutines. Each
// call is posted to the event loop and waits for the answer.
type Controller struct {
	loop Poster
}

func NewController(p Poster) *Controller {
	return &Controller{loop: p}
}

func (c *Controller) Status(ctx context.Context) (Status, error) {
	return call(ctx, c.loop, func(d *LoopData) Status { return d.State.Status() })
}

func (c *Controller) Toplevels(ctx context.Context) ([]ToplevelInfo, error) {
	return call(ctx, c.loop, func(d *LoopData) []ToplevelInfo { return d.State.Toplevels() })
}

// Quit raises the loop's stop signal.
func (c *Controller) Quit(ctx context.Context) error {
	_, err := call(ctx, c.loop, func(d *LoopData) struct{} {
		d.State.logger.Info("quit requested")
		d.State.Stop()
		return struct{}{}
	})
	return err
}

func call[T any](ctx context.Context, p Poster, fn func(*LoopData) T) (T, error) {
	var zero T
	reply := make(chan T, 1)
	if !p.Post(func(d *LoopData) { reply <- fn(d) }) {
		return zero, ErrLoopStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
