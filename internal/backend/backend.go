// Package backend turns platform window and input events into compositor
// events and presents rendered frames. Exactly one variant is active per
// process; the variant is matched only inside Poll.
package backend

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/1broseidon/khigy/internal/input"
	"github.com/1broseidon/khigy/internal/output"
	"github.com/1broseidon/khigy/internal/platform"
)

// ErrWindowClosed is returned by Poll and Target operations once the window
// or device is gone. It is terminal for the session.
var ErrWindowClosed = errors.New("backend window closed")

// Kind names a backend variant.
type Kind string

const (
	KindWindowed  Kind = "windowed"
	KindOffscreen Kind = "offscreen"
)

// ParseKind validates a configured backend name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindWindowed, KindOffscreen:
		return k, nil
	case "x11", "winit":
		return KindWindowed, nil
	case "headless":
		return KindOffscreen, nil
	default:
		return "", fmt.Errorf("unknown backend %q", s)
	}
}

// Event is a translated platform event.
type Event interface {
	backendEvent()
}

// Resized reports a new window size in pixels.
type Resized struct {
	Size platform.Size
}

// Input wraps a translated input event.
type Input struct {
	Event input.Event
}

func (Resized) backendEvent() {}
func (Input) backendEvent()   {}

// Target is the render handle a successful Poll resolves to.
type Target interface {
	// Bind returns the staging image for this frame, sized to the output.
	Bind() (*image.RGBA, error)
	// Submit presents the staging image. It may block until the
	// presentation is acknowledged.
	Submit(damage []platform.Rect) error
}

// Backend is one of *Windowed or *Offscreen.
type Backend interface {
	// Name identifies the backend in logs and seat names.
	Name() string
	// Output returns the output this backend drives.
	Output() *output.Output
	// Close releases platform resources.
	Close() error

	sealed()
}

// Options configure backend construction.
type Options struct {
	Title         string
	Width, Height int
	RefreshMHz    int
	// Display is the X display for the windowed variant; empty uses $DISPLAY.
	Display string
	// CaptureDir enables PNG capture for the offscreen variant.
	CaptureDir   string
	CaptureEvery int
}

// New constructs the backend variant named by kind. It is the only place a
// variant is chosen.
func New(kind Kind, opts Options) (Backend, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid backend size %dx%d", opts.Width, opts.Height)
	}
	if opts.RefreshMHz <= 0 {
		opts.RefreshMHz = DefaultRefreshMHz
	}
	switch kind {
	case KindWindowed:
		return NewWindowed(opts)
	case KindOffscreen:
		return NewOffscreen(opts)
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}

// DefaultRefreshMHz is the advertised refresh when nothing better is known.
const DefaultRefreshMHz = 60_000

// Poll drains pending platform events into handle and resolves the backend
// to its render target. A Resized event has already been applied to the
// backend's own surfaces when handle sees it.
func Poll(b Backend, handle func(Event)) (Target, error) {
	switch b := b.(type) {
	case *Windowed:
		if err := b.dispatch(handle); err != nil {
			return nil, err
		}
		return b, nil
	case *Offscreen:
		if err := b.dispatch(handle); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported backend %T", b)
	}
}

func newOutput(name string, phys output.PhysicalProperties, size platform.Size, refresh int) *output.Output {
	out := output.New(name, phys)
	mode := output.Mode{Size: size, Refresh: refresh}
	out.ChangeCurrentState(&mode, nil, nil, nil)
	out.SetPreferred(mode)
	return out
}
