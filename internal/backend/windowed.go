package backend

import (
	"errors"
	"fmt"
	"image"

	"github.com/1broseidon/khigy/internal/input"
	"github.com/1broseidon/khigy/internal/output"
	"github.com/1broseidon/khigy/internal/platform"
	"github.com/1broseidon/khigy/internal/x11"
)

// Windowed presents into a top-level X11 window and reads input from it.
type Windowed struct {
	conn   *x11.Connection
	window *x11.Window
	output *output.Output

	staging *image.RGBA
}

// NewWindowed opens the X display and maps the preview window.
func NewWindowed(opts Options) (*Windowed, error) {
	conn, err := x11.NewConnection(opts.Display)
	if err != nil {
		return nil, err
	}
	title := opts.Title
	if title == "" {
		title = "khigy"
	}
	win, err := conn.CreateWindow(title, opts.Width, opts.Height)
	if err != nil {
		conn.Close()
		return nil, err
	}

	phys := output.PhysicalProperties{Make: "Khigy", Model: "X11 window"}
	refresh := opts.RefreshMHz
	// The host monitor only contributes metadata; a server without RandR
	// still gets a working window.
	if mon, err := conn.PointerMonitor(); err == nil {
		phys.SizeMM = platform.Size{Width: mon.WidthMM, Height: mon.HeightMM}
		phys.Subpixel = subpixelFromX(mon.Subpixel)
		if mon.RefreshMHz > 0 {
			refresh = mon.RefreshMHz
		}
	}

	size := platform.Size{Width: opts.Width, Height: opts.Height}
	return &Windowed{
		conn:    conn,
		window:  win,
		output:  newOutput("x11", phys, size, refresh),
		staging: image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)),
	}, nil
}

func subpixelFromX(order uint8) output.Subpixel {
	switch order {
	case x11.SubpixelHorizontalRGB:
		return output.SubpixelHorizontalRGB
	case x11.SubpixelHorizontalBGR:
		return output.SubpixelHorizontalBGR
	case x11.SubpixelVerticalRGB:
		return output.SubpixelVerticalRGB
	case x11.SubpixelVerticalBGR:
		return output.SubpixelVerticalBGR
	case x11.SubpixelNone:
		return output.SubpixelNone
	default:
		return output.SubpixelUnknown
	}
}

func (w *Windowed) Name() string           { return "x11" }
func (w *Windowed) Output() *output.Output { return w.output }
func (w *Windowed) sealed()                {}

func (w *Windowed) dispatch(handle func(Event)) error {
	err := w.window.Dispatch(x11.Handler{
		Resized: func(width, height int) {
			w.staging = image.NewRGBA(image.Rect(0, 0, width, height))
			handle(Resized{Size: platform.Size{Width: width, Height: height}})
		},
		Input: func(ev input.Event) {
			handle(Input{Event: ev})
		},
	})
	return mapX11Error(err)
}

func mapX11Error(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, x11.ErrClosed) {
		return ErrWindowClosed
	}
	return fmt.Errorf("x11 backend: %w", err)
}

// Bind returns the staging image sized to the window.
func (w *Windowed) Bind() (*image.RGBA, error) {
	if w.staging == nil {
		return nil, ErrWindowClosed
	}
	return w.staging, nil
}

// Submit copies the whole staging image to the window. The damage region is
// the full output, so it is not used to clip the upload.
func (w *Windowed) Submit(_ []platform.Rect) error {
	return mapX11Error(w.window.Present(w.staging))
}

// Close destroys the window and disconnects.
func (w *Windowed) Close() error {
	w.window.Destroy()
	w.conn.Close()
	w.staging = nil
	return nil
}
