package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"github.com/BurntSushi/xgbutil/xwindow"
)

const previewEventMask = xproto.EventMaskStructureNotify |
	xproto.EventMaskExposure |
	xproto.EventMaskKeyPress |
	xproto.EventMaskKeyRelease |
	xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskFocusChange

// Window is a managed top-level X window the compositor presents into.
type Window struct {
	conn *Connection
	win  *xwindow.Window

	deleteAtom   xproto.Atom
	protocolAtom xproto.Atom

	width  int
	height int

	canvas *xgraphics.Image
	closed bool
}

// CreateWindow creates and maps a titled top-level window that asks the
// window manager for WM_DELETE_WINDOW instead of being killed.
func (c *Connection) CreateWindow(title string, width, height int) (*Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", width, height)
	}

	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("allocate window id: %w", err)
	}
	err = win.CreateChecked(c.Root, 0, 0, width, height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0, previewEventMask)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	w := &Window{conn: c, win: win, width: width, height: height}
	if w.deleteAtom, err = c.Atom("WM_DELETE_WINDOW"); err != nil {
		win.Destroy()
		return nil, err
	}
	if w.protocolAtom, err = c.Atom("WM_PROTOCOLS"); err != nil {
		win.Destroy()
		return nil, err
	}
	if err := icccm.WmProtocolsSet(c.XUtil, win.Id, []string{"WM_DELETE_WINDOW"}); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("set WM_PROTOCOLS: %w", err)
	}
	// Titles are cosmetic; a WM without EWMH support still gets WM_NAME.
	_ = icccm.WmNameSet(c.XUtil, win.Id, title)
	_ = ewmh.WmNameSet(c.XUtil, win.Id, title)

	win.Map()
	if err := c.Sync(); err != nil {
		win.Destroy()
		return nil, err
	}
	return w, nil
}

// ID returns the X window id.
func (w *Window) ID() xproto.Window { return w.win.Id }

// Size returns the last known window size.
func (w *Window) Size() (int, int) { return w.width, w.height }

// Present copies an RGBA frame into the window. The copy goes through an
// xgraphics image that is reallocated when the frame size changes. Present
// returns after a server round trip, so the frame has reached the server.
func (w *Window) Present(frame *image.RGBA) error {
	if w.closed {
		return ErrClosed
	}
	b := frame.Bounds()
	if w.canvas == nil || !w.canvas.Bounds().Eq(b) {
		if w.canvas != nil {
			w.canvas.Destroy()
		}
		w.canvas = xgraphics.New(w.conn.XUtil, b)
		if err := w.canvas.XSurfaceSet(w.win.Id); err != nil {
			w.canvas.Destroy()
			w.canvas = nil
			return fmt.Errorf("allocate window pixmap: %w", err)
		}
	}
	copyRGBAToBGRA(w.canvas.Pix, frame)
	w.canvas.XDraw()
	w.canvas.XPaint(w.win.Id)
	return w.conn.Sync()
}

// copyRGBAToBGRA converts premultiplied RGBA into xgraphics' BGRA layout.
// Both images share bounds and a 4*width stride.
func copyRGBAToBGRA(dst []uint8, src *image.RGBA) {
	b := src.Bounds()
	w := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		out := dst[y*w : y*w+w]
		for i := 0; i < w; i += 4 {
			out[i+0] = row[i+2]
			out[i+1] = row[i+1]
			out[i+2] = row[i+0]
			out[i+3] = row[i+3]
		}
	}
}

// Destroy releases the window and its pixmap.
func (w *Window) Destroy() {
	if w.canvas != nil {
		w.canvas.Destroy()
		w.canvas = nil
	}
	if !w.closed {
		w.win.Destroy()
		w.closed = true
	}
}
