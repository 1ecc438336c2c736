// Package shell implements the toplevel and popup window roles and their
// Unconfigured -> Configured -> Closed lifecycle.
package shell

import (
	"errors"
	"fmt"
	"slices"

	"github.com/1broseidon/khigy/internal/compositor"
)

const (
	RoleToplevel = "xdg_toplevel"
	RolePopup    = "xdg_popup"
)

// State is the lifecycle state of a shell surface.
type State int

const (
	// Unconfigured roles exist but are not eligible for rendering.
	Unconfigured State = iota
	// Configured roles are mapped.
	Configured
	// Closed is terminal.
	Closed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrUnknownParent = errors.New("popup parent is not a live surface")
	ErrClosed        = errors.New("shell surface is closed")
)

// ResizeEdge is the edge mask of an interactive resize request.
type ResizeEdge uint32

const (
	EdgeNone        ResizeEdge = 0
	EdgeTop         ResizeEdge = 1
	EdgeBottom      ResizeEdge = 2
	EdgeLeft        ResizeEdge = 4
	EdgeTopLeft     ResizeEdge = 5
	EdgeBottomLeft  ResizeEdge = 6
	EdgeRight       ResizeEdge = 8
	EdgeTopRight    ResizeEdge = 9
	EdgeBottomRight ResizeEdge = 10
)

// Handler is the compositor side of the shell protocol. Every method is an
// entry point the shell calls synchronously from the loop goroutine.
type Handler interface {
	// NewToplevel is called once per toplevel, in Unconfigured state. This is
	// where an initial configure would be sent; none is sent today.
	NewToplevel(t *Toplevel)
	// NewPopup is called once per popup, in Unconfigured state.
	NewPopup(p *Popup, pos Positioner)
	// ToplevelMapped and ToplevelClosed report lifecycle transitions.
	ToplevelMapped(t *Toplevel)
	ToplevelClosed(t *Toplevel)

	// Interactive operations. There is no grab coordinator; implementations
	// accept and drop these requests.
	MoveRequest(t *Toplevel, seat string, serial uint32)
	ResizeRequest(t *Toplevel, seat string, serial uint32, edges ResizeEdge)
	Grab(p *Popup, seat string, serial uint32)
	RepositionRequest(p *Popup, pos Positioner, token uint32)
}

// Shell owns every live toplevel and popup, in creation order.
type Shell struct {
	handler   Handler
	toplevels []*Toplevel
	popups    []*Popup
}

// New creates an empty shell.
func New(handler Handler) *Shell {
	return &Shell{handler: handler}
}

// NewToplevel gives surf the toplevel role.
func (sh *Shell) NewToplevel(surf *compositor.Surface) (*Toplevel, error) {
	if err := surf.SetRole(RoleToplevel); err != nil {
		return nil, err
	}
	t := &Toplevel{shell: sh, surface: surf}
	surf.OnCommit(func(*compositor.Surface) { t.committed() })
	surf.OnDestroy(func(*compositor.Surface) { t.Destroy() })
	sh.toplevels = append(sh.toplevels, t)
	sh.handler.NewToplevel(t)
	return t, nil
}

// NewPopup gives surf the popup role, placed relative to parent.
func (sh *Shell) NewPopup(surf, parent *compositor.Surface, pos Positioner) (*Popup, error) {
	if parent == nil || !parent.Alive() || parent == surf {
		return nil, ErrUnknownParent
	}
	if err := surf.SetRole(RolePopup); err != nil {
		return nil, err
	}
	p := &Popup{shell: sh, surface: surf, parent: parent, positioner: pos}
	surf.OnCommit(func(*compositor.Surface) { p.committed() })
	surf.OnDestroy(func(*compositor.Surface) { p.Destroy() })
	parent.OnDestroy(func(*compositor.Surface) { p.Destroy() })
	sh.popups = append(sh.popups, p)
	sh.handler.NewPopup(p, pos)
	return p, nil
}

// Toplevels returns every toplevel that is not closed, in creation order.
func (sh *Shell) Toplevels() []*Toplevel {
	return slices.Clone(sh.toplevels)
}

// Mapped returns the configured toplevels in creation order. The order is
// stable across calls.
func (sh *Shell) Mapped() []*Toplevel {
	var out []*Toplevel
	for _, t := range sh.toplevels {
		if t.state == Configured {
			out = append(out, t)
		}
	}
	return out
}

// MappedPopups returns configured popups whose parent is still alive.
func (sh *Shell) MappedPopups() []*Popup {
	var out []*Popup
	for _, p := range sh.popups {
		if p.state == Configured && p.parent.Alive() {
			out = append(out, p)
		}
	}
	return out
}

// ToplevelFor returns the toplevel role of surf, if any.
func (sh *Shell) ToplevelFor(surf *compositor.Surface) (*Toplevel, bool) {
	for _, t := range sh.toplevels {
		if t.surface == surf {
			return t, true
		}
	}
	return nil, false
}

func (sh *Shell) remove(t *Toplevel) {
	sh.toplevels = slices.DeleteFunc(sh.toplevels, func(x *Toplevel) bool { return x == t })
}

func (sh *Shell) removePopup(p *Popup) {
	sh.popups = slices.DeleteFunc(sh.popups, func(x *Popup) bool { return x == p })
}

// Toplevel is the main window role.
type Toplevel struct {
	shell   *Shell
	surface *compositor.Surface
	state   State

	title     string
	appID     string
	ackSerial uint32
	acked     bool
}

func (t *Toplevel) Surface() *compositor.Surface { return t.surface }
func (t *Toplevel) State() State                 { return t.state }
func (t *Toplevel) Mapped() bool                 { return t.state == Configured }
func (t *Toplevel) Title() string                { return t.title }
func (t *Toplevel) AppID() string                { return t.appID }

// LastAck returns the serial of the last acknowledged configure.
func (t *Toplevel) LastAck() (uint32, bool) { return t.ackSerial, t.acked }

func (t *Toplevel) SetTitle(title string) { t.title = title }
func (t *Toplevel) SetAppID(id string)    { t.appID = id }

// AckConfigure records a client configure acknowledgement.
func (t *Toplevel) AckConfigure(serial uint32) {
	t.ackSerial, t.acked = serial, true
}

func (t *Toplevel) committed() {
	switch t.state {
	case Unconfigured:
		if t.surface.HasBuffer() {
			t.state = Configured
			t.shell.handler.ToplevelMapped(t)
		}
	case Configured:
		if !t.surface.HasBuffer() {
			t.close()
		}
	}
}

// Move forwards an interactive move request.
func (t *Toplevel) Move(seat string, serial uint32) error {
	if t.state == Closed {
		return ErrClosed
	}
	t.shell.handler.MoveRequest(t, seat, serial)
	return nil
}

// Resize forwards an interactive resize request.
func (t *Toplevel) Resize(seat string, serial uint32, edges ResizeEdge) error {
	if t.state == Closed {
		return ErrClosed
	}
	t.shell.handler.ResizeRequest(t, seat, serial, edges)
	return nil
}

// Destroy closes the toplevel. It is safe to call more than once.
func (t *Toplevel) Destroy() {
	t.close()
}

func (t *Toplevel) close() {
	if t.state == Closed {
		return
	}
	t.state = Closed
	t.shell.remove(t)
	t.shell.handler.ToplevelClosed(t)
}

// Popup is a transient role placed relative to a parent surface.
type Popup struct {
	shell      *Shell
	surface    *compositor.Surface
	parent     *compositor.Surface
	positioner Positioner
	state      State
}

func (p *Popup) Surface() *compositor.Surface { return p.surface }
func (p *Popup) Parent() *compositor.Surface  { return p.parent }
func (p *Popup) Positioner() Positioner       { return p.positioner }
func (p *Popup) State() State                 { return p.state }

func (p *Popup) committed() {
	switch p.state {
	case Unconfigured:
		if p.surface.HasBuffer() {
			p.state = Configured
		}
	case Configured:
		if !p.surface.HasBuffer() {
			p.Destroy()
		}
	}
}

// Grab forwards a popup grab request.
func (p *Popup) Grab(seat string, serial uint32) error {
	if p.state == Closed {
		return ErrClosed
	}
	p.shell.handler.Grab(p, seat, serial)
	return nil
}

// Reposition replaces the positioner snapshot and forwards the request.
func (p *Popup) Reposition(pos Positioner, token uint32) error {
	if p.state == Closed {
		return ErrClosed
	}
	p.positioner = pos
	p.shell.handler.RepositionRequest(p, pos, token)
	return nil
}

// Destroy closes the popup. It is safe to call more than once.
func (p *Popup) Destroy() {
	if p.state == Closed {
		return
	}
	p.state = Closed
	p.shell.removePopup(p)
}
