// Package seat routes translated input to the focused client surfaces and
// keeps one focus slot per capability.
package seat

import (
	"slices"

	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/input"
	"github.com/1broseidon/khigy/internal/platform"
)

// Capability is one input capability a seat can expose.
type Capability int

const (
	Keyboard Capability = iota
	Pointer
)

func (c Capability) String() string {
	switch c {
	case Keyboard:
		return "keyboard"
	case Pointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// RepeatInfo is the key repeat configuration advertised to clients.
type RepeatInfo struct {
	DelayMS int
	RateHz  int
}

// CursorImage is a client's cursor request. Hidden and Named are mutually
// exclusive with Surface.
type CursorImage struct {
	Hidden  bool
	Named   string
	Surface *compositor.Surface
	Hotspot platform.Point
}

// Handler receives seat notifications that need compositor-wide reaction.
type Handler interface {
	// FocusChanged reports a keyboard focus change. focused is nil when the
	// focus was cleared.
	FocusChanged(s *Seat, focused *compositor.Surface)
	// PointerFocusChanged reports a pointer focus change.
	PointerFocusChanged(s *Seat, focused *compositor.Surface)
	// CursorImage reports a client cursor request.
	CursorImage(s *Seat, image CursorImage)
}

// Locator finds the topmost mapped surface under a point in output
// coordinates and the output position of that surface's origin.
type Locator interface {
	SurfaceUnder(p platform.Point) (*compositor.Surface, platform.Point, bool)
}

// Seat is a named bundle of input capabilities with their focus slots.
type Seat struct {
	name    string
	handler Handler
	sink    Sink

	caps   map[Capability]bool
	repeat RepeatInfo

	keyboardFocus *compositor.Surface
	pointerFocus  *compositor.Surface
	pointerOrigin platform.Point

	location  Location
	pressed   []uint32
	buttons   []uint32
	modifiers input.Modifiers

	serial uint32
}

// Location is the pointer position in output coordinates.
type Location struct {
	X float64
	Y float64
}

func (l Location) point() platform.Point {
	return platform.Point{X: int(l.X), Y: int(l.Y)}
}

// New creates a seat with no capabilities.
func New(name string, handler Handler, sink Sink) *Seat {
	return &Seat{
		name:    name,
		handler: handler,
		sink:    sink,
		caps:    make(map[Capability]bool),
	}
}

func (s *Seat) Name() string                       { return s.name }
func (s *Seat) KeyboardFocus() *compositor.Surface { return s.keyboardFocus }
func (s *Seat) PointerFocus() *compositor.Surface  { return s.pointerFocus }
func (s *Seat) PointerLocation() Location          { return s.location }
func (s *Seat) RepeatInfo() RepeatInfo             { return s.repeat }
func (s *Seat) Modifiers() input.Modifiers         { return s.modifiers }

// Has reports whether the capability was added.
func (s *Seat) Has(c Capability) bool { return s.caps[c] }

// Capabilities lists the added capabilities in a fixed order.
func (s *Seat) Capabilities() []Capability {
	var out []Capability
	for _, c := range []Capability{Keyboard, Pointer} {
		if s.caps[c] {
			out = append(out, c)
		}
	}
	return out
}

// AddKeyboard enables the keyboard capability.
func (s *Seat) AddKeyboard(repeat RepeatInfo) {
	s.caps[Keyboard] = true
	s.repeat = repeat
}

// AddPointer enables the pointer capability.
func (s *Seat) AddPointer() {
	s.caps[Pointer] = true
}

// NextSerial returns a fresh event serial.
func (s *Seat) NextSerial() uint32 {
	s.serial++
	return s.serial
}

// SetKeyboardFocus moves keyboard focus. The old surface gets a leave, the new
// one an enter with the currently pressed keys, then the handler is told.
func (s *Seat) SetKeyboardFocus(target *compositor.Surface) {
	if !s.caps[Keyboard] {
		return
	}
	if target != nil && !target.Alive() {
		target = nil
	}
	if target == s.keyboardFocus {
		return
	}
	old := s.keyboardFocus
	s.keyboardFocus = target
	if old != nil && old.Alive() {
		s.sink.Send(old, KeyboardLeave{Serial: s.NextSerial()})
	}
	if target != nil {
		s.sink.Send(target, KeyboardEnter{Serial: s.NextSerial(), Keys: slices.Clone(s.pressed)})
		s.sink.Send(target, ModifiersChanged{Serial: s.NextSerial(), Modifiers: s.modifiers})
	}
	if s.handler != nil {
		s.handler.FocusChanged(s, target)
	}
}

func (s *Seat) setPointerFocus(target *compositor.Surface, origin platform.Point) {
	if target == s.pointerFocus {
		s.pointerOrigin = origin
		return
	}
	old := s.pointerFocus
	s.pointerFocus = target
	s.pointerOrigin = origin
	if old != nil && old.Alive() {
		s.sink.Send(old, PointerLeave{Serial: s.NextSerial()})
	}
	if target != nil {
		x, y := s.local()
		s.sink.Send(target, PointerEnter{Serial: s.NextSerial(), X: x, Y: y})
	}
	if s.handler != nil {
		s.handler.PointerFocusChanged(s, target)
	}
}

func (s *Seat) local() (float64, float64) {
	return s.location.X - float64(s.pointerOrigin.X), s.location.Y - float64(s.pointerOrigin.Y)
}

// ProcessInput dispatches one backend input event. Pointer motion hit-tests
// through loc; button presses move keyboard focus to the toplevel under the
// pointer; keys, buttons and axis events go to the retained focus.
func (s *Seat) ProcessInput(ev input.Event, loc Locator) {
	switch ev := ev.(type) {
	case input.PointerMotionAbsolute:
		s.motion(ev, loc)
	case input.PointerButton:
		s.button(ev, loc)
	case input.PointerAxis:
		if s.pointerFocus != nil {
			s.sink.Send(s.pointerFocus, PointerAxis{
				Time:       ev.Time,
				Source:     ev.Source,
				Horizontal: ev.Horizontal,
				Vertical:   ev.Vertical,
			})
		}
	case input.KeyboardKey:
		s.key(ev)
	}
}

func (s *Seat) motion(ev input.PointerMotionAbsolute, loc Locator) {
	if !s.caps[Pointer] {
		return
	}
	s.location = Location{X: ev.X, Y: ev.Y}
	var (
		under  *compositor.Surface
		origin platform.Point
	)
	if loc != nil {
		if surf, at, ok := loc.SurfaceUnder(s.location.point()); ok {
			under, origin = surf, at
		}
	}
	if under != s.pointerFocus {
		s.setPointerFocus(under, origin)
		return
	}
	s.pointerOrigin = origin
	if under != nil {
		x, y := s.local()
		s.sink.Send(under, PointerMotion{Time: ev.Time, X: x, Y: y})
	}
}

func (s *Seat) button(ev input.PointerButton, loc Locator) {
	if !s.caps[Pointer] {
		return
	}
	switch ev.State {
	case input.ButtonPressed:
		if !slices.Contains(s.buttons, ev.Button) {
			s.buttons = append(s.buttons, ev.Button)
		}
		if loc != nil {
			if surf, _, ok := loc.SurfaceUnder(s.location.point()); ok {
				s.SetKeyboardFocus(surf.Root())
			}
		}
	case input.ButtonReleased:
		s.buttons = slices.DeleteFunc(s.buttons, func(b uint32) bool { return b == ev.Button })
	}
	if s.pointerFocus != nil {
		s.sink.Send(s.pointerFocus, PointerButton{
			Serial: s.NextSerial(),
			Time:   ev.Time,
			Button: ev.Button,
			State:  ev.State,
		})
	}
}

func (s *Seat) key(ev input.KeyboardKey) {
	if !s.caps[Keyboard] {
		return
	}
	switch ev.State {
	case input.KeyPressed:
		if !slices.Contains(s.pressed, ev.Keycode) {
			s.pressed = append(s.pressed, ev.Keycode)
		}
	case input.KeyReleased:
		s.pressed = slices.DeleteFunc(s.pressed, func(k uint32) bool { return k == ev.Keycode })
	}
	modsChanged := ev.Modifiers != s.modifiers
	s.modifiers = ev.Modifiers

	if s.keyboardFocus == nil {
		return
	}
	s.sink.Send(s.keyboardFocus, Key{
		Serial:  s.NextSerial(),
		Time:    ev.Time,
		Keycode: ev.Keycode,
		State:   ev.State,
	})
	if modsChanged {
		s.sink.Send(s.keyboardFocus, ModifiersChanged{Serial: s.NextSerial(), Modifiers: s.modifiers})
	}
}

// ButtonsHeld reports whether any pointer button is down.
func (s *Seat) ButtonsHeld() bool { return len(s.buttons) > 0 }

// SetCursorImage accepts a client cursor request. Nothing draws cursors yet;
// the request is only forwarded to the handler.
func (s *Seat) SetCursorImage(image CursorImage) {
	if s.handler != nil {
		s.handler.CursorImage(s, image)
	}
}

// SurfaceDestroyed clears every focus slot that references surf. Handlers see
// the change before this returns.
func (s *Seat) SurfaceDestroyed(surf *compositor.Surface) {
	if s.keyboardFocus == surf {
		s.keyboardFocus = nil
		if s.handler != nil {
			s.handler.FocusChanged(s, nil)
		}
	}
	if s.pointerFocus == surf {
		s.pointerFocus = nil
		if s.handler != nil {
			s.handler.PointerFocusChanged(s, nil)
		}
	}
}
