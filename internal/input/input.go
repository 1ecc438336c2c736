// Package input defines the platform-neutral input events that backends
// produce and the seat consumes.
package input

// KeyState is the pressed/released state of a key.
type KeyState int

const (
	KeyReleased KeyState = iota
	KeyPressed
)

// ButtonState is the pressed/released state of a pointer button.
type ButtonState int

const (
	ButtonReleased ButtonState = iota
	ButtonPressed
)

// Linux evdev button codes, as sent on the wire.
const (
	BtnLeft   uint32 = 0x110
	BtnRight  uint32 = 0x111
	BtnMiddle uint32 = 0x112
)

// Modifiers is the set of held modifier keys.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
	Logo  bool
	Caps  bool
	Num   bool
}

// AxisSource identifies what generated a scroll event.
type AxisSource int

const (
	AxisSourceWheel AxisSource = iota
	AxisSourceFinger
	AxisSourceContinuous
)

// Event is one translated input event. Time is in milliseconds on the
// backend's clock.
type Event interface {
	EventTime() uint32
}

// KeyboardKey reports a key transition. Keycode is an evdev code (X11 keycode
// minus 8). Keysym is the backend's symbolic name for the key, when known.
type KeyboardKey struct {
	Time      uint32
	Keycode   uint32
	State     KeyState
	Keysym    string
	Modifiers Modifiers
}

// PointerMotionAbsolute reports a pointer position in output pixels.
type PointerMotionAbsolute struct {
	Time uint32
	X    float64
	Y    float64
}

// PointerButton reports a button transition.
type PointerButton struct {
	Time   uint32
	Button uint32
	State  ButtonState
}

// PointerAxis reports a scroll.
type PointerAxis struct {
	Time       uint32
	Source     AxisSource
	Horizontal float64
	Vertical   float64
}

func (e KeyboardKey) EventTime() uint32           { return e.Time }
func (e PointerMotionAbsolute) EventTime() uint32 { return e.Time }
func (e PointerButton) EventTime() uint32         { return e.Time }
func (e PointerAxis) EventTime() uint32           { return e.Time }
