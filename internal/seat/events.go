package seat

import (
	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/input"
)

// Sink delivers seat events to the client owning target.
type Sink interface {
	Send(target *compositor.Surface, ev Event)
}

// Event is a client-visible input event routed by the seat. Pointer
// coordinates are surface local.
type Event interface {
	seatEvent()
}

type KeyboardEnter struct {
	Serial uint32
	Keys   []uint32
}

type KeyboardLeave struct {
	Serial uint32
}

type Key struct {
	Serial  uint32
	Time    uint32
	Keycode uint32
	State   input.KeyState
}

type ModifiersChanged struct {
	Serial    uint32
	Modifiers input.Modifiers
}

type PointerEnter struct {
	Serial uint32
	X, Y   float64
}

type PointerLeave struct {
	Serial uint32
}

type PointerMotion struct {
	Time uint32
	X, Y float64
}

type PointerButton struct {
	Serial uint32
	Time   uint32
	Button uint32
	State  input.ButtonState
}

type PointerAxis struct {
	Time       uint32
	Source     input.AxisSource
	Horizontal float64
	Vertical   float64
}

func (KeyboardEnter) seatEvent()    {}
func (KeyboardLeave) seatEvent()    {}
func (Key) seatEvent()              {}
func (ModifiersChanged) seatEvent() {}
func (PointerEnter) seatEvent()     {}
func (PointerLeave) seatEvent()     {}
func (PointerMotion) seatEvent()    {}
func (PointerButton) seatEvent()    {}
func (PointerAxis) seatEvent()      {}
