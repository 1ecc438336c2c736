package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"

	"github.com/1broseidon/khigy/internal/input"
)

// ErrClosed is returned once the window was closed by the user, the window
// manager, or the server.
var ErrClosed = errors.New("x11 window closed")

// evdev keycodes are X keycodes minus this offset.
const keycodeOffset = 8

// Handler receives translated window events.
type Handler struct {
	Resized func(width, height int)
	Input   func(input.Event)
}

// Dispatch drains every queued X event without blocking. It returns ErrClosed
// when the window is gone; protocol errors from the server are returned
// wrapped.
func (w *Window) Dispatch(h Handler) error {
	if w.closed {
		return ErrClosed
	}
	conn := w.conn.XUtil.Conn()
	for {
		ev, xerr := conn.PollForEvent()
		if xerr != nil {
			return fmt.Errorf("x11 error: %v", xerr)
		}
		if ev == nil {
			return nil
		}
		if err := w.translate(ev, h); err != nil {
			return err
		}
	}
}

func (w *Window) translate(ev xgb.Event, h Handler) error {
	switch e := ev.(type) {
	case xproto.ConfigureNotifyEvent:
		if e.Window != w.win.Id {
			return nil
		}
		width, height := int(e.Width), int(e.Height)
		if width == w.width && height == w.height {
			return nil
		}
		w.width, w.height = width, height
		if h.Resized != nil {
			h.Resized(width, height)
		}
	case xproto.ClientMessageEvent:
		if e.Type == w.protocolAtom && xproto.Atom(e.Data.Data32[0]) == w.deleteAtom {
			w.closed = true
			return ErrClosed
		}
	case xproto.DestroyNotifyEvent:
		if e.Window == w.win.Id {
			w.closed = true
			return ErrClosed
		}
	case xproto.KeyPressEvent:
		w.emitKey(h, e.Detail, e.State, uint32(e.Time), input.KeyPressed)
	case xproto.KeyReleaseEvent:
		w.emitKey(h, e.Detail, e.State, uint32(e.Time), input.KeyReleased)
	case xproto.ButtonPressEvent:
		emitButton(h, e.Detail, uint32(e.Time), input.ButtonPressed)
	case xproto.ButtonReleaseEvent:
		emitButton(h, e.Detail, uint32(e.Time), input.ButtonReleased)
	case xproto.MotionNotifyEvent:
		if h.Input != nil {
			h.Input(input.PointerMotionAbsolute{
				Time: uint32(e.Time),
				X:    float64(e.EventX),
				Y:    float64(e.EventY),
			})
		}
	}
	return nil
}

func (w *Window) emitKey(h Handler, code xproto.Keycode, state uint16, time uint32, ks input.KeyState) {
	if h.Input == nil || code < keycodeOffset {
		return
	}
	h.Input(input.KeyboardKey{
		Time:      time,
		Keycode:   uint32(code) - keycodeOffset,
		State:     ks,
		Keysym:    keybind.LookupString(w.conn.XUtil, state, code),
		Modifiers: modifiers(state),
	})
}

func modifiers(state uint16) input.Modifiers {
	return input.Modifiers{
		Shift: state&xproto.ModMaskShift != 0,
		Ctrl:  state&xproto.ModMaskControl != 0,
		Alt:   state&xproto.ModMask1 != 0,
		Num:   state&xproto.ModMask2 != 0,
		Logo:  state&xproto.ModMask4 != 0,
		Caps:  state&xproto.ModMaskLock != 0,
	}
}

func emitButton(h Handler, detail xproto.Button, time uint32, st input.ButtonState) {
	if h.Input == nil {
		return
	}
	switch detail {
	case xproto.ButtonIndex1:
		h.Input(input.PointerButton{Time: time, Button: input.BtnLeft, State: st})
	case xproto.ButtonIndex2:
		h.Input(input.PointerButton{Time: time, Button: input.BtnMiddle, State: st})
	case xproto.ButtonIndex3:
		h.Input(input.PointerButton{Time: time, Button: input.BtnRight, State: st})
	case xproto.ButtonIndex4, xproto.ButtonIndex5:
		// Wheel clicks arrive as press/release pairs; scroll once on press.
		if st != input.ButtonPressed {
			return
		}
		v := -1.0
		if detail == xproto.ButtonIndex5 {
			v = 1.0
		}
		h.Input(input.PointerAxis{Time: time, Source: input.AxisSourceWheel, Vertical: v})
	}
}
