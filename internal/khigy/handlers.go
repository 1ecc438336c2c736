package khigy

import (
	"slices"

	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/datadevice"
	"github.com/1broseidon/khigy/internal/platform"
	"github.com/1broseidon/khigy/internal/seat"
	"github.com/1broseidon/khigy/internal/shell"
	"github.com/1broseidon/khigy/internal/wire"
)

var (
	_ seat.Handler       = (*State)(nil)
	_ seat.Sink          = (*State)(nil)
	_ seat.Locator       = (*State)(nil)
	_ shell.Handler      = (*State)(nil)
	_ datadevice.Handler = (*State)(nil)
)

// send queues an event for client. Events for clients that already left are
// dropped.
func (s *State) send(client compositor.ClientID, object uint32, op wire.Opcode, body any) {
	c, ok := s.display.Client(client)
	if !ok {
		return
	}
	if err := c.Send(object, op, body); err != nil {
		c.Logger().Debug("event dropped", "event", op, "error", err)
	}
}

// Seat handler.

// FocusChanged moves data-device visibility to the client owning the new
// keyboard focus.
func (s *State) FocusChanged(_ *seat.Seat, focused *compositor.Surface) {
	if focused == nil {
		s.data.SetFocus(0, false)
		return
	}
	s.data.SetFocus(focused.Client(), true)
}

// PointerFocusChanged withdraws or keeps an active drag as the pointer moves
// between surfaces.
func (s *State) PointerFocusChanged(_ *seat.Seat, focused *compositor.Surface) {
	s.data.PointerFocusChanged(focused)
}

// CursorImage accepts the request. Nothing draws a cursor.
func (s *State) CursorImage(_ *seat.Seat, image seat.CursorImage) {
	s.logger.Debug("cursor image requested", "hidden", image.Hidden, "named", image.Named)
}

// Send implements seat.Sink. Seat events travel on the display object and
// name the surface they concern where the client needs it.
func (s *State) Send(target *compositor.Surface, ev seat.Event) {
	var (
		op   wire.Opcode
		body any
	)
	switch ev := ev.(type) {
	case seat.KeyboardEnter:
		op, body = wire.EvKeyboardEnter, wire.KeyboardEnter{Surface: target.ID(), Serial: ev.Serial, Keys: ev.Keys}
	case seat.KeyboardLeave:
		op, body = wire.EvKeyboardLeave, wire.Leave{Surface: target.ID(), Serial: ev.Serial}
	case seat.Key:
		op, body = wire.EvKey, wire.Key{Serial: ev.Serial, Time: ev.Time, Key: ev.Keycode, State: uint32(ev.State)}
	case seat.ModifiersChanged:
		m := ev.Modifiers
		op, body = wire.EvModifiers, wire.Modifiers{
			Serial: ev.Serial,
			Shift:  m.Shift,
			Ctrl:   m.Ctrl,
			Alt:    m.Alt,
			Logo:   m.Logo,
			Caps:   m.Caps,
			Num:    m.Num,
		}
	case seat.PointerEnter:
		op, body = wire.EvPointerEnter, wire.PointerEnter{Surface: target.ID(), Serial: ev.Serial, X: ev.X, Y: ev.Y}
	case seat.PointerLeave:
		op, body = wire.EvPointerLeave, wire.Leave{Surface: target.ID(), Serial: ev.Serial}
	case seat.PointerMotion:
		op, body = wire.EvPointerMotion, wire.PointerMotion{Time: ev.Time, X: ev.X, Y: ev.Y}
	case seat.PointerButton:
		op, body = wire.EvPointerButton, wire.PointerButton{Serial: ev.Serial, Time: ev.Time, Button: ev.Button, State: uint32(ev.State)}
	case seat.PointerAxis:
		op, body = wire.EvPointerAxis, wire.PointerAxis{Time: ev.Time, Source: uint32(ev.Source), Horizontal: ev.Horizontal, Vertical: ev.Vertical}
	default:
		return
	}
	s.send(target.Client(), wire.DisplayObject, op, body)
}

// SurfaceUnder implements seat.Locator over the current scene, topmost first.
func (s *State) SurfaceUnder(p platform.Point) (*compositor.Surface, platform.Point, bool) {
	elements := s.elements(s.scene())
	for _, e := range slices.Backward(elements) {
		if e.Geometry().Contains(p) {
			return e.Surface, e.Location, true
		}
	}
	return nil, platform.Point{}, false
}

// Shell handler.

// NewToplevel is where the initial configure would be sent.
func (s *State) NewToplevel(t *shell.Toplevel) {
	s.logger.Debug("new toplevel", "surface", t.Surface())
}

// NewPopup is where the initial popup configure would be sent.
func (s *State) NewPopup(p *shell.Popup, pos shell.Positioner) {
	s.logger.Debug("new popup", "surface", p.Surface(), "parent", p.Parent(), "size", pos.Size)
}

// ToplevelMapped logs the first buffered commit of a toplevel.
func (s *State) ToplevelMapped(t *shell.Toplevel) {
	s.logger.Info("toplevel mapped", "surface", t.Surface(), "title", t.Title(), "app_id", t.AppID())
}

// ToplevelClosed tells the owning client its toplevel is gone, unless the
// client destroyed the role object itself.
func (s *State) ToplevelClosed(t *shell.Toplevel) {
	surf := t.Surface()
	s.logger.Info("toplevel closed", "surface", surf, "title", t.Title())
	ref, ok := s.toplevelRefs[surf]
	if !ok {
		return
	}
	delete(s.toplevelRefs, surf)
	// A client that destroyed the role itself gets no event.
	c, ok := s.display.Client(ref.client)
	if !ok {
		return
	}
	if obj, bound := c.Object(ref.id); !bound || obj != any(t) {
		return
	}
	if err := c.Send(ref.id, wire.EvToplevelClosed, wire.Empty{}); err != nil {
		c.Logger().Debug("event dropped", "event", wire.EvToplevelClosed, "error", err)
	}
}

// MoveRequest accepts an interactive move. No coordinator handles it.
func (s *State) MoveRequest(t *shell.Toplevel, seatName string, serial uint32) {
	s.logger.Debug("interactive move ignored", "surface", t.Surface(), "seat", seatName, "serial", serial)
}

// ResizeRequest accepts an interactive resize. No coordinator handles it.
func (s *State) ResizeRequest(t *shell.Toplevel, seatName string, serial uint32, edges shell.ResizeEdge) {
	s.logger.Debug("interactive resize ignored", "surface", t.Surface(), "seat", seatName, "serial", serial, "edges", edges)
}

// Grab accepts a popup grab without changing input routing.
func (s *State) Grab(p *shell.Popup, seatName string, serial uint32) {
	s.logger.Debug("popup grab ignored", "surface", p.Surface(), "seat", seatName, "serial", serial)
}

// RepositionRequest accepts a new positioner; placement reads it on the next
// frame.
func (s *State) RepositionRequest(p *shell.Popup, _ shell.Positioner, token uint32) {
	s.logger.Debug("popup repositioned", "surface", p.Surface(), "token", token)
}

// Data-device handler.

// SelectionOffer announces the current selection to the focused client.
func (s *State) SelectionOffer(client compositor.ClientID, src *datadevice.Source) {
	s.send(client, wire.DisplayObject, wire.EvSelection, wire.Selection{Source: src.ID, MimeTypes: src.MimeTypes})
}

// SelectionCleared tells a client that lost focus to forget its offer.
func (s *State) SelectionCleared(client compositor.ClientID) {
	s.send(client, wire.DisplayObject, wire.EvSelectionCleared, wire.Empty{})
}

// SourceCancelled tells the owner its source will never be used.
func (s *State) SourceCancelled(src *datadevice.Source) {
	s.send(src.Client, src.ID, wire.EvSourceCancelled, wire.Empty{})
}

// SourceSend asks the owning client for the selection data of one transfer.
func (s *State) SourceSend(src *datadevice.Source, mime string, transfer uint32) {
	s.send(src.Client, src.ID, wire.EvSourceSend, wire.SourceSend{Transfer: transfer, MimeType: mime})
}

// OfferData relays selection data to the receiving client.
func (s *State) OfferData(client compositor.ClientID, transfer uint32, mime string, data []byte) {
	s.send(client, wire.DisplayObject, wire.EvOfferData, wire.OfferData{Transfer: transfer, MimeType: mime, Data: data})
}

// DragEnter offers a drag to the client under the pointer.
func (s *State) DragEnter(client compositor.ClientID, src *datadevice.Source, target *compositor.Surface) {
	var mimes []string
	if src != nil {
		mimes = src.MimeTypes
	}
	s.send(client, wire.DisplayObject, wire.EvDragEnter, wire.DragEnter{Surface: target.ID(), MimeTypes: mimes})
}

// DragLeave withdraws the drag offer.
func (s *State) DragLeave(client compositor.ClientID) {
	s.send(client, wire.DisplayObject, wire.EvDragLeave, wire.Empty{})
}

// Drop delivers the drag on button release.
func (s *State) Drop(client compositor.ClientID, src *datadevice.Source) {
	s.send(client, wire.DisplayObject, wire.EvDrop, wire.Drop{MimeTypes: src.MimeTypes})
}
