// Package datadevice gates clipboard and drag-and-drop data by focus. Only
// the client holding keyboard focus sees the selection, and only the client
// holding pointer focus sees an active drag.
package datadevice

import (
	"errors"
	"slices"

	"github.com/1broseidon/khigy/internal/compositor"
)

var (
	ErrNotFocused  = errors.New("client does not hold focus")
	ErrNoSelection = errors.New("no selection")
	ErrMimeType    = errors.New("mime type not offered")
	ErrDragActive  = errors.New("drag already in progress")
)

// Source is a client-provided data source.
type Source struct {
	ID        uint32
	Client    compositor.ClientID
	MimeTypes []string
}

// Offers reports whether the source provides mime.
func (s *Source) Offers(mime string) bool {
	return slices.Contains(s.MimeTypes, mime)
}

// Handler delivers data-device events to clients.
type Handler interface {
	// SelectionOffer offers src to client.
	SelectionOffer(client compositor.ClientID, src *Source)
	// SelectionCleared tells client its offer is gone.
	SelectionCleared(client compositor.ClientID)
	// SourceCancelled tells the owner its source is no longer used.
	SourceCancelled(src *Source)
	// SourceSend asks the owner of src to produce data for a transfer.
	SourceSend(src *Source, mime string, transfer uint32)
	// OfferData hands transferred data to the requesting client.
	OfferData(client compositor.ClientID, transfer uint32, mime string, data []byte)

	DragEnter(client compositor.ClientID, src *Source, target *compositor.Surface)
	DragLeave(client compositor.ClientID)
	Drop(client compositor.ClientID, src *Source)
}

type transfer struct {
	requester compositor.ClientID
	source    *Source
	mime      string
}

type drag struct {
	source *Source
	origin *compositor.Surface
	target *compositor.Surface
}

// State is the data-device gate for one seat.
type State struct {
	handler Handler

	focus    compositor.ClientID
	hasFocus bool

	selection *Source
	drag      *drag

	transfers    map[uint32]transfer
	nextTransfer uint32
}

// New creates an empty gate.
func New(handler Handler) *State {
	return &State{handler: handler, transfers: make(map[uint32]transfer)}
}

// Focus returns the current keyboard-focus client.
func (st *State) Focus() (compositor.ClientID, bool) { return st.focus, st.hasFocus }

// Selection returns the current selection source.
func (st *State) Selection() *Source { return st.selection }

// Offer returns the selection visible to client. Only the focus client sees
// one.
func (st *State) Offer(client compositor.ClientID) (*Source, bool) {
	if !st.hasFocus || st.focus != client || st.selection == nil {
		return nil, false
	}
	return st.selection, true
}

// SetFocus moves keyboard focus to client. ok=false clears focus.
func (st *State) SetFocus(client compositor.ClientID, ok bool) {
	if ok == st.hasFocus && client == st.focus {
		return
	}
	if st.hasFocus && st.selection != nil {
		st.handler.SelectionCleared(st.focus)
	}
	st.focus, st.hasFocus = client, ok
	st.dropTransfers(func(t transfer) bool { return !ok || t.requester != client })
	if ok && st.selection != nil {
		st.handler.SelectionOffer(client, st.selection)
	}
}

// SetSelection replaces the selection. Requests from clients without
// keyboard focus are refused and their source cancelled. A nil src clears the
// selection when sent by the focus client.
func (st *State) SetSelection(client compositor.ClientID, src *Source) error {
	if !st.hasFocus || st.focus != client {
		if src != nil {
			st.handler.SourceCancelled(src)
		}
		return ErrNotFocused
	}
	if st.selection == src {
		return nil
	}
	if old := st.selection; old != nil {
		st.handler.SourceCancelled(old)
		st.dropTransfers(func(t transfer) bool { return t.source == old })
	}
	st.selection = src
	if src == nil {
		st.handler.SelectionCleared(client)
		return nil
	}
	st.handler.SelectionOffer(client, src)
	return nil
}

// Receive starts a selection transfer for the focus client. The owner is asked
// for the data; the reply comes back through SourceData.
func (st *State) Receive(client compositor.ClientID, mime string) (uint32, error) {
	src, ok := st.Offer(client)
	if !ok {
		if st.selection == nil {
			return 0, ErrNoSelection
		}
		return 0, ErrNotFocused
	}
	if !src.Offers(mime) {
		return 0, ErrMimeType
	}
	st.nextTransfer++
	id := st.nextTransfer
	st.transfers[id] = transfer{requester: client, source: src, mime: mime}
	st.handler.SourceSend(src, mime, id)
	return id, nil
}

// SourceData relays the owner's answer for a transfer. It is dropped if the
// sender is not the owner or the requester lost focus meanwhile.
func (st *State) SourceData(owner compositor.ClientID, id uint32, data []byte) bool {
	t, ok := st.transfers[id]
	if !ok || t.source.Client != owner {
		return false
	}
	delete(st.transfers, id)
	if !st.hasFocus || st.focus != t.requester || st.selection != t.source {
		return false
	}
	st.handler.OfferData(t.requester, id, t.mime, data)
	return true
}

// StartDrag begins a drag from origin. The client must hold pointer focus on
// origin.
func (st *State) StartDrag(client compositor.ClientID, src *Source, origin, pointerFocus *compositor.Surface) error {
	if origin == nil || pointerFocus == nil || origin != pointerFocus || origin.Client() != client {
		if src != nil {
			st.handler.SourceCancelled(src)
		}
		return ErrNotFocused
	}
	if st.drag != nil {
		return ErrDragActive
	}
	st.drag = &drag{source: src, origin: origin}
	st.PointerFocusChanged(pointerFocus)
	return nil
}

// Dragging reports whether a drag is active.
func (st *State) Dragging() bool { return st.drag != nil }

// PointerFocusChanged moves the drag offer to the new pointer focus.
func (st *State) PointerFocusChanged(target *compositor.Surface) {
	d := st.drag
	if d == nil || d.target == target {
		return
	}
	if d.target != nil {
		st.handler.DragLeave(d.target.Client())
	}
	d.target = target
	if target != nil {
		st.handler.DragEnter(target.Client(), d.source, target)
	}
}

// Drop ends the drag on button release, delivering the source to the client
// under the pointer.
func (st *State) Drop() {
	d := st.drag
	if d == nil {
		return
	}
	st.drag = nil
	if d.target != nil && d.source != nil {
		st.handler.Drop(d.target.Client(), d.source)
		return
	}
	if d.source != nil {
		st.handler.SourceCancelled(d.source)
	}
}

// ClientGone forgets everything owned by or targeted at client.
func (st *State) ClientGone(client compositor.ClientID) {
	if st.selection != nil && st.selection.Client == client {
		st.selection = nil
		if st.hasFocus && st.focus != client {
			st.handler.SelectionCleared(st.focus)
		}
	}
	if d := st.drag; d != nil {
		switch {
		case d.origin.Client() == client:
			if d.target != nil && d.target.Client() != client {
				st.handler.DragLeave(d.target.Client())
			}
			st.drag = nil
		case d.target != nil && d.target.Client() == client:
			d.target = nil
		}
	}
	if st.hasFocus && st.focus == client {
		st.focus, st.hasFocus = 0, false
	}
	st.dropTransfers(func(t transfer) bool {
		return t.requester == client || t.source.Client == client
	})
}

func (st *State) dropTransfers(match func(transfer) bool) {
	for id, t := range st.transfers {
		if match(t) {
			delete(st.transfers, id)
		}
	}
}
