package client

import (
	"image"

	"github.com/1broseidon/khigy/internal/wire"
)

// Surface is a client-side surface handle.
type Surface struct {
	conn *Conn
	ID   uint32
}

// Attach sends img as the pending buffer. A nil img detaches.
func (s *Surface) Attach(img *image.RGBA) error {
	var buf *wire.Buffer
	if img != nil {
		buf = bufferFromImage(img)
	}
	return s.conn.Request(s.ID, wire.OpSurfaceAttach, wire.Attach{Buffer: buf})
}

// bufferFromImage packs img rows tightly, as the wire expects.
func bufferFromImage(img *image.RGBA) *wire.Buffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, 0, w*h*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		pix = append(pix, img.Pix[off:off+w*4]...)
	}
	return &wire.Buffer{Width: w, Height: h, Pixels: pix}
}

func (s *Surface) Damage(x, y, width, height int) error {
	return s.conn.Request(s.ID, wire.OpSurfaceDamage, wire.Damage{X: x, Y: y, Width: width, Height: height})
}

// Frame requests a frame callback and returns its id.
func (s *Surface) Frame() (uint32, error) {
	id := s.conn.NewID()
	return id, s.conn.Request(s.ID, wire.OpSurfaceFrame, wire.Frame{Callback: id})
}

func (s *Surface) Commit() error {
	return s.conn.Request(s.ID, wire.OpSurfaceCommit, wire.Empty{})
}

func (s *Surface) Destroy() error {
	return s.conn.Request(s.ID, wire.OpSurfaceDestroy, wire.Empty{})
}

// PlaceAbove makes s a subsurface of parent at (x, y).
func (s *Surface) PlaceAbove(parent *Surface, x, y int) error {
	return s.conn.Request(s.ID, wire.OpSubsurface, wire.Subsurface{Parent: parent.ID, X: x, Y: y})
}

func (s *Surface) SetPosition(x, y int) error {
	return s.conn.Request(s.ID, wire.OpSubsurfacePosition, wire.Position{X: x, Y: y})
}

// Toplevel gives s the toplevel role.
func (s *Surface) Toplevel() (*Toplevel, error) {
	id := s.conn.NewID()
	if err := s.conn.Request(s.ID, wire.OpGetToplevel, wire.GetToplevel{ID: id}); err != nil {
		return nil, err
	}
	return &Toplevel{conn: s.conn, ID: id}, nil
}

// Popup gives s the popup role relative to parent.
func (s *Surface) Popup(parent *Surface, pos wire.Positioner) (*Popup, error) {
	id := s.conn.NewID()
	if err := s.conn.Request(s.ID, wire.OpGetPopup, wire.GetPopup{ID: id, Parent: parent.ID, Positioner: pos}); err != nil {
		return nil, err
	}
	return &Popup{conn: s.conn, ID: id}, nil
}

// Toplevel is a client-side toplevel role handle.
type Toplevel struct {
	conn *Conn
	ID   uint32
}

func (t *Toplevel) SetTitle(title string) error {
	return t.conn.Request(t.ID, wire.OpToplevelSetTitle, wire.SetTitle{Title: title})
}

func (t *Toplevel) SetAppID(id string) error {
	return t.conn.Request(t.ID, wire.OpToplevelSetAppID, wire.SetAppID{AppID: id})
}

func (t *Toplevel) AckConfigure(serial uint32) error {
	return t.conn.Request(t.ID, wire.OpToplevelAckConfigure, wire.AckConfigure{Serial: serial})
}

func (t *Toplevel) Move(serial uint32) error {
	return t.conn.Request(t.ID, wire.OpToplevelMove, wire.Move{Serial: serial})
}

func (t *Toplevel) Resize(serial, edges uint32) error {
	return t.conn.Request(t.ID, wire.OpToplevelResize, wire.Resize{Serial: serial, Edges: edges})
}

func (t *Toplevel) Destroy() error {
	return t.conn.Request(t.ID, wire.OpToplevelDestroy, wire.Empty{})
}

// Popup is a client-side popup role handle.
type Popup struct {
	conn *Conn
	ID   uint32
}

func (p *Popup) Grab(serial uint32) error {
	return p.conn.Request(p.ID, wire.OpPopupGrab, wire.Grab{Serial: serial})
}

func (p *Popup) Reposition(pos wire.Positioner, token uint32) error {
	return p.conn.Request(p.ID, wire.OpPopupReposition, wire.Reposition{Positioner: pos, Token: token})
}

func (p *Popup) Destroy() error {
	return p.conn.Request(p.ID, wire.OpPopupDestroy, wire.Empty{})
}
