package khigy

import (
	"errors"
	"image"
	"io"

	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/datadevice"
	"github.com/1broseidon/khigy/internal/display"
	"github.com/1broseidon/khigy/internal/platform"
	"github.com/1broseidon/khigy/internal/seat"
	"github.com/1broseidon/khigy/internal/shell"
	"github.com/1broseidon/khigy/internal/wire"
)

const roleCursor = "cursor"

// frameCallback answers a surface.frame request with callback.done on the
// callback object the client allocated.
type frameCallback struct {
	client *display.Client
	id     uint32
}

func (f frameCallback) Done(time uint32) {
	_ = f.client.Send(f.id, wire.EvCallbackDone, wire.CallbackDone{Data: time})
}

// DispatchClient handles every request c has queued. A protocol error
// disconnects c with an error event; a read error disconnects it after the
// requests that preceded it.
func (s *State) DispatchClient(c *display.Client) {
	if c.Closed() {
		return
	}
	msgs, readErr := c.Take()
	for _, msg := range msgs {
		err := s.handleRequest(c, msg)
		if err == nil {
			continue
		}
		var perr *ProtocolError
		if errors.As(err, &perr) {
			s.display.PostError(c, perr.Object, perr.Code, perr.Message)
		} else {
			s.display.Disconnect(c, err)
		}
		return
	}

	switch {
	case readErr == nil:
	case errors.Is(readErr, io.EOF):
		s.display.Disconnect(c, readErr)
	default:
		s.display.PostError(c, wire.DisplayObject, CodeInvalidMessage, readErr.Error())
	}
}

// clientGone releases everything a disconnected client owned.
func (s *State) clientGone(c *display.Client) {
	for _, id := range c.ObjectIDs() {
		obj, _ := c.Object(id)
		switch obj := obj.(type) {
		case *compositor.Surface:
			obj.Destroy()
		case *shell.Toplevel:
			obj.Destroy()
		case *shell.Popup:
			obj.Destroy()
		}
		c.RemoveObject(id)
	}
	s.data.ClientGone(c.ID())
}

func (s *State) handleRequest(c *display.Client, msg wire.Message) error {
	if msg.Object == wire.DisplayObject {
		return s.displayRequest(c, msg)
	}
	obj, ok := c.Object(msg.Object)
	if !ok {
		return protocolErrorf(msg.Object, CodeInvalidObject, "unknown object for %s", msg.Opcode)
	}
	switch obj := obj.(type) {
	case *compositor.Surface:
		return s.surfaceRequest(c, obj, msg)
	case *shell.Toplevel:
		return s.toplevelRequest(c, obj, msg)
	case *shell.Popup:
		return s.popupRequest(c, obj, msg)
	case *datadevice.Source:
		return s.sourceRequest(c, obj, msg)
	default:
		return protocolErrorf(msg.Object, CodeInvalidObject, "object cannot receive requests")
	}
}

func decode(msg wire.Message, v any) error {
	if err := msg.Decode(v); err != nil {
		return protocolErrorf(msg.Object, CodeInvalidMessage, "%v", err)
	}
	return nil
}

func invalidMethod(msg wire.Message) error {
	return protocolErrorf(msg.Object, CodeInvalidMethod, "%s not valid on this object", msg.Opcode)
}

func (s *State) displayRequest(c *display.Client, msg wire.Message) error {
	switch msg.Opcode {
	case wire.OpSync:
		var req wire.Sync
		if err := decode(msg, &req); err != nil {
			return err
		}
		return c.Send(req.Callback, wire.EvCallbackDone, wire.CallbackDone{Data: s.seat.NextSerial()})

	case wire.OpCreateSurface:
		var req wire.CreateSurface
		if err := decode(msg, &req); err != nil {
			return err
		}
		surf := compositor.NewSurface(c.ID(), req.ID)
		if err := c.AddObject(req.ID, surf); err != nil {
			return protocolErrorf(req.ID, CodeInvalidObject, "%v", err)
		}
		surf.OnDestroy(s.seat.SurfaceDestroyed)
		return nil

	case wire.OpSetCursor:
		var req wire.SetCursor
		if err := decode(msg, &req); err != nil {
			return err
		}
		img := seat.CursorImage{
			Hidden:  req.Hidden,
			Named:   req.Name,
			Hotspot: platform.Point{X: req.HotspotX, Y: req.HotspotY},
		}
		if req.Surface != 0 {
			surf, err := lookupSurface(c, req.Surface)
			if err != nil {
				return err
			}
			if err := surf.SetRole(roleCursor); err != nil {
				return protocolErrorf(req.Surface, CodeRole, "%v", err)
			}
			img.Surface = surf
		}
		s.seat.SetCursorImage(img)
		return nil

	case wire.OpCreateDataSource:
		var req wire.CreateDataSource
		if err := decode(msg, &req); err != nil {
			return err
		}
		src := &datadevice.Source{ID: req.ID, Client: c.ID(), MimeTypes: req.MimeTypes}
		if err := c.AddObject(req.ID, src); err != nil {
			return protocolErrorf(req.ID, CodeInvalidObject, "%v", err)
		}
		return nil

	case wire.OpSetSelection:
		var req wire.SetSelection
		if err := decode(msg, &req); err != nil {
			return err
		}
		var src *datadevice.Source
		if req.Source != 0 {
			var err error
			if src, err = lookupSource(c, req.Source); err != nil {
				return err
			}
		}
		if err := s.data.SetSelection(c.ID(), src); err != nil {
			c.Logger().Debug("selection refused", "error", err)
		}
		return nil

	case wire.OpStartDrag:
		var req wire.StartDrag
		if err := decode(msg, &req); err != nil {
			return err
		}
		var src *datadevice.Source
		if req.Source != 0 {
			var err error
			if src, err = lookupSource(c, req.Source); err != nil {
				return err
			}
		}
		origin, err := lookupSurface(c, req.Origin)
		if err != nil {
			return err
		}
		if err := s.data.StartDrag(c.ID(), src, origin, s.seat.PointerFocus()); err != nil {
			c.Logger().Debug("drag refused", "error", err)
		}
		return nil

	case wire.OpReceive:
		var req wire.Receive
		if err := decode(msg, &req); err != nil {
			return err
		}
		if _, err := s.data.Receive(c.ID(), req.MimeType); err != nil {
			c.Logger().Debug("receive refused", "mime", req.MimeType, "error", err)
		}
		return nil

	default:
		return invalidMethod(msg)
	}
}

func (s *State) surfaceRequest(c *display.Client, surf *compositor.Surface, msg wire.Message) error {
	switch msg.Opcode {
	case wire.OpSurfaceDestroy:
		c.RemoveObject(msg.Object)
		surf.Destroy()
		return nil

	case wire.OpSurfaceAttach:
		var req wire.Attach
		if err := decode(msg, &req); err != nil {
			return err
		}
		if req.Buffer == nil {
			surf.Attach(nil)
			return nil
		}
		img, err := bufferImage(msg.Object, req.Buffer)
		if err != nil {
			return err
		}
		surf.Attach(&compositor.Buffer{Image: img})
		return nil

	case wire.OpSurfaceDamage:
		var req wire.Damage
		if err := decode(msg, &req); err != nil {
			return err
		}
		surf.Damage(platform.Rect{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height})
		return nil

	case wire.OpSurfaceFrame:
		var req wire.Frame
		if err := decode(msg, &req); err != nil {
			return err
		}
		surf.Frame(frameCallback{client: c, id: req.Callback})
		return nil

	case wire.OpSurfaceCommit:
		surf.Commit()
		return nil

	case wire.OpSubsurface:
		var req wire.Subsurface
		if err := decode(msg, &req); err != nil {
			return err
		}
		parent, err := lookupSurface(c, req.Parent)
		if err != nil {
			return err
		}
		if err := compositor.AddSubsurface(surf, parent, platform.Point{X: req.X, Y: req.Y}); err != nil {
			if errors.Is(err, compositor.ErrRoleAssigned) {
				return protocolErrorf(msg.Object, CodeRole, "%v", err)
			}
			return protocolErrorf(msg.Object, CodeInvalidParent, "%v", err)
		}
		return nil

	case wire.OpSubsurfacePosition:
		var req wire.Position
		if err := decode(msg, &req); err != nil {
			return err
		}
		if surf.Parent() == nil {
			return protocolErrorf(msg.Object, CodeRole, "%s is not a subsurface", surf)
		}
		surf.SetPosition(platform.Point{X: req.X, Y: req.Y})
		return nil

	case wire.OpGetToplevel:
		var req wire.GetToplevel
		if err := decode(msg, &req); err != nil {
			return err
		}
		t, err := s.shell.NewToplevel(surf)
		if err != nil {
			return protocolErrorf(msg.Object, CodeRole, "%v", err)
		}
		if err := c.AddObject(req.ID, t); err != nil {
			return protocolErrorf(req.ID, CodeInvalidObject, "%v", err)
		}
		s.toplevelRefs[surf] = objectRef{client: c.ID(), id: req.ID}
		return nil

	case wire.OpGetPopup:
		var req wire.GetPopup
		if err := decode(msg, &req); err != nil {
			return err
		}
		// An unknown parent id is left nil so the shell reports it.
		var parent *compositor.Surface
		if obj, ok := c.Object(req.Parent); ok {
			parent, _ = obj.(*compositor.Surface)
		}
		p, err := s.shell.NewPopup(surf, parent, positioner(req.Positioner))
		switch {
		case errors.Is(err, shell.ErrUnknownParent):
			return protocolErrorf(msg.Object, CodeInvalidParent, "%v", err)
		case err != nil:
			return protocolErrorf(msg.Object, CodeRole, "%v", err)
		}
		if err := c.AddObject(req.ID, p); err != nil {
			return protocolErrorf(req.ID, CodeInvalidObject, "%v", err)
		}
		return nil

	default:
		return invalidMethod(msg)
	}
}

func (s *State) toplevelRequest(c *display.Client, t *shell.Toplevel, msg wire.Message) error {
	var err error
	switch msg.Opcode {
	case wire.OpToplevelDestroy:
		c.RemoveObject(msg.Object)
		t.Destroy()

	case wire.OpToplevelSetTitle:
		var req wire.SetTitle
		if err := decode(msg, &req); err != nil {
			return err
		}
		t.SetTitle(req.Title)

	case wire.OpToplevelSetAppID:
		var req wire.SetAppID
		if err := decode(msg, &req); err != nil {
			return err
		}
		t.SetAppID(req.AppID)

	case wire.OpToplevelAckConfigure:
		var req wire.AckConfigure
		if err := decode(msg, &req); err != nil {
			return err
		}
		t.AckConfigure(req.Serial)

	case wire.OpToplevelMove:
		var req wire.Move
		if err := decode(msg, &req); err != nil {
			return err
		}
		err = t.Move(s.seat.Name(), req.Serial)

	case wire.OpToplevelResize:
		var req wire.Resize
		if err := decode(msg, &req); err != nil {
			return err
		}
		err = t.Resize(s.seat.Name(), req.Serial, shell.ResizeEdge(req.Edges))

	default:
		return invalidMethod(msg)
	}
	if err != nil {
		c.Logger().Debug("request on closed toplevel ignored", "request", msg.Opcode)
	}
	return nil
}

func (s *State) popupRequest(c *display.Client, p *shell.Popup, msg wire.Message) error {
	var err error
	switch msg.Opcode {
	case wire.OpPopupDestroy:
		c.RemoveObject(msg.Object)
		p.Destroy()

	case wire.OpPopupGrab:
		var req wire.Grab
		if err := decode(msg, &req); err != nil {
			return err
		}
		err = p.Grab(s.seat.Name(), req.Serial)

	case wire.OpPopupReposition:
		var req wire.Reposition
		if err := decode(msg, &req); err != nil {
			return err
		}
		err = p.Reposition(positioner(req.Positioner), req.Token)

	default:
		return invalidMethod(msg)
	}
	if err != nil {
		c.Logger().Debug("request on closed popup ignored", "request", msg.Opcode)
	}
	return nil
}

func (s *State) sourceRequest(c *display.Client, src *datadevice.Source, msg wire.Message) error {
	switch msg.Opcode {
	case wire.OpDataSourceDestroy:
		c.RemoveObject(msg.Object)
		return nil

	case wire.OpSourceData:
		var req wire.SourceData
		if err := decode(msg, &req); err != nil {
			return err
		}
		if !s.data.SourceData(c.ID(), req.Transfer, req.Data) {
			c.Logger().Debug("transfer data dropped", "transfer", req.Transfer, "source", src.ID)
		}
		return nil

	default:
		return invalidMethod(msg)
	}
}

func lookupSurface(c *display.Client, id uint32) (*compositor.Surface, error) {
	obj, ok := c.Object(id)
	if !ok {
		return nil, protocolErrorf(id, CodeInvalidObject, "unknown surface")
	}
	surf, ok := obj.(*compositor.Surface)
	if !ok {
		return nil, protocolErrorf(id, CodeInvalidObject, "object is not a surface")
	}
	return surf, nil
}

func lookupSource(c *display.Client, id uint32) (*datadevice.Source, error) {
	obj, ok := c.Object(id)
	if !ok {
		return nil, protocolErrorf(id, CodeInvalidObject, "unknown data source")
	}
	src, ok := obj.(*datadevice.Source)
	if !ok {
		return nil, protocolErrorf(id, CodeInvalidObject, "object is not a data source")
	}
	return src, nil
}

// maxBufferSide bounds either buffer dimension, so the byte size below is
// computed without overflow.
const maxBufferSide = 1 << 15

// bufferImage wraps wire pixels, which are tightly packed premultiplied RGBA.
func bufferImage(object uint32, b *wire.Buffer) (*image.RGBA, error) {
	if b.Width <= 0 || b.Height <= 0 || b.Width > maxBufferSide || b.Height > maxBufferSide {
		return nil, protocolErrorf(object, CodeInvalidBuffer, "buffer size %dx%d", b.Width, b.Height)
	}
	want := int64(b.Width) * int64(b.Height) * 4
	if want > wire.MaxBodySize {
		return nil, protocolErrorf(object, CodeInvalidBuffer, "buffer of %d bytes exceeds %d", want, wire.MaxBodySize)
	}
	if int64(len(b.Pixels)) != want {
		return nil, protocolErrorf(object, CodeInvalidBuffer, "buffer has %d bytes, want %d", len(b.Pixels), want)
	}
	return &image.RGBA{
		Pix:    b.Pixels,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}, nil
}

func positioner(p wire.Positioner) shell.Positioner {
	return shell.Positioner{
		Size:       platform.Size{Width: p.Width, Height: p.Height},
		AnchorRect: platform.Rect{X: p.AnchorX, Y: p.AnchorY, Width: p.AnchorWidth, Height: p.AnchorHeight},
		Anchor:     shell.Anchor(p.Anchor),
		Gravity:    shell.Anchor(p.Gravity),
		Offset:     platform.Point{X: p.OffsetX, Y: p.OffsetY},
		Reactive:   p.Reactive,
	}
}
