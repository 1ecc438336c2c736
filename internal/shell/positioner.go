package shell

import "github.com/1broseidon/khigy/internal/platform"

// Anchor selects the point on the anchor rectangle a popup attaches to.
// Gravity uses the same values for the direction the popup extends in.
type Anchor uint32

const (
	AnchorNone Anchor = iota
	AnchorTop
	AnchorBottom
	AnchorLeft
	AnchorRight
	AnchorTopLeft
	AnchorBottomLeft
	AnchorTopRight
	AnchorBottomRight
)

// Positioner is a snapshot of popup placement rules.
type Positioner struct {
	Size       platform.Size
	AnchorRect platform.Rect
	Anchor     Anchor
	Gravity    Anchor
	Offset     platform.Point
	Reactive   bool
}

// Geometry returns the popup rectangle relative to the parent surface origin.
// Constraint adjustment is not applied.
func (p Positioner) Geometry() platform.Rect {
	r := p.AnchorRect
	var at platform.Point
	switch p.Anchor {
	case AnchorTop, AnchorTopLeft, AnchorTopRight:
		at.Y = r.Y
	case AnchorBottom, AnchorBottomLeft, AnchorBottomRight:
		at.Y = r.Y + r.Height
	default:
		at.Y = r.Y + r.Height/2
	}
	switch p.Anchor {
	case AnchorLeft, AnchorTopLeft, AnchorBottomLeft:
		at.X = r.X
	case AnchorRight, AnchorTopRight, AnchorBottomRight:
		at.X = r.X + r.Width
	default:
		at.X = r.X + r.Width/2
	}

	loc := at
	switch p.Gravity {
	case AnchorTop, AnchorTopLeft, AnchorTopRight:
		loc.Y -= p.Size.Height
	case AnchorBottom, AnchorBottomLeft, AnchorBottomRight:
	default:
		loc.Y -= p.Size.Height / 2
	}
	switch p.Gravity {
	case AnchorLeft, AnchorTopLeft, AnchorBottomLeft:
		loc.X -= p.Size.Width
	case AnchorRight, AnchorTopRight, AnchorBottomRight:
	default:
		loc.X -= p.Size.Width / 2
	}
	return platform.RectFromLocAndSize(loc.Add(p.Offset), p.Size)
}
