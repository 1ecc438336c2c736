// Package render flattens surface trees into positioned elements and draws
// them into a backend target.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/platform"
)

// Element is one surface buffer placed on the output.
type Element struct {
	Surface  *compositor.Surface
	Image    *image.RGBA
	Location platform.Point
}

// Geometry returns the element rectangle in output coordinates.
func (e Element) Geometry() platform.Rect {
	b := e.Image.Bounds()
	return platform.Rect{X: e.Location.X, Y: e.Location.Y, Width: b.Dx(), Height: b.Dy()}
}

// ElementsFromSurfaceTree flattens root and its committed subsurfaces
// depth-first, parents before children, so drawing in slice order puts
// children on top. Surfaces without a buffer contribute no element but
// their children still do.
func ElementsFromSurfaceTree(root *compositor.Surface, location platform.Point) []Element {
	var out []Element
	compositor.WithSurfaceTreeDownward(root, location, func(s *compositor.Surface, parentLoc platform.Point) (compositor.TraversalAction, platform.Point) {
		if !s.Committed() {
			return compositor.SkipChildren, parentLoc
		}
		loc := parentLoc
		if s != root {
			loc = parentLoc.Add(s.Position())
		}
		if buf := s.Current().Buffer; buf != nil && buf.Image != nil {
			out = append(out, Element{Surface: s, Image: buf.Image, Location: loc})
		}
		return compositor.DoChildren, loc
	})
	return out
}

// Target is the render handle of a backend.
type Target interface {
	Bind() (*image.RGBA, error)
	Submit(damage []platform.Rect) error
}

// Renderer is a software renderer over image/draw.
type Renderer struct {
	background color.RGBA
}

// NewRenderer creates a renderer that clears to background.
func NewRenderer(background color.RGBA) *Renderer {
	return &Renderer{background: background}
}

// Draw clears dst inside damage and composites elements back to front,
// clipped to damage.
func (r *Renderer) Draw(dst *image.RGBA, damage []platform.Rect, elements []Element) {
	bg := image.NewUniform(r.background)
	for _, d := range damage {
		clip := d.Image().Intersect(dst.Bounds())
		if clip.Empty() {
			continue
		}
		draw.Draw(dst, clip, bg, image.Point{}, draw.Src)
		for _, e := range elements {
			geo := e.Geometry().Image()
			area := geo.Intersect(clip)
			if area.Empty() {
				continue
			}
			src := e.Image.Bounds().Min.Add(area.Min.Sub(geo.Min))
			draw.Draw(dst, area, e.Image, src, draw.Over)
		}
	}
}

// Frame reports what one presented frame contained.
type Frame struct {
	Size     platform.Size
	Damage   []platform.Rect
	Elements []Element
}

// RenderFrame binds target, draws elements over the whole output and submits.
// Any error means the frame was not presented.
func (r *Renderer) RenderFrame(target Target, size platform.Size, elements []Element) (Frame, error) {
	dst, err := target.Bind()
	if err != nil {
		return Frame{}, fmt.Errorf("bind render target: %w", err)
	}
	b := dst.Bounds()
	if b.Dx() != size.Width || b.Dy() != size.Height {
		return Frame{}, fmt.Errorf("render target is %dx%d, output mode is %s", b.Dx(), b.Dy(), size)
	}

	// The whole output is redrawn every frame.
	damage := []platform.Rect{{Width: size.Width, Height: size.Height}}
	r.Draw(dst, damage, elements)

	if err := target.Submit(damage); err != nil {
		return Frame{}, fmt.Errorf("submit frame: %w", err)
	}
	return Frame{Size: size, Damage: damage, Elements: elements}, nil
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.RGBA, error) {
	var c color.RGBA
	c.A = 0xff
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 9:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		err = fmt.Errorf("want #rrggbb or #rrggbbaa")
	}
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	// color.RGBA is alpha-premultiplied.
	if c.A != 0xff {
		c.R = uint8(uint16(c.R) * uint16(c.A) / 0xff)
		c.G = uint8(uint16(c.G) * uint16(c.A) / 0xff)
		c.B = uint8(uint16(c.B) * uint16(c.A) / 0xff)
	}
	return c, nil
}
