package render

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/platform"
)

func solid(w, h int, c color.RGBA) *compositor.Buffer {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return &compositor.Buffer{Image: img}
}

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	blue  = color.RGBA{B: 0xff, A: 0xff}
	black = color.RGBA{A: 0xff}
)

type memTarget struct {
	img       *image.RGBA
	bindErr   error
	submitErr error
	submitted [][]platform.Rect
}

func (m *memTarget) Bind() (*image.RGBA, error) { return m.img, m.bindErr }
func (m *memTarget) Submit(d []platform.Rect) error {
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, d)
	return nil
}

func TestElementsFlattenParentBelowChildren(t *testing.T) {
	root := compositor.NewSurface(1, 1)
	child := compositor.NewSurface(1, 2)
	hidden := compositor.NewSurface(1, 3)
	require.NoError(t, compositor.AddSubsurface(child, root, platform.Point{X: 2, Y: 3}))
	require.NoError(t, compositor.AddSubsurface(hidden, root, platform.Point{}))

	root.Attach(solid(10, 10, red))
	root.Commit()
	child.Attach(solid(4, 4, blue))
	child.Commit()
	hidden.Attach(solid(4, 4, blue))

	els := ElementsFromSurfaceTree(root, platform.Point{X: 100, Y: 100})
	require.Len(t, els, 2)
	require.Equal(t, root, els[0].Surface)
	require.Equal(t, platform.Point{X: 100, Y: 100}, els[0].Location)
	require.Equal(t, child, els[1].Surface)
	require.Equal(t, platform.Point{X: 102, Y: 103}, els[1].Location)
}

func TestDrawCompositesInOrderAndClipsToDamage(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	r := NewRenderer(black)
	els := []Element{
		{Image: solid(10, 10, red).Image, Location: platform.Point{}},
		{Image: solid(4, 4, blue).Image, Location: platform.Point{X: 8, Y: 8}},
	}
	r.Draw(dst, []platform.Rect{{Width: 11, Height: 11}}, els)

	require.Equal(t, red, dst.RGBAAt(0, 0))
	require.Equal(t, blue, dst.RGBAAt(9, 9))
	require.Equal(t, black, dst.RGBAAt(10, 5))
	// Outside damage nothing is touched.
	require.Equal(t, color.RGBA{}, dst.RGBAAt(11, 11))
}

func TestRenderFrameSubmitsFullDamage(t *testing.T) {
	target := &memTarget{img: image.NewRGBA(image.Rect(0, 0, 30, 20))}
	r := NewRenderer(black)
	frame, err := r.RenderFrame(target, platform.Size{Width: 30, Height: 20}, nil)
	require.NoError(t, err)
	require.Equal(t, [][]platform.Rect{{{Width: 30, Height: 20}}}, target.submitted)
	require.Equal(t, platform.Size{Width: 30, Height: 20}, frame.Size)
}

func TestRenderFrameFailures(t *testing.T) {
	boom := errors.New("boom")
	size := platform.Size{Width: 4, Height: 4}
	r := NewRenderer(black)

	_, err := r.RenderFrame(&memTarget{bindErr: boom}, size, nil)
	require.ErrorIs(t, err, boom)

	target := &memTarget{img: image.NewRGBA(image.Rect(0, 0, 4, 4)), submitErr: boom}
	_, err = r.RenderFrame(target, size, nil)
	require.ErrorIs(t, err, boom)

	_, err = r.RenderFrame(&memTarget{img: image.NewRGBA(image.Rect(0, 0, 2, 2))}, size, nil)
	require.Error(t, err)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#1f2933")
	require.NoError(t, err)
	require.Equal(t, color.RGBA{R: 0x1f, G: 0x29, B: 0x33, A: 0xff}, c)

	c, err = ParseColor("#ff000080")
	require.NoError(t, err)
	require.Equal(t, color.RGBA{R: 0x80, A: 0x80}, c)

	_, err = ParseColor("red")
	require.Error(t, err)
}
