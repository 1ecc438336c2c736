package shell

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/platform"
)

type handler struct {
	created  []*Toplevel
	popups   []*Popup
	mapped   []*Toplevel
	closed   []*Toplevel
	moves    int
	resizes  []ResizeEdge
	grabs    int
	reposted []uint32
}

func (h *handler) NewToplevel(t *Toplevel)         { h.created = append(h.created, t) }
func (h *handler) NewPopup(p *Popup, _ Positioner) { h.popups = append(h.popups, p) }
func (h *handler) ToplevelMapped(t *Toplevel)      { h.mapped = append(h.mapped, t) }
func (h *handler) ToplevelClosed(t *Toplevel)      { h.closed = append(h.closed, t) }
func (h *handler) MoveRequest(*Toplevel, string, uint32) {
	h.moves++
}
func (h *handler) ResizeRequest(_ *Toplevel, _ string, _ uint32, edges ResizeEdge) {
	h.resizes = append(h.resizes, edges)
}
func (h *handler) Grab(*Popup, string, uint32) { h.grabs++ }
func (h *handler) RepositionRequest(_ *Popup, _ Positioner, token uint32) {
	h.reposted = append(h.reposted, token)
}

func buffer() *compositor.Buffer {
	return &compositor.Buffer{Image: image.NewRGBA(image.Rect(0, 0, 8, 8))}
}

func TestToplevelLifecycle(t *testing.T) {
	h := &handler{}
	sh := New(h)
	surf := compositor.NewSurface(1, 1)

	top, err := sh.NewToplevel(surf)
	require.NoError(t, err)
	require.Equal(t, Unconfigured, top.State())
	require.Equal(t, []*Toplevel{top}, h.created)
	require.Empty(t, sh.Mapped())

	// A commit without a buffer does not map.
	surf.Commit()
	require.Equal(t, Unconfigured, top.State())

	surf.Attach(buffer())
	surf.Commit()
	require.Equal(t, Configured, top.State())
	require.Equal(t, []*Toplevel{top}, sh.Mapped())

	surf.Destroy()
	require.Equal(t, Closed, top.State())
	require.Empty(t, sh.Mapped())
	require.Empty(t, sh.Toplevels())
	require.Equal(t, []*Toplevel{top}, h.closed)
}

func TestNullBufferCommitCloses(t *testing.T) {
	sh := New(&handler{})
	surf := compositor.NewSurface(1, 1)
	top, err := sh.NewToplevel(surf)
	require.NoError(t, err)

	surf.Attach(buffer())
	surf.Commit()
	surf.Attach(nil)
	surf.Commit()
	require.Equal(t, Closed, top.State())

	// Closed is terminal.
	surf.Attach(buffer())
	surf.Commit()
	require.Equal(t, Closed, top.State())
}

func TestMappedKeepsCreationOrder(t *testing.T) {
	sh := New(&handler{})
	var tops []*Toplevel
	for i := uint32(1); i <= 3; i++ {
		surf := compositor.NewSurface(1, i)
		top, err := sh.NewToplevel(surf)
		require.NoError(t, err)
		tops = append(tops, top)
	}
	// Map in reverse order; enumeration still follows creation.
	for i := len(tops) - 1; i >= 0; i-- {
		tops[i].Surface().Attach(buffer())
		tops[i].Surface().Commit()
	}
	require.Equal(t, tops, sh.Mapped())
	require.Equal(t, sh.Mapped(), sh.Mapped())

	tops[1].Destroy()
	require.Equal(t, []*Toplevel{tops[0], tops[2]}, sh.Mapped())
}

func TestRoleConflict(t *testing.T) {
	sh := New(&handler{})
	surf := compositor.NewSurface(1, 1)
	_, err := sh.NewToplevel(surf)
	require.NoError(t, err)

	parent := compositor.NewSurface(1, 2)
	_, err = sh.NewPopup(surf, parent, Positioner{})
	require.ErrorIs(t, err, compositor.ErrRoleAssigned)
}

func TestPopupNeedsLiveParent(t *testing.T) {
	sh := New(&handler{})
	parent := compositor.NewSurface(1, 1)
	parent.Destroy()
	_, err := sh.NewPopup(compositor.NewSurface(1, 2), parent, Positioner{})
	require.ErrorIs(t, err, ErrUnknownParent)

	_, err = sh.NewPopup(compositor.NewSurface(1, 3), nil, Positioner{})
	require.ErrorIs(t, err, ErrUnknownParent)
}

func TestPopupClosesWithParent(t *testing.T) {
	sh := New(&handler{})
	parent := compositor.NewSurface(1, 1)
	surf := compositor.NewSurface(1, 2)
	p, err := sh.NewPopup(surf, parent, Positioner{Size: platform.Size{Width: 4, Height: 4}})
	require.NoError(t, err)

	surf.Attach(buffer())
	surf.Commit()
	require.Len(t, sh.MappedPopups(), 1)

	parent.Destroy()
	require.Equal(t, Closed, p.State())
	require.Empty(t, sh.MappedPopups())
}

func TestInteractiveEntryPointsAccept(t *testing.T) {
	h := &handler{}
	sh := New(h)
	top, err := sh.NewToplevel(compositor.NewSurface(1, 1))
	require.NoError(t, err)
	p, err := sh.NewPopup(compositor.NewSurface(1, 2), top.Surface(), Positioner{})
	require.NoError(t, err)

	require.NoError(t, top.Move("seat0", 4))
	require.NoError(t, top.Resize("seat0", 5, EdgeBottomRight))
	require.NoError(t, p.Grab("seat0", 6))
	require.NoError(t, p.Reposition(Positioner{Anchor: AnchorBottom}, 9))

	require.Equal(t, 1, h.moves)
	require.Equal(t, []ResizeEdge{EdgeBottomRight}, h.resizes)
	require.Equal(t, 1, h.grabs)
	require.Equal(t, []uint32{9}, h.reposted)
	require.Equal(t, AnchorBottom, p.Positioner().Anchor)

	top.Destroy()
	require.ErrorIs(t, top.Move("seat0", 7), ErrClosed)
}

func TestPositionerGeometry(t *testing.T) {
	tests := []struct {
		name string
		pos  Positioner
		want platform.Rect
	}{
		{
			name: "centered default",
			pos: Positioner{
				Size:       platform.Size{Width: 10, Height: 10},
				AnchorRect: platform.Rect{X: 0, Y: 0, Width: 20, Height: 20},
			},
			want: platform.Rect{X: 5, Y: 5, Width: 10, Height: 10},
		},
		{
			name: "menu below anchor",
			pos: Positioner{
				Size:       platform.Size{Width: 30, Height: 40},
				AnchorRect: platform.Rect{X: 10, Y: 0, Width: 20, Height: 10},
				Anchor:     AnchorBottomLeft,
				Gravity:    AnchorBottomRight,
				Offset:     platform.Point{X: 1, Y: 2},
			},
			want: platform.Rect{X: 11, Y: 12, Width: 30, Height: 40},
		},
		{
			name: "tooltip above",
			pos: Positioner{
				Size:       platform.Size{Width: 6, Height: 4},
				AnchorRect: platform.Rect{X: 0, Y: 10, Width: 6, Height: 2},
				Anchor:     AnchorTopLeft,
				Gravity:    AnchorTopRight,
			},
			want: platform.Rect{X: 0, Y: 6, Width: 6, Height: 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.pos.Geometry())
		})
	}
}
