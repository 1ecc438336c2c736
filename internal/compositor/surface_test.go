package compositor

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/1broseidon/khigy/internal/platform"
)

type countingCallback struct {
	calls []uint32
}

func (c *countingCallback) Done(time uint32) {
	c.calls = append(c.calls, time)
}

func testBuffer(w, h int) *Buffer {
	return &Buffer{Image: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func TestCommitMovesPendingFrameCallbacks(t *testing.T) {
	s := NewSurface(1, 10)
	cb := &countingCallback{}
	s.Frame(cb)
	require.Equal(t, 0, s.QueuedFrameCallbacks())

	s.Commit()
	require.Equal(t, 1, s.QueuedFrameCallbacks())
	require.True(t, s.Committed())
	require.Empty(t, cb.calls)
}

func TestSendFramesDrainsAllWithOneTimestamp(t *testing.T) {
	s := NewSurface(1, 10)
	s.Attach(testBuffer(4, 4))
	cbs := make([]*countingCallback, 5)
	for i := range cbs {
		cbs[i] = &countingCallback{}
		s.Frame(cbs[i])
	}
	s.Commit()

	SendFramesSurfaceTree(s, 1234)

	for _, cb := range cbs {
		require.Equal(t, []uint32{1234}, cb.calls)
	}
	require.Zero(t, s.QueuedFrameCallbacks())

	// A second frame must not fire the same listeners again.
	SendFramesSurfaceTree(s, 1250)
	for _, cb := range cbs {
		require.Len(t, cb.calls, 1)
	}
}

func TestSendFramesEmptyQueueIsNoop(t *testing.T) {
	s := NewSurface(1, 10)
	s.Commit()
	require.NotPanics(t, func() { SendFramesSurfaceTree(s, 1) })
	require.Zero(t, s.QueuedFrameCallbacks())
}

func TestSendFramesSkipsUncommittedSubtree(t *testing.T) {
	root := NewSurface(1, 1)
	child := NewSurface(1, 2)
	grandchild := NewSurface(1, 3)
	require.NoError(t, AddSubsurface(child, root, platform.Point{}))
	require.NoError(t, AddSubsurface(grandchild, child, platform.Point{}))

	gcb := &countingCallback{}
	grandchild.Frame(gcb)
	grandchild.Commit()
	root.Commit()

	SendFramesSurfaceTree(root, 7)
	require.Empty(t, gcb.calls, "subtree under an uncommitted subsurface is skipped")

	child.Commit()
	SendFramesSurfaceTree(root, 8)
	require.Equal(t, []uint32{8}, gcb.calls)
}

func TestTraversalIsPreorderInStackingOrder(t *testing.T) {
	root := NewSurface(1, 1)
	a := NewSurface(1, 2)
	b := NewSurface(1, 3)
	a1 := NewSurface(1, 4)
	require.NoError(t, AddSubsurface(a, root, platform.Point{X: 1}))
	require.NoError(t, AddSubsurface(b, root, platform.Point{X: 2}))
	require.NoError(t, AddSubsurface(a1, a, platform.Point{X: 10}))

	var order []uint32
	var offsets []int
	WithSurfaceTreeDownward(root, platform.Point{}, func(s *Surface, loc platform.Point) (TraversalAction, platform.Point) {
		loc = loc.Add(s.Position())
		order = append(order, s.ID())
		offsets = append(offsets, loc.X)
		return DoChildren, loc
	})
	require.Equal(t, []uint32{1, 2, 4, 3}, order)
	require.Equal(t, []int{0, 1, 11, 2}, offsets)
}

func TestTraversalBreakStopsWalk(t *testing.T) {
	root := NewSurface(1, 1)
	for i := uint32(2); i < 6; i++ {
		require.NoError(t, AddSubsurface(NewSurface(1, i), root, platform.Point{}))
	}
	visited := 0
	WithSurfaceTreeDownward(root, 0, func(s *Surface, _ int) (TraversalAction, int) {
		visited++
		if s.ID() == 3 {
			return Break, 0
		}
		return DoChildren, 0
	})
	require.Equal(t, 3, visited)
}

func TestDeepTreeDoesNotRecurse(t *testing.T) {
	root := NewSurface(1, 1)
	parent := root
	for i := uint32(2); i < 100000; i++ {
		child := NewSurface(1, i)
		require.NoError(t, AddSubsurface(child, parent, platform.Point{}))
		parent = child
	}
	count := 0
	WithSurfaceTreeDownward(root, struct{}{}, func(*Surface, struct{}) (TraversalAction, struct{}) {
		count++
		return DoChildren, struct{}{}
	})
	require.Equal(t, 99999, count)
}

func TestAddSubsurfaceRejectsCycles(t *testing.T) {
	a := NewSurface(1, 1)
	b := NewSurface(1, 2)
	require.NoError(t, AddSubsurface(b, a, platform.Point{}))
	require.ErrorIs(t, AddSubsurface(a, b, platform.Point{}), ErrBadSubsurface)
	require.ErrorIs(t, AddSubsurface(a, a, platform.Point{}), ErrBadSubsurface)
}

func TestSetRoleIsSticky(t *testing.T) {
	s := NewSurface(1, 1)
	require.NoError(t, s.SetRole("xdg_toplevel"))
	require.NoError(t, s.SetRole("xdg_toplevel"))
	require.ErrorIs(t, s.SetRole("xdg_popup"), ErrRoleAssigned)
}

func TestDestroyDropsListenersAndRunsHooks(t *testing.T) {
	root := NewSurface(1, 1)
	child := NewSurface(1, 2)
	require.NoError(t, AddSubsurface(child, root, platform.Point{}))

	cb := &countingCallback{}
	root.Frame(cb)
	root.Commit()

	destroyed := 0
	root.OnDestroy(func(*Surface) { destroyed++ })
	root.Destroy()
	root.Destroy()

	require.Equal(t, 1, destroyed)
	require.Nil(t, child.Parent())
	require.False(t, root.Alive())
	require.Empty(t, cb.calls)
}
