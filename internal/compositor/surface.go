// Package compositor holds the client surface model: double-buffered surface
// state, frame-done listeners and the subsurface tree.
package compositor

import (
	"errors"
	"fmt"
	"image"

	"github.com/1broseidon/khigy/internal/platform"
)

// ClientID identifies a connected client.
type ClientID uint32

// FrameCallback is a client-requested "frame done" listener.
type FrameCallback interface {
	Done(time uint32)
}

// Buffer is committed pixel content. Image is premultiplied RGBA.
type Buffer struct {
	Image *image.RGBA
}

// Size returns the buffer dimensions.
func (b *Buffer) Size() platform.Size {
	if b == nil || b.Image == nil {
		return platform.Size{}
	}
	r := b.Image.Bounds()
	return platform.Size{Width: r.Dx(), Height: r.Dy()}
}

// Attributes is the committed state of a surface.
type Attributes struct {
	Buffer         *Buffer
	Damage         []platform.Rect
	FrameCallbacks []FrameCallback
}

type pendingState struct {
	buffer         *Buffer
	bufferAttached bool
	damage         []platform.Rect
	frameCallbacks []FrameCallback
}

var (
	ErrRoleAssigned  = errors.New("surface already has a role")
	ErrSurfaceGone   = errors.New("surface destroyed")
	ErrBadSubsurface = errors.New("invalid subsurface parent")
)

// Surface is a client surface. It is only touched from the event loop
// goroutine.
type Surface struct {
	id     uint32
	client ClientID

	pending   pendingState
	current   Attributes
	committed bool

	parent   *Surface
	children []*Surface
	position platform.Point

	role      string
	destroyed bool

	commitHooks  []func(*Surface)
	destroyHooks []func(*Surface)
}

// NewSurface creates a surface with object id id owned by client.
func NewSurface(client ClientID, id uint32) *Surface {
	return &Surface{id: id, client: client}
}

func (s *Surface) ID() uint32                { return s.id }
func (s *Surface) Client() ClientID          { return s.client }
func (s *Surface) Role() string              { return s.role }
func (s *Surface) Alive() bool               { return !s.destroyed }
func (s *Surface) Committed() bool           { return s.committed }
func (s *Surface) Parent() *Surface          { return s.parent }
func (s *Surface) Position() platform.Point  { return s.position }
func (s *Surface) Current() *Attributes      { return &s.current }
func (s *Surface) Children() []*Surface      { return s.children }
func (s *Surface) HasBuffer() bool           { return s.current.Buffer != nil }
func (s *Surface) QueuedFrameCallbacks() int { return len(s.current.FrameCallbacks) }

func (s *Surface) String() string {
	return fmt.Sprintf("surface@%d/%d", s.client, s.id)
}

// SetRole assigns a role name. A surface keeps its first role for life.
func (s *Surface) SetRole(role string) error {
	if s.destroyed {
		return ErrSurfaceGone
	}
	if s.role != "" && s.role != role {
		return fmt.Errorf("%w: %s has %q", ErrRoleAssigned, s, s.role)
	}
	s.role = role
	return nil
}

// Attach sets the pending buffer. A nil buffer detaches on the next commit.
func (s *Surface) Attach(buf *Buffer) {
	s.pending.buffer = buf
	s.pending.bufferAttached = true
}

// Damage adds a pending damage rectangle in surface coordinates.
func (s *Surface) Damage(r platform.Rect) {
	s.pending.damage = append(s.pending.damage, r)
}

// Frame queues a pending frame-done listener.
func (s *Surface) Frame(cb FrameCallback) {
	s.pending.frameCallbacks = append(s.pending.frameCallbacks, cb)
}

// Commit applies pending state and runs commit hooks.
func (s *Surface) Commit() {
	if s.destroyed {
		return
	}
	if s.pending.bufferAttached {
		s.current.Buffer = s.pending.buffer
	}
	s.current.Damage = s.pending.damage
	s.current.FrameCallbacks = append(s.current.FrameCallbacks, s.pending.frameCallbacks...)
	s.pending = pendingState{}
	s.committed = true

	for _, hook := range s.commitHooks {
		hook(s)
	}
}

// TakeFrameCallbacks drains the current frame-done queue and hands ownership
// of the listeners to the caller.
func (s *Surface) TakeFrameCallbacks() []FrameCallback {
	cbs := s.current.FrameCallbacks
	s.current.FrameCallbacks = nil
	return cbs
}

// OnCommit registers a hook that runs after every commit.
func (s *Surface) OnCommit(fn func(*Surface)) {
	s.commitHooks = append(s.commitHooks, fn)
}

// OnDestroy registers a hook that runs once when the surface is destroyed.
func (s *Surface) OnDestroy(fn func(*Surface)) {
	s.destroyHooks = append(s.destroyHooks, fn)
}

// Destroy detaches the surface from its tree, drops its listeners without
// invoking them, and runs destroy hooks.
func (s *Surface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	if s.parent != nil {
		s.parent.removeChild(s)
		s.parent = nil
	}
	for _, c := range s.children {
		c.parent = nil
	}
	s.children = nil
	s.pending = pendingState{}
	s.current = Attributes{}

	hooks := s.destroyHooks
	s.destroyHooks = nil
	s.commitHooks = nil
	for _, hook := range hooks {
		hook(s)
	}
}

// AddSubsurface makes child a subsurface of parent stacked above its existing
// children.
func AddSubsurface(child, parent *Surface, position platform.Point) error {
	if child == nil || parent == nil || child.destroyed || parent.destroyed {
		return ErrSurfaceGone
	}
	if child == parent || child.parent != nil {
		return ErrBadSubsurface
	}
	for p := parent; p != nil; p = p.parent {
		if p == child {
			return fmt.Errorf("%w: %s is an ancestor of %s", ErrBadSubsurface, child, parent)
		}
	}
	if err := child.SetRole("subsurface"); err != nil {
		return err
	}
	child.parent = parent
	child.position = position
	parent.children = append(parent.children, child)
	return nil
}

// SetPosition moves a subsurface relative to its parent.
func (s *Surface) SetPosition(p platform.Point) {
	s.position = p
}

// Root walks parent links up to the tree root.
func (s *Surface) Root() *Surface {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (s *Surface) removeChild(c *Surface) {
	for i, child := range s.children {
		if child == c {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}
