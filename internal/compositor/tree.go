package compositor

// TraversalAction is a visitor's decision at one node of a surface tree.
type TraversalAction int

const (
	// DoChildren continues into the node's children.
	DoChildren TraversalAction = iota
	// SkipChildren leaves the node's subtree unvisited.
	SkipChildren
	// Break ends the whole traversal.
	Break
)

type treeFrame[T any] struct {
	surface *Surface
	data    T
}

// WithSurfaceTreeDownward visits root and its subsurfaces in pre-order,
// children in stacking order. The value returned alongside DoChildren is
// handed to each child's visit. The walk uses an explicit stack because tree
// depth is client controlled.
func WithSurfaceTreeDownward[T any](root *Surface, initial T, visit func(s *Surface, data T) (TraversalAction, T)) {
	if root == nil {
		return
	}
	stack := []treeFrame[T]{{surface: root, data: initial}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.surface.destroyed {
			continue
		}

		action, data := visit(top.surface, top.data)
		switch action {
		case Break:
			return
		case SkipChildren:
			continue
		}

		children := top.surface.children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, treeFrame[T]{surface: children[i], data: data})
		}
	}
}

// SendFramesSurfaceTree drains and fires the frame-done listeners of root and
// every committed descendant with one shared timestamp. Subsurfaces that have
// never been committed carry no state yet; their subtree is skipped.
func SendFramesSurfaceTree(root *Surface, time uint32) {
	WithSurfaceTreeDownward(root, struct{}{}, func(s *Surface, _ struct{}) (TraversalAction, struct{}) {
		if !s.committed {
			return SkipChildren, struct{}{}
		}
		for _, cb := range s.TakeFrameCallbacks() {
			cb.Done(time)
		}
		return DoChildren, struct{}{}
	})
}
