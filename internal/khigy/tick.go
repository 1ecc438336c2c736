package khigy

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/1broseidon/khigy/internal/backend"
	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/hotkeys"
	"github.com/1broseidon/khigy/internal/input"
	"github.com/1broseidon/khigy/internal/loop"
	"github.com/1broseidon/khigy/internal/platform"
	"github.com/1broseidon/khigy/internal/render"
	"github.com/1broseidon/khigy/internal/shell"
	"github.com/1broseidon/khigy/internal/tiling"
)

// Tick is the recurring render timer: poll the backend, present one frame of
// the mapped surfaces, then fire the frame callbacks of everything drawn. Any
// backend failure stops the loop and drops the timer.
func Tick(now time.Time, data *LoopData) loop.TimeoutAction {
	s := data.State

	target, err := backend.Poll(data.Backend, s.handleBackendEvent)
	if errors.Is(err, backend.ErrWindowClosed) {
		s.logger.Info("backend window closed, stopping")
		s.Stop()
		return loop.Drop
	}
	if err != nil {
		s.logger.Error("backend poll failed", "error", err)
		s.Stop()
		return loop.Drop
	}
	// A quit binding fired during the poll.
	if s.signal.Stopped() {
		return loop.Drop
	}

	roots := s.scene()
	if err := s.present(target, roots); err != nil {
		s.logger.Error("render failed", "error", err)
		s.Stop()
		return loop.Drop
	}

	stamp := s.FrameTime(now)
	for _, r := range roots {
		compositor.SendFramesSurfaceTree(r.surface, stamp)
	}
	return loop.ToDuration(s.interval)
}

func (s *State) present(target backend.Target, roots []placed) error {
	mode, ok := s.output.CurrentMode()
	if !ok {
		return fmt.Errorf("output %s has no mode", s.output.Name())
	}
	frame, err := s.renderer.RenderFrame(target, mode.Size, s.elements(roots))
	if err != nil {
		return err
	}
	s.frames++
	s.lastFrame = frame
	return nil
}

func (s *State) handleBackendEvent(ev backend.Event) {
	switch ev := ev.(type) {
	case backend.Resized:
		mode, _ := s.output.CurrentMode()
		mode.Size = ev.Size
		s.output.ChangeCurrentState(&mode, nil, nil, nil)
		s.logger.Debug("output resized", "size", ev.Size)
	case backend.Input:
		s.handleInput(ev.Event)
	}
}

func (s *State) handleInput(ev input.Event) {
	if key, ok := ev.(input.KeyboardKey); ok {
		if action, hit := s.hotkeys.Filter(key); hit {
			// Releases of consumed presses carry no action.
			if action != "" {
				s.runAction(action)
			}
			return
		}
	}
	s.seat.ProcessInput(ev, s)

	if btn, ok := ev.(input.PointerButton); ok && btn.State == input.ButtonReleased {
		if s.data.Dragging() && !s.seat.ButtonsHeld() {
			s.data.Drop()
		}
	}
}

func (s *State) runAction(action hotkeys.Action) {
	s.logger.Debug("binding triggered", "action", action)
	switch action {
	case hotkeys.ActionQuit:
		s.logger.Info("quit requested from keyboard")
		s.Stop()
	case hotkeys.ActionFocusNext:
		s.cycleFocus(1)
	case hotkeys.ActionFocusPrev:
		s.cycleFocus(-1)
	}
}

// cycleFocus moves keyboard focus dir steps through the mapped toplevels in
// creation order.
func (s *State) cycleFocus(dir int) {
	mapped := s.shell.Mapped()
	if len(mapped) == 0 {
		return
	}
	next := 0
	if dir < 0 {
		next = len(mapped) - 1
	}
	if focus := s.seat.KeyboardFocus(); focus != nil {
		root := focus.Root()
		if i := slices.IndexFunc(mapped, func(t *shell.Toplevel) bool { return t.Surface() == root }); i >= 0 {
			next = (i + dir + len(mapped)) % len(mapped)
		}
	}
	s.seat.SetKeyboardFocus(mapped[next].Surface())
}

// placed is a root surface with its output position.
type placed struct {
	surface *compositor.Surface
	loc     platform.Point
}

// scene returns the mapped roots bottom to top: toplevels in creation order,
// then popups above them.
func (s *State) scene() []placed {
	mapped := s.shell.Mapped()
	area := s.output.Geometry()

	slots, err := tiling.Placements(s.placement, len(mapped), area, s.gap)
	if err != nil {
		s.logger.Debug("placement failed, stacking at origin", "mode", s.placement, "error", err)
		slots = nil
	}

	out := make([]placed, 0, len(mapped))
	at := make(map[*compositor.Surface]platform.Point, len(mapped))
	for i, t := range mapped {
		loc := area.Loc()
		if i < len(slots) {
			loc = slots[i].Loc()
		}
		out = append(out, placed{surface: t.Surface(), loc: loc})
		at[t.Surface()] = loc
	}

	for _, p := range s.shell.MappedPopups() {
		parentLoc, ok := at[p.Parent()]
		if !ok {
			continue
		}
		loc := parentLoc.Add(p.Positioner().Geometry().Loc())
		out = append(out, placed{surface: p.Surface(), loc: loc})
		at[p.Surface()] = loc
	}
	return out
}

func (s *State) elements(roots []placed) []render.Element {
	var out []render.Element
	for _, r := range roots {
		out = append(out, render.ElementsFromSurfaceTree(r.surface, r.loc)...)
	}
	return out
}
