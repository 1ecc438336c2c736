// Package hotkeys matches compositor keybindings against translated key
// events before they reach the focused client.
package hotkeys

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/1broseidon/khigy/internal/input"
)

// Action names a compositor command bound to a key.
type Action string

const (
	ActionQuit      Action = "quit"
	ActionFocusNext Action = "focus-next"
	ActionFocusPrev Action = "focus-prev"
)

// ParseAction validates a configured action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionQuit, ActionFocusNext, ActionFocusPrev:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Binding is one parsed key sequence such as "Mod1-Escape".
type Binding struct {
	Mods   input.Modifiers
	Keysym string
}

// ParseSequence parses a key sequence in xbindkeys style: modifiers joined by
// '-' followed by a keysym name. Mod1 is Alt, Mod4 is Logo.
func ParseSequence(seq string) (Binding, error) {
	parts := strings.Split(seq, "-")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Binding{}, fmt.Errorf("key sequence %q has no key", seq)
	}
	var b Binding
	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(mod) {
		case "shift":
			b.Mods.Shift = true
		case "control", "ctrl":
			b.Mods.Ctrl = true
		case "mod1", "alt":
			b.Mods.Alt = true
		case "mod4", "super", "logo":
			b.Mods.Logo = true
		default:
			return Binding{}, fmt.Errorf("key sequence %q: unknown modifier %q", seq, mod)
		}
	}
	b.Keysym = parts[len(parts)-1]
	return b, nil
}

func (b Binding) matches(ev input.KeyboardKey) bool {
	m := ev.Modifiers
	// Lock modifiers never affect a match.
	m.Caps, m.Num = false, false
	return m == b.Mods && strings.EqualFold(ev.Keysym, b.Keysym)
}

type entry struct {
	seq     string
	binding Binding
	action  Action
}

// Handler manages compositor keyboard shortcuts.
type Handler struct {
	entries []entry
	// Keycodes whose press was consumed; their release is consumed too.
	held   []uint32
	logger *slog.Logger
}

// NewHandler creates a handler with no bindings.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger}
}

// Register binds keySequence to action. A later registration of the same
// sequence replaces the earlier one.
func (h *Handler) Register(keySequence string, action Action) error {
	b, err := ParseSequence(keySequence)
	if err != nil {
		return err
	}
	for i := range h.entries {
		if h.entries[i].binding == b {
			h.entries[i] = entry{seq: keySequence, binding: b, action: action}
			return nil
		}
	}
	h.entries = append(h.entries, entry{seq: keySequence, binding: b, action: action})
	return nil
}

// RegisterAll binds every sequence in bindings.
func (h *Handler) RegisterAll(bindings map[string]string) error {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, seq := range keys {
		action, err := ParseAction(bindings[seq])
		if err != nil {
			return fmt.Errorf("binding %q: %w", seq, err)
		}
		if err := h.Register(seq, action); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of bindings.
func (h *Handler) Len() int { return len(h.entries) }

// Filter reports whether ev is consumed by the compositor. On a matching
// press it returns the bound action.
func (h *Handler) Filter(ev input.KeyboardKey) (Action, bool) {
	if ev.State == input.KeyReleased {
		if i := slices.Index(h.held, ev.Keycode); i >= 0 {
			h.held = slices.Delete(h.held, i, i+1)
			return "", true
		}
		return "", false
	}
	for _, e := range h.entries {
		if e.binding.matches(ev) {
			if !slices.Contains(h.held, ev.Keycode) {
				h.held = append(h.held, ev.Keycode)
			}
			h.logger.Debug("hotkey triggered", "sequence", e.seq, "action", e.action)
			return e.action, true
		}
	}
	return "", false
}
