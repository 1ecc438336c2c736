package mcp

import "github.com/1broseidon/khigy/internal/khigy"

// StatusInput is the input for the compositor_status tool.
type StatusInput struct{}

// StatusOutput is the output for the compositor_status tool.
type StatusOutput struct {
	Status khigy.Status `json:"status"`
}

// ListToplevelsInput is the input for the list_toplevels tool.
type ListToplevelsInput struct {
	AppID string `json:"app_id,omitempty" jsonschema:"Only list toplevels whose app_id matches exactly"`
}

// ListToplevelsOutput is the output for the list_toplevels tool.
type ListToplevelsOutput struct {
	Toplevels []khigy.ToplevelInfo `json:"toplevels"`
	Focused   *uint32              `json:"focused_surface,omitempty"`
}

// QuitInput is the input for the quit_compositor tool.
type QuitInput struct {
	Confirm bool `json:"confirm" jsonschema:"required,Must be true; guards against accidental shutdown"`
}
