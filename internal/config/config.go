package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/khigy/internal/backend"
	"github.com/1broseidon/khigy/internal/hotkeys"
	"github.com/1broseidon/khigy/internal/render"
	"github.com/1broseidon/khigy/internal/tiling"
	"github.com/1broseidon/khigy/internal/wire"
)

// WindowConfig sizes the X11 preview window of the windowed backend.
type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// OffscreenConfig configures the in-memory backend.
type OffscreenConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// CaptureDir receives PNG snapshots when set.
	CaptureDir string `yaml:"capture_dir,omitempty"`
	// CaptureEvery saves every Nth frame (default: 1)
	CaptureEvery int `yaml:"capture_every,omitempty"`
}

// PlacementConfig selects where mapped toplevels sit.
type PlacementConfig struct {
	Mode string `yaml:"mode"` // stack, grid or cascade
	Gap  int    `yaml:"gap"`
}

// KeyboardConfig is advertised to clients with the seat.
type KeyboardConfig struct {
	RepeatRate  int `yaml:"repeat_rate"`  // Hz
	RepeatDelay int `yaml:"repeat_delay"` // ms
}

// Config is the effective compositor configuration.
type Config struct {
	Backend      string            `yaml:"backend"`
	Display      string            `yaml:"display,omitempty"`
	Window       WindowConfig      `yaml:"window"`
	Offscreen    OffscreenConfig   `yaml:"offscreen"`
	TickInterval time.Duration     `yaml:"tick_interval"`
	RefreshMHz   int               `yaml:"refresh_mhz"`
	SocketName   string            `yaml:"socket_name,omitempty"`
	Compression  string            `yaml:"compression"`
	Placement    PlacementConfig   `yaml:"placement"`
	Keyboard     KeyboardConfig    `yaml:"keyboard"`
	Bindings     map[string]string `yaml:"bindings"`
	LogLevel     string            `yaml:"log_level"`
	Background   string            `yaml:"background"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: string(backend.KindWindowed),
		Window: WindowConfig{
			Width:  1280,
			Height: 800,
			Title:  "Khigy",
		},
		Offscreen: OffscreenConfig{
			Width:        1280,
			Height:       800,
			CaptureEvery: 1,
		},
		TickInterval: 16 * time.Millisecond,
		RefreshMHz:   backend.DefaultRefreshMHz,
		Compression:  "lz4",
		Placement: PlacementConfig{
			Mode: string(tiling.ModeStack),
		},
		Keyboard: KeyboardConfig{
			RepeatRate:  25,
			RepeatDelay: 200,
		},
		Bindings: map[string]string{
			"Mod1-Escape":    string(hotkeys.ActionQuit),
			"Mod1-Tab":       string(hotkeys.ActionFocusNext),
			"Mod1-Shift-Tab": string(hotkeys.ActionFocusPrev),
		},
		LogLevel:   "info",
		Background: "#000000",
	}
}

// ValidationError points at the offending key, with its file position when
// known.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if _, err := backend.ParseKind(c.Backend); err != nil {
		return &ValidationError{Path: "backend", Err: err}
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return &ValidationError{Path: "window", Err: fmt.Errorf("width and height must be positive")}
	}
	if c.Offscreen.Width <= 0 || c.Offscreen.Height <= 0 {
		return &ValidationError{Path: "offscreen", Err: fmt.Errorf("width and height must be positive")}
	}
	if c.Offscreen.CaptureEvery < 0 {
		return &ValidationError{Path: "offscreen.capture_every", Err: fmt.Errorf("capture_every must be >= 0")}
	}
	if c.TickInterval < time.Millisecond {
		return &ValidationError{Path: "tick_interval", Err: fmt.Errorf("tick_interval must be at least 1ms")}
	}
	if c.RefreshMHz <= 0 {
		return &ValidationError{Path: "refresh_mhz", Err: fmt.Errorf("refresh_mhz must be positive")}
	}
	if strings.ContainsRune(c.SocketName, 0) {
		return &ValidationError{Path: "socket_name", Err: fmt.Errorf("socket_name contains a NUL byte")}
	}
	if _, err := wire.ParseCompression(c.Compression); err != nil {
		return &ValidationError{Path: "compression", Err: err}
	}
	if _, err := tiling.ParseMode(c.Placement.Mode); err != nil {
		return &ValidationError{Path: "placement.mode", Err: err}
	}
	if c.Placement.Gap < 0 {
		return &ValidationError{Path: "placement.gap", Err: fmt.Errorf("gap must be >= 0")}
	}
	if c.Keyboard.RepeatRate < 0 || c.Keyboard.RepeatDelay < 0 {
		return &ValidationError{Path: "keyboard", Err: fmt.Errorf("repeat_rate and repeat_delay must be >= 0")}
	}
	for seq, action := range c.Bindings {
		if _, err := hotkeys.ParseSequence(seq); err != nil {
			return &ValidationError{Path: "bindings." + seq, Err: err}
		}
		if _, err := hotkeys.ParseAction(action); err != nil {
			return &ValidationError{Path: "bindings." + seq, Err: err}
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if _, err := render.ParseColor(c.Background); err != nil {
		return &ValidationError{Path: "background", Err: err}
	}
	return nil
}

// Marshal renders the effective config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	// Durations are written the way the loader parses them.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "tick_interval" {
			doc.Content[i+1].SetString(c.TickInterval.String())
		}
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments or
// formatting from the source YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
