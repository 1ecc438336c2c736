package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.TickInterval != 16*time.Millisecond {
		t.Fatalf("expected 16ms tick, got %v", cfg.TickInterval)
	}
	if cfg.RefreshMHz != 60000 {
		t.Fatalf("expected 60000 mHz, got %d", cfg.RefreshMHz)
	}
	if cfg.Keyboard.RepeatDelay != 200 || cfg.Keyboard.RepeatRate != 25 {
		t.Fatalf("unexpected keyboard defaults: %+v", cfg.Keyboard)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.File != "" {
		t.Fatalf("expected no file, got %q", res.File)
	}
	if res.Config.Backend != "windowed" {
		t.Fatalf("expected windowed backend, got %q", res.Config.Backend)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "# empty")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Placement.Mode != "stack" {
		t.Fatalf("expected stack placement, got %q", res.Config.Placement.Mode)
	}
}

func TestLoadFromPath_OverridesNestedFields(t *testing.T) {
	path := writeConfig(t,
		"backend: offscreen",
		"offscreen:",
		"  width: 320",
		"tick_interval: 8ms",
		"placement:",
		"  mode: grid",
		"  gap: 4",
		"bindings:",
		"  Mod4-q: quit",
		"  Mod1-Tab: \"\"",
	)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Backend != "offscreen" {
		t.Fatalf("backend = %q", cfg.Backend)
	}
	if cfg.Offscreen.Width != 320 || cfg.Offscreen.Height != 800 {
		t.Fatalf("offscreen = %dx%d, want 320x800", cfg.Offscreen.Width, cfg.Offscreen.Height)
	}
	if cfg.TickInterval != 8*time.Millisecond {
		t.Fatalf("tick_interval = %v", cfg.TickInterval)
	}
	if cfg.Placement.Mode != "grid" || cfg.Placement.Gap != 4 {
		t.Fatalf("placement = %+v", cfg.Placement)
	}
	if cfg.Bindings["Mod4-q"] != "quit" {
		t.Fatalf("expected Mod4-q binding, got %v", cfg.Bindings)
	}
	if _, ok := cfg.Bindings["Mod1-Tab"]; ok {
		t.Fatalf("expected Mod1-Tab to be removed, got %v", cfg.Bindings)
	}
	if cfg.Bindings["Mod1-Escape"] != "quit" {
		t.Fatalf("expected default Mod1-Escape binding to survive, got %v", cfg.Bindings)
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, "backnd: offscreen")

	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadFromPath_ValidationErrorCarriesLine(t *testing.T) {
	path := writeConfig(t,
		"backend: offscreen",
		"placement:",
		"  mode: spiral",
	)

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "placement.mode" {
		t.Fatalf("path = %q", verr.Path)
	}
	if verr.Source.Line != 3 {
		t.Fatalf("line = %d, want 3", verr.Source.Line)
	}
	if !strings.Contains(err.Error(), path+":3:") {
		t.Fatalf("error %q does not point at the file", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"backend", func(c *Config) { c.Backend = "wayland" }, "backend"},
		{"window", func(c *Config) { c.Window.Width = 0 }, "window"},
		{"tick", func(c *Config) { c.TickInterval = 0 }, "tick_interval"},
		{"compression", func(c *Config) { c.Compression = "gzip" }, "compression"},
		{"gap", func(c *Config) { c.Placement.Gap = -1 }, "placement.gap"},
		{"binding", func(c *Config) { c.Bindings["Hyper-x"] = "quit" }, "bindings.Hyper-x"},
		{"action", func(c *Config) { c.Bindings["Mod1-x"] = "explode" }, "bindings.Mod1-x"},
		{"log level", func(c *Config) { c.LogLevel = "warning" }, "log_level"},
		{"background", func(c *Config) { c.Background = "blue" }, "background"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestLoadWithOverrides_FlagWins(t *testing.T) {
	path := writeConfig(t, "backend: windowed", "log_level: warn")
	backend := "offscreen"

	res, err := LoadWithOverrides(path, RawConfig{Backend: &backend}, map[string]string{"backend": "--backend"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend != "offscreen" {
		t.Fatalf("backend = %q", res.Config.Backend)
	}

	val, src, err := Explain(res, "backend")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "offscreen" || src.Kind != SourceFlag || src.Name != "--backend" {
		t.Fatalf("explain backend = %v from %+v", val, src)
	}

	_, src, err = Explain(res, "log_level")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if src.Kind != SourceFile || src.Line != 2 {
		t.Fatalf("log_level source = %+v", src)
	}

	_, src, err = Explain(res, "placement.gap")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if src.Kind != SourceDefault {
		t.Fatalf("placement.gap source = %+v", src)
	}

	if _, _, err := Explain(res, "no.such.key"); err == nil {
		t.Fatalf("expected error for unknown path")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "khigy", "config.yaml")
	cfg := DefaultConfig()
	cfg.Placement.Mode = "cascade"
	cfg.TickInterval = 20 * time.Millisecond
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if res.Config.Placement.Mode != "cascade" || res.Config.TickInterval != 20*time.Millisecond {
		t.Fatalf("saved config not restored: %+v", res.Config)
	}
}
