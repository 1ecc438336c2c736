package config

import (
	"fmt"
	"maps"
	"time"
)

// BuildEffectiveConfig applies raw on top of DefaultConfig. Bindings set to
// an empty action remove the default binding for that sequence.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Backend != nil {
		cfg.Backend = *raw.Backend
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if w := raw.Window; w != nil {
		cfg.Window.Width = derefInt(w.Width, cfg.Window.Width)
		cfg.Window.Height = derefInt(w.Height, cfg.Window.Height)
		if w.Title != nil {
			cfg.Window.Title = *w.Title
		}
	}
	if o := raw.Offscreen; o != nil {
		cfg.Offscreen.Width = derefInt(o.Width, cfg.Offscreen.Width)
		cfg.Offscreen.Height = derefInt(o.Height, cfg.Offscreen.Height)
		cfg.Offscreen.CaptureEvery = derefInt(o.CaptureEvery, cfg.Offscreen.CaptureEvery)
		if o.CaptureDir != nil {
			cfg.Offscreen.CaptureDir = *o.CaptureDir
		}
	}
	if raw.TickInterval != nil {
		d, err := time.ParseDuration(*raw.TickInterval)
		if err != nil {
			return nil, &ValidationError{Path: "tick_interval", Err: fmt.Errorf("invalid duration: %w", err)}
		}
		cfg.TickInterval = d
	}
	cfg.RefreshMHz = derefInt(raw.RefreshMHz, cfg.RefreshMHz)
	if raw.SocketName != nil {
		cfg.SocketName = *raw.SocketName
	}
	if raw.Compression != nil {
		cfg.Compression = *raw.Compression
	}
	if p := raw.Placement; p != nil {
		if p.Mode != nil {
			cfg.Placement.Mode = *p.Mode
		}
		cfg.Placement.Gap = derefInt(p.Gap, cfg.Placement.Gap)
	}
	if k := raw.Keyboard; k != nil {
		cfg.Keyboard.RepeatRate = derefInt(k.RepeatRate, cfg.Keyboard.RepeatRate)
		cfg.Keyboard.RepeatDelay = derefInt(k.RepeatDelay, cfg.Keyboard.RepeatDelay)
	}
	if raw.Bindings != nil {
		merged := maps.Clone(cfg.Bindings)
		for seq, action := range raw.Bindings {
			if action == "" {
				delete(merged, seq)
				continue
			}
			merged[seq] = action
		}
		cfg.Bindings = merged
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.Background != nil {
		cfg.Background = *raw.Background
	}

	return cfg, nil
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
