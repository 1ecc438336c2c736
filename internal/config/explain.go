package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its
// source. Paths follow the file layout, for example:
//
//	backend
//	window.width
//	offscreen.capture_dir
//	tick_interval
//	placement.mode
//	keyboard.repeat_rate
//	bindings.Mod1-Escape
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	if seq, ok := strings.CutPrefix(path, "bindings."); ok {
		action, ok := cfg.Bindings[seq]
		if !ok {
			return nil, fmt.Errorf("no binding for %q", seq)
		}
		return action, nil
	}

	values := map[string]any{
		"backend":                 cfg.Backend,
		"display":                 cfg.Display,
		"window.width":            cfg.Window.Width,
		"window.height":           cfg.Window.Height,
		"window.title":            cfg.Window.Title,
		"offscreen.width":         cfg.Offscreen.Width,
		"offscreen.height":        cfg.Offscreen.Height,
		"offscreen.capture_dir":   cfg.Offscreen.CaptureDir,
		"offscreen.capture_every": cfg.Offscreen.CaptureEvery,
		"tick_interval":           cfg.TickInterval.String(),
		"refresh_mhz":             cfg.RefreshMHz,
		"socket_name":             cfg.SocketName,
		"compression":             cfg.Compression,
		"placement.mode":          cfg.Placement.Mode,
		"placement.gap":           cfg.Placement.Gap,
		"keyboard.repeat_rate":    cfg.Keyboard.RepeatRate,
		"keyboard.repeat_delay":   cfg.Keyboard.RepeatDelay,
		"bindings":                cfg.Bindings,
		"log_level":               cfg.LogLevel,
		"background":              cfg.Background,
	}
	v, ok := values[path]
	if !ok {
		return nil, fmt.Errorf("unknown config path %q", path)
	}
	return v, nil
}
