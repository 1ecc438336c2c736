package config

import "maps"

type RawWindow struct {
	Width  *int    `yaml:"width"`
	Height *int    `yaml:"height"`
	Title  *string `yaml:"title"`
}

type RawOffscreen struct {
	Width        *int    `yaml:"width"`
	Height       *int    `yaml:"height"`
	CaptureDir   *string `yaml:"capture_dir"`
	CaptureEvery *int    `yaml:"capture_every"`
}

type RawPlacement struct {
	Mode *string `yaml:"mode"`
	Gap  *int    `yaml:"gap"`
}

type RawKeyboard struct {
	RepeatRate  *int `yaml:"repeat_rate"`
	RepeatDelay *int `yaml:"repeat_delay"`
}

// RawConfig is one YAML file as written. Nil fields were not set.
type RawConfig struct {
	Backend      *string           `yaml:"backend"`
	Display      *string           `yaml:"display"`
	Window       *RawWindow        `yaml:"window"`
	Offscreen    *RawOffscreen     `yaml:"offscreen"`
	TickInterval *string           `yaml:"tick_interval"`
	RefreshMHz   *int              `yaml:"refresh_mhz"`
	SocketName   *string           `yaml:"socket_name"`
	Compression  *string           `yaml:"compression"`
	Placement    *RawPlacement     `yaml:"placement"`
	Keyboard     *RawKeyboard      `yaml:"keyboard"`
	Bindings     map[string]string `yaml:"bindings"`
	LogLevel     *string           `yaml:"log_level"`
	Background   *string           `yaml:"background"`
}

func pick[T any](base, overlay *T) *T {
	if overlay != nil {
		return overlay
	}
	return base
}

// merge returns c with every field set in overlay replaced. Bindings merge
// per key.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	out.Backend = pick(c.Backend, overlay.Backend)
	out.Display = pick(c.Display, overlay.Display)
	out.TickInterval = pick(c.TickInterval, overlay.TickInterval)
	out.RefreshMHz = pick(c.RefreshMHz, overlay.RefreshMHz)
	out.SocketName = pick(c.SocketName, overlay.SocketName)
	out.Compression = pick(c.Compression, overlay.Compression)
	out.LogLevel = pick(c.LogLevel, overlay.LogLevel)
	out.Background = pick(c.Background, overlay.Background)

	if overlay.Window != nil {
		w := RawWindow{}
		if c.Window != nil {
			w = *c.Window
		}
		w.Width = pick(w.Width, overlay.Window.Width)
		w.Height = pick(w.Height, overlay.Window.Height)
		w.Title = pick(w.Title, overlay.Window.Title)
		out.Window = &w
	}
	if overlay.Offscreen != nil {
		o := RawOffscreen{}
		if c.Offscreen != nil {
			o = *c.Offscreen
		}
		o.Width = pick(o.Width, overlay.Offscreen.Width)
		o.Height = pick(o.Height, overlay.Offscreen.Height)
		o.CaptureDir = pick(o.CaptureDir, overlay.Offscreen.CaptureDir)
		o.CaptureEvery = pick(o.CaptureEvery, overlay.Offscreen.CaptureEvery)
		out.Offscreen = &o
	}
	if overlay.Placement != nil {
		p := RawPlacement{}
		if c.Placement != nil {
			p = *c.Placement
		}
		p.Mode = pick(p.Mode, overlay.Placement.Mode)
		p.Gap = pick(p.Gap, overlay.Placement.Gap)
		out.Placement = &p
	}
	if overlay.Keyboard != nil {
		k := RawKeyboard{}
		if c.Keyboard != nil {
			k = *c.Keyboard
		}
		k.RepeatRate = pick(k.RepeatRate, overlay.Keyboard.RepeatRate)
		k.RepeatDelay = pick(k.RepeatDelay, overlay.Keyboard.RepeatDelay)
		out.Keyboard = &k
	}
	if overlay.Bindings != nil {
		merged := maps.Clone(c.Bindings)
		if merged == nil {
			merged = make(map[string]string, len(overlay.Bindings))
		}
		maps.Copy(merged, overlay.Bindings)
		out.Bindings = merged
	}
	return out
}
