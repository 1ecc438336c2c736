package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/1broseidon/khigy/internal/backend"
	"github.com/1broseidon/khigy/internal/config"
	"github.com/1broseidon/khigy/internal/daemon"
)

// overrideFlags maps run flags to the config keys they replace.
var overrideFlags = map[string]string{
	"backend":       "backend",
	"socket":        "socket_name",
	"placement":     "placement.mode",
	"gap":           "placement.gap",
	"tick":          "tick_interval",
	"compression":   "compression",
	"width":         "", // window and/or offscreen
	"height":        "",
	"capture-dir":   "offscreen.capture_dir",
	"capture-every": "offscreen.capture_every",
}

func runCmd(g *globalFlags) *cobra.Command {
	var controlSocket string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the compositor (foreground)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := loadConfig(g, cmd.Flags())
			if err != nil {
				return err
			}
			cfg := res.Config
			logger := newLogger(stderr(cmd), cfg.LogLevel)
			slog.SetDefault(logger)
			if res.File != "" {
				logger.Info("configuration loaded", "path", res.File)
			}

			return daemon.Run(cmd.Context(), cfg, daemon.Options{
				ControlSocket: controlSocket,
				Ready: func(name string) {
					logger.Info("clients can connect", "KHIGY_DISPLAY", name)
				},
			}, logger)
		},
	}

	f := cmd.Flags()
	f.String("backend", "", "Backend: x11 or offscreen")
	f.String("socket", "", "Client socket name (default: first free khigy-N)")
	f.String("placement", "", "Toplevel placement: stack, grid or cascade")
	f.Int("gap", 0, "Gap between placed toplevels in pixels")
	f.String("tick", "", "Frame interval, e.g. 16ms")
	f.String("compression", "", "Event compression: none, lz4 or zstd")
	f.Int("width", 0, "Output width")
	f.Int("height", 0, "Output height")
	f.String("capture-dir", "", "Offscreen: write PNG frames to this directory")
	f.Int("capture-every", 0, "Offscreen: capture every Nth frame")
	f.StringVar(&controlSocket, "control-socket", "", "Control socket path (default: $XDG_RUNTIME_DIR/khigy-control.sock)")
	return cmd
}

// loadConfig reads the config file and applies every run flag the user set.
// The persistent --log-level flag applies to every command.
func loadConfig(g *globalFlags, flags *pflag.FlagSet) (*config.LoadResult, error) {
	path := g.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	overrides, flagPaths := flagOverrides(flags)
	if g.logLevel != "" {
		overrides.LogLevel = &g.logLevel
		flagPaths["log_level"] = "--log-level"
	}
	return config.LoadWithOverrides(path, overrides, flagPaths)
}

func flagOverrides(flags *pflag.FlagSet) (config.RawConfig, map[string]string) {
	var raw config.RawConfig
	paths := map[string]string{}
	if flags.Lookup("backend") == nil {
		return raw, paths
	}

	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	num := func(name string) *int {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetInt(name)
		return &v
	}

	raw.Backend = str("backend")
	raw.SocketName = str("socket")
	raw.TickInterval = str("tick")
	raw.Compression = str("compression")
	if mode, gap := str("placement"), num("gap"); mode != nil || gap != nil {
		raw.Placement = &config.RawPlacement{Mode: mode, Gap: gap}
	}

	// Without --backend the sizes apply to both variants.
	width, height := num("width"), num("height")
	windowed, offscreen := true, true
	if raw.Backend != nil {
		kind, _ := backend.ParseKind(*raw.Backend)
		windowed, offscreen = kind == backend.KindWindowed, kind == backend.KindOffscreen
	}
	if windowed && (width != nil || height != nil) {
		raw.Window = &config.RawWindow{Width: width, Height: height}
	}
	if offscreen && (width != nil || height != nil) {
		raw.Offscreen = &config.RawOffscreen{Width: width, Height: height}
	}
	if dir, every := str("capture-dir"), num("capture-every"); dir != nil || every != nil {
		if raw.Offscreen == nil {
			raw.Offscreen = &config.RawOffscreen{}
		}
		raw.Offscreen.CaptureDir, raw.Offscreen.CaptureEvery = dir, every
	}

	for flag, key := range overrideFlags {
		if !flags.Changed(flag) {
			continue
		}
		if key != "" {
			paths[key] = "--" + flag
			continue
		}
		if windowed {
			paths["window."+flag] = "--" + flag
		}
		if offscreen {
			paths["offscreen."+flag] = "--" + flag
		}
	}
	return raw, paths
}

func stderr(cmd *cobra.Command) *os.File {
	if f, ok := cmd.ErrOrStderr().(*os.File); ok {
		return f
	}
	return os.Stderr
}
