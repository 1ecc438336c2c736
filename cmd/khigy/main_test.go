package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/1broseidon/khigy/internal/config"
)

func parseRun(t *testing.T, g *globalFlags, args ...string) *config.LoadResult {
	t.Helper()
	cmd := runCmd(g)
	require.NoError(t, cmd.ParseFlags(args))
	res, err := loadConfig(g, cmd.Flags())
	require.NoError(t, err)
	return res
}

func TestRunFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: offscreen\nplacement:\n  mode: grid\n  gap: 8\n"), 0o644))
	g := &globalFlags{configPath: path}

	res := parseRun(t, g, "--gap", "2", "--tick", "5ms", "--width", "320", "--height", "200")
	cfg := res.Config
	require.Equal(t, "offscreen", cfg.Backend)
	require.Equal(t, "grid", cfg.Placement.Mode)
	require.Equal(t, 2, cfg.Placement.Gap)
	require.Equal(t, 5*time.Millisecond, cfg.TickInterval)
	require.Equal(t, 320, cfg.Offscreen.Width)
	require.Equal(t, 320, cfg.Window.Width)

	_, src, err := config.Explain(res, "placement.gap")
	require.NoError(t, err)
	require.Equal(t, config.SourceFlag, src.Kind)
	require.Equal(t, "--gap", src.Name)

	_, src, err = config.Explain(res, "placement.mode")
	require.NoError(t, err)
	require.Equal(t, config.SourceFile, src.Kind)
}

func TestRunSizeFlagsFollowBackend(t *testing.T) {
	g := &globalFlags{configPath: filepath.Join(t.TempDir(), "missing.yaml")}
	defaults := config.DefaultConfig()

	res := parseRun(t, g, "--backend", "offscreen", "--width", "100", "--height", "50", "--capture-every", "3")
	require.Equal(t, 100, res.Config.Offscreen.Width)
	require.Equal(t, 3, res.Config.Offscreen.CaptureEvery)
	require.Equal(t, defaults.Window.Width, res.Config.Window.Width)

	res = parseRun(t, g, "--backend", "x11", "--width", "100", "--height", "50")
	require.Equal(t, 100, res.Config.Window.Width)
	require.Equal(t, defaults.Offscreen.Width, res.Config.Offscreen.Width)
}

func TestLogLevelFlagIsValidated(t *testing.T) {
	g := &globalFlags{configPath: filepath.Join(t.TempDir(), "missing.yaml"), logLevel: "loud"}
	cmd := runCmd(g)
	_, err := loadConfig(g, cmd.Flags())
	require.ErrorContains(t, err, "log_level")
}

func TestConfigPrintDefaults(t *testing.T) {
	g := &globalFlags{}
	cmd := configCmd(g)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"print", "--defaults"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "backend: windowed")
	require.Contains(t, out.String(), "Mod1-Escape: quit")
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "khigy", "config.yaml")
	g := &globalFlags{configPath: path}

	cmd := configCmd(g)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"init"})
	require.NoError(t, cmd.Execute())
	_, err := os.Stat(path)
	require.NoError(t, err)

	cmd = configCmd(g)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init"})
	require.ErrorContains(t, cmd.Execute(), "already exists")
}

func TestPlainHandlerWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, slog.LevelInfo, false))
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	require.False(t, strings.Contains(buf.String(), "hidden"))
	require.Contains(t, buf.String(), "msg=shown k=v")
}
