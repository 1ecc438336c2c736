package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "khigy",
		Short: "A minimal windowing compositor",
		Long: `khigy composites client surfaces onto a single output. It runs either
inside an X11 window or fully offscreen, and clients connect through the
socket named by KHIGY_DISPLAY.`,
		Example: `  # Start the compositor in an X11 window
  khigy run

  # Start headless and save every 10th frame
  khigy run --backend offscreen --capture-dir /tmp/frames --capture-every 10

  # Connect the demo client to the running compositor
  khigy demo-client --title hello`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file path (default: ~/.config/khigy/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: from config)")

	rootCmd.AddCommand(
		runCmd(&g),
		statusCmd(),
		toplevelsCmd(),
		quitCmd(),
		configCmd(&g),
		mcpCmd(&g),
		demoCmd(&g),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// newLogger writes colored output to a terminal and logfmt-style text
// otherwise.
func newLogger(w *os.File, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(newHandler(w, lvl, term.IsTerminal(int(w.Fd()))))
}

func newHandler(w io.Writer, lvl slog.Level, color bool) slog.Handler {
	if color {
		return tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.TimeOnly,
		})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
}
