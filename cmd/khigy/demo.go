package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/khigy/internal/client"
)

func demoCmd(g *globalFlags) *cobra.Command {
	var (
		display string
		opts    client.DemoOptions
	)
	cmd := &cobra.Command{
		Use:   "demo-client",
		Short: "Connect an animated test window to the compositor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := g.logLevel
			if level == "" {
				level = "info"
			}
			logger := newLogger(stderr(cmd), level)

			conn, err := client.Dial(display)
			if err != nil {
				return err
			}
			defer conn.Close()
			logger.Info("connected", "display", display)
			return client.RunDemo(cmd.Context(), conn, opts, logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&display, "display", "", "Socket name (default: $KHIGY_DISPLAY)")
	f.StringVar(&opts.Title, "title", "khigy demo", "Toplevel title")
	f.IntVar(&opts.Width, "width", 240, "Buffer width")
	f.IntVar(&opts.Height, "height", 160, "Buffer height")
	f.IntVar(&opts.Frames, "frames", 0, "Exit after this many frames (0: run until closed)")
	f.StringVar(&opts.Clipboard, "clipboard", "", "Offer this text as the selection when focused")
	return cmd
}
