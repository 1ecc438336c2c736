package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/khigy/internal/ipc"
	"github.com/1broseidon/khigy/internal/mcp"
)

func mcpCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
	}
	var controlSocket string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve compositor tools over stdio",
		Long: `Starts an MCP server on stdin/stdout. Tools query the running compositor
through its control socket. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := g.logLevel
			if level == "" {
				level = "warn"
			}
			logger := newLogger(stderr(cmd), level)

			client := ipc.NewClient()
			if controlSocket != "" {
				client = ipc.NewClientAt(controlSocket)
			}
			return mcp.NewServer(client, logger).Run(cmd.Context())
		},
	}
	serve.Flags().StringVar(&controlSocket, "control-socket", "", "Control socket path (default: $XDG_RUNTIME_DIR/khigy-control.sock)")
	cmd.AddCommand(serve)
	return cmd
}
