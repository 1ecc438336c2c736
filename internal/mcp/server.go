package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/khigy/internal/ipc"
)

const (
	ServerName    = "khigy"
	ServerVersion = "0.1.0"
)

// Compositor is the control surface the tools query. *ipc.Client satisfies
// it.
type Compositor interface {
	GetStatus() (*ipc.StatusData, error)
	ListToplevelsByApp(appID string) (*ipc.ToplevelsData, error)
	Quit() error
}

var _ Compositor = (*ipc.Client)(nil)

// Server is the MCP server exposing a running compositor.
type Server struct {
	mcpServer  *mcpsdk.Server
	compositor Compositor
	logger     *slog.Logger
}

// NewServer creates an MCP server that talks to the compositor through c.
func NewServer(c Compositor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		compositor: c,
		logger:     logger.With("component", "mcp"),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "compositor_status",
		Description: "Report the running khigy compositor: backend, seat, output mode, connected client count, mapped toplevels and popups, frames presented and the placement mode.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_toplevels",
		Description: "List mapped toplevel windows in stacking order (bottom first) with their client, title, app id, position, size and whether they hold keyboard focus. Optionally filter by app_id.",
	}, s.handleListToplevels)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "quit_compositor",
		Description: "Stop the compositor's event loop. Every client is disconnected. Requires confirm=true.",
	}, s.handleQuit)
}
