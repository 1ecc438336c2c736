package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/khigy/internal/khigy"
)

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	status, err := s.compositor.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{Status: *status}, nil
}

func (s *Server) handleListToplevels(_ context.Context, _ *mcpsdk.CallToolRequest, args ListToplevelsInput) (*mcpsdk.CallToolResult, ListToplevelsOutput, error) {
	data, err := s.compositor.ListToplevelsByApp(args.AppID)
	if err != nil {
		return nil, ListToplevelsOutput{}, err
	}

	out := ListToplevelsOutput{Toplevels: data.Toplevels}
	if out.Toplevels == nil {
		out.Toplevels = []khigy.ToplevelInfo{}
	}
	for _, t := range out.Toplevels {
		if t.Focused {
			surface := t.Surface
			out.Focused = &surface
		}
	}
	s.logger.Debug("list_toplevels", "app_id", args.AppID, "count", len(out.Toplevels))
	return nil, out, nil
}

func (s *Server) handleQuit(_ context.Context, _ *mcpsdk.CallToolRequest, args QuitInput) (*mcpsdk.CallToolResult, any, error) {
	if !args.Confirm {
		return nil, nil, fmt.Errorf("refusing to quit without confirm=true")
	}
	if err := s.compositor.Quit(); err != nil {
		return nil, nil, err
	}
	s.logger.Info("compositor quit requested over MCP")
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: "Compositor stopping"},
		},
	}, nil, nil
}
