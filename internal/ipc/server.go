package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/khigy/internal/khigy"
)

// requestTimeout bounds how long one connection may take to send its request.
const requestTimeout = 5 * time.Second

// Controller runs control commands against the compositor. Implementations
// hop onto the event loop goroutine; the server calls them from connection
// goroutines.
type Controller interface {
	Status(ctx context.Context) (khigy.Status, error)
	Toplevels(ctx context.Context) ([]khigy.ToplevelInfo, error)
	Quit(ctx context.Context) error
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	ctrl       Controller
	logger     *slog.Logger

	wg           sync.WaitGroup
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer binds the control socket at socketPath. A leftover socket file is
// removed first.
func NewServer(socketPath string, ctrl Controller, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	_ = os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create IPC socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	return &Server{
		socketPath: socketPath,
		listener:   listener,
		ctrl:       ctrl,
		logger:     logger.With("component", "ipc"),
	}, nil
}

// SocketPath returns the bound socket path.
func (s *Server) SocketPath() string { return s.socketPath }

// Serve accepts connections until ctx ends or Stop is called.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("IPC server listening", "path", s.socketPath)
	stop := context.AfterFunc(ctx, s.Stop)
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			down := s.shuttingDown
			s.shutdownMu.Unlock()
			if down {
				s.wg.Wait()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(requestTimeout))

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("IPC read error", "error", err)
		return
	}

	var resp *Response
	if req, err := ParseRequest(data); err != nil {
		resp = NewErrorResponse(fmt.Sprintf("Invalid request: %v", err))
	} else {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		resp = s.handleCommand(ctx, req)
		cancel()
	}

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Debug("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		status, err := s.ctrl.Status(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
		}
		return okResponse(status)

	case CommandListToplevels:
		var filter ListToplevelsPayload
		if err := req.DecodePayload(&filter); err != nil {
			return NewErrorResponse(err.Error())
		}
		all, err := s.ctrl.Toplevels(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to list toplevels: %v", err))
		}
		tops := make([]khigy.ToplevelInfo, 0, len(all))
		for _, t := range all {
			if filter.AppID == "" || t.AppID == filter.AppID {
				tops = append(tops, t)
			}
		}
		return okResponse(ToplevelsData{Toplevels: tops})

	case CommandQuit:
		s.logger.Info("IPC: Received QUIT command")
		if err := s.ctrl.Quit(ctx); err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to quit: %v", err))
		}
		return okResponse(nil)

	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func okResponse(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.listener.Close()
	os.Remove(s.socketPath)
}
