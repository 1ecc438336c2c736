package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/khigy/internal/runtimepath"
)

// EnvDisplay names the client socket for child processes.
const EnvDisplay = "KHIGY_DISPLAY"

// Listener is the client rendezvous socket.
type Listener struct {
	name     string
	path     string
	listener net.Listener
	logger   *slog.Logger

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// Listen creates the client socket. An empty name picks the first free
// khigy-N in the runtime directory.
func Listen(name string, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		free, err := runtimepath.FreeDisplayName()
		if err != nil {
			return nil, err
		}
		name = free
	}
	path, err := runtimepath.DisplaySocketPath(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve display socket path: %w", err)
	}
	if runtimepath.InUse(path) {
		return nil, fmt.Errorf("display socket %s is in use", path)
	}
	// Remove existing socket if present
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to create display socket: %w", err)
	}
	if err := os.Chmod(path, 0700); err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	return &Listener{
		name:     name,
		path:     path,
		listener: ln,
		logger:   logger.With("socket", name),
	}, nil
}

func (l *Listener) Name() string { return l.name }
func (l *Listener) Path() string { return l.path }

// Export sets EnvDisplay for this process and its children.
func (l *Listener) Export() error {
	return os.Setenv(EnvDisplay, l.name)
}

// Serve accepts connections until ctx is done or the listener is closed.
// accept runs on the accepting goroutine and must hand the connection to the
// event loop.
func (l *Listener) Serve(ctx context.Context, accept func(net.Conn)) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	l.logger.Info("listening for clients", "path", l.path)
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			l.shutdownMu.Lock()
			down := l.shuttingDown
			l.shutdownMu.Unlock()
			if down || errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.logger.Warn("accept error", "error", err)
			continue
		}
		accept(conn)
	}
}

// Close stops accepting and removes the socket file.
func (l *Listener) Close() error {
	l.shutdownMu.Lock()
	if l.shuttingDown {
		l.shutdownMu.Unlock()
		return nil
	}
	l.shuttingDown = true
	l.shutdownMu.Unlock()

	err := l.listener.Close()
	os.Remove(l.path)
	return err
}
