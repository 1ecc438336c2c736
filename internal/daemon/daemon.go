// Package daemon assembles a running compositor from its configuration: the
// backend, the event loop, the client socket and the control socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/khigy/internal/backend"
	"github.com/1broseidon/khigy/internal/config"
	"github.com/1broseidon/khigy/internal/display"
	"github.com/1broseidon/khigy/internal/ipc"
	"github.com/1broseidon/khigy/internal/khigy"
	"github.com/1broseidon/khigy/internal/loop"
	"github.com/1broseidon/khigy/internal/render"
	"github.com/1broseidon/khigy/internal/runtimepath"
	"github.com/1broseidon/khigy/internal/seat"
	"github.com/1broseidon/khigy/internal/tiling"
	"github.com/1broseidon/khigy/internal/wire"
)

// Options override how Run binds its sockets. Zero values use the runtime
// directory defaults.
type Options struct {
	// ControlSocket is the IPC socket path. Empty uses
	// runtimepath.ControlSocketPath.
	ControlSocket string
	// Ready is called once both sockets accept connections.
	Ready func(socketName string)
}

// Compositor is a fully wired compositor that has not started yet.
type Compositor struct {
	logger   *slog.Logger
	backend  backend.Backend
	loop     *loop.EventLoop[khigy.LoopData]
	data     *khigy.LoopData
	listener *display.Listener
	control  *ipc.Server
}

// New builds every component from cfg. On error nothing is left open.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (_ *Compositor, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	kind, err := backend.ParseKind(cfg.Backend)
	if err != nil {
		return nil, err
	}
	comp, err := wire.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	placement, err := tiling.ParseMode(cfg.Placement.Mode)
	if err != nil {
		return nil, err
	}
	bg, err := render.ParseColor(cfg.Background)
	if err != nil {
		return nil, err
	}

	bopts := backend.Options{
		Title:        cfg.Window.Title,
		Width:        cfg.Window.Width,
		Height:       cfg.Window.Height,
		RefreshMHz:   cfg.RefreshMHz,
		Display:      cfg.Display,
		CaptureDir:   cfg.Offscreen.CaptureDir,
		CaptureEvery: cfg.Offscreen.CaptureEvery,
	}
	if kind == backend.KindOffscreen {
		bopts.Width, bopts.Height = cfg.Offscreen.Width, cfg.Offscreen.Height
	}
	b, err := backend.New(kind, bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s backend: %w", kind, err)
	}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	ev := loop.New[khigy.LoopData]()
	disp := display.New(logger, comp)
	data, err := khigy.NewLoopData(b, disp, ev.Signal(), khigy.Options{
		Logger:       logger,
		TickInterval: cfg.TickInterval,
		Placement:    placement,
		Gap:          cfg.Placement.Gap,
		Background:   bg,
		Repeat:       seat.RepeatInfo{DelayMS: cfg.Keyboard.RepeatDelay, RateHz: cfg.Keyboard.RepeatRate},
		Bindings:     cfg.Bindings,
	})
	if err != nil {
		disp.Close()
		return nil, err
	}

	ln, err := display.Listen(cfg.SocketName, logger)
	if err != nil {
		data.State.Close()
		disp.Close()
		return nil, err
	}

	controlPath := opts.ControlSocket
	if controlPath == "" {
		if controlPath, err = runtimepath.ControlSocketPath(); err != nil {
			ln.Close()
			data.State.Close()
			disp.Close()
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	srv, err := ipc.NewServer(controlPath, khigy.NewController(ev), logger)
	if err != nil {
		ln.Close()
		data.State.Close()
		disp.Close()
		return nil, err
	}

	ev.InsertTimer(0, khigy.Tick)
	ev.OnIdle(func(d *khigy.LoopData) { d.Display.FlushClients() })

	return &Compositor{
		logger:   logger,
		backend:  b,
		loop:     ev,
		data:     data,
		listener: ln,
		control:  srv,
	}, nil
}

// SocketName is the client socket name exported as KHIGY_DISPLAY.
func (c *Compositor) SocketName() string { return c.listener.Name() }

// ControlSocket is the bound IPC socket path.
func (c *Compositor) ControlSocket() string { return c.control.SocketPath() }

// Run drives the compositor until the loop stops or ctx ends, then tears
// everything down. A loop stopped by the backend or a quit binding is not an
// error.
func (c *Compositor) Run(ctx context.Context, ready func(socketName string)) error {
	if err := c.listener.Export(); err != nil {
		c.logger.Warn("failed to export display name", "error", err)
	}
	c.logger.Info("compositor started",
		"backend", c.backend.Name(),
		"socket", c.listener.Name(),
		"control", c.control.SocketPath(),
		"interval", c.data.State.TickInterval(),
	)

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(gctx)

	g.Go(func() error {
		defer cancel()
		err := c.loop.Run(gctx, c.data)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return c.listener.Serve(gctx, c.accept)
	})
	g.Go(func() error {
		return c.control.Serve(gctx)
	})
	if ready != nil {
		ready(c.listener.Name())
	}

	err := g.Wait()
	c.teardown()
	return err
}

// accept hands a new connection to the loop goroutine. Requests queued by
// the client's reader are dispatched there too.
func (c *Compositor) accept(conn net.Conn) {
	ok := c.loop.Post(func(d *khigy.LoopData) {
		d.Display.AddClient(conn, func(client *display.Client) {
			c.loop.Post(func(d *khigy.LoopData) { d.State.DispatchClient(client) })
		})
	})
	if !ok {
		conn.Close()
	}
}

func (c *Compositor) teardown() {
	c.control.Stop()
	c.listener.Close()
	c.data.State.Close()
	c.data.Display.Close()
	if err := c.backend.Close(); err != nil {
		c.logger.Debug("backend close", "error", err)
	}
	c.logger.Info("compositor stopped", "frames", c.data.State.Frames())
}

// Run builds a compositor from cfg and runs it until it stops.
func Run(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) error {
	c, err := New(cfg, opts, logger)
	if err != nil {
		return err
	}
	return c.Run(ctx, opts.Ready)
}
