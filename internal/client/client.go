// Package client is a small khigy protocol client used by the demo command and
// by tests that need a real peer on the display socket.
package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/khigy/internal/runtimepath"
	"github.com/1broseidon/khigy/internal/wire"
)

// envDisplay mirrors display.EnvDisplay without importing the server side.
const envDisplay = "KHIGY_DISPLAY"

const dialTimeout = 5 * time.Second

// ErrNoDisplay is returned by Dial when no socket name is known.
var ErrNoDisplay = errors.New("no display socket: set KHIGY_DISPLAY or pass a name")

// Conn is one client connection. Requests may be sent from any goroutine;
// events arrive on Events in order.
type Conn struct {
	conn net.Conn
	comp wire.Compression

	mu     sync.Mutex
	nextID uint32

	events chan wire.Message
	done   chan struct{}
	err    error
}

// Dial connects to the named display socket. An empty name uses
// KHIGY_DISPLAY.
func Dial(name string) (*Conn, error) {
	if name == "" {
		name = os.Getenv(envDisplay)
	}
	if name == "" {
		return nil, ErrNoDisplay
	}
	path, err := runtimepath.DisplaySocketPath(name)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to compositor: %w (is khigy running?)", err)
	}
	c, err := NewConn(conn, wire.CompressLZ4)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// NewConn performs the hello on an established connection and starts
// reading events.
func NewConn(conn net.Conn, comp wire.Compression) (*Conn, error) {
	if err := wire.WriteHello(conn); err != nil {
		return nil, fmt.Errorf("send hello: %w", err)
	}
	c := &Conn{
		conn:   conn,
		comp:   comp,
		nextID: wire.DisplayObject,
		events: make(chan wire.Message, 256),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer close(c.events)
	if err := wire.ReadHello(c.conn); err != nil {
		c.err = err
		return
	}
	for {
		msg, err := wire.ReadMessage(c.conn)
		if err != nil {
			c.err = err
			return
		}
		c.events <- msg
	}
}

// Events delivers server events. It is closed when the connection ends; Err
// then reports why.
func (c *Conn) Events() <-chan wire.Message { return c.events }

// Err returns the read error that ended the connection. It is only valid
// after Events was closed.
func (c *Conn) Err() error {
	<-c.done
	return c.err
}

// NewID allocates a fresh object id.
func (c *Conn) NewID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID
}

// Request sends one request.
func (c *Conn) Request(object uint32, op wire.Opcode, body any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := wire.WriteMessage(c.conn, object, op, body, c.comp); err != nil {
		return fmt.Errorf("send %s: %w", op, err)
	}
	return nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Sync asks the compositor for a callback.done on the returned id once every
// earlier request was handled.
func (c *Conn) Sync() (uint32, error) {
	id := c.NewID()
	return id, c.Request(wire.DisplayObject, wire.OpSync, wire.Sync{Callback: id})
}

// CreateSurface creates a surface object.
func (c *Conn) CreateSurface() (*Surface, error) {
	id := c.NewID()
	if err := c.Request(wire.DisplayObject, wire.OpCreateSurface, wire.CreateSurface{ID: id}); err != nil {
		return nil, err
	}
	return &Surface{conn: c, ID: id}, nil
}

// CreateDataSource creates a data source offering mimeTypes.
func (c *Conn) CreateDataSource(mimeTypes ...string) (uint32, error) {
	id := c.NewID()
	return id, c.Request(wire.DisplayObject, wire.OpCreateDataSource, wire.CreateDataSource{ID: id, MimeTypes: mimeTypes})
}

// SetSelection makes source the selection. Zero clears it.
func (c *Conn) SetSelection(source, serial uint32) error {
	return c.Request(wire.DisplayObject, wire.OpSetSelection, wire.SetSelection{Source: source, Serial: serial})
}

// StartDrag starts a drag of source from origin.
func (c *Conn) StartDrag(source, origin, serial uint32) error {
	return c.Request(wire.DisplayObject, wire.OpStartDrag, wire.StartDrag{Source: source, Origin: origin, Serial: serial})
}

// Receive asks for the selection contents as mimeType. The data arrives as an
// offer.data event.
func (c *Conn) Receive(mimeType string) error {
	return c.Request(wire.DisplayObject, wire.OpReceive, wire.Receive{MimeType: mimeType})
}

// SourceData answers a data_source.send event.
func (c *Conn) SourceData(source, transfer uint32, data []byte) error {
	return c.Request(source, wire.OpSourceData, wire.SourceData{Transfer: transfer, Data: data})
}

// SetCursor sets a named cursor, or hides it when name is empty.
func (c *Conn) SetCursor(serial uint32, name string) error {
	return c.Request(wire.DisplayObject, wire.OpSetCursor, wire.SetCursor{Serial: serial, Name: name, Hidden: name == ""})
}
