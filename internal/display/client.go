package display

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/wire"
)

var (
	ErrObjectExists   = errors.New("object id already in use")
	ErrReservedID     = errors.New("object id is reserved")
	ErrClientClosed   = errors.New("client connection closed")
	errInboxOverflow  = errors.New("too many unprocessed requests")
	errOutboxOverflow = errors.New("client is not reading its events")
)

// maxInbox bounds requests read but not yet dispatched by the loop.
const maxInbox = 4096

// Byte bounds on a client's queues. Request bodies are counted after
// decompression.
var (
	maxInboxBytes  = 4 * wire.MaxBodySize
	maxOutboxBytes = 2 * wire.MaxBodySize
)

// writeTimeout bounds one write by the writer goroutine. The loop never waits
// on it.
const writeTimeout = 2 * time.Second

// Credentials are the peer credentials of a client socket.
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

// Client is one protocol connection. The object table and outbox are owned
// by the event loop goroutine. The inbox is shared with the reader goroutine
// and the write buffer with the writer goroutine.
type Client struct {
	id     compositor.ClientID
	conn   net.Conn
	creds  Credentials
	comp   wire.Compression
	logger *slog.Logger

	objects map[uint32]any
	outbox  []byte
	closed  bool
	writing bool

	mu         sync.Mutex
	inbox      []wire.Message
	inboxBytes int
	readErr    error
	notified   bool

	wmu   sync.Mutex
	wcond *sync.Cond
	wbuf  []byte
	wdone bool
	werr  error
}

func newClient(id compositor.ClientID, conn net.Conn, comp wire.Compression, logger *slog.Logger) *Client {
	c := &Client{
		id:      id,
		conn:    conn,
		comp:    comp,
		objects: make(map[uint32]any),
	}
	c.wcond = sync.NewCond(&c.wmu)
	creds, err := peerCredentials(conn)
	if err != nil {
		logger.Debug("peer credentials unavailable", "client", id, "error", err)
	}
	c.creds = creds
	c.logger = logger.With("client", id, "pid", creds.PID)

	var hello bytes.Buffer
	_ = wire.WriteHello(&hello)
	c.outbox = hello.Bytes()
	return c
}

func (c *Client) ID() compositor.ClientID  { return c.id }
func (c *Client) Credentials() Credentials { return c.creds }
func (c *Client) Logger() *slog.Logger     { return c.logger }
func (c *Client) Closed() bool             { return c.closed }

func (c *Client) Object(id uint32) (any, bool) {
	obj, ok := c.objects[id]
	return obj, ok
}

// AddObject binds a client-allocated id.
func (c *Client) AddObject(id uint32, obj any) error {
	if id == 0 || id == wire.DisplayObject {
		return fmt.Errorf("%w: %d", ErrReservedID, id)
	}
	if _, ok := c.objects[id]; ok {
		return fmt.Errorf("%w: %d", ErrObjectExists, id)
	}
	c.objects[id] = obj
	return nil
}

// RemoveObject unbinds id. Unknown ids are ignored.
func (c *Client) RemoveObject(id uint32) {
	delete(c.objects, id)
}

// ObjectIDs returns the bound ids in ascending order.
func (c *Client) ObjectIDs() []uint32 {
	return slices.Sorted(maps.Keys(c.objects))
}

// Send queues an event. It is written by the next Flush.
func (c *Client) Send(object uint32, op wire.Opcode, body any) error {
	if c.closed {
		return ErrClientClosed
	}
	out, err := wire.AppendMessage(c.outbox, object, op, body, c.comp)
	if err != nil {
		return err
	}
	c.outbox = out
	return nil
}

// Pending reports the number of queued outbound bytes not yet written to the
// socket.
func (c *Client) Pending() int {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return len(c.outbox) + len(c.wbuf)
}

// Flush hands queued events to the writer goroutine without blocking. It
// fails once a write failed or the client has more than maxOutboxBytes
// unwritten.
func (c *Client) Flush() error {
	if c.closed {
		return ErrClientClosed
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.werr != nil {
		return fmt.Errorf("flush client %d: %w", c.id, c.werr)
	}
	if len(c.outbox) == 0 {
		return nil
	}
	if len(c.wbuf)+len(c.outbox) > maxOutboxBytes {
		return fmt.Errorf("flush client %d: %w (%d bytes unwritten)", c.id, errOutboxOverflow, len(c.wbuf)+len(c.outbox))
	}
	c.wbuf = append(c.wbuf, c.outbox...)
	c.outbox = c.outbox[:0]
	c.wcond.Signal()
	return nil
}

// writeLoop writes flushed events until the client is closed and drained, or
// a write fails. It owns closing the connection once started.
func (c *Client) writeLoop() {
	defer c.conn.Close()
	var buf []byte
	for {
		c.wmu.Lock()
		for len(c.wbuf) == 0 && !c.wdone {
			c.wcond.Wait()
		}
		if len(c.wbuf) == 0 {
			c.wmu.Unlock()
			return
		}
		buf, c.wbuf = c.wbuf, buf[:0]
		c.wmu.Unlock()

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.conn.Write(buf); err != nil {
			c.wmu.Lock()
			c.werr = err
			c.wbuf = nil
			c.wmu.Unlock()
			return
		}
	}
}

// Take drains requests read so far. A non-nil error is the reader's terminal
// error; the returned requests precede it and are still valid.
func (c *Client) Take() ([]wire.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notified = false
	msgs := c.inbox
	c.inbox = nil
	c.inboxBytes = 0
	return msgs, c.readErr
}

// readLoop reads the client hello and then requests until the connection
// fails. notify runs at most once per batch, from this goroutine.
func (c *Client) readLoop(notify func(*Client)) {
	err := wire.ReadHello(c.conn)
	for err == nil {
		var msg wire.Message
		msg, err = wire.ReadMessage(c.conn)
		if err != nil {
			break
		}
		if msg.Opcode.IsEvent() {
			err = fmt.Errorf("client sent event opcode %s", msg.Opcode)
			break
		}
		c.mu.Lock()
		if len(c.inbox) >= maxInbox || c.inboxBytes+len(msg.Body) > maxInboxBytes {
			c.mu.Unlock()
			err = errInboxOverflow
			break
		}
		c.inbox = append(c.inbox, msg)
		c.inboxBytes += len(msg.Body)
		wake := !c.notified
		c.notified = true
		c.mu.Unlock()
		if wake {
			notify(c)
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		err = io.EOF
	}
	c.mu.Lock()
	c.readErr = err
	wake := !c.notified
	c.notified = true
	c.mu.Unlock()
	if wake {
		notify(c)
	}
}

// start runs the reader and writer goroutines.
func (c *Client) start(notify func(*Client)) {
	c.writing = true
	go c.writeLoop()
	go c.readLoop(notify)
}

// close stops reading at once. Events already flushed are still written
// before the connection closes.
func (c *Client) close() {
	if c.closed {
		return
	}
	c.closed = true
	if !c.writing {
		c.conn.Close()
		return
	}
	if cr, ok := c.conn.(interface{ CloseRead() error }); ok {
		_ = cr.CloseRead()
	}
	c.wmu.Lock()
	c.wdone = true
	c.wcond.Broadcast()
	c.wmu.Unlock()
}
