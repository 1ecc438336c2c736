// Package display owns client connections: the rendezvous socket, per-client
// request queues and the outbound event buffers flushed by the event loop.
package display

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"net"
	"slices"

	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/output"
	"github.com/1broseidon/khigy/internal/wire"
)

// Display is the set of connected clients. It is only touched from the event
// loop goroutine.
type Display struct {
	logger *slog.Logger
	comp   wire.Compression

	clients map[compositor.ClientID]*Client
	nextID  compositor.ClientID

	outputs map[string]wire.Output
	seat    *wire.Seat

	onDisconnect []func(*Client)
}

// New creates an empty display. comp applies to every client's events.
func New(logger *slog.Logger, comp wire.Compression) *Display {
	if logger == nil {
		logger = slog.Default()
	}
	return &Display{
		logger:  logger,
		comp:    comp,
		clients: make(map[compositor.ClientID]*Client),
		outputs: make(map[string]wire.Output),
	}
}

// OnDisconnect registers fn to run when a client goes away, after it was
// removed from the display.
func (d *Display) OnDisconnect(fn func(*Client)) {
	d.onDisconnect = append(d.onDisconnect, fn)
}

// AddClient adopts an accepted connection and starts its reader and writer.
// notify is called from the reader goroutine whenever new requests are
// queued; it must hand the client back to the loop goroutine.
func (d *Display) AddClient(conn net.Conn, notify func(*Client)) *Client {
	d.nextID++
	c := newClient(d.nextID, conn, d.comp, d.logger)
	d.clients[c.id] = c

	for _, name := range slices.Sorted(maps.Keys(d.outputs)) {
		_ = c.Send(wire.DisplayObject, wire.EvOutput, d.outputs[name])
	}
	if d.seat != nil {
		_ = c.Send(wire.DisplayObject, wire.EvSeat, *d.seat)
	}

	c.logger.Info("client connected", "uid", c.creds.UID)
	c.start(notify)
	return c
}

// Client looks up a connected client.
func (d *Display) Client(id compositor.ClientID) (*Client, bool) {
	c, ok := d.clients[id]
	return c, ok
}

// Clients returns connected clients ordered by id.
func (d *Display) Clients() []*Client {
	out := make([]*Client, 0, len(d.clients))
	for _, id := range slices.Sorted(maps.Keys(d.clients)) {
		out = append(out, d.clients[id])
	}
	return out
}

// Broadcast queues an event on the display object of every client.
func (d *Display) Broadcast(op wire.Opcode, body any) {
	for _, c := range d.clients {
		if err := c.Send(wire.DisplayObject, op, body); err != nil {
			c.logger.Warn("dropping event", "event", op, "error", err)
		}
	}
}

// AdvertiseOutput implements output.Advertiser.
func (d *Display) AdvertiseOutput(name string, physical output.PhysicalProperties, state output.State) {
	ev := wire.Output{
		Name:      name,
		Make:      physical.Make,
		Model:     physical.Model,
		Width:     state.Mode.Size.Width,
		Height:    state.Mode.Size.Height,
		Refresh:   state.Mode.Refresh,
		WidthMM:   physical.SizeMM.Width,
		HeightMM:  physical.SizeMM.Height,
		Subpixel:  int(physical.Subpixel),
		Transform: state.Transform.String(),
		Scale:     state.Scale,
		X:         state.Location.X,
		Y:         state.Location.Y,
	}
	d.outputs[name] = ev
	d.Broadcast(wire.EvOutput, ev)
}

// WithdrawOutput implements output.Advertiser.
func (d *Display) WithdrawOutput(name string) {
	if _, ok := d.outputs[name]; !ok {
		return
	}
	delete(d.outputs, name)
	d.Broadcast(wire.EvOutputWithdrawn, wire.Output{Name: name})
}

// AdvertiseSeat announces the seat to current and future clients.
func (d *Display) AdvertiseSeat(s wire.Seat) {
	d.seat = &s
	d.Broadcast(wire.EvSeat, s)
}

// FlushClients writes every client's queued events. A client whose socket
// fails is disconnected.
func (d *Display) FlushClients() {
	for _, c := range d.Clients() {
		if err := c.Flush(); err != nil {
			d.Disconnect(c, err)
		}
	}
}

// PostError sends a fatal protocol error to c and disconnects it. Other
// clients are unaffected.
func (d *Display) PostError(c *Client, object, code uint32, message string) {
	if c.closed {
		return
	}
	c.logger.Warn("protocol error", "object", object, "code", code, "message", message)
	_ = c.Send(wire.DisplayObject, wire.EvError, wire.Error{Object: object, Code: code, Message: message})
	_ = c.Flush()
	d.Disconnect(c, nil)
}

// Disconnect closes c and runs the disconnect hooks. It is safe to call more
// than once.
func (d *Display) Disconnect(c *Client, reason error) {
	if _, ok := d.clients[c.id]; !ok {
		return
	}
	delete(d.clients, c.id)
	c.close()

	switch {
	case reason == nil, errors.Is(reason, io.EOF):
		c.logger.Info("client disconnected")
	default:
		c.logger.Warn("client dropped", "error", reason)
	}
	for _, fn := range d.onDisconnect {
		fn(c)
	}
}

// Close disconnects every client.
func (d *Display) Close() {
	for _, c := range d.Clients() {
		_ = c.Flush()
		d.Disconnect(c, nil)
	}
}
