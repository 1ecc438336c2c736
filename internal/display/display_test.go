package display

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/1broseidon/khigy/internal/output"
	"github.com/1broseidon/khigy/internal/platform"
	"github.com/1broseidon/khigy/internal/wire"
)

// pair returns the server side of a fresh unix socket connection and the
// peer used by the test as the client.
func pair(t *testing.T) (server, peer net.Conn) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()
	peer, err = net.Dial("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })

	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("accept timed out")
	}
	return server, peer
}

func notifier() (func(*Client), chan *Client) {
	ch := make(chan *Client, 16)
	return func(c *Client) { ch <- c }, ch
}

func wait(t *testing.T, ch chan *Client) *Client {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no notification")
		return nil
	}
}

func readEvent(t *testing.T, r io.Reader) wire.Message {
	t.Helper()
	msg, err := wire.ReadMessage(r)
	require.NoError(t, err)
	return msg
}

func TestNewClientGetsHelloAndOutputs(t *testing.T) {
	d := New(nil, wire.CompressLZ4)
	out := output.New("offscreen", output.PhysicalProperties{Make: "Khigy", Model: "Offscreen"})
	mode := output.Mode{Size: platform.Size{Width: 320, Height: 200}, Refresh: 60000}
	out.ChangeCurrentState(&mode, nil, nil, nil)
	out.CreateGlobal(d)
	d.AdvertiseSeat(wire.Seat{Name: "seat0", Capabilities: []string{"keyboard", "pointer"}})

	server, peer := pair(t)
	notify, _ := notifier()
	c := d.AddClient(server, notify)
	require.NoError(t, c.Flush())

	require.NoError(t, wire.ReadHello(peer))
	msg := readEvent(t, peer)
	require.Equal(t, wire.EvOutput, msg.Opcode)
	var ev wire.Output
	require.NoError(t, msg.Decode(&ev))
	require.Equal(t, "offscreen", ev.Name)
	require.Equal(t, 320, ev.Width)
	require.Equal(t, 60000, ev.Refresh)
	require.Equal(t, "normal", ev.Transform)

	msg = readEvent(t, peer)
	require.Equal(t, wire.EvSeat, msg.Opcode)
}

func TestRequestsAreQueuedAndNotified(t *testing.T) {
	d := New(nil, wire.CompressNone)
	server, peer := pair(t)
	notify, ch := notifier()
	c := d.AddClient(server, notify)

	require.NoError(t, wire.WriteHello(peer))
	require.NoError(t, wire.WriteMessage(peer, wire.DisplayObject, wire.OpCreateSurface, wire.CreateSurface{ID: 2}, wire.CompressNone))
	require.NoError(t, wire.WriteMessage(peer, 2, wire.OpSurfaceCommit, wire.Empty{}, wire.CompressNone))

	require.Same(t, c, wait(t, ch))
	var got []wire.Message
	require.Eventually(t, func() bool {
		msgs, _ := c.Take()
		got = append(got, msgs...)
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, wire.OpCreateSurface, got[0].Opcode)
	require.Equal(t, uint32(2), got[1].Object)

	peer.Close()
	require.Eventually(t, func() bool {
		_, err := c.Take()
		return err == io.EOF
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBadHelloIsReported(t *testing.T) {
	d := New(nil, wire.CompressNone)
	server, peer := pair(t)
	notify, ch := notifier()
	c := d.AddClient(server, notify)

	_, err := peer.Write([]byte("not a khigy client"))
	require.NoError(t, err)
	wait(t, ch)
	_, err = c.Take()
	require.ErrorIs(t, err, wire.ErrInvalidMagic)
}

func TestPostErrorDisconnectsOnlyThatClient(t *testing.T) {
	d := New(nil, wire.CompressNone)
	var gone []*Client
	d.OnDisconnect(func(c *Client) { gone = append(gone, c) })

	s1, p1 := pair(t)
	s2, p2 := pair(t)
	notify, _ := notifier()
	bad := d.AddClient(s1, notify)
	good := d.AddClient(s2, notify)
	d.FlushClients()
	require.NoError(t, wire.ReadHello(p1))
	require.NoError(t, wire.ReadHello(p2))

	d.PostError(bad, 7, 3, "role already assigned")
	require.Equal(t, []*Client{bad}, gone)
	require.True(t, bad.Closed())
	_, ok := d.Client(bad.ID())
	require.False(t, ok)

	msg := readEvent(t, p1)
	require.Equal(t, wire.EvError, msg.Opcode)
	var perr wire.Error
	require.NoError(t, msg.Decode(&perr))
	require.Equal(t, uint32(7), perr.Object)
	_, err := wire.ReadMessage(p1)
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, good.Send(wire.DisplayObject, wire.EvCallbackDone, wire.CallbackDone{Data: 1}))
	d.FlushClients()
	require.Equal(t, wire.EvCallbackDone, readEvent(t, p2).Opcode)
	require.Len(t, d.Clients(), 1)

	// Second disconnect is a no-op.
	d.Disconnect(bad, nil)
	require.Len(t, gone, 1)
}

func TestObjectTable(t *testing.T) {
	c := &Client{objects: make(map[uint32]any)}
	require.ErrorIs(t, c.AddObject(0, "x"), ErrReservedID)
	require.ErrorIs(t, c.AddObject(wire.DisplayObject, "x"), ErrReservedID)
	require.NoError(t, c.AddObject(5, "a"))
	require.NoError(t, c.AddObject(3, "b"))
	require.ErrorIs(t, c.AddObject(5, "c"), ErrObjectExists)
	require.Equal(t, []uint32{3, 5}, c.ObjectIDs())

	c.RemoveObject(5)
	_, ok := c.Object(5)
	require.False(t, ok)
}

func TestListenerServeAndShutdown(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv(EnvDisplay, "")

	l, err := Listen("", nil)
	require.NoError(t, err)
	require.Equal(t, "khigy-1", l.Name())
	require.NoError(t, l.Export())
	require.Equal(t, "khigy-1", os.Getenv(EnvDisplay))

	ctx, cancel := context.WithCancel(context.Background())
	conns := make(chan net.Conn, 1)
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, func(c net.Conn) { conns <- c }) }()

	peer, err := net.Dial("unix", l.Path())
	require.NoError(t, err)
	defer peer.Close()
	select {
	case c := <-conns:
		c.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("connection not handed over")
	}

	// A second compositor must not steal the name.
	_, err = Listen("khigy-1", nil)
	require.Error(t, err)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	_, err = os.Stat(l.Path())
	require.True(t, os.IsNotExist(err))
}

func TestFlushDoesNotBlockOnStalledClient(t *testing.T) {
	old := maxOutboxBytes
	maxOutboxBytes = 512 << 10
	t.Cleanup(func() { maxOutboxBytes = old })

	d := New(nil, wire.CompressNone)
	var gone []*Client
	d.OnDisconnect(func(c *Client) { gone = append(gone, c) })
	s1, _ := pair(t)
	s2, p2 := pair(t)
	notify, _ := notifier()
	stalled := d.AddClient(s1, notify)
	d.AddClient(s2, notify)

	// The stalled peer never reads; its socket buffer fills and its writer
	// blocks, but the loop keeps flushing without waiting.
	chunk := wire.OfferData{Transfer: 1, MimeType: "text/plain", Data: make([]byte, 64<<10)}
	for i := 0; i < 200 && len(gone) == 0; i++ {
		require.NoError(t, stalled.Send(wire.DisplayObject, wire.EvOfferData, chunk))
		start := time.Now()
		d.FlushClients()
		require.Less(t, time.Since(start), 500*time.Millisecond)
	}
	require.Equal(t, []*Client{stalled}, gone)
	require.Len(t, d.Clients(), 1)

	require.NoError(t, wire.ReadHello(p2))
}

func TestInboxIsBoundedByDecompressedBytes(t *testing.T) {
	old := maxInboxBytes
	maxInboxBytes = 16 << 10
	t.Cleanup(func() { maxInboxBytes = old })

	d := New(nil, wire.CompressNone)
	server, peer := pair(t)
	notify, ch := notifier()
	c := d.AddClient(server, notify)

	// 64 KiB of zeros compresses to a few hundred bytes on the wire.
	attach := wire.Attach{Buffer: &wire.Buffer{Width: 128, Height: 128, Pixels: make([]byte, 128*128*4)}}
	require.NoError(t, wire.WriteHello(peer))
	require.NoError(t, wire.WriteMessage(peer, 2, wire.OpSurfaceAttach, attach, wire.CompressLZ4))

	wait(t, ch)
	msgs, err := c.Take()
	require.Empty(t, msgs)
	require.ErrorIs(t, err, errInboxOverflow)
}
