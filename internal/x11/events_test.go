package x11

import (
	"errors"
	"image"
	"testing"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/khigy/internal/input"
)

const (
	testDeleteAtom   xproto.Atom = 10
	testProtocolAtom xproto.Atom = 11
)

// testWindow is a Window that never talks to a server; only translate is
// exercised.
func testWindow() *Window {
	return &Window{
		win:          &xwindow.Window{Id: 1},
		deleteAtom:   testDeleteAtom,
		protocolAtom: testProtocolAtom,
		width:        64,
		height:       48,
	}
}

type recorder struct {
	sizes  [][2]int
	events []input.Event
}

func (r *recorder) handler() Handler {
	return Handler{
		Resized: func(w, h int) { r.sizes = append(r.sizes, [2]int{w, h}) },
		Input:   func(ev input.Event) { r.events = append(r.events, ev) },
	}
}

func TestTranslateResizeSkipsUnchangedSize(t *testing.T) {
	w := testWindow()
	rec := &recorder{}
	events := []xgb.Event{
		xproto.ConfigureNotifyEvent{Window: 1, Width: 64, Height: 48},
		xproto.ConfigureNotifyEvent{Window: 1, Width: 100, Height: 80},
		xproto.ConfigureNotifyEvent{Window: 1, Width: 100, Height: 80},
		xproto.ConfigureNotifyEvent{Window: 2, Width: 10, Height: 10},
		xproto.ConfigureNotifyEvent{Window: 1, Width: 50, Height: 40},
	}
	for _, ev := range events {
		if err := w.translate(ev, rec.handler()); err != nil {
			t.Fatalf("translate(%T): %v", ev, err)
		}
	}

	want := [][2]int{{100, 80}, {50, 40}}
	if len(rec.sizes) != len(want) {
		t.Fatalf("resizes = %v, want %v", rec.sizes, want)
	}
	for i := range want {
		if rec.sizes[i] != want[i] {
			t.Fatalf("resizes = %v, want %v", rec.sizes, want)
		}
	}
	if gw, gh := w.Size(); gw != 50 || gh != 40 {
		t.Errorf("Size() = %dx%d, want 50x40", gw, gh)
	}
}

func TestTranslateClose(t *testing.T) {
	tests := []struct {
		name   string
		ev     xgb.Event
		closed bool
	}{
		{
			name: "delete window message",
			ev: xproto.ClientMessageEvent{
				Window: 1,
				Type:   testProtocolAtom,
				Data:   xproto.ClientMessageDataUnionData32New([]uint32{uint32(testDeleteAtom), 0, 0, 0, 0}),
			},
			closed: true,
		},
		{
			name: "other protocol message",
			ev: xproto.ClientMessageEvent{
				Window: 1,
				Type:   testProtocolAtom,
				Data:   xproto.ClientMessageDataUnionData32New([]uint32{99, 0, 0, 0, 0}),
			},
		},
		{
			name:   "window destroyed",
			ev:     xproto.DestroyNotifyEvent{Event: 1, Window: 1},
			closed: true,
		},
		{
			name: "other window destroyed",
			ev:   xproto.DestroyNotifyEvent{Event: 2, Window: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWindow()
			err := w.translate(tt.ev, Handler{})
			if tt.closed {
				if !errors.Is(err, ErrClosed) {
					t.Fatalf("translate error = %v, want ErrClosed", err)
				}
				if err := w.Dispatch(Handler{}); !errors.Is(err, ErrClosed) {
					t.Fatalf("Dispatch after close = %v, want ErrClosed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("translate: %v", err)
			}
			if w.closed {
				t.Fatal("window marked closed")
			}
		})
	}
}

func TestTranslateButtons(t *testing.T) {
	w := testWindow()
	rec := &recorder{}
	events := []xgb.Event{
		xproto.ButtonPressEvent{Detail: xproto.ButtonIndex1, Time: 5},
		xproto.ButtonReleaseEvent{Detail: xproto.ButtonIndex1, Time: 6},
		xproto.ButtonPressEvent{Detail: xproto.ButtonIndex4, Time: 7},
		xproto.ButtonReleaseEvent{Detail: xproto.ButtonIndex4, Time: 8},
		xproto.ButtonPressEvent{Detail: xproto.ButtonIndex5, Time: 9},
		xproto.ButtonReleaseEvent{Detail: xproto.ButtonIndex5, Time: 10},
		xproto.MotionNotifyEvent{EventX: 12, EventY: 34, Time: 11},
	}
	for _, ev := range events {
		if err := w.translate(ev, rec.handler()); err != nil {
			t.Fatalf("translate(%T): %v", ev, err)
		}
	}

	want := []input.Event{
		input.PointerButton{Time: 5, Button: input.BtnLeft, State: input.ButtonPressed},
		input.PointerButton{Time: 6, Button: input.BtnLeft, State: input.ButtonReleased},
		input.PointerAxis{Time: 7, Source: input.AxisSourceWheel, Vertical: -1},
		input.PointerAxis{Time: 9, Source: input.AxisSourceWheel, Vertical: 1},
		input.PointerMotionAbsolute{Time: 11, X: 12, Y: 34},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %+v, want %+v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, rec.events[i], want[i])
		}
	}
}

func TestModifiers(t *testing.T) {
	got := modifiers(xproto.ModMaskShift | xproto.ModMask1 | xproto.ModMask4)
	want := input.Modifiers{Shift: true, Alt: true, Logo: true}
	if got != want {
		t.Errorf("modifiers = %+v, want %+v", got, want)
	}
}

func TestCopyRGBAToBGRA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	copy(src.Pix, []uint8{1, 2, 3, 4, 5, 6, 7, 8})
	dst := make([]uint8, 8)
	copyRGBAToBGRA(dst, src)

	want := []uint8{3, 2, 1, 4, 7, 6, 5, 8}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst = %v, want %v", dst, want)
		}
	}
}
