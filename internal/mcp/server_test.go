package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/1broseidon/khigy/internal/ipc"
	"github.com/1broseidon/khigy/internal/khigy"
)

type fakeCompositor struct {
	status    ipc.StatusData
	toplevels []khigy.ToplevelInfo
	err       error
	quits     int
}

func (f *fakeCompositor) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.status, nil
}

func (f *fakeCompositor) ListToplevelsByApp(appID string) (*ipc.ToplevelsData, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []khigy.ToplevelInfo
	for _, t := range f.toplevels {
		if appID == "" || t.AppID == appID {
			out = append(out, t)
		}
	}
	return &ipc.ToplevelsData{Toplevels: out}, nil
}

func (f *fakeCompositor) Quit() error {
	f.quits++
	return f.err
}

func TestHandleStatus(t *testing.T) {
	fake := &fakeCompositor{status: khigy.Status{Backend: "offscreen", Clients: 3, Frames: 9}}
	s := NewServer(fake, nil)

	_, out, err := s.handleStatus(context.Background(), nil, StatusInput{})
	if err != nil {
		t.Fatalf("handleStatus: %v", err)
	}
	if out.Status != fake.status {
		t.Errorf("status = %+v, want %+v", out.Status, fake.status)
	}

	fake.err = errors.New("is khigy running?")
	if _, _, err := s.handleStatus(context.Background(), nil, StatusInput{}); err == nil {
		t.Fatal("expected error when compositor is unreachable")
	}
}

func TestHandleListToplevels(t *testing.T) {
	fake := &fakeCompositor{toplevels: []khigy.ToplevelInfo{
		{Client: 1, Surface: 2, AppID: "foot"},
		{Client: 2, Surface: 7, AppID: "khigy-demo", Focused: true},
		{Client: 2, Surface: 9, AppID: "khigy-demo"},
	}}
	s := NewServer(fake, nil)

	tests := []struct {
		name        string
		appID       string
		wantSurface []uint32
		wantFocused *uint32
	}{
		{"all", "", []uint32{2, 7, 9}, ptr(uint32(7))},
		{"filtered", "foot", []uint32{2}, nil},
		{"no match", "missing", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := s.handleListToplevels(context.Background(), nil, ListToplevelsInput{AppID: tt.appID})
			if err != nil {
				t.Fatalf("handleListToplevels: %v", err)
			}
			if out.Toplevels == nil {
				t.Fatal("toplevels must be non-nil")
			}
			var got []uint32
			for _, tl := range out.Toplevels {
				got = append(got, tl.Surface)
			}
			if len(got) != len(tt.wantSurface) {
				t.Fatalf("surfaces = %v, want %v", got, tt.wantSurface)
			}
			for i := range got {
				if got[i] != tt.wantSurface[i] {
					t.Fatalf("surfaces = %v, want %v", got, tt.wantSurface)
				}
			}
			switch {
			case tt.wantFocused == nil && out.Focused != nil:
				t.Errorf("focused = %d, want none", *out.Focused)
			case tt.wantFocused != nil && (out.Focused == nil || *out.Focused != *tt.wantFocused):
				t.Errorf("focused = %v, want %d", out.Focused, *tt.wantFocused)
			}
		})
	}
}

func TestHandleQuitRequiresConfirm(t *testing.T) {
	fake := &fakeCompositor{}
	s := NewServer(fake, nil)

	if _, _, err := s.handleQuit(context.Background(), nil, QuitInput{}); err == nil {
		t.Fatal("expected refusal without confirm")
	}
	if fake.quits != 0 {
		t.Fatalf("quit called %d times without confirm", fake.quits)
	}

	res, _, err := s.handleQuit(context.Background(), nil, QuitInput{Confirm: true})
	if err != nil {
		t.Fatalf("handleQuit: %v", err)
	}
	if fake.quits != 1 {
		t.Errorf("quits = %d, want 1", fake.quits)
	}
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func ptr[T any](v T) *T { return &v }
