package runtimepath

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got == "" {
		t.Fatal("Dir() returned empty path")
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/khigy-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestControlAndDisplaySocketPaths(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	socket, err := ControlSocketPath()
	if err != nil {
		t.Fatalf("ControlSocketPath() error: %v", err)
	}
	if !strings.HasSuffix(socket, "/khigy-control.sock") {
		t.Fatalf("ControlSocketPath() = %q, missing suffix", socket)
	}

	got, err := DisplaySocketPath("khigy-3")
	if err != nil {
		t.Fatalf("DisplaySocketPath() error: %v", err)
	}
	if got != filepath.Join(td, "khigy-3") {
		t.Fatalf("DisplaySocketPath() = %q", got)
	}
	if got, _ := DisplaySocketPath("/tmp/x.sock"); got != "/tmp/x.sock" {
		t.Fatalf("absolute name rewritten to %q", got)
	}
}

func TestFreeDisplayName_SkipsLiveAndReclaimsStale(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	ln, err := net.Listen("unix", filepath.Join(td, "khigy-1"))
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// A leftover file nobody listens on.
	if err := os.WriteFile(filepath.Join(td, "khigy-2"), nil, 0600); err != nil {
		t.Fatalf("write stale: %v", err)
	}

	name, err := FreeDisplayName()
	if err != nil {
		t.Fatalf("FreeDisplayName() error: %v", err)
	}
	if name != "khigy-2" {
		t.Fatalf("FreeDisplayName() = %q, want khigy-2", name)
	}
	if _, err := os.Stat(filepath.Join(td, "khigy-2")); !os.IsNotExist(err) {
		t.Fatalf("stale socket not removed: %v", err)
	}
}
