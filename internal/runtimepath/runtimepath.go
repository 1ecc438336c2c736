package runtimepath

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// MaxDisplays bounds the auto-named client sockets khigy-1 .. khigy-N.
const MaxDisplays = 32

// ErrNoFreeDisplay is returned when every auto-named socket is in use.
var ErrNoFreeDisplay = errors.New("no free display socket name")

// Dir returns the runtime directory used for khigy sockets. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) /tmp/khigy-runtime-<uid> (created)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	runUserDir := fmt.Sprintf("/run/user/%d", uid)
	if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
		return runUserDir, nil
	}

	tmpDir := fmt.Sprintf("/tmp/khigy-runtime-%d", uid)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// ControlSocketPath returns the control IPC socket path.
func ControlSocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, "khigy-control.sock"), nil
}

// DisplaySocketPath resolves a client socket name. Absolute names are used as
// they are; relative names live in the runtime directory.
func DisplaySocketPath(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, name), nil
}

// FreeDisplayName picks the first khigy-N whose socket is missing or stale.
// Stale sockets (nothing answers a dial) are removed.
func FreeDisplayName() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	for n := 1; n <= MaxDisplays; n++ {
		name := fmt.Sprintf("khigy-%d", n)
		path := filepath.Join(runtimeDir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return name, nil
		}
		if InUse(path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			continue
		}
		return name, nil
	}
	return "", ErrNoFreeDisplay
}

// InUse reports whether something is accepting connections on path.
func InUse(path string) bool {
	conn, err := net.DialTimeout("unix", path, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
