package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
)

// Monitor represents a physical display
type Monitor struct {
	ID       int
	Name     string
	X        int
	Y        int
	Width    int
	Height   int
	WidthMM  int
	HeightMM int
	// RefreshMHz is the refresh rate of the active mode in millihertz.
	RefreshMHz int
	Subpixel   uint8
}

// Contains reports whether the root-window point lies on the monitor.
func (m Monitor) Contains(x, y int) bool {
	return x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	// Initialize RandR if not already done
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	// Get screen resources
	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	modes := make(map[uint32]randr.ModeInfo, len(resources.Modes))
	for _, m := range resources.Modes {
		modes[m.Id] = m
	}

	var monitors []Monitor

	// Query each CRTC for active monitors
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		mon := Monitor{
			ID:     i,
			Name:   fmt.Sprintf("Monitor%d", i),
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		}
		if mode, ok := modes[uint32(crtcInfo.Mode)]; ok {
			mon.RefreshMHz = refreshMHz(mode)
		}

		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			mon.Name = string(outputInfo.Name)
			mon.WidthMM = int(outputInfo.MmWidth)
			mon.HeightMM = int(outputInfo.MmHeight)
			mon.Subpixel = outputInfo.SubPixelOrder
		}

		monitors = append(monitors, mon)
	}

	return monitors, nil
}

// refreshMHz derives the vertical refresh of a mode line.
func refreshMHz(m randr.ModeInfo) int {
	total := uint64(m.Htotal) * uint64(m.Vtotal)
	if total == 0 {
		return 0
	}
	return int(uint64(m.DotClock) * 1000 / total)
}

// PointerMonitor returns the monitor under the mouse cursor, falling back to
// the first monitor.
func (c *Connection) PointerMonitor() (*Monitor, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, fmt.Errorf("no monitors found")
	}

	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err == nil {
		x, y := int(pointer.RootX), int(pointer.RootY)
		for i := range monitors {
			if monitors[i].Contains(x, y) {
				return &monitors[i], nil
			}
		}
	}
	return &monitors[0], nil
}

// Subpixel orders as reported by RandR.
const (
	SubpixelUnknown       = render.SubPixelUnknown
	SubpixelHorizontalRGB = render.SubPixelHorizontalRGB
	SubpixelHorizontalBGR = render.SubPixelHorizontalBGR
	SubpixelVerticalRGB   = render.SubPixelVerticalRGB
	SubpixelVerticalBGR   = render.SubPixelVerticalBGR
	SubpixelNone          = render.SubPixelNone
)
