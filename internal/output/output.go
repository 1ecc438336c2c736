// Package output models the single display sink the compositor drives.
package output

import (
	"github.com/1broseidon/khigy/internal/platform"
)

// Subpixel describes the subpixel layout reported to clients.
type Subpixel int

const (
	SubpixelUnknown Subpixel = iota
	SubpixelNone
	SubpixelHorizontalRGB
	SubpixelHorizontalBGR
	SubpixelVerticalRGB
	SubpixelVerticalBGR
)

// Mode is a pixel size plus refresh rate in mHz.
type Mode struct {
	Size    platform.Size
	Refresh int
}

// PhysicalProperties is the static metadata advertised with the output.
type PhysicalProperties struct {
	SizeMM   platform.Size
	Subpixel Subpixel
	Make     string
	Model    string
}

// State is a snapshot of the mutable output state.
type State struct {
	Mode      Mode
	Preferred Mode
	Transform platform.Transform
	Scale     int
	Location  platform.Point
}

// Output is a display sink. There is exactly one per compositor process; it is
// only touched from the event loop goroutine.
type Output struct {
	name     string
	physical PhysicalProperties
	state    State
	hasMode  bool

	listeners []func(State)
}

// New creates an output with no mode. The backend sets one right after.
func New(name string, physical PhysicalProperties) *Output {
	return &Output{
		name:     name,
		physical: physical,
		state: State{
			Transform: platform.TransformNormal,
			Scale:     1,
		},
	}
}

func (o *Output) Name() string                 { return o.name }
func (o *Output) Physical() PhysicalProperties { return o.physical }
func (o *Output) State() State                 { return o.state }

// CurrentMode returns the active mode and whether one has been set.
func (o *Output) CurrentMode() (Mode, bool) {
	return o.state.Mode, o.hasMode
}

// Geometry returns the output rectangle in compositor space.
func (o *Output) Geometry() platform.Rect {
	return platform.RectFromLocAndSize(o.state.Location, o.state.Mode.Size)
}

// ChangeCurrentState applies the non-nil fields and notifies listeners once if
// anything changed.
func (o *Output) ChangeCurrentState(mode *Mode, transform *platform.Transform, scale *int, location *platform.Point) {
	next := o.state
	if mode != nil {
		next.Mode = *mode
		o.hasMode = true
	}
	if transform != nil {
		next.Transform = *transform
	}
	if scale != nil && *scale > 0 {
		next.Scale = *scale
	}
	if location != nil {
		next.Location = *location
	}
	if next == o.state {
		return
	}
	o.state = next
	for _, fn := range o.listeners {
		fn(next)
	}
}

// SetPreferred records the mode advertised as preferred.
func (o *Output) SetPreferred(mode Mode) {
	o.state.Preferred = mode
}

// OnChange registers fn to run after every effective state change.
func (o *Output) OnChange(fn func(State)) {
	o.listeners = append(o.listeners, fn)
}
