package khigy

import "time"

// Status is a snapshot of the running compositor for control clients.
type Status struct {
	Backend   string       `json:"backend"`
	Seat      string       `json:"seat"`
	Output    OutputStatus `json:"output"`
	Clients   int          `json:"clients"`
	Toplevels int          `json:"toplevels"`
	Popups    int          `json:"popups"`
	Frames    uint64       `json:"frames"`
	Placement string       `json:"placement"`
	Uptime    string       `json:"uptime"`
}

// OutputStatus describes the single output.
type OutputStatus struct {
	Name      string `json:"name"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Refresh   int    `json:"refresh_mhz"`
	Transform string `json:"transform"`
	Scale     int    `json:"scale"`
}

// ToplevelInfo describes one mapped toplevel.
type ToplevelInfo struct {
	Client  uint32 `json:"client"`
	Surface uint32 `json:"surface"`
	Title   string `json:"title,omitempty"`
	AppID   string `json:"app_id,omitempty"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Focused bool   `json:"focused,omitempty"`
}

// Status reports the current compositor state.
func (s *State) Status() Status {
	phys := s.output.Physical()
	st := s.output.State()
	return Status{
		Backend: s.backend,
		Seat:    s.seat.Name(),
		Output: OutputStatus{
			Name:      s.output.Name(),
			Make:      phys.Make,
			Model:     phys.Model,
			Width:     st.Mode.Size.Width,
			Height:    st.Mode.Size.Height,
			Refresh:   st.Mode.Refresh,
			Transform: st.Transform.String(),
			Scale:     st.Scale,
		},
		Clients:   len(s.display.Clients()),
		Toplevels: len(s.shell.Mapped()),
		Popups:    len(s.shell.MappedPopups()),
		Frames:    s.frames,
		Placement: string(s.placement),
		Uptime:    time.Since(s.start).Round(time.Second).String(),
	}
}

// Toplevels lists mapped toplevels bottom to top with their placement.
func (s *State) Toplevels() []ToplevelInfo {
	focusRoot := s.seat.KeyboardFocus()
	if focusRoot != nil {
		focusRoot = focusRoot.Root()
	}
	scene := s.scene()
	out := make([]ToplevelInfo, 0, len(scene))
	for _, t := range s.shell.Mapped() {
		surf := t.Surface()
		info := ToplevelInfo{
			Client:  uint32(surf.Client()),
			Surface: surf.ID(),
			Title:   t.Title(),
			AppID:   t.AppID(),
			Focused: surf == focusRoot,
		}
		for _, p := range scene {
			if p.surface == surf {
				info.X, info.Y = p.loc.X, p.loc.Y
				break
			}
		}
		size := surf.Current().Buffer.Size()
		info.Width, info.Height = size.Width, size.Height
		out = append(out, info)
	}
	return out
}
