// Package khigy holds the compositor's root loop context: the state shared by
// every protocol role, the per-client request dispatch and the render tick.
package khigy

import (
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/1broseidon/khigy/internal/backend"
	"github.com/1broseidon/khigy/internal/compositor"
	"github.com/1broseidon/khigy/internal/datadevice"
	"github.com/1broseidon/khigy/internal/display"
	"github.com/1broseidon/khigy/internal/hotkeys"
	"github.com/1broseidon/khigy/internal/loop"
	"github.com/1broseidon/khigy/internal/output"
	"github.com/1broseidon/khigy/internal/render"
	"github.com/1broseidon/khigy/internal/seat"
	"github.com/1broseidon/khigy/internal/shell"
	"github.com/1broseidon/khigy/internal/tiling"
	"github.com/1broseidon/khigy/internal/wire"
)

// DefaultTickInterval is the render cadence when none is configured.
const DefaultTickInterval = 16 * time.Millisecond

// LoopData is the single value every loop callback receives. It is only
// touched from the loop goroutine.
type LoopData struct {
	State   *State
	Display *display.Display
	Backend backend.Backend
}

// Options configure a new compositor state.
type Options struct {
	Logger       *slog.Logger
	TickInterval time.Duration
	Placement    tiling.Mode
	Gap          int
	Background   color.RGBA
	Repeat       seat.RepeatInfo
	// Bindings maps key sequences to hotkey actions.
	Bindings map[string]string
	// Start is the instant frame timestamps count from. Zero means now.
	Start time.Time
}

// State is the compositor core: output, seat, shell and data-device state,
// plus the bookkeeping that ties protocol objects to clients.
type State struct {
	logger  *slog.Logger
	start   time.Time
	signal  *loop.LoopSignal
	backend string

	display  *display.Display
	output   *output.Output
	global   *output.Global
	seat     *seat.Seat
	shell    *shell.Shell
	data     *datadevice.State
	hotkeys  *hotkeys.Handler
	renderer *render.Renderer

	placement tiling.Mode
	gap       int
	interval  time.Duration

	// toplevelRefs maps toplevel surfaces to their role object.
	toplevelRefs map[*compositor.Surface]objectRef

	frames    uint64
	lastFrame render.Frame
}

// objectRef names the protocol object that owns a role.
type objectRef struct {
	client compositor.ClientID
	id     uint32
}

// NewLoopData builds the compositor state around an initialized backend and
// display. The backend's output is advertised to clients through disp.
func NewLoopData(b backend.Backend, disp *display.Display, signal *loop.LoopSignal, opts Options) (*LoopData, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if opts.Placement == "" {
		opts.Placement = tiling.ModeStack
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}

	st := &State{
		logger:       logger,
		start:        opts.Start,
		signal:       signal,
		display:      disp,
		output:       b.Output(),
		hotkeys:      hotkeys.NewHandler(logger),
		renderer:     render.NewRenderer(opts.Background),
		placement:    opts.Placement,
		gap:          opts.Gap,
		interval:     interval,
		toplevelRefs: make(map[*compositor.Surface]objectRef),
		backend:      b.Name(),
	}
	if err := st.hotkeys.RegisterAll(opts.Bindings); err != nil {
		return nil, fmt.Errorf("register bindings: %w", err)
	}

	st.shell = shell.New(st)
	st.data = datadevice.New(st)
	st.seat = seat.New("seat-"+b.Name(), st, st)
	st.seat.AddKeyboard(opts.Repeat)
	st.seat.AddPointer()

	st.global = st.output.CreateGlobal(disp)
	disp.AdvertiseSeat(st.seatInfo())
	disp.OnDisconnect(st.clientGone)

	return &LoopData{State: st, Display: disp, Backend: b}, nil
}

func (s *State) seatInfo() wire.Seat {
	var caps []string
	for _, c := range s.seat.Capabilities() {
		caps = append(caps, c.String())
	}
	repeat := s.seat.RepeatInfo()
	return wire.Seat{
		Name:         s.seat.Name(),
		Capabilities: caps,
		RepeatRate:   repeat.RateHz,
		RepeatDelay:  repeat.DelayMS,
	}
}

func (s *State) Output() *output.Output        { return s.output }
func (s *State) Seat() *seat.Seat              { return s.seat }
func (s *State) Shell() *shell.Shell           { return s.shell }
func (s *State) DataDevice() *datadevice.State { return s.data }
func (s *State) Frames() uint64                { return s.frames }
func (s *State) TickInterval() time.Duration   { return s.interval }
func (s *State) Placement() tiling.Mode        { return s.placement }
func (s *State) Logger() *slog.Logger          { return s.logger }

// LastFrame returns what the most recent presented frame contained.
func (s *State) LastFrame() render.Frame { return s.lastFrame }

// FrameTime is the timestamp handed to frame callbacks at now: milliseconds
// since the compositor started, wrapping at 32 bits.
func (s *State) FrameTime(now time.Time) uint32 {
	return uint32(now.Sub(s.start).Milliseconds())
}

// Close withdraws the output global. Clients are disconnected by the display.
func (s *State) Close() {
	if s.global != nil {
		s.global.Destroy()
		s.global = nil
	}
}

// Stop raises the loop stop signal.
func (s *State) Stop() {
	s.signal.Stop()
}
