package backend

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"

	"github.com/1broseidon/khigy/internal/input"
	"github.com/1broseidon/khigy/internal/output"
	"github.com/1broseidon/khigy/internal/platform"
)

// Offscreen renders into memory. Events are injected by the embedding code
// or by tests.
type Offscreen struct {
	output *output.Output

	frame   *image.RGBA
	staging *image.RGBA

	queue  []Event
	closed bool
	lost   error

	frames     int
	lastDamage []platform.Rect

	captureDir   string
	captureEvery int
}

// NewOffscreen creates an in-memory target of the configured size.
func NewOffscreen(opts Options) (*Offscreen, error) {
	if opts.CaptureDir != "" {
		if err := os.MkdirAll(opts.CaptureDir, 0o755); err != nil {
			return nil, fmt.Errorf("create capture dir: %w", err)
		}
	}
	every := opts.CaptureEvery
	if every <= 0 {
		every = 1
	}
	size := platform.Size{Width: opts.Width, Height: opts.Height}
	refresh := opts.RefreshMHz
	if refresh <= 0 {
		refresh = DefaultRefreshMHz
	}
	return &Offscreen{
		output:       newOutput("offscreen", output.PhysicalProperties{Make: "Khigy", Model: "Offscreen"}, size, refresh),
		staging:      image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)),
		captureDir:   opts.CaptureDir,
		captureEvery: every,
	}, nil
}

func (o *Offscreen) Name() string           { return "offscreen" }
func (o *Offscreen) Output() *output.Output { return o.output }
func (o *Offscreen) sealed()                {}

// Inject queues an input event for the next poll.
func (o *Offscreen) Inject(ev input.Event) {
	o.queue = append(o.queue, Input{Event: ev})
}

// Resize queues a target resize for the next poll.
func (o *Offscreen) Resize(size platform.Size) {
	o.queue = append(o.queue, Resized{Size: size})
}

// Close marks the target closed; the next poll reports ErrWindowClosed. It
// also serves as the Backend teardown.
func (o *Offscreen) Close() error {
	o.closed = true
	return nil
}

// Lose makes every later Bind and Submit fail with err.
func (o *Offscreen) Lose(err error) {
	o.lost = err
}

// Frames returns the number of submitted frames.
func (o *Offscreen) Frames() int { return o.frames }

// LastFrame returns the most recently submitted frame, or nil.
func (o *Offscreen) LastFrame() *image.RGBA { return o.frame }

// LastDamage returns the damage of the most recent submission.
func (o *Offscreen) LastDamage() []platform.Rect { return o.lastDamage }

func (o *Offscreen) dispatch(handle func(Event)) error {
	if o.closed {
		o.queue = nil
		return ErrWindowClosed
	}
	queue := o.queue
	o.queue = nil
	for _, ev := range queue {
		if r, ok := ev.(Resized); ok {
			if r.Size.Empty() {
				continue
			}
			o.staging = image.NewRGBA(image.Rect(0, 0, r.Size.Width, r.Size.Height))
		}
		handle(ev)
	}
	return nil
}

// Bind returns the staging image.
func (o *Offscreen) Bind() (*image.RGBA, error) {
	if o.lost != nil {
		return nil, o.lost
	}
	if o.closed {
		return nil, ErrWindowClosed
	}
	return o.staging, nil
}

// Submit snapshots the staging image as the presented frame.
func (o *Offscreen) Submit(damage []platform.Rect) error {
	if o.lost != nil {
		return o.lost
	}
	if o.closed {
		return ErrWindowClosed
	}
	frame := image.NewRGBA(o.staging.Rect)
	copy(frame.Pix, o.staging.Pix)
	o.frame = frame
	o.lastDamage = slices.Clone(damage)
	o.frames++

	if o.captureDir != "" && o.frames%o.captureEvery == 0 {
		return o.capture(frame)
	}
	return nil
}

func (o *Offscreen) capture(frame *image.RGBA) error {
	path := filepath.Join(o.captureDir, fmt.Sprintf("frame-%06d.png", o.frames))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("encode frame: %w", err)
	}
	return f.Close()
}
