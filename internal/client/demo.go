package client

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/1broseidon/khigy/internal/wire"
)

// DemoOptions configure RunDemo.
type DemoOptions struct {
	Title         string
	Width, Height int
	// Frames stops the demo after that many frame callbacks. Zero runs until
	// the toplevel is closed or ctx ends.
	Frames int
	// Clipboard is offered as text/plain when the demo gains keyboard focus.
	Clipboard string
}

// RunDemo maps one animated toplevel and logs the input it receives. Each
// frame callback redraws with a shifted color and requests the next one.
func RunDemo(ctx context.Context, c *Conn, opts DemoOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 240, 160
	}

	surf, err := c.CreateSurface()
	if err != nil {
		return err
	}
	top, err := surf.Toplevel()
	if err != nil {
		return err
	}
	if opts.Title != "" {
		if err := top.SetTitle(opts.Title); err != nil {
			return err
		}
	}
	if err := top.SetAppID("khigy-demo"); err != nil {
		return err
	}

	var source uint32
	if opts.Clipboard != "" {
		if source, err = c.CreateDataSource("text/plain"); err != nil {
			return err
		}
	}

	frame := 0
	pending, err := drawFrame(surf, opts.Width, opts.Height, frame)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-c.Events():
			if !ok {
				return c.Err()
			}
			switch msg.Opcode {
			case wire.EvCallbackDone:
				if msg.Object != pending {
					continue
				}
				frame++
				if opts.Frames > 0 && frame >= opts.Frames {
					logger.Info("demo finished", "frames", frame)
					return nil
				}
				if pending, err = drawFrame(surf, opts.Width, opts.Height, frame); err != nil {
					return err
				}

			case wire.EvToplevelClosed:
				logger.Info("toplevel closed by compositor")
				return nil

			case wire.EvError:
				var perr wire.Error
				if err := msg.Decode(&perr); err != nil {
					return err
				}
				return fmt.Errorf("protocol error on object %d: %s", perr.Object, perr.Message)

			case wire.EvKeyboardEnter:
				var ev wire.KeyboardEnter
				if err := msg.Decode(&ev); err != nil {
					return err
				}
				logger.Info("keyboard focus", "surface", ev.Surface)
				if source != 0 {
					if err := c.SetSelection(source, ev.Serial); err != nil {
						return err
					}
				}

			case wire.EvKey:
				var ev wire.Key
				if err := msg.Decode(&ev); err != nil {
					return err
				}
				logger.Info("key", "key", ev.Key, "state", ev.State)

			case wire.EvPointerButton:
				var ev wire.PointerButton
				if err := msg.Decode(&ev); err != nil {
					return err
				}
				logger.Info("button", "button", ev.Button, "state", ev.State)

			case wire.EvSourceSend:
				var ev wire.SourceSend
				if err := msg.Decode(&ev); err != nil {
					return err
				}
				if err := c.SourceData(source, ev.Transfer, []byte(opts.Clipboard)); err != nil {
					return err
				}

			default:
				logger.Debug("event", "event", msg.Opcode, "object", msg.Object)
			}
		}
	}
}

// drawFrame attaches a fresh buffer, asks for a frame callback and commits.
func drawFrame(surf *Surface, width, height, frame int) (uint32, error) {
	if err := surf.Attach(demoImage(width, height, frame)); err != nil {
		return 0, err
	}
	if err := surf.Damage(0, 0, width, height); err != nil {
		return 0, err
	}
	cb, err := surf.Frame()
	if err != nil {
		return 0, err
	}
	return cb, surf.Commit()
}

func demoImage(width, height, frame int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	shift := uint8(frame * 3)
	for y := range height {
		for x := range width {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x*255/width) + shift,
				G: uint8(y*255/height) + shift,
				B: 0x80 + shift,
				A: 0xff,
			})
		}
	}
	return img
}
