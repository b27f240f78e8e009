// Package driver paces a virtual machine in frames: it routes key events, runs a fixed
// number of cycles per frame, ticks the timers and hands the display to a renderer.
package driver

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/retroenv/retrochip8/internal/vm"
	"github.com/retroenv/retrogolib/log"
)

// Default frame pacing.
const (
	DefaultCyclesPerFrame = 20
	DefaultFrameRate      = 60
)

// KeyEvent is a key press, a key release or a halt request from a front end.
type KeyEvent struct {
	Code    uint8
	Pressed bool
	Halt    bool
}

// Renderer presents the display of the machine.
type Renderer interface {
	Render(display *vm.Display) error
}

// Config controls the frame pacing.
type Config struct {
	CyclesPerFrame int
	FrameRate      int // frames per second, 0 runs frames back to back
	MaxFrames      int // 0 runs until the machine halts or the context is cancelled

	Trace io.Writer // receives the memory listing whenever it changes
}

// DefaultConfig returns the default pacing of 20 cycles per frame at 60 frames per second.
func DefaultConfig() Config {
	return Config{
		CyclesPerFrame: DefaultCyclesPerFrame,
		FrameRate:      DefaultFrameRate,
	}
}

// Driver runs a machine frame by frame. It is the only caller of the machine.
type Driver struct {
	logger   *log.Logger
	machine  *vm.Machine
	cfg      Config
	renderer Renderer
	events   <-chan KeyEvent

	frames    int
	lastTrace []vm.TraceEntry
}

// New returns a new driver. The renderer and the event channel are optional.
func New(logger *log.Logger, machine *vm.Machine, cfg Config, renderer Renderer, events <-chan KeyEvent) *Driver {
	if cfg.CyclesPerFrame <= 0 {
		cfg.CyclesPerFrame = DefaultCyclesPerFrame
	}
	return &Driver{
		logger:   logger,
		machine:  machine,
		cfg:      cfg,
		renderer: renderer,
		events:   events,
	}
}

// Frames returns the number of frames executed.
func (d *Driver) Frames() int {
	return d.frames
}

// Frame executes a single frame. It returns the halt error of the machine once it halted.
func (d *Driver) Frame() error {
	d.drainEvents()
	if d.machine.Halted() {
		return d.machine.Err()
	}
	d.frames++

	var listing []vm.TraceEntry
	for range d.cfg.CyclesPerFrame {
		if d.machine.Waiting() || d.machine.Halted() {
			break
		}

		clearing := d.machine.NextInstruction().Kind == vm.KindClear
		if entries := d.machine.Cycle(); entries != nil {
			listing = entries
		}
		if clearing {
			if err := d.render(); err != nil {
				return err
			}
		}
	}

	if !d.machine.Waiting() {
		d.machine.TickTimers()
	}

	if err := d.render(); err != nil {
		return err
	}
	if err := d.writeTrace(listing); err != nil {
		return err
	}

	if d.machine.Halted() {
		return d.machine.Err()
	}
	return nil
}

// Run executes frames until the context is cancelled, the frame limit is reached or the
// machine halts.
func (d *Driver) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if d.cfg.FrameRate > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(d.cfg.FrameRate))
		defer ticker.Stop()
		tick = ticker.C
	}

	defer func() {
		d.logger.Debug("Driver stopped", log.Int("frames", d.frames))
	}()

	for {
		if d.cfg.MaxFrames > 0 && d.frames >= d.cfg.MaxFrames {
			return nil
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := d.Frame(); err != nil {
			if d.machine.Halted() {
				d.logger.Info("Machine halted",
					log.Stringer("reason", d.machine.HaltReason()),
					log.String("message", d.machine.HaltMessage()),
					log.Hex("pc", d.machine.PC()))
			}
			return err
		}
	}
}

// drainEvents applies all pending key events without blocking.
func (d *Driver) drainEvents() {
	if d.events == nil {
		return
	}

	for {
		select {
		case event, ok := <-d.events:
			if !ok {
				d.events = nil
				return
			}
			d.apply(event)
		default:
			return
		}
	}
}

func (d *Driver) apply(event KeyEvent) {
	switch {
	case event.Halt:
		d.machine.Halt(vm.ReasonExternal, "user halted execution")
	case event.Pressed:
		d.machine.PressKey(event.Code)
	default:
		d.machine.ReleaseKey()
	}
}

func (d *Driver) render() error {
	if d.renderer == nil {
		return nil
	}
	if err := d.renderer.Render(d.machine.Display()); err != nil {
		return fmt.Errorf("rendering frame: %w", err)
	}
	return nil
}

// writeTrace writes the listing if it differs from the last one written.
func (d *Driver) writeTrace(listing []vm.TraceEntry) error {
	if d.cfg.Trace == nil || listing == nil || slices.Equal(listing, d.lastTrace) {
		return nil
	}
	d.lastTrace = listing

	for _, entry := range listing {
		if _, err := fmt.Fprintln(d.cfg.Trace, entry.String()); err != nil {
			return fmt.Errorf("writing trace: %w", err)
		}
	}
	if _, err := fmt.Fprintln(d.cfg.Trace); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}
