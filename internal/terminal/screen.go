// Package terminal implements a text terminal front end for the virtual machine.
package terminal

import (
	"bufio"
	"fmt"
	"io"

	"github.com/retroenv/retrochip8/internal/vm"
)

// ANSI escape sequences.
const (
	clearScreen = "\x1b[2J"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

const (
	pixelOn  = "██"
	pixelOff = "  "
)

// Screen renders the display to a terminal using ANSI escape sequences. Every pixel is
// drawn as two character cells to compensate for the aspect ratio of terminal fonts.
type Screen struct {
	writer      *bufio.Writer
	initialized bool
}

// NewScreen returns a screen that writes to w.
func NewScreen(w io.Writer) *Screen {
	return &Screen{
		writer: bufio.NewWriter(w),
	}
}

// Render draws the display. The first call draws the full frame, later calls only redraw
// the pixels that changed since the previous call.
func (s *Screen) Render(display *vm.Display) error {
	if !s.initialized {
		s.initialized = true
		return s.renderFull(display)
	}
	if !display.Dirty() {
		return nil
	}

	display.Sync(func(x, y int, on bool) {
		moveTo(s.writer, x, y)
		_, _ = s.writer.WriteString(cell(on))
	})
	return s.flush()
}

// Close restores the cursor and moves it below the display.
func (s *Screen) Close() error {
	_, _ = fmt.Fprintf(s.writer, "\x1b[%d;1H\r\n%s", vm.DisplayHeight+1, showCursor)
	return s.flush()
}

func (s *Screen) renderFull(display *vm.Display) error {
	_, _ = s.writer.WriteString(clearScreen + hideCursor)
	for y := range display.Height() {
		moveTo(s.writer, 0, y)
		for x := range display.Width() {
			_, _ = s.writer.WriteString(cell(display.Pixel(x, y)))
		}
	}
	display.Sync(nil)
	return s.flush()
}

func (s *Screen) flush() error {
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("writing to terminal: %w", err)
	}
	return nil
}

// moveTo positions the cursor at the cells of the given pixel, terminal positions are 1 based.
func moveTo(w *bufio.Writer, x, y int) {
	_, _ = fmt.Fprintf(w, "\x1b[%d;%dH", y+1, 2*x+1)
}

func cell(on bool) string {
	if on {
		return pixelOn
	}
	return pixelOff
}

// WriteFrame writes a plain text dump of the display, one line per pixel row
// with '#' for set and '.' for cleared pixels.
func WriteFrame(w io.Writer, display *vm.Display) error {
	buf := bufio.NewWriter(w)
	for y := range display.Height() {
		for x := range display.Width() {
			if display.Pixel(x, y) {
				_ = buf.WriteByte('#')
			} else {
				_ = buf.WriteByte('.')
			}
		}
		_ = buf.WriteByte('\n')
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}
