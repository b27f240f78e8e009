package terminal

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/retroenv/retrochip8/internal/driver"
	"github.com/retroenv/retrochip8/internal/vm"
	"github.com/retroenv/retrogolib/log"
)

// DefaultHoldDuration is how long a key counts as held after it was typed.
const DefaultHoldDuration = 150 * time.Millisecond

const (
	keyEscape    = 0x1b
	keyInterrupt = 0x03 // ctrl+c, raw mode does not deliver it as a signal
)

// Keyboard translates bytes read from a terminal into key events.
// Terminals do not report key releases, a release is emitted once a key was not
// typed again for the hold duration.
type Keyboard struct {
	logger *log.Logger
	reader io.Reader
	hold   time.Duration

	events  chan driver.KeyEvent
	presses chan driver.KeyEvent
}

// NewKeyboard returns a keyboard reading from r. A hold duration of 0 uses the default.
func NewKeyboard(logger *log.Logger, r io.Reader, hold time.Duration) *Keyboard {
	if hold <= 0 {
		hold = DefaultHoldDuration
	}
	return &Keyboard{
		logger:  logger,
		reader:  r,
		hold:    hold,
		events:  make(chan driver.KeyEvent, 16),
		presses: make(chan driver.KeyEvent, 16),
	}
}

// Events returns the channel that receives the key events.
func (k *Keyboard) Events() <-chan driver.KeyEvent {
	return k.events
}

// Start begins reading input. The goroutines stop when the context is cancelled,
// the reader goroutine also stops when the reader returns an error.
func (k *Keyboard) Start(ctx context.Context) {
	go k.read(ctx)
	go k.release(ctx)
}

func (k *Keyboard) read(ctx context.Context) {
	buf := make([]byte, 64)
	for {
		n, err := k.reader.Read(buf)
		for _, b := range buf[:n] {
			event, ok := translate(b)
			if !ok {
				continue
			}
			select {
			case k.presses <- event:
			case <-ctx.Done():
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				k.logger.Debug("Reading keyboard input failed", log.Err(err))
			}
			return
		}
	}
}

// release forwards presses and synthesizes the release of held keys.
func (k *Keyboard) release(ctx context.Context) {
	timer := time.NewTimer(k.hold)
	timer.Stop()
	held := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event := <-k.presses:
			if !k.send(ctx, event) {
				return
			}
			if event.Pressed {
				timer.Reset(k.hold)
				held = true
			}

		case <-timer.C:
			if held {
				held = false
				if !k.send(ctx, driver.KeyEvent{}) {
					return
				}
			}
		}
	}
}

func (k *Keyboard) send(ctx context.Context, event driver.KeyEvent) bool {
	select {
	case k.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// translate maps a typed byte to a key event.
func translate(b byte) (driver.KeyEvent, bool) {
	switch b {
	case keyEscape, keyInterrupt:
		return driver.KeyEvent{Halt: true}, true
	}

	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	code, ok := vm.TranslateKey(string(b))
	if !ok {
		return driver.KeyEvent{}, false
	}
	return driver.KeyEvent{Code: code, Pressed: true}, true
}
