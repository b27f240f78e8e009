package vm

import "github.com/retroenv/retrogolib/log"

// KeyCount is the number of keys of the hexadecimal keypad.
const KeyCount = 16

// keyCodes maps physical key identifiers to keypad codes.
var keyCodes = map[string]uint8{
	"1": 0x0, "2": 0x1, "3": 0x2, "4": 0x3,
	"q": 0x4, "w": 0x5, "e": 0x6, "r": 0x7,
	"a": 0x8, "s": 0x9, "d": 0xA, "f": 0xB,
	"z": 0xC, "x": 0xD, "c": 0xE, "v": 0xF,
}

// TranslateKey returns the keypad code for a physical key identifier.
func TranslateKey(key string) (uint8, bool) {
	code, ok := keyCodes[key]
	return code, ok
}

// PressKey delivers a key press. A machine waiting for a key stores the code in the wait
// register and resumes, otherwise the key becomes the currently held key.
func (m *Machine) PressKey(code uint8) {
	if code >= KeyCount {
		m.logger.Debug("Ignoring invalid key code", log.Uint8("code", code))
		return
	}

	if m.waiting {
		m.regs.V[m.waitRegister] = code
		m.waiting = false
		return
	}
	m.key, m.keyHeld = code, true
}

// ReleaseKey clears the currently held key.
func (m *Machine) ReleaseKey() {
	m.key, m.keyHeld = 0, false
}

// SetCurrentKey sets the currently held key without resolving a pending key wait,
// held false clears it.
func (m *Machine) SetCurrentKey(code uint8, held bool) {
	if !held || code >= KeyCount {
		m.ReleaseKey()
		return
	}
	m.key, m.keyHeld = code, true
}

// CurrentKey returns the currently held key and whether any key is held.
func (m *Machine) CurrentKey() (uint8, bool) {
	return m.key, m.keyHeld
}
