package terminal

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// MakeRaw puts the terminal of the given file into raw mode, disabling echo and line
// buffering. The returned function restores the previous state. Files that are not a
// terminal are left untouched.
func MakeRaw(file *os.File) (func(), error) {
	fd := int(file.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw terminal mode: %w", err)
	}
	return func() {
		_ = term.Restore(fd, oldState)
	}, nil
}
