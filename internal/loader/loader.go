// Package loader handles program file loading operations.
package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/vm"
)

// ErrEmptyProgram is returned for program files without any instruction words.
var ErrEmptyProgram = errors.New("empty program")

// Loader handles loading program files from disk.
type Loader struct{}

// New creates a new program loader.
func New() *Loader {
	return &Loader{}
}

// Load reads and decodes a program file in the given format.
func (l *Loader) Load(opts options.Program, format options.Format) ([]byte, error) {
	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", opts.Input, err)
	}

	program, err := l.LoadFromBytes(data, format)
	if err != nil {
		return nil, fmt.Errorf("loading program %s: %w", opts.Input, err)
	}
	return program, nil
}

// LoadFromBytes decodes program file content in the given format.
// The program has to be non-empty and fit into the program space of the machine.
func (l *Loader) LoadFromBytes(data []byte, format options.Format) ([]byte, error) {
	var program []byte

	switch format {
	case options.FormatBinary, "":
		program = data
	case options.FormatHex:
		var err error
		program, err = parseHex(data)
		if err != nil {
			return nil, fmt.Errorf("parsing hex program: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format '%s'", format)
	}

	if len(program) == 0 {
		return nil, ErrEmptyProgram
	}
	if len(program) > vm.MaxProgramSize {
		return nil, fmt.Errorf("%w: %d bytes exceed the available %d bytes",
			vm.ErrProgramTooLarge, len(program), vm.MaxProgramSize)
	}
	return program, nil
}

// parseHex parses whitespace or comma separated 4 digit hexadecimal instruction words.
// Words can be prefixed with 0x or $, comments start with ; or # and end at the line end.
func parseHex(data []byte) ([]byte, error) {
	var program []byte

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if i := strings.IndexAny(text, ";#"); i >= 0 {
			text = text[:i]
		}

		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\r'
		})
		for _, field := range fields {
			word, err := parseWord(field)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			program = append(program, byte(word>>8), byte(word))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning input: %w", err)
	}
	return program, nil
}

func parseWord(field string) (uint16, error) {
	digits := field
	switch {
	case strings.HasPrefix(digits, "0x"), strings.HasPrefix(digits, "0X"):
		digits = digits[2:]
	case strings.HasPrefix(digits, "$"):
		digits = digits[1:]
	}

	if len(digits) != 4 {
		return 0, fmt.Errorf("invalid instruction word '%s': expected 4 hex digits", field)
	}
	word, err := strconv.ParseUint(digits, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid instruction word '%s': %w", field, err)
	}
	return uint16(word), nil
}
