// Package detector handles program file format detection.
package detector

import (
	"path/filepath"
	"strings"

	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrogolib/log"
)

// Detector handles format detection from file extensions and options.
type Detector struct {
	logger *log.Logger
}

// New creates a new format detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the program file format from options or file auto-detection.
// It first checks if a format is explicitly specified in options, otherwise
// attempts to detect the format from the input filename extension.
func (d *Detector) Detect(opts options.Program) options.Format {
	format := options.Format(strings.ToLower(opts.Format))
	if format == "" {
		format = d.detectFromFile(opts.Input)
		d.logger.Debug("Auto-detected format",
			log.String("format", string(format)),
			log.String("file", opts.Input))
	}
	return format
}

// detectFromFile determines the format based on file extension.
func (d *Detector) detectFromFile(filename string) options.Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".hex", ".txt":
		return options.FormatHex
	default:
		// .ch8, .c8, .rom, .bin and unknown extensions
		return options.FormatBinary
	}
}
