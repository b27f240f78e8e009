// Package config handles application configuration and setup
package config

import (
	"github.com/retroenv/retrochip8/internal/driver"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/vm"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// MachineOptions returns the machine options for the program options.
func MachineOptions(opts options.Program) []vm.Option {
	var machineOptions []vm.Option
	if opts.Trace != "" {
		machineOptions = append(machineOptions, vm.WithTrace(true))
	}
	if opts.Seed != 0 {
		machineOptions = append(machineOptions, vm.WithSeed(opts.Seed))
	}
	return machineOptions
}

// DriverConfig returns the frame pacing for the program options.
func DriverConfig(opts options.Program) driver.Config {
	cfg := driver.DefaultConfig()
	if opts.CyclesPerFrame > 0 {
		cfg.CyclesPerFrame = opts.CyclesPerFrame
	}
	cfg.FrameRate = opts.FrameRate
	cfg.MaxFrames = opts.Frames
	return cfg
}
