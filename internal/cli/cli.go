// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/retroenv/retrochip8/internal/driver"
	"github.com/retroenv/retrochip8/internal/options"
)

// ParseFlags parses command line flags and returns program and disassembler options
func ParseFlags() (options.Program, options.Disassembler, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	disasmOptions := options.NewDisassembler()
	readDisasmOptionFlags(flags, &disasmOptions, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || len(args) == 0 {
		return opts, options.Disassembler{}, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, options.Disassembler{}, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, options.Disassembler{}, err
	}

	if err := validateOptionCombinations(opts); err != nil {
		return opts, options.Disassembler{}, err
	}

	opts.Input = args[0]
	disasmOptions.HexComments = !opts.NoHexComments
	disasmOptions.OffsetComments = !opts.NoOffsets
	disasmOptions.ZeroBytes = opts.ZeroBytes

	return opts, disasmOptions, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

// ShowUsage prints the usage and the flag defaults.
func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: retrochip8 [options] <program file>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg != "" && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after program file, please pass the program file as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.Format = strings.ToLower(opts.Format)
	if opts.Format == "" {
		return nil
	}

	names := make([]string, 0, len(options.Formats))
	for _, format := range options.Formats {
		if opts.Format == string(format) {
			return nil
		}
		names = append(names, string(format))
	}

	return fmt.Errorf("unsupported format: %s. Valid options: %s",
		opts.Format, strings.Join(names, ", "))
}

// validateOptionCombinations checks for option values and combinations that can not be used.
func validateOptionCombinations(opts options.Program) error {
	var errs []error
	if opts.Disasm && opts.Headless {
		errs = append(errs, errors.New("-disasm and -headless can not be combined"))
	}
	if opts.Disasm && opts.Trace != "" {
		errs = append(errs, errors.New("-trace requires running the program and can not be combined with -disasm"))
	}
	if opts.Frames < 0 {
		errs = append(errs, fmt.Errorf("invalid frame count %d", opts.Frames))
	}
	if opts.CyclesPerFrame <= 0 {
		errs = append(errs, fmt.Errorf("invalid cycles per frame %d", opts.CyclesPerFrame))
	}
	if opts.FrameRate < 0 {
		errs = append(errs, fmt.Errorf("invalid frame rate %d", opts.FrameRate))
	}
	return errors.Join(errs...)
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Output, "o", "", "name of the output file for the listing or the headless dump, printed on console if no name given")
	flags.StringVar(&opts.Trace, "trace", "", "name of the file to write the memory listing to whenever it changes")
	flags.StringVar(&opts.Format, "f", "", "format of the program file (bin, hex) - if not auto-detected from file extension")
	flags.BoolVar(&opts.Disasm, "disasm", false, "write a disassembly listing of the program instead of running it")
	flags.BoolVar(&opts.Headless, "headless", false, "run without terminal display and dump the final display and registers")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
	flags.IntVar(&opts.Frames, "frames", 0, "number of frames to run, 0 runs until the program halts")
	flags.IntVar(&opts.CyclesPerFrame, "cycles", driver.DefaultCyclesPerFrame, "instructions to execute per frame")
	flags.IntVar(&opts.FrameRate, "rate", driver.DefaultFrameRate, "frames per second, 0 runs as fast as possible")
	flags.Uint64Var(&opts.Seed, "seed", 0, "seed of the random number generator, 0 uses a random seed")
}

func readDisasmOptionFlags(flags *flag.FlagSet, opts *options.Disassembler, program *options.Program) {
	flags.BoolVar(&program.NoHexComments, "nohexcomments", !opts.HexComments, "do not output opcode bytes as hex values in comments")
	flags.BoolVar(&program.NoOffsets, "nooffsets", !opts.OffsetComments, "do not output addresses in comments")
	flags.BoolVar(&program.ZeroBytes, "z", opts.ZeroBytes, "output the trailing zero bytes of the program")
}
