// Package pipeline orchestrates loading a program and running it in the selected mode.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/retroenv/retrochip8/internal/config"
	"github.com/retroenv/retrochip8/internal/detector"
	"github.com/retroenv/retrochip8/internal/disasm"
	"github.com/retroenv/retrochip8/internal/driver"
	"github.com/retroenv/retrochip8/internal/loader"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/terminal"
	"github.com/retroenv/retrochip8/internal/vm"
	"github.com/retroenv/retrogolib/log"
)

// Execution modes.
const (
	modeDisasm      = "disasm"
	modeHeadless    = "headless"
	modeInteractive = "interactive"
)

// Pipeline orchestrates the complete workflow.
type Pipeline struct {
	logger   *log.Logger
	detector *detector.Detector
	loader   *loader.Loader
}

// New creates a new pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		detector: detector.New(logger),
		loader:   loader.New(),
	}
}

// Execute loads the program and disassembles or runs it. Interactive mode reads key
// input from in and draws to out, the other modes write their result to the output
// file or to out.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, disasmOpts options.Disassembler,
	in io.Reader, out io.Writer) error {

	format := p.detector.Detect(opts)

	program, err := p.loader.Load(opts, format)
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}

	mode := executionMode(opts)
	p.printInfo(opts, format, mode, len(program))

	if mode == modeDisasm {
		return p.withOutput(opts, out, func(w io.Writer) error {
			return p.disassemble(ctx, program, disasmOpts, w)
		})
	}

	machine := vm.New(p.logger, config.MachineOptions(opts)...)
	if err := machine.LoadProgram(program); err != nil {
		return fmt.Errorf("loading program into memory: %w", err)
	}

	cfg := config.DriverConfig(opts)
	if opts.Trace != "" {
		traceFile, err := os.Create(opts.Trace)
		if err != nil {
			return fmt.Errorf("creating trace file: %w", err)
		}
		defer func() {
			_ = traceFile.Close()
		}()
		cfg.Trace = traceFile
	}

	if mode == modeHeadless {
		return p.withOutput(opts, out, func(w io.Writer) error {
			return p.runHeadless(ctx, machine, cfg, w)
		})
	}
	return p.runInteractive(ctx, machine, cfg, in, out)
}

func executionMode(opts options.Program) string {
	switch {
	case opts.Disasm:
		return modeDisasm
	case opts.Headless:
		return modeHeadless
	default:
		return modeInteractive
	}
}

// withOutput calls the function with the output file if one is set, otherwise with out.
func (p *Pipeline) withOutput(opts options.Program, out io.Writer, fn func(w io.Writer) error) error {
	if opts.Output == "" {
		return fn(out)
	}

	outputFile, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	err = fn(outputFile)
	if closeErr := outputFile.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("closing output file: %w", closeErr)
	}
	return err
}

func (p *Pipeline) disassemble(ctx context.Context, program []byte, disasmOpts options.Disassembler, w io.Writer) error {
	dis, err := disasm.New(p.logger, program, disasmOpts)
	if err != nil {
		return fmt.Errorf("creating disassembler: %w", err)
	}
	if err := dis.Process(ctx, w); err != nil {
		return fmt.Errorf("disassembling: %w", err)
	}
	return nil
}

// runHeadless runs the machine without display and input and dumps the final state.
// The dump is written even if the machine halted, the halt error is returned afterwards.
func (p *Pipeline) runHeadless(ctx context.Context, machine *vm.Machine, cfg driver.Config, w io.Writer) error {
	d := driver.New(p.logger, machine, cfg, nil, nil)
	runErr := d.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if err := terminal.WriteFrame(w, machine.Display()); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if err := writeState(w, machine, d.Frames()); err != nil {
		return fmt.Errorf("writing machine state: %w", err)
	}
	return runErr
}

func (p *Pipeline) runInteractive(ctx context.Context, machine *vm.Machine, cfg driver.Config,
	in io.Reader, out io.Writer) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keyboard := terminal.NewKeyboard(p.logger, in, 0)
	keyboard.Start(ctx)

	screen := terminal.NewScreen(out)
	d := driver.New(p.logger, machine, cfg, screen, keyboard.Events())
	runErr := d.Run(ctx)

	if err := screen.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("closing screen: %w", err)
	}
	return runErr
}

// writeState writes the registers, timers and halt state of the machine.
func writeState(w io.Writer, machine *vm.Machine, frames int) error {
	registers := machine.Registers()
	timers := machine.Timers()

	values := make([]string, 0, len(registers.V))
	for _, v := range registers.V {
		values = append(values, fmt.Sprintf("%02X", v))
	}

	lines := []string{
		fmt.Sprintf("frames: %d", frames),
		fmt.Sprintf("PC: $%04X  I: $%04X  SP: %d", registers.PC, registers.I, len(registers.Stack)),
		"V0-VF: " + strings.Join(values, " "),
		fmt.Sprintf("DT: $%02X  ST: $%02X", timers.Delay, timers.Sound),
		"halt: " + machine.HaltReason().String(),
	}
	if message := machine.HaltMessage(); message != "" {
		lines = append(lines, "message: "+message)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// printInfo prints information about the program being processed.
func (p *Pipeline) printInfo(opts options.Program, format options.Format, mode string, size int) {
	if opts.Quiet {
		return
	}

	p.logger.Info("Processing CHIP-8 program",
		log.String("file", opts.Input),
		log.String("format", string(format)),
		log.String("mode", mode),
		log.Int("size", size),
	)
}
