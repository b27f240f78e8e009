// Package vm implements the CHIP-8 virtual machine: memory, register file, display buffer,
// timers and the fetch-decode-execute cycle.
//
// A Machine is not safe for concurrent use. It performs no scheduling of its own, the owner
// calls Cycle at the desired rate and TickTimers at 60 Hz.
package vm

import (
	"fmt"

	"github.com/retroenv/retrogolib/log"
)

// Machine is a CHIP-8 virtual machine.
type Machine struct {
	logger *log.Logger
	random func() uint8
	trace  bool

	memory  Memory
	regs    Registers
	display Display
	timers  Timers

	halted      bool
	haltReason  HaltReason
	haltMessage string
	haltPC      uint16

	waiting      bool
	waitRegister uint8

	key     uint8
	keyHeld bool
}

// New returns a new machine in its reset state.
func New(logger *log.Logger, options ...Option) *Machine {
	m := &Machine{
		logger: logger,
		random: defaultRandom,
	}
	for _, option := range options {
		option(m)
	}
	m.Reset()
	return m
}

// Reset reinitializes memory, registers, display, timers and the execution state.
func (m *Machine) Reset() {
	m.memory.reset()
	m.regs.reset()
	m.display.reset()
	m.timers = Timers{}

	m.halted = false
	m.haltReason = ReasonNone
	m.haltMessage = ""
	m.haltPC = 0

	m.waiting = false
	m.waitRegister = 0

	m.key = 0
	m.keyHeld = false
}

// LoadProgram resets the machine and copies the program to the program start address.
// The machine is left untouched if the program does not fit into memory.
func (m *Machine) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes exceed the available %d bytes", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	m.Reset()
	copy(m.memory[ProgramStart:], program)
	m.logger.Debug("Program loaded",
		log.Int("size", len(program)),
		log.Hex("address", uint16(ProgramStart)))
	return nil
}

// Cycle executes a single instruction. Nothing is executed while the machine is halted or
// waiting for a key press. If tracing is enabled, a listing of all non-zero words of the
// program memory is returned, as it was before the instruction executed.
func (m *Machine) Cycle() []TraceEntry {
	if m.halted || m.waiting {
		return nil
	}

	pc := m.regs.PC
	if int(pc) >= MemorySize-2 {
		m.halt(ReasonInvalidProgramCounter, fmt.Sprintf("invalid program counter $%04X", pc), pc)
		return nil
	}

	var listing []TraceEntry
	if m.trace {
		listing = Disassemble(&m.memory)
	}

	word := m.memory.Word(int(pc))
	m.regs.PC += 2
	m.execute(Decode(word), pc)
	return listing
}

// Halt stops the machine. Once halted, the machine only resumes after a reset.
// Only the first halt is recorded.
func (m *Machine) Halt(reason HaltReason, message string) {
	m.halt(reason, message, m.regs.PC)
}

func (m *Machine) halt(reason HaltReason, message string, pc uint16) {
	if m.halted {
		return
	}
	m.halted = true
	m.haltReason = reason
	m.haltMessage = message
	m.haltPC = pc

	m.logger.Debug("Machine halted",
		log.Stringer("reason", reason),
		log.String("message", message),
		log.Hex("pc", pc))
}

// TickTimers decrements the delay and sound timers once.
func (m *Machine) TickTimers() {
	m.timers.Tick()
}

// Halted returns whether the machine is halted.
func (m *Machine) Halted() bool {
	return m.halted
}

// HaltReason returns the reason of the halt, ReasonNone if the machine is running.
func (m *Machine) HaltReason() HaltReason {
	return m.haltReason
}

// HaltMessage returns the description of the halt cause.
func (m *Machine) HaltMessage() string {
	return m.haltMessage
}

// Err returns a *HaltError describing the halt state, or nil if the machine is not halted.
func (m *Machine) Err() error {
	if !m.halted {
		return nil
	}
	return &HaltError{
		Reason:  m.haltReason,
		Message: m.haltMessage,
		PC:      m.haltPC,
	}
}

// Waiting returns whether the machine is blocked waiting for a key press.
func (m *Machine) Waiting() bool {
	return m.waiting
}

// WaitRegister returns the index of the register that receives the awaited key.
func (m *Machine) WaitRegister() uint8 {
	return m.waitRegister
}

// Display returns the display buffer. Renderers may only read it and sync its shadow copy.
func (m *Machine) Display() *Display {
	return &m.display
}

// Memory returns a copy of the memory.
func (m *Machine) Memory() Memory {
	return m.memory
}

// Registers returns a copy of the register file.
func (m *Machine) Registers() Registers {
	return m.regs.clone()
}

// Timers returns the current timer values.
func (m *Machine) Timers() Timers {
	return m.timers
}

// PC returns the program counter.
func (m *Machine) PC() uint16 {
	return m.regs.PC
}

// NextInstruction decodes the instruction at the program counter without executing it.
func (m *Machine) NextInstruction() Instruction {
	return Decode(m.memory.Word(int(m.regs.PC)))
}
