// Package disasm implements a static disassembler for CHIP-8 programs. It follows the
// execution flow from the program start to separate code from data.
package disasm

import (
	"context"
	"fmt"
	"io"

	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/vm"
	"github.com/retroenv/retrogolib/arch/cpu/chip8"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
)

// Disasm implements a disassembler.
type Disasm struct {
	logger  *log.Logger
	options options.Disassembler

	code    []byte
	offsets []offset // one entry per program byte

	branchDestinations set.Set[uint16] // set of all addresses that are branched to or referenced

	offsetsToParse      []uint16
	offsetsToParseAdded set.Set[uint16]
}

// New creates a new disassembler for a program that is loaded at the program start address.
func New(logger *log.Logger, code []byte, options options.Disassembler) (*Disasm, error) {
	if len(code) > vm.MaxProgramSize {
		return nil, fmt.Errorf("%w: %d bytes exceed the available %d bytes",
			vm.ErrProgramTooLarge, len(code), vm.MaxProgramSize)
	}

	dis := &Disasm{
		logger:              logger,
		options:             options,
		code:                code,
		offsets:             make([]offset, len(code)),
		branchDestinations:  set.New[uint16](),
		offsetsToParseAdded: set.New[uint16](),
	}
	for i := range dis.offsets {
		dis.offsets[i].address = uint16(vm.ProgramStart + i)
		dis.offsets[i].data = code[i : i+1]
	}

	if len(dis.offsets) > 0 {
		dis.offsets[0].label = "Start"
	}
	dis.addAddressToParse(vm.ProgramStart)
	return dis, nil
}

// Process disassembles the program and writes the listing to the writer.
func (dis *Disasm) Process(ctx context.Context, w io.Writer) error {
	if err := dis.followExecutionFlow(ctx); err != nil {
		return err
	}
	dis.processJumpDestinations()

	if err := dis.write(w); err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}
	return nil
}

func (dis *Disasm) followExecutionFlow(ctx context.Context) error {
	for len(dis.offsetsToParse) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("following execution flow: %w", err)
		}

		address := dis.offsetsToParse[0]
		dis.offsetsToParse = dis.offsetsToParse[1:]
		dis.processOffset(address)
	}

	dis.logger.Debug("Execution flow processed",
		log.Int("size", len(dis.code)),
		log.Int("destinations", len(dis.branchDestinations)))
	return nil
}

// processOffset decodes the instruction at the address and queues all addresses that
// execution can continue at.
func (dis *Disasm) processOffset(address uint16) {
	index, ok := dis.addressToIndex(address)
	if !ok || index+1 >= len(dis.offsets) {
		return // no complete instruction word left
	}

	offsetInfo := &dis.offsets[index]
	if offsetInfo.IsType(codeOffset) || offsetInfo.IsType(codeOperand) {
		return
	}
	if dis.offsets[index+1].IsType(codeOffset) {
		return // would overlap the following instruction
	}

	word := uint16(dis.code[index])<<8 | uint16(dis.code[index+1])
	ins := vm.Decode(word)
	if ins.Kind == vm.KindUnknown {
		// consider an unknown instruction as start of data
		offsetInfo.SetType(dataOffset)
		return
	}

	offsetInfo.SetType(codeOffset)
	offsetInfo.data = dis.code[index : index+2]
	offsetInfo.code = ins.String()
	dis.offsets[index+1].SetType(codeOperand)

	dis.handleControlFlow(address, ins)
}

// handleControlFlow queues the follow up addresses based on the instruction type.
func (dis *Disasm) handleControlFlow(address uint16, ins vm.Instruction) {
	next := address + 2

	switch {
	case ins.Kind == vm.KindJump:
		dis.addBranchDestination(ins.NNN, jumpDestination)
		dis.addAddressToParse(ins.NNN)

	case ins.Kind == vm.KindCall:
		dis.addBranchDestination(ins.NNN, callDestination)
		dis.addAddressToParse(ins.NNN)
		dis.addAddressToParse(next)

	case chip8.SkipInstructions.Contains(ins.Name()):
		dis.addAddressToParse(next)
		dis.addAddressToParse(next+2)

	case ins.Kind == vm.KindLoadIndex:
		dis.addBranchDestination(ins.NNN, dataReference)
		dis.addAddressToParse(next)

	case ins.Kind == vm.KindReturn, ins.Kind == vm.KindJumpOffset:
		// the target is not known statically

	default:
		dis.addAddressToParse(next)
	}
}

// addBranchDestination marks an address inside the program as referenced.
func (dis *Disasm) addBranchDestination(address uint16, typ offsetType) {
	index, ok := dis.addressToIndex(address)
	if !ok {
		return
	}
	dis.offsets[index].SetType(typ)
	dis.branchDestinations[address] = struct{}{}
}

// addAddressToParse adds an address to the list to be processed if the address has not been processed yet.
func (dis *Disasm) addAddressToParse(address uint16) {
	if _, ok := dis.addressToIndex(address); !ok {
		return
	}
	if _, ok := dis.offsetsToParseAdded[address]; ok {
		return
	}
	dis.offsetsToParseAdded[address] = struct{}{}
	dis.offsetsToParse = append(dis.offsetsToParse, address)
}

// addressToIndex converts a memory address to an index into the program, it returns false
// for addresses outside of the loaded program.
func (dis *Disasm) addressToIndex(address uint16) (int, bool) {
	index := int(address) - vm.ProgramStart
	if index < 0 || index >= len(dis.offsets) {
		return 0, false
	}
	return index, true
}
