package vm

import "slices"

const (
	// RegisterCount is the number of general purpose registers V0-VF.
	RegisterCount = 16

	// FlagRegister is the index of VF, which doubles as carry, borrow and collision flag.
	FlagRegister = 0xF

	// StackDepth is the maximum number of nested subroutine calls.
	StackDepth = 16
)

// Registers contains the register file of the machine.
type Registers struct {
	V     [RegisterCount]uint8 // general purpose registers
	I     uint16               // address register
	PC    uint16               // program counter
	Stack []uint16             // return addresses, last entry is the top
}

func (r *Registers) reset() {
	r.V = [RegisterCount]uint8{}
	r.I = 0
	r.PC = ProgramStart
	r.Stack = r.Stack[:0]
}

// push adds a return address to the stack and returns false if the stack is full.
func (r *Registers) push(address uint16) bool {
	if len(r.Stack) >= StackDepth {
		return false
	}
	r.Stack = append(r.Stack, address)
	return true
}

// pop removes the top return address from the stack and returns false if the stack is empty.
func (r *Registers) pop() (uint16, bool) {
	if len(r.Stack) == 0 {
		return 0, false
	}
	address := r.Stack[len(r.Stack)-1]
	r.Stack = r.Stack[:len(r.Stack)-1]
	return address, true
}

func (r Registers) clone() Registers {
	r.Stack = slices.Clone(r.Stack)
	return r
}
