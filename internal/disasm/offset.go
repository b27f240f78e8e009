package disasm

// offsetType defines the type of a program offset, multiple types can be combined.
type offsetType uint8

const (
	codeOffset      offsetType = 1 << iota // first byte of an instruction
	codeOperand                            // second byte of an instruction
	dataOffset                             // data byte, also used for unknown instructions
	callDestination                        // target of a call
	jumpDestination                        // target of a jump
	dataReference                          // target of a ld I, address instruction
)

// offset contains the disassembly information of a single program byte.
type offset struct {
	address uint16
	flags   offsetType

	data    []byte // instruction word for code, the single byte otherwise
	label   string
	code    string
	comment string
}

// IsType returns whether the offset is of the given type.
func (o *offset) IsType(typ offsetType) bool {
	return o.flags&typ != 0
}

// SetType adds the given type to the offset.
func (o *offset) SetType(typ offsetType) {
	o.flags |= typ
}

// ClearType removes the given type from the offset.
func (o *offset) ClearType(typ offsetType) {
	o.flags &^= typ
}
