package vm

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// Kind identifies the operation of a decoded instruction word.
type Kind uint8

// Instruction kinds, named after the opcode patterns they match.
const (
	KindUnknown          Kind = iota
	KindClear                 // 00E0
	KindReturn                // 00EE
	KindJump                  // 1nnn
	KindCall                  // 2nnn
	KindSkipEqualByte         // 3xkk
	KindSkipNotEqualByte      // 4xkk
	KindSkipEqual             // 5xy0
	KindLoadByte              // 6xkk
	KindAddByte               // 7xkk
	KindLoad                  // 8xy0
	KindOr                    // 8xy1
	KindAnd                   // 8xy2
	KindXor                   // 8xy3
	KindAdd                   // 8xy4
	KindSub                   // 8xy5
	KindShiftRight            // 8xy6
	KindSubN                  // 8xy7
	KindShiftLeft             // 8xyE
	KindSkipNotEqual          // 9xy0
	KindLoadIndex             // Annn
	KindJumpOffset            // Bnnn
	KindRandom                // Cxkk
	KindDraw                  // Dxyn
	KindSkipKey               // Ex9E
	KindSkipNotKey            // ExA1
	KindLoadDelay             // Fx07
	KindWaitKey               // Fx0A
	KindSetDelay              // Fx15
	KindSetSound              // Fx18
	KindAddIndex              // Fx1E
	KindLoadFont              // Fx29
	KindStoreBCD              // Fx33
	KindStoreRegisters        // Fx55
	KindLoadRegisters         // Fx65

	kindCount
)

// kindInfo maps every kind to its opcode pattern and instruction definition.
var kindInfo = [kindCount]struct {
	pattern    string
	definition *chip8.Instruction
}{
	KindUnknown:          {"????", nil},
	KindClear:            {"00E0", chip8.Cls},
	KindReturn:           {"00EE", chip8.Ret},
	KindJump:             {"1NNN", chip8.Jp},
	KindCall:             {"2NNN", chip8.Call},
	KindSkipEqualByte:    {"3XKK", chip8.Se},
	KindSkipNotEqualByte: {"4XKK", chip8.Sne},
	KindSkipEqual:        {"5XY0", chip8.Se},
	KindLoadByte:         {"6XKK", chip8.Ld},
	KindAddByte:          {"7XKK", chip8.Add},
	KindLoad:             {"8XY0", chip8.Ld},
	KindOr:               {"8XY1", chip8.Or},
	KindAnd:              {"8XY2", chip8.And},
	KindXor:              {"8XY3", chip8.Xor},
	KindAdd:              {"8XY4", chip8.Add},
	KindSub:              {"8XY5", chip8.Sub},
	KindShiftRight:       {"8XY6", chip8.Shr},
	KindSubN:             {"8XY7", chip8.Subn},
	KindShiftLeft:        {"8XYE", chip8.Shl},
	KindSkipNotEqual:     {"9XY0", chip8.Sne},
	KindLoadIndex:        {"ANNN", chip8.Ld},
	KindJumpOffset:       {"BNNN", chip8.Jp},
	KindRandom:           {"CXKK", chip8.Rnd},
	KindDraw:             {"DXYN", chip8.Drw},
	KindSkipKey:          {"EX9E", chip8.Skp},
	KindSkipNotKey:       {"EXA1", chip8.Sknp},
	KindLoadDelay:        {"FX07", chip8.Ld},
	KindWaitKey:          {"FX0A", chip8.Ld},
	KindSetDelay:         {"FX15", chip8.Ld},
	KindSetSound:         {"FX18", chip8.Ld},
	KindAddIndex:         {"FX1E", chip8.Add},
	KindLoadFont:         {"FX29", chip8.Ld},
	KindStoreBCD:         {"FX33", chip8.Ld},
	KindStoreRegisters:   {"FX55", chip8.Ld},
	KindLoadRegisters:    {"FX65", chip8.Ld},
}

// String returns the opcode pattern of the kind, for example 8XY4.
func (k Kind) String() string {
	if k >= kindCount {
		return kindInfo[KindUnknown].pattern
	}
	return kindInfo[k].pattern
}

// Instruction is a decoded instruction word with all its operand fields extracted.
// Which operands are meaningful depends on the kind.
type Instruction struct {
	Kind Kind
	Word uint16 // raw instruction word

	X   uint8  // register operand, bits 8-11
	Y   uint8  // register operand, bits 4-7
	N   uint8  // nibble operand, bits 0-3
	KK  uint8  // immediate byte operand, bits 0-7
	NNN uint16 // address operand, bits 0-11
}

// Decode splits an instruction word into its operands and determines the kind of operation.
// Words that do not match any instruction are returned as KindUnknown.
func Decode(word uint16) Instruction {
	ins := Instruction{
		Word: word,
		X:    uint8(word>>8) & 0xF,
		Y:    uint8(word>>4) & 0xF,
		N:    uint8(word) & 0xF,
		KK:   uint8(word),
		NNN:  word & 0x0FFF,
	}
	ins.Kind = decodeKind(word, ins.N, ins.KK)
	return ins
}

func decodeKind(word uint16, n, kk uint8) Kind {
	switch word {
	case 0x00E0:
		return KindClear
	case 0x00EE:
		return KindReturn
	}

	switch word >> 12 {
	case 0x1:
		return KindJump
	case 0x2:
		return KindCall
	case 0x3:
		return KindSkipEqualByte
	case 0x4:
		return KindSkipNotEqualByte
	case 0x5:
		if n == 0 {
			return KindSkipEqual
		}
	case 0x6:
		return KindLoadByte
	case 0x7:
		return KindAddByte
	case 0x8:
		return decodeArithmetic(n)
	case 0x9:
		if n == 0 {
			return KindSkipNotEqual
		}
	case 0xA:
		return KindLoadIndex
	case 0xB:
		return KindJumpOffset
	case 0xC:
		return KindRandom
	case 0xD:
		return KindDraw
	case 0xE:
		switch kk {
		case 0x9E:
			return KindSkipKey
		case 0xA1:
			return KindSkipNotKey
		}
	case 0xF:
		return decodeMisc(kk)
	}
	return KindUnknown
}

// decodeArithmetic decodes the register to register operations of class 8.
func decodeArithmetic(n uint8) Kind {
	switch n {
	case 0x0:
		return KindLoad
	case 0x1:
		return KindOr
	case 0x2:
		return KindAnd
	case 0x3:
		return KindXor
	case 0x4:
		return KindAdd
	case 0x5:
		return KindSub
	case 0x6:
		return KindShiftRight
	case 0x7:
		return KindSubN
	case 0xE:
		return KindShiftLeft
	default:
		return KindUnknown
	}
}

// decodeMisc decodes the timer, input and memory operations of class F.
func decodeMisc(kk uint8) Kind {
	switch kk {
	case 0x07:
		return KindLoadDelay
	case 0x0A:
		return KindWaitKey
	case 0x15:
		return KindSetDelay
	case 0x18:
		return KindSetSound
	case 0x1E:
		return KindAddIndex
	case 0x29:
		return KindLoadFont
	case 0x33:
		return KindStoreBCD
	case 0x55:
		return KindStoreRegisters
	case 0x65:
		return KindLoadRegisters
	default:
		return KindUnknown
	}
}

// Definition returns the instruction definition of the decoded word, nil for unknown words.
func (ins Instruction) Definition() *chip8.Instruction {
	if ins.Kind >= kindCount {
		return nil
	}
	return kindInfo[ins.Kind].definition
}

// Name returns the lowercase mnemonic name of the instruction, an empty string for unknown words.
func (ins Instruction) Name() string {
	definition := ins.Definition()
	if definition == nil {
		return ""
	}
	return definition.Name
}

// String returns the instruction in assembly notation, for example "se V2, $34".
func (ins Instruction) String() string {
	name := ins.Name()
	if name == "" {
		return "<unknown>"
	}
	if params := ins.params(); params != "" {
		return name + " " + params
	}
	return name
}

// params formats the operands of the instruction.
func (ins Instruction) params() string {
	switch ins.Kind {
	case KindJump, KindCall:
		return fmt.Sprintf("$%03X", ins.NNN)
	case KindSkipEqualByte, KindSkipNotEqualByte, KindLoadByte, KindAddByte, KindRandom:
		return fmt.Sprintf("V%X, $%02X", ins.X, ins.KK)
	case KindSkipEqual, KindSkipNotEqual, KindLoad, KindOr, KindAnd, KindXor, KindAdd, KindSub, KindSubN:
		return fmt.Sprintf("V%X, V%X", ins.X, ins.Y)
	case KindShiftRight, KindShiftLeft, KindSkipKey, KindSkipNotKey:
		return fmt.Sprintf("V%X", ins.X)
	case KindLoadIndex:
		return fmt.Sprintf("I, $%03X", ins.NNN)
	case KindJumpOffset:
		return fmt.Sprintf("V0, $%03X", ins.NNN)
	case KindDraw:
		return fmt.Sprintf("V%X, V%X, $%X", ins.X, ins.Y, ins.N)
	case KindLoadDelay:
		return fmt.Sprintf("V%X, DT", ins.X)
	case KindWaitKey:
		return fmt.Sprintf("V%X, K", ins.X)
	case KindSetDelay:
		return fmt.Sprintf("DT, V%X", ins.X)
	case KindSetSound:
		return fmt.Sprintf("ST, V%X", ins.X)
	case KindAddIndex:
		return fmt.Sprintf("I, V%X", ins.X)
	case KindLoadFont:
		return fmt.Sprintf("F, V%X", ins.X)
	case KindStoreBCD:
		return fmt.Sprintf("B, V%X", ins.X)
	case KindStoreRegisters:
		return fmt.Sprintf("[I], V%X", ins.X)
	case KindLoadRegisters:
		return fmt.Sprintf("V%X, [I]", ins.X)
	default:
		return ""
	}
}
