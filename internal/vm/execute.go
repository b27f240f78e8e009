package vm

import (
	"fmt"

	"github.com/retroenv/retrogolib/log"
)

// execute applies a decoded instruction. The program counter already points to the next
// instruction, address is the location the instruction was fetched from.
//
//nolint:funlen,cyclop,gocyclo // a flat dispatch over all instruction kinds
func (m *Machine) execute(ins Instruction, address uint16) {
	v := &m.regs.V
	x, y := ins.X, ins.Y

	switch ins.Kind {
	case KindClear:
		m.display.Clear()

	case KindReturn:
		target, ok := m.regs.pop()
		if !ok {
			m.halt(ReasonStackUnderflow, "return with empty stack", address)
			return
		}
		m.regs.PC = target

	case KindJump:
		m.regs.PC = ins.NNN

	case KindCall:
		if !m.regs.push(m.regs.PC) {
			m.halt(ReasonStackOverflow, fmt.Sprintf("call nesting exceeds %d levels", StackDepth), address)
			return
		}
		m.regs.PC = ins.NNN

	case KindSkipEqualByte:
		m.skipIf(v[x] == ins.KK)

	case KindSkipNotEqualByte:
		m.skipIf(v[x] != ins.KK)

	case KindSkipEqual:
		m.skipIf(v[x] == v[y])

	case KindLoadByte:
		v[x] = ins.KK

	case KindAddByte:
		v[x] += ins.KK

	case KindLoad:
		v[x] = v[y]

	case KindOr:
		v[x] |= v[y]

	case KindAnd:
		v[x] &= v[y]

	case KindXor:
		v[x] ^= v[y]

	case KindAdd:
		sum := uint16(v[x]) + uint16(v[y])
		v[FlagRegister] = flag(sum > 0xFF)
		v[x] = uint8(sum)

	case KindSub:
		v[FlagRegister] = flag(v[x] > v[y])
		v[x] -= v[y]

	case KindShiftRight:
		v[FlagRegister] = v[x] & 0x01
		v[x] >>= 1

	case KindSubN:
		v[FlagRegister] = flag(v[y] > v[x])
		v[x] = v[y] - v[x]

	case KindShiftLeft:
		v[FlagRegister] = flag(v[x]&0x80 != 0)
		v[x] <<= 1

	case KindSkipNotEqual:
		m.skipIf(v[x] != v[y])

	case KindLoadIndex:
		m.regs.I = ins.NNN

	case KindJumpOffset:
		m.regs.PC = ins.NNN + uint16(v[0])

	case KindRandom:
		v[x] = m.random() & ins.KK

	case KindDraw:
		m.draw(ins)

	case KindSkipKey:
		m.skipIf(m.keyHeld && m.key == v[x])

	case KindSkipNotKey:
		m.skipIf(!m.keyHeld || m.key != v[x])

	case KindLoadDelay:
		v[x] = m.timers.Delay

	case KindWaitKey:
		if m.keyHeld {
			v[x] = m.key
			m.key, m.keyHeld = 0, false
			return
		}
		m.waiting = true
		m.waitRegister = x

	case KindSetDelay:
		m.timers.Delay = v[x]

	case KindSetSound:
		m.timers.Sound = v[x]

	case KindAddIndex:
		m.regs.I += uint16(v[x])
		if m.regs.I > MemorySize {
			v[FlagRegister] = 1
		}

	case KindLoadFont:
		m.regs.I = FontStart + uint16(v[x])*GlyphSize

	case KindStoreBCD:
		start := int(m.regs.I)
		if !m.checkWrite(start, 3, address) {
			return
		}
		value := v[x]
		m.memory[start] = value / 100
		m.memory[start+1] = (value / 10) % 10
		m.memory[start+2] = value % 10

	case KindStoreRegisters:
		start := int(m.regs.I)
		if !m.checkWrite(start, int(x)+1, address) {
			return
		}
		copy(m.memory[start:], v[:x+1])

	case KindLoadRegisters:
		start := int(m.regs.I)
		if !m.checkRange(start, int(x)+1, address) {
			return
		}
		copy(v[:x+1], m.memory[start:])

	default:
		m.logger.Debug("Ignoring unknown instruction",
			log.Hex("opcode", ins.Word),
			log.Hex("address", address))
	}
}

// draw XORs an n byte sprite from memory at I onto the display. The start position wraps
// around the display edges, the sprite itself is clipped at the right and bottom edges.
func (m *Machine) draw(ins Instruction) {
	startX := int(m.regs.V[ins.X]) % DisplayWidth
	posY := int(m.regs.V[ins.Y]) % DisplayHeight
	m.regs.V[FlagRegister] = 0

	for row := 0; row < int(ins.N) && posY < DisplayHeight; row, posY = row+1, posY+1 {
		sprite := m.memory.Read(int(m.regs.I) + row)

		for bit := 0; bit < 8 && startX+bit < DisplayWidth; bit++ {
			if sprite&(0x80>>bit) == 0 {
				continue
			}
			if m.display.toggle(startX+bit, posY) {
				m.regs.V[FlagRegister] = 1
			}
		}
	}
	m.display.dirty = true
}

// checkRange halts the machine if the memory range [start, start+length) exceeds memory.
func (m *Machine) checkRange(start, length int, address uint16) bool {
	last := start + length - 1
	if last >= MemorySize {
		m.halt(ReasonInvalidMemoryAccess, fmt.Sprintf("access of $%04X beyond memory", last), address)
		return false
	}
	return true
}

// checkWrite halts the machine if the memory range can not be written to.
func (m *Machine) checkWrite(start, length int, address uint16) bool {
	if !m.checkRange(start, length, address) {
		return false
	}
	if inFont(start, length) {
		m.halt(ReasonInvalidMemoryAccess, fmt.Sprintf("write of $%04X into font memory", start), address)
		return false
	}
	return true
}

func (m *Machine) skipIf(condition bool) {
	if condition {
		m.regs.PC += 2
	}
}

func flag(set bool) uint8 {
	if set {
		return 1
	}
	return 0
}
