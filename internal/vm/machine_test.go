package vm

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// newTestMachine returns a machine with the given instruction words loaded.
func newTestMachine(t *testing.T, words ...uint16) *Machine {
	t.Helper()
	m := New(log.NewTestLogger(t))
	assert.NoError(t, m.LoadProgram(wordsToBytes(words...)))
	return m
}

func wordsToBytes(words ...uint16) []byte {
	data := make([]byte, 0, len(words)*2)
	for _, word := range words {
		data = append(data, byte(word>>8), byte(word))
	}
	return data
}

func runCycles(m *Machine, cycles int) {
	for range cycles {
		m.Cycle()
	}
}

func TestReset(t *testing.T) {
	m := newTestMachine(t, 0x6005, 0xA300, 0x2208, 0x0000, 0xD015)
	runCycles(m, 3)
	m.PressKey(3)
	m.Halt(ReasonExternal, "stop")

	m.Reset()

	regs := m.Registers()
	assert.Equal(t, uint16(ProgramStart), regs.PC)
	assert.Equal(t, uint16(0), regs.I)
	assert.Equal(t, [RegisterCount]uint8{}, regs.V)
	assert.Len(t, regs.Stack, 0)
	assert.Equal(t, Timers{}, m.Timers())
	assert.False(t, m.Halted())
	assert.Equal(t, ReasonNone, m.HaltReason())
	assert.Equal(t, "", m.HaltMessage())
	assert.NoError(t, m.Err())
	assert.False(t, m.Waiting())
	_, held := m.CurrentKey()
	assert.False(t, held)

	display := m.Display()
	for y := range DisplayHeight {
		for x := range DisplayWidth {
			assert.False(t, display.Pixel(x, y))
		}
	}

	memory := m.Memory()
	assert.Equal(t, fontData[:], memory[FontStart:FontEnd])
	assert.Equal(t, byte(0), memory[ProgramStart])
}

func TestLoadProgram(t *testing.T) {
	m := New(log.NewTestLogger(t))

	assert.NoError(t, m.LoadProgram([]byte{0x12, 0x34}))
	memory := m.Memory()
	assert.Equal(t, byte(0x12), memory[ProgramStart])
	assert.Equal(t, byte(0x34), memory[ProgramStart+1])

	full := make([]byte, MaxProgramSize)
	full[len(full)-1] = 0xAB
	assert.NoError(t, m.LoadProgram(full))
	memory = m.Memory()
	assert.Equal(t, byte(0xAB), memory[MemorySize-1])
}

func TestLoadProgramTooLarge(t *testing.T) {
	m := newTestMachine(t, 0x6042)
	runCycles(m, 1)

	err := m.LoadProgram(make([]byte, MaxProgramSize+1))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrProgramTooLarge))

	// the previous state is kept
	assert.Equal(t, uint16(0x202), m.PC())
	assert.Equal(t, uint8(0x42), m.Registers().V[0])
}

func TestScenarioAdd(t *testing.T) {
	m := newTestMachine(t, 0x6005, 0x6103, 0x8014)
	runCycles(m, 3)

	regs := m.Registers()
	assert.Equal(t, uint8(8), regs.V[0])
	assert.Equal(t, uint8(0), regs.V[FlagRegister])
}

func TestScenarioAddOverflow(t *testing.T) {
	m := newTestMachine(t, 0x60FF, 0x6101, 0x8014)
	runCycles(m, 3)

	regs := m.Registers()
	assert.Equal(t, uint8(0), regs.V[0])
	assert.Equal(t, uint8(1), regs.V[FlagRegister])
}

func TestScenarioStackUnderflow(t *testing.T) {
	m := newTestMachine(t, 0x00EE)
	runCycles(m, 1)

	assert.True(t, m.Halted())
	assert.Equal(t, ReasonStackUnderflow, m.HaltReason())
	assert.Equal(t, "StackUnderflow", m.HaltReason().String())
	assert.True(t, errors.Is(m.Err(), ErrStackUnderflow))

	var haltErr *HaltError
	assert.True(t, errors.As(m.Err(), &haltErr))
	assert.Equal(t, uint16(ProgramStart), haltErr.PC)
}

func TestScenarioWaitKey(t *testing.T) {
	m := newTestMachine(t, 0xF00A)
	runCycles(m, 1)

	assert.True(t, m.Waiting())
	assert.Equal(t, uint8(0), m.WaitRegister())
	assert.Equal(t, uint16(0x202), m.PC())

	// cycles are suppressed while waiting
	runCycles(m, 5)
	assert.Equal(t, uint16(0x202), m.PC())

	m.PressKey(7)
	assert.False(t, m.Waiting())
	assert.Equal(t, uint8(7), m.Registers().V[0])

	// the key resolved the wait and is not held afterwards
	_, held := m.CurrentKey()
	assert.False(t, held)

	runCycles(m, 1)
	assert.Equal(t, uint16(0x204), m.PC())
	assert.False(t, m.Waiting())
}

func TestScenarioDrawTwice(t *testing.T) {
	m := newTestMachine(t,
		0x6000, // ld V0, $00
		0x6100, // ld V1, $00
		0xA20A, // ld I, $20A
		0xD011, // drw V0, V1, 1
		0xD011, // drw V0, V1, 1
		0xFF00, // sprite data
	)
	runCycles(m, 4)

	display := m.Display()
	for x := range 8 {
		assert.True(t, display.Pixel(x, 0))
	}
	assert.Equal(t, uint8(0), m.Registers().V[FlagRegister])

	runCycles(m, 1)
	for x := range 8 {
		assert.False(t, display.Pixel(x, 0))
	}
	assert.Equal(t, uint8(1), m.Registers().V[FlagRegister])
}

func TestWaitKeyWithHeldKey(t *testing.T) {
	m := newTestMachine(t, 0xF30A)
	m.PressKey(0xC)
	runCycles(m, 1)

	assert.False(t, m.Waiting())
	assert.Equal(t, uint8(0xC), m.Registers().V[3])
	_, held := m.CurrentKey()
	assert.False(t, held)
}

func TestCallReturn(t *testing.T) {
	m := newTestMachine(t,
		0x2206, // call $206
		0x6105, // ld V1, $05
		0x1204, // jp $204
		0x6007, // ld V0, $07
		0x00EE, // ret
	)

	runCycles(m, 1)
	assert.Equal(t, uint16(0x206), m.PC())
	assert.Equal(t, []uint16{0x202}, m.Registers().Stack)

	runCycles(m, 3)
	regs := m.Registers()
	assert.Equal(t, uint8(7), regs.V[0])
	assert.Equal(t, uint8(5), regs.V[1])
	assert.Len(t, regs.Stack, 0)
	assert.Equal(t, uint16(0x204), regs.PC)
	assert.False(t, m.Halted())
}

func TestStackOverflow(t *testing.T) {
	m := newTestMachine(t, 0x2200)
	runCycles(m, StackDepth)
	assert.False(t, m.Halted())
	assert.Len(t, m.Registers().Stack, StackDepth)

	runCycles(m, 1)
	assert.True(t, m.Halted())
	assert.Equal(t, ReasonStackOverflow, m.HaltReason())
	assert.True(t, errors.Is(m.Err(), ErrStackOverflow))
}

func TestInvalidProgramCounter(t *testing.T) {
	m := newTestMachine(t, 0x1FFE)
	runCycles(m, 1)
	assert.False(t, m.Halted())
	assert.Equal(t, uint16(0xFFE), m.PC())

	runCycles(m, 1)
	assert.True(t, m.Halted())
	assert.Equal(t, ReasonInvalidProgramCounter, m.HaltReason())
	assert.True(t, errors.Is(m.Err(), ErrInvalidProgramCounter))
	assert.Contains(t, m.HaltMessage(), "$0FFE")

	// a halted machine accepts no further cycles
	runCycles(m, 3)
	assert.Equal(t, uint16(0xFFE), m.PC())
}

func TestHaltIsIdempotent(t *testing.T) {
	m := newTestMachine(t, 0x00EE)
	m.Halt(ReasonExternal, "user halted execution")
	m.Halt(ReasonStackUnderflow, "other")
	runCycles(m, 1)

	assert.Equal(t, ReasonExternal, m.HaltReason())
	assert.Equal(t, "user halted execution", m.HaltMessage())
	assert.Equal(t, "External: user halted execution", m.Err().Error())
	assert.True(t, errors.Is(m.Err(), ErrHalted))
	assert.Equal(t, uint16(ProgramStart), m.PC())
}

func TestUnknownInstructionIsIgnored(t *testing.T) {
	m := newTestMachine(t, 0x5001, 0x800F, 0xF0FF, 0x6001)
	runCycles(m, 4)

	assert.False(t, m.Halted())
	assert.Equal(t, uint16(0x208), m.PC())
	assert.Equal(t, uint8(1), m.Registers().V[0])
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		vx, vy uint8
		op     uint16
		wantVx uint8
		wantVF uint8
	}{
		{"ld", 0x12, 0x34, 0x8010, 0x34, 0},
		{"or", 0xF0, 0x0F, 0x8011, 0xFF, 0},
		{"and", 0xF3, 0x3F, 0x8012, 0x33, 0},
		{"xor", 0xFF, 0x0F, 0x8013, 0xF0, 0},
		{"add without carry", 0x10, 0x20, 0x8014, 0x30, 0},
		{"add with carry", 0xF0, 0x20, 0x8014, 0x10, 1},
		{"sub without borrow", 0x30, 0x10, 0x8015, 0x20, 1},
		{"sub with borrow", 0x10, 0x30, 0x8015, 0xE0, 0},
		{"sub equal", 0x10, 0x10, 0x8015, 0x00, 0},
		{"shr odd", 0x05, 0x00, 0x8016, 0x02, 1},
		{"shr even", 0x04, 0x00, 0x8016, 0x02, 0},
		{"subn without borrow", 0x10, 0x30, 0x8017, 0x20, 1},
		{"subn with borrow", 0x30, 0x10, 0x8017, 0xE0, 0},
		{"shl high bit", 0x81, 0x00, 0x801E, 0x02, 1},
		{"shl", 0x41, 0x00, 0x801E, 0x82, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, 0x6000|uint16(tt.vx), 0x6100|uint16(tt.vy), tt.op)
			runCycles(m, 3)

			regs := m.Registers()
			assert.Equal(t, tt.wantVx, regs.V[0])
			assert.Equal(t, tt.wantVF, regs.V[FlagRegister])
		})
	}
}

func TestAddByteWraps(t *testing.T) {
	m := newTestMachine(t, 0x6FAA, 0x60FE, 0x7003)
	runCycles(m, 3)

	regs := m.Registers()
	assert.Equal(t, uint8(0x01), regs.V[0])
	// adding an immediate never touches the flag register
	assert.Equal(t, uint8(0xAA), regs.V[FlagRegister])
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name     string
		words    []uint16
		cycles   int
		wantSkip bool
	}{
		{"se byte equal", []uint16{0x6042, 0x3042}, 2, true},
		{"se byte not equal", []uint16{0x6042, 0x3043}, 2, false},
		{"sne byte equal", []uint16{0x6042, 0x4042}, 2, false},
		{"sne byte not equal", []uint16{0x6042, 0x4043}, 2, true},
		{"se registers equal", []uint16{0x6042, 0x6142, 0x5010}, 3, true},
		{"se registers not equal", []uint16{0x6042, 0x6143, 0x5010}, 3, false},
		{"sne registers equal", []uint16{0x6042, 0x6142, 0x9010}, 3, false},
		{"sne registers not equal", []uint16{0x6042, 0x6143, 0x9010}, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, tt.words...)
			runCycles(m, tt.cycles)

			want := uint16(ProgramStart + 2*len(tt.words))
			if tt.wantSkip {
				want += 2
			}
			assert.Equal(t, want, m.PC())
		})
	}
}

func TestKeySkips(t *testing.T) {
	tests := []struct {
		name     string
		op       uint16
		key      uint8
		held     bool
		wantSkip bool
	}{
		{"skp held matching key", 0xE09E, 5, true, true},
		{"skp held other key", 0xE09E, 6, true, false},
		{"skp no key", 0xE09E, 0, false, false},
		{"sknp held matching key", 0xE0A1, 5, true, false},
		{"sknp held other key", 0xE0A1, 6, true, true},
		{"sknp no key", 0xE0A1, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, 0x6005, tt.op)
			m.SetCurrentKey(tt.key, tt.held)
			runCycles(m, 2)

			want := uint16(0x204)
			if tt.wantSkip {
				want += 2
			}
			assert.Equal(t, want, m.PC())
		})
	}
}

func TestJumps(t *testing.T) {
	m := newTestMachine(t, 0x1208, 0x0000, 0x0000, 0x0000, 0x6004, 0xB300)
	runCycles(m, 1)
	assert.Equal(t, uint16(0x208), m.PC())

	runCycles(m, 2)
	assert.Equal(t, uint16(0x304), m.PC())
}

func TestRandom(t *testing.T) {
	m := New(log.NewTestLogger(t), WithRandom(func() uint8 { return 0xAB }))
	assert.NoError(t, m.LoadProgram(wordsToBytes(0xC00F, 0xC1F0)))
	runCycles(m, 2)

	regs := m.Registers()
	assert.Equal(t, uint8(0x0B), regs.V[0])
	assert.Equal(t, uint8(0xA0), regs.V[1])
}

func TestSeededRandomIsDeterministic(t *testing.T) {
	program := wordsToBytes(0xC0FF, 0xC1FF, 0xC2FF)

	first := New(log.NewTestLogger(t), WithSeed(42))
	second := New(log.NewTestLogger(t), WithSeed(42))
	assert.NoError(t, first.LoadProgram(program))
	assert.NoError(t, second.LoadProgram(program))
	runCycles(first, 3)
	runCycles(second, 3)

	assert.Equal(t, first.Registers().V, second.Registers().V)
}

func TestTimers(t *testing.T) {
	m := newTestMachine(t, 0x6003, 0xF015, 0xF018, 0xF107)
	runCycles(m, 3)
	assert.Equal(t, Timers{Delay: 3, Sound: 3}, m.Timers())

	m.TickTimers()
	runCycles(m, 1)
	assert.Equal(t, uint8(2), m.Registers().V[1])

	for range 5 {
		m.TickTimers()
	}
	assert.Equal(t, Timers{}, m.Timers())
}

func TestAddIndex(t *testing.T) {
	tests := []struct {
		name   string
		words  []uint16
		wantI  uint16
		wantVF uint8
	}{
		{"within memory", []uint16{0x6F07, 0x6010, 0xA300, 0xF01E}, 0x310, 7},
		{"exactly memory size", []uint16{0x6F07, 0x60FF, 0xAF01, 0xF01E}, 0x1000, 7},
		{"beyond memory size", []uint16{0x6F07, 0x6002, 0xAFFF, 0xF01E}, 0x1001, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, tt.words...)
			runCycles(m, len(tt.words))

			regs := m.Registers()
			assert.Equal(t, tt.wantI, regs.I)
			assert.Equal(t, tt.wantVF, regs.V[FlagRegister])
		})
	}
}

func TestLoadFont(t *testing.T) {
	m := newTestMachine(t, 0x600A, 0xF029)
	runCycles(m, 2)
	assert.Equal(t, uint16(FontStart+50), m.Registers().I)

	// the glyph for A starts with its top row
	memory := m.Memory()
	assert.Equal(t, byte(0xF0), memory[m.Registers().I])
	assert.Equal(t, byte(0x90), memory[m.Registers().I+1])
}

func TestStoreBCD(t *testing.T) {
	tests := []struct {
		value uint8
		want  [3]byte
	}{
		{255, [3]byte{2, 5, 5}},
		{128, [3]byte{1, 2, 8}},
		{7, [3]byte{0, 0, 7}},
		{40, [3]byte{0, 4, 0}},
	}

	for _, tt := range tests {
		m := newTestMachine(t, 0x6000|uint16(tt.value), 0xA300, 0xF033)
		runCycles(m, 3)

		memory := m.Memory()
		assert.Equal(t, tt.want[:], memory[0x300:0x303])
		assert.False(t, m.Halted())
	}
}

func TestStoreLoadRegistersRoundTrip(t *testing.T) {
	m := newTestMachine(t,
		0x6011, 0x6122, 0x6233, 0x6344, 0x6455,
		0xA300, // ld I, $300
		0xF355, // ld [I], V3
		0x6000, 0x6100, 0x6200, 0x6300,
		0xF365, // ld V3, [I]
	)
	runCycles(m, 12)

	regs := m.Registers()
	assert.Equal(t, []uint8{0x11, 0x22, 0x33, 0x44, 0x55}, regs.V[:5])
	assert.Equal(t, uint16(0x300), regs.I)

	memory := m.Memory()
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44, 0x00}, memory[0x300:0x305])
}

func TestInvalidMemoryAccess(t *testing.T) {
	tests := []struct {
		name  string
		words []uint16
		halt  bool
	}{
		{"bcd at last valid address", []uint16{0xAFFD, 0xF033}, false},
		{"bcd beyond memory", []uint16{0xAFFE, 0xF033}, true},
		{"store registers at end", []uint16{0xAFFE, 0xF155}, false},
		{"store registers beyond memory", []uint16{0xAFFE, 0xF255}, true},
		{"load registers at end", []uint16{0xAFFF, 0xF065}, false},
		{"load registers beyond memory", []uint16{0xAFFF, 0xF165}, true},
		{"bcd into font memory", []uint16{0xA04E, 0xF033}, true},
		{"store registers into font memory", []uint16{0xA0B3, 0xF055}, true},
		{"store registers after font memory", []uint16{0xA0B4, 0xF055}, false},
		{"load registers from font memory", []uint16{0xA050, 0xF465}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, tt.words...)
			runCycles(m, len(tt.words))

			assert.Equal(t, tt.halt, m.Halted())
			if tt.halt {
				assert.Equal(t, ReasonInvalidMemoryAccess, m.HaltReason())
				assert.True(t, errors.Is(m.Err(), ErrInvalidMemoryAccess))
				assert.Equal(t, uint16(0x202), m.Err().(*HaltError).PC)
			}
		})
	}
}

func TestDrawClipping(t *testing.T) {
	m := newTestMachine(t,
		0x603C, // ld V0, 60
		0x611F, // ld V1, 31
		0xA20A, // ld I, $20A
		0xD012, // drw V0, V1, 2
		0x0000,
		0xFFFF, // sprite data
	)
	runCycles(m, 4)

	display := m.Display()
	for x := 60; x < DisplayWidth; x++ {
		assert.True(t, display.Pixel(x, 31))
	}
	// no horizontal wrap, no vertical wrap
	for x := range 4 {
		assert.False(t, display.Pixel(x, 31))
		assert.False(t, display.Pixel(x, 0))
	}
	for x := 60; x < DisplayWidth; x++ {
		assert.False(t, display.Pixel(x, 0))
	}
}

func TestDrawStartWraps(t *testing.T) {
	m := newTestMachine(t,
		0x6042, // ld V0, 66
		0x6122, // ld V1, 34
		0xA20A, // ld I, $20A
		0xD011, // drw V0, V1, 1
		0x0000,
		0x8000, // sprite data
	)
	runCycles(m, 4)

	assert.True(t, m.Display().Pixel(2, 2))
	assert.True(t, m.Display().Dirty())
}

func TestDrawCollision(t *testing.T) {
	m := newTestMachine(t,
		0xA20C, // ld I, $20C
		0xD001, // drw V0, V0, 1
		0xA20E, // ld I, $20E
		0xD001, // drw V0, V0, 1
		0xD001, // drw V0, V0, 1
		0x0000,
		0xF000, // sprite data
		0x0F00, // sprite data
	)

	// disjoint sprites do not collide
	runCycles(m, 4)
	assert.Equal(t, uint8(0), m.Registers().V[FlagRegister])
	for x := range 8 {
		assert.True(t, m.Display().Pixel(x, 0))
	}

	// only the last four pixels are turned off
	runCycles(m, 1)
	assert.Equal(t, uint8(1), m.Registers().V[FlagRegister])
	for x := range 4 {
		assert.True(t, m.Display().Pixel(x, 0))
	}
	for x := 4; x < 8; x++ {
		assert.False(t, m.Display().Pixel(x, 0))
	}
}

func TestClearScreen(t *testing.T) {
	m := newTestMachine(t, 0xF029, 0xD005, 0x00E0)
	runCycles(m, 2)
	assert.True(t, m.Display().Pixel(0, 0))
	m.Display().Sync(nil)
	assert.False(t, m.Display().Dirty())

	runCycles(m, 1)
	assert.True(t, m.Display().Dirty())
	for y := range DisplayHeight {
		for x := range DisplayWidth {
			assert.False(t, m.Display().Pixel(x, y))
		}
	}
}

func TestPressKeyIgnoresInvalidCodes(t *testing.T) {
	m := New(log.NewTestLogger(t))
	m.PressKey(KeyCount)
	_, held := m.CurrentKey()
	assert.False(t, held)

	m.PressKey(0xF)
	code, held := m.CurrentKey()
	assert.True(t, held)
	assert.Equal(t, uint8(0xF), code)

	m.ReleaseKey()
	_, held = m.CurrentKey()
	assert.False(t, held)
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key  string
		code uint8
		ok   bool
	}{
		{"1", 0x0, true},
		{"4", 0x3, true},
		{"q", 0x4, true},
		{"r", 0x7, true},
		{"a", 0x8, true},
		{"f", 0xB, true},
		{"z", 0xC, true},
		{"v", 0xF, true},
		{"5", 0, false},
		{"Q", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		code, ok := TranslateKey(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.code, code, tt.key)
	}
}

func TestNextInstruction(t *testing.T) {
	m := newTestMachine(t, 0x6005, 0x00E0)
	assert.Equal(t, KindLoadByte, m.NextInstruction().Kind)

	runCycles(m, 1)
	assert.Equal(t, KindClear, m.NextInstruction().Kind)
	assert.Equal(t, uint16(0x202), m.PC())
}
