package vm

// CHIP-8 memory layout.
//
//	0x000-0x04F: unused interpreter area
//	0x050-0x0B3: font glyph table
//	0x0B4-0x1FF: unused interpreter area
//	0x200-0xFFF: program space
const (
	// MemorySize is the size of the addressable memory in bytes.
	MemorySize = 0x1000

	// ProgramStart is the address programs are loaded to and where execution begins.
	ProgramStart = 0x200

	// MaxProgramSize is the largest program that fits into memory.
	MaxProgramSize = MemorySize - ProgramStart

	// FontStart is the address of the first font glyph.
	FontStart = 0x050

	// FontEnd is the first address after the font glyph table.
	FontEnd = FontStart + len(fontData)

	// GlyphSize is the number of bytes of a single font glyph.
	GlyphSize = 5
)

// fontData contains the hexadecimal digit glyphs 0-F followed by P, N, M and R.
var fontData = [...]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
	0xF0, 0x90, 0xF0, 0x80, 0x80, // P
	0x90, 0xD0, 0xB0, 0x90, 0x90, // N
	0x88, 0xD8, 0xA8, 0x88, 0x88, // M
	0xF0, 0x90, 0xF0, 0xA0, 0x90, // R
}

// Memory is the flat address space of the machine.
type Memory [MemorySize]byte

func (m *Memory) reset() {
	*m = Memory{}
	copy(m[FontStart:], fontData[:])
}

// Read returns the byte at the given address, addresses outside of memory read as 0.
func (m *Memory) Read(address int) byte {
	if address < 0 || address >= MemorySize {
		return 0
	}
	return m[address]
}

// Word returns the big-endian 16-bit word starting at the given address.
func (m *Memory) Word(address int) uint16 {
	return uint16(m.Read(address))<<8 | uint16(m.Read(address+1))
}

// inFont returns whether any byte of the range [address, address+length) lies in the font table.
func inFont(address, length int) bool {
	return address < FontEnd && address+length > FontStart
}
