// Package options contains the program options.
package options

// Format is the encoding of a program file.
type Format string

// Supported program file formats.
const (
	FormatBinary Format = "bin" // raw big-endian instruction words
	FormatHex    Format = "hex" // hexadecimal instruction words as text
)

// Formats lists all supported program file formats.
var Formats = []Format{FormatBinary, FormatHex}

// Parameters contains file path options.
type Parameters struct {
	Input  string `flag:"i" usage:"program file"`
	Output string `flag:"o" usage:"output file for the listing or the headless dump (default: stdout)"`
	Trace  string `flag:"trace" usage:"file to write the memory listing to whenever it changes"`
}

// Flags contains behavior options.
type Flags struct {
	Format   string `flag:"f" usage:"program format: bin, hex (default: auto-detect)"`
	Disasm   bool   `flag:"disasm" usage:"write a disassembly listing instead of running the program"`
	Headless bool   `flag:"headless" usage:"run without terminal display and dump the final state"`
	Debug    bool   `flag:"debug" usage:"enable debug logging"`
	Quiet    bool   `flag:"q" usage:"quiet mode"`
}

// MachineFlags contains the pacing and machine options.
type MachineFlags struct {
	Frames         int    `flag:"frames" usage:"number of frames to run, 0 runs until halted"`
	CyclesPerFrame int    `flag:"cycles" usage:"instructions executed per frame" default:"20"`
	FrameRate      int    `flag:"rate" usage:"frames per second, 0 runs unpaced" default:"60"`
	Seed           uint64 `flag:"seed" usage:"seed of the random number generator, 0 uses a random seed"`
}

// OutputFlags contains output formatting options of the disassembler.
type OutputFlags struct {
	NoHexComments bool `flag:"nohexcomments" usage:"omit hex opcode bytes in comments"`
	NoOffsets     bool `flag:"nooffsets" usage:"omit addresses in comments"`
	ZeroBytes     bool `flag:"z" usage:"include trailing zero bytes"`
}

// Program options of the emulator.
type Program struct {
	Parameters
	Flags
	MachineFlags
	OutputFlags
}

// Disassembler defines options to control the disassembler.
type Disassembler struct {
	HexComments    bool
	OffsetComments bool
	ZeroBytes      bool
}

// NewDisassembler returns a new options instance with default options.
func NewDisassembler() Disassembler {
	return Disassembler{
		HexComments:    true,
		OffsetComments: true,
	}
}
