package vm

import "fmt"

// TraceEntry is a single line of a memory disassembly listing.
type TraceEntry struct {
	Address  uint16
	Word     uint16
	Mnemonic string
}

func (e TraceEntry) String() string {
	return fmt.Sprintf("%04X  %04X  %s", e.Address, e.Word, e.Mnemonic)
}

// Disassemble decodes every non-zero word of the program space, independent of whether
// it is reachable code. The memory is not modified.
func Disassemble(memory *Memory) []TraceEntry {
	var entries []TraceEntry
	for address := ProgramStart; address+1 < MemorySize; address += 2 {
		word := memory.Word(address)
		if word == 0 {
			continue
		}
		entries = append(entries, TraceEntry{
			Address:  uint16(address),
			Word:     word,
			Mnemonic: Decode(word).String(),
		})
	}
	return entries
}
