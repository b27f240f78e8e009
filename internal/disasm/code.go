package disasm

import (
	"fmt"
	"slices"
)

const (
	callNaming = "sub_%03X"
	jumpNaming = "jump_%03X"
	dataNaming = "data_%03X"
)

// processJumpDestinations names all branch destinations and data references.
func (dis *Disasm) processJumpDestinations() {
	branchDestinations := make([]uint16, 0, len(dis.branchDestinations))
	for dest := range dis.branchDestinations {
		branchDestinations = append(branchDestinations, dest)
	}
	slices.Sort(branchDestinations)

	for _, address := range branchDestinations {
		index, _ := dis.addressToIndex(address)
		offsetInfo := &dis.offsets[index]

		if offsetInfo.label == "" {
			switch {
			case offsetInfo.IsType(callDestination):
				offsetInfo.label = fmt.Sprintf(callNaming, address)
			case offsetInfo.IsType(jumpDestination):
				offsetInfo.label = fmt.Sprintf(jumpNaming, address)
			default:
				offsetInfo.label = fmt.Sprintf(dataNaming, address)
			}
		}

		// the destination is the second byte of an instruction
		if offsetInfo.IsType(codeOperand) {
			dis.handleJumpIntoInstruction(index - 1)
		}
	}
}

// handleJumpIntoInstruction converts an instruction that has a destination label inside
// its second byte into data.
func (dis *Disasm) handleJumpIntoInstruction(index int) {
	offsetInfo := &dis.offsets[index]
	if !offsetInfo.IsType(codeOffset) {
		return
	}

	offsetInfo.comment = "branch into instruction detected: " + offsetInfo.code
	offsetInfo.code = ""
	offsetInfo.data = offsetInfo.data[:1]
	offsetInfo.ClearType(codeOffset)
	offsetInfo.SetType(dataOffset)

	operand := &dis.offsets[index+1]
	operand.ClearType(codeOperand)
	operand.SetType(dataOffset)
}
