package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/retrochip8/internal/vm"
)

const dataBytesPerLine = 16

// write outputs the program in retroasm compatible CHIP-8 assembly.
func (dis *Disasm) write(w io.Writer) error {
	if err := dis.writeHeader(w); err != nil {
		return err
	}

	endIndex := dis.endIndex()
	for index := 0; index < endIndex; {
		offsetInfo := &dis.offsets[index]
		if err := writeLabel(w, index, offsetInfo); err != nil {
			return err
		}

		if offsetInfo.IsType(codeOffset) {
			if err := writeLine(w, "    "+offsetInfo.code, dis.codeComment(offsetInfo)); err != nil {
				return fmt.Errorf("writing code: %w", err)
			}
			index += len(offsetInfo.data)
			continue
		}

		count, err := dis.writeData(w, index, endIndex)
		if err != nil {
			return err
		}
		index += count
	}
	return nil
}

func (dis *Disasm) writeHeader(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "; CHIP-8 ROM Disassembly\n"); err != nil {
		return fmt.Errorf("writing header comment: %w", err)
	}
	if _, err := fmt.Fprintf(w, "; Code base address: $%04X\n", vm.ProgramStart); err != nil {
		return fmt.Errorf("writing code base address: %w", err)
	}
	if _, err := fmt.Fprintf(w, "; Program starts at $200 in CHIP-8 memory space\n\n"); err != nil {
		return fmt.Errorf("writing memory space comment: %w", err)
	}
	if _, err := fmt.Fprintf(w, ".org $%03X\n\n", vm.ProgramStart); err != nil {
		return fmt.Errorf("writing org directive: %w", err)
	}
	return nil
}

func writeLabel(w io.Writer, index int, offsetInfo *offset) error {
	if offsetInfo.label == "" {
		return nil
	}

	if index > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w, "%s:\n", offsetInfo.label); err != nil {
		return fmt.Errorf("writing label %s: %w", offsetInfo.label, err)
	}
	return nil
}

// writeData bundles the data bytes starting at the index into a single line and returns
// the number of bytes written. A line ends at the next label or code offset.
func (dis *Disasm) writeData(w io.Writer, startIndex, endIndex int) (int, error) {
	buf := &strings.Builder{}
	buf.WriteString("    .byte ")

	count := 0
	for index := startIndex; index < endIndex && count < dataBytesPerLine; index++ {
		offsetInfo := &dis.offsets[index]
		if index > startIndex && (offsetInfo.IsType(codeOffset) || offsetInfo.label != "" || offsetInfo.comment != "") {
			break
		}
		if count > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(buf, "$%02X", offsetInfo.data[0])
		count++
	}

	first := &dis.offsets[startIndex]
	var comments []string
	if dis.options.OffsetComments {
		comments = append(comments, fmt.Sprintf("$%04X", first.address))
	}
	if first.comment != "" {
		comments = append(comments, first.comment)
	}

	if err := writeLine(w, buf.String(), strings.Join(comments, "  ")); err != nil {
		return 0, fmt.Errorf("writing data: %w", err)
	}
	return count, nil
}

// codeComment returns the comment of a code line containing its address and opcode bytes.
func (dis *Disasm) codeComment(offsetInfo *offset) string {
	var comments []string
	if dis.options.OffsetComments {
		comments = append(comments, fmt.Sprintf("$%04X", offsetInfo.address))
	}
	if dis.options.HexComments {
		comments = append(comments, hexCodeComment(offsetInfo.data))
	}
	if offsetInfo.comment != "" {
		comments = append(comments, offsetInfo.comment)
	}
	return strings.Join(comments, "  ")
}

func hexCodeComment(data []byte) string {
	buf := &strings.Builder{}
	for _, b := range data {
		fmt.Fprintf(buf, "%02X ", b)
	}
	return strings.TrimRight(buf.String(), " ")
}

func writeLine(w io.Writer, line, comment string) error {
	var err error
	if comment == "" {
		_, err = fmt.Fprintf(w, "%s\n", line)
	} else {
		_, err = fmt.Fprintf(w, "%-32s ; %s\n", line, comment)
	}
	return err
}

// endIndex finds the index after the last meaningful byte of the program.
// Trailing zero bytes are only included if requested.
func (dis *Disasm) endIndex() int {
	if dis.options.ZeroBytes {
		return len(dis.offsets)
	}

	for i := len(dis.offsets) - 1; i >= 0; i-- {
		offsetInfo := &dis.offsets[i]
		if offsetInfo.IsType(codeOffset|codeOperand) || offsetInfo.label != "" || dis.code[i] != 0 {
			return i + 1
		}
	}
	return 0
}
