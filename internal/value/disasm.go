package value

import (
	"fmt"
	"strings"

	"rowan/internal/bytecode"
)

// Disassemble renders the chunk as a human-readable listing.
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); offset++ {
		sb.WriteString(c.DisassembleInstruction(offset))
		sb.WriteByte('\n')
	}
	for _, k := range c.Constants {
		if k.IsFunction() {
			fn := k.AsFunction()
			sb.WriteByte('\n')
			sb.WriteString(fn.Chunk.Disassemble(fn.Name))
		}
	}
	return sb.String()
}

// DisassembleInstruction renders one instruction with its line number.
func (c *Chunk) DisassembleInstruction(offset int) string {
	instr := c.Code[offset]
	op := instr.OpCode()

	line := "   |"
	if offset < len(c.Lines) && (offset == 0 || c.Lines[offset] != c.Lines[offset-1]) {
		line = fmt.Sprintf("%4d", c.Lines[offset])
	}

	switch op {
	case bytecode.OpLoadK, bytecode.OpGetGlobal, bytecode.OpSetGlobal,
		bytecode.OpClosure, bytecode.OpImport, bytecode.OpExport:
		return fmt.Sprintf("%04d %s %-10s %3d %3d    ; %s",
			offset, line, op, instr.A(), instr.Bx(), c.constName(instr.Bx()))
	case bytecode.OpJmp, bytecode.OpTForLoop:
		return fmt.Sprintf("%04d %s %-10s %3d %3d    ; to %d",
			offset, line, op, instr.A(), instr.SBx(), offset+1+instr.SBx())
	default:
		return fmt.Sprintf("%04d %s %-10s %3d %3d %3d",
			offset, line, op, instr.A(), instr.B(), instr.C())
	}
}

func (c *Chunk) constName(idx int) string {
	if idx < 0 || idx >= len(c.Constants) {
		return "?"
	}
	k := c.Constants[idx]
	if k.IsString() {
		return fmt.Sprintf("%q", k.AsString())
	}
	if k.IsFunction() {
		return "<fn " + k.AsFunction().Name + ">"
	}
	return k.ToString()
}
