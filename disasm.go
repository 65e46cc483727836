package vibelang

import (
	"fmt"
	"strings"

	"github.com/mrunix00/vibelang/ascii"
)

// Disassemble renders a whole function's chunk as human-readable text,
// one instruction per line, in the same offset/line/mnemonic/operands
// shape the teacher's bytecode printers use. This is internal debugging
// support, not a user-facing bytecode-inspection tool, so it is not wired
// into cmd/vibelang.
func Disassemble(fn *ObjFunction) string {
	var b strings.Builder
	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	fmt.Fprintf(&b, "== %s ==\n", name)
	offset := 0
	for offset < len(fn.Chunk.Code) {
		offset = disassembleInstruction(&b, fn, offset, false)
	}
	return b.String()
}

// HighlightDisassemble is the same rendering with ascii.DefaultTheme
// coloring applied to mnemonics and operands, for terminal output.
func HighlightDisassemble(fn *ObjFunction) string {
	var b strings.Builder
	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	fmt.Fprintf(&b, "%s\n", ascii.Color(ascii.Bold, "== %s ==", name))
	offset := 0
	for offset < len(fn.Chunk.Code) {
		offset = disassembleInstruction(&b, fn, offset, true)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, fn *ObjFunction, offset int, highlight bool) int {
	chunk := fn.Chunk
	line := chunk.Lines[offset]
	fmt.Fprintf(b, "%04d %4d  ", offset, line)

	op := OpCode(chunk.Code[offset])
	mnemonic := op.String()
	if highlight {
		mnemonic = ascii.Color(ascii.DefaultTheme.Operator, "%-14s", mnemonic)
	} else {
		mnemonic = fmt.Sprintf("%-14s", mnemonic)
	}
	fmt.Fprint(b, mnemonic)

	next := formatOperands(b, chunk, op, offset+1, highlight)
	fmt.Fprint(b, "\n")
	return next
}

func operand(b *strings.Builder, highlight bool, format string, args ...any) {
	if highlight {
		fmt.Fprint(b, ascii.Color(ascii.DefaultTheme.Operand, format, args...))
	} else {
		fmt.Fprintf(b, format, args...)
	}
}

func constantOperand(b *strings.Builder, chunk *Chunk, idx uint16, highlight bool) {
	v := chunk.GetConstant(idx)
	if highlight {
		fmt.Fprint(b, ascii.Color(ascii.DefaultTheme.Literal, " %s", Print(v)))
		return
	}
	fmt.Fprintf(b, " %s", Print(v))
}

// formatOperands decodes the operand bytes for op starting at pos and
// returns the offset of the next instruction. Operand shapes match the
// per-opcode encodings written by the emit helpers in compiler.go.
func formatOperands(b *strings.Builder, chunk *Chunk, op OpCode, pos int, highlight bool) int {
	switch op {
	case OpLoadConst:
		dest := chunk.Code[pos]
		idx := chunk.ReadU16(pos + 1)
		operand(b, highlight, "R%d,", dest)
		constantOperand(b, chunk, idx, highlight)
		return pos + 3
	case OpLoadNull, OpLoadTrue, OpLoadFalse:
		operand(b, highlight, "R%d", chunk.Code[pos])
		return pos + 1
	case OpMove, OpNegate, OpNot:
		operand(b, highlight, "R%d, R%d", chunk.Code[pos], chunk.Code[pos+1])
		return pos + 2
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpEqual, OpGreater, OpLess, OpArrayGet:
		operand(b, highlight, "R%d, R%d, R%d", chunk.Code[pos], chunk.Code[pos+1], chunk.Code[pos+2])
		return pos + 3
	case OpJump, OpLoop:
		off := chunk.ReadU16(pos)
		operand(b, highlight, "%d", off)
		return pos + 2
	case OpJumpIfFalse:
		cond := chunk.Code[pos]
		off := chunk.ReadU16(pos + 1)
		operand(b, highlight, "R%d, %d", cond, off)
		return pos + 3
	case OpCall:
		dest, callee := chunk.Code[pos], chunk.Code[pos+1]
		n := int(chunk.Code[pos+2])
		operand(b, highlight, "R%d, R%d, argc=%d", dest, callee, n)
		return pos + 3 + n
	case OpReturn:
		operand(b, highlight, "R%d", chunk.Code[pos])
		return pos + 1
	case OpGetGlobal, OpSetGlobal, OpDefineGlobal:
		reg := chunk.Code[pos]
		slot := chunk.ReadU16(pos + 1)
		operand(b, highlight, "R%d, slot=%d", reg, slot)
		return pos + 3
	case OpBuildArray:
		dest := chunk.Code[pos]
		n := int(chunk.Code[pos+1])
		operand(b, highlight, "R%d, n=%d", dest, n)
		return pos + 2 + n
	case OpClass:
		dest := chunk.Code[pos]
		idx := chunk.ReadU16(pos + 1)
		operand(b, highlight, "R%d,", dest)
		constantOperand(b, chunk, idx, highlight)
		return pos + 3
	case OpMethod:
		classReg := chunk.Code[pos]
		idx := chunk.ReadU16(pos + 1)
		fnReg := chunk.Code[pos+3]
		operand(b, highlight, "R%d,", classReg)
		constantOperand(b, chunk, idx, highlight)
		operand(b, highlight, ", R%d", fnReg)
		return pos + 4
	case OpGetProperty:
		dest, objReg := chunk.Code[pos], chunk.Code[pos+1]
		idx := chunk.ReadU16(pos + 2)
		operand(b, highlight, "R%d, R%d,", dest, objReg)
		constantOperand(b, chunk, idx, highlight)
		return pos + 4
	case OpSetProperty:
		objReg := chunk.Code[pos]
		idx := chunk.ReadU16(pos + 1)
		valReg := chunk.Code[pos+3]
		operand(b, highlight, "R%d,", objReg)
		constantOperand(b, chunk, idx, highlight)
		operand(b, highlight, ", R%d", valReg)
		return pos + 4
	case OpInvoke:
		dest, objReg := chunk.Code[pos], chunk.Code[pos+1]
		idx := chunk.ReadU16(pos + 2)
		n := int(chunk.Code[pos+4])
		operand(b, highlight, "R%d, R%d,", dest, objReg)
		constantOperand(b, chunk, idx, highlight)
		operand(b, highlight, ", argc=%d", n)
		return pos + 5 + n
	default:
		return pos + 1
	}
}
