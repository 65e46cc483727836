package vibelang

import (
	"fmt"
	"strings"
)

// ParseError is the first syntax error hit during parsing. The parser keeps
// recovering internally (panic-mode, advancing past the damage) purely to
// suppress cascaded noise; only the first message is ever surfaced.
type ParseError struct {
	Message string
	Line    int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Message)
}

// CompileError is the first diagnostic captured while lowering an AST to
// bytecode: arity/register overflow, duplicate global, unresolved name,
// jump too far, return-from-constructor. An invalid assignment target is
// caught earlier, by the parser, and reported as a ParseError.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Message)
}

// RuntimeError is raised by the VM's dispatch loop: arity mismatch, type
// errors, out-of-range index, undefined global/property, call of a
// non-callable, and so on. Frames holds a frame-by-frame backtrace
// (function name + source line), innermost first, the same shape
// run_time_error in the original source writes to stderr.
type RuntimeError struct {
	Message string
	Frames  []RuntimeFrame
}

// RuntimeFrame names one entry in a runtime backtrace.
type RuntimeFrame struct {
	FunctionName string
	Line         int
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Message)
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "\n  at %s (line %d)", f.FunctionName, f.Line)
	}
	return b.String()
}
