package vibelang

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisassembleShowsMnemonicsAndOperands(t *testing.T) {
	program, err := NewParser(`let x = 1; let y = 2; x + y;`).Parse()
	require.NoError(t, err)
	vm := NewVM()
	fn, err := Compile(vm, program)
	require.NoError(t, err)

	out := Disassemble(fn)
	assert.Contains(t, out, "== script ==")
	assert.Contains(t, out, "LOAD_CONST")
	assert.Contains(t, out, "ADD")
	assert.Contains(t, out, "RETURN")
}

func TestHighlightDisassembleWrapsOperatorsInColor(t *testing.T) {
	program, err := NewParser(`1 + 2;`).Parse()
	require.NoError(t, err)
	vm := NewVM()
	fn, err := Compile(vm, program)
	require.NoError(t, err)

	out := HighlightDisassemble(fn)
	assert.True(t, strings.Contains(out, "\033["))
}
