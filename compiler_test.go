package vibelang

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, source string) (*ObjFunction, error) {
	t.Helper()
	program, err := NewParser(source).Parse()
	require.NoError(t, err)
	vm := NewVM()
	return Compile(vm, program)
}

func TestCompileEmptyProgramReturnsNull(t *testing.T) {
	vm := NewVM()
	program, err := NewParser("").Parse()
	require.NoError(t, err)
	fn, err := Compile(vm, program)
	require.NoError(t, err)
	result, err := vm.Interpret(fn)
	require.NoError(t, err)
	assert.True(t, result.IsNull())
}

func TestCompileTopLevelExpressionIsPendingValue(t *testing.T) {
	vm := NewVM()
	program, err := NewParser(`let x = 1; x + 1;`).Parse()
	require.NoError(t, err)
	fn, err := Compile(vm, program)
	require.NoError(t, err)
	result, err := vm.Interpret(fn)
	require.NoError(t, err)
	assert.Equal(t, float64(2), result.AsNumber())
}

func TestCompileFunctionWithZeroParameters(t *testing.T) {
	fn, err := compileSource(t, `function f() { return 1; } f();`)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fn.RegisterCount, 0)
}

func TestCompileFunctionWith255Parameters(t *testing.T) {
	var params []string
	var args []string
	var sum strings.Builder
	for i := 0; i < 255; i++ {
		params = append(params, fmt.Sprintf("p%d", i))
		args = append(args, "1")
		if i > 0 {
			sum.WriteString(" + ")
		}
		sum.WriteString(fmt.Sprintf("p%d", i))
	}
	source := fmt.Sprintf("function f(%s) { return %s; } f(%s);",
		strings.Join(params, ", "), sum.String(), strings.Join(args, ", "))

	vm := NewVM()
	result, err := RunSource(vm, source)
	require.NoError(t, err)
	assert.Equal(t, float64(255), result.AsNumber())
}

func TestCompileEmptyArrayLiteral(t *testing.T) {
	vm := NewVM()
	result, err := RunSource(vm, `[];`)
	require.NoError(t, err)
	require.True(t, result.IsArray())
	assert.Empty(t, result.AsArray().Elements)
}

func TestCompile255ElementArrayLiteral(t *testing.T) {
	var elems []string
	for i := 0; i < 255; i++ {
		elems = append(elems, fmt.Sprintf("%d", i))
	}
	source := fmt.Sprintf("[%s];", strings.Join(elems, ", "))

	vm := NewVM()
	result, err := RunSource(vm, source)
	require.NoError(t, err)
	require.True(t, result.IsArray())
	assert.Len(t, result.AsArray().Elements, 255)
}

func TestCompile65534ConstantsIsOK(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 65534; i++ {
		fmt.Fprintf(&b, "%d;\n", i)
	}
	fn, err := compileSource(t, b.String())
	require.NoError(t, err)
	assert.Len(t, fn.Chunk.Constants, 65534)
}

func TestCompile65535ConstantsIsError(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 65535; i++ {
		fmt.Fprintf(&b, "%d;\n", i)
	}
	_, err := compileSource(t, b.String())
	require.Error(t, err)
}

func TestCompileWithManyLocalsStaysWithinRegisterBudget(t *testing.T) {
	var b strings.Builder
	b.WriteString("function f() {\n")
	for i := 0; i < 255; i++ {
		fmt.Fprintf(&b, "let v%d = %d;\n", i, i)
	}
	b.WriteString("return v254;\n}\nf();")

	vm := NewVM()
	result, err := RunSource(vm, b.String())
	require.NoError(t, err)
	assert.Equal(t, float64(254), result.AsNumber())
}
