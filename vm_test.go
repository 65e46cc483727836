package vibelang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run is a small helper wrapping parse+compile+execute on a fresh VM, the
// way the CLI driver exercises one source file end to end.
func run(t *testing.T, source string) Value {
	t.Helper()
	vm := NewVM()
	result, err := RunSource(vm, source)
	require.NoError(t, err)
	return result
}

func TestEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   Value
	}{
		{
			name:   "arithmetic on globals",
			source: `let x = 41; let y = 1; x + y;`,
			want:   NumberValue(42),
		},
		{
			name:   "if/else with reassignment",
			source: `let x = 10; if (x > 5) { x = x + 1; } else { x = x - 1; } x;`,
			want:   NumberValue(11),
		},
		{
			name:   "function call",
			source: `function add(a, b) { return a + b; } add(3, 4);`,
			want:   NumberValue(7),
		},
		{
			name:   "while loop accumulation",
			source: `let sum = 0; let i = 0; while (i < 4) { sum = sum + i; i = i + 1; } sum;`,
			want:   NumberValue(6),
		},
		{
			name:   "class with constructor and method",
			source: `class Point { constructor(x) { this.x = x; } get() { return this.x; } } let p = Point(7); p.get();`,
			want:   NumberValue(7),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := run(t, tt.source)
			assert.True(t, ValuesEqual(tt.want, got), "got %s, want %s", Print(got), Print(tt.want))
		})
	}
}

func TestStringConcatenation(t *testing.T) {
	got := run(t, `let a = "foo"; let b = "bar"; a + b;`)
	require.True(t, got.IsString())
	assert.Equal(t, "foobar", got.AsString().Chars)
}

func TestPlusEqualReadsOldValueOnce(t *testing.T) {
	got := run(t, `let x = 1; x += x + 1; x;`)
	assert.Equal(t, float64(3), got.AsNumber())
}

func TestArrayAppendAndConcat(t *testing.T) {
	got := run(t, `let a = [1, 2]; let b = a + 3; b;`)
	require.True(t, got.IsArray())
	elems := got.AsArray().Elements
	require.Len(t, elems, 3)
	assert.Equal(t, float64(3), elems[2].AsNumber())

	got = run(t, `[1, 2] + [3];`)
	require.True(t, got.IsArray())
	assert.Len(t, got.AsArray().Elements, 3)
}

func TestArrayIndexOutOfRange(t *testing.T) {
	vm := NewVM()
	_, err := RunSource(vm, `let a = [1, 2]; a[5];`)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestUndefinedVariableIsCompileError(t *testing.T) {
	vm := NewVM()
	_, err := RunSource(vm, `x + 1;`)
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
}

func TestReadLocalInOwnInitializerIsError(t *testing.T) {
	vm := NewVM()
	_, err := RunSource(vm, `function f() { let x = x; return x; } f();`)
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
}

func TestRedeclaringGlobalIsError(t *testing.T) {
	vm := NewVM()
	_, err := RunSource(vm, `let x = 1; let x = 2;`)
	require.Error(t, err)
}

func TestShadowingInNestedBlockIsAllowed(t *testing.T) {
	got := run(t, `let x = 1; { let x = 2; } x;`)
	assert.Equal(t, float64(1), got.AsNumber())
}

func TestCallArityMismatchIsRuntimeError(t *testing.T) {
	vm := NewVM()
	_, err := RunSource(vm, `function f(a, b) { return a + b; } f(1);`)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.NotEmpty(t, rerr.Frames)
}

func TestBoundMethodCanBeStoredAndCalledLater(t *testing.T) {
	got := run(t, `
		class Counter {
			constructor(n) { this.n = n; }
			get() { return this.n; }
		}
		let c = Counter(5);
		let m = c.get;
		m();
	`)
	assert.Equal(t, float64(5), got.AsNumber())
}
