package vibelang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserLetWithoutInitializer(t *testing.T) {
	program, err := NewParser("let x;").Parse()
	require.NoError(t, err)
	require.Len(t, program.Statements, 1)
	let, ok := program.Statements[0].(*LetStmt)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name)
	assert.Nil(t, let.Init)
}

func TestParserPrecedenceClimbing(t *testing.T) {
	program, err := NewParser("1 + 2 * 3;").Parse()
	require.NoError(t, err)
	stmt := program.Statements[0].(*ExprStmt)
	bin, ok := stmt.Expr.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, TokenPlus, bin.Op)
	_, rightIsMul := bin.Right.(*BinaryExpr)
	assert.True(t, rightIsMul)
}

func TestParserAssignmentToIndexOrCallIsError(t *testing.T) {
	_, err := NewParser("f() = 1;").Parse()
	assert.Error(t, err)
	_, err = NewParser("a[0] = 1;").Parse()
	assert.Error(t, err)
}

func TestParserSetPropertyFromGetProperty(t *testing.T) {
	program, err := NewParser("a.b = 1;").Parse()
	require.NoError(t, err)
	stmt := program.Statements[0].(*ExprStmt)
	_, ok := stmt.Expr.(*SetPropertyExpr)
	assert.True(t, ok)
}

func TestParserInvokeIsFusedNode(t *testing.T) {
	program, err := NewParser("a.b(1, 2);").Parse()
	require.NoError(t, err)
	stmt := program.Statements[0].(*ExprStmt)
	invoke, ok := stmt.Expr.(*InvokeExpr)
	require.True(t, ok)
	assert.Equal(t, "b", invoke.Name)
	assert.Len(t, invoke.Args, 2)
}

func TestParserClassWithConstructorAndMethod(t *testing.T) {
	program, err := NewParser(`class C { constructor(x) { this.x = x; } m() { return this.x; } }`).Parse()
	require.NoError(t, err)
	class, ok := program.Statements[0].(*ClassStmt)
	require.True(t, ok)
	require.Len(t, class.Methods, 2)
	assert.True(t, class.Methods[0].IsConstructor)
	assert.False(t, class.Methods[1].IsConstructor)
}

func TestParserReportsFirstSyntaxErrorOnly(t *testing.T) {
	_, err := NewParser("let ;\nlet ;\nlet ;").Parse()
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Line)
}

func TestParserLexerErrorPropagatesAsParseError(t *testing.T) {
	_, err := NewParser(`let x = "unterminated;`).Parse()
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}
