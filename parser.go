package vibelang

import "fmt"

// Parser is a recursive-descent parser over vibelang source, producing an
// AST (Program) with panic-mode error recovery at statement boundaries.
// Only the first syntax error is ever reported; recovery exists purely to
// keep parsing far enough to avoid a cascade of spurious diagnostics.
type Parser struct {
	lexer     *Lexer
	current   Token
	previous  Token
	hadError  bool
	panicMode bool
	errMsg    string
	errLine   int
}

func NewParser(source string) *Parser {
	return &Parser{lexer: NewLexer(source)}
}

// Parse runs the parser to completion, returning either the parsed Program
// or the first ParseError encountered.
func (p *Parser) Parse() (*Program, error) {
	p.advance()
	var stmts []Stmt
	for !p.check(TokenEOF) {
		stmts = append(stmts, p.declarationSync())
	}
	if p.hadError {
		return nil, &ParseError{Message: p.errMsg, Line: p.errLine}
	}
	return &Program{Statements: stmts}, nil
}

// --- token stream plumbing ---

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lexer.NextToken()
		if p.current.Type != TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t TokenType) bool {
	return p.current.Type == t
}

func (p *Parser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t TokenType, message string) Token {
	if p.check(t) {
		tok := p.current
		p.advance()
		return tok
	}
	p.errorAtCurrent(message)
	return p.current
}

func (p *Parser) errorAt(tok Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	if p.hadError {
		return
	}
	p.hadError = true
	where := ""
	if tok.Type == TokenEOF {
		where = " at end"
	} else if tok.Type != TokenError {
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	p.errMsg = fmt.Sprintf("Error%s: %s", where, message)
	p.errLine = tok.Line
}

func (p *Parser) errorAtCurrent(message string)  { p.errorAt(p.current, message) }
func (p *Parser) errorAtPrevious(message string) { p.errorAt(p.previous, message) }

// synchronize advances past the current statement boundary after a syntax
// error: to the token after the next semicolon, or to the next token that
// opens a declaration.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != TokenEOF {
		if p.previous.Type == TokenSemicolon {
			return
		}
		switch p.current.Type {
		case TokenFunction, TokenLet, TokenIf, TokenWhile, TokenReturn, TokenClass:
			return
		}
		p.advance()
	}
}

func (p *Parser) declarationSync() Stmt {
	stmt := p.declaration()
	if p.panicMode {
		p.synchronize()
	}
	return stmt
}

// --- declarations & statements ---

func (p *Parser) declaration() Stmt {
	switch {
	case p.match(TokenLet):
		return p.letDeclaration()
	case p.match(TokenFunction):
		return p.functionDeclaration()
	case p.match(TokenClass):
		return p.classDeclaration()
	default:
		return p.statement()
	}
}

func (p *Parser) letDeclaration() Stmt {
	line := p.previous.Line
	name := p.consume(TokenIdentifier, "Expect variable name.")
	var init Expr
	if p.match(TokenEqual) {
		init = p.expression()
	}
	p.consume(TokenSemicolon, "Expect ';' after variable declaration.")
	return &LetStmt{stmtBase: stmtBase{line}, Name: name.Lexeme, Init: init}
}

func (p *Parser) parseParams() []string {
	p.consume(TokenLParen, "Expect '(' after name.")
	var params []string
	if !p.check(TokenRParen) {
		for {
			name := p.consume(TokenIdentifier, "Expect parameter name.")
			params = append(params, name.Lexeme)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRParen, "Expect ')' after parameters.")
	return params
}

func (p *Parser) functionDeclaration() Stmt {
	line := p.previous.Line
	name := p.consume(TokenIdentifier, "Expect function name.")
	params := p.parseParams()
	p.consume(TokenLBrace, "Expect '{' before function body.")
	body := p.block()
	return &FunctionStmt{stmtBase: stmtBase{line}, Name: name.Lexeme, Params: params, Body: body}
}

func (p *Parser) classDeclaration() Stmt {
	line := p.previous.Line
	name := p.consume(TokenIdentifier, "Expect class name.")
	p.consume(TokenLBrace, "Expect '{' before class body.")
	var methods []ClassMethod
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		methods = append(methods, p.classMethod())
	}
	p.consume(TokenRBrace, "Expect '}' after class body.")
	return &ClassStmt{stmtBase: stmtBase{line}, Name: name.Lexeme, Methods: methods}
}

func (p *Parser) classMethod() ClassMethod {
	line := p.current.Line
	isCtor := p.match(TokenConstructor)
	methodName := "constructor"
	if !isCtor {
		name := p.consume(TokenIdentifier, "Expect method name.")
		methodName = name.Lexeme
	}
	params := p.parseParams()
	p.consume(TokenLBrace, "Expect '{' before method body.")
	body := p.block()
	return ClassMethod{Name: methodName, Params: params, Body: body, IsConstructor: isCtor, Line: line}
}

func (p *Parser) statement() Stmt {
	switch {
	case p.match(TokenIf):
		return p.ifStatement()
	case p.match(TokenWhile):
		return p.whileStatement()
	case p.match(TokenReturn):
		return p.returnStatement()
	case p.match(TokenLBrace):
		line := p.previous.Line
		stmts := p.block()
		return &BlockStmt{stmtBase: stmtBase{line}, Statements: stmts}
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) block() []Stmt {
	var stmts []Stmt
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		stmts = append(stmts, p.declarationSync())
	}
	p.consume(TokenRBrace, "Expect '}' after block.")
	return stmts
}

func (p *Parser) ifStatement() Stmt {
	line := p.previous.Line
	p.consume(TokenLParen, "Expect '(' after 'if'.")
	cond := p.expression()
	p.consume(TokenRParen, "Expect ')' after condition.")
	thenBranch := p.statement()
	var elseBranch Stmt
	if p.match(TokenElse) {
		elseBranch = p.statement()
	}
	return &IfStmt{stmtBase: stmtBase{line}, Cond: cond, Then: thenBranch, Else: elseBranch}
}

func (p *Parser) whileStatement() Stmt {
	line := p.previous.Line
	p.consume(TokenLParen, "Expect '(' after 'while'.")
	cond := p.expression()
	p.consume(TokenRParen, "Expect ')' after condition.")
	body := p.statement()
	return &WhileStmt{stmtBase: stmtBase{line}, Cond: cond, Body: body}
}

func (p *Parser) returnStatement() Stmt {
	line := p.previous.Line
	var value Expr
	if !p.check(TokenSemicolon) {
		value = p.expression()
	}
	p.consume(TokenSemicolon, "Expect ';' after return value.")
	return &ReturnStmt{stmtBase: stmtBase{line}, Value: value}
}

func (p *Parser) expressionStatement() Stmt {
	line := p.current.Line
	expr := p.expression()
	p.consume(TokenSemicolon, "Expect ';' after expression.")
	return &ExprStmt{stmtBase: stmtBase{line}, Expr: expr}
}

// --- expressions, lowest to highest precedence ---

func (p *Parser) expression() Expr { return p.assignment() }

func (p *Parser) assignment() Expr {
	expr := p.equality()

	if p.match(TokenEqual) {
		line := p.previous.Line
		value := p.assignment()
		switch target := expr.(type) {
		case *IdentifierExpr:
			return &AssignExpr{exprBase: exprBase{line}, Name: target.Name, Value: value}
		case *GetPropertyExpr:
			return &SetPropertyExpr{exprBase: exprBase{line}, Object: target.Object, Name: target.Name, Value: value}
		default:
			p.errorAtPrevious("Invalid assignment target.")
			return expr
		}
	}

	if p.match(TokenPlusEqual) {
		line := p.previous.Line
		value := p.assignment()
		ident, ok := expr.(*IdentifierExpr)
		if !ok {
			p.errorAtPrevious("Invalid assignment target.")
			return expr
		}
		sum := &BinaryExpr{
			exprBase: exprBase{line},
			Op:       TokenPlus,
			Left:     &IdentifierExpr{exprBase: exprBase{line}, Name: ident.Name},
			Right:    value,
		}
		return &AssignExpr{exprBase: exprBase{line}, Name: ident.Name, Value: sum}
	}

	return expr
}

func (p *Parser) equality() Expr {
	expr := p.comparison()
	for p.check(TokenEqualEqual) || p.check(TokenBangEqual) {
		p.advance()
		op, line := p.previous.Type, p.previous.Line
		right := p.comparison()
		expr = &BinaryExpr{exprBase: exprBase{line}, Op: op, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) comparison() Expr {
	expr := p.term()
	for p.check(TokenGreater) || p.check(TokenGreaterEqual) || p.check(TokenLess) || p.check(TokenLessEqual) {
		p.advance()
		op, line := p.previous.Type, p.previous.Line
		right := p.term()
		expr = &BinaryExpr{exprBase: exprBase{line}, Op: op, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) term() Expr {
	expr := p.factor()
	for p.check(TokenPlus) || p.check(TokenMinus) {
		p.advance()
		op, line := p.previous.Type, p.previous.Line
		right := p.factor()
		expr = &BinaryExpr{exprBase: exprBase{line}, Op: op, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) factor() Expr {
	expr := p.unary()
	for p.check(TokenStar) || p.check(TokenSlash) {
		p.advance()
		op, line := p.previous.Type, p.previous.Line
		right := p.unary()
		expr = &BinaryExpr{exprBase: exprBase{line}, Op: op, Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) unary() Expr {
	if p.check(TokenBang) || p.check(TokenMinus) {
		p.advance()
		op, line := p.previous.Type, p.previous.Line
		operand := p.unary()
		return &UnaryExpr{exprBase: exprBase{line}, Op: op, Operand: operand}
	}
	return p.callIndexProperty()
}

func (p *Parser) callIndexProperty() Expr {
	expr := p.primary()
	for {
		switch {
		case p.match(TokenLParen):
			expr = p.finishCall(expr)
		case p.match(TokenLBracket):
			line := p.previous.Line
			index := p.expression()
			p.consume(TokenRBracket, "Expect ']' after index.")
			expr = &IndexExpr{exprBase: exprBase{line}, Array: expr, Index: index}
		case p.match(TokenDot):
			line := p.previous.Line
			name := p.consume(TokenIdentifier, "Expect property name after '.'.")
			if p.match(TokenLParen) {
				args := p.finishArgs()
				expr = &InvokeExpr{exprBase: exprBase{line}, Object: expr, Name: name.Lexeme, Args: args}
			} else {
				expr = &GetPropertyExpr{exprBase: exprBase{line}, Object: expr, Name: name.Lexeme}
			}
		default:
			return expr
		}
	}
}

func (p *Parser) finishArgs() []Expr {
	var args []Expr
	if !p.check(TokenRParen) {
		for {
			args = append(args, p.expression())
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRParen, "Expect ')' after arguments.")
	return args
}

func (p *Parser) finishCall(callee Expr) Expr {
	line := p.previous.Line
	args := p.finishArgs()
	return &CallExpr{exprBase: exprBase{line}, Callee: callee, Args: args}
}

func (p *Parser) arrayLiteral() Expr {
	line := p.previous.Line
	var elems []Expr
	if !p.check(TokenRBracket) {
		for {
			elems = append(elems, p.expression())
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.consume(TokenRBracket, "Expect ']' after array elements.")
	return &ArrayExpr{exprBase: exprBase{line}, Elements: elems}
}

func (p *Parser) primary() Expr {
	switch {
	case p.match(TokenNumber):
		return &NumberExpr{exprBase: exprBase{p.previous.Line}, Value: p.previous.Number}
	case p.match(TokenString):
		return &StringExpr{exprBase: exprBase{p.previous.Line}, Value: p.previous.Lexeme}
	case p.match(TokenTrue):
		return &BoolExpr{exprBase: exprBase{p.previous.Line}, Value: true}
	case p.match(TokenFalse):
		return &BoolExpr{exprBase: exprBase{p.previous.Line}, Value: false}
	case p.match(TokenNull):
		return &NullExpr{exprBase: exprBase{p.previous.Line}}
	case p.match(TokenThis):
		return &ThisExpr{exprBase: exprBase{p.previous.Line}}
	case p.match(TokenIdentifier):
		return &IdentifierExpr{exprBase: exprBase{p.previous.Line}, Name: p.previous.Lexeme}
	case p.match(TokenLBracket):
		return p.arrayLiteral()
	case p.match(TokenLParen):
		expr := p.expression()
		p.consume(TokenRParen, "Expect ')' after expression.")
		return expr
	}
	line := p.current.Line
	p.errorAtCurrent("Expect expression.")
	if !p.check(TokenEOF) {
		p.advance()
	}
	return &NullExpr{exprBase: exprBase{line}}
}
