// Package parser implements the lox recursive-descent parser.
//
// Grammar, loosest binding first:
//
//	program     → declaration* EOF
//	declaration → "var" IDENT ( "=" expression )? ";" | statement
//	statement   → "print" expression ";" | block | ifStmt | expression ";"
//	block       → "{" declaration* "}"
//	ifStmt      → "if" expression statement ( "else" statement )?
//	expression  → assignment
//	assignment  → IDENT "=" assignment | logic_or
//	logic_or    → logic_and ( "or" logic_and )*
//	logic_and   → equality ( "and" equality )*
//	equality    → comparison ( ( "!=" | "==" ) comparison )*
//	comparison  → term ( ( ">" | ">=" | "<" | "<=" ) term )*
//	term        → factor ( ( "-" | "+" ) factor )*
//	factor      → unary ( ( "/" | "*" ) unary )*
//	unary       → ( "!" | "-" ) unary | primary
//	primary     → NUMBER | STRING | "true" | "false" | "nil" | "(" expression ")" | IDENT
//
// The final statement of a stream may omit its ';'.
//
// Variable existence is resolved while parsing: the parser keeps a scope
// stack mirroring the block structure, and a reference to a name that no
// enclosing scope declares is a parse error. This works because the
// language has no functions, so there are no forward references across call
// boundaries.
package parser

import (
	"errors"
	"fmt"

	"fortio.org/log"

	"github.com/thomasrohde/lox/pkg/ast"
	"github.com/thomasrohde/lox/pkg/diagnostics"
	"github.com/thomasrohde/lox/pkg/lexer"
	"github.com/thomasrohde/lox/pkg/scope"
)

// ParseError reports the token the parser could not accept and the grammar
// production it was matching.
type ParseError struct {
	Diag       diagnostics.Diagnostic
	Token      lexer.Token
	Production string
}

func (e *ParseError) Error() string {
	return e.Diag.Message
}

// Option configures a Parser.
type Option func(*Parser)

// WithWarnings registers a callback for non-fatal diagnostics such as a
// variable redeclared in the same scope.
func WithWarnings(fn func(diagnostics.Diagnostic)) Option {
	return func(p *Parser) {
		p.onWarning = fn
	}
}

// Parser turns a token stream into statements. Its scope survives across
// Parse calls so that successive inputs can refer to earlier declarations.
type Parser struct {
	tokens    []lexer.Token
	pos       int
	scope     *scope.Stack[*ast.Var]
	onWarning func(diagnostics.Diagnostic)
	// silent suppresses warnings, for parsers that only look ahead.
	silent bool
}

// New creates a Parser with an empty global scope.
func New(opts ...Option) *Parser {
	p := &Parser{scope: scope.New[*ast.Var]()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseSource tokenizes source and parses it with a fresh Parser.
func ParseSource(source, filename string, opts ...Option) ([]ast.Stmt, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		return nil, err
	}
	return New(opts...).Parse(tokens)
}

// Parse parses a token stream into one statement per top-level declaration.
// Whitespace tokens are ignored. Parsing stops at the first error, after
// which the scope is restored to what it was before the call.
func (p *Parser) Parse(tokens []lexer.Token) ([]ast.Stmt, error) {
	saved := p.scope.Clone()
	p.tokens = lexer.Significant(tokens)
	if len(p.tokens) == 0 || p.tokens[len(p.tokens)-1].Type != lexer.TokEOF {
		var span ast.Span
		if len(p.tokens) > 0 {
			last := p.tokens[len(p.tokens)-1].Span
			span = ast.Span{File: last.File, StartLine: last.EndLine, StartCol: last.EndCol, EndLine: last.EndLine, EndCol: last.EndCol}
		}
		p.tokens = append(p.tokens, lexer.Token{Type: lexer.TokEOF, Span: span})
	}
	p.pos = 0

	stmts, err := p.parseProgram()
	if err != nil {
		p.scope = saved
		return nil, err
	}
	return stmts, nil
}

// Fork returns a silent parser with a copy of p's scope. Parsing with the
// fork leaves p untouched and reports no warnings, so input that is probed
// and then parsed for real warns once.
func (p *Parser) Fork() *Parser {
	return &Parser{scope: p.scope.Clone(), silent: true}
}

// Forget drops a global declaration whose statement never executed. It
// reports whether name was declared.
func (p *Parser) Forget(name string) bool {
	return p.scope.Undeclare(name)
}

// Declared reports whether name is visible in the current scope.
func (p *Parser) Declared(name string) bool {
	return p.scope.Has(name)
}

// Incomplete reports whether err was caused by the input ending too early,
// such as an open block or string. Interactive callers use it to ask for
// more input.
func Incomplete(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Token.Type == lexer.TokEOF
	}
	var le *lexer.LexError
	if errors.As(err, &le) {
		return le.Diag.Code == diagnostics.EUnterminatedString
	}
	return false
}

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *Parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(typ lexer.TokenType, production string) (lexer.Token, error) {
	tok := p.current()
	if tok.Type != typ {
		return tok, p.unexpected(tok, production, fmt.Sprintf("expected %s", typ))
	}
	return p.advance(), nil
}

// endStatement consumes a ';'. End of input also terminates a statement.
func (p *Parser) endStatement(production string) error {
	switch p.peek() {
	case lexer.TokSemicolon:
		p.advance()
		return nil
	case lexer.TokEOF:
		return nil
	}
	tok := p.current()
	return p.unexpected(tok, production, "expected ';' after statement")
}

func (p *Parser) fail(code string, tok lexer.Token, production, msg, hint string) error {
	span := tok.Span
	return &ParseError{
		Diag:       diagnostics.MakeDiag(code, msg, &span, hint),
		Token:      tok,
		Production: production,
	}
}

func (p *Parser) unexpected(tok lexer.Token, production, want string) error {
	got := tok.Type.String()
	if tok.Lexeme != "" && tok.Type != lexer.TokString {
		got = fmt.Sprintf("'%s'", tok.Lexeme)
	}
	return p.fail(diagnostics.EParse, tok, production, fmt.Sprintf("%s in %s, got %s", want, production, got), "")
}

func (p *Parser) warn(d diagnostics.Diagnostic) {
	if p.silent {
		return
	}
	if d.Span != nil {
		log.Warnf("%s:%d:%d: %s", d.Span.File, d.Span.StartLine, d.Span.StartCol, d.Message)
	} else {
		log.Warnf("%s", d.Message)
	}
	if p.onWarning != nil {
		p.onWarning(d)
	}
}

func (p *Parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// prevSpan is the span of the most recently consumed token.
func (p *Parser) prevSpan() ast.Span {
	if p.pos == 0 {
		return p.current().Span
	}
	return p.tokens[p.pos-1].Span
}

func unsupportedKeyword(t lexer.TokenType) bool {
	switch t {
	case lexer.TokClass, lexer.TokFun, lexer.TokFor, lexer.TokReturn,
		lexer.TokSuper, lexer.TokThis, lexer.TokWhile:
		return true
	}
	return false
}

// --- Program ---

func (p *Parser) parseProgram() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// --- Declarations ---

func (p *Parser) parseDeclaration() (ast.Stmt, error) {
	if p.peek() == lexer.TokVar {
		return p.parseVarDecl()
	}
	return p.parseStatement()
}

func (p *Parser) parseVarDecl() (ast.Stmt, error) {
	start := p.advance() // consume 'var'
	nameTok, err := p.expect(lexer.TokIdent, "variable declaration")
	if err != nil {
		return nil, err
	}

	decl := &ast.Var{Name: nameTok.Value}
	if p.peek() == lexer.TokEquals {
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		decl.Value = value
	}
	if err := p.endStatement("variable declaration"); err != nil {
		return nil, err
	}
	decl.Span = p.spanFromTo(start.Span, p.prevSpan())

	// The initializer is resolved before the name is bound, so
	// `var x = x;` reads an outer x.
	if replaced := p.scope.Declare(decl.Name, decl); replaced {
		span := nameTok.Span
		p.warn(diagnostics.MakeDiag(
			diagnostics.EParse,
			fmt.Sprintf("variable '%s' redeclared in the same scope", decl.Name),
			&span,
			"the new declaration replaces the earlier one",
		))
	}
	return decl, nil
}

// --- Statements ---

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch tok := p.current(); tok.Type {
	case lexer.TokPrint:
		return p.parsePrint()
	case lexer.TokLBrace:
		return p.parseBlock()
	case lexer.TokIf:
		return p.parseIf()
	case lexer.TokVar:
		return nil, p.fail(diagnostics.EParse, tok, "statement",
			"variable declaration is not allowed here",
			"wrap the declaration in a block: { var ... }")
	default:
		if unsupportedKeyword(tok.Type) {
			return nil, p.fail(diagnostics.EParse, tok, "statement",
				fmt.Sprintf("unsupported keyword '%s'", tok.Lexeme), "'"+tok.Lexeme+"' is reserved but has no meaning in this language")
		}
		return p.parseExprStmt()
	}
}

func (p *Parser) parsePrint() (ast.Stmt, error) {
	start := p.advance() // consume 'print'
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.endStatement("print statement"); err != nil {
		return nil, err
	}
	return &ast.Print{
		Span: p.spanFromTo(start.Span, p.prevSpan()),
		Expr: expr,
	}, nil
}

func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.endStatement("expression statement"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{
		Span: p.spanFromTo(expr.NodeSpan(), p.prevSpan()),
		Expr: expr,
	}, nil
}

// --- Block ---

func (p *Parser) parseBlock() (ast.Stmt, error) {
	open := p.advance() // consume '{'

	p.scope.Push()
	defer p.scope.Pop()

	var stmts []ast.Stmt
	for p.peek() != lexer.TokRBrace {
		if p.peek() == lexer.TokEOF {
			return nil, p.fail(diagnostics.EUnterminatedBlock, p.current(), "block",
				fmt.Sprintf("expected '}' to close block opened at %d:%d", open.Span.StartLine, open.Span.StartCol), "")
		}
		stmt, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	closing := p.advance() // consume '}'

	return &ast.Block{
		Span:  p.spanFromTo(open.Span, closing.Span),
		Stmts: stmts,
	}, nil
}

// --- If ---

func (p *Parser) parseIf() (ast.Stmt, error) {
	start := p.advance() // consume 'if'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	stmt := &ast.If{Cond: cond, Then: then}
	if p.peek() == lexer.TokElse {
		p.advance()
		els, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	stmt.Span = p.spanFromTo(start.Span, p.prevSpan())
	return stmt, nil
}

// --- Expressions ---

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.Expr, error) {
	if p.peek() == lexer.TokIdent && p.peekAt(1) == lexer.TokEquals {
		nameTok := p.advance()
		if !p.scope.Has(nameTok.Value) {
			return nil, p.undeclared(nameTok, "assignment")
		}
		p.advance() // consume '='
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.Assign{
			Span:  p.spanFromTo(nameTok.Span, value.NodeSpan()),
			Name:  nameTok.Value,
			Value: value,
		}, nil
	}

	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek() == lexer.TokEquals {
		tok := p.current()
		return nil, p.fail(diagnostics.EAssignTarget, tok, "assignment",
			fmt.Sprintf("invalid assignment target %s", expr), "only a variable name can be assigned to")
	}
	return expr, nil
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == lexer.TokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Or{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Left:  left,
			Right: right,
		}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peek() == lexer.TokAnd {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.And{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Left:  left,
			Right: right,
		}
	}
	return left, nil
}

// binaryLevel parses one left-associative precedence level.
func (p *Parser) binaryLevel(next func() (ast.Expr, error), ops map[lexer.TokenType]ast.BinaryOp) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := ops[p.peek()]
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

var (
	equalityOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokBangEq: ast.OpNeq,
		lexer.TokEqEq:   ast.OpEqEq,
	}
	comparisonOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokGt:   ast.OpGt,
		lexer.TokGtEq: ast.OpGtEq,
		lexer.TokLt:   ast.OpLt,
		lexer.TokLtEq: ast.OpLtEq,
	}
	termOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokMinus: ast.OpSub,
		lexer.TokPlus:  ast.OpAdd,
	}
	factorOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokSlash: ast.OpDiv,
		lexer.TokStar:  ast.OpMul,
	}
)

func (p *Parser) parseEquality() (ast.Expr, error) {
	return p.binaryLevel(p.parseComparison, equalityOps)
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	return p.binaryLevel(p.parseTerm, comparisonOps)
}

func (p *Parser) parseTerm() (ast.Expr, error) {
	return p.binaryLevel(p.parseFactor, termOps)
}

func (p *Parser) parseFactor() (ast.Expr, error) {
	return p.binaryLevel(p.parseUnary, factorOps)
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	var op ast.UnaryOp
	switch p.peek() {
	case lexer.TokBang:
		op = ast.OpNot
	case lexer.TokMinus:
		op = ast.OpNeg
	default:
		return p.parsePrimary()
	}

	start := p.advance()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.Unary{
		Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
		Op:      op,
		Operand: operand,
	}, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokNumber:
		p.advance()
		return &ast.NumberLiteral{Span: tok.Span, Value: tok.Number}, nil

	case lexer.TokString:
		p.advance()
		return &ast.StringLiteral{Span: tok.Span, Value: tok.Value}, nil

	case lexer.TokTrue:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}, nil

	case lexer.TokFalse:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}, nil

	case lexer.TokNil:
		p.advance()
		return &ast.NilLiteral{Span: tok.Span}, nil

	case lexer.TokLParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		closing, err := p.expect(lexer.TokRParen, "grouping")
		if err != nil {
			return nil, err
		}
		return &ast.Group{Span: p.spanFromTo(tok.Span, closing.Span), Inner: inner}, nil

	case lexer.TokIdent:
		if !p.scope.Has(tok.Value) {
			return nil, p.undeclared(tok, "primary")
		}
		p.advance()
		return &ast.VarRef{Span: tok.Span, Name: tok.Value}, nil
	}

	if unsupportedKeyword(tok.Type) {
		return nil, p.fail(diagnostics.EParse, tok, "primary",
			fmt.Sprintf("unsupported keyword '%s'", tok.Lexeme), "'"+tok.Lexeme+"' is reserved but has no meaning in this language")
	}
	return nil, p.unexpected(tok, "primary", "expected expression")
}

func (p *Parser) undeclared(tok lexer.Token, production string) error {
	return p.fail(diagnostics.EUndeclared, tok, production,
		fmt.Sprintf("undeclared variable '%s'", tok.Value),
		fmt.Sprintf("declare it first with 'var %s;'", tok.Value))
}
