// Package lexer implements the lox tokenizer.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/lox/pkg/ast"
	"github.com/thomasrohde/lox/pkg/diagnostics"
	"github.com/thomasrohde/lox/pkg/number"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokAnd TokenType = iota
	TokClass
	TokElse
	TokFalse
	TokFun
	TokFor
	TokIf
	TokNil
	TokOr
	TokPrint
	TokReturn
	TokSuper
	TokThis
	TokTrue
	TokVar
	TokWhile

	// Literals
	TokNumber
	TokString

	// Identifiers
	TokIdent

	// Punctuation
	TokLParen    // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }
	TokComma     // ,
	TokDot       // .
	TokSemicolon // ;

	// Operators
	TokMinus     // -
	TokPlus      // +
	TokStar      // *
	TokSlash     // /
	TokBang      // !
	TokBangEq    // !=
	TokEquals    // =
	TokEqEq      // ==
	TokGt        // >
	TokGtEq      // >=
	TokLt        // <
	TokLtEq      // <=

	// Whitespace
	TokSpace
	TokTab
	TokNewline
	TokCarriageReturn

	// Special
	TokEOF
)

var tokenNames = [...]string{
	TokAnd:            "'and'",
	TokClass:          "'class'",
	TokElse:           "'else'",
	TokFalse:          "'false'",
	TokFun:            "'fun'",
	TokFor:            "'for'",
	TokIf:             "'if'",
	TokNil:            "'nil'",
	TokOr:             "'or'",
	TokPrint:          "'print'",
	TokReturn:         "'return'",
	TokSuper:          "'super'",
	TokThis:           "'this'",
	TokTrue:           "'true'",
	TokVar:            "'var'",
	TokWhile:          "'while'",
	TokNumber:         "number",
	TokString:         "string",
	TokIdent:          "identifier",
	TokLParen:         "'('",
	TokRParen:         "')'",
	TokLBrace:         "'{'",
	TokRBrace:         "'}'",
	TokComma:          "','",
	TokDot:            "'.'",
	TokSemicolon:      "';'",
	TokMinus:          "'-'",
	TokPlus:           "'+'",
	TokStar:           "'*'",
	TokSlash:          "'/'",
	TokBang:           "'!'",
	TokBangEq:         "'!='",
	TokEquals:         "'='",
	TokEqEq:           "'=='",
	TokGt:             "'>'",
	TokGtEq:           "'>='",
	TokLt:             "'<'",
	TokLtEq:           "'<='",
	TokSpace:          "space",
	TokTab:            "tab",
	TokNewline:        "newline",
	TokCarriageReturn: "carriage return",
	TokEOF:            "end of file",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokAnd && t <= TokWhile
}

// IsWhitespace reports whether t is a whitespace marker.
func (t TokenType) IsWhitespace() bool {
	return t >= TokSpace && t <= TokCarriageReturn
}

// Token represents a single lexer token.
type Token struct {
	Type TokenType
	// Lexeme is the exact source text of the token. String lexemes keep
	// their quotes.
	Lexeme string
	// Value is the unquoted text for TokString and the lexeme otherwise.
	Value string
	// Number is set for TokNumber.
	Number number.Number
	Span   ast.Span
}

func (t Token) String() string {
	return t.Lexeme
}

var keywords = map[string]TokenType{
	"and":    TokAnd,
	"class":  TokClass,
	"else":   TokElse,
	"false":  TokFalse,
	"fun":    TokFun,
	"for":    TokFor,
	"if":     TokIf,
	"nil":    TokNil,
	"or":     TokOr,
	"print":  TokPrint,
	"return": TokReturn,
	"super":  TokSuper,
	"this":   TokThis,
	"true":   TokTrue,
	"var":    TokVar,
	"while":  TokWhile,
}

// Keywords returns the reserved words in declaration order.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for t := TokAnd; t <= TokWhile; t++ {
		out = append(out, strings.Trim(t.String(), "'"))
	}
	return out
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) token(typ TokenType, startPos, startLine, startCol int) Token {
	text := s.source[startPos:s.pos]
	return Token{
		Type:   typ,
		Lexeme: text,
		Value:  text,
		Span:   s.span(startLine, startCol),
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

func (s *scanner) skipComment() {
	for !s.atEnd() && s.peek() != '\n' {
		s.advance()
	}
}

func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	s.advance() // consume opening "

	for !s.atEnd() {
		if s.peek() == '"' {
			s.advance() // consume closing "
			tok := s.token(TokString, startPos, startLine, startCol)
			tok.Value = s.source[startPos+1 : s.pos-1]
			return tok, nil
		}
		s.advance()
	}
	return Token{}, s.lexError(diagnostics.EUnterminatedString, startLine, startCol, "unterminated string literal")
}

func (s *scanner) scanNumber() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	seenDot := false

	for !s.atEnd() {
		ch := s.peek()
		if isDigit(ch) {
			s.advance()
			continue
		}
		if ch != '.' {
			break
		}
		if seenDot {
			return Token{}, s.lexError(diagnostics.EMalformedNumber, startLine, startCol,
				fmt.Sprintf("number literal %q has more than one decimal point", s.source[startPos:s.pos+1]))
		}
		seenDot = true
		s.advance()
	}

	tok := s.token(TokNumber, startPos, startLine, startCol)
	n, err := number.Parse(tok.Lexeme)
	if err != nil {
		return Token{}, s.lexError(diagnostics.EMalformedNumber, startLine, startCol,
			fmt.Sprintf("number literal %q is out of range", tok.Lexeme))
	}
	tok.Number = n
	return tok, nil
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for !s.atEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}

	tok := s.token(TokIdent, startPos, startLine, startCol)
	if tokType, ok := keywords[tok.Lexeme]; ok {
		tok.Type = tokType
	}
	return tok
}

func (s *scanner) lexError(code string, line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		code,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors. Diag.Code tells the failures
// apart.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// twoChar scans an operator whose one-character form may be followed by '='.
func (s *scanner) twoChar(single, withEq TokenType) Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	s.advance()
	if !s.atEnd() && s.peek() == '=' {
		s.advance()
		return s.token(withEq, startPos, startLine, startCol)
	}
	return s.token(single, startPos, startLine, startCol)
}

func (s *scanner) nextToken() (Token, error) {
	for {
		if s.atEnd() {
			return Token{
				Type: TokEOF,
				Span: s.span(s.line, s.col),
			}, nil
		}
		if s.peek() == '/' && s.pos+1 < len(s.source) && s.source[s.pos+1] == '/' {
			s.skipComment()
			continue
		}
		break
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col
	startPos := s.pos

	// Single-char tokens
	var single TokenType = -1
	switch ch {
	case '(':
		single = TokLParen
	case ')':
		single = TokRParen
	case '{':
		single = TokLBrace
	case '}':
		single = TokRBrace
	case ',':
		single = TokComma
	case '.':
		single = TokDot
	case ';':
		single = TokSemicolon
	case '-':
		single = TokMinus
	case '+':
		single = TokPlus
	case '*':
		single = TokStar
	case '/':
		single = TokSlash
	case ' ':
		single = TokSpace
	case '\t':
		single = TokTab
	case '\n':
		single = TokNewline
	case '\r':
		single = TokCarriageReturn
	}
	if single >= 0 {
		s.advance()
		return s.token(single, startPos, startLine, startCol), nil
	}

	// Operators that may take a trailing '='
	switch ch {
	case '!':
		return s.twoChar(TokBang, TokBangEq), nil
	case '=':
		return s.twoChar(TokEquals, TokEqEq), nil
	case '>':
		return s.twoChar(TokGt, TokGtEq), nil
	case '<':
		return s.twoChar(TokLt, TokLtEq), nil
	}

	if isDigit(ch) {
		return s.scanNumber()
	}

	if ch == '"' {
		return s.scanString()
	}

	if isAlpha(ch) {
		return s.scanIdentOrKeyword(), nil
	}

	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	return Token{}, s.lexError(diagnostics.EUnexpectedChar, startLine, startCol, fmt.Sprintf("unexpected character %q", r))
}

// Tokenize breaks source code into a slice of tokens, whitespace included.
// The slice always ends with a TokEOF token. Scanning stops at the first
// error.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}

// Significant returns the tokens that matter to the grammar, dropping
// whitespace markers.
func Significant(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if !tok.Type.IsWhitespace() {
			out = append(out, tok)
		}
	}
	return out
}

// Join concatenates token lexemes. For a stream produced by Tokenize this
// reproduces the source with comments removed.
func Join(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(tok.Lexeme)
	}
	return b.String()
}
