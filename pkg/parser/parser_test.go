package parser_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/lox/pkg/ast"
	"github.com/thomasrohde/lox/pkg/diagnostics"
	"github.com/thomasrohde/lox/pkg/lexer"
	"github.com/thomasrohde/lox/pkg/parser"
)

// helper: parse source and fail the test on any error
func mustParse(t *testing.T, source string) []ast.Stmt {
	t.Helper()
	stmts, err := parser.ParseSource(source, "test.lox")
	if err != nil {
		t.Fatalf("unexpected error for %q: %v", source, err)
	}
	return stmts
}

// helper: parse source and return the ParseError it must produce
func mustFail(t *testing.T, source string) *parser.ParseError {
	t.Helper()
	_, err := parser.ParseSource(source, "test.lox")
	if err == nil {
		t.Fatalf("expected parse of %q to fail", source)
	}
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *parser.ParseError, got %T: %v", err, err)
	}
	return pe
}

// helper: display form of a whole program
func display(t *testing.T, source string) string {
	t.Helper()
	return ast.Program(mustParse(t, source))
}

func TestExpressionDisplay(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"1;", "1"},
		{"1.5;", "1.5"},
		{`"hi";`, `"hi"`},
		{"true;", "true"},
		{"false;", "false"},
		{"nil;", "nil"},
		{"(1);", "(group 1)"},
		{"-1;", "(- 1)"},
		{"!true;", "(! true)"},
		{"!!true;", "(! (! true))"},
		{"--1;", "(- (- 1))"},
		{"1 + 2;", "(+ 1 2)"},
		{"1 + 2 * 3;", "(+ 1 (* 2 3))"},
		{"(1 + 2) * 3;", "(* (group (+ 1 2)) 3)"},
		{"8 - 4 - 2;", "(- (- 8 4) 2)"},
		{"8 / 4 / 2;", "(/ (/ 8 4) 2)"},
		{"-1 * 2;", "(* (- 1) 2)"},
		{"1 < 2 == true;", "(== (< 1 2) true)"},
		{"1 + 2 > 2 + 0;", "(> (+ 1 2) (+ 2 0))"},
		{"1 >= 2 != 3 <= 4;", "(!= (>= 1 2) (<= 3 4))"},
		{"true or false and true;", "(or true (and false true))"},
		{"true and false or true;", "(or (and true false) true)"},
		{"1 == 1 and 2 == 2;", "(and (== 1 1) (== 2 2))"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := display(t, tt.source); got != tt.want {
				t.Errorf("display = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatementDisplay(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"print 1;", "(print 1)"},
		{"var x;", "(var x)"},
		{"var x = 1;", "(var x = 1)"},
		{"var x = 1; x = 2;", "(var x = 1)\n(= x 2)"},
		{"var a; var b; a = b = 3;", "(var a)\n(var b)\n(= a (= b 3))"},
		{"{ print 1; print 2; }", "(block (print 1) (print 2))"},
		{"{}", "(block)"},
		{"if true print 1;", "(if true (print 1))"},
		{"if true print 1; else print 2;", "(if true (print 1) (print 2))"},
		{"if (1 < 2) { print 1; } else { print 2; }", "(if (group (< 1 2)) (block (print 1)) (block (print 2)))"},
		{"if true if false print 1; else print 2;", "(if true (if false (print 1) (print 2)))"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := display(t, tt.source); got != tt.want {
				t.Errorf("display = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatementCount(t *testing.T) {
	stmts := mustParse(t, "var x = 1;\nprint x;\n{ x = 2; }\nif x == 2 print x;")
	if len(stmts) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(stmts))
	}
	kinds := []string{"Var", "Print", "Block", "If"}
	for i, k := range kinds {
		if stmts[i].Kind() != k {
			t.Errorf("statement %d: kind = %s, want %s", i, stmts[i].Kind(), k)
		}
	}
}

func TestEmptyProgram(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "// only a comment\n"} {
		stmts := mustParse(t, src)
		if len(stmts) != 0 {
			t.Errorf("%q: expected no statements, got %d", src, len(stmts))
		}
	}
}

func TestImplicitFinalTerminator(t *testing.T) {
	if got := display(t, "print 1"); got != "(print 1)" {
		t.Errorf("got %q", got)
	}
	if got := display(t, "var x = 1; print x"); got != "(var x = 1)\n(print x)" {
		t.Errorf("got %q", got)
	}
}

func TestMissingSemicolonMidStream(t *testing.T) {
	pe := mustFail(t, "print 1 print 2;")
	if pe.Diag.Code != diagnostics.EParse {
		t.Errorf("code = %s, want %s", pe.Diag.Code, diagnostics.EParse)
	}
	if pe.Token.Type != lexer.TokPrint {
		t.Errorf("offending token = %s, want 'print'", pe.Token.Type)
	}
}

func TestNumberLiteralKinds(t *testing.T) {
	stmts := mustParse(t, "1; 1.5;")
	intLit := stmts[0].(*ast.ExprStmt).Expr.(*ast.NumberLiteral)
	if intLit.Value.IsFloat() || intLit.Value.Int64() != 1 {
		t.Errorf("expected integer 1, got %v", intLit.Value)
	}
	floatLit := stmts[1].(*ast.ExprStmt).Expr.(*ast.NumberLiteral)
	if !floatLit.Value.IsFloat() || floatLit.Value.Float64() != 1.5 {
		t.Errorf("expected float 1.5, got %v", floatLit.Value)
	}
}

func TestStringLiteralUnquoted(t *testing.T) {
	stmts := mustParse(t, `print "hello world";`)
	lit := stmts[0].(*ast.Print).Expr.(*ast.StringLiteral)
	if lit.Value != "hello world" {
		t.Errorf("value = %q", lit.Value)
	}
}

func TestUndeclared(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"reference", "print x;"},
		{"declared later", "print x; var x = 1;"},
		{"assignment", "x = 1;"},
		{"out of block", "{ var x = 1; } print x;"},
		{"in initializer", "var x = y;"},
		{"nested expression", "var a = 1; print a + b;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := mustFail(t, tt.source)
			if pe.Diag.Code != diagnostics.EUndeclared {
				t.Errorf("code = %s, want %s (%s)", pe.Diag.Code, diagnostics.EUndeclared, pe.Diag.Message)
			}
		})
	}
}

func TestUndeclaredNamesToken(t *testing.T) {
	pe := mustFail(t, "var a = 1;\nprint missing;")
	if pe.Token.Value != "missing" {
		t.Errorf("token = %q, want missing", pe.Token.Value)
	}
	if pe.Diag.Span == nil || pe.Diag.Span.StartLine != 2 || pe.Diag.Span.StartCol != 7 {
		t.Errorf("span = %+v, want line 2 col 7", pe.Diag.Span)
	}
	if !strings.Contains(pe.Error(), "missing") {
		t.Errorf("message %q should name the variable", pe.Error())
	}
}

func TestScopeVisibility(t *testing.T) {
	valid := []string{
		"var x = 1; { print x; }",
		"var x = 1; { { { x = 2; } } }",
		"var x = 1; { var x = 2; print x; } print x;",
		"{ var y = 1; print y; }",
		"var x = 1; if true { var y = x; print y; }",
		"var x = 1; var x = x + 1;",
		"var x = 1; { var x = x; }",
	}
	for _, src := range valid {
		t.Run(src, func(t *testing.T) {
			mustParse(t, src)
		})
	}
}

func TestSelfReferenceInInitializer(t *testing.T) {
	// the initializer is resolved before the name is bound
	pe := mustFail(t, "var x = x;")
	if pe.Diag.Code != diagnostics.EUndeclared {
		t.Errorf("code = %s, want %s", pe.Diag.Code, diagnostics.EUndeclared)
	}
}

func TestInvalidAssignTarget(t *testing.T) {
	tests := []string{
		"1 = 2;",
		`"a" = 2;`,
		"var a = 1; var b = 2; a + b = 3;",
		"var a = 1; (a) = 3;",
		"var a = 1; -a = 3;",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			pe := mustFail(t, src)
			if pe.Diag.Code != diagnostics.EAssignTarget {
				t.Errorf("code = %s, want %s (%s)", pe.Diag.Code, diagnostics.EAssignTarget, pe.Diag.Message)
			}
		})
	}
}

func TestUnterminatedBlock(t *testing.T) {
	pe := mustFail(t, "{ print 1;")
	if pe.Diag.Code != diagnostics.EUnterminatedBlock {
		t.Errorf("code = %s, want %s", pe.Diag.Code, diagnostics.EUnterminatedBlock)
	}
	if pe.Production != "block" {
		t.Errorf("production = %q, want block", pe.Production)
	}
	if pe.Token.Type != lexer.TokEOF {
		t.Errorf("token = %s, want end of file", pe.Token.Type)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		production string
	}{
		{"missing operand", "print 1 +;", "primary"},
		{"missing close paren", "print (1 + 2;", "grouping"},
		{"var without name", "var = 1;", "variable declaration"},
		{"var with number name", "var 1 = 1;", "variable declaration"},
		{"stray close brace", "}", "primary"},
		{"stray semicolon", ";", "primary"},
		{"dot", "print .;", "primary"},
		{"block needs semicolon", "{ print 1 }", "print statement"},
		{"var as if body", "if true var x = 1;", "statement"},
		{"print nothing", "print;", "primary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := mustFail(t, tt.source)
			if pe.Diag.Code != diagnostics.EParse {
				t.Errorf("code = %s, want %s (%s)", pe.Diag.Code, diagnostics.EParse, pe.Diag.Message)
			}
			if pe.Production != tt.production {
				t.Errorf("production = %q, want %q", pe.Production, tt.production)
			}
		})
	}
}

func TestUnsupportedKeywords(t *testing.T) {
	for _, kw := range []string{"class", "fun", "for", "return", "super", "this", "while"} {
		t.Run(kw, func(t *testing.T) {
			pe := mustFail(t, kw+" x;")
			if pe.Diag.Code != diagnostics.EParse {
				t.Errorf("code = %s", pe.Diag.Code)
			}
			if !strings.Contains(pe.Diag.Message, "unsupported keyword") {
				t.Errorf("message = %q", pe.Diag.Message)
			}
		})
	}

	pe := mustFail(t, "print this;")
	if !strings.Contains(pe.Diag.Message, "unsupported keyword 'this'") {
		t.Errorf("message = %q", pe.Diag.Message)
	}
}

func TestRedeclarationWarns(t *testing.T) {
	var warnings []diagnostics.Diagnostic
	p := parser.New(parser.WithWarnings(func(d diagnostics.Diagnostic) {
		warnings = append(warnings, d)
	}))

	tokens, err := lexer.Tokenize("var x = 1; var x = 2; { var x = 3; }", "test.lox")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse(tokens); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// shadowing in a nested block is not a redeclaration
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0].Message, "'x'") {
		t.Errorf("warning = %q", warnings[0].Message)
	}
	if warnings[0].Span == nil || warnings[0].Span.StartCol != 16 {
		t.Errorf("warning span = %+v, want column 16", warnings[0].Span)
	}
}

func parseWith(t *testing.T, p *parser.Parser, source string) ([]ast.Stmt, error) {
	t.Helper()
	tokens, err := lexer.Tokenize(source, "repl")
	if err != nil {
		t.Fatalf("tokenize %q: %v", source, err)
	}
	return p.Parse(tokens)
}

func TestScopePersistsAcrossParses(t *testing.T) {
	p := parser.New()
	if _, err := parseWith(t, p, "var x = 1;"); err != nil {
		t.Fatal(err)
	}
	if _, err := parseWith(t, p, "print x;"); err != nil {
		t.Fatalf("x should still be declared: %v", err)
	}
	if !p.Declared("x") {
		t.Error("Declared(x) = false")
	}
}

func TestFailedParseRestoresScope(t *testing.T) {
	p := parser.New()
	if _, err := parseWith(t, p, "var a = 1; print nope;"); err == nil {
		t.Fatal("expected error")
	}
	if p.Declared("a") {
		t.Error("declaration from a failed parse should not survive")
	}

	if _, err := parseWith(t, p, "{ var inner = 1;"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := parseWith(t, p, "print inner;"); err == nil {
		t.Error("block scope from a failed parse should not leak")
	}
}

func TestFork(t *testing.T) {
	p := parser.New()
	if _, err := parseWith(t, p, "var x;"); err != nil {
		t.Fatal(err)
	}
	fork := p.Fork()
	if _, err := parseWith(t, fork, "var y = x;"); err != nil {
		t.Fatal(err)
	}
	if p.Declared("y") {
		t.Error("declarations in a fork must not reach the original")
	}
	if !fork.Declared("y") {
		t.Error("fork should see its own declaration")
	}
}

func TestForget(t *testing.T) {
	p := parser.New()
	if _, err := parseWith(t, p, "var x; var y;"); err != nil {
		t.Fatal(err)
	}
	if !p.Forget("x") || p.Forget("z") {
		t.Error("Forget should report whether the name was declared")
	}
	if _, err := parseWith(t, p, "print x;"); err == nil {
		t.Error("x should be undeclared after Forget")
	}
	if !p.Declared("y") {
		t.Error("Forget removed the wrong name")
	}
}

func TestForkDoesNotWarn(t *testing.T) {
	warnings := 0
	p := parser.New(parser.WithWarnings(func(diagnostics.Diagnostic) { warnings++ }))
	if _, err := parseWith(t, p, "var x = 1;"); err != nil {
		t.Fatal(err)
	}
	if _, err := parseWith(t, p.Fork(), "var x = 2;"); err != nil {
		t.Fatal(err)
	}
	if warnings != 0 {
		t.Errorf("fork reported %d warnings, want 0", warnings)
	}
	if _, err := parseWith(t, p, "var x = 2;"); err != nil {
		t.Fatal(err)
	}
	if warnings != 1 {
		t.Errorf("expected 1 warning from the parser itself, got %d", warnings)
	}
}

func TestParseWithoutEOF(t *testing.T) {
	tokens, err := lexer.Tokenize("print 1;", "test.lox")
	if err != nil {
		t.Fatal(err)
	}
	tokens = tokens[:len(tokens)-1] // drop EOF
	stmts, err := parser.New().Parse(tokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 {
		t.Errorf("expected 1 statement, got %d", len(stmts))
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"{ print 1;", true},
		{"if true {", true},
		{"var x =", true},
		{"print 1 +", true},
		{`print "abc`, true},
		{"print (1", true},
		{"print x;", false},
		{"1 = 2;", false},
		{"print @;", false},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			_, err := parser.ParseSource(tt.source, "repl")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := parser.Incomplete(err); got != tt.want {
				t.Errorf("Incomplete = %v, want %v (%v)", got, tt.want, err)
			}
		})
	}

	if parser.Incomplete(nil) {
		t.Error("Incomplete(nil) = true")
	}
}

func TestLexErrorsPassThrough(t *testing.T) {
	_, err := parser.ParseSource("print 1..2;", "test.lox")
	var le *lexer.LexError
	if !errors.As(err, &le) {
		t.Fatalf("expected *lexer.LexError, got %T", err)
	}
	if le.Diag.Code != diagnostics.EMalformedNumber {
		t.Errorf("code = %s", le.Diag.Code)
	}
}

func TestSpans(t *testing.T) {
	stmts := mustParse(t, "var x = 1;\nprint x + 1;")
	printStmt := stmts[1].(*ast.Print)
	s := printStmt.Span
	if s.StartLine != 2 || s.StartCol != 1 || s.EndLine != 2 || s.EndCol != 13 {
		t.Errorf("print span = %+v", s)
	}
	bin := printStmt.Expr.(*ast.Binary)
	if bin.Span.StartCol != 7 || bin.Span.EndCol != 12 {
		t.Errorf("binary span = %+v", bin.Span)
	}
	if bin.Span.File != "test.lox" {
		t.Errorf("file = %q", bin.Span.File)
	}
}

func TestCRLFSource(t *testing.T) {
	got := display(t, "var x = 1;\r\nprint x;\r\n")
	if got != "(var x = 1)\n(print x)" {
		t.Errorf("got %q", got)
	}
}
