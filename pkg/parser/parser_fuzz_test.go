package parser_test

import (
	"errors"
	"testing"

	"github.com/thomasrohde/lox/pkg/ast"
	"github.com/thomasrohde/lox/pkg/lexer"
	"github.com/thomasrohde/lox/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; invalid input must come back as a typed error.
func FuzzParse(f *testing.F) {
	seeds := []string{
		`print 1;`,
		`var x = 1; print x;`,
		`var x; x = "a" + "b"; print x`,
		`{ var x = 1; { var x = 2; print x; } print x; }`,
		`var a = 1; if a == 1 print "one"; else print "other";`,
		`print true and false or !true;`,
		`print -(1 + 2) * 3 / 4 - 5;`,
		`print 1.5 >= 0.5 != false;`,
		`var a; var b; a = b = nil;`,
		`if (1 < 2) { print 1; } else if (2 < 3) { print 2; }`,
		// Incomplete and invalid input
		`{ print 1;`,
		`print (1`,
		`1 = 2;`,
		`print x;`,
		`while true print 1;`,
		`print "unterminated`,
		`print 1..2;`,
		`var x = x;`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		stmts, err := parser.ParseSource(input, "fuzz.lox")
		if err != nil {
			var pe *parser.ParseError
			var le *lexer.LexError
			if !errors.As(err, &pe) && !errors.As(err, &le) {
				t.Fatalf("untyped error %T: %v", err, err)
			}
			if stmts != nil {
				t.Fatalf("statements returned alongside error %v", err)
			}
			return
		}
		// display must be total over any tree the parser builds
		_ = ast.Program(stmts)
	})
}
