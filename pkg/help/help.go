// Package help holds the text behind `lox help`.
package help

import (
	"fmt"
	"strings"
)

// QUICKREF is printed by `lox help` with no topic.
const QUICKREF = `lox v0.1 quick reference

  lox run <file|->      run a program, printing each print statement
  lox check <file>      parse and statically check a program
  lox fmt <file>        print the canonical formatting of a program
  lox tokens <file>     list the tokens of a program
  lox ast <file>        print the syntax tree of a program
  lox repl              start an interactive session
  lox help <topic>      show a topic

Topics: syntax, types, scope, diagnostics, examples
`

// TopicList is the display order of the help topics.
var TopicList = []string{"syntax", "types", "scope", "diagnostics", "examples"}

// Topics maps topic names to their text.
var Topics = map[string]string{
	"syntax": `Statements
  var name;              declare, bound to nil
  var name = expr;       declare with a value
  name = expr;           assign to an existing variable
  print expr;            print the display form of a value
  { ... }                block, opens a new scope
  if cond stmt else stmt conditional, else is optional

The last statement of a file may omit its ';'.
Comments run from // to the end of the line.

Operators, loosest first
  =                      assignment (right associative)
  or
  and
  == !=
  < <= > >=
  + -
  * /
  ! -                    unary
`,
	"types": `Values
  boolean                true, false
  integer                42, -7          (64-bit)
  float                  1.5, 2., 0.25   (any literal with a '.')
  string                 "text"          (no escapes, may span lines)
  nil                    nil

There is no implicit conversion. Arithmetic and comparison need two numbers
of the same kind: 1 + 2.0 is an error. Integer division truncates toward
zero and fails on a zero divisor. Strings support + and ==.
If conditions require booleans. The right operand of and/or must be a
boolean; the left one only decides when it short-circuits.
`,
	"scope": `Scope
  Every block opens a scope. A var inside a block shadows an outer variable
  of the same name until the block ends. Assignment never declares: it
  updates the nearest enclosing variable with that name.

  var x = 1;
  { var x = 2; print x; }   // 2
  print x;                  // 1
  { x = 3; }
  print x;                  // 3

Names must be declared before use; this is checked before the program runs.
`,
	"diagnostics": `Diagnostics
  E_UNTERMINATED_STRING  a string is missing its closing quote
  E_MALFORMED_NUMBER     a number has two '.' or does not fit 64 bits
  E_UNEXPECTED_CHAR      a character outside the language
  E_PARSE                a token the grammar does not allow here
  E_UNDECLARED           a name used before its declaration
  E_ASSIGN_TARGET        the left side of '=' is not a variable
  E_UNTERMINATED_BLOCK   a '{' without its '}'
  E_TYPE                 operands of different kinds
  E_OPERATOR             an operator the operand kind does not support
  E_LOGIC_OPERAND        a non-boolean right operand to and/or
  E_CONDITION            a non-boolean if condition
  E_DIV_ZERO             integer division by zero

Exit codes: 0 ok, 1 usage or i/o, 2 lex or parse, 4 evaluation.
`,
	"examples": `Examples
  var greeting = "hello";
  print greeting + ", world";

  var n = 10;
  if n > 5 and n < 20 {
    print "in range";
  } else {
    print "out of range";
  }

  var total = 0.0;
  { var step = 0.5; total = total + step; }
  print total;
`,
}

// MatchTopic resolves a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	default:
		return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
	}
}
