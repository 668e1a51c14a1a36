// Package formatter implements the lox source code formatter.
package formatter

import (
	"strings"

	"github.com/thomasrohde/lox/pkg/ast"
)

const indent = "  "

// Precedence table for binary-level expressions (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpEqEq: 3, ast.OpNeq: 3,
	ast.OpGt: 4, ast.OpLt: 4, ast.OpGtEq: 4, ast.OpLtEq: 4,
	ast.OpAdd: 5, ast.OpSub: 5,
	ast.OpMul: 6, ast.OpDiv: 6,
}

const (
	precAssign = 0
	precOr     = 1
	precAnd    = 2
	precUnary  = 7
	precAtom   = 8
)

func exprPrec(e ast.Expr) int {
	switch n := e.(type) {
	case *ast.Assign:
		return precAssign
	case *ast.Or:
		return precOr
	case *ast.And:
		return precAnd
	case *ast.Binary:
		return precedence[n.Op]
	case *ast.Unary:
		return precUnary
	}
	return precAtom
}

// needsParens reports whether child must be parenthesized to keep its place
// under a parent of the given precedence. Trees from the parser keep their
// groups, so this only matters for trees built by hand.
func needsParens(child ast.Expr, parentPrec int, isRight bool) bool {
	childPrec := exprPrec(child)
	if childPrec < parentPrec {
		return true
	}
	// Left-associativity: for same-precedence on right side, add parens
	return childPrec == parentPrec && isRight && childPrec != precAssign && childPrec != precAtom
}

// Format pretty-prints statements back to source code.
func Format(stmts []ast.Stmt) string {
	if len(stmts) == 0 {
		return ""
	}
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = formatStmt(s, 0)
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains // comments. String
// literals, which may span lines, are skipped.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch {
		case source[i] == '"':
			inString = !inString
		case !inString && source[i] == '/' && i+1 < len(source) && source[i+1] == '/':
			return true
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	return strings.Repeat(indent, depth) + formatStmtBody(s, depth)
}

// formatStmtBody renders s without leading indentation. Nested lines are
// indented relative to depth.
func formatStmtBody(s ast.Stmt, depth int) string {
	switch stmt := s.(type) {
	case *ast.Var:
		if stmt.Value == nil {
			return "var " + stmt.Name + ";"
		}
		return "var " + stmt.Name + " = " + formatExpr(stmt.Value) + ";"
	case *ast.Print:
		return "print " + formatExpr(stmt.Expr) + ";"
	case *ast.ExprStmt:
		return formatExpr(stmt.Expr) + ";"
	case *ast.Block:
		return formatBlock(stmt.Stmts, depth)
	case *ast.If:
		out := "if " + formatExpr(stmt.Cond) + " " + formatStmtBody(stmt.Then, depth)
		if stmt.Else != nil {
			out += " else " + formatStmtBody(stmt.Else, depth)
		}
		return out
	}
	return ""
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	lines := make([]string, 0, len(stmts)+2)
	lines = append(lines, "{")
	for _, s := range stmts {
		lines = append(lines, formatStmt(s, depth+1))
	}
	lines = append(lines, strings.Repeat(indent, depth)+"}")
	return strings.Join(lines, "\n")
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		text := expr.Value.String()
		// keep floats floats when re-read
		if expr.Value.IsFloat() && !strings.ContainsAny(text, ".IN") {
			text += ".0"
		}
		return text
	case *ast.StringLiteral:
		return `"` + expr.Value + `"`
	case *ast.BoolLiteral:
		if expr.Value {
			return "true"
		}
		return "false"
	case *ast.NilLiteral:
		return "nil"
	case *ast.VarRef:
		return expr.Name
	case *ast.Group:
		return "(" + formatExpr(expr.Inner) + ")"
	case *ast.Assign:
		return expr.Name + " = " + formatExpr(expr.Value)
	case *ast.Or:
		return formatInfix(expr.Left, "or", expr.Right, precOr)
	case *ast.And:
		return formatInfix(expr.Left, "and", expr.Right, precAnd)
	case *ast.Binary:
		return formatInfix(expr.Left, string(expr.Op), expr.Right, precedence[expr.Op])
	case *ast.Unary:
		operand := formatExpr(expr.Operand)
		if needsParens(expr.Operand, precUnary, false) {
			operand = "(" + operand + ")"
		}
		return string(expr.Op) + operand
	}
	return ""
}

func formatInfix(left ast.Expr, op string, right ast.Expr, prec int) string {
	l := formatExpr(left)
	if needsParens(left, prec, false) {
		l = "(" + l + ")"
	}
	r := formatExpr(right)
	if needsParens(right, prec, true) {
		r = "(" + r + ")"
	}
	return l + " " + op + " " + r
}
