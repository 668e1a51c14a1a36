// Package validator implements static checks over parsed lox programs.
//
// The parser already rejects undeclared names and malformed syntax. The
// validator looks for operations that are certain to fail at run time
// because the kinds of their operands are known without running the program,
// such as `"a" + 1` or `if 1 print 2;`. Variables are treated as unknown
// because assignment may change the kind they hold.
package validator

import (
	"fmt"

	"github.com/thomasrohde/lox/pkg/ast"
	"github.com/thomasrohde/lox/pkg/diagnostics"
)

// kind is the statically known kind of an expression. The empty kind means
// unknown.
type kind string

const (
	unknown  kind = ""
	kBoolean kind = "boolean"
	kInteger kind = "integer"
	kFloat   kind = "float"
	kString  kind = "string"
	kNil     kind = "nil"
)

func (k kind) numeric() bool {
	return k == kInteger || k == kFloat
}

const hint = "this expression fails every time it is evaluated"

type validator struct {
	diags []diagnostics.Diagnostic
}

// Validate checks statements and returns every problem found, in source
// order. It does not stop at the first one.
func Validate(stmts []ast.Stmt) []diagnostics.Diagnostic {
	v := &validator{}
	for _, s := range stmts {
		v.validateStmt(s)
	}
	return v.diags
}

func (v *validator) addDiag(code string, span ast.Span, format string, args ...any) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, fmt.Sprintf(format, args...), &span, hint))
}

func (v *validator) validateStmt(s ast.Stmt) {
	switch stmt := s.(type) {
	case *ast.Var:
		if stmt.Value != nil {
			v.validateExpr(stmt.Value)
		}
	case *ast.Print:
		v.validateExpr(stmt.Expr)
	case *ast.ExprStmt:
		v.validateExpr(stmt.Expr)
	case *ast.Block:
		for _, inner := range stmt.Stmts {
			v.validateStmt(inner)
		}
	case *ast.If:
		if k := v.validateExpr(stmt.Cond); k != unknown && k != kBoolean {
			v.addDiag(diagnostics.ECondition, stmt.Cond.NodeSpan(), "if condition must be a boolean, got %s", k)
		}
		v.validateStmt(stmt.Then)
		if stmt.Else != nil {
			v.validateStmt(stmt.Else)
		}
	}
}

// validateExpr reports problems inside e and returns its kind.
func (v *validator) validateExpr(e ast.Expr) kind {
	switch expr := e.(type) {
	case *ast.BoolLiteral:
		return kBoolean
	case *ast.NumberLiteral:
		if expr.Value.IsFloat() {
			return kFloat
		}
		return kInteger
	case *ast.StringLiteral:
		return kString
	case *ast.NilLiteral:
		return kNil
	case *ast.Group:
		return v.validateExpr(expr.Inner)
	case *ast.VarRef:
		return unknown
	case *ast.Assign:
		return v.validateExpr(expr.Value)
	case *ast.Or:
		v.validateExpr(expr.Left)
		v.logicOperand(expr.Right, "or")
		return kBoolean
	case *ast.And:
		v.validateExpr(expr.Left)
		v.logicOperand(expr.Right, "and")
		return kBoolean
	case *ast.Unary:
		return v.validateUnary(expr)
	case *ast.Binary:
		return v.validateBinary(expr)
	}
	return unknown
}

// logicOperand checks the right operand of and/or. A non-boolean left operand
// is legal: it only means the right operand decides the result.
func (v *validator) logicOperand(e ast.Expr, op string) {
	if k := v.validateExpr(e); k != unknown && k != kBoolean {
		v.addDiag(diagnostics.ELogicOperand, e.NodeSpan(), "right operand of '%s' must be a boolean, got %s", op, k)
	}
}

func (v *validator) validateUnary(e *ast.Unary) kind {
	k := v.validateExpr(e.Operand)
	if k == unknown {
		if e.Op == ast.OpNot {
			return kBoolean
		}
		return unknown
	}
	switch {
	case e.Op == ast.OpNeg && k.numeric():
		return k
	case e.Op == ast.OpNot && k == kBoolean:
		return kBoolean
	}
	v.addDiag(diagnostics.EOperator, e.Span, "unary '%s' is not defined for %s", e.Op, k)
	return unknown
}

func (v *validator) validateBinary(e *ast.Binary) kind {
	l := v.validateExpr(e.Left)
	r := v.validateExpr(e.Right)

	comparison := false
	switch e.Op {
	case ast.OpLt, ast.OpLtEq, ast.OpGt, ast.OpGtEq, ast.OpEqEq, ast.OpNeq:
		comparison = true
	}

	if l == unknown || r == unknown {
		if comparison {
			return kBoolean
		}
		return unknown
	}

	if l != r {
		v.addDiag(diagnostics.EType, e.Span,
			"operator '%s' requires operands of the same kind, got %s and %s", e.Op, l, r)
		return unknown
	}

	switch {
	case l.numeric():
		if e.Op == ast.OpDiv && l == kInteger && isIntZero(e.Right) {
			v.addDiag(diagnostics.EDivZero, e.Span, "integer division by zero")
			return unknown
		}
	case l == kString && (e.Op == ast.OpAdd || e.Op == ast.OpEqEq):
	default:
		v.addDiag(diagnostics.EOperator, e.Span, "operator '%s' is not defined for %s", e.Op, l)
		return unknown
	}

	if comparison {
		return kBoolean
	}
	return l
}

// isIntZero reports whether e is a literal integer zero, possibly grouped.
func isIntZero(e ast.Expr) bool {
	for {
		g, ok := e.(*ast.Group)
		if !ok {
			break
		}
		e = g.Inner
	}
	lit, ok := e.(*ast.NumberLiteral)
	return ok && !lit.Value.IsFloat() && lit.Value.Int64() == 0
}
