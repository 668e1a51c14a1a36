package evaluator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"fortio.org/log"

	"github.com/thomasrohde/lox/pkg/ast"
	"github.com/thomasrohde/lox/pkg/diagnostics"
	"github.com/thomasrohde/lox/pkg/number"
	"github.com/thomasrohde/lox/pkg/scope"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceStmtStart TraceEventType = "stmt_start"
	TraceStmtEnd   TraceEventType = "stmt_end"
	TracePrint     TraceEventType = "print"
	TraceBranch    TraceEventType = "branch"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	Event     TraceEventType    `json:"event"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// EvalError represents a failure while evaluating a tree.
type EvalError struct {
	Diag diagnostics.Diagnostic
}

func (e *EvalError) Error() string {
	return e.Diag.Message
}

func evalErr(code string, span ast.Span, format string, args ...any) *EvalError {
	return &EvalError{Diag: diagnostics.MakeDiag(code, fmt.Sprintf(format, args...), &span, "")}
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithStdout sets the writer that print statements write to.
func WithStdout(w io.Writer) Option {
	return func(ev *Evaluator) {
		ev.out = w
	}
}

// WithTrace registers a callback for trace events.
func WithTrace(fn func(TraceEvent)) Option {
	return func(ev *Evaluator) {
		ev.trace = fn
	}
}

// Evaluator walks statement trees. Variables live in a frame stack that
// mirrors block nesting; top-level bindings persist across calls.
type Evaluator struct {
	out   io.Writer
	trace func(TraceEvent)
	env   *scope.Stack[Value]
}

// New creates an Evaluator that prints to os.Stdout.
func New(opts ...Option) *Evaluator {
	ev := &Evaluator{
		out: os.Stdout,
		env: scope.New[Value](),
	}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

func (ev *Evaluator) emit(event TraceEventType, span ast.Span, data map[string]string) {
	if ev.trace == nil {
		return
	}
	ev.trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Event:     event,
		Span:      &span,
		Data:      data,
	})
}

// Lookup returns the current value of a variable.
func (ev *Evaluator) Lookup(name string) (Value, bool) {
	return ev.env.Get(name)
}

// Run executes statements in order and returns one value per statement.
// It stops at the first failure, returning the values gathered so far; any
// blocks left open by the failure are closed.
func (ev *Evaluator) Run(stmts []ast.Stmt) ([]Value, error) {
	results := make([]Value, 0, len(stmts))
	for _, stmt := range stmts {
		ev.emit(TraceStmtStart, stmt.NodeSpan(), map[string]string{"kind": stmt.Kind()})
		v, err := ev.execStmt(stmt)
		if err != nil {
			ev.env.Reset()
			return results, err
		}
		ev.emit(TraceStmtEnd, stmt.NodeSpan(), map[string]string{"kind": stmt.Kind(), "value": Display(v)})
		log.LogVf("%s -> %s", stmt, Display(v))
		results = append(results, v)
	}
	return results, nil
}

// Evaluate evaluates a single statement or expression.
func (ev *Evaluator) Evaluate(node ast.Node) (Value, error) {
	var (
		v   Value
		err error
	)
	switch n := node.(type) {
	case ast.Stmt:
		v, err = ev.execStmt(n)
	case ast.Expr:
		v, err = ev.evalExpr(n)
	default:
		return nil, evalErr(diagnostics.EType, node.NodeSpan(), "cannot evaluate %s node", node.Kind())
	}
	if err != nil {
		ev.env.Reset()
	}
	return v, err
}

// --- Statements ---

func (ev *Evaluator) execStmt(stmt ast.Stmt) (Value, error) {
	switch s := stmt.(type) {
	case *ast.Var:
		val := NewNil()
		if s.Value != nil {
			var err error
			val, err = ev.evalExpr(s.Value)
			if err != nil {
				return nil, err
			}
		}
		ev.env.Declare(s.Name, val)
		return val, nil

	case *ast.Print:
		val, err := ev.evalExpr(s.Expr)
		if err != nil {
			return nil, err
		}
		text := Display(val)
		if _, err := fmt.Fprintln(ev.out, text); err != nil {
			return nil, evalErr(diagnostics.EIO, s.Span, "print failed: %v", err)
		}
		ev.emit(TracePrint, s.Span, map[string]string{"text": text})
		return val, nil

	case *ast.ExprStmt:
		return ev.evalExpr(s.Expr)

	case *ast.Block:
		return ev.execBlock(s)

	case *ast.If:
		return ev.execIf(s)
	}

	return nil, evalErr(diagnostics.EType, stmt.NodeSpan(), "unknown statement kind: %s", stmt.Kind())
}

func (ev *Evaluator) execBlock(b *ast.Block) (Value, error) {
	ev.env.Push()
	defer ev.env.Pop()

	last := NewNil()
	for _, stmt := range b.Stmts {
		v, err := ev.execStmt(stmt)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (ev *Evaluator) execIf(s *ast.If) (Value, error) {
	cond, err := ev.evalExpr(s.Cond)
	if err != nil {
		return nil, err
	}
	b, ok := cond.(BoolValue)
	if !ok {
		return nil, evalErr(diagnostics.ECondition, s.Cond.NodeSpan(),
			"if condition must be a boolean, got %s", TypeName(cond))
	}

	branch, taken := s.Then, "then"
	if !b.Value {
		branch, taken = s.Else, "else"
		if branch == nil {
			taken = "none"
		}
	}
	ev.emit(TraceBranch, s.Span, map[string]string{"taken": taken})
	log.LogVf("if at %d:%d took %s branch", s.Span.StartLine, s.Span.StartCol, taken)

	if branch == nil {
		return NewNil(), nil
	}
	return ev.execStmt(branch)
}

// --- Expressions ---

func (ev *Evaluator) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.BoolLiteral:
		return NewBool(e.Value), nil

	case *ast.NumberLiteral:
		return NewNumber(e.Value), nil

	case *ast.StringLiteral:
		return NewString(e.Value), nil

	case *ast.NilLiteral:
		return NewNil(), nil

	case *ast.Group:
		return ev.evalExpr(e.Inner)

	case *ast.VarRef:
		val, ok := ev.env.Get(e.Name)
		if !ok {
			return nil, evalErr(diagnostics.EUndeclared, e.Span, "undeclared variable '%s'", e.Name)
		}
		return val, nil

	case *ast.Assign:
		val, err := ev.evalExpr(e.Value)
		if err != nil {
			return nil, err
		}
		if !ev.env.Assign(e.Name, val) {
			return nil, evalErr(diagnostics.EUndeclared, e.Span, "undeclared variable '%s'", e.Name)
		}
		return val, nil

	case *ast.Or:
		return ev.evalLogic(e.Left, e.Right, true, "or")

	case *ast.And:
		return ev.evalLogic(e.Left, e.Right, false, "and")

	case *ast.Unary:
		return ev.evalUnary(e)

	case *ast.Binary:
		return ev.evalBinary(e)
	}

	return nil, evalErr(diagnostics.EType, expr.NodeSpan(), "unknown expression kind: %s", expr.Kind())
}

// evalLogic evaluates and/or. The right operand is skipped when the left one
// is the boolean shortCircuit; any other left value defers to the right
// operand, which must be a boolean.
func (ev *Evaluator) evalLogic(left, right ast.Expr, shortCircuit bool, op string) (Value, error) {
	l, err := ev.evalExpr(left)
	if err != nil {
		return nil, err
	}
	if b, ok := l.(BoolValue); ok && b.Value == shortCircuit {
		return b, nil
	}
	r, err := ev.boolOperand(right, op)
	if err != nil {
		return nil, err
	}
	return NewBool(r), nil
}

func (ev *Evaluator) boolOperand(expr ast.Expr, op string) (bool, error) {
	v, err := ev.evalExpr(expr)
	if err != nil {
		return false, err
	}
	b, ok := v.(BoolValue)
	if !ok {
		return false, evalErr(diagnostics.ELogicOperand, expr.NodeSpan(),
			"right operand of '%s' must be a boolean, got %s", op, TypeName(v))
	}
	return b.Value, nil
}

func (ev *Evaluator) evalUnary(e *ast.Unary) (Value, error) {
	operand, err := ev.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpNeg:
		if n, ok := operand.(NumberValue); ok {
			return NewNumber(n.Value.Neg()), nil
		}
	case ast.OpNot:
		if b, ok := operand.(BoolValue); ok {
			return NewBool(!b.Value), nil
		}
	}
	return nil, evalErr(diagnostics.EOperator, e.Span,
		"unary '%s' is not defined for %s", e.Op, TypeName(operand))
}

func (ev *Evaluator) evalBinary(e *ast.Binary) (Value, error) {
	left, err := ev.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	switch l := left.(type) {
	case NumberValue:
		r, ok := right.(NumberValue)
		if !ok {
			return nil, mismatch(e, left, right)
		}
		return numberOp(e, l.Value, r.Value)

	case StringValue:
		r, ok := right.(StringValue)
		if !ok {
			return nil, mismatch(e, left, right)
		}
		switch e.Op {
		case ast.OpAdd:
			return NewString(l.Value + r.Value), nil
		case ast.OpEqEq:
			return NewBool(l.Value == r.Value), nil
		}
		return nil, undefinedOp(e, left)
	}

	if TypeName(left) != TypeName(right) {
		return nil, mismatch(e, left, right)
	}
	return nil, undefinedOp(e, left)
}

func numberOp(e *ast.Binary, l, r number.Number) (Value, error) {
	var (
		n   number.Number
		b   bool
		err error
	)
	isBool := false

	switch e.Op {
	case ast.OpAdd:
		n, err = l.Add(r)
	case ast.OpSub:
		n, err = l.Sub(r)
	case ast.OpMul:
		n, err = l.Mul(r)
	case ast.OpDiv:
		n, err = l.Div(r)
	case ast.OpLt:
		b, err = l.Less(r)
		isBool = true
	case ast.OpLtEq:
		b, err = l.LessEqual(r)
		isBool = true
	case ast.OpGt:
		b, err = l.Greater(r)
		isBool = true
	case ast.OpGtEq:
		b, err = l.GreaterEqual(r)
		isBool = true
	case ast.OpEqEq:
		b, err = l.EqualTo(r)
		isBool = true
	case ast.OpNeq:
		b, err = l.EqualTo(r)
		b = !b
		isBool = true
	default:
		return nil, evalErr(diagnostics.EOperator, e.Span, "unknown operator '%s'", e.Op)
	}

	switch {
	case errors.Is(err, number.ErrKindMismatch):
		return nil, mismatch(e, NewNumber(l), NewNumber(r))
	case errors.Is(err, number.ErrDivisionByZero):
		return nil, evalErr(diagnostics.EDivZero, e.Span, "integer division by zero")
	case err != nil:
		return nil, evalErr(diagnostics.EType, e.Span, "%v", err)
	}

	if isBool {
		return NewBool(b), nil
	}
	return NewNumber(n), nil
}

func mismatch(e *ast.Binary, left, right Value) *EvalError {
	return evalErr(diagnostics.EType, e.Span,
		"operator '%s' requires operands of the same kind, got %s and %s", e.Op, TypeName(left), TypeName(right))
}

func undefinedOp(e *ast.Binary, operand Value) *EvalError {
	return evalErr(diagnostics.EOperator, e.Span,
		"operator '%s' is not defined for %s", e.Op, TypeName(operand))
}
