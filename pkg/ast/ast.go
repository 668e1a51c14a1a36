// Package ast defines the lox syntax tree.
//
// Every node exclusively owns its children; the parser builds the tree once
// and the evaluator only reads it.
package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/lox/pkg/number"
)

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
// String renders the node in a parenthesized prefix form.
type Node interface {
	Kind() string
	NodeSpan() Span
	String() string
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpGt   BinaryOp = ">"
	OpLt   BinaryOp = "<"
	OpGtEq BinaryOp = ">="
	OpLtEq BinaryOp = "<="
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
)

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "!"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}
func (n *BoolLiteral) String() string { return strconv.FormatBool(n.Value) }

type NumberLiteral struct {
	Span  Span
	Value number.Number
}

func (n *NumberLiteral) Kind() string   { return "NumberLiteral" }
func (n *NumberLiteral) NodeSpan() Span { return n.Span }
func (n *NumberLiteral) exprNode()      {}
func (n *NumberLiteral) String() string { return n.Value.String() }

type StringLiteral struct {
	Span  Span
	Value string
}

func (n *StringLiteral) Kind() string   { return "StringLiteral" }
func (n *StringLiteral) NodeSpan() Span { return n.Span }
func (n *StringLiteral) exprNode()      {}
func (n *StringLiteral) String() string { return `"` + n.Value + `"` }

type NilLiteral struct {
	Span Span
}

func (n *NilLiteral) Kind() string   { return "NilLiteral" }
func (n *NilLiteral) NodeSpan() Span { return n.Span }
func (n *NilLiteral) exprNode()      {}
func (n *NilLiteral) String() string { return "nil" }

// Group is a parenthesized expression. It is kept distinct from its inner
// node so the tree can be displayed and formatted as written.
type Group struct {
	Span  Span
	Inner Expr
}

func (n *Group) Kind() string   { return "Group" }
func (n *Group) NodeSpan() Span { return n.Span }
func (n *Group) exprNode()      {}
func (n *Group) String() string { return "(group " + n.Inner.String() + ")" }

// --- Operators ---

type Binary struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *Binary) Kind() string   { return "Binary" }
func (n *Binary) NodeSpan() Span { return n.Span }
func (n *Binary) exprNode()      {}
func (n *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Op, n.Left, n.Right)
}

type Unary struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *Unary) Kind() string   { return "Unary" }
func (n *Unary) NodeSpan() Span { return n.Span }
func (n *Unary) exprNode()      {}
func (n *Unary) String() string { return fmt.Sprintf("(%s %s)", n.Op, n.Operand) }

// Or short-circuits when Left is true.
type Or struct {
	Span  Span
	Left  Expr
	Right Expr
}

func (n *Or) Kind() string   { return "Or" }
func (n *Or) NodeSpan() Span { return n.Span }
func (n *Or) exprNode()      {}
func (n *Or) String() string { return fmt.Sprintf("(or %s %s)", n.Left, n.Right) }

// And short-circuits when Left is false.
type And struct {
	Span  Span
	Left  Expr
	Right Expr
}

func (n *And) Kind() string   { return "And" }
func (n *And) NodeSpan() Span { return n.Span }
func (n *And) exprNode()      {}
func (n *And) String() string { return fmt.Sprintf("(and %s %s)", n.Left, n.Right) }

// --- Variables ---

// VarRef is a reference to a declared variable.
type VarRef struct {
	Span Span
	Name string
}

func (n *VarRef) Kind() string   { return "VarRef" }
func (n *VarRef) NodeSpan() Span { return n.Span }
func (n *VarRef) exprNode()      {}
func (n *VarRef) String() string { return n.Name }

// Assign rebinds an existing variable in whichever scope holds it.
type Assign struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *Assign) Kind() string   { return "Assign" }
func (n *Assign) NodeSpan() Span { return n.Span }
func (n *Assign) exprNode()      {}
func (n *Assign) String() string { return fmt.Sprintf("(= %s %s)", n.Name, n.Value) }

// --- Statements ---

// Var declares a variable in the current scope. Value is nil for an unbound
// declaration.
type Var struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *Var) Kind() string   { return "Var" }
func (n *Var) NodeSpan() Span { return n.Span }
func (n *Var) stmtNode()      {}
func (n *Var) String() string {
	if n.Value == nil {
		return "(var " + n.Name + ")"
	}
	return fmt.Sprintf("(var %s = %s)", n.Name, n.Value)
}

type Print struct {
	Span Span
	Expr Expr
}

func (n *Print) Kind() string   { return "Print" }
func (n *Print) NodeSpan() Span { return n.Span }
func (n *Print) stmtNode()      {}
func (n *Print) String() string { return "(print " + n.Expr.String() + ")" }

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}
func (n *ExprStmt) String() string { return n.Expr.String() }

// Block is a sequence of statements forming one lexical scope.
type Block struct {
	Span  Span
	Stmts []Stmt
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) stmtNode()      {}
func (n *Block) String() string {
	var b strings.Builder
	b.WriteString("(block")
	for _, s := range n.Stmts {
		b.WriteByte(' ')
		b.WriteString(s.String())
	}
	b.WriteByte(')')
	return b.String()
}

// If keeps both branches unevaluated; the branch is chosen each time the
// statement executes. Else is nil when there is no else branch.
type If struct {
	Span Span
	Cond Expr
	Then Stmt
	Else Stmt
}

func (n *If) Kind() string   { return "If" }
func (n *If) NodeSpan() Span { return n.Span }
func (n *If) stmtNode()      {}
func (n *If) String() string {
	if n.Else == nil {
		return fmt.Sprintf("(if %s %s)", n.Cond, n.Then)
	}
	return fmt.Sprintf("(if %s %s %s)", n.Cond, n.Then, n.Else)
}

// Program renders a statement list one statement per line.
func Program(stmts []Stmt) string {
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = s.String()
	}
	return strings.Join(lines, "\n")
}
