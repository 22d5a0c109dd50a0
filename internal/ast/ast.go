// Package ast defines the abstract syntax tree for lako.
//
// Nodes are plain data. Expressions and statements are closed sets: the
// interpreter, the JSON converter and the printer each switch over every
// concrete type, and a node owns its children exclusively.
package ast

import (
	"lako/internal/span"
	"lako/internal/token"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// ============================================================
// Program (top-level AST root)
// ============================================================

// Program is the parsed form of one source text.
type Program struct {
	NodeBase
	Stmts []Stmt
}

// ============================================================
// Expressions
// ============================================================

// LiteralExpr is a number, string, boolean or nil literal. Value holds
// float64, string, bool or nil respectively.
type LiteralExpr struct {
	ExprBase
	Value interface{}
}

// VariableExpr is a reference to a named variable.
type VariableExpr struct {
	ExprBase
	Name string
}

// AssignExpr assigns to a named variable: name = value.
type AssignExpr struct {
	ExprBase
	Name  string
	Value Expr
}

// UnaryExpr represents !x or -x.
type UnaryExpr struct {
	ExprBase
	Op      token.Kind
	Operand Expr
}

// BinaryExpr represents an arithmetic, comparison or equality operation.
type BinaryExpr struct {
	ExprBase
	Op    token.Kind
	Left  Expr
	Right Expr
}

// LogicalExpr represents the short-circuiting "and" / "or".
type LogicalExpr struct {
	ExprBase
	Op    token.Kind // KW_AND or KW_OR
	Left  Expr
	Right Expr
}

// GroupingExpr is a parenthesised expression.
type GroupingExpr struct {
	ExprBase
	Inner Expr
}

// CallExpr represents a call: callee(args).
type CallExpr struct {
	ExprBase
	Callee Expr
	Args   []Expr
}

// GetExpr reads a property: object.name.
type GetExpr struct {
	ExprBase
	Object Expr
	Name   string
}

// SetExpr writes a property: object.name = value.
type SetExpr struct {
	ExprBase
	Object Expr
	Name   string
	Value  Expr
}

// ThisExpr represents the 'this' keyword.
type ThisExpr struct {
	ExprBase
}

// SuperExpr represents super.method.
type SuperExpr struct {
	ExprBase
	Method string
}

// BadExpr stands in for an expression that failed to parse. It only appears
// in trees that came with syntax diagnostics.
type BadExpr struct {
	ExprBase
}

// ============================================================
// Statements
// ============================================================

// ExprStmt wraps an expression evaluated for its side effects.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

// PrintStmt writes the display form of Expr followed by a newline.
type PrintStmt struct {
	StmtBase
	Expr Expr
}

// VarStmt declares a variable: var name [= init];
type VarStmt struct {
	StmtBase
	Name string
	Init Expr // may be nil if no initializer
}

// BlockStmt represents a block of statements: { ... }.
type BlockStmt struct {
	StmtBase
	Stmts []Stmt
}

// IfStmt represents if (cond) then [else else].
type IfStmt struct {
	StmtBase
	Condition Expr
	Then      Stmt
	Else      Stmt // may be nil
}

// WhileStmt represents a while loop. For loops are desugared into it.
type WhileStmt struct {
	StmtBase
	Condition Expr
	Body      Stmt
}

// FunctionStmt declares a named function or, inside a class, a method.
type FunctionStmt struct {
	StmtBase
	Name   string
	Params []string
	Body   []Stmt
}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	StmtBase
	Value Expr // may be nil
}

// ClassStmt declares a class with an optional superclass.
type ClassStmt struct {
	StmtBase
	Name       string
	SuperClass *VariableExpr // may be nil
	Methods    []*FunctionStmt
}
