package ast

import (
	"strconv"
	"strings"
)

// Print renders a node as a parenthesised prefix expression, e.g.
// "(* (- 123) (group 45.67))". It is meant for debugging and for tests that
// check the shape the parser produced.
func Print(node Node) string {
	var sb strings.Builder
	writeNode(&sb, node)
	return sb.String()
}

func writeNode(sb *strings.Builder, node Node) {
	switch n := node.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Program:
		for i, s := range n.Stmts {
			if i > 0 {
				sb.WriteByte('\n')
			}
			writeNode(sb, s)
		}

	// ---- Expressions ----
	case *LiteralExpr:
		sb.WriteString(literalString(n.Value))
	case *VariableExpr:
		sb.WriteString(n.Name)
	case *AssignExpr:
		parenthesize(sb, "= "+n.Name, n.Value)
	case *UnaryExpr:
		parenthesize(sb, n.Op.String(), n.Operand)
	case *BinaryExpr:
		parenthesize(sb, n.Op.String(), n.Left, n.Right)
	case *LogicalExpr:
		parenthesize(sb, n.Op.String(), n.Left, n.Right)
	case *GroupingExpr:
		parenthesize(sb, "group", n.Inner)
	case *CallExpr:
		nodes := make([]Node, 0, len(n.Args)+1)
		nodes = append(nodes, n.Callee)
		for _, a := range n.Args {
			nodes = append(nodes, a)
		}
		parenthesize(sb, "call", nodes...)
	case *GetExpr:
		parenthesize(sb, ". "+n.Name, n.Object)
	case *SetExpr:
		parenthesize(sb, "set "+n.Name, n.Object, n.Value)
	case *ThisExpr:
		sb.WriteString("this")
	case *SuperExpr:
		sb.WriteString("(super " + n.Method + ")")
	case *BadExpr:
		sb.WriteString("<bad>")

	// ---- Statements ----
	case *ExprStmt:
		parenthesize(sb, ";", n.Expr)
	case *PrintStmt:
		parenthesize(sb, "print", n.Expr)
	case *VarStmt:
		if n.Init == nil {
			sb.WriteString("(var " + n.Name + ")")
		} else {
			parenthesize(sb, "var "+n.Name, n.Init)
		}
	case *BlockStmt:
		parenthesize(sb, "block", stmtNodes(n.Stmts)...)
	case *IfStmt:
		if n.Else == nil {
			parenthesize(sb, "if", n.Condition, n.Then)
		} else {
			parenthesize(sb, "if", n.Condition, n.Then, n.Else)
		}
	case *WhileStmt:
		parenthesize(sb, "while", n.Condition, n.Body)
	case *FunctionStmt:
		parenthesize(sb, "fun "+n.Name+" ("+strings.Join(n.Params, " ")+")", stmtNodes(n.Body)...)
	case *ReturnStmt:
		if n.Value == nil {
			sb.WriteString("(return)")
		} else {
			parenthesize(sb, "return", n.Value)
		}
	case *ClassStmt:
		name := "class " + n.Name
		if n.SuperClass != nil {
			name += " < " + n.SuperClass.Name
		}
		methods := make([]Node, len(n.Methods))
		for i, md := range n.Methods {
			methods[i] = md
		}
		parenthesize(sb, name, methods...)

	default:
		sb.WriteString("<unknown>")
	}
}

func parenthesize(sb *strings.Builder, name string, nodes ...Node) {
	sb.WriteByte('(')
	sb.WriteString(name)
	for _, n := range nodes {
		sb.WriteByte(' ')
		writeNode(sb, n)
	}
	sb.WriteByte(')')
}

func stmtNodes(stmts []Stmt) []Node {
	nodes := make([]Node, len(stmts))
	for i, s := range stmts {
		nodes[i] = s
	}
	return nodes
}

func literalString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		return strconv.Quote(val)
	default:
		return "<literal>"
	}
}
