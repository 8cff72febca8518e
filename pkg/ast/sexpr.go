package ast

import (
	"strings"

	"github.com/microlang/mlc/pkg/token"
)

var opSymbols = map[string]string{
	token.Plus: "+", token.Minus: "-", token.Times: "*", token.Divide: "/", token.Modulo: "%",
}

// Sexpr renders a tree as a compact S-expression. Single-operand expression
// layers collapse into their operand, so "1+2" prints as (+ 1 2).
func Sexpr(n *Node) string {
	var sb strings.Builder
	writeSexpr(&sb, n)
	return sb.String()
}

func writeList(sb *strings.Builder, head string, items []*Node) {
	sb.WriteString("(")
	sb.WriteString(head)
	for _, it := range items {
		sb.WriteString(" ")
		writeSexpr(sb, it)
	}
	sb.WriteString(")")
}

func writeSexpr(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	switch d := n.Data.(type) {
	case ProgramNode:
		if d.IsBlock {
			writeList(sb, "block", d.Stmts)
			return
		}
		sb.WriteString("(program")
		for _, f := range d.Funcs {
			sb.WriteString(" ")
			writeSexpr(sb, f)
		}
		sb.WriteString(" ")
		writeList(sb, "begin", d.Stmts)
		sb.WriteString(")")
	case FuncDeclNode:
		sb.WriteString("(def " + strings.ToLower(d.ReturnType.String()) + " " + d.Name + " (")
		for i, p := range d.Params {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("(" + strings.ToLower(p.Type.String()) + " " + p.Name + ")")
		}
		sb.WriteString(")")
		for _, s := range d.Body {
			sb.WriteString(" ")
			writeSexpr(sb, s)
		}
		sb.WriteString(")")
	case AssignNode:
		writeList(sb, "assign", []*Node{d.Target, d.Value})
	case ReadNode:
		writeList(sb, "read", d.Targets)
	case WriteNode:
		writeList(sb, "write", d.Exprs)
	case VarDeclNode:
		sb.WriteString("(decl " + strings.ToLower(d.Type.String()) + " " + d.Target.Name() + ")")
	case CallNode:
		writeList(sb, "func "+d.Name, d.Args)
	case IfNode:
		writeList(sb, "if", Children(n))
	case WhileNode:
		writeList(sb, "while", []*Node{d.Cond, d.Body})
	case ReturnNode:
		writeList(sb, "return", []*Node{d.Value})
	case ExpressionNode:
		writeChain(sb, "or", d.Terms)
	case Term1Node:
		writeChain(sb, "and", d.Factors)
	case Fact1Node:
		switch {
		case d.Not:
			writeList(sb, "not", []*Node{d.Operand})
		case d.Rel != nil:
			rel := d.Rel.Data.(RelationNode)
			writeList(sb, rel.Op, []*Node{d.Left, rel.Right})
		default:
			writeSexpr(sb, d.Left)
		}
	case RelationNode:
		writeList(sb, d.Op, []*Node{d.Right})
	case Exp2Node:
		writeBinary(sb, d.Terms, d.Ops, func(i int) { writeSexpr(sb, d.Terms[i]) })
	case Term2Node:
		facts := make([]*Node, len(d.Factors))
		for i, f := range d.Factors {
			facts[i] = f.Fact
		}
		writeBinary(sb, facts, d.Ops, func(i int) {
			if d.Factors[i].Negative {
				writeList(sb, "neg", []*Node{d.Factors[i].Fact})
				return
			}
			writeSexpr(sb, d.Factors[i].Fact)
		})
	case Fact2Node:
		if d.Inner.Type == Expression {
			writeList(sb, "paren", []*Node{d.Inner})
			return
		}
		writeSexpr(sb, d.Inner)
	case IdentNode:
		sb.WriteString(d.Name)
	case LiteralNode:
		sb.WriteString(d.Value)
	default:
		sb.WriteString("?")
	}
}

func writeChain(sb *strings.Builder, op string, items []*Node) {
	if len(items) == 1 {
		writeSexpr(sb, items[0])
		return
	}
	writeList(sb, op, items)
}

// writeBinary prints a left-associative operator chain
func writeBinary(sb *strings.Builder, operands []*Node, ops []string, operand func(i int)) {
	for i := len(ops) - 1; i >= 0; i-- {
		sb.WriteString("(" + opSymbols[ops[i]] + " ")
	}
	operand(0)
	for i := range ops {
		sb.WriteString(" ")
		operand(i + 1)
		sb.WriteString(")")
	}
}
