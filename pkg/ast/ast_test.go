package ast

import (
	"testing"

	"github.com/microlang/mlc/pkg/token"
	"github.com/nalgeon/be"
)

func lit(v string) *Node {
	return NewIntLit(token.Token{Name: token.IntLit, Lexeme: v})
}

func ident(name string) *Node {
	return NewIdent(token.Token{Name: token.ID, Lexeme: name}, name)
}

// (program (def void f () (write 1)) (begin (while x (block (func f))) (write 2)))
func sampleTree() *Node {
	fn := NewFuncDecl(token.Token{}, "f", TypeVoid, nil, []*Node{NewWrite(token.Token{}, []*Node{lit("1")})})
	body := NewBlock(token.Token{}, []*Node{NewCall(token.Token{}, "f", nil)}, token.Token{})
	loop := NewWhile(token.Token{}, ident("x"), body)
	return NewProgram(token.Token{}, []*Node{fn}, []*Node{loop, NewWrite(token.Token{}, []*Node{lit("2")})}, token.Token{})
}

func TestWalkOrder(t *testing.T) {
	var got []string
	Walk(sampleTree(), func(n *Node) bool {
		got = append(got, n.Type.String())
		return true
	})
	be.Equal(t, got, []string{
		"PROGRAM", "FUNCTION_DECLARATION", "WRITE", "INTLIT",
		"WHILE", "IDENT", "PROGRAM", "FUNC", "WRITE", "INTLIT",
	})
}

func TestWalkSkip(t *testing.T) {
	var got []string
	Walk(sampleTree(), func(n *Node) bool {
		got = append(got, n.Type.String())
		return n.Type == Program
	})
	be.Equal(t, got, []string{"PROGRAM", "FUNCTION_DECLARATION", "WHILE", "WRITE"})

	calls := 0
	Walk(nil, func(*Node) bool { calls++; return true })
	be.Equal(t, calls, 0)
}

func TestChildren(t *testing.T) {
	cond := ident("b")
	then := NewBlock(token.Token{}, nil, token.Token{})
	be.Equal(t, len(Children(NewIf(token.Token{}, cond, then, nil))), 2)
	be.Equal(t, len(Children(NewIf(token.Token{}, cond, then, then))), 3)

	rel := NewRelation(token.Token{}, "<", lit("2"))
	be.Equal(t, len(Children(NewFact1(token.Token{}, lit("1"), rel))), 2)
	be.Equal(t, len(Children(NewFact1(token.Token{}, lit("1"), nil))), 1)

	term := NewTerm2(token.Token{}, []SignedFactor{{Fact: lit("1")}, {Negative: true, Fact: lit("2")}}, []string{token.Times})
	kids := Children(term)
	be.Equal(t, len(kids), 2)
	be.Equal(t, kids[1].Data.(LiteralNode).Value, "2")

	be.Equal(t, len(Children(ident("x"))), 0)
	be.Equal(t, len(Children(nil)), 0)
}

func TestTypeNames(t *testing.T) {
	be.Equal(t, TypeFromToken(token.Int), TypeInt)
	be.Equal(t, TypeFromToken(token.Bool), TypeBool)
	be.Equal(t, TypeFromToken(token.String), TypeString)
	be.Equal(t, TypeFromToken(token.Void), TypeVoid)
	be.Equal(t, TypeFromToken(token.ID), TypeUnknown)
	be.Equal(t, TypeString.String(), "STRING")

	be.Equal(t, Fact2.String(), "FACT2")
	be.Equal(t, NodeType(99).String(), "UNKNOWN")
	be.True(t, Assign.IsStatement())
	be.True(t, Return.IsStatement())
	be.True(t, !Expression.IsStatement())
	be.True(t, !FuncDecl.IsStatement())
}

func TestNodeName(t *testing.T) {
	be.Equal(t, ident("abc").Name(), "abc")
	be.Equal(t, lit("1").Name(), "")
}
