// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/microlang/mlc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Program structure
	Program NodeType = iota
	FuncDecl

	// Statements
	Assign
	Read
	Write
	VarDecl
	Call
	If
	While
	Return

	// Expression layers, outermost first
	Expression
	Term1
	Fact1
	Relation
	Exp2
	Term2
	Fact2

	// Leaves
	Ident
	IntLit
	BoolLit
	StringLit
)

var nodeTypeNames = [...]string{
	Program: "PROGRAM", FuncDecl: "FUNCTION_DECLARATION",
	Assign: "ASSIGNMENT", Read: "READ", Write: "WRITE", VarDecl: "DECLARATION",
	Call: "FUNC", If: "IF", While: "WHILE", Return: "RETURN",
	Expression: "EXPRESSION", Term1: "TERM1", Fact1: "FACT1", Relation: "RELATION",
	Exp2: "EXP2", Term2: "TERM2", Fact2: "FACT2",
	Ident: "IDENT", IntLit: "INTLIT", BoolLit: "BOOLLIT", StringLit: "STRINGLIT",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "UNKNOWN"
}

// IsStatement reports whether t can appear in a statement list
func (t NodeType) IsStatement() bool { return t >= Assign && t <= Return }

// VarType is the static type of a variable, function or expression
type VarType int

const (
	TypeUnknown VarType = iota
	TypeInt
	TypeBool
	TypeString
	TypeVoid
)

func (t VarType) String() string {
	switch t {
	case TypeInt: return "INT"
	case TypeBool: return "BOOL"
	case TypeString: return "STRING"
	case TypeVoid: return "VOID"
	default: return "UNKNOWN"
	}
}

// TypeFromToken maps a TYPE-class token name to its VarType
func TypeFromToken(name string) VarType {
	switch name {
	case token.Int: return TypeInt
	case token.Bool: return TypeBool
	case token.String: return TypeString
	case token.Void: return TypeVoid
	default: return TypeUnknown
	}
}

// Node represents a node in the Abstract Syntax Tree
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
}

// --- Node Data Structs ---

// ProgramNode is both the top-level program and the function-free sub-block
// of an if/while. End is the token that closed it.
type ProgramNode struct {
	Funcs   []*Node
	Stmts   []*Node
	End     token.Token
	IsBlock bool
}

type Param struct {
	Type VarType
	Name string
	Tok  token.Token
}

type FuncDeclNode struct {
	Name       string
	ReturnType VarType
	Params     []Param
	Body       []*Node
}

type AssignNode struct{ Target, Value *Node }
type ReadNode struct{ Targets []*Node }
type WriteNode struct{ Exprs []*Node }
type VarDeclNode struct {
	Type   VarType
	Target *Node
}
type CallNode struct {
	Name string
	Args []*Node
}
type IfNode struct{ Cond, Then, Else *Node }
type WhileNode struct{ Cond, Body *Node }
type ReturnNode struct{ Value *Node }

// ExpressionNode holds TERM1 operands joined by 'or'
type ExpressionNode struct{ Terms []*Node }

// Term1Node holds FACT1 operands joined by 'and'
type Term1Node struct{ Factors []*Node }

// Fact1Node is either 'not FACT2' (Not set, Operand used) or 'EXP2 RELATION'
// where a nil Rel is the lambda relation.
type Fact1Node struct {
	Not     bool
	Operand *Node
	Left    *Node
	Rel     *Node
}

type RelationNode struct {
	Op    string
	Right *Node
}

// Exp2Node holds TERM2 operands; Ops[i] (PLUS or MINUS) joins Terms[i] and Terms[i+1].
type Exp2Node struct {
	Terms []*Node
	Ops   []string
}

type SignedFactor struct {
	Negative bool
	Fact     *Node
}

// Term2Node holds signed FACT2 operands; Ops[i] (TIMES, DIVIDE or MODULO)
// joins Factors[i] and Factors[i+1].
type Term2Node struct {
	Factors []SignedFactor
	Ops     []string
}

// Fact2Node wraps a leaf or a parenthesized Expression
type Fact2Node struct{ Inner *Node }

type IdentNode struct{ Name string }
type LiteralNode struct{ Value string }

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewProgram(tok token.Token, funcs, stmts []*Node, end token.Token) *Node {
	return newNode(tok, Program, ProgramNode{Funcs: funcs, Stmts: stmts, End: end})
}
func NewBlock(tok token.Token, stmts []*Node, end token.Token) *Node {
	return newNode(tok, Program, ProgramNode{Stmts: stmts, End: end, IsBlock: true})
}
func NewFuncDecl(tok token.Token, name string, ret VarType, params []Param, body []*Node) *Node {
	return newNode(tok, FuncDecl, FuncDeclNode{Name: name, ReturnType: ret, Params: params, Body: body})
}
func NewAssign(tok token.Token, target, value *Node) *Node {
	return newNode(tok, Assign, AssignNode{Target: target, Value: value})
}
func NewRead(tok token.Token, targets []*Node) *Node {
	return newNode(tok, Read, ReadNode{Targets: targets})
}
func NewWrite(tok token.Token, exprs []*Node) *Node {
	return newNode(tok, Write, WriteNode{Exprs: exprs})
}
func NewVarDecl(tok token.Token, typ VarType, target *Node) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Type: typ, Target: target})
}
func NewCall(tok token.Token, name string, args []*Node) *Node {
	return newNode(tok, Call, CallNode{Name: name, Args: args})
}
func NewIf(tok token.Token, cond, then, els *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, Then: then, Else: els})
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body})
}
func NewReturn(tok token.Token, value *Node) *Node {
	return newNode(tok, Return, ReturnNode{Value: value})
}
func NewExpression(tok token.Token, terms []*Node) *Node {
	return newNode(tok, Expression, ExpressionNode{Terms: terms})
}
func NewTerm1(tok token.Token, factors []*Node) *Node {
	return newNode(tok, Term1, Term1Node{Factors: factors})
}
func NewNot(tok token.Token, operand *Node) *Node {
	return newNode(tok, Fact1, Fact1Node{Not: true, Operand: operand})
}
func NewFact1(tok token.Token, left, rel *Node) *Node {
	return newNode(tok, Fact1, Fact1Node{Left: left, Rel: rel})
}
func NewRelation(tok token.Token, op string, right *Node) *Node {
	return newNode(tok, Relation, RelationNode{Op: op, Right: right})
}
func NewExp2(tok token.Token, terms []*Node, ops []string) *Node {
	return newNode(tok, Exp2, Exp2Node{Terms: terms, Ops: ops})
}
func NewTerm2(tok token.Token, factors []SignedFactor, ops []string) *Node {
	return newNode(tok, Term2, Term2Node{Factors: factors, Ops: ops})
}
func NewFact2(tok token.Token, inner *Node) *Node {
	return newNode(tok, Fact2, Fact2Node{Inner: inner})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}
func NewIntLit(tok token.Token) *Node {
	return newNode(tok, IntLit, LiteralNode{Value: tok.Lexeme})
}
func NewBoolLit(tok token.Token) *Node {
	return newNode(tok, BoolLit, LiteralNode{Value: tok.Lexeme})
}
func NewStringLit(tok token.Token) *Node {
	return newNode(tok, StringLit, LiteralNode{Value: tok.Lexeme})
}

// Name returns the identifier of an Ident node, or "" for any other node
func (n *Node) Name() string {
	if id, ok := n.Data.(IdentNode); ok {
		return id.Name
	}
	return ""
}

// Children lists the owned child nodes in source order
func Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	switch d := n.Data.(type) {
	case ProgramNode:
		return append(append([]*Node{}, d.Funcs...), d.Stmts...)
	case FuncDeclNode:
		return d.Body
	case AssignNode:
		return []*Node{d.Target, d.Value}
	case ReadNode:
		return d.Targets
	case WriteNode:
		return d.Exprs
	case VarDeclNode:
		return []*Node{d.Target}
	case CallNode:
		return d.Args
	case IfNode:
		if d.Else != nil {
			return []*Node{d.Cond, d.Then, d.Else}
		}
		return []*Node{d.Cond, d.Then}
	case WhileNode:
		return []*Node{d.Cond, d.Body}
	case ReturnNode:
		return []*Node{d.Value}
	case ExpressionNode:
		return d.Terms
	case Term1Node:
		return d.Factors
	case Fact1Node:
		if d.Not {
			return []*Node{d.Operand}
		}
		if d.Rel != nil {
			return []*Node{d.Left, d.Rel}
		}
		return []*Node{d.Left}
	case RelationNode:
		return []*Node{d.Right}
	case Exp2Node:
		return d.Terms
	case Term2Node:
		out := make([]*Node, len(d.Factors))
		for i, f := range d.Factors {
			out[i] = f.Fact
		}
		return out
	case Fact2Node:
		return []*Node{d.Inner}
	default:
		return nil
	}
}

// Walk visits n and its descendants depth-first, in source order. Returning
// false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}
