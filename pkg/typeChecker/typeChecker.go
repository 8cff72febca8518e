package typeChecker

import (
	"fmt"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/symtab"
	"github.com/microlang/mlc/pkg/token"
	"github.com/microlang/mlc/pkg/util"
)

// MismatchError reports an operand whose type does not fit its operator or
// statement. It is a semantic error.
type MismatchError struct {
	Expected ast.VarType
	Found    ast.VarType
	Tok      token.Token
	Context  string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Semantic Error: %s (expected %s, found %s)", e.Context, e.Expected, e.Found)
}
func (e *MismatchError) Is(target error) bool { return target == util.ErrSemantic }
func (e *MismatchError) Token() token.Token   { return e.Tok }

// TypeChecker infers expression types by structural recursion. It holds no
// state of its own besides the symbol table it reads.
type TypeChecker struct {
	syms *symtab.Table
	// RequireDeclared makes identifiers that have not been declared yet (in
	// traversal order) an error rather than just their installed type.
	RequireDeclared bool
}

func NewTypeChecker(syms *symtab.Table) *TypeChecker {
	return &TypeChecker{syms: syms}
}

func mismatch(want, found ast.VarType, tok token.Token, context string) error {
	return &MismatchError{Expected: want, Found: found, Tok: tok, Context: context}
}

// Check types n and requires the result to be want
func (tc *TypeChecker) Check(n *ast.Node, want ast.VarType, context string) error {
	typ, err := tc.TypeOf(n)
	if err != nil {
		return err
	}
	if typ != want {
		return mismatch(want, typ, n.Tok, context)
	}
	return nil
}

// all requires every operand to type as want. The layer's overall type is want.
func (tc *TypeChecker) all(operands []*ast.Node, want ast.VarType, context string) (ast.VarType, error) {
	for _, op := range operands {
		if err := tc.Check(op, want, context); err != nil {
			return ast.TypeUnknown, err
		}
	}
	return want, nil
}

func (tc *TypeChecker) TypeOf(n *ast.Node) (ast.VarType, error) {
	switch d := n.Data.(type) {
	case ast.ExpressionNode:
		if len(d.Terms) > 1 {
			return tc.all(d.Terms, ast.TypeBool, "Non boolean expressions with 'OR's")
		}
		return tc.TypeOf(d.Terms[0])

	case ast.Term1Node:
		if len(d.Factors) > 1 {
			return tc.all(d.Factors, ast.TypeBool, "Non boolean expressions with 'AND's")
		}
		return tc.TypeOf(d.Factors[0])

	case ast.Fact1Node:
		if d.Not {
			if err := tc.Check(d.Operand, ast.TypeBool, "Tried to not a nonbool expression"); err != nil {
				return ast.TypeUnknown, err
			}
			return ast.TypeBool, nil
		}
		if d.Rel != nil {
			right := d.Rel.Data.(ast.RelationNode).Right
			if _, err := tc.all([]*ast.Node{d.Left, right}, ast.TypeInt, "Used a non int expression with a relation op"); err != nil {
				return ast.TypeUnknown, err
			}
			return ast.TypeBool, nil
		}
		return tc.TypeOf(d.Left)

	case ast.Exp2Node:
		if len(d.Terms) > 1 {
			return tc.all(d.Terms, ast.TypeInt, "Tried to add/sub non int expressions")
		}
		return tc.TypeOf(d.Terms[0])

	case ast.Term2Node:
		if len(d.Factors) > 1 {
			facts := make([]*ast.Node, len(d.Factors))
			for i, f := range d.Factors {
				facts[i] = f.Fact
			}
			return tc.all(facts, ast.TypeInt, "Tried to mult/div/mod non int expressions")
		}
		if d.Factors[0].Negative {
			if err := tc.Check(d.Factors[0].Fact, ast.TypeInt, "Tried to use unary negation with non int expression"); err != nil {
				return ast.TypeUnknown, err
			}
			return ast.TypeInt, nil
		}
		return tc.TypeOf(d.Factors[0].Fact)

	case ast.Fact2Node:
		return tc.TypeOf(d.Inner)

	case ast.IdentNode:
		typ, err := tc.syms.LookupType(d.Name, n.Tok)
		if err != nil {
			return ast.TypeUnknown, err
		}
		if tc.RequireDeclared && !tc.syms.IsDeclared(d.Name) {
			return ast.TypeUnknown, util.Semanticf(n.Tok, "Variable used before declaration.")
		}
		return typ, nil

	case ast.LiteralNode:
		switch n.Type {
		case ast.IntLit:
			return ast.TypeInt, nil
		case ast.BoolLit:
			return ast.TypeBool, nil
		case ast.StringLit:
			return ast.TypeString, nil
		}
	}
	return ast.TypeUnknown, util.Semanticf(n.Tok, "%s node has no value type", n.Type)
}

// Operand returns the single FACT2 leaf (identifier or literal) an expression
// reduces to, looking through parentheses. It returns nil when the
// expression applies any operator.
func Operand(n *ast.Node) *ast.Node {
	for n != nil {
		switch d := n.Data.(type) {
		case ast.ExpressionNode:
			if len(d.Terms) != 1 {
				return nil
			}
			n = d.Terms[0]
		case ast.Term1Node:
			if len(d.Factors) != 1 {
				return nil
			}
			n = d.Factors[0]
		case ast.Fact1Node:
			if d.Not || d.Rel != nil {
				return nil
			}
			n = d.Left
		case ast.Exp2Node:
			if len(d.Terms) != 1 {
				return nil
			}
			n = d.Terms[0]
		case ast.Term2Node:
			if len(d.Factors) != 1 || d.Factors[0].Negative {
				return nil
			}
			n = d.Factors[0].Fact
		case ast.Fact2Node:
			n = d.Inner
		case ast.IdentNode, ast.LiteralNode:
			return n
		default:
			return nil
		}
	}
	return nil
}

// StringOperand returns the identifier or literal a STRING-typed expression
// names. Strings have no operators, so any well-typed STRING expression has one.
func (tc *TypeChecker) StringOperand(n *ast.Node) (*ast.Node, error) {
	if err := tc.Check(n, ast.TypeString, "Expected String"); err != nil {
		return nil, err
	}
	leaf := Operand(n)
	if leaf == nil {
		return nil, util.Semanticf(n.Tok, "String expression is not a single literal or identifier.")
	}
	return leaf, nil
}
