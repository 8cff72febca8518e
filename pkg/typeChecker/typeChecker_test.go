package typeChecker

import (
	"errors"
	"testing"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/lexer"
	"github.com/microlang/mlc/pkg/parser"
	"github.com/microlang/mlc/pkg/symtab"
	"github.com/microlang/mlc/pkg/token"
	"github.com/microlang/mlc/pkg/util"
	"github.com/nalgeon/be"
)

// exprOf parses "begin <decls> write(<expr>); end" and returns the expression
func exprOf(t *testing.T, decls, expr string) (*ast.Node, *symtab.Table) {
	t.Helper()
	syms := symtab.New()
	src := "begin " + decls + " write(" + expr + "); end"
	root, err := parser.Parse(lexer.NewLexer([]rune(src), 0, lexer.DefaultRules()), syms)
	be.Err(t, err, nil)
	stmts := root.Data.(ast.ProgramNode).Stmts
	write := stmts[len(stmts)-1].Data.(ast.WriteNode)
	return write.Exprs[0], syms
}

const decls = "int i; bool b; string s;"

func TestTypeOf(t *testing.T) {
	tests := []struct {
		expr string
		want ast.VarType
	}{
		{"1", ast.TypeInt},
		{"1 + 2 * 3", ast.TypeInt},
		{"- i % 2", ast.TypeInt},
		{"(i)", ast.TypeInt},
		{"true", ast.TypeBool},
		{"b", ast.TypeBool},
		{"i < 3", ast.TypeBool},
		{"1 == 1", ast.TypeBool},
		{"not b", ast.TypeBool},
		{"b and i > 0 or false", ast.TypeBool},
		{"(b or b) and b", ast.TypeBool},
		{`"hello"`, ast.TypeString},
		{"s", ast.TypeString},
		{"((s))", ast.TypeString},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			n, syms := exprOf(t, decls, tt.expr)
			typ, err := NewTypeChecker(syms).TypeOf(n)
			be.Err(t, err, nil)
			be.Equal(t, typ, tt.want)
		})
	}
}

func TestTypeMismatch(t *testing.T) {
	tests := []struct {
		expr    string
		context string
	}{
		{"1 or true", "Non boolean expressions with 'OR's"},
		{"b and 2", "Non boolean expressions with 'AND's"},
		{"not 1", "Tried to not a nonbool expression"},
		{"b < 1", "Used a non int expression with a relation op"},
		{"1 + b", "Tried to add/sub non int expressions"},
		{`"a" * 2`, "Tried to mult/div/mod non int expressions"},
		{"- b", "Tried to use unary negation with non int expression"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			n, syms := exprOf(t, decls, tt.expr)
			_, err := NewTypeChecker(syms).TypeOf(n)
			be.True(t, errors.Is(err, util.ErrSemantic))
			var me *MismatchError
			be.True(t, errors.As(err, &me))
			be.Equal(t, me.Context, tt.context)
		})
	}
}

func TestCheck(t *testing.T) {
	n, syms := exprOf(t, decls, "i + 1")
	tc := NewTypeChecker(syms)
	be.Err(t, tc.Check(n, ast.TypeInt, "assignment"), nil)

	err := tc.Check(n, ast.TypeBool, "Non-bool expression for if condition.")
	var me *MismatchError
	be.True(t, errors.As(err, &me))
	be.Equal(t, me.Expected, ast.TypeBool)
	be.Equal(t, me.Found, ast.TypeInt)
	be.Equal(t, err.Error(), "Semantic Error: Non-bool expression for if condition. (expected BOOL, found INT)")
}

func TestRequireDeclared(t *testing.T) {
	n, syms := exprOf(t, "int i;", "i")
	tc := NewTypeChecker(syms)

	typ, err := tc.TypeOf(n)
	be.Err(t, err, nil)
	be.Equal(t, typ, ast.TypeInt)

	tc.RequireDeclared = true
	_, err = tc.TypeOf(n)
	be.Equal(t, err.Error(), "Semantic Error: Variable used before declaration.")

	be.Err(t, syms.Declare("i", token.Token{}), nil)
	_, err = tc.TypeOf(n)
	be.Err(t, err, nil)
}

func TestUnknownIdentifier(t *testing.T) {
	n, syms := exprOf(t, "", "ghost")
	_, err := NewTypeChecker(syms).TypeOf(n)
	be.True(t, errors.Is(err, util.ErrSemantic))
	be.Equal(t, err.Error(), "Semantic Error: Variable used before declaration.")
}

func TestOperand(t *testing.T) {
	n, _ := exprOf(t, decls, "((s))")
	leaf := Operand(n)
	be.True(t, leaf != nil)
	be.Equal(t, leaf.Type, ast.Ident)
	be.Equal(t, leaf.Name(), "s")

	for _, expr := range []string{"1 + 2", "-1", "not b", "i < 1", "b or b"} {
		n, _ := exprOf(t, decls, expr)
		be.True(t, Operand(n) == nil)
	}
}

func TestStringOperand(t *testing.T) {
	n, syms := exprOf(t, decls, `"lit"`)
	tc := NewTypeChecker(syms)
	leaf, err := tc.StringOperand(n)
	be.Err(t, err, nil)
	be.Equal(t, leaf.Type, ast.StringLit)
	be.Equal(t, leaf.Data.(ast.LiteralNode).Value, `"lit"`)

	n, _ = exprOf(t, decls, "i")
	_, err = tc.StringOperand(n)
	var me *MismatchError
	be.True(t, errors.As(err, &me))
	be.Equal(t, me.Context, "Expected String")
}
