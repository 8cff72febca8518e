package symtab

import (
	"errors"
	"testing"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/token"
	"github.com/microlang/mlc/pkg/util"
	"github.com/nalgeon/be"
)

func TestInstallKeepsFirstType(t *testing.T) {
	tab := New()
	tab.Install("x", ast.TypeInt, token.Token{Line: 1})
	tab.Install("x", ast.TypeBool, token.Token{Line: 2})

	typ, err := tab.LookupType("x", token.Token{})
	be.Err(t, err, nil)
	be.Equal(t, typ, ast.TypeInt)

	e, ok := tab.Lookup("x")
	be.True(t, ok)
	be.Equal(t, e.Tok.Line, 1)
	be.Equal(t, tab.Len(), 1)
}

func TestDeclare(t *testing.T) {
	tab := New()
	tab.Install("x", ast.TypeInt, token.Token{})

	be.Err(t, tab.Declare("x", token.Token{}), nil)
	be.True(t, tab.IsDeclared("x"))

	err := tab.Declare("x", token.Token{})
	be.True(t, errors.Is(err, util.ErrSemantic))
	be.Equal(t, err.Error(), "Semantic Error: x was declared twice.")

	err = tab.Declare("y", token.Token{})
	be.Equal(t, err.Error(), "Semantic Error: Variable used before declaration.")
}

func TestLookupMissing(t *testing.T) {
	tab := New()
	typ, err := tab.LookupType("nope", token.Token{Line: 4})
	be.Equal(t, typ, ast.TypeUnknown)
	var se *util.SemanticError
	be.True(t, errors.As(err, &se))
	be.Equal(t, se.Tok.Line, 4)
	be.True(t, !tab.IsInitialized("nope"))
	be.True(t, !tab.IsDeclared("nope"))
}

func TestFlags(t *testing.T) {
	tab := New()
	tab.Install("s", ast.TypeString, token.Token{})

	_, ok := tab.StringValue("s")
	be.True(t, !ok)
	tab.SetString("s", `"hi"`)
	v, ok := tab.StringValue("s")
	be.True(t, ok)
	be.Equal(t, v, `"hi"`)

	tab.MarkInitialized("s")
	tab.MarkUsed("s")
	e, _ := tab.Lookup("s")
	be.True(t, e.Initialized)
	be.True(t, e.Used)

	// unknown names are ignored
	tab.MarkInitialized("ghost")
	tab.SetString("ghost", `"x"`)
	be.True(t, !tab.Has("ghost"))
}

func TestReset(t *testing.T) {
	tab := New()
	tab.Install("a", ast.TypeInt, token.Token{})
	tab.Install("b", ast.TypeString, token.Token{})
	be.Err(t, tab.Declare("a", token.Token{}), nil)
	tab.MarkInitialized("a")
	tab.SetString("b", `"x"`)

	tab.Reset()

	be.True(t, !tab.IsDeclared("a"))
	be.True(t, !tab.IsInitialized("a"))
	_, ok := tab.StringValue("b")
	be.True(t, !ok)
	typ, _ := tab.LookupType("b", token.Token{})
	be.Equal(t, typ, ast.TypeString)
	be.Equal(t, tab.Names(), []string{"a", "b"})
}
