package codegen

import (
	"fmt"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
	"github.com/microlang/mlc/pkg/token"
	"github.com/microlang/mlc/pkg/typeChecker"
	"github.com/microlang/mlc/pkg/util"
)

// GenerateData walks the whole program in source order, declaring variables
// and laying out the data segment. It also performs every semantic check, so
// the text pass only ever sees a valid program. Running it again over the
// same tree yields the same segment.
func (ctx *Context) GenerateData(root *ast.Node) ([]ir.DataEntry, error) {
	prog, ok := root.Data.(ast.ProgramNode)
	if !ok || prog.IsBlock {
		return nil, fmt.Errorf("codegen: root node is %s, not a program", root.Type)
	}

	ctx.syms.Reset()
	ctx.data, ctx.dataIndex = nil, make(map[string]int)
	ctx.strings = make(map[string]string)
	ctx.funcs = make(map[string]*funcInfo)
	ctx.currentFunc, ctx.dataDone = nil, false
	ctx.tc.RequireDeclared = true
	defer func() { ctx.tc.RequireDeclared = false }()

	ctx.addData(ir.DataEntry{Label: promptLabel, Kind: ir.DataAsciiz, Text: promptText})

	for _, fn := range prog.Funcs {
		if err := ctx.registerFunc(fn); err != nil {
			return nil, err
		}
	}
	for _, fn := range prog.Funcs {
		d := fn.Data.(ast.FuncDeclNode)
		ctx.currentFunc = ctx.funcs[d.Name]
		for _, p := range d.Params {
			if err := ctx.declare(p.Name, p.Type, p.Tok); err != nil {
				return nil, err
			}
		}
		if err := ctx.dataStmts(d.Body); err != nil {
			return nil, err
		}
	}
	ctx.currentFunc = nil
	if err := ctx.dataStmts(prog.Stmts); err != nil {
		return nil, err
	}

	// declared strings that are never assigned still need a label
	for _, name := range ctx.syms.Names() {
		e, _ := ctx.syms.Lookup(name)
		if e.Declared && e.Type == ast.TypeString && !e.HasString {
			ctx.addData(ir.DataEntry{Label: name, Kind: ir.DataAsciiz, Text: `""`})
		}
	}

	ctx.dataDone = true
	return append([]ir.DataEntry(nil), ctx.data...), nil
}

func (ctx *Context) addData(d ir.DataEntry) {
	ctx.dataIndex[d.Label] = len(ctx.data)
	ctx.data = append(ctx.data, d)
}

// internString registers a written literal once, in encounter order
func (ctx *Context) internString(lit string) string {
	if label, ok := ctx.strings[lit]; ok {
		return label
	}
	label := fmt.Sprintf("string%d", len(ctx.strings))
	ctx.strings[lit] = label
	ctx.addData(ir.DataEntry{Label: label, Kind: ir.DataAsciiz, Text: lit})
	return label
}

func (ctx *Context) registerFunc(fn *ast.Node) error {
	d := fn.Data.(ast.FuncDeclNode)
	if _, dup := ctx.funcs[d.Name]; dup {
		return util.Semanticf(fn.Tok, "Function %s was declared twice.", d.Name)
	}
	if ctx.syms.Has(d.Name) {
		return util.Semanticf(fn.Tok, "%s was declared twice.", d.Name)
	}
	if err := ctx.checkName(d.Name, fn.Tok); err != nil {
		return err
	}
	for _, p := range d.Params {
		if p.Type == ast.TypeString {
			return util.Semanticf(p.Tok, "Parameter %s of function %s cannot be STRING.", p.Name, d.Name)
		}
	}
	ctx.funcs[d.Name] = &funcInfo{decl: d, tok: fn.Tok}
	return nil
}

// declare marks a binding occurrence as declared and reserves a word for
// INT and BOOL variables. Strings get their storage when assigned.
func (ctx *Context) declare(name string, typ ast.VarType, tok token.Token) error {
	if err := ctx.checkName(name, tok); err != nil {
		return err
	}
	if err := ctx.syms.Declare(name, tok); err != nil {
		return err
	}
	switch typ {
	case ast.TypeInt, ast.TypeBool:
		ctx.addData(ir.DataEntry{Label: name, Kind: ir.DataWord, Text: "0"})
	case ast.TypeVoid:
		return util.Semanticf(tok, "Variable %s cannot be VOID.", name)
	}
	return nil
}

// target resolves the identifier a statement stores into
func (ctx *Context) target(id *ast.Node) (ast.VarType, error) {
	typ, err := ctx.syms.LookupType(id.Name(), id.Tok)
	if err != nil {
		return ast.TypeUnknown, err
	}
	if !ctx.syms.IsDeclared(id.Name()) {
		return ast.TypeUnknown, util.Semanticf(id.Tok, "Variable used before declaration.")
	}
	return typ, nil
}

func (ctx *Context) dataStmts(stmts []*ast.Node) error {
	for _, s := range stmts {
		if err := ctx.dataStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *Context) dataBlock(block *ast.Node) error {
	return ctx.dataStmts(block.Data.(ast.ProgramNode).Stmts)
}

func (ctx *Context) dataStmt(n *ast.Node) error {
	switch d := n.Data.(type) {
	case ast.VarDeclNode:
		return ctx.declare(d.Target.Name(), d.Type, d.Target.Tok)

	case ast.AssignNode:
		typ, err := ctx.target(d.Target)
		if err != nil {
			return err
		}
		if typ == ast.TypeString {
			return ctx.assignString(d.Target, d.Value)
		}
		return ctx.tc.Check(d.Value, typ, fmt.Sprintf("Assignment to %s", d.Target.Name()))

	case ast.ReadNode:
		for _, id := range d.Targets {
			typ, err := ctx.target(id)
			if err != nil {
				return err
			}
			if typ != ast.TypeInt && typ != ast.TypeBool {
				return util.Semanticf(id.Tok, "Cannot read into %s variable %s.", typ, id.Name())
			}
		}
		return nil

	case ast.WriteNode:
		for _, e := range d.Exprs {
			typ, err := ctx.tc.TypeOf(e)
			if err != nil {
				return err
			}
			if typ != ast.TypeString {
				continue
			}
			leaf, err := ctx.tc.StringOperand(e)
			if err != nil {
				return err
			}
			if leaf.Type == ast.StringLit {
				ctx.internString(leaf.Data.(ast.LiteralNode).Value)
			}
		}
		return nil

	case ast.CallNode:
		return ctx.checkCall(n, d)

	case ast.IfNode:
		if err := ctx.tc.Check(d.Cond, ast.TypeBool, "Non-bool expression for if condition."); err != nil {
			return err
		}
		if err := ctx.dataBlock(d.Then); err != nil {
			return err
		}
		if d.Else != nil {
			return ctx.dataBlock(d.Else)
		}
		return nil

	case ast.WhileNode:
		if err := ctx.tc.Check(d.Cond, ast.TypeBool, "Non-bool expression for while loop condition."); err != nil {
			return err
		}
		return ctx.dataBlock(d.Body)

	case ast.ReturnNode:
		return ctx.checkReturn(n, d)
	}
	return fmt.Errorf("codegen: unexpected %s node in statement list", n.Type)
}

// assignString gives a STRING variable its static value. Strings are not
// computed at run time, so the assigned value must be a literal or another
// string variable.
func (ctx *Context) assignString(target, value *ast.Node) error {
	leaf, err := ctx.tc.StringOperand(value)
	if err != nil {
		return err
	}
	text := `""`
	switch leaf.Type {
	case ast.StringLit:
		text = leaf.Data.(ast.LiteralNode).Value
	case ast.Ident:
		if s, ok := ctx.syms.StringValue(leaf.Name()); ok {
			text = s
		}
	}

	name := target.Name()
	if _, ok := ctx.syms.StringValue(name); ok {
		if !ctx.cfg.IsFeatureEnabled(config.FeatStringReassign) {
			return util.Semanticf(target.Tok, "String variable %s cannot be reassigned.", name)
		}
		ctx.data[ctx.dataIndex[name]].Text = text
	} else {
		ctx.addData(ir.DataEntry{Label: name, Kind: ir.DataAsciiz, Text: text})
	}
	ctx.syms.SetString(name, text)
	return nil
}

func (ctx *Context) checkCall(n *ast.Node, d ast.CallNode) error {
	fn, ok := ctx.funcs[d.Name]
	if !ok {
		return util.Semanticf(n.Tok, "Function %s is not defined.", d.Name)
	}
	params := fn.decl.Params
	if len(d.Args) != len(params) {
		return util.Semanticf(n.Tok, "Function %s expects %d argument(s), got %d.", d.Name, len(params), len(d.Args))
	}
	for i, arg := range d.Args {
		if err := ctx.tc.Check(arg, params[i].Type, fmt.Sprintf("Argument %d of %s", i+1, d.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *Context) checkReturn(n *ast.Node, d ast.ReturnNode) error {
	if ctx.currentFunc == nil {
		return util.Semanticf(n.Tok, "RETURN outside of a function.")
	}
	fn := ctx.currentFunc.decl
	if fn.ReturnType == ast.TypeVoid {
		return util.Semanticf(n.Tok, "Function %s of type VOID cannot return a value.", fn.Name)
	}
	if err := ctx.tc.Check(d.Value, fn.ReturnType, fmt.Sprintf("Return value of %s", fn.Name)); err != nil {
		return err
	}
	if leaf := typeChecker.Operand(d.Value); leaf != nil && leaf.Type == ast.StringLit {
		ctx.internString(leaf.Data.(ast.LiteralNode).Value)
	}
	return nil
}
