package codegen

import (
	"fmt"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
	"github.com/microlang/mlc/pkg/typeChecker"
	"github.com/microlang/mlc/pkg/util"
)

// GenerateText lowers the program to instructions: main first, then every
// function as a subroutine. The data pass must have run on the same tree.
func (ctx *Context) GenerateText(root *ast.Node) ([]ir.Instr, error) {
	if !ctx.dataDone {
		return nil, fmt.Errorf("codegen: text pass requires a completed data pass")
	}
	prog := root.Data.(ast.ProgramNode)
	ctx.text, ctx.labelCount = nil, 0
	ctx.control, ctx.spills = nil, nil

	ctx.label(mainLabel)
	ctx.currentFunc = nil
	if err := ctx.textStmts(prog.Stmts); err != nil {
		return nil, err
	}
	if len(ctx.control) != 0 {
		return nil, fmt.Errorf("codegen: %s still open at END", ctx.control[len(ctx.control)-1].kind)
	}
	if ctx.cfg.IsFeatureEnabled(config.FeatImplicitExit) {
		ctx.syscall(ir.SysExit)
	}

	for _, fn := range prog.Funcs {
		d := fn.Data.(ast.FuncDeclNode)
		ctx.currentFunc = ctx.funcs[d.Name]
		ctx.emit(ir.Instr{Op: ir.OpFunc, Label: d.Name})
		for _, p := range d.Params {
			ctx.syms.MarkInitialized(p.Name)
		}
		if err := ctx.textStmts(d.Body); err != nil {
			return nil, err
		}
		ctx.emit(ir.Instr{Op: ir.OpEndFunc, Label: d.Name})
	}
	ctx.currentFunc = nil

	if len(ctx.spills) != 0 {
		return nil, fmt.Errorf("codegen: %d spilled registers never restored", len(ctx.spills))
	}
	ctx.warnUnused()
	ctx.warnExtra(root)
	return append([]ir.Instr(nil), ctx.text...), nil
}

func (ctx *Context) warnUnused() {
	for _, name := range ctx.syms.Names() {
		e, _ := ctx.syms.Lookup(name)
		if e.Declared && !e.Used {
			util.Warn(ctx.cfg, config.WarnUnused, e.Tok, "variable '%s' is declared but never used", name)
		}
	}
}

// warnExtra reports functions nothing calls and statements following a RETURN
func (ctx *Context) warnExtra(root *ast.Node) {
	called := make(map[string]bool)
	ast.Walk(root, func(n *ast.Node) bool {
		var stmts []*ast.Node
		switch d := n.Data.(type) {
		case ast.ProgramNode:
			stmts = d.Stmts
		case ast.FuncDeclNode:
			stmts = d.Body
		case ast.IfNode, ast.WhileNode:
			return true
		case ast.CallNode:
			called[d.Name] = true
			return false
		default:
			return false
		}
		for i := 0; i+1 < len(stmts); i++ {
			if stmts[i].Type == ast.Return {
				util.Warn(ctx.cfg, config.WarnExtra, stmts[i+1].Tok, "statement after return is never reached")
				break
			}
		}
		return true
	})
	for _, fn := range root.Data.(ast.ProgramNode).Funcs {
		if name := fn.Data.(ast.FuncDeclNode).Name; !called[name] {
			util.Warn(ctx.cfg, config.WarnExtra, fn.Tok, "function '%s' is never called", name)
		}
	}
}

func (ctx *Context) textStmts(stmts []*ast.Node) error {
	for _, s := range stmts {
		if err := ctx.textStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// textBlock emits a sub-block; its END closes the innermost control construct
func (ctx *Context) textBlock(block *ast.Node) error {
	if err := ctx.textStmts(block.Data.(ast.ProgramNode).Stmts); err != nil {
		return err
	}
	return ctx.closeControl()
}

func (ctx *Context) textStmt(n *ast.Node) error {
	switch d := n.Data.(type) {
	case ast.VarDeclNode:
		return nil
	case ast.AssignNode:
		return ctx.assign(d)
	case ast.ReadNode:
		ctx.readIDs(d)
		return nil
	case ast.WriteNode:
		return ctx.writeExprs(d)
	case ast.CallNode:
		return ctx.call(d)
	case ast.IfNode:
		return ctx.ifStmt(d)
	case ast.WhileNode:
		return ctx.whileStmt(d)
	case ast.ReturnNode:
		return ctx.returnStmt(d)
	}
	return fmt.Errorf("codegen: unexpected %s node in statement list", n.Type)
}

func (ctx *Context) assign(d ast.AssignNode) error {
	name := d.Target.Name()
	typ, err := ctx.syms.LookupType(name, d.Target.Tok)
	if err != nil {
		return err
	}
	defer ctx.syms.MarkInitialized(name)
	switch typ {
	case ast.TypeInt:
		ctx.comment("assign value to %s.", name)
		if err := ctx.intExpr(d.Value); err != nil {
			return err
		}
		ctx.emit(ir.Instr{Op: ir.OpSw, Src1: ir.T0, Label: name})
	case ast.TypeBool:
		ctx.comment("assign value to %s.", name)
		if err := ctx.boolExpr(d.Value); err != nil {
			return err
		}
		ctx.emit(ir.Instr{Op: ir.OpSw, Src1: ir.T6, Label: name})
	case ast.TypeString:
		// static data, laid out by the data pass
		if leaf := typeChecker.Operand(d.Value); leaf != nil && leaf.Type == ast.Ident {
			ctx.use(leaf)
		}
	}
	return nil
}

func (ctx *Context) readIDs(d ast.ReadNode) {
	ctx.comment("Reading values for an <id_list>.")
	for _, id := range d.Targets {
		if ctx.cfg.IsFeatureEnabled(config.FeatPromptRead) {
			ctx.emit(ir.Instr{Op: ir.OpLa, Dst: ir.A0, Label: promptLabel})
			ctx.syscall(ir.SysPrintString)
		}
		ctx.syscall(ir.SysReadInt)
		ctx.emit(ir.Instr{Op: ir.OpSw, Src1: ir.V0, Label: id.Name()})
		ctx.syms.MarkInitialized(id.Name())
	}
}

func (ctx *Context) writeExprs(d ast.WriteNode) error {
	ctx.comment("Writing values of an <expr_list>.")
	for _, e := range d.Exprs {
		typ, err := ctx.tc.TypeOf(e)
		if err != nil {
			return err
		}
		switch typ {
		case ast.TypeInt:
			ctx.comment("Writing an integer expression")
			if err := ctx.intExpr(e); err != nil {
				return err
			}
			ctx.move(ir.A0, ir.T0)
			ctx.syscall(ir.SysPrintInt)
		case ast.TypeBool:
			ctx.comment("Writing a bool expression")
			if err := ctx.boolExpr(e); err != nil {
				return err
			}
			ctx.move(ir.A0, ir.T6)
			ctx.syscall(ir.SysPrintInt)
		case ast.TypeString:
			ctx.comment("Writing a string expression")
			label, err := ctx.stringLabel(e)
			if err != nil {
				return err
			}
			ctx.emit(ir.Instr{Op: ir.OpLa, Dst: ir.A0, Label: label})
			ctx.syscall(ir.SysPrintString)
		}
		ctx.emit(ir.Instr{Op: ir.OpAddi, Dst: ir.A0, Src1: ir.Zero, Imm: '\n'})
		ctx.syscall(ir.SysPrintChar)
	}
	return nil
}

// stringLabel is the data label holding the value of a STRING expression
func (ctx *Context) stringLabel(e *ast.Node) (string, error) {
	leaf, err := ctx.tc.StringOperand(e)
	if err != nil {
		return "", err
	}
	if leaf.Type == ast.Ident {
		ctx.use(leaf)
		return leaf.Name(), nil
	}
	label, ok := ctx.strings[leaf.Data.(ast.LiteralNode).Value]
	if !ok {
		return "", fmt.Errorf("codegen: string literal %s missing from the data segment", leaf.Data.(ast.LiteralNode).Value)
	}
	return label, nil
}

// call stores each argument into its parameter's slot and jumps to the subroutine
func (ctx *Context) call(d ast.CallNode) error {
	fn := ctx.funcs[d.Name]
	ctx.comment("call %s", d.Name)
	for i, arg := range d.Args {
		p := fn.decl.Params[i]
		if p.Type == ast.TypeBool {
			if err := ctx.boolExpr(arg); err != nil {
				return err
			}
			ctx.emit(ir.Instr{Op: ir.OpSw, Src1: ir.T6, Label: p.Name})
			continue
		}
		if err := ctx.intExpr(arg); err != nil {
			return err
		}
		ctx.emit(ir.Instr{Op: ir.OpSw, Src1: ir.T0, Label: p.Name})
	}
	ctx.emit(ir.Instr{Op: ir.OpCall, Label: d.Name})
	return nil
}

// condition leaves the truth value in $t6 and branches to out<n> unless it is 1
func (ctx *Context) condition(cond *ast.Node, n int) error {
	if err := ctx.boolExpr(cond); err != nil {
		return err
	}
	ctx.li(ir.T0, 1)
	ctx.emit(ir.Instr{Op: ir.OpBne, Src1: ir.T0, Src2: ir.T6, Label: outLabel(n)})
	return nil
}

func (ctx *Context) ifStmt(d ast.IfNode) error {
	n := ctx.newLabel()
	if d.Else == nil {
		ctx.comment("starting if statement")
		if err := ctx.condition(d.Cond, n); err != nil {
			return err
		}
		ctx.openControl(controlFrame{kind: ctrlIf, n: n})
		return ctx.textBlock(d.Then)
	}

	m := ctx.newLabel()
	ctx.comment("starting if else statement")
	if err := ctx.condition(d.Cond, n); err != nil {
		return err
	}
	ctx.openControl(controlFrame{kind: ctrlIfElse, n: n, m: m})
	if err := ctx.textBlock(d.Then); err != nil {
		return err
	}
	return ctx.textBlock(d.Else)
}

func (ctx *Context) whileStmt(d ast.WhileNode) error {
	n := ctx.newLabel()
	ctx.comment("Starting while loop")
	ctx.label(loopLabel(n))
	if err := ctx.condition(d.Cond, n); err != nil {
		return err
	}
	ctx.openControl(controlFrame{kind: ctrlWhile, n: n})
	return ctx.textBlock(d.Body)
}

// returnStmt leaves the value in $v1
func (ctx *Context) returnStmt(d ast.ReturnNode) error {
	typ, err := ctx.tc.TypeOf(d.Value)
	if err != nil {
		return err
	}
	switch typ {
	case ast.TypeInt:
		if err := ctx.intFact2(d.Value, false); err != nil {
			return err
		}
		ctx.move(ir.V1, ir.T2)
	case ast.TypeBool:
		if err := ctx.boolFact2(d.Value); err != nil {
			return err
		}
		ctx.move(ir.V1, ir.T9)
	case ast.TypeString:
		label, err := ctx.stringLabel(d.Value)
		if err != nil {
			return err
		}
		ctx.emit(ir.Instr{Op: ir.OpLa, Dst: ir.V1, Label: label})
	}
	ctx.emit(ir.Instr{Op: ir.OpRet})
	return nil
}
