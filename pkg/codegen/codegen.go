package codegen

import (
	"fmt"
	"regexp"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
	"github.com/microlang/mlc/pkg/symtab"
	"github.com/microlang/mlc/pkg/token"
	"github.com/microlang/mlc/pkg/typeChecker"
	"github.com/microlang/mlc/pkg/util"
)

const (
	promptLabel = "prompt_int"
	promptText  = `"Enter an int to store in a variable: "`
	mainLabel   = "main"
)

// generated labels live in the same namespace as variables and functions
var reservedName = regexp.MustCompile(`^(?:main|prompt_int|(?:label|out|string)[0-9]+)$`)

type controlKind int

const (
	ctrlWhile controlKind = iota
	ctrlIf
	ctrlIfElse // then-arm of an if/else still open
	ctrlElse
)

func (k controlKind) String() string {
	switch k {
	case ctrlWhile: return "WHILE"
	case ctrlIf: return "IF"
	case ctrlIfElse: return "IF_ELSE"
	default: return "ELSE"
	}
}

type controlFrame struct {
	kind controlKind
	n, m int
}

type funcInfo struct {
	decl ast.FuncDeclNode
	tok  token.Token
}

// Context carries generation state across the data and text passes
type Context struct {
	cfg  *config.Config
	syms *symtab.Table
	tc   *typeChecker.TypeChecker

	data      []ir.DataEntry
	dataIndex map[string]int
	strings   map[string]string // literal text -> label
	funcs     map[string]*funcInfo
	dataDone  bool

	text        []ir.Instr
	labelCount  int
	control     []controlFrame
	spills      []ir.Reg
	currentFunc *funcInfo
}

func NewContext(cfg *config.Config, syms *symtab.Table) *Context {
	return &Context{
		cfg:  cfg,
		syms: syms,
		tc:   typeChecker.NewTypeChecker(syms),
	}
}

// Generate runs the data pass and then the text pass over a parsed program
func (ctx *Context) Generate(root *ast.Node) (*ir.Program, error) {
	data, err := ctx.GenerateData(root)
	if err != nil {
		return nil, err
	}
	text, err := ctx.GenerateText(root)
	if err != nil {
		return nil, err
	}
	return &ir.Program{Data: data, Text: text}, nil
}

func (ctx *Context) emit(in ir.Instr) { ctx.text = append(ctx.text, in) }

func (ctx *Context) comment(format string, args ...interface{}) {
	ctx.emit(ir.Instr{Op: ir.OpComment, Comment: fmt.Sprintf(format, args...)})
}

func (ctx *Context) label(name string) { ctx.emit(ir.Instr{Op: ir.OpLabel, Label: name}) }

func (ctx *Context) li(dst ir.Reg, imm int64) { ctx.emit(ir.Instr{Op: ir.OpLi, Dst: dst, Imm: imm}) }

func (ctx *Context) move(dst, src ir.Reg) { ctx.emit(ir.Instr{Op: ir.OpMove, Dst: dst, Src1: src}) }

func (ctx *Context) op3(op ir.Op, dst, a, b ir.Reg) {
	ctx.emit(ir.Instr{Op: op, Dst: dst, Src1: a, Src2: b})
}

func (ctx *Context) syscall(s ir.Service) { ctx.emit(ir.Instr{Op: ir.OpSyscall, Service: s}) }

func (ctx *Context) newLabel() int {
	ctx.labelCount++
	return ctx.labelCount
}

func loopLabel(n int) string { return fmt.Sprintf("label%d", n) }
func outLabel(n int) string  { return fmt.Sprintf("out%d", n) }

// save pushes live scratch registers before a nested evaluation reuses them
func (ctx *Context) save(regs ...ir.Reg) {
	for _, r := range regs {
		ctx.emit(ir.Instr{Op: ir.OpPush, Src1: r})
		ctx.spills = append(ctx.spills, r)
	}
}

// restore pops the registers given to the matching save, in reverse order
func (ctx *Context) restore(regs ...ir.Reg) error {
	for i := len(regs) - 1; i >= 0; i-- {
		n := len(ctx.spills)
		if n == 0 || ctx.spills[n-1] != regs[i] {
			return fmt.Errorf("codegen: spill stack out of order restoring %s", regs[i])
		}
		ctx.spills = ctx.spills[:n-1]
		ctx.emit(ir.Instr{Op: ir.OpPop, Dst: regs[i]})
	}
	return nil
}

func (ctx *Context) openControl(f controlFrame) { ctx.control = append(ctx.control, f) }

// closeControl handles the END of the innermost open construct
func (ctx *Context) closeControl() error {
	n := len(ctx.control)
	if n == 0 {
		return fmt.Errorf("codegen: END with no open control construct")
	}
	top := ctx.control[n-1]
	ctx.control = ctx.control[:n-1]
	switch top.kind {
	case ctrlWhile:
		ctx.emit(ir.Instr{Op: ir.OpJ, Label: loopLabel(top.n)})
		ctx.label(outLabel(top.n))
	case ctrlIf:
		ctx.label(outLabel(top.n))
	case ctrlIfElse:
		ctx.emit(ir.Instr{Op: ir.OpJ, Label: outLabel(top.m)})
		ctx.label(outLabel(top.n))
		ctx.openControl(controlFrame{kind: ctrlElse, n: top.m})
	case ctrlElse:
		ctx.label(outLabel(top.n))
	}
	return nil
}

func (ctx *Context) checkName(name string, tok token.Token) error {
	if reservedName.MatchString(name) {
		return util.Semanticf(tok, "%s is a reserved name.", name)
	}
	return nil
}
