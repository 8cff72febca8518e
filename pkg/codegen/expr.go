package codegen

import (
	"fmt"
	"math"
	"strconv"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
	"github.com/microlang/mlc/pkg/token"
	"github.com/microlang/mlc/pkg/util"
)

// Register discipline. Boolean evaluation accumulates OR in $t6, AND in $t7,
// each FACT1 in $t8 and a boolean FACT2 in $t9; a relation compares $t5 (left)
// with $t0 (right). Integer evaluation accumulates EXP2 in $t0, TERM2 in $t1
// and each FACT2 in $t2. A parenthesized operand reuses the same registers,
// so the live accumulators are pushed around it.

var relOps = map[string]ir.Op{
	"==": ir.OpSeq, "!=": ir.OpSne, ">=": ir.OpSge, "<=": ir.OpSle, ">": ir.OpSgt, "<": ir.OpSlt,
}

// use records a read of an identifier
func (ctx *Context) use(id *ast.Node) {
	name := id.Name()
	ctx.syms.MarkUsed(name)
	if !ctx.syms.IsInitialized(name) {
		util.Warn(ctx.cfg, config.WarnUninitialized, id.Tok, "variable '%s' is used before anything is assigned to it", name)
	}
}

// boolExpr evaluates an EXPRESSION into $t6
func (ctx *Context) boolExpr(n *ast.Node) error {
	d := n.Data.(ast.ExpressionNode)
	ctx.li(ir.T6, 0)
	for _, term := range d.Terms {
		if err := ctx.boolTerm1(term); err != nil {
			return err
		}
		ctx.op3(ir.OpOr, ir.T6, ir.T6, ir.T7)
	}
	return nil
}

// boolTerm1 evaluates a TERM1 into $t7
func (ctx *Context) boolTerm1(n *ast.Node) error {
	d := n.Data.(ast.Term1Node)
	ctx.li(ir.T7, 1)
	for _, fact := range d.Factors {
		if err := ctx.boolFact1(fact); err != nil {
			return err
		}
		ctx.op3(ir.OpAnd, ir.T7, ir.T7, ir.T8)
	}
	return nil
}

// boolFact1 evaluates a FACT1 into $t8
func (ctx *Context) boolFact1(n *ast.Node) error {
	d := n.Data.(ast.Fact1Node)
	switch {
	case d.Not:
		if err := ctx.boolFact2(d.Operand); err != nil {
			return err
		}
		ctx.li(ir.T8, 1)
		ctx.op3(ir.OpXor, ir.T8, ir.T8, ir.T9)
		return nil

	case d.Rel != nil:
		rel := d.Rel.Data.(ast.RelationNode)
		op, ok := relOps[rel.Op]
		if !ok {
			return &util.SyntaxError{Msg: fmt.Sprintf("Unknown relational operator '%s'", rel.Op), Tok: d.Rel.Tok}
		}
		if err := ctx.intExp2(d.Left); err != nil {
			return err
		}
		ctx.move(ir.T5, ir.T0)
		if err := ctx.intExp2(rel.Right); err != nil {
			return err
		}
		ctx.op3(op, ir.T8, ir.T5, ir.T0)
		return nil
	}

	// a boolean EXP2 without a relation is a lone FACT2
	exp := d.Left.Data.(ast.Exp2Node)
	term := exp.Terms[0].Data.(ast.Term2Node)
	if err := ctx.boolFact2(term.Factors[0].Fact); err != nil {
		return err
	}
	ctx.move(ir.T8, ir.T9)
	return nil
}

// boolFact2 evaluates a boolean FACT2 into $t9
func (ctx *Context) boolFact2(n *ast.Node) error {
	inner := n.Data.(ast.Fact2Node).Inner
	switch inner.Type {
	case ast.Ident:
		ctx.use(inner)
		ctx.emit(ir.Instr{Op: ir.OpLw, Dst: ir.T9, Label: inner.Name()})
	case ast.BoolLit:
		v := int64(0)
		if isTrue(inner.Data.(ast.LiteralNode).Value) {
			v = 1
		}
		ctx.li(ir.T9, v)
	case ast.Expression:
		ctx.save(ir.T6, ir.T7, ir.T8)
		if err := ctx.boolExpr(inner); err != nil {
			return err
		}
		ctx.move(ir.T9, ir.T6)
		return ctx.restore(ir.T6, ir.T7, ir.T8)
	default:
		return fmt.Errorf("codegen: %s is not a boolean operand", inner.Type)
	}
	return nil
}

func isTrue(lit string) bool { return lit == "true" || lit == "True" }

// intExpr evaluates an INT-typed EXPRESSION into $t0. Such an expression has
// no boolean operators, so it is a single EXP2.
func (ctx *Context) intExpr(n *ast.Node) error {
	d := n.Data.(ast.ExpressionNode)
	term := d.Terms[0].Data.(ast.Term1Node)
	fact := term.Factors[0].Data.(ast.Fact1Node)
	return ctx.intExp2(fact.Left)
}

// intExp2 evaluates an EXP2 into $t0
func (ctx *Context) intExp2(n *ast.Node) error {
	d := n.Data.(ast.Exp2Node)
	ctx.li(ir.T0, 0)
	for i, term := range d.Terms {
		if err := ctx.intTerm2(term); err != nil {
			return err
		}
		op := ir.OpAdd
		if i > 0 && d.Ops[i-1] == token.Minus {
			op = ir.OpSub
		}
		ctx.op3(op, ir.T0, ir.T0, ir.T1)
	}
	return nil
}

// intTerm2 evaluates a TERM2 into $t1
func (ctx *Context) intTerm2(n *ast.Node) error {
	d := n.Data.(ast.Term2Node)
	for i, f := range d.Factors {
		if err := ctx.intFact2(f.Fact, f.Negative); err != nil {
			return err
		}
		if i == 0 {
			ctx.move(ir.T1, ir.T2)
			continue
		}
		switch d.Ops[i-1] {
		case token.Times:
			ctx.emit(ir.Instr{Op: ir.OpMult, Src1: ir.T1, Src2: ir.T2})
			ctx.emit(ir.Instr{Op: ir.OpMflo, Dst: ir.T1})
		case token.Divide:
			ctx.emit(ir.Instr{Op: ir.OpDiv, Src1: ir.T1, Src2: ir.T2})
			ctx.emit(ir.Instr{Op: ir.OpMflo, Dst: ir.T1})
		case token.Modulo:
			ctx.emit(ir.Instr{Op: ir.OpDiv, Src1: ir.T1, Src2: ir.T2})
			ctx.emit(ir.Instr{Op: ir.OpMfhi, Dst: ir.T1})
		}
	}
	return nil
}

// intFact2 evaluates an integer FACT2 into $t2, negated when neg is set
func (ctx *Context) intFact2(n *ast.Node, neg bool) error {
	inner := n.Data.(ast.Fact2Node).Inner
	switch inner.Type {
	case ast.Ident:
		ctx.use(inner)
		ctx.emit(ir.Instr{Op: ir.OpLw, Dst: ir.T2, Label: inner.Name()})
	case ast.IntLit:
		lit := inner.Data.(ast.LiteralNode).Value
		v, err := strconv.ParseInt(lit, 10, 64)
		if err == nil && neg && v == -math.MinInt32 {
			// -2147483648 fits even though its magnitude does not
			ctx.li(ir.T2, math.MinInt32)
			return nil
		}
		if err != nil || v > math.MaxInt32 {
			return util.Semanticf(inner.Tok, "Integer literal %s does not fit in a word.", lit)
		}
		ctx.li(ir.T2, v)
	case ast.Expression:
		ctx.save(ir.T0, ir.T1)
		if err := ctx.intExpr(inner); err != nil {
			return err
		}
		ctx.move(ir.T2, ir.T0)
		if err := ctx.restore(ir.T0, ir.T1); err != nil {
			return err
		}
	default:
		return fmt.Errorf("codegen: %s is not an integer operand", inner.Type)
	}
	if neg {
		ctx.op3(ir.OpSub, ir.T2, ir.Zero, ir.T2)
	}
	return nil
}
