package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
)

type mipsBackend struct {
	out *strings.Builder
}

// NewMIPSBackend renders programs as MIPS assembly for SPIM/MARS
func NewMIPSBackend() Backend { return &mipsBackend{} }

func (b *mipsBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	var sb strings.Builder
	b.out = &sb

	b.out.WriteString("\t.data\n")
	for _, d := range prog.Data {
		switch d.Kind {
		case ir.DataWord:
			fmt.Fprintf(b.out, "%s:\t.word\t%s\n", d.Label, d.Text)
		case ir.DataAsciiz:
			fmt.Fprintf(b.out, "%s:\t.asciiz\t%s\n", d.Label, d.Text)
		}
	}

	b.out.WriteString("\n\t.text\n\t.globl\tmain\n")
	for _, in := range prog.Text {
		if err := b.genInstr(in); err != nil {
			return nil, err
		}
	}
	return bytes.NewBufferString(sb.String()), nil
}

func (b *mipsBackend) line(op string, args ...interface{}) {
	b.out.WriteString("\t" + op)
	for i, a := range args {
		if i == 0 {
			b.out.WriteString("\t")
		} else {
			b.out.WriteString(", ")
		}
		fmt.Fprint(b.out, a)
	}
	b.out.WriteString("\n")
}

func (b *mipsBackend) genInstr(in ir.Instr) error {
	switch in.Op {
	case ir.OpLabel:
		fmt.Fprintf(b.out, "%s:\n", in.Label)
	case ir.OpComment:
		fmt.Fprintf(b.out, "# %s\n", in.Comment)
	case ir.OpLi:
		b.line("li", in.Dst, in.Imm)
	case ir.OpLa, ir.OpLw:
		b.line(in.Op.String(), in.Dst, in.Label)
	case ir.OpSw:
		b.line("sw", in.Src1, in.Label)
	case ir.OpMove:
		b.line("move", in.Dst, in.Src1)
	case ir.OpAddi, ir.OpAndi:
		b.line(in.Op.String(), in.Dst, in.Src1, in.Imm)
	case ir.OpMult, ir.OpDiv:
		b.line(in.Op.String(), in.Src1, in.Src2)
	case ir.OpMflo, ir.OpMfhi:
		b.line(in.Op.String(), in.Dst)
	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor,
		ir.OpSeq, ir.OpSne, ir.OpSlt, ir.OpSle, ir.OpSgt, ir.OpSge:
		b.line(in.Op.String(), in.Dst, in.Src1, in.Src2)
	case ir.OpJ:
		b.line("j", in.Label)
	case ir.OpBne:
		b.line("bne", in.Src1, in.Src2, in.Label)
	case ir.OpPush:
		b.line("addi", ir.SP, ir.SP, -4)
		b.line("sw", in.Src1, "0($sp)")
	case ir.OpPop:
		b.line("lw", in.Dst, "0($sp)")
		b.line("addi", ir.SP, ir.SP, 4)
	case ir.OpSyscall:
		b.line("li", ir.V0, int(in.Service))
		b.out.WriteString("\tsyscall\n")
	case ir.OpFunc:
		fmt.Fprintf(b.out, "\n%s:\n", in.Label)
		b.line("addi", ir.SP, ir.SP, -4)
		b.line("sw", ir.RA, "0($sp)")
	case ir.OpCall:
		b.line("jal", in.Label)
	case ir.OpRet, ir.OpEndFunc:
		b.line("lw", ir.RA, "0($sp)")
		b.line("addi", ir.SP, ir.SP, 4)
		b.line("jr", ir.RA)
	default:
		return fmt.Errorf("mips: cannot render op %s", in.Op)
	}
	return nil
}
