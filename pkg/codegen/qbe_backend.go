package codegen

import (
	"fmt"
	"strings"

	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
)

// The QBE lowering keeps the machine model of the IR: every register is a
// data word, the spill stack is a data array indexed by $spill_top, and the
// syscalls become libc calls.

const qbeSpillBytes = 16384

type qbeBackend struct {
	out     *strings.Builder
	prog    *ir.Program
	wt      string // register and pointer type, "l" or "w"
	tmp     int
	fresh   int
	current string // function being emitted, "" between functions
}

func NewQBEBackend() Backend { return &qbeBackend{} }

// GenerateIR renders prog as QBE IR text
func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (string, error) {
	var sb strings.Builder
	b.out, b.prog = &sb, prog
	b.wt, b.tmp, b.fresh = cfg.WordType, 0, 0
	if b.wt != "w" {
		b.wt = "l"
	}

	b.genData()

	b.out.WriteString("\nexport function w $main() {\n@start\n")
	b.current = "main"
	for _, in := range prog.Text {
		if err := b.genInstr(in); err != nil {
			return "", err
		}
	}
	if b.current == "main" {
		b.out.WriteString("\tret 0\n}\n")
	}
	return sb.String(), nil
}

func (b *qbeBackend) wordBytes() int {
	if b.wt == "l" {
		return 8
	}
	return 4
}

func (b *qbeBackend) genData() {
	regs := []string{"hi", "lo"}
	for r := ir.V0; r < ir.RegCount; r++ {
		regs = append(regs, r.Name())
	}
	for _, name := range regs {
		fmt.Fprintf(b.out, "data $r_%s = { %s 0 }\n", name, b.wt)
	}
	fmt.Fprintf(b.out, "data $spill = { z %d }\n", qbeSpillBytes)
	fmt.Fprintf(b.out, "data $spill_top = { %s 0 }\n", b.wt)
	b.out.WriteString("data $scan_word = { w 0 }\n")
	b.out.WriteString("data $fmt_int = { b \"%d\", b 0 }\n")
	b.out.WriteString("data $fmt_str = { b \"%s\", b 0 }\n")

	b.out.WriteString("\n")
	for _, d := range b.prog.Data {
		switch d.Kind {
		case ir.DataWord:
			fmt.Fprintf(b.out, "data $d_%s = { w %s }\n", d.Label, d.Text)
		case ir.DataAsciiz:
			if d.Text == `""` {
				fmt.Fprintf(b.out, "data $d_%s = { b 0 }\n", d.Label)
			} else {
				fmt.Fprintf(b.out, "data $d_%s = { b %s, b 0 }\n", d.Label, d.Text)
			}
		}
	}
}

func (b *qbeBackend) temp() string {
	b.tmp++
	return fmt.Sprintf("%%.%d", b.tmp)
}

func (b *qbeBackend) freshLabel() {
	b.fresh++
	fmt.Fprintf(b.out, "@cont_%d\n", b.fresh)
}

func (b *qbeBackend) load(r ir.Reg) string {
	if r == ir.Zero {
		return "0"
	}
	return b.loadName(r.Name())
}

func (b *qbeBackend) loadName(name string) string {
	t := b.temp()
	fmt.Fprintf(b.out, "\t%s =%s load%s $r_%s\n", t, b.wt, b.wt, name)
	return t
}

func (b *qbeBackend) store(val string, r ir.Reg) {
	if r == ir.Zero {
		return
	}
	b.storeName(val, r.Name())
}

func (b *qbeBackend) storeName(val, name string) {
	fmt.Fprintf(b.out, "\tstore%s %s, $r_%s\n", b.wt, val, name)
}

// binop emits t = op a, b and returns t
func (b *qbeBackend) binop(op, x, y string) string {
	t := b.temp()
	fmt.Fprintf(b.out, "\t%s =%s %s %s, %s\n", t, b.wt, op, x, y)
	return t
}

var qbeCompare = map[ir.Op]string{
	ir.OpSeq: "ceq", ir.OpSne: "cne", ir.OpSlt: "cslt", ir.OpSle: "csle", ir.OpSgt: "csgt", ir.OpSge: "csge",
}

var qbeArith = map[ir.Op]string{
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpAnd: "and", ir.OpOr: "or", ir.OpXor: "xor",
	ir.OpAddi: "add", ir.OpAndi: "and",
}

func (b *qbeBackend) genInstr(in ir.Instr) error {
	switch in.Op {
	case ir.OpLabel:
		fmt.Fprintf(b.out, "@%s\n", in.Label)
	case ir.OpComment:
		fmt.Fprintf(b.out, "# %s\n", in.Comment)
	case ir.OpLi:
		b.store(fmt.Sprintf("%d", in.Imm), in.Dst)
	case ir.OpLa:
		b.store("$d_"+in.Label, in.Dst)
	case ir.OpLw:
		load := "loadsw"
		if b.wt == "w" {
			load = "loadw"
		}
		t := b.temp()
		fmt.Fprintf(b.out, "\t%s =%s %s $d_%s\n", t, b.wt, load, in.Label)
		b.store(t, in.Dst)
	case ir.OpSw:
		fmt.Fprintf(b.out, "\tstorew %s, $d_%s\n", b.load(in.Src1), in.Label)
	case ir.OpMove:
		b.store(b.load(in.Src1), in.Dst)
	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor:
		b.store(b.binop(qbeArith[in.Op], b.load(in.Src1), b.load(in.Src2)), in.Dst)
	case ir.OpAddi, ir.OpAndi:
		b.store(b.binop(qbeArith[in.Op], b.load(in.Src1), fmt.Sprintf("%d", in.Imm)), in.Dst)
	case ir.OpSeq, ir.OpSne, ir.OpSlt, ir.OpSle, ir.OpSgt, ir.OpSge:
		b.store(b.binop(qbeCompare[in.Op]+b.wt, b.load(in.Src1), b.load(in.Src2)), in.Dst)
	case ir.OpMult:
		b.storeName(b.binop("mul", b.load(in.Src1), b.load(in.Src2)), "lo")
		b.storeName("0", "hi")
	case ir.OpDiv:
		x, y := b.load(in.Src1), b.load(in.Src2)
		b.storeName(b.binop("div", x, y), "lo")
		b.storeName(b.binop("rem", x, y), "hi")
	case ir.OpMflo:
		b.store(b.loadName("lo"), in.Dst)
	case ir.OpMfhi:
		b.store(b.loadName("hi"), in.Dst)
	case ir.OpJ:
		fmt.Fprintf(b.out, "\tjmp @%s\n", in.Label)
		b.freshLabel()
	case ir.OpBne:
		c := b.temp()
		fmt.Fprintf(b.out, "\t%s =w cne%s %s, %s\n", c, b.wt, b.load(in.Src1), b.load(in.Src2))
		fmt.Fprintf(b.out, "\tjnz %s, @%s, @cont_%d\n", c, in.Label, b.fresh+1)
		b.freshLabel()
	case ir.OpPush:
		v := b.load(in.Src1)
		top := b.loadSpillTop()
		fmt.Fprintf(b.out, "\tstore%s %s, %s\n", b.wt, v, b.binop("add", "$spill", top))
		b.storeSpillTop(b.binop("add", top, fmt.Sprintf("%d", b.wordBytes())))
	case ir.OpPop:
		top := b.binop("sub", b.loadSpillTop(), fmt.Sprintf("%d", b.wordBytes()))
		b.storeSpillTop(top)
		t := b.temp()
		fmt.Fprintf(b.out, "\t%s =%s load%s %s\n", t, b.wt, b.wt, b.binop("add", "$spill", top))
		b.store(t, in.Dst)
	case ir.OpSyscall:
		return b.genSyscall(in.Service)
	case ir.OpFunc:
		if b.current == "main" {
			b.out.WriteString("\tret 0\n}\n")
		}
		fmt.Fprintf(b.out, "\nfunction $f_%s() {\n@start\n", in.Label)
		b.current = in.Label
	case ir.OpCall:
		fmt.Fprintf(b.out, "\tcall $f_%s()\n", in.Label)
	case ir.OpRet:
		b.out.WriteString("\tret\n")
		b.freshLabel()
	case ir.OpEndFunc:
		b.out.WriteString("\tret\n}\n")
		b.current = ""
	default:
		return fmt.Errorf("qbe: cannot lower op %s", in.Op)
	}
	return nil
}

func (b *qbeBackend) loadSpillTop() string {
	t := b.temp()
	fmt.Fprintf(b.out, "\t%s =%s load%s $spill_top\n", t, b.wt, b.wt)
	return t
}

func (b *qbeBackend) storeSpillTop(v string) {
	fmt.Fprintf(b.out, "\tstore%s %s, $spill_top\n", b.wt, v)
}

func (b *qbeBackend) genSyscall(s ir.Service) error {
	switch s {
	case ir.SysPrintInt:
		fmt.Fprintf(b.out, "\tcall $printf(%s $fmt_int, ..., w %s)\n", b.wt, b.load(ir.A0))
	case ir.SysPrintString:
		fmt.Fprintf(b.out, "\tcall $printf(%s $fmt_str, ..., %s %s)\n", b.wt, b.wt, b.load(ir.A0))
	case ir.SysPrintChar:
		fmt.Fprintf(b.out, "\tcall $putchar(w %s)\n", b.load(ir.A0))
	case ir.SysReadInt:
		fmt.Fprintf(b.out, "\tcall $scanf(%s $fmt_int, ..., %s $scan_word)\n", b.wt, b.wt)
		load := "loadsw"
		if b.wt == "w" {
			load = "loadw"
		}
		t := b.temp()
		fmt.Fprintf(b.out, "\t%s =%s %s $scan_word\n", t, b.wt, load)
		b.store(t, ir.V0)
	case ir.SysExit:
		b.out.WriteString("\tcall $exit(w 0)\n")
	default:
		return fmt.Errorf("qbe: unsupported syscall %s", s)
	}
	return nil
}
