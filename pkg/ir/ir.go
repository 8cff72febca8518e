// Package ir is the backend-independent instruction list produced by code
// generation: a data segment and a linear text segment over a small fixed
// register set.
package ir

import (
	"fmt"
	"strings"
)

type Reg int

const (
	RegNone Reg = iota
	Zero
	V0
	V1
	A0
	T0
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	T8
	T9
	SP
	RA
	RegCount
)

var regNames = [...]string{
	RegNone: "", Zero: "$zero", V0: "$v0", V1: "$v1", A0: "$a0",
	T0: "$t0", T1: "$t1", T2: "$t2", T3: "$t3", T4: "$t4",
	T5: "$t5", T6: "$t6", T7: "$t7", T8: "$t8", T9: "$t9",
	SP: "$sp", RA: "$ra",
}

func (r Reg) String() string {
	if r >= 0 && int(r) < len(regNames) {
		return regNames[r]
	}
	return fmt.Sprintf("$r%d", int(r))
}

// Name is the register name without the sigil
func (r Reg) Name() string { return strings.TrimPrefix(r.String(), "$") }

type Op int

const (
	OpLabel Op = iota
	OpComment
	OpLi
	OpLa
	OpLw
	OpSw
	OpMove
	OpAdd
	OpAddi
	OpSub
	OpMult
	OpDiv
	OpMflo
	OpMfhi
	OpAnd
	OpAndi
	OpOr
	OpXor
	OpSeq
	OpSne
	OpSlt
	OpSle
	OpSgt
	OpSge
	OpJ
	OpBne
	OpPush
	OpPop
	OpSyscall
	OpFunc
	OpCall
	OpRet
	OpEndFunc
)

var opNames = [...]string{
	OpLabel: "label", OpComment: "comment", OpLi: "li", OpLa: "la", OpLw: "lw", OpSw: "sw",
	OpMove: "move", OpAdd: "add", OpAddi: "addi", OpSub: "sub", OpMult: "mult", OpDiv: "div",
	OpMflo: "mflo", OpMfhi: "mfhi", OpAnd: "and", OpAndi: "andi", OpOr: "or", OpXor: "xor",
	OpSeq: "seq", OpSne: "sne", OpSlt: "slt", OpSle: "sle", OpSgt: "sgt", OpSge: "sge",
	OpJ: "j", OpBne: "bne", OpPush: "push", OpPop: "pop", OpSyscall: "syscall",
	OpFunc: "func", OpCall: "call", OpRet: "ret", OpEndFunc: "endfunc",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown_op"
}

// IsCompare reports whether o is one of the set-on-condition ops
func (o Op) IsCompare() bool { return o >= OpSeq && o <= OpSge }

// Service is a syscall service number, passed in $v0
type Service int

const (
	SysPrintInt    Service = 1
	SysPrintString Service = 4
	SysReadInt     Service = 5
	SysExit        Service = 10
	SysPrintChar   Service = 11
)

func (s Service) String() string {
	switch s {
	case SysPrintInt: return "print_int"
	case SysPrintString: return "print_string"
	case SysReadInt: return "read_int"
	case SysExit: return "exit"
	case SysPrintChar: return "print_char"
	default: return fmt.Sprintf("service_%d", int(s))
	}
}

// Instr is one instruction. Which fields are meaningful depends on Op:
//   li Dst, Imm          la Dst, Label         lw Dst, Label      sw Src1, Label
//   move Dst, Src1       add/sub/and/or/xor/seq.. Dst, Src1, Src2
//   addi/andi Dst, Src1, Imm                   mult/div Src1, Src2 (into hi/lo)
//   mflo/mfhi Dst        j Label               bne Src1, Src2, Label
//   push Src1            pop Dst               syscall Service
//   label/func/call Label                      comment Comment
type Instr struct {
	Op      Op
	Dst     Reg
	Src1    Reg
	Src2    Reg
	Imm     int64
	Label   string
	Service Service
	Comment string
}

func (in Instr) String() string {
	switch in.Op {
	case OpLabel:
		return in.Label + ":"
	case OpComment:
		return "# " + in.Comment
	case OpLi:
		return fmt.Sprintf("li %s, %d", in.Dst, in.Imm)
	case OpLa, OpLw:
		return fmt.Sprintf("%s %s, %s", in.Op, in.Dst, in.Label)
	case OpSw:
		return fmt.Sprintf("sw %s, %s", in.Src1, in.Label)
	case OpMove:
		return fmt.Sprintf("move %s, %s", in.Dst, in.Src1)
	case OpAddi, OpAndi:
		return fmt.Sprintf("%s %s, %s, %d", in.Op, in.Dst, in.Src1, in.Imm)
	case OpMult, OpDiv:
		return fmt.Sprintf("%s %s, %s", in.Op, in.Src1, in.Src2)
	case OpMflo, OpMfhi, OpPop:
		return fmt.Sprintf("%s %s", in.Op, in.Dst)
	case OpPush:
		return fmt.Sprintf("push %s", in.Src1)
	case OpJ, OpFunc, OpCall:
		return fmt.Sprintf("%s %s", in.Op, in.Label)
	case OpBne:
		return fmt.Sprintf("bne %s, %s, %s", in.Src1, in.Src2, in.Label)
	case OpSyscall:
		return fmt.Sprintf("syscall %s", in.Service)
	case OpRet, OpEndFunc:
		return in.Op.String()
	default:
		return fmt.Sprintf("%s %s, %s, %s", in.Op, in.Dst, in.Src1, in.Src2)
	}
}

type DataKind int

const (
	DataWord DataKind = iota
	DataAsciiz
)

// DataEntry is one data-segment item. For DataAsciiz, Text is the literal as
// written in source, quotes included.
type DataEntry struct {
	Label string
	Kind  DataKind
	Text  string
}

type Program struct {
	Data []DataEntry
	Text []Instr
}

func (p *Program) FindData(label string) (DataEntry, bool) {
	for _, d := range p.Data {
		if d.Label == label {
			return d, true
		}
	}
	return DataEntry{}, false
}

// Funcs lists the subroutines in text order
func (p *Program) Funcs() []string {
	var names []string
	for _, in := range p.Text {
		if in.Op == OpFunc {
			names = append(names, in.Label)
		}
	}
	return names
}

// UnquoteString strips the surrounding quotes of a string literal and
// resolves the backslash escapes an assembler would.
func UnquoteString(lit string) string {
	if len(lit) < 2 || lit[0] != '"' || lit[len(lit)-1] != '"' {
		return lit
	}
	var sb strings.Builder
	body := lit[1 : len(lit)-1]
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n': sb.WriteByte('\n')
		case 't': sb.WriteByte('\t')
		case '\\': sb.WriteByte('\\')
		case '"': sb.WriteByte('"')
		case '0': sb.WriteByte(0)
		default:
			sb.WriteByte('\\')
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}
