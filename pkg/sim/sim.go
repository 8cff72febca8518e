// Package sim executes an ir.Program directly, standing in for a MIPS
// simulator such as SPIM or MARS.
package sim

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/microlang/mlc/pkg/ir"
)

const (
	DataBase        = 0x10010000
	DefaultMaxSteps = 10_000_000
)

var (
	ErrStepLimit   = errors.New("step limit exceeded")
	ErrDivideZero  = errors.New("division by zero")
	ErrStackEmpty  = errors.New("pop from empty stack")
	ErrBadAddress  = errors.New("memory access out of bounds")
	ErrUnknownCall = errors.New("call to unknown subroutine")
)

type Machine struct {
	Regs   [ir.RegCount]int32
	Hi, Lo int32
	PC     int
	Halted bool
	Steps  int

	// MaxSteps bounds Run; zero means DefaultMaxSteps
	MaxSteps int

	prog   *ir.Program
	mem    []byte
	addr   map[string]int32
	labels map[string]int
	stack  []int32
	calls  []int
	in     *bufio.Reader
	out    io.Writer
}

// New lays out the data segment and resolves text labels. Execution starts at
// the main label, or the first instruction when there is none.
func New(prog *ir.Program, stdin io.Reader, stdout io.Writer) (*Machine, error) {
	m := &Machine{
		prog:   prog,
		addr:   make(map[string]int32),
		labels: make(map[string]int),
		in:     bufio.NewReader(stdin),
		out:    stdout,
	}
	for _, d := range prog.Data {
		if _, dup := m.addr[d.Label]; dup {
			return nil, fmt.Errorf("sim: duplicate data label %s", d.Label)
		}
		m.addr[d.Label] = DataBase + int32(len(m.mem))
		switch d.Kind {
		case ir.DataWord:
			var v int32
			if _, err := fmt.Sscan(d.Text, &v); err != nil {
				return nil, fmt.Errorf("sim: bad word %q for %s: %w", d.Text, d.Label, err)
			}
			m.mem = binary.LittleEndian.AppendUint32(m.mem, uint32(v))
		case ir.DataAsciiz:
			m.mem = append(m.mem, ir.UnquoteString(d.Text)...)
			m.mem = append(m.mem, 0)
			for len(m.mem)%4 != 0 {
				m.mem = append(m.mem, 0)
			}
		}
	}
	for i, in := range prog.Text {
		if in.Op == ir.OpLabel || in.Op == ir.OpFunc {
			m.labels[in.Label] = i
		}
	}
	m.PC = m.labels["main"]
	return m, nil
}

func (m *Machine) reg(r ir.Reg) int32 {
	if r == ir.Zero {
		return 0
	}
	return m.Regs[r]
}

func (m *Machine) set(r ir.Reg, v int32) {
	if r != ir.Zero && r != ir.RegNone {
		m.Regs[r] = v
	}
}

func (m *Machine) offset(label string) (int, error) {
	a, ok := m.addr[label]
	if !ok {
		return 0, fmt.Errorf("%w: no data label %s", ErrBadAddress, label)
	}
	return int(a - DataBase), nil
}

// Word reads the word stored at a data label
func (m *Machine) Word(label string) (int32, error) {
	off, err := m.offset(label)
	if err != nil {
		return 0, err
	}
	if off+4 > len(m.mem) {
		return 0, ErrBadAddress
	}
	return int32(binary.LittleEndian.Uint32(m.mem[off:])), nil
}

func (m *Machine) setWord(label string, v int32) error {
	off, err := m.offset(label)
	if err != nil {
		return err
	}
	if off+4 > len(m.mem) {
		return ErrBadAddress
	}
	binary.LittleEndian.PutUint32(m.mem[off:], uint32(v))
	return nil
}

func (m *Machine) cString(addr int32) (string, error) {
	off := int(addr - DataBase)
	if off < 0 || off >= len(m.mem) {
		return "", ErrBadAddress
	}
	for end := off; end < len(m.mem); end++ {
		if m.mem[end] == 0 {
			return string(m.mem[off:end]), nil
		}
	}
	return "", fmt.Errorf("%w: unterminated string", ErrBadAddress)
}

func (m *Machine) jump(label string) error {
	pc, ok := m.labels[label]
	if !ok {
		return fmt.Errorf("sim: jump to unknown label %s", label)
	}
	m.PC = pc
	return nil
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Step executes one instruction
func (m *Machine) Step() error {
	if m.Halted {
		return nil
	}
	if m.PC >= len(m.prog.Text) {
		m.Halted = true
		return nil
	}
	in := m.prog.Text[m.PC]
	m.PC++
	m.Steps++

	switch in.Op {
	case ir.OpLabel, ir.OpComment:
	case ir.OpLi:
		m.set(in.Dst, int32(in.Imm))
	case ir.OpLa:
		a, ok := m.addr[in.Label]
		if !ok {
			return fmt.Errorf("%w: no data label %s", ErrBadAddress, in.Label)
		}
		m.set(in.Dst, a)
	case ir.OpLw:
		v, err := m.Word(in.Label)
		if err != nil {
			return err
		}
		m.set(in.Dst, v)
	case ir.OpSw:
		return m.setWord(in.Label, m.reg(in.Src1))
	case ir.OpMove:
		m.set(in.Dst, m.reg(in.Src1))
	case ir.OpAdd:
		m.set(in.Dst, m.reg(in.Src1)+m.reg(in.Src2))
	case ir.OpAddi:
		m.set(in.Dst, m.reg(in.Src1)+int32(in.Imm))
	case ir.OpSub:
		m.set(in.Dst, m.reg(in.Src1)-m.reg(in.Src2))
	case ir.OpMult:
		p := int64(m.reg(in.Src1)) * int64(m.reg(in.Src2))
		m.Hi, m.Lo = int32(p>>32), int32(p)
	case ir.OpDiv:
		d := m.reg(in.Src2)
		if d == 0 {
			return ErrDivideZero
		}
		m.Lo, m.Hi = m.reg(in.Src1)/d, m.reg(in.Src1)%d
	case ir.OpMflo:
		m.set(in.Dst, m.Lo)
	case ir.OpMfhi:
		m.set(in.Dst, m.Hi)
	case ir.OpAnd:
		m.set(in.Dst, m.reg(in.Src1)&m.reg(in.Src2))
	case ir.OpAndi:
		m.set(in.Dst, m.reg(in.Src1)&int32(in.Imm))
	case ir.OpOr:
		m.set(in.Dst, m.reg(in.Src1)|m.reg(in.Src2))
	case ir.OpXor:
		m.set(in.Dst, m.reg(in.Src1)^m.reg(in.Src2))
	case ir.OpSeq:
		m.set(in.Dst, b2i(m.reg(in.Src1) == m.reg(in.Src2)))
	case ir.OpSne:
		m.set(in.Dst, b2i(m.reg(in.Src1) != m.reg(in.Src2)))
	case ir.OpSlt:
		m.set(in.Dst, b2i(m.reg(in.Src1) < m.reg(in.Src2)))
	case ir.OpSle:
		m.set(in.Dst, b2i(m.reg(in.Src1) <= m.reg(in.Src2)))
	case ir.OpSgt:
		m.set(in.Dst, b2i(m.reg(in.Src1) > m.reg(in.Src2)))
	case ir.OpSge:
		m.set(in.Dst, b2i(m.reg(in.Src1) >= m.reg(in.Src2)))
	case ir.OpJ:
		return m.jump(in.Label)
	case ir.OpBne:
		if m.reg(in.Src1) != m.reg(in.Src2) {
			return m.jump(in.Label)
		}
	case ir.OpPush:
		m.stack = append(m.stack, m.reg(in.Src1))
	case ir.OpPop:
		n := len(m.stack)
		if n == 0 {
			return ErrStackEmpty
		}
		m.set(in.Dst, m.stack[n-1])
		m.stack = m.stack[:n-1]
	case ir.OpSyscall:
		return m.syscall(in.Service)
	case ir.OpFunc:
		// falling off the end of main into the first subroutine
		if len(m.calls) == 0 {
			m.Halted = true
		}
	case ir.OpCall:
		pc, ok := m.labels[in.Label]
		if !ok || m.prog.Text[pc].Op != ir.OpFunc {
			return fmt.Errorf("%w: %s", ErrUnknownCall, in.Label)
		}
		m.calls = append(m.calls, m.PC)
		m.PC = pc + 1
	case ir.OpRet, ir.OpEndFunc:
		n := len(m.calls)
		if n == 0 {
			m.Halted = true
			return nil
		}
		m.PC = m.calls[n-1]
		m.calls = m.calls[:n-1]
	default:
		return fmt.Errorf("sim: unknown op %s", in.Op)
	}
	return nil
}

func (m *Machine) syscall(s ir.Service) error {
	switch s {
	case ir.SysPrintInt:
		_, err := fmt.Fprint(m.out, m.reg(ir.A0))
		return err
	case ir.SysPrintString:
		str, err := m.cString(m.reg(ir.A0))
		if err != nil {
			return err
		}
		_, err = io.WriteString(m.out, str)
		return err
	case ir.SysPrintChar:
		_, err := m.out.Write([]byte{byte(m.reg(ir.A0))})
		return err
	case ir.SysReadInt:
		var v int32
		if _, err := fmt.Fscan(m.in, &v); err != nil {
			return fmt.Errorf("read_int: %w", err)
		}
		m.set(ir.V0, v)
	case ir.SysExit:
		m.Halted = true
	default:
		return fmt.Errorf("sim: unsupported syscall %d", int(s))
	}
	return nil
}

// Run executes until the program exits, an instruction fails, the step limit
// is reached or ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	limit := m.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}
	for !m.Halted {
		if m.Steps >= limit {
			return ErrStepLimit
		}
		if m.Steps%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		pc := m.PC
		if err := m.Step(); err != nil {
			return fmt.Errorf("sim: at %d (%s): %w", pc, m.prog.Text[pc], err)
		}
	}
	return nil
}
