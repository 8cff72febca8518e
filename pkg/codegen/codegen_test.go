package codegen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
	"github.com/microlang/mlc/pkg/lexer"
	"github.com/microlang/mlc/pkg/parser"
	"github.com/microlang/mlc/pkg/symtab"
	"github.com/microlang/mlc/pkg/typeChecker"
	"github.com/microlang/mlc/pkg/util"
	"github.com/nalgeon/be"
)

func parseSrc(t *testing.T, src string) (*ast.Node, *symtab.Table) {
	t.Helper()
	syms := symtab.New()
	root, err := parser.Parse(lexer.NewLexer([]rune(src), 0, lexer.DefaultRules()), syms)
	be.Err(t, err, nil)
	return root, syms
}

func generate(t *testing.T, src string, cfg *config.Config) (*ir.Program, *symtab.Table, error) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	root, syms := parseSrc(t, src)
	prog, err := NewContext(cfg, syms).Generate(root)
	return prog, syms, err
}

func mustGenerate(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, _, err := generate(t, src, nil)
	be.Err(t, err, nil)
	return prog
}

// listing renders the text segment without comments
func listing(prog *ir.Program) []string {
	var out []string
	for _, in := range prog.Text {
		if in.Op != ir.OpComment {
			out = append(out, in.String())
		}
	}
	return out
}

// hasSeq reports whether want appears in got as a contiguous run
func hasSeq(got []string, want ...string) bool {
	for i := 0; i+len(want) <= len(got); i++ {
		if cmp.Equal(got[i:i+len(want)], want) {
			return true
		}
	}
	return false
}

func quiet(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := util.WarnOutput
	util.WarnOutput = &buf
	t.Cleanup(func() { util.WarnOutput = old })
	return &buf
}

func TestWriteSum(t *testing.T) {
	prog := mustGenerate(t, "begin write(1+2); end")

	be.Equal(t, len(prog.Data), 1)
	be.Equal(t, prog.Data[0].Label, "prompt_int")

	want := []string{
		"main:",
		"li $t0, 0",
		"li $t2, 1", "move $t1, $t2", "add $t0, $t0, $t1",
		"li $t2, 2", "move $t1, $t2", "add $t0, $t0, $t1",
		"move $a0, $t0", "syscall print_int",
		"addi $a0, $zero, 10", "syscall print_char",
		"syscall exit",
	}
	if diff := cmp.Diff(want, listing(prog)); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestAssignAndWrite(t *testing.T) {
	prog, syms, err := generate(t, "begin int x; x := 5; write(x); end", nil)
	be.Err(t, err, nil)

	e, ok := syms.Lookup("x")
	be.True(t, ok)
	be.Equal(t, e.Type, ast.TypeInt)
	be.True(t, e.Declared)
	be.True(t, e.Initialized)

	d, ok := prog.FindData("x")
	be.True(t, ok)
	be.Equal(t, d, ir.DataEntry{Label: "x", Kind: ir.DataWord, Text: "0"})

	got := listing(prog)
	be.True(t, hasSeq(got, "li $t2, 5", "move $t1, $t2", "add $t0, $t0, $t1", "sw $t0, x"))
	be.True(t, hasSeq(got, "lw $t2, x", "move $t1, $t2", "add $t0, $t0, $t1", "move $a0, $t0", "syscall print_int"))
}

func TestUninitializedReadWarns(t *testing.T) {
	warnings := quiet(t)
	_, _, err := generate(t, "begin int x; write(x); end", nil)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(warnings.String(), "variable 'x' is used before anything is assigned to it"))

	warnings.Reset()
	cfg := config.NewConfig()
	be.Err(t, cfg.ApplyFlag("-Wno-uninitialized"), nil)
	_, _, err = generate(t, "begin int x; write(x); end", cfg)
	be.Err(t, err, nil)
	be.Equal(t, warnings.String(), "")
}

func TestUnusedWarning(t *testing.T) {
	warnings := quiet(t)
	cfg := config.NewConfig()
	be.Err(t, cfg.ApplyFlag("-Wunused"), nil)
	_, _, err := generate(t, "begin int x; int y; y := 1; write(y); end", cfg)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(warnings.String(), "variable 'x' is declared but never used"))
	be.True(t, !strings.Contains(warnings.String(), "variable 'y'"))
}

func TestExtraWarnings(t *testing.T) {
	warnings := quiet(t)
	src := "def int f(): return 1; write(2); def void g(): write(3); begin func f(); end"
	_, _, err := generate(t, src, nil)
	be.Err(t, err, nil)
	out := warnings.String()
	be.True(t, strings.Contains(out, "statement after return is never reached"))
	be.True(t, strings.Contains(out, "function 'g' is never called"))
	be.True(t, !strings.Contains(out, "function 'f'"))

	warnings.Reset()
	cfg := config.NewConfig()
	be.Err(t, cfg.ApplyFlag("-Wno-extra"), nil)
	_, _, err = generate(t, src, cfg)
	be.Err(t, err, nil)
	be.Equal(t, warnings.String(), "")
}

func TestIfLowering(t *testing.T) {
	got := listing(mustGenerate(t, "begin if 1==1 then write(1); end end"))
	be.True(t, hasSeq(got, "move $t5, $t0"))
	be.True(t, hasSeq(got, "seq $t8, $t5, $t0", "and $t7, $t7, $t8", "or $t6, $t6, $t7",
		"li $t0, 1", "bne $t0, $t6, out1"))
	be.True(t, hasSeq(got, "syscall print_char", "out1:", "syscall exit"))
}

func TestIfElseLowering(t *testing.T) {
	got := listing(mustGenerate(t, "begin bool b; b := true; if b then write(1); end else write(2); end end"))
	be.True(t, hasSeq(got, "li $t0, 1", "bne $t0, $t6, out1"))
	be.True(t, hasSeq(got, "syscall print_char", "j out2", "out1:"))
	be.True(t, hasSeq(got, "li $t2, 2"))
	be.True(t, hasSeq(got, "syscall print_char", "out2:", "syscall exit"))
}

func TestWhileLowering(t *testing.T) {
	got := listing(mustGenerate(t, "begin int i; i := 0; while i < 3 begin i := i + 1; end end"))
	be.True(t, hasSeq(got, "label1:", "li $t6, 0"))
	be.True(t, hasSeq(got, "slt $t8, $t5, $t0"))
	be.True(t, hasSeq(got, "bne $t0, $t6, out1"))
	be.True(t, hasSeq(got, "sw $t0, i", "j label1", "out1:"))
}

func TestLabelsAreUnique(t *testing.T) {
	src := `begin
		int i; bool b;
		i := 0; b := false;
		while i < 3
			if b then write(1); end else write(2); end
			if i == 1 then b := true; end
			while b b := false; end
			i := i + 1;
		end
		if not b then write(3); end
	end`
	prog := mustGenerate(t, src)

	defined := map[string]int{}
	var targets []string
	for _, in := range prog.Text {
		switch in.Op {
		case ir.OpLabel:
			defined[in.Label]++
		case ir.OpJ, ir.OpBne:
			targets = append(targets, in.Label)
		}
	}
	for label, n := range defined {
		if n != 1 {
			t.Errorf("label %s defined %d times", label, n)
		}
	}
	for _, target := range targets {
		be.True(t, defined[target] == 1)
	}
	be.True(t, defined["out6"] == 1)
	be.True(t, defined["out7"] == 0)
}

func TestParenSpills(t *testing.T) {
	got := listing(mustGenerate(t, "begin bool b; b := (true or false) and true; write((1+2)*3); end"))
	be.True(t, hasSeq(got, "push $t6", "push $t7", "push $t8"))
	be.True(t, hasSeq(got, "move $t9, $t6", "pop $t8", "pop $t7", "pop $t6"))
	be.True(t, hasSeq(got, "push $t0", "push $t1"))
	be.True(t, hasSeq(got, "move $t2, $t0", "pop $t1", "pop $t0", "move $t1, $t2"))

	var pushes, pops int
	for _, line := range got {
		switch {
		case strings.HasPrefix(line, "push"):
			pushes++
		case strings.HasPrefix(line, "pop"):
			pops++
		}
	}
	be.Equal(t, pushes, 5)
	be.Equal(t, pops, 5)
}

// spillDepth replays the push/pop sequence of a listing
func spillDepth(lines []string) (pushes, deepest, final int) {
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "push"):
			pushes++
			final++
			deepest = max(deepest, final)
		case strings.HasPrefix(line, "pop"):
			final--
		}
	}
	return pushes, deepest, final
}

func TestDeepParenSpills(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		pushes  int
		deepest int
	}{
		// seven int parens, four deep on the left, two registers each
		{"int", "begin write(((((1+2)*3)-4)*(2+((3))))); end", 14, 8},
		// six bool parens, four deep around 1<2, three registers each
		{"bool", "begin write(((((1<2) and (3>2)) or false) and not (1==2))); end", 18, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pushes, deepest, final := spillDepth(listing(mustGenerate(t, tt.src)))
			be.Equal(t, pushes, tt.pushes)
			be.Equal(t, deepest, tt.deepest)
			be.Equal(t, final, 0)
		})
	}
}

func TestMostNegativeLiteral(t *testing.T) {
	got := listing(mustGenerate(t, "begin write(-2147483648, -2147483647); end"))
	be.True(t, hasSeq(got, "li $t2, -2147483648", "move $t1, $t2"))
	be.True(t, hasSeq(got, "li $t2, 2147483647", "sub $t2, $zero, $t2"))
}

func TestNegationAndDivision(t *testing.T) {
	got := listing(mustGenerate(t, "begin write(- 7 / 2, 7 % -2); end"))
	be.True(t, hasSeq(got, "li $t2, 7", "sub $t2, $zero, $t2", "move $t1, $t2"))
	be.True(t, hasSeq(got, "li $t2, 2", "div $t1, $t2", "mflo $t1"))
	be.True(t, hasSeq(got, "li $t2, 2", "sub $t2, $zero, $t2", "div $t1, $t2", "mfhi $t1"))
}

func TestBoolWriteAndNot(t *testing.T) {
	quiet(t)
	got := listing(mustGenerate(t, "begin bool b; string s; write(not b); end"))
	be.True(t, hasSeq(got, "lw $t9, b", "li $t8, 1", "xor $t8, $t8, $t9"))
	be.True(t, hasSeq(got, "move $a0, $t6", "syscall print_int"))
}

func TestStrings(t *testing.T) {
	quiet(t)
	prog := mustGenerate(t, `begin string s; string e; s := "hi"; write(s, "lit", "lit", e); end`)

	want := []ir.DataEntry{
		{Label: "prompt_int", Kind: ir.DataAsciiz, Text: `"Enter an int to store in a variable: "`},
		{Label: "s", Kind: ir.DataAsciiz, Text: `"hi"`},
		{Label: "string0", Kind: ir.DataAsciiz, Text: `"lit"`},
		{Label: "e", Kind: ir.DataAsciiz, Text: `""`},
	}
	if diff := cmp.Diff(want, prog.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	got := listing(prog)
	be.True(t, hasSeq(got, "la $a0, s", "syscall print_string"))
	be.True(t, hasSeq(got, "la $a0, string0", "syscall print_string", "addi $a0, $zero, 10", "syscall print_char",
		"la $a0, string0"))
	be.True(t, hasSeq(got, "la $a0, e", "syscall print_string"))
}

func TestStringCopy(t *testing.T) {
	prog := mustGenerate(t, `begin string a; string b; a := "x"; b := a; write(b); end`)
	d, ok := prog.FindData("b")
	be.True(t, ok)
	be.Equal(t, d.Text, `"x"`)
}

func TestStringReassign(t *testing.T) {
	src := `begin string s; s := "one"; s := "two"; write(s); end`
	_, _, err := generate(t, src, nil)
	be.Equal(t, err.Error(), "Semantic Error: String variable s cannot be reassigned.")

	cfg := config.NewConfig()
	be.Err(t, cfg.ApplyFlag("-Fstring-reassign"), nil)
	prog, _, err := generate(t, src, cfg)
	be.Err(t, err, nil)
	d, _ := prog.FindData("s")
	be.Equal(t, d.Text, `"two"`)
}

func TestRead(t *testing.T) {
	got := listing(mustGenerate(t, "begin int a; bool b; read(a, b); write(a); end"))
	be.True(t, hasSeq(got, "la $a0, prompt_int", "syscall print_string", "syscall read_int", "sw $v0, a",
		"la $a0, prompt_int", "syscall print_string", "syscall read_int", "sw $v0, b"))

	cfg := config.NewConfig()
	be.Err(t, cfg.ApplyFlag("-Fno-prompt-read"), nil)
	prog, _, err := generate(t, "begin int a; read(a); write(a); end", cfg)
	be.Err(t, err, nil)
	got = listing(prog)
	be.True(t, hasSeq(got, "main:", "syscall read_int", "sw $v0, a"))
}

func TestImplicitExit(t *testing.T) {
	cfg := config.NewConfig()
	be.Err(t, cfg.ApplyFlag("-Fno-implicit-exit"), nil)
	prog, _, err := generate(t, "begin write(1); end", cfg)
	be.Err(t, err, nil)
	got := listing(prog)
	be.Equal(t, got[len(got)-1], "syscall print_char")
}

func TestFunctions(t *testing.T) {
	prog := mustGenerate(t, "def int f(int n, bool b): return n; def void g(): write(1); begin func f(3, true); func g(); end")

	be.Equal(t, prog.Funcs(), []string{"f", "g"})
	_, ok := prog.FindData("n")
	be.True(t, ok)
	_, ok = prog.FindData("b")
	be.True(t, ok)

	got := listing(prog)
	be.True(t, hasSeq(got, "li $t2, 3", "move $t1, $t2", "add $t0, $t0, $t1", "sw $t0, n"))
	be.True(t, hasSeq(got, "or $t6, $t6, $t7", "sw $t6, b", "call f", "call g", "syscall exit", "func f"))
	be.True(t, hasSeq(got, "func f", "lw $t2, n", "move $v1, $t2", "ret", "endfunc"))
	be.True(t, hasSeq(got, "func g", "li $t0, 0"))
	be.Equal(t, got[len(got)-1], "endfunc")
}

func TestBoolReturn(t *testing.T) {
	got := listing(mustGenerate(t, "def bool t(): return true; begin func t(); end"))
	be.True(t, hasSeq(got, "func t", "li $t9, 1", "move $v1, $t9", "ret", "endfunc"))
}

func TestSemanticErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"declared twice", "begin int x; int x; end", "x was declared twice."},
		{"assign before declaration", "begin x := 1; int x; end", "Variable used before declaration."},
		{"string write before declaration", "begin bool b; write(s); string s; end", "Variable used before declaration."},
		{"never declared", "begin write(s); end", "Variable used before declaration."},
		{"void variable", "begin void v; end", "Variable v cannot be VOID."},
		{"read string", "begin string s; read(s); end", "Cannot read into STRING variable s."},
		{"string from expression", `begin string s; int i; i := 1; s := i; end`, "Expected String"},
		{"int literal overflow", "begin write(4294967296); end", "Integer literal 4294967296 does not fit in a word."},
		{"int literal just past a word", "begin write(2147483648); end", "Integer literal 2147483648 does not fit in a word."},
		{"negated literal past a word", "begin write(-2147483649); end", "Integer literal 2147483649 does not fit in a word."},
		{"undefined function", "begin func g(); end", "Function g is not defined."},
		{"arity", "def int f(int a): return a; begin func f(); end", "Function f expects 1 argument(s), got 0."},
		{"argument type", "def int f(int a): return a; begin func f(true); end", "Argument 1 of f"},
		{"void return", "def void f(): return 1; begin func f(); end", "Function f of type VOID cannot return a value."},
		{"return type", "def int f(): return true; begin func f(); end", "Return value of f"},
		{"return outside function", "begin return 1; end", "RETURN outside of a function."},
		{"function twice", "def int f(): return 1; def int f(): return 2; begin func f(); end", "Function f was declared twice."},
		{"function shadows variable", "def int x(): return 1; begin int x; func x(); end", "x was declared twice."},
		{"string parameter", `def int f(string s): return 1; begin func f("a"); end`, "Parameter s of function f cannot be STRING."},
		{"reserved label name", "begin int out1; end", "out1 is a reserved name."},
		{"reserved main", "def int main(): return 1; begin func main(); end", "main is a reserved name."},
		{"if condition", "begin if 1 then write(1); end end", "Non-bool expression for if condition."},
		{"while condition", "begin while 1 write(1); end end", "Non-bool expression for while loop condition."},
		{"assign type", "begin int x; x := true; end", "Assignment to x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quiet(t)
			_, _, err := generate(t, tt.src, nil)
			be.True(t, errors.Is(err, util.ErrSemantic))
			be.True(t, strings.Contains(err.Error(), tt.msg))
		})
	}
}

func TestMismatchCarriesTypes(t *testing.T) {
	_, _, err := generate(t, "begin int x; x := true; end", nil)
	var me *typeChecker.MismatchError
	be.True(t, errors.As(err, &me))
	be.Equal(t, me.Expected, ast.TypeInt)
	be.Equal(t, me.Found, ast.TypeBool)
}

func TestDataPassIsRepeatable(t *testing.T) {
	quiet(t)
	root, syms := parseSrc(t, `def int f(int n): return n; begin string s; int x; s := "a"; x := 1; write(s, "b", x); func f(x); end`)
	ctx := NewContext(config.NewConfig(), syms)

	first, err := ctx.GenerateData(root)
	be.Err(t, err, nil)
	second, err := ctx.GenerateData(root)
	be.Err(t, err, nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("data pass is not repeatable (-first +second):\n%s", diff)
	}

	text1, err := ctx.GenerateText(root)
	be.Err(t, err, nil)
	text2, err := ctx.GenerateText(root)
	be.Err(t, err, nil)
	be.Equal(t, len(text1), len(text2))
}

func TestTextRequiresData(t *testing.T) {
	root, syms := parseSrc(t, "begin write(1); end")
	_, err := NewContext(config.NewConfig(), syms).GenerateText(root)
	be.True(t, err != nil)
}

func TestRestoreOrder(t *testing.T) {
	ctx := NewContext(config.NewConfig(), symtab.New())
	ctx.save(ir.T0, ir.T1)
	be.True(t, ctx.restore(ir.T1, ir.T0) != nil)

	ctx = NewContext(config.NewConfig(), symtab.New())
	ctx.save(ir.T0, ir.T1)
	be.Err(t, ctx.restore(ir.T0, ir.T1), nil)
	be.Equal(t, len(ctx.spills), 0)
}

func TestCloseControlWithoutFrame(t *testing.T) {
	ctx := NewContext(config.NewConfig(), symtab.New())
	be.True(t, ctx.closeControl() != nil)
}
