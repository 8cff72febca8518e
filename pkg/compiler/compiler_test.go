package compiler

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/mdtest"
	"github.com/microlang/mlc/pkg/sim"
	"github.com/microlang/mlc/pkg/util"
	"github.com/nalgeon/be"
)

func TestMain(m *testing.M) {
	util.WarnOutput = io.Discard
	os.Exit(m.Run())
}

func TestMarkdownCases(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		cases, err := mdtest.ParseFile(file)
		be.Err(t, err, nil)
		for _, tc := range cases {
			t.Run(filepath.Base(file)+"/"+tc.Name, func(t *testing.T) {
				runCase(t, tc)
			})
		}
	}
}

func runCase(t *testing.T, tc mdtest.TestCase) {
	cfg := config.NewConfig()
	res, compileErr := Compile([]rune(tc.Program), nil, cfg)

	for _, a := range tc.Assertions {
		switch a.Type {
		case mdtest.AssertCompileError:
			if compileErr == nil {
				t.Fatalf("line %d: expected a compile error containing %q", a.Line, a.Content)
			}
			if !strings.Contains(compileErr.Error(), a.Content) {
				t.Errorf("line %d: error %q does not contain %q", a.Line, compileErr, a.Content)
			}
			continue
		}
		if compileErr != nil {
			t.Fatalf("line %d: unexpected compile error: %v", a.Line, compileErr)
		}

		switch a.Type {
		case mdtest.AssertAST:
			be.Equal(t, mdtest.NormalizeSpace(ast.Sexpr(res.AST)), mdtest.NormalizeSpace(a.Content))

		case mdtest.AssertExecute:
			var out strings.Builder
			m, err := sim.New(res.Program, strings.NewReader(tc.Input), &out)
			be.Err(t, err, nil)
			be.Err(t, m.Run(context.Background()), nil)
			be.Equal(t, strings.TrimRight(out.String(), "\n"), a.Content)

		case mdtest.AssertAsm:
			buf, err := Render(res, cfg)
			be.Err(t, err, nil)
			if missing := missingInOrder(buf.String(), a.Content); missing != "" {
				t.Errorf("line %d: %q not found in order in:\n%s", a.Line, missing, buf)
			}
		}
	}
}

// missingInOrder returns the first line of want that does not occur, after
// whitespace normalization, at or after the previous match in got
func missingInOrder(got, want string) string {
	var lines []string
	for _, l := range strings.Split(got, "\n") {
		lines = append(lines, strings.Join(strings.Fields(l), " "))
	}
	pos := 0
	for _, w := range strings.Split(want, "\n") {
		w = strings.Join(strings.Fields(w), " ")
		if w == "" {
			continue
		}
		found := false
		for pos < len(lines) {
			pos++
			if lines[pos-1] == w {
				found = true
				break
			}
		}
		if !found {
			return w
		}
	}
	return ""
}

func TestCompileDefaults(t *testing.T) {
	res, err := Compile([]rune("begin int x; x := 2; write(x * x); end"), nil, nil)
	be.Err(t, err, nil)
	be.Equal(t, res.Symbols.Names(), []string{"x"})
	be.True(t, len(res.Program.Text) > 0)
}

func TestCompileReturnsNoPartialResult(t *testing.T) {
	res, err := Compile([]rune("begin int x; int x; end"), nil, nil)
	be.True(t, err != nil)
	be.True(t, res == nil)

	res, err = Compile([]rune("begin write(1) end"), nil, nil)
	be.True(t, err != nil)
	be.True(t, res == nil)
}

func TestRenderIR(t *testing.T) {
	res, err := Compile([]rune(`begin string s; s := "a"; write(s); end`), nil, nil)
	be.Err(t, err, nil)

	cfg := config.NewConfig()
	listing, err := RenderIR(res, cfg)
	be.Err(t, err, nil)
	be.True(t, strings.HasPrefix(listing, "prompt_int: \"Enter an int to store in a variable: \"\ns: \"a\"\nmain:\n"))
	be.True(t, strings.Contains(listing, "\tla $a0, s\n"))

	be.Err(t, cfg.SetTarget("linux", "amd64", "qbe", "amd64_sysv"), nil)
	qbe, err := RenderIR(res, cfg)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(qbe, "export function w $main()"))
}

func TestRenderUnknownBackend(t *testing.T) {
	res, err := Compile([]rune("begin write(1); end"), nil, nil)
	be.Err(t, err, nil)
	cfg := config.NewConfig()
	cfg.BackendName = "wasm"
	_, err = Render(res, cfg)
	be.True(t, err != nil)
}
