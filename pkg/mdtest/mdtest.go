// Package mdtest extracts compiler test cases from Markdown documents.
//
// A case starts at a heading "Test: <name>" and owns the fenced code blocks
// that follow it: exactly one ```ml program, an optional ```input block with
// stdin for the simulator, and one or more assertion blocks (```ast,
// ```execute, ```compile-error, ```asm).
package mdtest

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	FenceProgram = "ml"
	FenceInput   = "input"
)

type AssertionType string

const (
	AssertAST          AssertionType = "ast"
	AssertExecute      AssertionType = "execute"
	AssertCompileError AssertionType = "compile-error"
	AssertAsm          AssertionType = "asm"
)

type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

type TestCase struct {
	Name       string
	Program    string
	Input      string
	Assertions []Assertion
	Line       int
}

func isAssertion(lang string) bool {
	switch AssertionType(lang) {
	case AssertAST, AssertExecute, AssertCompileError, AssertAsm:
		return true
	}
	return false
}

// ParseFile reads and extracts the cases of one Markdown file
func ParseFile(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cases, err := Extract(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// Extract walks a Markdown document and returns its cases in order
func Extract(source []byte) ([]TestCase, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var cur *TestCase
	flush := func() error {
		if cur == nil {
			return nil
		}
		if cur.Program == "" {
			return fmt.Errorf("line %d: test '%s' has no ml fence", cur.Line, cur.Name)
		}
		if len(cur.Assertions) == 0 {
			return fmt.Errorf("line %d: test '%s' has no assertion fences", cur.Line, cur.Name)
		}
		cases = append(cases, *cur)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			title := plainText(n, source)
			if !strings.HasPrefix(title, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			cur = &TestCase{Name: strings.TrimPrefix(title, "Test: "), Line: lineOf(n, source)}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineOf(n, source)
			if lang == "" {
				return ast.WalkContinue, nil
			}
			if lang != FenceProgram && lang != FenceInput && !isAssertion(lang) {
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s'", line, lang)
			}
			if cur == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of a test case", line, lang)
			}
			content := fenceContent(n, source)
			switch {
			case lang == FenceProgram:
				if cur.Program != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple ml fences in test '%s'", line, cur.Name)
				}
				cur.Program = content
			case lang == FenceInput:
				cur.Input = content
			default:
				cur.Assertions = append(cur.Assertions, Assertion{
					Type: AssertionType(lang), Content: strings.TrimRight(content, "\n"), Line: line,
				})
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

func plainText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf is the 1-based line of the node's first content line
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:min(start, len(source))], []byte("\n")) + 1
}

// NormalizeSpace collapses runs of whitespace so multi-line S-expressions
// compare equal to their one-line rendering.
func NormalizeSpace(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "( ", "(")
	return strings.ReplaceAll(s, " )", ")")
}
