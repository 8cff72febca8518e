// Package compiler wires the lexer, parser and code generator into a single
// source-to-IR pipeline.
package compiler

import (
	"bytes"
	"fmt"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/codegen"
	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
	"github.com/microlang/mlc/pkg/lexer"
	"github.com/microlang/mlc/pkg/parser"
	"github.com/microlang/mlc/pkg/symtab"
)

type Result struct {
	AST     *ast.Node
	Symbols *symtab.Table
	Program *ir.Program
}

// Compile translates one source file. A nil rules uses the embedded token
// table and a nil cfg the default configuration. The first error aborts, and
// no partial result is returned with it.
func Compile(source []rune, rules *lexer.Rules, cfg *config.Config) (*Result, error) {
	if rules == nil {
		rules = lexer.DefaultRules()
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	syms := symtab.New()
	root, err := parser.Parse(lexer.NewLexer(source, 0, rules), syms)
	if err != nil {
		return nil, err
	}
	prog, err := codegen.NewContext(cfg, syms).Generate(root)
	if err != nil {
		return nil, err
	}
	return &Result{AST: root, Symbols: syms, Program: prog}, nil
}

// Render runs the backend selected by cfg over a compiled program
func Render(res *Result, cfg *config.Config) (*bytes.Buffer, error) {
	backend, err := codegen.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	out, err := backend.Generate(res.Program, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", cfg.BackendName, err)
	}
	return out, nil
}

// RenderIR returns the backend's intermediate text when it has one (QBE IR
// for the qbe backend) and the plain instruction listing otherwise.
func RenderIR(res *Result, cfg *config.Config) (string, error) {
	backend, err := codegen.NewBackend(cfg)
	if err != nil {
		return "", err
	}
	if irGen, ok := backend.(interface {
		GenerateIR(*ir.Program, *config.Config) (string, error)
	}); ok {
		return irGen.GenerateIR(res.Program, cfg)
	}
	var sb bytes.Buffer
	for _, d := range res.Program.Data {
		fmt.Fprintf(&sb, "%s: %s\n", d.Label, d.Text)
	}
	for _, in := range res.Program.Text {
		if in.Op == ir.OpLabel || in.Op == ir.OpFunc {
			fmt.Fprintf(&sb, "%s\n", in)
			continue
		}
		fmt.Fprintf(&sb, "\t%s\n", in)
	}
	return sb.String(), nil
}
