package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/microlang/mlc/pkg/ast"
	"github.com/microlang/mlc/pkg/cli"
	"github.com/microlang/mlc/pkg/compiler"
	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/lexer"
	"github.com/microlang/mlc/pkg/sim"
	"github.com/microlang/mlc/pkg/util"
)

func main() {
	app := cli.NewApp("mlc")
	app.Synopsis = "[options] <input.ml>"
	app.Description = "A compiler for the Micro-language. Emits MIPS assembly for SPIM/MARS, or native assembly through QBE."
	app.Authors = []string{"The mlc authors"}
	app.Since = 2025

	var (
		outFile    string
		tokensFile string
		target     string
		dumpIR     bool
		dumpAST    bool
		run        bool
		verbose    bool
		maxSteps   string
		inputs     []string
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "out.asm", "Place the output into <file>.", "file")
	fs.String(&tokensFile, "tokens", "t", "", "Read token rules from <file> instead of the built-in table.", "file")
	fs.String(&target, "target", "", "mips", "Set the backend and, for qbe, the target ABI (e.g. qbe/amd64_sysv).", "backend/target")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the intermediate representation and exit.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Print the syntax tree as an S-expression and exit.")
	fs.Bool(&run, "run", "r", false, "Execute the program in the built-in simulator instead of writing output.")
	fs.List(&inputs, "input", "i", nil, "With --run, read the program's input from <file> instead of stdin. Repeatable; files are read in order.", "file")
	fs.String(&maxSteps, "max-steps", "", "", "Stop the simulator after <n> instructions.", "n")
	fs.Bool(&verbose, "verbose", "v", false, "Report each compilation stage.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		cfg.Verbose = verbose
		cfg.ApplyFlagGroups(warningFlags, featureFlags)

		if len(inputFiles) != 1 {
			err := fmt.Errorf("expected exactly one input file, got %d", len(inputFiles))
			util.Report(os.Stderr, err)
			return err
		}
		backend, qbeTarget, _ := strings.Cut(target, "/")
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, backend, qbeTarget); err != nil {
			util.Report(os.Stderr, err)
			return err
		}

		if err := compile(cfg, inputFiles[0], tokensFile, outFile, options{dumpIR, dumpAST, run, maxSteps, inputs}); err != nil {
			util.Report(os.Stderr, err)
			return err
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

type options struct {
	dumpIR, dumpAST, run bool
	maxSteps             string
	inputs               []string
}

func logf(cfg *config.Config, format string, args ...interface{}) {
	if cfg.Verbose {
		fmt.Printf(format, args...)
	}
}

func compile(cfg *config.Config, path, tokensFile, outFile string, opts options) error {
	rules := lexer.DefaultRules()
	if tokensFile != "" {
		data, err := os.ReadFile(tokensFile)
		if err != nil {
			return fmt.Errorf("could not read token file '%s': %w", tokensFile, err)
		}
		if rules, err = lexer.LoadRules(data); err != nil {
			return fmt.Errorf("%s: %w", tokensFile, err)
		}
		logf(cfg, "Loaded %d token rules from %s (xxh64 %016x)\n", rules.Len(), tokensFile, rules.Checksum())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read file '%s': %w", path, err)
	}
	source := []rune(string(content))
	util.SetSourceFiles([]util.SourceFileRecord{{Name: path, Content: source}})

	logf(cfg, "Parsing and generating code for %s...\n", path)
	res, err := compiler.Compile(source, rules, cfg)
	if err != nil {
		return err
	}

	switch {
	case opts.dumpAST:
		fmt.Println(ast.Sexpr(res.AST))
		return nil
	case opts.dumpIR:
		logf(cfg, "Dumping IR for '%s' backend...\n", cfg.BackendName)
		text, err := compiler.RenderIR(res, cfg)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	case opts.run:
		return simulate(cfg, res, opts.maxSteps, opts.inputs)
	}

	logf(cfg, "Generating code with '%s' backend...\n", cfg.BackendName)
	out, err := compiler.Render(res, cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outFile, out.Bytes(), 0644); err != nil {
		return fmt.Errorf("could not write '%s': %w", outFile, err)
	}
	logf(cfg, "Wrote %s\n", outFile)
	return nil
}

func simulate(cfg *config.Config, res *compiler.Result, maxSteps string, inputs []string) error {
	var stdin io.Reader = os.Stdin
	if len(inputs) > 0 {
		readers := make([]io.Reader, 0, len(inputs))
		for _, path := range inputs {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("could not open input '%s': %w", path, err)
			}
			defer f.Close()
			readers = append(readers, f)
		}
		stdin = io.MultiReader(readers...)
	}
	m, err := sim.New(res.Program, stdin, os.Stdout)
	if err != nil {
		return err
	}
	if maxSteps != "" {
		if _, err := fmt.Sscan(maxSteps, &m.MaxSteps); err != nil {
			return fmt.Errorf("invalid --max-steps value '%s'", maxSteps)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logf(cfg, "Running in the simulator...\n")
	if err := m.Run(ctx); err != nil {
		return err
	}
	logf(cfg, "Halted after %d steps\n", m.Steps)
	return nil
}
