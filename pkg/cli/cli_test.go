package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestParse(t *testing.T) {
	var out string
	var verbose bool
	fs := NewFlagSet("mlc")
	fs.String(&out, "output", "o", "out.asm", "Place the output into <file>", "file")
	fs.Bool(&verbose, "verbose", "v", false, "Log each stage")

	be.Equal(t, out, "out.asm")
	be.Err(t, fs.Parse([]string{"-o", "a.s", "-v", "prog.ml", "--output=b.s"}), nil)
	be.Equal(t, out, "b.s")
	be.True(t, verbose)
	be.Equal(t, fs.Args(), []string{"prog.ml"})

	be.Err(t, fs.Parse([]string{"-oc.s", "--verbose=false"}), nil)
	be.Equal(t, out, "c.s")
	be.True(t, !verbose)
	be.Equal(t, len(fs.Args()), 0)

	be.Err(t, fs.Parse([]string{"-output", "d.s", "--", "-v", "x.ml"}), nil)
	be.Equal(t, out, "d.s")
	be.Equal(t, fs.Args(), []string{"-v", "x.ml"})
}

func TestParseErrors(t *testing.T) {
	var out string
	var verbose bool
	fs := NewFlagSet("mlc")
	fs.String(&out, "output", "o", "", "", "file")
	fs.Bool(&verbose, "verbose", "v", false, "")

	tests := map[string][]string{
		"unknown flag: --nope":             {"--nope"},
		"unknown shorthand flag: -q":       {"-q"},
		"flag needs an argument: --output": {"--output"},
		"empty flag name":                  {"--=x"},
	}
	for msg, args := range tests {
		err := fs.Parse(args)
		be.True(t, err != nil)
		be.Equal(t, err.Error(), msg)
	}

	err := fs.Parse([]string{"--verbose=maybe"})
	be.True(t, err != nil)
	be.True(t, strings.HasPrefix(err.Error(), "invalid boolean value 'maybe'"))
}

func TestList(t *testing.T) {
	var inputs []string
	fs := NewFlagSet("mlc")
	fs.List(&inputs, "input", "i", nil, "Feed <file> to the program", "file")

	be.Err(t, fs.Parse([]string{"-i", "a", "--input=b", "-ic", "prog.ml"}), nil)
	be.Equal(t, inputs, []string{"a", "b", "c"})
	be.Equal(t, fs.Args(), []string{"prog.ml"})
}

func TestFlagGroup(t *testing.T) {
	on, off := true, false
	extraOn, extraOff := false, false
	fs := NewFlagSet("mlc")
	fs.AddFlagGroup("Warning Flags", "W", "warning", "Available Warnings:", []FlagGroupEntry{
		{Name: "unused", Usage: "Unused variables", Enabled: &on, Disabled: &off},
		{Name: "extra", Usage: "Extra warnings", Enabled: &extraOn, Disabled: &extraOff},
	})

	be.Err(t, fs.Parse([]string{"-Wno-unused", "-Wextra"}), nil)
	be.True(t, on)
	be.True(t, off)
	be.True(t, extraOn)
	be.True(t, !extraOff)

	be.Err(t, fs.Parse([]string{"-Wno-extra"}), nil)
	be.True(t, extraOff)
}

func TestRedefinePanics(t *testing.T) {
	defer func() {
		be.True(t, recover() != nil)
	}()
	var a, b bool
	fs := NewFlagSet("x")
	fs.Bool(&a, "run", "r", false, "")
	fs.Bool(&b, "run", "", false, "")
}

func newTestApp() (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := NewApp("mlc")
	app.Synopsis = "[options] <input.ml>"
	app.Description = "A compiler for the Micro-language."
	app.Authors = []string{"The mlc authors"}
	app.Since = 2024
	app.Stdout, app.Stderr = &stdout, &stderr

	var out string
	app.FlagSet.String(&out, "output", "o", "out.asm", "Place the output into <file>", "file")
	on, off := true, false
	app.FlagSet.AddFlagGroup("Feature Flags", "F", "feature", "Available Features:", []FlagGroupEntry{
		{Name: "implicit-exit", Usage: "Exit after the top-level end", Enabled: &on, Disabled: &off},
	})
	return app, &stdout, &stderr
}

func TestAppHelp(t *testing.T) {
	app, stdout, _ := newTestApp()
	called := false
	app.Action = func([]string) error { called = true; return nil }

	be.Err(t, app.Run([]string{"--help"}), nil)
	be.True(t, !called)

	help := stdout.String()
	for _, want := range []string{
		"Copyright (c) 2024-",
		"Synopsis\n" + indent(2) + "mlc <options> <input.ml>\n",
		"Description\n" + indent(2) + "A compiler for the Micro-language.\n",
		"--output <file>",
		"|out.asm|",
		"Feature Flags",
		"-Fno-<feature>",
		"implicit-exit",
		"|x|",
	} {
		be.True(t, strings.Contains(help, want))
	}
	be.True(t, !strings.Contains(help, "--Fimplicit-exit"))
}

func TestAppAction(t *testing.T) {
	app, _, _ := newTestApp()
	var got []string
	app.Action = func(args []string) error { got = args; return nil }
	be.Err(t, app.Run([]string{"-o", "x.s", "prog.ml"}), nil)
	be.Equal(t, got, []string{"prog.ml"})

	app, _, _ = newTestApp()
	boom := errors.New("boom")
	app.Action = func([]string) error { return boom }
	be.Err(t, app.Run(nil), boom)
}

func TestAppParseError(t *testing.T) {
	app, stdout, stderr := newTestApp()
	err := app.Run([]string{"--bogus"})
	be.True(t, err != nil)
	be.Equal(t, stdout.Len(), 0)
	be.True(t, strings.HasPrefix(stderr.String(), "unknown flag: --bogus\nUsage: mlc <options> [input.ml]\n"))
}

func TestWrapText(t *testing.T) {
	be.Equal(t, len(wrapText("", 10)), 0)
	lines := wrapText("one two three four", 9)
	be.Equal(t, lines, []string{"one two", "three", "four"})
}
