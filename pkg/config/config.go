package config

import (
	"fmt"
	"os"
	"strings"

	"modernc.org/libqbe"
)

type Feature int

const (
	FeatStringReassign Feature = iota
	FeatImplicitExit
	FeatPromptRead
	FeatCount
)

type Warning int

const (
	WarnUninitialized Warning = iota
	WarnUnused
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features      map[Feature]Info
	Warnings      map[Warning]Info
	FeatureMap    map[string]Feature
	WarningMap    map[string]Warning
	BackendName   string
	BackendTarget string
	TargetArch    string
	WordSize      int
	WordType      string
	Verbose       bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:    make(map[Feature]Info),
		Warnings:    make(map[Warning]Info),
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		BackendName: "mips",
		WordSize:    4,
		WordType:    "w",
	}

	features := map[Feature]Info{
		FeatStringReassign: {"string-reassign", false, "Allow a string variable to be assigned more than once (last assignment wins)."},
		FeatImplicitExit:   {"implicit-exit", true, "Terminate the program with an exit syscall after the top-level 'end'."},
		FeatPromptRead:     {"prompt-read", true, "Print the 'prompt_int' message before every read."},
	}

	warnings := map[Warning]Info{
		WarnUninitialized: {"uninitialized", true, "Warn when a variable is read before anything is assigned to it."},
		WarnUnused:        {"unused", false, "Warn about variables that are declared but never used."},
		WarnExtra:         {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget selects the backend. For the qbe backend an empty target resolves
// to the host's QBE target.
func (c *Config) SetTarget(goos, goarch, backend, qbeTarget string) error {
	c.TargetArch = goarch
	switch backend {
	case "", "mips":
		c.BackendName, c.BackendTarget = "mips", "mips32"
		c.WordSize, c.WordType = 4, "w"
		return nil
	case "qbe":
		c.BackendName = "qbe"
	default:
		return fmt.Errorf("unsupported backend '%s'. Supported: 'mips', 'qbe'", backend)
	}

	if qbeTarget == "" {
		c.BackendTarget = libqbe.DefaultTarget(goos, goarch)
		if c.Verbose {
			fmt.Fprintf(os.Stderr, "mlc: info: no target specified, defaulting to host target '%s'\n", c.BackendTarget)
		}
	} else {
		c.BackendTarget = qbeTarget
	}

	switch c.BackendTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.WordSize, c.WordType = 8, "l"
	case "arm", "rv32":
		c.WordSize, c.WordType = 4, "w"
	default:
		fmt.Fprintf(os.Stderr, "mlc: warning: unrecognized or unsupported QBE target '%s'.\n", c.BackendTarget)
		fmt.Fprintf(os.Stderr, "mlc: warning: defaulting to 64-bit properties. Compilation may fail.\n")
		c.WordSize, c.WordType = 8, "l"
	}
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyFlag handles a single -W/-F style flag such as "-Wno-unused" or
// "-Fstring-reassign". Unknown names are reported as an error.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	var isWarning bool
	switch {
	case strings.HasPrefix(trimmed, "W"):
		trimmed, isWarning = strings.TrimPrefix(trimmed, "W"), true
	case strings.HasPrefix(trimmed, "F"):
		trimmed = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	name := strings.TrimPrefix(trimmed, "no-")
	enable := name == trimmed

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}
