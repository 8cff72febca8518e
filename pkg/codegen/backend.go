package codegen

import (
	"bytes"
	"fmt"

	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes an IR program and a configuration, and produces the target
	// assembly or intermediate language as a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}

// NewBackend returns the backend named by cfg.BackendName
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.BackendName {
	case "", "mips":
		return NewMIPSBackend(), nil
	case "qbe":
		return NewQBEBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported backend '%s'", cfg.BackendName)
	}
}
