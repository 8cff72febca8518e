//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"

	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
)

// Generate hands the IR to the system's qbe; libqbe does not build on Windows
func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		fmt.Fprintln(os.Stderr, "mlc: info: assembling QBE IR with the system's 'qbe'")
	}
	return assembleExternal("qbe", cfg.BackendTarget, qbeIR)
}
