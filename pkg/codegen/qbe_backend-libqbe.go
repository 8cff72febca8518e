//go:build !windows

package codegen

import (
	"bytes"
	"strings"

	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/ir"
	"modernc.org/libqbe"
)

// Generate assembles the IR in process for cfg.BackendTarget
func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}

	var asmBuf bytes.Buffer
	if err := libqbe.Main(cfg.BackendTarget, "mlc.ssa", strings.NewReader(qbeIR), &asmBuf, nil); err != nil {
		return nil, qbeFailure(qbeIR, err)
	}
	return &asmBuf, nil
}
