package codegen

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// assembleExternal pipes qbeIR through a qbe binary found on PATH and returns
// the assembly it prints
func assembleExternal(bin, target, qbeIR string) (*bytes.Buffer, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("QBE not found in PATH: %w", err)
	}

	var asmBuf, stderr bytes.Buffer
	cmd := exec.Command(path, "-t", target, "-")
	cmd.Stdin = strings.NewReader(qbeIR)
	cmd.Stdout, cmd.Stderr = &asmBuf, &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, qbeFailure(qbeIR, err)
	}
	return &asmBuf, nil
}

func qbeFailure(qbeIR string, err error) error {
	return fmt.Errorf("\n--- QBE Compilation Failed ---\nGenerated IR:\n%s\n\nqbe error: %w", qbeIR, err)
}
