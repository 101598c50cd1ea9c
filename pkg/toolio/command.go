package toolio

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/alp-run/alp/pkg/alperr"
)

// commandResult mirrors the {exit_code,stdout,stderr} shape tool_call results
// take for command-transport tools.
type commandResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func (m *Manager) callCommand(ctx context.Context, t *Tool, args map[string]any) (any, error) {
	argv := substituteAll(t.Argv, args)
	if len(argv) == 0 {
		return nil, alperr.New(alperr.KindTool, "tool %q: empty argv", t.Name)
	}
	head := commandHead(argv, argv[0])
	if !m.gate.AllowToolCommand(head) {
		return nil, alperr.New(alperr.KindCapability, "command %q denied by capability gate", head)
	}

	var timeoutCtx context.Context
	var cancel context.CancelFunc
	if t.Timeout > 0 {
		timeoutCtx, cancel = withTimeout(ctx, t.Timeout)
		defer cancel()
	} else {
		timeoutCtx = ctx
	}

	cmd := exec.CommandContext(timeoutCtx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if isContextErr(timeoutCtx) {
			return nil, timeoutOrCancel(timeoutCtx, t.Name)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, alperr.Wrap(alperr.KindTool, err, "run tool %q", t.Name)
		}
	}

	return map[string]any{
		"exit_code": float64(exitCode),
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
	}, nil
}
