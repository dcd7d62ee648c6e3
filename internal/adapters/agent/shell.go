package agent

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// ShellRunner implements secondary.CommandRunner with "sh -c".
type ShellRunner struct{}

// NewShellRunner creates a shell command runner.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{}
}

// Run executes command in dir and returns its combined output and exit code.
func (s *ShellRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (string, int, error) {
	if timeout <= 0 {
		timeout = secondary.DefaultTimeoutSeconds * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir
	configureProcessGroup(cmd)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return out.String(), 0, nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return out.String(), -1, &errs.TimeoutError{Adapter: "qa", Timeout: timeout}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return out.String(), exitErr.ExitCode(), nil
	}
	return out.String(), -1, &errs.ExecutionError{Adapter: "qa", Err: err}
}
