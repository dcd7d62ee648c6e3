// Package agent contains the coding agent adapters: one struct per external
// CLI, all sharing a subprocess runner that bounds each invocation and
// kills its whole process group on timeout.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// ContractVersion is the version of the adapter contract every adapter
// in this package implements.
const ContractVersion = "1.0.0"

const (
	versionProbeTimeout = 10 * time.Second
	waitDelay           = 5 * time.Second
)

// Runner executes agent CLIs as captured, non-interactive subprocesses.
type Runner struct {
	logger   *slog.Logger
	detector secondary.ChangeDetector
}

// NewRunner creates a runner. detector may be nil, in which case
// filesChanged is always empty.
func NewRunner(logger *slog.Logger, detector secondary.ChangeDetector) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Runner{logger: logger, detector: detector}
}

// invocation is one fully built command line.
type invocation struct {
	adapter string
	command string
	args    []string
}

// run executes inv in opts.WorkingDir and normalizes the outcome. A process
// that exits within the timeout always yields a result, whatever its exit
// code. Timeouts, a missing executable and spawn failures yield errors.
func (r *Runner) run(ctx context.Context, inv invocation, opts secondary.ExecuteOptions) (*models.CodingTaskResult, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	var before secondary.ChangeSnapshot
	if r.detector != nil {
		snap, err := r.detector.Snapshot(ctx, opts.WorkingDir)
		if err != nil {
			r.logger.Warn("change snapshot failed", "adapter", inv.adapter, "dir", opts.WorkingDir, "error", err)
		}
		before = snap
	}

	timeout := opts.TimeoutDuration()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, inv.command, inv.args...)
	cmd.Dir = opts.WorkingDir
	cmd.Env = mergeEnv(os.Environ(), opts.Env)
	configureProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("starting agent", "adapter", inv.adapter, "command", inv.command, "dir", opts.WorkingDir, "timeout", timeout)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode, err := classifyExit(ctx, runCtx, inv, timeout, err)
	if err != nil {
		r.logger.Warn("agent execution failed", "adapter", inv.adapter, "duration_ms", duration.Milliseconds(), "error", err)
		return nil, err
	}

	result := &models.CodingTaskResult{
		Success:      exitCode == 0,
		Output:       stdout.String(),
		Stderr:       stderr.String(),
		ExitCode:     exitCode,
		DurationMs:   duration.Milliseconds(),
		FilesChanged: []string{},
	}

	if r.detector != nil && before != nil {
		files, err := r.detector.Changed(ctx, opts.WorkingDir, before)
		if err != nil {
			r.logger.Warn("change detection failed", "adapter", inv.adapter, "error", err)
		} else if files != nil {
			result.FilesChanged = files
		}
	}

	r.logger.Info("agent finished", "adapter", inv.adapter, "exit_code", exitCode, "duration_ms", result.DurationMs, "files_changed", len(result.FilesChanged))
	return result, nil
}

// classifyExit turns the error of cmd.Run into an exit code or one of the
// error taxonomy types.
func classifyExit(parent, runCtx context.Context, inv invocation, timeout time.Duration, err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return 0, errs.NotFound("executable", inv.command)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return 0, &errs.TimeoutError{Adapter: inv.adapter, Timeout: timeout}
	}
	if parent.Err() != nil {
		return 0, &errs.ExecutionError{Adapter: inv.adapter, Err: parent.Err()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return 0, &errs.ExecutionError{Adapter: inv.adapter, Err: err}
}

// configureProcessGroup starts the command in its own process group and
// makes context cancellation kill the whole group, so that tools spawned
// by the agent die with it.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
}

func validateOptions(opts secondary.ExecuteOptions) error {
	if opts.WorkingDir == "" {
		return errs.Validation("workingDirectory", "is required")
	}
	info, err := os.Stat(opts.WorkingDir)
	if err != nil || !info.IsDir() {
		return errs.Validation("workingDirectory", "%s does not exist or is not a directory", opts.WorkingDir)
	}
	if opts.Prompt == "" {
		return errs.Validation("prompt", "is required")
	}
	if opts.Timeout < 0 {
		return errs.Validation("timeout", "must not be negative")
	}
	return nil
}

// mergeEnv appends extra to base in a stable order. Later entries win.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := append([]string(nil), base...)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, extra[k]))
	}
	return env
}

// probeVersion runs "<command> --version" and returns its first line, or
// nil on any failure.
func probeVersion(ctx context.Context, command string) *string {
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, "--version")
	configureProcessGroup(cmd)
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	line := string(bytes.TrimSpace(bytes.SplitN(out, []byte("\n"), 2)[0]))
	if line == "" {
		return nil
	}
	return &line
}

func lookPath(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}
