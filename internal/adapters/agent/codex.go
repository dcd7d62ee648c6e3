package agent

import (
	"context"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// CodexAdapter drives the Codex CLI in non-interactive exec mode.
type CodexAdapter struct {
	runner  *Runner
	command string
}

// NewCodexAdapter creates a Codex adapter. An empty command means "codex".
func NewCodexAdapter(runner *Runner, command string) *CodexAdapter {
	if command == "" {
		command = "codex"
	}
	return &CodexAdapter{runner: runner, command: command}
}

// Name returns "codex".
func (a *CodexAdapter) Name() string { return "codex" }

// Version returns the adapter contract version.
func (a *CodexAdapter) Version() string { return ContractVersion }

// Command returns the executable.
func (a *CodexAdapter) Command() string { return a.command }

// IsAvailable reports whether the executable is on PATH.
func (a *CodexAdapter) IsAvailable(ctx context.Context) bool { return lookPath(a.command) }

// GetVersion returns the CLI version, or nil.
func (a *CodexAdapter) GetVersion(ctx context.Context) *string { return probeVersion(ctx, a.command) }

// Args builds the argument list for one task. Codex has no system prompt
// flag, so the system prompt is prefixed to the task prompt.
func (a *CodexAdapter) Args(opts secondary.ExecuteOptions) []string {
	args := []string{"exec", "--json"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	args = append(args, "--sandbox", "workspace-write")
	return append(args, withSystemPrompt(opts))
}

// Execute runs one task.
func (a *CodexAdapter) Execute(ctx context.Context, opts secondary.ExecuteOptions) (*models.CodingTaskResult, error) {
	if len(opts.AllowedTools) > 0 {
		a.runner.logger.Debug("allowed tools are not supported, ignoring", "adapter", a.Name(), "tools", opts.AllowedTools)
	}
	return a.runner.run(ctx, invocation{adapter: a.Name(), command: a.command, args: a.Args(opts)}, opts)
}

func withSystemPrompt(opts secondary.ExecuteOptions) string {
	if opts.SystemPrompt == "" {
		return opts.Prompt
	}
	return opts.SystemPrompt + "\n\n" + opts.Prompt
}
