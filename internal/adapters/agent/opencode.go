package agent

import (
	"context"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// OpenCodeAdapter drives the OpenCode CLI through "opencode run".
type OpenCodeAdapter struct {
	runner  *Runner
	command string
}

// NewOpenCodeAdapter creates an OpenCode adapter. An empty command means "opencode".
func NewOpenCodeAdapter(runner *Runner, command string) *OpenCodeAdapter {
	if command == "" {
		command = "opencode"
	}
	return &OpenCodeAdapter{runner: runner, command: command}
}

// Name returns "opencode".
func (a *OpenCodeAdapter) Name() string { return "opencode" }

// Version returns the adapter contract version.
func (a *OpenCodeAdapter) Version() string { return ContractVersion }

// Command returns the executable.
func (a *OpenCodeAdapter) Command() string { return a.command }

// IsAvailable reports whether the executable is on PATH.
func (a *OpenCodeAdapter) IsAvailable(ctx context.Context) bool { return lookPath(a.command) }

// GetVersion returns the CLI version, or nil.
func (a *OpenCodeAdapter) GetVersion(ctx context.Context) *string { return probeVersion(ctx, a.command) }

// Args builds the argument list for one task.
func (a *OpenCodeAdapter) Args(opts secondary.ExecuteOptions) []string {
	args := []string{"run"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	return append(args, withSystemPrompt(opts))
}

// Execute runs one task. OpenCode has no tool allow-list; AllowedTools is ignored.
func (a *OpenCodeAdapter) Execute(ctx context.Context, opts secondary.ExecuteOptions) (*models.CodingTaskResult, error) {
	if len(opts.AllowedTools) > 0 {
		a.runner.logger.Warn("allowed tools are not supported, ignoring", "adapter", a.Name(), "tools", opts.AllowedTools)
	}
	return a.runner.run(ctx, invocation{adapter: a.Name(), command: a.command, args: a.Args(opts)}, opts)
}
