package agent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// ClaudeAdapter drives the Claude Code CLI in print mode.
type ClaudeAdapter struct {
	runner  *Runner
	command string
}

// NewClaudeAdapter creates a Claude adapter. An empty command means "claude".
func NewClaudeAdapter(runner *Runner, command string) *ClaudeAdapter {
	if command == "" {
		command = "claude"
	}
	return &ClaudeAdapter{runner: runner, command: command}
}

// Name returns "claude".
func (a *ClaudeAdapter) Name() string { return "claude" }

// Version returns the adapter contract version.
func (a *ClaudeAdapter) Version() string { return ContractVersion }

// Command returns the executable.
func (a *ClaudeAdapter) Command() string { return a.command }

// IsAvailable reports whether the executable is on PATH.
func (a *ClaudeAdapter) IsAvailable(ctx context.Context) bool { return lookPath(a.command) }

// GetVersion returns the CLI version, or nil.
func (a *ClaudeAdapter) GetVersion(ctx context.Context) *string { return probeVersion(ctx, a.command) }

// Args builds the argument list for one task.
func (a *ClaudeAdapter) Args(opts secondary.ExecuteOptions) []string {
	args := []string{"-p", opts.Prompt, "--output-format", "json"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if len(opts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(opts.AllowedTools, ","))
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", opts.SystemPrompt)
	}
	return args
}

// Execute runs one task. The JSON envelope printed by the CLI is unwrapped
// so that Output holds the agent's final message.
func (a *ClaudeAdapter) Execute(ctx context.Context, opts secondary.ExecuteOptions) (*models.CodingTaskResult, error) {
	result, err := a.runner.run(ctx, invocation{adapter: a.Name(), command: a.command, args: a.Args(opts)}, opts)
	if err != nil {
		return nil, err
	}
	unwrapClaudeEnvelope(result)
	return result, nil
}

type claudeEnvelope struct {
	Result  *string `json:"result"`
	IsError bool    `json:"is_error"`
}

func unwrapClaudeEnvelope(result *models.CodingTaskResult) {
	var env claudeEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(result.Output)), &env); err != nil || env.Result == nil {
		return
	}
	result.Output = *env.Result
	if env.IsError {
		result.Success = false
	}
}
