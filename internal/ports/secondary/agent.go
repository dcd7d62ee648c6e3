package secondary

import (
	"context"
	"time"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// DefaultTimeoutSeconds bounds an agent run when no timeout is given.
const DefaultTimeoutSeconds = 600

// CodingAgent defines the secondary port for an external coding agent CLI.
// Each supported tool has one implementation.
type CodingAgent interface {
	// Name returns the adapter name used in configuration.
	Name() string

	// Version returns the adapter contract version.
	Version() string

	// Command returns the executable the adapter invokes.
	Command() string

	// IsAvailable reports whether the executable can be run.
	IsAvailable(ctx context.Context) bool

	// GetVersion returns the tool's reported version, or nil on any failure.
	GetVersion(ctx context.Context) *string

	// Execute runs one coding task to completion or timeout.
	Execute(ctx context.Context, opts ExecuteOptions) (*models.CodingTaskResult, error)
}

// ExecuteOptions contains parameters for one coding task.
type ExecuteOptions struct {
	WorkingDir   string
	Prompt       string
	Model        string   // Optional
	AllowedTools []string // Optional, ignored by tools without an allow-list
	Timeout      int      // Seconds; zero means DefaultTimeoutSeconds
	SystemPrompt string   // Optional
	Env          map[string]string
}

// TimeoutDuration returns the effective timeout.
func (o ExecuteOptions) TimeoutDuration() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(o.Timeout) * time.Second
}

// AgentRegistry defines the secondary port for adapter lookup.
type AgentRegistry interface {
	// Get returns the adapter with the given name, or a NotFoundError.
	Get(name string) (CodingAgent, error)

	// All returns every registered adapter in registration order.
	All() []CodingAgent
}

// ChangeDetector defines the secondary port for working-tree change detection.
type ChangeDetector interface {
	// Snapshot records the state of dir before an agent runs.
	Snapshot(ctx context.Context, dir string) (ChangeSnapshot, error)

	// Changed lists files that differ from the snapshot, relative to dir.
	Changed(ctx context.Context, dir string, before ChangeSnapshot) ([]string, error)
}

// ChangeSnapshot is an opaque record of a working tree.
type ChangeSnapshot interface{}

// CommandRunner defines the secondary port for running QA shell commands.
type CommandRunner interface {
	// Run executes command through the shell in dir and returns its
	// combined output and exit code. A non-zero exit is not an error.
	Run(ctx context.Context, dir, command string, timeout time.Duration) (output string, exitCode int, err error)
}

// WorkspaceProvider defines the secondary port for the directory a
// grandchild's agent works in.
type WorkspaceProvider interface {
	// Acquire returns the working directory for ticketID, derived from
	// baseDir. branch names the git branch to work on; empty picks one.
	Acquire(ctx context.Context, baseDir, ticketID, branch string) (*Workspace, error)
}

// Workspace is a directory handed to one agent invocation.
type Workspace struct {
	Dir string
	// Isolated is true when Dir belongs to this ticket alone.
	Isolated bool
}
