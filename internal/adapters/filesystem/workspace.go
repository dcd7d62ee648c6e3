package filesystem

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// SharedWorkspace implements secondary.WorkspaceProvider by handing every
// ticket the base directory itself.
type SharedWorkspace struct{}

// Acquire returns baseDir, shared with every other ticket.
func (SharedWorkspace) Acquire(ctx context.Context, baseDir, ticketID, branch string) (*secondary.Workspace, error) {
	return &secondary.Workspace{Dir: baseDir}, nil
}

// WorktreeManager implements secondary.WorkspaceProvider with one git
// worktree per ticket under root. Outside a git repository, or in one
// without commits, tickets share the base directory.
type WorktreeManager struct {
	root       string
	gitCommand string
	mu         sync.Mutex // serializes "git worktree add"
}

// NewWorktreeManager creates a worktree manager rooted at root
// (e.g., .agentco/worktrees).
func NewWorktreeManager(root string) *WorktreeManager {
	return &WorktreeManager{root: root, gitCommand: "git"}
}

// Acquire returns the ticket's worktree, creating it on first use. The
// worktree checks out branch, created from HEAD when missing, and defaults
// to agentco/<ticketID>. A baseDir below the repository root maps to the
// same subdirectory of the worktree.
func (m *WorktreeManager) Acquire(ctx context.Context, baseDir, ticketID, branch string) (*secondary.Workspace, error) {
	shared := &secondary.Workspace{Dir: baseDir}

	top, err := m.git(ctx, baseDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return shared, nil
	}
	if _, err := m.git(ctx, baseDir, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		return shared, nil
	}
	prefix, err := m.git(ctx, baseDir, "rev-parse", "--show-prefix")
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(m.root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve worktree root: %w", err)
	}
	path := filepath.Join(root, ticketID)
	ws := &secondary.Workspace{Dir: filepath.Join(path, prefix), Isolated: true}

	m.mu.Lock()
	defer m.mu.Unlock()

	exists, err := directoryExists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return ws, nil
	}

	if branch == "" {
		branch = "agentco/" + ticketID
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	args := []string{"worktree", "add"}
	if _, err := m.git(ctx, top, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch); err == nil {
		args = append(args, path, branch)
	} else {
		args = append(args, "-b", branch, path)
	}
	cmd := exec.CommandContext(ctx, m.gitCommand, args...)
	cmd.Dir = top
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("git worktree add failed: %w: %s", err, string(output))
	}
	return ws, nil
}

// git runs a git query in dir and returns its trimmed output.
func (m *WorktreeManager) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, m.gitCommand, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

func directoryExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check directory: %w", err)
	}
	return info.IsDir(), nil
}

var (
	_ secondary.WorkspaceProvider = SharedWorkspace{}
	_ secondary.WorkspaceProvider = (*WorktreeManager)(nil)
)
