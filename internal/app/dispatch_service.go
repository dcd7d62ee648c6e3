package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kawanishi0117/agent-company-sub008/internal/core/qa"
	coreticket "github.com/kawanishi0117/agent-company-sub008/internal/core/ticket"
	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// DispatchOptions carries the configured defaults of a dispatch.
type DispatchOptions struct {
	DefaultAgent   string
	Model          string
	AllowedTools   []string
	SystemPrompt   string
	TimeoutSeconds int
	MaxParallel    int
	MaxAttempts    int
	TestCommand    string
	LintCommand    string
	QATimeout      time.Duration
}

// DispatchServiceImpl implements the DispatchService interface.
type DispatchServiceImpl struct {
	tickets    primary.TicketService
	judgments  primary.JudgmentService
	agents     secondary.AgentRegistry
	runs       secondary.RunRepository
	artifacts  secondary.ArtifactStore
	commands   secondary.CommandRunner
	workspaces secondary.WorkspaceProvider
	opts       DispatchOptions
	logger     *slog.Logger
	newID      func() string
	now        func() time.Time

	mu       sync.Mutex
	dirLocks map[string]chan struct{}
}

// NewDispatchService creates a new DispatchService with injected dependencies.
func NewDispatchService(
	tickets primary.TicketService,
	judgments primary.JudgmentService,
	agents secondary.AgentRegistry,
	runs secondary.RunRepository,
	artifacts secondary.ArtifactStore,
	commands secondary.CommandRunner,
	workspaces secondary.WorkspaceProvider,
	opts DispatchOptions,
	logger *slog.Logger,
) *DispatchServiceImpl {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	return &DispatchServiceImpl{
		tickets:    tickets,
		judgments:  judgments,
		agents:     agents,
		runs:       runs,
		artifacts:  artifacts,
		commands:   commands,
		workspaces: workspaces,
		opts:       opts,
		logger:     logger,
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
		dirLocks:   make(map[string]chan struct{}),
	}
}

// Dispatch runs every dispatchable grandchild at or below req.TicketID,
// at most MaxParallel at a time. A working directory serves one agent
// invocation at a time, so grandchildren only run in parallel when the
// workspace provider isolates them. Per-ticket failures are reported in
// the summary; only problems that prevent dispatch altogether are errors.
func (s *DispatchServiceImpl) Dispatch(ctx context.Context, req primary.DispatchRequest) (*primary.DispatchSummary, error) {
	if strings.TrimSpace(req.WorkDir) == "" {
		return nil, errs.Validation("workdir", "is required")
	}
	name := req.Agent
	if name == "" {
		name = s.opts.DefaultAgent
	}
	agent, err := s.agents.Get(name)
	if err != nil {
		return nil, err
	}

	targets, err := s.tickets.ListDispatchTargets(ctx, req.TicketID)
	if err != nil {
		return nil, err
	}

	results := make([]primary.DispatchResult, len(targets))
	var g errgroup.Group
	g.SetLimit(s.opts.MaxParallel)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = s.dispatchOne(ctx, agent, target, req)
			return nil
		})
	}
	_ = g.Wait()

	return &primary.DispatchSummary{Results: results}, nil
}

func (s *DispatchServiceImpl) dispatchOne(ctx context.Context, agent secondary.CodingAgent, target *primary.DispatchTarget, req primary.DispatchRequest) primary.DispatchResult {
	ticket := target.Ticket
	result := primary.DispatchResult{TicketID: ticket.ID, Adapter: agent.Name(), Status: ticket.Status}

	if err := ctx.Err(); err != nil {
		result.Skipped = true
		result.Reason = "dispatch cancelled"
		return result
	}

	attempts, err := s.runs.CountByTicket(ctx, ticket.ID)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// Cheap pre-check on the listing; the claim below re-checks stored state.
	check := coreticket.CanDispatch(coreticket.DispatchContext{
		TicketID:       ticket.ID,
		Status:         ticket.Status,
		Paused:         ticket.Paused,
		AncestorPaused: target.AncestorPaused,
		Attempts:       attempts,
		MaxAttempts:    s.opts.MaxAttempts,
	})
	if !check.Allowed {
		result.Skipped = true
		result.Reason = check.Reason
		return result
	}

	ws, err := s.workspaces.Acquire(ctx, req.WorkDir, ticket.ID, ticket.GitBranch)
	if err != nil {
		result.Error = fmt.Sprintf("failed to prepare workspace: %v", err)
		return result
	}
	unlock, err := s.lockDir(ctx, ws.Dir)
	if err != nil {
		result.Skipped = true
		result.Reason = "dispatch cancelled"
		return result
	}
	defer unlock()

	// Another dispatch may have recorded a run while this one waited.
	if attempts, err = s.runs.CountByTicket(ctx, ticket.ID); err != nil {
		result.Error = err.Error()
		return result
	}
	claim, err := s.tickets.ClaimTicket(ctx, primary.ClaimTicketRequest{
		TicketID:    ticket.ID,
		Assignee:    agent.Name(),
		Attempts:    attempts,
		MaxAttempts: s.opts.MaxAttempts,
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if !claim.Success {
		result.Skipped = true
		result.Reason = claim.Error
		result.Status = claim.Status
		return result
	}

	runID := s.newID()
	result.RunID = runID
	logger := s.logger.With("ticket_id", ticket.ID, "run_id", runID, "adapter", agent.Name())
	logger.Info("dispatching ticket", "attempt", attempts+1, "workdir", ws.Dir)

	run := &models.Run{
		ID:        runID,
		TicketID:  ticket.ID,
		ProjectID: target.ProjectID,
		Adapter:   agent.Name(),
		Attempt:   attempts + 1,
		Result:    models.CodingTaskResult{FilesChanged: []string{}},
		Tests:     models.QAParseResult{Coverage: -1},
		Lint:      models.LintParseResult{Passed: true},
		CreatedAt: s.now(),
	}

	model := req.Model
	if model == "" {
		model = s.opts.Model
	}
	taskResult, execErr := agent.Execute(ctx, secondary.ExecuteOptions{
		WorkingDir:   ws.Dir,
		Prompt:       buildPrompt(ticket),
		Model:        model,
		AllowedTools: s.opts.AllowedTools,
		Timeout:      s.opts.TimeoutSeconds,
		SystemPrompt: s.opts.SystemPrompt,
	})
	if execErr != nil {
		logger.Warn("agent run failed", "error", execErr)
		run.Error = execErr.Error()
		result.Error = execErr.Error()
		if err := s.runs.Create(ctx, run); err != nil {
			logger.Error("failed to record run", "error", err)
		}
		result.Status = s.finish(ctx, logger, ticket.ID, models.StatusFailed)
		return result
	}
	run.Result = *taskResult

	if _, err := s.artifacts.WriteRunArtifacts(ctx, runID, taskResult); err != nil {
		logger.Warn("failed to write run artifacts", "error", err)
	} else {
		run.ArtifactsDir = s.artifacts.RunDir(runID)
		if err := s.tickets.AttachArtifacts(ctx, ticket.ID, []string{run.ArtifactsDir}); err != nil {
			logger.Warn("failed to attach artifacts", "error", err)
		}
	}

	run.Tests, run.Lint = s.collectQA(ctx, logger, ws.Dir, taskResult)
	unlock()

	if err := s.runs.Create(ctx, run); err != nil {
		result.Error = err.Error()
		return result
	}

	judgment, err := s.judgments.ExecuteJudgment(ctx, runID, req.WaiverID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Verdict = judgment.Status

	next := models.StatusCompleted
	if judgment.Status == models.VerdictFail {
		next = models.StatusRevisionRequired
		if s.opts.MaxAttempts > 0 && run.Attempt >= s.opts.MaxAttempts {
			next = models.StatusFailed
		}
	}
	result.Status = s.finish(ctx, logger, ticket.ID, next)
	return result
}

// lockDir waits until no other invocation of this service uses dir.
// The returned release func is safe to call more than once.
func (s *DispatchServiceImpl) lockDir(ctx context.Context, dir string) (func(), error) {
	key := filepath.Clean(dir)
	s.mu.Lock()
	sem, ok := s.dirLocks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.dirLocks[key] = sem
	}
	s.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-sem }) }, nil
}

// collectQA runs the configured test and lint commands in workDir, or
// parses the agent's own output when a command is not configured.
func (s *DispatchServiceImpl) collectQA(ctx context.Context, logger *slog.Logger, workDir string, taskResult *models.CodingTaskResult) (models.QAParseResult, models.LintParseResult) {
	testOutput := taskResult.Output
	if s.opts.TestCommand != "" {
		out, code, err := s.commands.Run(ctx, workDir, s.opts.TestCommand, s.opts.QATimeout)
		if err != nil {
			logger.Warn("test command failed", "error", err)
		}
		logger.Debug("test command finished", "exit_code", code)
		testOutput = out
	}

	lintOutput := taskResult.Output
	if s.opts.LintCommand != "" {
		out, code, err := s.commands.Run(ctx, workDir, s.opts.LintCommand, s.opts.QATimeout)
		if err != nil {
			logger.Warn("lint command failed", "error", err)
		}
		logger.Debug("lint command finished", "exit_code", code)
		lintOutput = out
	}

	return qa.ParseVitestOutput(testOutput), qa.ParseEslintOutput(lintOutput)
}

// finish records the final status of a dispatched ticket and returns it.
func (s *DispatchServiceImpl) finish(ctx context.Context, logger *slog.Logger, ticketID string, status models.TicketStatus) models.TicketStatus {
	if err := s.tickets.UpdateTicketStatus(ctx, ticketID, status); err != nil {
		logger.Error("failed to update ticket status", "status", status, "error", err)
	}
	logger.Info("dispatch finished", "status", status)
	return status
}

// GetRun retrieves a run by ID.
func (s *DispatchServiceImpl) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, errs.Validation("runId", "is required")
	}
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns lists runs, optionally for one ticket.
func (s *DispatchServiceImpl) ListRuns(ctx context.Context, ticketID string) ([]*models.Run, error) {
	runs, err := s.runs.List(ctx, secondary.RunFilters{TicketID: ticketID})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
