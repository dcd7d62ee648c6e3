package primary

import (
	"context"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// DispatchService defines the primary port for handing grandchild tickets
// to coding agents and recording what came back.
type DispatchService interface {
	// Dispatch runs every dispatchable grandchild at or below TicketID.
	Dispatch(ctx context.Context, req DispatchRequest) (*DispatchSummary, error)

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*models.Run, error)

	// ListRuns lists runs, newest first.
	ListRuns(ctx context.Context, ticketID string) ([]*models.Run, error)
}

// DispatchRequest contains parameters for a dispatch.
type DispatchRequest struct {
	TicketID string
	WorkDir  string
	Agent    string // Optional, defaults to the configured adapter
	Model    string // Optional
	WaiverID string // Optional, applied when judging each run
}

// DispatchResult is the outcome for one grandchild.
type DispatchResult struct {
	TicketID string
	RunID    string
	Adapter  string
	Verdict  models.Verdict
	Status   models.TicketStatus
	Skipped  bool
	Reason   string
	Error    string
}

// DispatchSummary collects the per-grandchild results of one dispatch.
type DispatchSummary struct {
	Results []DispatchResult
}

// Failed reports whether any grandchild ended without a passing verdict.
func (s *DispatchSummary) Failed() bool {
	for _, r := range s.Results {
		if r.Skipped {
			continue
		}
		if r.Error != "" || r.Verdict == models.VerdictFail {
			return true
		}
	}
	return false
}
