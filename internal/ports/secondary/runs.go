package secondary

import (
	"context"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// RunRepository defines the secondary port for the run ledger.
type RunRepository interface {
	// Create records a new run. The ID must be pre-populated by the service layer.
	Create(ctx context.Context, run *models.Run) error

	// GetByID retrieves a run. Unknown ids yield a NotFoundError.
	GetByID(ctx context.Context, id string) (*models.Run, error)

	// List retrieves runs matching the given filters, newest first.
	List(ctx context.Context, filters RunFilters) ([]*models.Run, error)

	// CountByTicket returns how many runs a ticket has had.
	CountByTicket(ctx context.Context, ticketID string) (int, error)
}

// RunFilters contains filter options for querying runs.
type RunFilters struct {
	TicketID string
	Limit    int
}

// JudgmentStore defines the secondary port for judgment persistence.
type JudgmentStore interface {
	// Get returns the judgment of a run, or nil if it has not been judged.
	Get(ctx context.Context, runID string) (*models.Judgment, error)

	// Save writes the judgment of a run, replacing any previous one.
	Save(ctx context.Context, judgment *models.Judgment) error
}

// ArtifactStore defines the secondary port for per-run artifact files.
type ArtifactStore interface {
	// WriteRunArtifacts stores the captured output of a run and returns
	// the paths written.
	WriteRunArtifacts(ctx context.Context, runID string, result *models.CodingTaskResult) ([]string, error)

	// RunDir returns the artifact directory of a run.
	RunDir(runID string) string
}

// WaiverSource defines the secondary port for waiver documents.
type WaiverSource interface {
	// Get loads and parses a waiver. Unknown ids yield a NotFoundError.
	Get(ctx context.Context, id string) (*models.Waiver, error)
}
