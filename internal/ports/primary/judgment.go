package primary

import (
	"context"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// JudgmentService defines the primary port for the quality gate.
type JudgmentService interface {
	// ExecuteJudgment judges a run, optionally applying a waiver to a FAIL.
	// A FAIL verdict is a returned value, not an error.
	ExecuteJudgment(ctx context.Context, runID, waiverID string) (*models.Judgment, error)

	// GetJudgment returns the stored judgment of a run, or nil if none.
	GetJudgment(ctx context.Context, runID string) (*models.Judgment, error)
}
