package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	corejudgment "github.com/kawanishi0117/agent-company-sub008/internal/core/judgment"
	corewaiver "github.com/kawanishi0117/agent-company-sub008/internal/core/waiver"
	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// JudgmentServiceImpl implements the JudgmentService interface.
type JudgmentServiceImpl struct {
	runs      secondary.RunRepository
	judgments secondary.JudgmentStore
	waivers   secondary.WaiverSource
	policy    corejudgment.Policy
	logger    *slog.Logger
	now       func() time.Time
}

// NewJudgmentService creates a new JudgmentService with injected dependencies.
func NewJudgmentService(
	runs secondary.RunRepository,
	judgments secondary.JudgmentStore,
	waivers secondary.WaiverSource,
	policy corejudgment.Policy,
	logger *slog.Logger,
) *JudgmentServiceImpl {
	return &JudgmentServiceImpl{
		runs:      runs,
		judgments: judgments,
		waivers:   waivers,
		policy:    policy,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExecuteJudgment judges a run from the QA results recorded in the ledger.
// A run already judged with the same waiver id, or already passed, returns
// the stored judgment unchanged; a different waiver id re-judges and
// replaces it. The judgment names a waiver only when one was consulted.
func (s *JudgmentServiceImpl) ExecuteJudgment(ctx context.Context, runID, waiverID string) (*models.Judgment, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, errs.Validation("runId", "is required")
	}

	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	existing, err := s.judgments.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read judgment: %w", err)
	}
	if existing != nil && (existing.WaiverID == waiverID || existing.Status == models.VerdictPass) {
		return existing, nil
	}

	eval := corejudgment.Evaluate(run.Tests, run.Lint, s.policy)

	var check *corejudgment.WaiverCheck
	if !eval.Passed && waiverID != "" {
		check, err = s.checkWaiver(ctx, waiverID)
		if err != nil {
			return nil, err
		}
	}

	verdict, reasons := corejudgment.Decide(eval, check)
	if reasons == nil {
		reasons = []string{}
	}
	usedWaiver := ""
	if check != nil {
		usedWaiver = check.WaiverID
	}

	judgment := &models.Judgment{
		Status:            verdict,
		RunID:             runID,
		WaiverID:          usedWaiver,
		CoverageThreshold: s.policy.CoverageThreshold,
		Evidence: models.JudgmentEvidence{
			Tests:   run.Tests,
			Lint:    run.Lint,
			Reasons: reasons,
		},
		JudgedAt: s.now(),
	}

	if err := s.judgments.Save(ctx, judgment); err != nil {
		return nil, fmt.Errorf("failed to save judgment: %w", err)
	}

	s.logger.Info("run judged", "run_id", runID, "ticket_id", run.TicketID, "verdict", verdict, "waiver_id", usedWaiver)
	return judgment, nil
}

// GetJudgment returns the stored judgment of a run, or nil.
func (s *JudgmentServiceImpl) GetJudgment(ctx context.Context, runID string) (*models.Judgment, error) {
	return s.judgments.Get(ctx, runID)
}

// checkWaiver loads a waiver and decides whether it may convert a FAIL.
// A missing waiver is a refusal, not an error.
func (s *JudgmentServiceImpl) checkWaiver(ctx context.Context, waiverID string) (*corejudgment.WaiverCheck, error) {
	w, err := s.waivers.Get(ctx, waiverID)
	if errs.IsNotFound(err) {
		return &corejudgment.WaiverCheck{WaiverID: waiverID, Reason: "waiver not found"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load waiver: %w", err)
	}

	usable, reason := corewaiver.IsUsable(*w, s.now())
	return &corejudgment.WaiverCheck{WaiverID: waiverID, Usable: usable, Reason: reason}, nil
}
