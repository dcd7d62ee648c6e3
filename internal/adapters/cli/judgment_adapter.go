package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
)

// JudgmentAdapter is a thin adapter that translates CLI operations to JudgmentService calls.
type JudgmentAdapter struct {
	service primary.JudgmentService
	out     io.Writer
}

// NewJudgmentAdapter creates a new JudgmentAdapter with the given service.
func NewJudgmentAdapter(service primary.JudgmentService, out io.Writer) *JudgmentAdapter {
	return &JudgmentAdapter{
		service: service,
		out:     out,
	}
}

// Judge judges a run and prints the verdict with its reasons.
func (a *JudgmentAdapter) Judge(ctx context.Context, runID, waiverID string) (*models.Judgment, error) {
	judgment, err := a.service.ExecuteJudgment(ctx, runID, waiverID)
	if err != nil {
		return nil, err
	}

	mark := okMark
	if judgment.Status == models.VerdictFail {
		mark = failMark
	}
	fmt.Fprintf(a.out, "%s %s  run %s\n", mark, verdictLabel(judgment.Status), judgment.RunID)

	tests := judgment.Evidence.Tests
	if tests.Parsed {
		fmt.Fprintf(a.out, "  tests:    %d/%d passed\n", tests.Passed, tests.Total)
	}
	if tests.Coverage >= 0 {
		fmt.Fprintf(a.out, "  coverage: %.1f%% (threshold %.1f%%)\n", tests.Coverage, judgment.CoverageThreshold)
	}
	fmt.Fprintf(a.out, "  lint:     %d errors, %d warnings\n", judgment.Evidence.Lint.ErrorCount, judgment.Evidence.Lint.WarningCount)
	for _, r := range judgment.Evidence.Reasons {
		fmt.Fprintf(a.out, "  - %s\n", r)
	}
	return judgment, nil
}
