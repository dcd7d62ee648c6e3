package app

import (
	"context"
	"strings"
	"testing"

	corejudgment "github.com/kawanishi0117/agent-company-sub008/internal/core/judgment"
	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/logging"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

func newTestJudgmentService(runs *mockRunRepository, judgments *mockJudgmentStore, waivers map[string]models.Waiver) *JudgmentServiceImpl {
	s := NewJudgmentService(runs, judgments, &mockWaiverSource{waivers: waivers}, corejudgment.Policy{CoverageThreshold: 80}, logging.Discard())
	s.now = fixedClock()
	return s
}

func seedRun(t *testing.T, runs *mockRunRepository, id string, tests models.QAParseResult, lint models.LintParseResult) {
	t.Helper()
	run := &models.Run{ID: id, TicketID: "shop-0001-01-01", ProjectID: "shop", Adapter: "claude", Attempt: 1, Tests: tests, Lint: lint}
	if err := runs.Create(context.Background(), run); err != nil {
		t.Fatalf("seed run: %v", err)
	}
}

var (
	greenTests = models.QAParseResult{Parsed: true, Total: 3, Passed: 3, Coverage: 92.5}
	redTests   = models.QAParseResult{Parsed: true, Total: 3, Passed: 2, Failed: 1, Coverage: 92.5}
	cleanLint  = models.LintParseResult{Parsed: true, Passed: true}
)

func approvedWaiver(deadline string) models.Waiver {
	return models.Waiver{
		Applicant:     "qa-lead",
		Target:        "shop-0001-01-01",
		Reason:        "flaky upstream fixture",
		Urgency:       "high",
		Mitigation:    "retry in CI",
		Deadline:      deadline,
		FollowUpTasks: []models.FollowUpTask{{Text: "fix fixture"}},
		Approver:      "cto",
		Status:        models.WaiverApproved,
	}
}

func TestExecuteJudgment_Verdicts(t *testing.T) {
	tests := []struct {
		name       string
		tests      models.QAParseResult
		lint       models.LintParseResult
		waiverID   string
		want       models.Verdict
		wantReason string
		wantWaiver string
	}{
		{
			name:  "all green passes",
			tests: greenTests,
			lint:  cleanLint,
			want:  models.VerdictPass,
		},
		{
			name:       "failing test fails",
			tests:      redTests,
			lint:       cleanLint,
			want:       models.VerdictFail,
			wantReason: "1 of 3 tests failed",
		},
		{
			name:       "lint errors fail",
			tests:      greenTests,
			lint:       models.LintParseResult{Parsed: true, ErrorCount: 2},
			want:       models.VerdictFail,
			wantReason: "lint reported 2 errors",
		},
		{
			name:       "approved waiver converts a failure",
			tests:      redTests,
			lint:       cleanLint,
			waiverID:   "flaky",
			want:       models.VerdictWaiver,
			wantWaiver: "flaky",
		},
		{
			name:       "expired waiver does not help",
			tests:      redTests,
			lint:       cleanLint,
			waiverID:   "expired",
			want:       models.VerdictFail,
			wantReason: "expired",
			wantWaiver: "expired",
		},
		{
			name:       "missing waiver does not help",
			tests:      redTests,
			lint:       cleanLint,
			waiverID:   "ghost",
			want:       models.VerdictFail,
			wantReason: "waiver not found",
			wantWaiver: "ghost",
		},
		{
			name:     "waiver is ignored on a pass",
			tests:    greenTests,
			lint:     cleanLint,
			waiverID: "flaky",
			want:     models.VerdictPass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := newMockRunRepository()
			seedRun(t, runs, "run-1", tt.tests, tt.lint)
			s := newTestJudgmentService(runs, newMockJudgmentStore(), map[string]models.Waiver{
				"flaky":   approvedWaiver("2026-12-31"),
				"expired": approvedWaiver("2026-01-01"),
			})

			j, err := s.ExecuteJudgment(context.Background(), "run-1", tt.waiverID)
			if err != nil {
				t.Fatalf("ExecuteJudgment failed: %v", err)
			}
			if j.Status != tt.want {
				t.Errorf("Status = %s, want %s (reasons %v)", j.Status, tt.want, j.Evidence.Reasons)
			}
			if j.WaiverID != tt.wantWaiver {
				t.Errorf("WaiverID = %q, want %q", j.WaiverID, tt.wantWaiver)
			}
			if j.RunID != "run-1" || j.CoverageThreshold != 80 {
				t.Errorf("judgment = %+v", j)
			}
			if tt.wantReason != "" && !strings.Contains(strings.Join(j.Evidence.Reasons, "; "), tt.wantReason) {
				t.Errorf("reasons %v do not mention %q", j.Evidence.Reasons, tt.wantReason)
			}
		})
	}
}

func TestExecuteJudgment_UnknownRun(t *testing.T) {
	s := newTestJudgmentService(newMockRunRepository(), newMockJudgmentStore(), nil)

	if _, err := s.ExecuteJudgment(context.Background(), "nope", ""); !errs.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
	if _, err := s.ExecuteJudgment(context.Background(), " ", ""); !errs.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestExecuteJudgment_Idempotent(t *testing.T) {
	runs := newMockRunRepository()
	judgments := newMockJudgmentStore()
	seedRun(t, runs, "run-1", redTests, cleanLint)
	s := newTestJudgmentService(runs, judgments, map[string]models.Waiver{"flaky": approvedWaiver("2026-12-31")})
	ctx := context.Background()

	first, err := s.ExecuteJudgment(ctx, "run-1", "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.ExecuteJudgment(ctx, "run-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if judgments.saves != 1 {
		t.Errorf("saves = %d, want 1 for a repeated judgment", judgments.saves)
	}
	if first.Status != second.Status || !first.JudgedAt.Equal(second.JudgedAt) {
		t.Errorf("repeated judgment differs: %+v vs %+v", first, second)
	}

	waived, err := s.ExecuteJudgment(ctx, "run-1", "flaky")
	if err != nil {
		t.Fatal(err)
	}
	if waived.Status != models.VerdictWaiver || judgments.saves != 2 {
		t.Errorf("re-judge with waiver: status=%s saves=%d", waived.Status, judgments.saves)
	}

	stored, err := s.GetJudgment(ctx, "run-1")
	if err != nil || stored == nil {
		t.Fatalf("GetJudgment = %v, %v", stored, err)
	}
	if stored.WaiverID != "flaky" || stored.Status != models.VerdictWaiver {
		t.Errorf("stored = %+v", stored)
	}
}

func TestExecuteJudgment_PassIgnoresLaterWaiver(t *testing.T) {
	runs := newMockRunRepository()
	judgments := newMockJudgmentStore()
	seedRun(t, runs, "run-1", greenTests, cleanLint)
	s := newTestJudgmentService(runs, judgments, map[string]models.Waiver{"flaky": approvedWaiver("2026-12-31")})
	ctx := context.Background()

	if _, err := s.ExecuteJudgment(ctx, "run-1", ""); err != nil {
		t.Fatal(err)
	}
	j, err := s.ExecuteJudgment(ctx, "run-1", "flaky")
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != models.VerdictPass || j.WaiverID != "" || judgments.saves != 1 {
		t.Errorf("judgment = %+v, saves = %d", j, judgments.saves)
	}
}

func TestGetJudgment_Absent(t *testing.T) {
	s := newTestJudgmentService(newMockRunRepository(), newMockJudgmentStore(), nil)
	j, err := s.GetJudgment(context.Background(), "run-9")
	if j != nil || err != nil {
		t.Errorf("GetJudgment = %v, %v, want nil, nil", j, err)
	}
}
