package judgment

import (
	"strings"
	"testing"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

func passingTests(coverage float64) models.QAParseResult {
	return models.QAParseResult{Parsed: true, Total: 10, Passed: 10, Coverage: coverage}
}

func cleanLint() models.LintParseResult {
	return models.LintParseResult{Parsed: true, Passed: true}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		tests      models.QAParseResult
		lint       models.LintParseResult
		threshold  float64
		wantPassed bool
		wantReason string
	}{
		{name: "all green", tests: passingTests(90), lint: cleanLint(), threshold: 80, wantPassed: true},
		{name: "coverage exactly at threshold", tests: passingTests(80), lint: cleanLint(), threshold: 80, wantPassed: true},
		{name: "coverage below threshold", tests: passingTests(79.9), lint: cleanLint(), threshold: 80, wantReason: "below threshold"},
		{name: "unknown coverage fails closed", tests: passingTests(-1), lint: cleanLint(), threshold: 80, wantReason: "coverage unknown"},
		{name: "unknown coverage with gate disabled", tests: passingTests(-1), lint: cleanLint(), threshold: 0, wantPassed: true},
		{
			name:       "failing tests",
			tests:      models.QAParseResult{Parsed: true, Total: 10, Passed: 8, Failed: 2, Coverage: 95},
			lint:       cleanLint(),
			threshold:  80,
			wantReason: "2 of 10 tests failed",
		},
		{name: "unparsed tests", tests: models.QAParseResult{Coverage: -1}, lint: cleanLint(), wantReason: "could not be parsed"},
		{name: "no tests", tests: models.QAParseResult{Parsed: true, Coverage: 90}, lint: cleanLint(), wantReason: "no tests"},
		{
			name:       "lint errors",
			tests:      passingTests(90),
			lint:       models.LintParseResult{Parsed: true, Passed: false, ErrorCount: 3},
			threshold:  80,
			wantReason: "lint reported 3 errors",
		},
		{
			name:       "unparsed lint fails open",
			tests:      passingTests(90),
			lint:       models.LintParseResult{Parsed: false, Passed: true},
			threshold:  80,
			wantPassed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.tests, tt.lint, Policy{CoverageThreshold: tt.threshold})
			if got.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v (reasons %v)", got.Passed, tt.wantPassed, got.Reasons)
			}
			if tt.wantReason != "" && !strings.Contains(strings.Join(got.Reasons, "; "), tt.wantReason) {
				t.Errorf("Reasons = %v, want one containing %q", got.Reasons, tt.wantReason)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	pass := Evaluation{Passed: true}
	fail := Evaluation{Passed: false, Reasons: []string{"coverage unknown"}}

	tests := []struct {
		name   string
		eval   Evaluation
		waiver *WaiverCheck
		want   models.Verdict
	}{
		{"pass without waiver", pass, nil, models.VerdictPass},
		{"pass ignores waiver", pass, &WaiverCheck{WaiverID: "w1", Usable: true}, models.VerdictPass},
		{"fail without waiver", fail, nil, models.VerdictFail},
		{"fail with usable waiver", fail, &WaiverCheck{WaiverID: "w1", Usable: true}, models.VerdictWaiver},
		{"fail with expired waiver", fail, &WaiverCheck{WaiverID: "w1", Reason: "waiver expired"}, models.VerdictFail},
		{"fail with empty waiver id", fail, &WaiverCheck{Usable: true}, models.VerdictFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Decide(tt.eval, tt.waiver)
			if got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(models.VerdictFail) != 1 {
		t.Error("FAIL must exit 1")
	}
	if ExitCode(models.VerdictPass) != 0 || ExitCode(models.VerdictWaiver) != 0 {
		t.Error("PASS and WAIVER must exit 0")
	}
}
