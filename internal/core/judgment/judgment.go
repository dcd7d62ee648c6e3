// Package judgment contains the pure verdict rules of the quality gate.
// This is part of the Functional Core - no I/O, only pure functions.
package judgment

import (
	"fmt"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// Policy is the configurable part of the gate.
type Policy struct {
	// CoverageThreshold is the minimum statement coverage in percent.
	// Zero or less disables the coverage gate.
	CoverageThreshold float64
}

// Evaluation is the base verdict before any waiver is considered.
type Evaluation struct {
	Passed  bool
	Reasons []string
}

// Evaluate applies the base rule: tests parsed with at least one test and
// no failures, lint passed, and coverage at or above the threshold.
// Unknown coverage never meets a positive threshold.
func Evaluate(tests models.QAParseResult, lint models.LintParseResult, policy Policy) Evaluation {
	var reasons []string

	switch {
	case !tests.Parsed:
		reasons = append(reasons, "test results could not be parsed")
	case tests.Failed > 0:
		reasons = append(reasons, fmt.Sprintf("%d of %d tests failed", tests.Failed, tests.Total))
	case tests.Total == 0:
		reasons = append(reasons, "no tests were run")
	}

	if !lint.Passed {
		reasons = append(reasons, fmt.Sprintf("lint reported %d errors", lint.ErrorCount))
	}

	if policy.CoverageThreshold > 0 {
		switch {
		case tests.Coverage < 0:
			reasons = append(reasons, fmt.Sprintf("coverage unknown, threshold is %.1f%%", policy.CoverageThreshold))
		case tests.Coverage < policy.CoverageThreshold:
			reasons = append(reasons, fmt.Sprintf("coverage %.1f%% is below threshold %.1f%%", tests.Coverage, policy.CoverageThreshold))
		}
	}

	return Evaluation{Passed: len(reasons) == 0, Reasons: reasons}
}

// WaiverCheck describes the waiver offered for a failing run.
type WaiverCheck struct {
	WaiverID string
	Usable   bool
	Reason   string
}

// Decide turns a base evaluation and an optional waiver into a verdict.
// Only a FAIL can be converted, and only by a usable waiver.
func Decide(eval Evaluation, w *WaiverCheck) (models.Verdict, []string) {
	reasons := append([]string(nil), eval.Reasons...)
	if eval.Passed {
		return models.VerdictPass, reasons
	}
	if w == nil || w.WaiverID == "" {
		return models.VerdictFail, reasons
	}
	if !w.Usable {
		return models.VerdictFail, append(reasons, fmt.Sprintf("waiver %s not applied: %s", w.WaiverID, w.Reason))
	}
	return models.VerdictWaiver, append(reasons, fmt.Sprintf("waiver %s applied", w.WaiverID))
}

// ExitCode maps a verdict onto a process exit code.
func ExitCode(v models.Verdict) int {
	if v == models.VerdictFail {
		return 1
	}
	return 0
}
