package models

import "time"

// CodingTaskResult is the normalized outcome of one coding agent invocation.
type CodingTaskResult struct {
	Success      bool     `json:"success"`
	Output       string   `json:"output"`
	Stderr       string   `json:"stderr"`
	ExitCode     int      `json:"exitCode"`
	DurationMs   int64    `json:"durationMs"`
	FilesChanged []string `json:"filesChanged"`
}

// QAParseResult is the structured form of test-runner output.
// Coverage is -1 when no coverage report was recognised.
type QAParseResult struct {
	Parsed   bool    `json:"parsed"`
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Skipped  int     `json:"skipped"`
	Coverage float64 `json:"coverage"`
	Raw      string  `json:"raw"`
}

// LintParseResult is the structured form of linter output.
type LintParseResult struct {
	Parsed       bool   `json:"parsed"`
	Passed       bool   `json:"passed"`
	ErrorCount   int    `json:"errorCount"`
	WarningCount int    `json:"warningCount"`
	Raw          string `json:"raw"`
}

// Run is one dispatch of a grandchild ticket to a coding agent, together
// with the QA evidence collected afterwards.
type Run struct {
	ID           string           `json:"runId"`
	TicketID     string           `json:"ticketId"`
	ProjectID    string           `json:"projectId"`
	Adapter      string           `json:"adapter"`
	Attempt      int              `json:"attempt"`
	Result       CodingTaskResult `json:"result"`
	Tests        QAParseResult    `json:"tests"`
	Lint         LintParseResult  `json:"lint"`
	ArtifactsDir string           `json:"artifactsDir"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Verdict is the outcome of a judgment.
type Verdict string

// Verdict constants
const (
	VerdictPass   Verdict = "PASS"
	VerdictFail   Verdict = "FAIL"
	VerdictWaiver Verdict = "WAIVER"
)

// JudgmentEvidence is the QA data a verdict was based on.
type JudgmentEvidence struct {
	Tests   QAParseResult   `json:"tests"`
	Lint    LintParseResult `json:"lint"`
	Reasons []string        `json:"reasons"`
}

// Judgment is the persisted verdict for one run.
type Judgment struct {
	Status            Verdict          `json:"status"`
	RunID             string           `json:"runId"`
	WaiverID          string           `json:"waiverId,omitempty"`
	CoverageThreshold float64          `json:"coverageThreshold"`
	Evidence          JudgmentEvidence `json:"evidence"`
	JudgedAt          time.Time        `json:"judgedAt"`
}

// WaiverStatus is the lifecycle state of a waiver.
type WaiverStatus string

// Waiver status constants
const (
	WaiverProposed WaiverStatus = "proposed"
	WaiverApproved WaiverStatus = "approved"
	WaiverRejected WaiverStatus = "rejected"
)

// FollowUpTask is one checkbox line of a waiver's follow-up section.
type FollowUpTask struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Waiver is a structured exception document allowing a failing run through.
type Waiver struct {
	ID            string         `json:"id,omitempty"`
	Applicant     string         `json:"applicant"`
	Target        string         `json:"target"`
	Reason        string         `json:"reason"`
	Urgency       string         `json:"urgency"`
	Mitigation    string         `json:"mitigation"`
	Deadline      string         `json:"deadline"`
	FollowUpTasks []FollowUpTask `json:"followUpTasks"`
	Approver      string         `json:"approver"`
	Status        WaiverStatus   `json:"status"`
}
