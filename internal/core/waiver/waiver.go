// Package waiver parses and validates waiver documents: markdown files with
// fixed "## <section>" headers that let a failing run through the judgment
// gate for a bounded time.
package waiver

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// Section keys of a waiver document.
const (
	SectionApplicant  = "applicant"
	SectionTarget     = "target"
	SectionReason     = "reason"
	SectionUrgency    = "urgency"
	SectionMitigation = "mitigation"
	SectionDeadline   = "deadline"
	SectionFollowUp   = "follow-up tasks"
	SectionApprover   = "approver"
	SectionStatus     = "status"
)

// Template placeholders. A document still containing them was never filled in.
const (
	ReasonPlaceholder   = "[why the quality gate cannot be met]"
	FollowUpPlaceholder = "[follow-up task]"
)

const dateLayout = "2006-01-02"

var (
	headerPattern   = regexp.MustCompile(`(?m)^##[ \t]+(.+?)[ \t]*$`)
	checkboxPattern = regexp.MustCompile(`^\s*[-*]\s*\[([ xX])\]\s*(.*)$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	bracketedOnly   = regexp.MustCompile(`^\[.*\]$`)
)

// sectionAliases maps accepted header spellings to section keys.
var sectionAliases = map[string]string{
	"applicant":       SectionApplicant,
	"申請者":             SectionApplicant,
	"target":          SectionTarget,
	"対象":              SectionTarget,
	"reason":          SectionReason,
	"理由":              SectionReason,
	"urgency":         SectionUrgency,
	"緊急度":             SectionUrgency,
	"mitigation":      SectionMitigation,
	"代替策":             SectionMitigation,
	"deadline":        SectionDeadline,
	"期限":              SectionDeadline,
	"follow-up tasks": SectionFollowUp,
	"follow-up":       SectionFollowUp,
	"フォローアップタスク":      SectionFollowUp,
	"approver":        SectionApprover,
	"承認者":             SectionApprover,
	"status":          SectionStatus,
	"ステータス":           SectionStatus,
}

// Content is a parsed waiver document.
type Content struct {
	Waiver   models.Waiver
	Sections map[string]string
}

// ParseWaiverContent splits a document on "## <section>" headers and maps
// the recognised sections onto a Waiver. Unrecognised sections are kept in
// Sections under their lower-cased header.
func ParseWaiverContent(doc string) Content {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	sections := make(map[string]string)

	locs := headerPattern.FindAllStringSubmatchIndex(doc, -1)
	for i, loc := range locs {
		name := strings.ToLower(strings.TrimSpace(doc[loc[2]:loc[3]]))
		end := len(doc)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(doc[loc[1]:end])
		if key, ok := sectionAliases[name]; ok {
			name = key
		}
		sections[name] = body
	}

	w := models.Waiver{
		Applicant:     sections[SectionApplicant],
		Target:        sections[SectionTarget],
		Reason:        sections[SectionReason],
		Urgency:       sections[SectionUrgency],
		Mitigation:    sections[SectionMitigation],
		Deadline:      firstLine(sections[SectionDeadline]),
		FollowUpTasks: parseFollowUps(sections[SectionFollowUp]),
		Approver:      sections[SectionApprover],
		Status:        parseStatus(sections[SectionStatus]),
	}
	return Content{Waiver: w, Sections: sections}
}

func parseFollowUps(body string) []models.FollowUpTask {
	var tasks []models.FollowUpTask
	for _, line := range strings.Split(body, "\n") {
		m := checkboxPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tasks = append(tasks, models.FollowUpTask{
			Text: strings.TrimSpace(m[2]),
			Done: m[1] != " ",
		})
	}
	return tasks
}

func parseStatus(body string) models.WaiverStatus {
	s := strings.ToLower(firstLine(body))
	switch {
	case strings.Contains(s, "approved"), strings.Contains(s, "承認"):
		return models.WaiverApproved
	case strings.Contains(s, "rejected"), strings.Contains(s, "却下"):
		return models.WaiverRejected
	default:
		return models.WaiverProposed
	}
}

func firstLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// ValidationResult is the outcome of validating a waiver document.
// Valid depends only on Errors; Warnings never affect it.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Fields   models.Waiver
}

// ValidateWaiverContent checks required fields, the deadline format and
// leftover template text. A past deadline is only a warning.
func ValidateWaiverContent(doc string, now time.Time) ValidationResult {
	w := ParseWaiverContent(doc).Waiver
	var errs, warnings []string

	if strings.TrimSpace(w.Applicant) == "" {
		errs = append(errs, "applicant is required")
	}
	if strings.TrimSpace(w.Target) == "" {
		errs = append(errs, "target is required")
	}

	switch {
	case strings.TrimSpace(w.Reason) == "":
		errs = append(errs, "reason is required")
	case strings.Contains(w.Reason, ReasonPlaceholder):
		errs = append(errs, "reason is still templated")
	}

	switch {
	case w.Deadline == "":
		errs = append(errs, "deadline is required")
	case !isWellFormedDate(w.Deadline):
		errs = append(errs, fmt.Sprintf("deadline %q must be in YYYY-MM-DD format", w.Deadline))
	case IsOverdueAt(w.Deadline, now):
		warnings = append(warnings, fmt.Sprintf("deadline %s is in the past", w.Deadline))
	}

	switch {
	case len(w.FollowUpTasks) == 0:
		errs = append(errs, "follow-up tasks are required")
	case !hasRealTask(w.FollowUpTasks):
		errs = append(errs, "follow-up tasks must contain at least one non-template entry")
	}

	return ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
		Fields:   w,
	}
}

func hasRealTask(tasks []models.FollowUpTask) bool {
	for _, t := range tasks {
		text := strings.TrimSpace(t.Text)
		if text == "" || text == FollowUpPlaceholder || bracketedOnly.MatchString(text) {
			continue
		}
		return true
	}
	return false
}

func isWellFormedDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// IsOverdue reports whether deadline lies strictly before today.
// Malformed dates are never overdue.
func IsOverdue(deadline string) bool {
	return IsOverdueAt(deadline, time.Now())
}

// IsOverdueAt is IsOverdue against an explicit clock. Both sides are
// compared as calendar dates in now's location.
func IsOverdueAt(deadline string, now time.Time) bool {
	if !datePattern.MatchString(deadline) {
		return false
	}
	d, err := time.ParseInLocation(dateLayout, deadline, now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return d.Before(today)
}

// IsUsable reports whether a waiver may convert a FAIL verdict: it must be
// approved and not past its deadline. The reason explains a refusal.
func IsUsable(w models.Waiver, now time.Time) (bool, string) {
	switch {
	case w.Status == models.WaiverRejected:
		return false, "waiver was rejected"
	case w.Status != models.WaiverApproved:
		return false, fmt.Sprintf("waiver is %s, not approved", w.Status)
	case !isWellFormedDate(w.Deadline):
		return false, fmt.Sprintf("waiver deadline %q is not a valid date", w.Deadline)
	case IsOverdueAt(w.Deadline, now):
		return false, fmt.Sprintf("waiver expired on %s", w.Deadline)
	}
	return true, ""
}

// Template returns a blank waiver document for the given target.
func Template(target string) string {
	var sb strings.Builder
	sb.WriteString("# Waiver\n\n")
	sb.WriteString("## Applicant\n\n\n")
	sb.WriteString("## Target\n\n" + target + "\n\n")
	sb.WriteString("## Reason\n\n" + ReasonPlaceholder + "\n\n")
	sb.WriteString("## Urgency\n\nmedium\n\n")
	sb.WriteString("## Mitigation\n\n\n")
	sb.WriteString("## Deadline\n\nYYYY-MM-DD\n\n")
	sb.WriteString("## Follow-up Tasks\n\n- [ ] " + FollowUpPlaceholder + "\n\n")
	sb.WriteString("## Approver\n\n\n")
	sb.WriteString("## Status\n\nproposed\n")
	return sb.String()
}
