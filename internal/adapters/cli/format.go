// Package cli holds thin adapters that translate CLI operations into
// service calls and render the results for a terminal.
package cli

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	warnMark = color.New(color.FgYellow).Sprint("!")
)

// statusIcon returns a coloured glyph for a ticket status.
func statusIcon(s models.TicketStatus, paused bool) string {
	if paused {
		return color.New(color.FgHiBlack).Sprint("⏸")
	}
	switch s {
	case models.StatusCompleted:
		return color.New(color.FgGreen).Sprint("✓")
	case models.StatusPRCreated:
		return color.New(color.FgCyan).Sprint("✓")
	case models.StatusFailed:
		return color.New(color.FgRed).Sprint("✗")
	case models.StatusInProgress:
		return color.New(color.FgYellow).Sprint("●")
	case models.StatusRevisionRequired:
		return color.New(color.FgHiMagenta).Sprint("↻")
	case models.StatusDecomposing:
		return color.New(color.FgHiBlue).Sprint("◐")
	case models.StatusReviewRequested:
		return color.New(color.FgHiCyan).Sprint("?")
	}
	return "○"
}

// verdictLabel colours a verdict.
func verdictLabel(v models.Verdict) string {
	switch v {
	case models.VerdictPass:
		return color.New(color.FgGreen, color.Bold).Sprint(string(v))
	case models.VerdictWaiver:
		return color.New(color.FgYellow, color.Bold).Sprint(string(v))
	case models.VerdictFail:
		return color.New(color.FgRed, color.Bold).Sprint(string(v))
	}
	return "-"
}

func newTable(out io.Writer, header ...interface{}) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row(header))
	return tw
}

// truncate shortens s to n runes for table cells.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
