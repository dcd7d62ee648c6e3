package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
)

// DispatchAdapter is a thin adapter that translates CLI operations to DispatchService calls.
type DispatchAdapter struct {
	service primary.DispatchService
	out     io.Writer
}

// NewDispatchAdapter creates a new DispatchAdapter with the given service.
func NewDispatchAdapter(service primary.DispatchService, out io.Writer) *DispatchAdapter {
	return &DispatchAdapter{
		service: service,
		out:     out,
	}
}

// Dispatch runs the dispatchable grandchildren under req.TicketID and
// prints one row per grandchild.
func (a *DispatchAdapter) Dispatch(ctx context.Context, req primary.DispatchRequest) (*primary.DispatchSummary, error) {
	summary, err := a.service.Dispatch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch: %w", err)
	}

	if len(summary.Results) == 0 {
		fmt.Fprintf(a.out, "No grandchild tickets under %s.\n", req.TicketID)
		return summary, nil
	}

	tw := newTable(a.out, "TICKET", "RUN", "ADAPTER", "VERDICT", "STATUS", "NOTE")
	for _, r := range summary.Results {
		note := r.Error
		if r.Skipped {
			note = "skipped: " + r.Reason
		}
		tw.AppendRow([]interface{}{r.TicketID, orDash(shortID(r.RunID)), r.Adapter, verdictLabel(r.Verdict), r.Status, truncate(note, 50)})
	}
	tw.Render()

	if summary.Failed() {
		fmt.Fprintf(a.out, "%s Dispatch finished with failures\n", failMark)
	} else {
		fmt.Fprintf(a.out, "%s Dispatch finished\n", okMark)
	}
	return summary, nil
}

// ListRuns prints runs, newest first.
func (a *DispatchAdapter) ListRuns(ctx context.Context, ticketID string) ([]*models.Run, error) {
	runs, err := a.service.ListRuns(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No runs found.")
		return runs, nil
	}

	tw := newTable(a.out, "RUN", "TICKET", "ADAPTER", "ATTEMPT", "OK", "EXIT", "DURATION", "CREATED")
	for _, r := range runs {
		ok := okMark
		if !r.Result.Success || r.Error != "" {
			ok = failMark
		}
		tw.AppendRow([]interface{}{r.ID, r.TicketID, r.Adapter, r.Attempt, ok, r.Result.ExitCode,
			fmt.Sprintf("%dms", r.Result.DurationMs), r.CreatedAt.Format("2006-01-02 15:04")})
	}
	tw.Render()
	return runs, nil
}

// ShowRun prints the details of one run.
func (a *DispatchAdapter) ShowRun(ctx context.Context, runID string) (*models.Run, error) {
	run, err := a.service.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "\nRun:       %s\n", run.ID)
	fmt.Fprintf(a.out, "Ticket:    %s\n", run.TicketID)
	fmt.Fprintf(a.out, "Adapter:   %s (attempt %d)\n", run.Adapter, run.Attempt)
	fmt.Fprintf(a.out, "Success:   %t (exit %d, %dms)\n", run.Result.Success, run.Result.ExitCode, run.Result.DurationMs)
	if run.Error != "" {
		fmt.Fprintf(a.out, "Error:     %s\n", run.Error)
	}
	if run.Tests.Parsed {
		fmt.Fprintf(a.out, "Tests:     %d passed, %d failed, %d skipped of %d\n",
			run.Tests.Passed, run.Tests.Failed, run.Tests.Skipped, run.Tests.Total)
	} else {
		fmt.Fprintln(a.out, "Tests:     not parsed")
	}
	if run.Tests.Coverage >= 0 {
		fmt.Fprintf(a.out, "Coverage:  %.1f%%\n", run.Tests.Coverage)
	}
	fmt.Fprintf(a.out, "Lint:      %d errors, %d warnings\n", run.Lint.ErrorCount, run.Lint.WarningCount)
	if len(run.Result.FilesChanged) > 0 {
		fmt.Fprintf(a.out, "Changed:   %s\n", strings.Join(run.Result.FilesChanged, ", "))
	}
	if run.ArtifactsDir != "" {
		fmt.Fprintf(a.out, "Artifacts: %s\n", run.ArtifactsDir)
	}
	fmt.Fprintln(a.out)
	return run, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
