package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
)

// TicketAdapter is a thin adapter that translates CLI operations to TicketService calls.
type TicketAdapter struct {
	service primary.TicketService
	out     io.Writer
}

// NewTicketAdapter creates a new TicketAdapter with the given service.
func NewTicketAdapter(service primary.TicketService, out io.Writer) *TicketAdapter {
	return &TicketAdapter{
		service: service,
		out:     out,
	}
}

// Create creates a parent ticket from an instruction.
func (a *TicketAdapter) Create(ctx context.Context, projectID, instruction string, metadata models.TicketMetadata) (*models.ParentTicket, error) {
	ticket, err := a.service.CreateParentTicket(ctx, primary.CreateParentTicketRequest{
		ProjectID:   projectID,
		Instruction: instruction,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	fmt.Fprintf(a.out, "%s Created ticket %s: %s\n", okMark, ticket.ID, truncate(ticket.Instruction, 60))
	return ticket, nil
}

// List prints the parent tickets of a project.
func (a *TicketAdapter) List(ctx context.Context, projectID string) ([]*models.ParentTicket, error) {
	tickets, err := a.service.ListParentTickets(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	if len(tickets) == 0 {
		fmt.Fprintf(a.out, "No tickets found for %s.\n", projectID)
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Create your first ticket:")
		fmt.Fprintf(a.out, "  agentco ticket create %s \"Build the checkout flow\"\n", projectID)
		return tickets, nil
	}

	tw := newTable(a.out, "ID", "STATUS", "CHILDREN", "PROGRESS", "INSTRUCTION")
	for _, t := range tickets {
		done, total := progress(t)
		status := string(t.Status)
		if t.Paused {
			status += " (paused)"
		}
		tw.AppendRow([]interface{}{t.ID, status, len(t.Children), fmt.Sprintf("%d/%d", done, total), truncate(t.Instruction, 50)})
	}
	tw.Render()
	return tickets, nil
}

// Status prints one ticket at any level.
func (a *TicketAdapter) Status(ctx context.Context, id string) (*primary.TicketView, error) {
	view, err := a.service.FindTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if view == nil {
		return nil, errs.NotFound("ticket", id)
	}

	fmt.Fprintf(a.out, "\nTicket:   %s (%s)\n", view.ID, view.Level)
	fmt.Fprintf(a.out, "Project:  %s\n", view.ProjectID)
	fmt.Fprintf(a.out, "Title:    %s\n", view.Title)
	fmt.Fprintf(a.out, "Status:   %s %s\n", statusIcon(view.Status, false), view.Status)
	if view.Paused {
		fmt.Fprintln(a.out, "Paused:   yes")
	}
	if view.Assignee != "" {
		fmt.Fprintf(a.out, "Assignee: %s\n", view.Assignee)
	}
	fmt.Fprintln(a.out)
	return view, nil
}

// Pause pauses a ticket. A rejected pause is reported, not returned as an error.
func (a *TicketAdapter) Pause(ctx context.Context, id string) (*primary.TicketActionResult, error) {
	result, err := a.service.PauseTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to pause ticket: %w", err)
	}
	a.printAction(result, "paused")
	return result, nil
}

// Resume resumes a paused ticket.
func (a *TicketAdapter) Resume(ctx context.Context, id string) (*primary.TicketActionResult, error) {
	result, err := a.service.ResumeTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resume ticket: %w", err)
	}
	a.printAction(result, "resumed")
	return result, nil
}

func (a *TicketAdapter) printAction(result *primary.TicketActionResult, verb string) {
	if result.Success {
		fmt.Fprintf(a.out, "%s Ticket %s %s\n", okMark, result.TicketID, verb)
		return
	}
	fmt.Fprintf(a.out, "%s %s\n", failMark, result.Error)
}

// Decompose applies a decomposition plan to a parent ticket.
func (a *TicketAdapter) Decompose(ctx context.Context, parentID string, plan models.DecompositionPlan) (*models.ParentTicket, error) {
	parent, err := a.service.DecomposeTicket(ctx, parentID, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to decompose ticket: %w", err)
	}

	grandchildren := 0
	for _, c := range parent.Children {
		grandchildren += len(c.Grandchildren)
	}
	fmt.Fprintf(a.out, "%s Decomposed %s into %d children and %d grandchildren\n",
		okMark, parent.ID, len(plan.Children), grandchildren)
	return parent, nil
}

// Tree prints every ticket of a project as an indented tree.
func (a *TicketAdapter) Tree(ctx context.Context, projectID string) error {
	tickets, err := a.service.ListParentTickets(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list tickets: %w", err)
	}
	if len(tickets) == 0 {
		fmt.Fprintf(a.out, "No tickets found for %s.\n", projectID)
		return nil
	}

	for _, p := range tickets {
		fmt.Fprintf(a.out, "%s %s %s [%s]\n", statusIcon(p.Status, p.Paused), p.ID, truncate(p.Instruction, 60), p.Status)
		for ci, c := range p.Children {
			branch, indent := "├── ", "│   "
			if ci == len(p.Children)-1 {
				branch, indent = "└── ", "    "
			}
			fmt.Fprintf(a.out, "%s%s %s %s (%s) [%s]\n", branch, statusIcon(c.Status, c.Paused), c.ID, c.Title, c.WorkerType, c.Status)
			for gi, g := range c.Grandchildren {
				leaf := "├── "
				if gi == len(c.Grandchildren)-1 {
					leaf = "└── "
				}
				line := fmt.Sprintf("%s%s%s %s %s [%s]", indent, leaf, statusIcon(g.Status, g.Paused), g.ID, g.Title, g.Status)
				if g.Assignee != "" {
					line += " @" + g.Assignee
				}
				fmt.Fprintln(a.out, line)
			}
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

// progress counts finished grandchildren against all grandchildren.
func progress(p *models.ParentTicket) (int, int) {
	var done, total int
	for _, c := range p.Children {
		for _, g := range c.Grandchildren {
			total++
			if g.Status == models.StatusCompleted || g.Status == models.StatusPRCreated {
				done++
			}
		}
	}
	return done, total
}

// ParsePlanLines builds a plan from --child flags of the form
// "workerType:title".
func ParsePlanLines(lines []string) (models.DecompositionPlan, error) {
	var plan models.DecompositionPlan
	for _, line := range lines {
		worker, title, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(title) == "" {
			return plan, errs.Validation("child", "expected workerType:title, got %q", line)
		}
		plan.Children = append(plan.Children, models.ChildPlan{
			Title:      strings.TrimSpace(title),
			WorkerType: models.WorkerType(strings.TrimSpace(worker)),
		})
	}
	return plan, nil
}
