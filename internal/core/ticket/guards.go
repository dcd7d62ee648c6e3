package ticket

import (
	"fmt"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// StatusTransitionContext provides context for pause/resume guards.
type StatusTransitionContext struct {
	TicketID string
	Exists   bool
	Status   models.TicketStatus
}

// CanPauseTicket evaluates whether a ticket can be paused.
// Rules:
// - Ticket must exist
// - Status must not be terminal (completed, failed, pr_created)
func CanPauseTicket(ctx StatusTransitionContext) GuardResult {
	return canToggle("pause", ctx)
}

// CanResumeTicket evaluates whether a ticket can be resumed.
// Same rules as pausing.
func CanResumeTicket(ctx StatusTransitionContext) GuardResult {
	return canToggle("resume", ctx)
}

func canToggle(action string, ctx StatusTransitionContext) GuardResult {
	if !ctx.Exists {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("ticket %s does not exist", ctx.TicketID),
		}
	}
	if IsTerminal(ctx.Status) {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("cannot %s ticket %s: status is %s", action, ctx.TicketID, ctx.Status),
		}
	}
	return GuardResult{Allowed: true}
}

// DispatchContext provides context for the dispatch guard.
type DispatchContext struct {
	TicketID       string
	Status         models.TicketStatus
	Paused         bool
	AncestorPaused bool
	Attempts       int
	MaxAttempts    int
}

// CanDispatch evaluates whether a grandchild may be handed to an agent.
// Rules:
// - Neither the ticket nor an ancestor is paused
// - Status is not terminal
// - The attempt budget is not exhausted
func CanDispatch(ctx DispatchContext) GuardResult {
	if ctx.Paused || ctx.AncestorPaused {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("ticket %s is paused", ctx.TicketID)}
	}
	if IsTerminal(ctx.Status) {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("ticket %s is already %s", ctx.TicketID, ctx.Status)}
	}
	if ctx.MaxAttempts > 0 && ctx.Attempts >= ctx.MaxAttempts {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("ticket %s has used %d of %d attempts", ctx.TicketID, ctx.Attempts, ctx.MaxAttempts),
		}
	}
	return GuardResult{Allowed: true}
}
