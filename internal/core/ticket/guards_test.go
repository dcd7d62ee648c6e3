package ticket

import (
	"strings"
	"testing"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

func TestCanPauseTicket(t *testing.T) {
	tests := []struct {
		name        string
		ctx         StatusTransitionContext
		wantAllowed bool
		wantInMsg   string
	}{
		{
			name:        "can pause in_progress ticket",
			ctx:         StatusTransitionContext{TicketID: "p-0001", Exists: true, Status: models.StatusInProgress},
			wantAllowed: true,
		},
		{
			name:        "can pause pending ticket",
			ctx:         StatusTransitionContext{TicketID: "p-0001", Exists: true, Status: models.StatusPending},
			wantAllowed: true,
		},
		{
			name:      "cannot pause completed ticket",
			ctx:       StatusTransitionContext{TicketID: "p-0001", Exists: true, Status: models.StatusCompleted},
			wantInMsg: "completed",
		},
		{
			name:      "cannot pause pr_created ticket",
			ctx:       StatusTransitionContext{TicketID: "p-0001", Exists: true, Status: models.StatusPRCreated},
			wantInMsg: "pr_created",
		},
		{
			name:      "cannot pause missing ticket",
			ctx:       StatusTransitionContext{TicketID: "p-0404"},
			wantInMsg: "does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanPauseTicket(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && !strings.Contains(result.Reason, tt.wantInMsg) {
				t.Errorf("Reason = %q, want it to contain %q", result.Reason, tt.wantInMsg)
			}
		})
	}
}

func TestCanResumeTicketRejectsFailed(t *testing.T) {
	result := CanResumeTicket(StatusTransitionContext{TicketID: "p-0001", Exists: true, Status: models.StatusFailed})
	if result.Allowed {
		t.Fatal("expected resume of failed ticket to be rejected")
	}
	if result.Error() == nil || !strings.Contains(result.Error().Error(), "failed") {
		t.Errorf("Error() = %v", result.Error())
	}
}

func TestCanDispatch(t *testing.T) {
	tests := []struct {
		name        string
		ctx         DispatchContext
		wantAllowed bool
	}{
		{"pending ticket", DispatchContext{TicketID: "g", Status: models.StatusPending}, true},
		{"revision required", DispatchContext{TicketID: "g", Status: models.StatusRevisionRequired, Attempts: 1, MaxAttempts: 3}, true},
		{"paused ticket", DispatchContext{TicketID: "g", Status: models.StatusPending, Paused: true}, false},
		{"paused ancestor", DispatchContext{TicketID: "g", Status: models.StatusPending, AncestorPaused: true}, false},
		{"completed ticket", DispatchContext{TicketID: "g", Status: models.StatusCompleted}, false},
		{"attempts exhausted", DispatchContext{TicketID: "g", Status: models.StatusRevisionRequired, Attempts: 3, MaxAttempts: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanDispatch(tt.ctx).Allowed; got != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", got, tt.wantAllowed)
			}
		})
	}
}
