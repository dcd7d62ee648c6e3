// Package ticket contains the pure business logic for the ticket hierarchy.
// This is part of the Functional Core - no I/O, only pure functions.
package ticket

import "github.com/kawanishi0117/agent-company-sub008/internal/models"

// IsValidStatus reports whether s is a member of the TicketStatus enum.
func IsValidStatus(s models.TicketStatus) bool {
	for _, known := range models.AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s ends a ticket's lifecycle for pause/resume
// and dispatch purposes.
func IsTerminal(s models.TicketStatus) bool {
	return s == models.StatusCompleted || s == models.StatusFailed || s == models.StatusPRCreated
}

// IsValidWorkerType reports whether w is one of the accepted worker types.
func IsValidWorkerType(w models.WorkerType) bool {
	for _, known := range models.AllWorkerTypes {
		if w == known {
			return true
		}
	}
	return false
}

// InitialStatus returns the status every newly created ticket starts in.
func InitialStatus() models.TicketStatus {
	return models.StatusPending
}
