// Package secondary defines the secondary ports (driven adapters) for the application.
package secondary

import (
	"context"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// TicketStore defines the secondary port for ticket tree persistence.
type TicketStore interface {
	// Load returns the stored tree of a project. A project with no stored
	// tree yields an empty document, not an error.
	Load(ctx context.Context, projectID string) (*models.ProjectTickets, error)

	// Save replaces the stored tree of a project.
	Save(ctx context.Context, tickets *models.ProjectTickets) error

	// ListProjects returns the ids of every stored project.
	ListProjects(ctx context.Context) ([]string, error)
}
