// Package primary defines the primary ports (driving adapters) for the application.
package primary

import (
	"context"

	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// TicketService defines the primary port for the ticket hierarchy engine.
type TicketService interface {
	// CreateParentTicket creates a new root ticket for a project.
	CreateParentTicket(ctx context.Context, req CreateParentTicketRequest) (*models.ParentTicket, error)

	// CreateChildTicket appends a child to a parent ticket.
	CreateChildTicket(ctx context.Context, req CreateChildTicketRequest) (*models.ChildTicket, error)

	// CreateGrandchildTicket appends a grandchild to a child ticket.
	CreateGrandchildTicket(ctx context.Context, req CreateGrandchildTicketRequest) (*models.GrandchildTicket, error)

	// GetParentTicket returns a copy of the parent ticket, or nil if absent.
	GetParentTicket(ctx context.Context, id string) (*models.ParentTicket, error)

	// GetChildTicket returns a copy of the child ticket, or nil if absent.
	GetChildTicket(ctx context.Context, id string) (*models.ChildTicket, error)

	// GetGrandchildTicket returns a copy of the grandchild ticket, or nil if absent.
	GetGrandchildTicket(ctx context.Context, id string) (*models.GrandchildTicket, error)

	// FindTicket resolves an id at any level of the hierarchy.
	FindTicket(ctx context.Context, id string) (*TicketView, error)

	// ListParentTickets lists the parent tickets of a project.
	ListParentTickets(ctx context.Context, projectID string) ([]*models.ParentTicket, error)

	// UpdateTicketStatus sets a ticket's status and re-derives its ancestors.
	UpdateTicketStatus(ctx context.Context, id string, status models.TicketStatus) error

	// ClaimTicket re-checks the dispatch guard against the stored ticket and,
	// when allowed, marks it in progress for the assignee in the same write.
	// A refused claim is reported in the result, not as an error.
	ClaimTicket(ctx context.Context, req ClaimTicketRequest) (*TicketActionResult, error)

	// AttachArtifacts records artifact paths on a grandchild.
	AttachArtifacts(ctx context.Context, id string, paths []string) error

	// PauseTicket stops further dispatch of a ticket and its descendants.
	PauseTicket(ctx context.Context, id string) (*TicketActionResult, error)

	// ResumeTicket lifts a pause.
	ResumeTicket(ctx context.Context, id string) (*TicketActionResult, error)

	// DecomposeTicket applies a decomposition plan to a parent ticket.
	DecomposeTicket(ctx context.Context, parentID string, plan models.DecompositionPlan) (*models.ParentTicket, error)

	// ListDispatchTargets returns the grandchildren at or below id.
	ListDispatchTargets(ctx context.Context, id string) ([]*DispatchTarget, error)

	// SaveTickets writes the in-memory state of a project to the store.
	SaveTickets(ctx context.Context, projectID string) error

	// LoadTickets replaces the in-memory state of a project from the store.
	LoadTickets(ctx context.Context, projectID string) error
}

// CreateParentTicketRequest contains parameters for creating a parent ticket.
type CreateParentTicketRequest struct {
	ProjectID   string
	Instruction string
	Metadata    models.TicketMetadata
}

// CreateChildTicketRequest contains parameters for creating a child ticket.
type CreateChildTicketRequest struct {
	ParentID    string
	Title       string
	Description string
	WorkerType  models.WorkerType
}

// CreateGrandchildTicketRequest contains parameters for creating a grandchild ticket.
type CreateGrandchildTicketRequest struct {
	ChildID            string
	Title              string
	Description        string
	AcceptanceCriteria []string
	GitBranch          string // Optional
}

// ClaimTicketRequest contains parameters for claiming a grandchild for a run.
type ClaimTicketRequest struct {
	TicketID    string
	Assignee    string
	Attempts    int // Runs already recorded for the ticket
	MaxAttempts int // Zero means unbounded
}

// TicketActionResult is the outcome of a pause or resume request.
// Rejections are reported here rather than as errors.
type TicketActionResult struct {
	Success  bool
	TicketID string
	Status   models.TicketStatus
	Error    string
}

// TicketLevel names a tier of the hierarchy.
type TicketLevel string

// Ticket levels
const (
	LevelParent     TicketLevel = "parent"
	LevelChild      TicketLevel = "child"
	LevelGrandchild TicketLevel = "grandchild"
)

// TicketView is a level-independent summary of one ticket.
type TicketView struct {
	ID        string
	ProjectID string
	Level     TicketLevel
	Title     string
	Status    models.TicketStatus
	Paused    bool
	Assignee  string
}

// DispatchTarget is a grandchild together with the pause state of its
// ancestors.
type DispatchTarget struct {
	ProjectID      string
	Ticket         models.GrandchildTicket
	AncestorPaused bool
}
