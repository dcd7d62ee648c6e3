// Package models contains the domain types shared by the ticket hierarchy,
// the agent adapters and the judgment gate. These types are also the
// on-disk JSON shape of the ticket and judgment files.
package models

import "time"

// TicketStatus is shared by all three levels of the ticket hierarchy.
type TicketStatus string

// Ticket status constants
const (
	StatusPending          TicketStatus = "pending"
	StatusDecomposing      TicketStatus = "decomposing"
	StatusInProgress       TicketStatus = "in_progress"
	StatusReviewRequested  TicketStatus = "review_requested"
	StatusRevisionRequired TicketStatus = "revision_required"
	StatusCompleted        TicketStatus = "completed"
	StatusFailed           TicketStatus = "failed"
	StatusPRCreated        TicketStatus = "pr_created"
)

// AllStatuses lists every TicketStatus in lifecycle order.
var AllStatuses = []TicketStatus{
	StatusPending,
	StatusDecomposing,
	StatusInProgress,
	StatusReviewRequested,
	StatusRevisionRequired,
	StatusCompleted,
	StatusFailed,
	StatusPRCreated,
}

// WorkerType tags a child ticket with the role that performs it.
type WorkerType string

// Worker type constants
const (
	WorkerResearch  WorkerType = "research"
	WorkerDesign    WorkerType = "design"
	WorkerDesigner  WorkerType = "designer"
	WorkerDeveloper WorkerType = "developer"
	WorkerTest      WorkerType = "test"
	WorkerReviewer  WorkerType = "reviewer"
)

// AllWorkerTypes lists the accepted worker types.
var AllWorkerTypes = []WorkerType{
	WorkerResearch,
	WorkerDesign,
	WorkerDesigner,
	WorkerDeveloper,
	WorkerTest,
	WorkerReviewer,
}

// TicketMetadata carries scheduling hints for a parent ticket.
type TicketMetadata struct {
	Priority string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Deadline string   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ParentTicket is the root of a ticket tree, created from one instruction.
type ParentTicket struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	Instruction string         `json:"instruction"`
	Status      TicketStatus   `json:"status"`
	Metadata    TicketMetadata `json:"metadata"`
	Children    []ChildTicket  `json:"childTickets"`
	Paused      bool           `json:"paused,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ChildTicket is one worker-type slice of a parent ticket.
type ChildTicket struct {
	ID            string             `json:"id"`
	ParentID      string             `json:"parentId"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	WorkerType    WorkerType         `json:"workerType"`
	Status        TicketStatus       `json:"status"`
	Grandchildren []GrandchildTicket `json:"grandchildTickets"`
	Paused        bool               `json:"paused,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// GrandchildTicket is an atomic unit of work handed to a coding agent.
type GrandchildTicket struct {
	ID                 string       `json:"id"`
	ParentID           string       `json:"parentId"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	AcceptanceCriteria []string     `json:"acceptanceCriteria"`
	Status             TicketStatus `json:"status"`
	Assignee           string       `json:"assignee,omitempty"`
	GitBranch          string       `json:"gitBranch,omitempty"`
	Artifacts          []string     `json:"artifacts"`
	Paused             bool         `json:"paused,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// ProjectTickets is the persisted document for one project.
type ProjectTickets struct {
	ProjectID     string         `json:"projectId"`
	ParentTickets []ParentTicket `json:"parentTickets"`
	LastUpdated   time.Time      `json:"lastUpdated"`
}

// Clone returns a deep copy of the grandchild.
func (g GrandchildTicket) Clone() GrandchildTicket {
	out := g
	out.AcceptanceCriteria = append([]string(nil), g.AcceptanceCriteria...)
	out.Artifacts = append([]string(nil), g.Artifacts...)
	return out
}

// Clone returns a deep copy of the child and its grandchildren.
func (c ChildTicket) Clone() ChildTicket {
	out := c
	out.Grandchildren = make([]GrandchildTicket, len(c.Grandchildren))
	for i, g := range c.Grandchildren {
		out.Grandchildren[i] = g.Clone()
	}
	return out
}

// Clone returns a deep copy of the parent ticket tree.
func (p ParentTicket) Clone() ParentTicket {
	out := p
	out.Metadata.Tags = append([]string(nil), p.Metadata.Tags...)
	out.Children = make([]ChildTicket, len(p.Children))
	for i, c := range p.Children {
		out.Children[i] = c.Clone()
	}
	return out
}

// Clone returns a deep copy of the project document.
func (pt ProjectTickets) Clone() ProjectTickets {
	out := pt
	out.ParentTickets = make([]ParentTicket, len(pt.ParentTickets))
	for i, p := range pt.ParentTickets {
		out.ParentTickets[i] = p.Clone()
	}
	return out
}
