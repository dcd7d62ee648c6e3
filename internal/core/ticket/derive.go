package ticket

import "github.com/kawanishi0117/agent-company-sub008/internal/models"

// DeriveStatus reduces a set of child statuses to the status of their owner.
// Rules:
//   - any child failed and no sibling can still recover => failed
//   - every child completed or pr_created => completed
//   - every child pending => pending
//   - otherwise => in_progress
//
// The second return value is false when there are no children, in which
// case the owner keeps its own status.
func DeriveStatus(children []models.TicketStatus) (models.TicketStatus, bool) {
	if len(children) == 0 {
		return "", false
	}

	var failed, done, pending int
	for _, s := range children {
		switch s {
		case models.StatusFailed:
			failed++
		case models.StatusCompleted, models.StatusPRCreated:
			done++
		case models.StatusPending:
			pending++
		}
	}

	switch {
	case failed > 0 && failed+done == len(children):
		return models.StatusFailed, true
	case done == len(children):
		return models.StatusCompleted, true
	case pending == len(children):
		return models.StatusPending, true
	default:
		return models.StatusInProgress, true
	}
}

// ReconcileChild recomputes a child's status from its grandchildren.
func ReconcileChild(c *models.ChildTicket) {
	statuses := make([]models.TicketStatus, len(c.Grandchildren))
	for i, g := range c.Grandchildren {
		statuses[i] = g.Status
	}
	if s, ok := DeriveStatus(statuses); ok {
		c.Status = s
	}
}

// ReconcileParent recomputes a parent's status from its children.
func ReconcileParent(p *models.ParentTicket) {
	statuses := make([]models.TicketStatus, len(p.Children))
	for i, c := range p.Children {
		statuses[i] = c.Status
	}
	if s, ok := DeriveStatus(statuses); ok {
		p.Status = s
	}
}

// Reconcile re-derives every child and then the parent, bottom-up. It is
// idempotent and is run over the whole tree after each mutation.
func Reconcile(p *models.ParentTicket) {
	for i := range p.Children {
		ReconcileChild(&p.Children[i])
	}
	ReconcileParent(p)
}

// ReconcileAbove re-derives only the ancestors of an explicitly set entity:
// for a grandchild update the owning child and the parent, for a child
// update only the parent. skipChild is the index of a child whose status
// was set explicitly and must not be overwritten, or -1.
func ReconcileAbove(p *models.ParentTicket, skipChild int) {
	for i := range p.Children {
		if i == skipChild {
			continue
		}
		ReconcileChild(&p.Children[i])
	}
	ReconcileParent(p)
}
