package app

import (
	"time"

	coreticket "github.com/kawanishi0117/agent-company-sub008/internal/core/ticket"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// location addresses one ticket inside a project document by index.
type location struct {
	level      coreticket.Level
	parent     int
	child      int
	grandchild int
}

// locate searches the tree for id.
func locate(doc *models.ProjectTickets, id string) (location, bool) {
	for pi, p := range doc.ParentTickets {
		if p.ID == id {
			return location{level: coreticket.LevelParent, parent: pi, child: -1, grandchild: -1}, true
		}
		for ci, c := range p.Children {
			if c.ID == id {
				return location{level: coreticket.LevelChild, parent: pi, child: ci, grandchild: -1}, true
			}
			for gi, g := range c.Grandchildren {
				if g.ID == id {
					return location{level: coreticket.LevelGrandchild, parent: pi, child: ci, grandchild: gi}, true
				}
			}
		}
	}
	return location{}, false
}

func statusAt(doc *models.ProjectTickets, loc location) models.TicketStatus {
	p := &doc.ParentTickets[loc.parent]
	switch loc.level {
	case coreticket.LevelChild:
		return p.Children[loc.child].Status
	case coreticket.LevelGrandchild:
		return p.Children[loc.child].Grandchildren[loc.grandchild].Status
	}
	return p.Status
}

func pausedAt(doc *models.ProjectTickets, loc location) *bool {
	p := &doc.ParentTickets[loc.parent]
	switch loc.level {
	case coreticket.LevelChild:
		return &p.Children[loc.child].Paused
	case coreticket.LevelGrandchild:
		return &p.Children[loc.child].Grandchildren[loc.grandchild].Paused
	}
	return &p.Paused
}

// touch bumps UpdatedAt on the ticket and its ancestors.
func touch(doc *models.ProjectTickets, loc location, now time.Time) {
	p := &doc.ParentTickets[loc.parent]
	p.UpdatedAt = now
	if loc.level == coreticket.LevelParent {
		return
	}
	c := &p.Children[loc.child]
	c.UpdatedAt = now
	if loc.level == coreticket.LevelGrandchild {
		c.Grandchildren[loc.grandchild].UpdatedAt = now
	}
}

// hasChildren reports whether the ticket at loc owns any tickets.
func hasChildren(doc *models.ProjectTickets, loc location) bool {
	p := &doc.ParentTickets[loc.parent]
	switch loc.level {
	case coreticket.LevelParent:
		return len(p.Children) > 0
	case coreticket.LevelChild:
		return len(p.Children[loc.child].Grandchildren) > 0
	}
	return false
}

// setStatus sets the status at loc and re-derives the ancestors bottom-up.
// The explicitly set ticket keeps its status. Returns the previous status.
func setStatus(doc *models.ProjectTickets, loc location, status models.TicketStatus, now time.Time) models.TicketStatus {
	p := &doc.ParentTickets[loc.parent]
	var from models.TicketStatus

	switch loc.level {
	case coreticket.LevelParent:
		from = p.Status
		p.Status = status
	case coreticket.LevelChild:
		c := &p.Children[loc.child]
		from = c.Status
		c.Status = status
		coreticket.ReconcileAbove(p, loc.child)
	case coreticket.LevelGrandchild:
		g := &p.Children[loc.child].Grandchildren[loc.grandchild]
		from = g.Status
		g.Status = status
		coreticket.ReconcileAbove(p, -1)
	}

	touch(doc, loc, now)
	return from
}
