// Package app contains the application services that orchestrate business logic.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	coreticket "github.com/kawanishi0117/agent-company-sub008/internal/core/ticket"
	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// TicketServiceImpl implements the TicketService interface.
//
// Every operation runs under a per-project mutex and reloads the project
// from the store, so the store stays the single source of truth. Mutations
// work on a copy that is only published once the save succeeded.
type TicketServiceImpl struct {
	store  secondary.TicketStore
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex // guards locks and state
	locks map[string]*sync.Mutex
	state map[string]*models.ProjectTickets
}

// NewTicketService creates a new TicketService with injected dependencies.
func NewTicketService(store secondary.TicketStore, logger *slog.Logger) *TicketServiceImpl {
	return &TicketServiceImpl{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		locks:  make(map[string]*sync.Mutex),
		state:  make(map[string]*models.ProjectTickets),
	}
}

// CreateParentTicket creates a new root ticket with the next sequential id.
func (s *TicketServiceImpl) CreateParentTicket(ctx context.Context, req primary.CreateParentTicketRequest) (*models.ParentTicket, error) {
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, errs.Validation("projectId", "is required")
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, errs.Validation("instruction", "is required")
	}

	var created models.ParentTicket
	err := s.mutate(ctx, req.ProjectID, func(doc *models.ProjectTickets) (bool, error) {
		ids := make([]string, len(doc.ParentTickets))
		for i, p := range doc.ParentTickets {
			ids[i] = p.ID
		}
		now := s.now()
		created = models.ParentTicket{
			ID:          coreticket.GenerateParentID(req.ProjectID, coreticket.NextParentSequenceBase(req.ProjectID, ids)),
			ProjectID:   req.ProjectID,
			Instruction: req.Instruction,
			Status:      coreticket.InitialStatus(),
			Metadata:    req.Metadata,
			Children:    []models.ChildTicket{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		doc.ParentTickets = append(doc.ParentTickets, created)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("parent ticket created", "ticket_id", created.ID, "project_id", req.ProjectID)
	out := created.Clone()
	return &out, nil
}

// CreateChildTicket appends a pending child to a parent ticket.
func (s *TicketServiceImpl) CreateChildTicket(ctx context.Context, req primary.CreateChildTicketRequest) (*models.ChildTicket, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errs.Validation("title", "is required")
	}
	if !coreticket.IsValidWorkerType(req.WorkerType) {
		return nil, errs.Validation("workerType", "unknown worker type %q", req.WorkerType)
	}
	level, projectID := coreticket.ClassifyID(req.ParentID)
	if level != coreticket.LevelParent {
		return nil, errs.NotFound("parent ticket", req.ParentID)
	}

	var created models.ChildTicket
	err := s.mutate(ctx, projectID, func(doc *models.ProjectTickets) (bool, error) {
		loc, ok := locate(doc, req.ParentID)
		if !ok || loc.level != coreticket.LevelParent {
			return false, errs.NotFound("parent ticket", req.ParentID)
		}
		parent := &doc.ParentTickets[loc.parent]
		now := s.now()
		created = models.ChildTicket{
			ID:            coreticket.GenerateChildID(parent.ID, len(parent.Children)),
			ParentID:      parent.ID,
			Title:         req.Title,
			Description:   req.Description,
			WorkerType:    req.WorkerType,
			Status:        coreticket.InitialStatus(),
			Grandchildren: []models.GrandchildTicket{},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		parent.Children = append(parent.Children, created)
		parent.UpdatedAt = now
		coreticket.Reconcile(parent)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("child ticket created", "ticket_id", created.ID, "worker_type", created.WorkerType)
	out := created.Clone()
	return &out, nil
}

// CreateGrandchildTicket appends a pending grandchild to a child ticket.
func (s *TicketServiceImpl) CreateGrandchildTicket(ctx context.Context, req primary.CreateGrandchildTicketRequest) (*models.GrandchildTicket, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errs.Validation("title", "is required")
	}
	level, projectID := coreticket.ClassifyID(req.ChildID)
	if level != coreticket.LevelChild {
		return nil, errs.NotFound("child ticket", req.ChildID)
	}

	var created models.GrandchildTicket
	err := s.mutate(ctx, projectID, func(doc *models.ProjectTickets) (bool, error) {
		loc, ok := locate(doc, req.ChildID)
		if !ok || loc.level != coreticket.LevelChild {
			return false, errs.NotFound("child ticket", req.ChildID)
		}
		parent := &doc.ParentTickets[loc.parent]
		child := &parent.Children[loc.child]
		now := s.now()
		created = newGrandchild(child, req.Title, req.Description, req.AcceptanceCriteria, req.GitBranch, now)
		child.Grandchildren = append(child.Grandchildren, created)
		child.UpdatedAt = now
		parent.UpdatedAt = now
		coreticket.Reconcile(parent)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("grandchild ticket created", "ticket_id", created.ID)
	out := created.Clone()
	return &out, nil
}

// GetParentTicket returns a copy of a parent ticket, or nil if absent.
func (s *TicketServiceImpl) GetParentTicket(ctx context.Context, id string) (*models.ParentTicket, error) {
	var out *models.ParentTicket
	err := s.lookup(ctx, id, coreticket.LevelParent, func(doc *models.ProjectTickets, loc location) {
		p := doc.ParentTickets[loc.parent].Clone()
		out = &p
	})
	return out, err
}

// GetChildTicket returns a copy of a child ticket, or nil if absent.
func (s *TicketServiceImpl) GetChildTicket(ctx context.Context, id string) (*models.ChildTicket, error) {
	var out *models.ChildTicket
	err := s.lookup(ctx, id, coreticket.LevelChild, func(doc *models.ProjectTickets, loc location) {
		c := doc.ParentTickets[loc.parent].Children[loc.child].Clone()
		out = &c
	})
	return out, err
}

// GetGrandchildTicket returns a copy of a grandchild ticket, or nil if absent.
func (s *TicketServiceImpl) GetGrandchildTicket(ctx context.Context, id string) (*models.GrandchildTicket, error) {
	var out *models.GrandchildTicket
	err := s.lookup(ctx, id, coreticket.LevelGrandchild, func(doc *models.ProjectTickets, loc location) {
		g := doc.ParentTickets[loc.parent].Children[loc.child].Grandchildren[loc.grandchild].Clone()
		out = &g
	})
	return out, err
}

// FindTicket resolves an id at any level, or returns nil if absent.
func (s *TicketServiceImpl) FindTicket(ctx context.Context, id string) (*primary.TicketView, error) {
	var out *primary.TicketView
	err := s.lookup(ctx, id, coreticket.LevelUnknown, func(doc *models.ProjectTickets, loc location) {
		p := doc.ParentTickets[loc.parent]
		view := &primary.TicketView{ID: id, ProjectID: doc.ProjectID}
		switch loc.level {
		case coreticket.LevelParent:
			view.Level, view.Title, view.Status, view.Paused = primary.LevelParent, p.Instruction, p.Status, p.Paused
		case coreticket.LevelChild:
			c := p.Children[loc.child]
			view.Level, view.Title, view.Status, view.Paused = primary.LevelChild, c.Title, c.Status, c.Paused
		case coreticket.LevelGrandchild:
			g := p.Children[loc.child].Grandchildren[loc.grandchild]
			view.Level, view.Title, view.Status, view.Paused = primary.LevelGrandchild, g.Title, g.Status, g.Paused
			view.Assignee = g.Assignee
		}
		out = view
	})
	return out, err
}

// ListParentTickets lists the parent tickets of a project in creation order.
func (s *TicketServiceImpl) ListParentTickets(ctx context.Context, projectID string) ([]*models.ParentTicket, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errs.Validation("projectId", "is required")
	}

	var out []*models.ParentTicket
	err := s.read(ctx, projectID, func(doc *models.ProjectTickets) {
		for _, p := range doc.ParentTickets {
			c := p.Clone()
			out = append(out, &c)
		}
	})
	return out, err
}

// UpdateTicketStatus sets the status of a ticket and re-derives its
// ancestors, all in one locked load-mutate-save. A ticket with children
// takes its status from them and cannot be set directly.
func (s *TicketServiceImpl) UpdateTicketStatus(ctx context.Context, id string, status models.TicketStatus) error {
	if !coreticket.IsValidStatus(status) {
		return errs.Validation("status", "unknown status %q", status)
	}
	level, projectID := coreticket.ClassifyID(id)
	if level == coreticket.LevelUnknown {
		return errs.NotFound("ticket", id)
	}

	var from models.TicketStatus
	err := s.mutate(ctx, projectID, func(doc *models.ProjectTickets) (bool, error) {
		loc, ok := locate(doc, id)
		if !ok {
			return false, errs.NotFound("ticket", id)
		}
		if hasChildren(doc, loc) {
			return false, errs.Validation("status", "status of %s is derived from its children", id)
		}
		from = setStatus(doc, loc, status, s.now())
		return true, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("ticket status updated", "ticket_id", id, "from", from, "to", status)
	return nil
}

// ClaimTicket marks a grandchild in progress for the assignee when the
// dispatch guard, evaluated on freshly loaded state, allows it.
func (s *TicketServiceImpl) ClaimTicket(ctx context.Context, req primary.ClaimTicketRequest) (*primary.TicketActionResult, error) {
	level, projectID := coreticket.ClassifyID(req.TicketID)
	if level != coreticket.LevelGrandchild {
		return nil, errs.NotFound("grandchild ticket", req.TicketID)
	}
	result := &primary.TicketActionResult{TicketID: req.TicketID}
	err := s.mutate(ctx, projectID, func(doc *models.ProjectTickets) (bool, error) {
		loc, ok := locate(doc, req.TicketID)
		if !ok || loc.level != coreticket.LevelGrandchild {
			return false, errs.NotFound("grandchild ticket", req.TicketID)
		}
		p := &doc.ParentTickets[loc.parent]
		c := &p.Children[loc.child]
		g := &c.Grandchildren[loc.grandchild]
		result.Status = g.Status

		check := coreticket.CanDispatch(coreticket.DispatchContext{
			TicketID:       g.ID,
			Status:         g.Status,
			Paused:         g.Paused,
			AncestorPaused: p.Paused || c.Paused,
			Attempts:       req.Attempts,
			MaxAttempts:    req.MaxAttempts,
		})
		if !check.Allowed {
			result.Error = check.Reason
			return false, nil
		}

		g.Assignee = req.Assignee
		setStatus(doc, loc, models.StatusInProgress, s.now())
		result.Success = true
		result.Status = models.StatusInProgress
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		s.logger.Info("ticket claim refused", "ticket_id", req.TicketID, "reason", result.Error)
	}
	return result, nil
}

// AttachArtifacts records artifact paths on a grandchild, skipping duplicates.
func (s *TicketServiceImpl) AttachArtifacts(ctx context.Context, id string, paths []string) error {
	level, projectID := coreticket.ClassifyID(id)
	if level != coreticket.LevelGrandchild {
		return errs.NotFound("grandchild ticket", id)
	}
	return s.mutate(ctx, projectID, func(doc *models.ProjectTickets) (bool, error) {
		loc, ok := locate(doc, id)
		if !ok || loc.level != coreticket.LevelGrandchild {
			return false, errs.NotFound("grandchild ticket", id)
		}
		g := &doc.ParentTickets[loc.parent].Children[loc.child].Grandchildren[loc.grandchild]
		seen := make(map[string]bool, len(g.Artifacts))
		for _, a := range g.Artifacts {
			seen[a] = true
		}
		changed := false
		for _, p := range paths {
			if !seen[p] {
				g.Artifacts = append(g.Artifacts, p)
				seen[p] = true
				changed = true
			}
		}
		if changed {
			g.UpdatedAt = s.now()
		}
		return changed, nil
	})
}

// PauseTicket marks a ticket paused. Dispatch skips paused tickets and
// everything below them; running agents are not interrupted.
func (s *TicketServiceImpl) PauseTicket(ctx context.Context, id string) (*primary.TicketActionResult, error) {
	return s.setPaused(ctx, id, true)
}

// ResumeTicket clears a pause.
func (s *TicketServiceImpl) ResumeTicket(ctx context.Context, id string) (*primary.TicketActionResult, error) {
	return s.setPaused(ctx, id, false)
}

func (s *TicketServiceImpl) setPaused(ctx context.Context, id string, paused bool) (*primary.TicketActionResult, error) {
	guard := coreticket.CanResumeTicket
	action := "resumed"
	if paused {
		guard = coreticket.CanPauseTicket
		action = "paused"
	}

	result := &primary.TicketActionResult{TicketID: id}
	level, projectID := coreticket.ClassifyID(id)
	if level == coreticket.LevelUnknown {
		check := guard(coreticket.StatusTransitionContext{TicketID: id})
		result.Error = check.Reason
		return result, nil
	}

	err := s.mutate(ctx, projectID, func(doc *models.ProjectTickets) (bool, error) {
		loc, ok := locate(doc, id)
		tctx := coreticket.StatusTransitionContext{TicketID: id, Exists: ok}
		if ok {
			tctx.Status = statusAt(doc, loc)
		}
		result.Status = tctx.Status

		if check := guard(tctx); !check.Allowed {
			result.Error = check.Reason
			return false, nil
		}

		result.Success = true
		flag := pausedAt(doc, loc)
		if *flag == paused {
			return false, nil
		}
		*flag = paused
		touch(doc, loc, s.now())
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Success {
		s.logger.Info("ticket "+action, "ticket_id", id)
	}
	return result, nil
}

// DecomposeTicket applies a plan to a parent ticket. The parent is saved as
// decomposing first, then the children and grandchildren are appended and
// the tree is re-derived.
func (s *TicketServiceImpl) DecomposeTicket(ctx context.Context, parentID string, plan models.DecompositionPlan) (*models.ParentTicket, error) {
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	level, projectID := coreticket.ClassifyID(parentID)
	if level != coreticket.LevelParent {
		return nil, errs.NotFound("parent ticket", parentID)
	}

	err := s.mutate(ctx, projectID, func(doc *models.ProjectTickets) (bool, error) {
		loc, ok := locate(doc, parentID)
		if !ok || loc.level != coreticket.LevelParent {
			return false, errs.NotFound("parent ticket", parentID)
		}
		parent := &doc.ParentTickets[loc.parent]
		if coreticket.IsTerminal(parent.Status) {
			return false, errs.Validation("status", "cannot decompose ticket %s: status is %s", parentID, parent.Status)
		}
		parent.Status = models.StatusDecomposing
		parent.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	var out models.ParentTicket
	err = s.mutate(ctx, projectID, func(doc *models.ProjectTickets) (bool, error) {
		loc, ok := locate(doc, parentID)
		if !ok || loc.level != coreticket.LevelParent {
			return false, errs.NotFound("parent ticket", parentID)
		}
		parent := &doc.ParentTickets[loc.parent]
		now := s.now()
		for _, cp := range plan.Children {
			child := models.ChildTicket{
				ID:            coreticket.GenerateChildID(parent.ID, len(parent.Children)),
				ParentID:      parent.ID,
				Title:         cp.Title,
				Description:   cp.Description,
				WorkerType:    cp.WorkerType,
				Status:        coreticket.InitialStatus(),
				Grandchildren: []models.GrandchildTicket{},
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			for _, gp := range cp.Grandchildren {
				child.Grandchildren = append(child.Grandchildren,
					newGrandchild(&child, gp.Title, gp.Description, gp.AcceptanceCriteria, gp.GitBranch, now))
			}
			parent.Children = append(parent.Children, child)
		}
		parent.UpdatedAt = now
		coreticket.Reconcile(parent)
		out = parent.Clone()
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket decomposed", "ticket_id", parentID, "children", len(plan.Children))
	return &out, nil
}

// ListDispatchTargets returns every grandchild at or below id, with the
// pause state of its ancestors.
func (s *TicketServiceImpl) ListDispatchTargets(ctx context.Context, id string) ([]*primary.DispatchTarget, error) {
	level, projectID := coreticket.ClassifyID(id)
	if level == coreticket.LevelUnknown {
		return nil, errs.NotFound("ticket", id)
	}

	var targets []*primary.DispatchTarget
	found := false
	err := s.read(ctx, projectID, func(doc *models.ProjectTickets) {
		loc, ok := locate(doc, id)
		if !ok {
			return
		}
		found = true
		p := doc.ParentTickets[loc.parent]
		for ci, c := range p.Children {
			if loc.level != coreticket.LevelParent && ci != loc.child {
				continue
			}
			for gi, g := range c.Grandchildren {
				if loc.level == coreticket.LevelGrandchild && gi != loc.grandchild {
					continue
				}
				targets = append(targets, &primary.DispatchTarget{
					ProjectID:      doc.ProjectID,
					Ticket:         g.Clone(),
					AncestorPaused: p.Paused || c.Paused,
				})
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errs.NotFound("ticket", id)
	}
	return targets, nil
}

// SaveTickets writes the in-memory state of a project to the store.
func (s *TicketServiceImpl) SaveTickets(ctx context.Context, projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return errs.Validation("projectId", "is required")
	}
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	doc := s.cached(projectID)
	if doc == nil {
		return errs.NotFound("loaded project", projectID)
	}
	work := doc.Clone()
	if err := s.store.Save(ctx, &work); err != nil {
		return fmt.Errorf("failed to save tickets for %s: %w", projectID, err)
	}
	s.publish(projectID, &work)
	return nil
}

// LoadTickets replaces the in-memory state of a project from the store.
func (s *TicketServiceImpl) LoadTickets(ctx context.Context, projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return errs.Validation("projectId", "is required")
	}
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	_, err := s.load(ctx, projectID)
	return err
}

// projectLock returns the mutex serializing writers of one project.
func (s *TicketServiceImpl) projectLock(projectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[projectID] = l
	}
	return l
}

func (s *TicketServiceImpl) cached(projectID string) *models.ProjectTickets {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[projectID]
}

func (s *TicketServiceImpl) publish(projectID string, doc *models.ProjectTickets) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[projectID] = doc
}

// load reads a project from the store into memory. Callers hold the project lock.
func (s *TicketServiceImpl) load(ctx context.Context, projectID string) (*models.ProjectTickets, error) {
	doc, err := s.store.Load(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets for %s: %w", projectID, err)
	}
	if doc.ProjectID == "" {
		doc.ProjectID = projectID
	}
	s.publish(projectID, doc)
	return doc, nil
}

// read runs fn against the current state of a project.
func (s *TicketServiceImpl) read(ctx context.Context, projectID string, fn func(doc *models.ProjectTickets)) error {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	fn(doc)
	return nil
}

// mutate runs fn against a copy of the project and, if fn reports a
// change, saves the copy and publishes it.
func (s *TicketServiceImpl) mutate(ctx context.Context, projectID string, fn func(doc *models.ProjectTickets) (bool, error)) error {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	work := current.Clone()
	changed, err := fn(&work)
	if err != nil || !changed {
		return err
	}

	work.LastUpdated = s.now()
	if err := s.store.Save(ctx, &work); err != nil {
		return fmt.Errorf("failed to save tickets for %s: %w", projectID, err)
	}
	s.publish(projectID, &work)
	return nil
}

// lookup finds id in its project and calls fn when present. want restricts
// the level; LevelUnknown accepts any.
func (s *TicketServiceImpl) lookup(ctx context.Context, id string, want coreticket.Level, fn func(doc *models.ProjectTickets, loc location)) error {
	level, projectID := coreticket.ClassifyID(id)
	if level == coreticket.LevelUnknown || (want != coreticket.LevelUnknown && level != want) {
		return nil
	}
	return s.read(ctx, projectID, func(doc *models.ProjectTickets) {
		if loc, ok := locate(doc, id); ok && (want == coreticket.LevelUnknown || loc.level == want) {
			fn(doc, loc)
		}
	})
}

func validatePlan(plan models.DecompositionPlan) error {
	if len(plan.Children) == 0 {
		return errs.Validation("children", "plan must contain at least one child")
	}
	for i, c := range plan.Children {
		if strings.TrimSpace(c.Title) == "" {
			return errs.Validation(fmt.Sprintf("children[%d].title", i), "is required")
		}
		if !coreticket.IsValidWorkerType(c.WorkerType) {
			return errs.Validation(fmt.Sprintf("children[%d].workerType", i), "unknown worker type %q", c.WorkerType)
		}
		for j, g := range c.Grandchildren {
			if strings.TrimSpace(g.Title) == "" {
				return errs.Validation(fmt.Sprintf("children[%d].grandchildren[%d].title", i, j), "is required")
			}
		}
	}
	return nil
}

func newGrandchild(child *models.ChildTicket, title, description string, criteria []string, branch string, now time.Time) models.GrandchildTicket {
	return models.GrandchildTicket{
		ID:                 coreticket.GenerateGrandchildID(child.ID, len(child.Grandchildren)),
		ParentID:           child.ID,
		Title:              title,
		Description:        description,
		AcceptanceCriteria: append([]string{}, criteria...),
		Status:             coreticket.InitialStatus(),
		GitBranch:          branch,
		Artifacts:          []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
