package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
)

// seedTree creates shop-0001 with one developer child and n grandchildren.
func seedTree(t *testing.T, s *TicketServiceImpl, n int) (*models.ParentTicket, *models.ChildTicket, []*models.GrandchildTicket) {
	t.Helper()
	ctx := context.Background()

	parent, err := s.CreateParentTicket(ctx, primary.CreateParentTicketRequest{ProjectID: "shop", Instruction: "Build checkout"})
	if err != nil {
		t.Fatalf("CreateParentTicket failed: %v", err)
	}
	child, err := s.CreateChildTicket(ctx, primary.CreateChildTicketRequest{ParentID: parent.ID, Title: "Cart", WorkerType: models.WorkerDeveloper})
	if err != nil {
		t.Fatalf("CreateChildTicket failed: %v", err)
	}
	var grandchildren []*models.GrandchildTicket
	for i := 0; i < n; i++ {
		g, err := s.CreateGrandchildTicket(ctx, primary.CreateGrandchildTicketRequest{
			ChildID:            child.ID,
			Title:              fmt.Sprintf("Step %d", i+1),
			AcceptanceCriteria: []string{"tests pass"},
		})
		if err != nil {
			t.Fatalf("CreateGrandchildTicket failed: %v", err)
		}
		grandchildren = append(grandchildren, g)
	}
	return parent, child, grandchildren
}

func TestCreateParentTicket_SequentialIDs(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		p, err := s.CreateParentTicket(ctx, primary.CreateParentTicketRequest{ProjectID: "shop", Instruction: "task"})
		if err != nil {
			t.Fatalf("CreateParentTicket failed: %v", err)
		}
		want := fmt.Sprintf("shop-%04d", i)
		if p.ID != want {
			t.Errorf("ID = %s, want %s", p.ID, want)
		}
		if p.Status != models.StatusPending {
			t.Errorf("Status = %s, want pending", p.Status)
		}
	}

	other, err := s.CreateParentTicket(ctx, primary.CreateParentTicketRequest{ProjectID: "blog", Instruction: "task"})
	if err != nil {
		t.Fatalf("CreateParentTicket failed: %v", err)
	}
	if other.ID != "blog-0001" {
		t.Errorf("ID = %s, want blog-0001 (sequences are per project)", other.ID)
	}
}

func TestCreateParentTicket_Validation(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()

	if _, err := s.CreateParentTicket(ctx, primary.CreateParentTicketRequest{Instruction: "x"}); !errs.IsValidation(err) {
		t.Errorf("empty project: expected ValidationError, got %v", err)
	}
	if _, err := s.CreateParentTicket(ctx, primary.CreateParentTicketRequest{ProjectID: "shop", Instruction: "  "}); !errs.IsValidation(err) {
		t.Errorf("blank instruction: expected ValidationError, got %v", err)
	}
}

func TestCreateChildAndGrandchild(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	parent, child, gs := seedTree(t, s, 2)

	if child.ID != "shop-0001-01" || child.ParentID != parent.ID {
		t.Errorf("child = %s (parent %s)", child.ID, child.ParentID)
	}
	if gs[0].ID != "shop-0001-01-01" || gs[1].ID != "shop-0001-01-02" || gs[1].ParentID != child.ID {
		t.Errorf("grandchildren = %s, %s", gs[0].ID, gs[1].ID)
	}

	if _, err := s.CreateChildTicket(ctx, primary.CreateChildTicketRequest{ParentID: "shop-0009", Title: "x", WorkerType: models.WorkerTest}); !errs.IsNotFound(err) {
		t.Errorf("unknown parent: expected NotFoundError, got %v", err)
	}
	if _, err := s.CreateChildTicket(ctx, primary.CreateChildTicketRequest{ParentID: parent.ID, Title: "x", WorkerType: "wizard"}); !errs.IsValidation(err) {
		t.Errorf("bad worker type: expected ValidationError, got %v", err)
	}
	if _, err := s.CreateGrandchildTicket(ctx, primary.CreateGrandchildTicketRequest{ChildID: "shop-0001-07", Title: "x"}); !errs.IsNotFound(err) {
		t.Errorf("unknown child: expected NotFoundError, got %v", err)
	}
}

func TestGetReturnsCopies(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	parent, _, _ := seedTree(t, s, 1)

	got, err := s.GetParentTicket(ctx, parent.ID)
	if err != nil || got == nil {
		t.Fatalf("GetParentTicket = %v, %v", got, err)
	}
	got.Children[0].Grandchildren[0].Title = "mutated"

	again, _ := s.GetParentTicket(ctx, parent.ID)
	if again.Children[0].Grandchildren[0].Title == "mutated" {
		t.Error("GetParentTicket must return a deep copy")
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	seedTree(t, s, 1)

	if p, err := s.GetParentTicket(ctx, "shop-0042"); p != nil || err != nil {
		t.Errorf("GetParentTicket = %v, %v, want nil, nil", p, err)
	}
	if c, err := s.GetChildTicket(ctx, "shop-0001-09"); c != nil || err != nil {
		t.Errorf("GetChildTicket = %v, %v, want nil, nil", c, err)
	}
	if g, err := s.GetGrandchildTicket(ctx, "not-an-id"); g != nil || err != nil {
		t.Errorf("GetGrandchildTicket = %v, %v, want nil, nil", g, err)
	}
	// A child id is not a parent id.
	if p, err := s.GetParentTicket(ctx, "shop-0001-01"); p != nil || err != nil {
		t.Errorf("GetParentTicket(child id) = %v, %v, want nil, nil", p, err)
	}
}

func TestUpdateTicketStatus_PropagatesUpward(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	parent, child, gs := seedTree(t, s, 2)

	steps := []struct {
		id         string
		status     models.TicketStatus
		wantChild  models.TicketStatus
		wantParent models.TicketStatus
	}{
		{gs[0].ID, models.StatusInProgress, models.StatusInProgress, models.StatusInProgress},
		{gs[0].ID, models.StatusCompleted, models.StatusInProgress, models.StatusInProgress},
		{gs[1].ID, models.StatusPRCreated, models.StatusCompleted, models.StatusCompleted},
		{gs[1].ID, models.StatusFailed, models.StatusFailed, models.StatusFailed},
		{gs[1].ID, models.StatusRevisionRequired, models.StatusInProgress, models.StatusInProgress},
	}

	for i, step := range steps {
		if err := s.UpdateTicketStatus(ctx, step.id, step.status); err != nil {
			t.Fatalf("step %d: UpdateTicketStatus failed: %v", i, err)
		}
		c, _ := s.GetChildTicket(ctx, child.ID)
		p, _ := s.GetParentTicket(ctx, parent.ID)
		if c.Status != step.wantChild || p.Status != step.wantParent {
			t.Errorf("step %d: child=%s parent=%s, want %s/%s", i, c.Status, p.Status, step.wantChild, step.wantParent)
		}
	}
}

func TestUpdateTicketStatus_Errors(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	_, _, gs := seedTree(t, s, 1)

	if err := s.UpdateTicketStatus(ctx, gs[0].ID, "done"); !errs.IsValidation(err) {
		t.Errorf("unknown status: expected ValidationError, got %v", err)
	}
	if err := s.UpdateTicketStatus(ctx, "shop-0001-01-09", models.StatusCompleted); !errs.IsNotFound(err) {
		t.Errorf("unknown id: expected NotFoundError, got %v", err)
	}
	if err := s.UpdateTicketStatus(ctx, "garbage", models.StatusCompleted); !errs.IsNotFound(err) {
		t.Errorf("malformed id: expected NotFoundError, got %v", err)
	}
}

func TestUpdateTicketStatus_DerivedStatusCannotBeSet(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	parent, child, _ := seedTree(t, s, 1)

	for _, id := range []string{parent.ID, child.ID} {
		err := s.UpdateTicketStatus(ctx, id, models.StatusCompleted)
		if !errs.IsValidation(err) || !strings.Contains(err.Error(), "derived from its children") {
			t.Errorf("UpdateTicketStatus(%s): expected ValidationError, got %v", id, err)
		}
	}
	p, _ := s.GetParentTicket(ctx, parent.ID)
	if p.Status != models.StatusPending || p.Children[0].Status != models.StatusPending {
		t.Errorf("statuses changed: parent=%s child=%s", p.Status, p.Children[0].Status)
	}

	// A child without grandchildren has nothing to derive from.
	empty, err := s.CreateChildTicket(ctx, primary.CreateChildTicketRequest{ParentID: parent.ID, Title: "Docs", WorkerType: models.WorkerDeveloper})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateTicketStatus(ctx, empty.ID, models.StatusCompleted); err != nil {
		t.Fatalf("UpdateTicketStatus(leaf child) failed: %v", err)
	}
	p, _ = s.GetParentTicket(ctx, parent.ID)
	if p.Status != models.StatusInProgress {
		t.Errorf("parent = %s, want in_progress from one pending and one completed child", p.Status)
	}
}

func TestUpdateTicketStatus_SaveFailureLeavesStateUnchanged(t *testing.T) {
	store := newMockTicketStore()
	s := newTestTicketService(store)
	ctx := context.Background()
	_, _, gs := seedTree(t, s, 1)

	store.saveErr = errors.New("disk full")
	if err := s.UpdateTicketStatus(ctx, gs[0].ID, models.StatusCompleted); err == nil {
		t.Fatal("expected save error")
	}
	store.saveErr = nil

	g, _ := s.GetGrandchildTicket(ctx, gs[0].ID)
	if g.Status != models.StatusPending {
		t.Errorf("Status = %s, want pending after failed save", g.Status)
	}
}

func TestPauseResume(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	parent, child, gs := seedTree(t, s, 2)

	res, err := s.PauseTicket(ctx, child.ID)
	if err != nil {
		t.Fatalf("PauseTicket failed: %v", err)
	}
	if !res.Success || res.TicketID != child.ID {
		t.Fatalf("PauseTicket = %+v", res)
	}

	targets, err := s.ListDispatchTargets(ctx, parent.ID)
	if err != nil {
		t.Fatalf("ListDispatchTargets failed: %v", err)
	}
	if len(targets) != 2 || !targets[0].AncestorPaused || !targets[1].AncestorPaused {
		t.Errorf("expected both grandchildren to see the paused child, got %+v", targets)
	}

	// Pausing twice is fine.
	if res, _ := s.PauseTicket(ctx, child.ID); !res.Success {
		t.Errorf("second pause = %+v", res)
	}

	res, err = s.ResumeTicket(ctx, child.ID)
	if err != nil || !res.Success {
		t.Fatalf("ResumeTicket = %+v, %v", res, err)
	}
	targets, _ = s.ListDispatchTargets(ctx, gs[0].ID)
	if len(targets) != 1 || targets[0].AncestorPaused {
		t.Errorf("after resume: %+v", targets)
	}
}

func TestPauseResume_Rejections(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	_, _, gs := seedTree(t, s, 1)

	if err := s.UpdateTicketStatus(ctx, gs[0].ID, models.StatusCompleted); err != nil {
		t.Fatal(err)
	}

	for name, fn := range map[string]func(context.Context, string) (*primary.TicketActionResult, error){
		"pause":  s.PauseTicket,
		"resume": s.ResumeTicket,
	} {
		res, err := fn(ctx, gs[0].ID)
		if err != nil {
			t.Fatalf("%s returned error: %v", name, err)
		}
		if res.Success || !strings.Contains(res.Error, "completed") {
			t.Errorf("%s on completed ticket = %+v, want rejection naming completed", name, res)
		}

		res, err = fn(ctx, "shop-0001-01-99")
		if err != nil {
			t.Fatalf("%s returned error: %v", name, err)
		}
		if res.Success || !strings.Contains(res.Error, "does not exist") {
			t.Errorf("%s on unknown ticket = %+v", name, res)
		}

		res, _ = fn(ctx, "garbage")
		if res.Success || !strings.Contains(res.Error, "does not exist") {
			t.Errorf("%s on malformed id = %+v", name, res)
		}
	}
}

func TestDecomposeTicket(t *testing.T) {
	store := newMockTicketStore()
	s := newTestTicketService(store)
	ctx := context.Background()

	parent, err := s.CreateParentTicket(ctx, primary.CreateParentTicketRequest{ProjectID: "shop", Instruction: "Build checkout"})
	if err != nil {
		t.Fatal(err)
	}

	plan := models.DecompositionPlan{Children: []models.ChildPlan{
		{Title: "Research", WorkerType: models.WorkerResearch},
		{Title: "Build", WorkerType: models.WorkerDeveloper, Grandchildren: []models.GrandchildPlan{
			{Title: "API", AcceptanceCriteria: []string{"200 on success"}},
			{Title: "UI", GitBranch: "feat/ui"},
		}},
	}}

	out, err := s.DecomposeTicket(ctx, parent.ID, plan)
	if err != nil {
		t.Fatalf("DecomposeTicket failed: %v", err)
	}
	if len(out.Children) != 2 || out.Children[1].ID != "shop-0001-02" {
		t.Fatalf("children = %+v", out.Children)
	}
	if g := out.Children[1].Grandchildren[1]; g.ID != "shop-0001-02-02" || g.GitBranch != "feat/ui" {
		t.Errorf("grandchild = %+v", g)
	}
	if out.Status != models.StatusPending {
		t.Errorf("Status = %s, want pending once decomposed", out.Status)
	}

	sawDecomposing := false
	for _, st := range store.statuses {
		if st == models.StatusDecomposing {
			sawDecomposing = true
		}
	}
	if !sawDecomposing {
		t.Errorf("expected a save with status decomposing, saw %v", store.statuses)
	}

	bad := models.DecompositionPlan{Children: []models.ChildPlan{{Title: "x", WorkerType: "wizard"}}}
	if _, err := s.DecomposeTicket(ctx, parent.ID, bad); !errs.IsValidation(err) {
		t.Errorf("bad plan: expected ValidationError, got %v", err)
	}
	if _, err := s.DecomposeTicket(ctx, parent.ID, models.DecompositionPlan{}); !errs.IsValidation(err) {
		t.Errorf("empty plan: expected ValidationError, got %v", err)
	}
}

func TestFindTicket(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	_, child, gs := seedTree(t, s, 1)

	view, err := s.FindTicket(ctx, child.ID)
	if err != nil || view == nil {
		t.Fatalf("FindTicket = %v, %v", view, err)
	}
	if view.Level != primary.LevelChild || view.Title != "Cart" || view.ProjectID != "shop" {
		t.Errorf("view = %+v", view)
	}

	if res, err := s.ClaimTicket(ctx, primary.ClaimTicketRequest{TicketID: gs[0].ID, Assignee: "codex"}); err != nil || !res.Success {
		t.Fatalf("ClaimTicket = %+v, %v", res, err)
	}
	view, _ = s.FindTicket(ctx, gs[0].ID)
	if view.Assignee != "codex" || view.Status != models.StatusInProgress {
		t.Errorf("view = %+v", view)
	}

	if view, err := s.FindTicket(ctx, "shop-0002"); view != nil || err != nil {
		t.Errorf("FindTicket(absent) = %v, %v", view, err)
	}
}

func TestClaimTicket_RechecksStoredState(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, s *TicketServiceImpl, childID, ticketID string)
		req     primary.ClaimTicketRequest
		wantOK  bool
		wantErr string
	}{
		{
			name:   "claimable",
			wantOK: true,
		},
		{
			name: "paused after listing",
			setup: func(t *testing.T, s *TicketServiceImpl, childID, ticketID string) {
				if _, err := s.PauseTicket(context.Background(), ticketID); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: "paused",
		},
		{
			name: "ancestor paused",
			setup: func(t *testing.T, s *TicketServiceImpl, childID, ticketID string) {
				if _, err := s.PauseTicket(context.Background(), childID); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: "paused",
		},
		{
			name: "already completed",
			setup: func(t *testing.T, s *TicketServiceImpl, childID, ticketID string) {
				if err := s.UpdateTicketStatus(context.Background(), ticketID, models.StatusCompleted); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: "already completed",
		},
		{
			name:    "attempts exhausted",
			req:     primary.ClaimTicketRequest{Attempts: 3, MaxAttempts: 3},
			wantErr: "3 of 3 attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockTicketStore()
			s := newTestTicketService(store)
			ctx := context.Background()
			_, child, gs := seedTree(t, s, 1)
			if tt.setup != nil {
				tt.setup(t, s, child.ID, gs[0].ID)
			}
			saves := store.saves

			req := tt.req
			req.TicketID = gs[0].ID
			req.Assignee = "claude"
			res, err := s.ClaimTicket(ctx, req)
			if err != nil {
				t.Fatalf("ClaimTicket failed: %v", err)
			}
			if res.Success != tt.wantOK {
				t.Fatalf("Success = %v, want %v (%+v)", res.Success, tt.wantOK, res)
			}

			g, _ := s.GetGrandchildTicket(ctx, gs[0].ID)
			if tt.wantOK {
				if g.Status != models.StatusInProgress || g.Assignee != "claude" {
					t.Errorf("claimed ticket = %+v", g)
				}
				return
			}
			if !strings.Contains(res.Error, tt.wantErr) {
				t.Errorf("Error = %q, want it to contain %q", res.Error, tt.wantErr)
			}
			if g.Assignee != "" || store.saves != saves {
				t.Errorf("refused claim changed the ticket: %+v, saves %d -> %d", g, saves, store.saves)
			}
		})
	}

	s := newTestTicketService(newMockTicketStore())
	if _, err := s.ClaimTicket(context.Background(), primary.ClaimTicketRequest{TicketID: "shop-0001-01"}); !errs.IsNotFound(err) {
		t.Errorf("claiming a child: expected NotFoundError, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newMockTicketStore()
	s := newTestTicketService(store)
	ctx := context.Background()
	_, _, gs := seedTree(t, s, 2)
	if err := s.UpdateTicketStatus(ctx, gs[0].ID, models.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	if err := s.AttachArtifacts(ctx, gs[0].ID, []string{"runs/r1", "runs/r1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTickets(ctx, "shop"); err != nil {
		t.Fatalf("SaveTickets failed: %v", err)
	}
	before, _ := s.ListParentTickets(ctx, "shop")

	fresh := newTestTicketService(store)
	if err := fresh.LoadTickets(ctx, "shop"); err != nil {
		t.Fatalf("LoadTickets failed: %v", err)
	}
	after, _ := fresh.ListParentTickets(ctx, "shop")

	want, _ := json.Marshal(before)
	got, _ := json.Marshal(after)
	if string(want) != string(got) {
		t.Errorf("round trip mismatch\nwant %s\ngot  %s", want, got)
	}
	if len(after[0].Children[0].Grandchildren[0].Artifacts) != 1 {
		t.Errorf("artifacts = %v, want duplicates dropped", after[0].Children[0].Grandchildren[0].Artifacts)
	}

	if err := newTestTicketService(store).SaveTickets(ctx, "shop"); !errs.IsNotFound(err) {
		t.Errorf("SaveTickets before any load: expected NotFoundError, got %v", err)
	}
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	s := newTestTicketService(newMockTicketStore())
	ctx := context.Background()
	_, child, _ := seedTree(t, s, 0)

	const n = 20
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateGrandchildTicket(ctx, primary.CreateGrandchildTicketRequest{ChildID: child.ID, Title: "parallel"})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("CreateGrandchildTicket failed: %v", err)
		}
	}

	c, _ := s.GetChildTicket(ctx, child.ID)
	if len(c.Grandchildren) != n {
		t.Fatalf("got %d grandchildren, want %d (lost update)", len(c.Grandchildren), n)
	}
	seen := map[string]bool{}
	for _, g := range c.Grandchildren {
		if seen[g.ID] {
			t.Errorf("duplicate id %s", g.ID)
		}
		seen[g.ID] = true
	}
}
