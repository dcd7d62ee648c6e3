package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/kawanishi0117/agent-company-sub008/internal/adapters/sqlite"
	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

func TestRunRepository_CreateAndGet(t *testing.T) {
	repo := sqlite.NewRunRepository(setupTestDB(t))
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)
	run := newTestRun("run-1", "shop-0001-01-01", created)
	run.Error = "partial"
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TicketID != run.TicketID || got.Adapter != "claude" || got.Attempt != 1 {
		t.Errorf("GetByID = %+v", got)
	}
	if !got.Result.Success || got.Result.DurationMs != 1200 || len(got.Result.FilesChanged) != 1 {
		t.Errorf("Result = %+v", got.Result)
	}
	if got.Tests.Coverage != 91.5 || got.Tests.Total != 4 || !got.Lint.Passed {
		t.Errorf("QA = %+v / %+v", got.Tests, got.Lint)
	}
	if got.Error != "partial" {
		t.Errorf("Error = %q", got.Error)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
}

func TestRunRepository_GetByID_NotFound(t *testing.T) {
	repo := sqlite.NewRunRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "nope")
	if !errs.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestRunRepository_CreateRequiresID(t *testing.T) {
	repo := sqlite.NewRunRepository(setupTestDB(t))

	run := newTestRun("", "shop-0001-01-01", time.Now())
	if err := repo.Create(context.Background(), run); err == nil {
		t.Error("expected error for missing ID")
	}
}

func TestRunRepository_ListAndCount(t *testing.T) {
	repo := sqlite.NewRunRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, r := range []struct{ id, ticket string }{
		{"run-a", "shop-0001-01-01"},
		{"run-b", "shop-0001-01-02"},
		{"run-c", "shop-0001-01-01"},
	} {
		if err := repo.Create(ctx, newTestRun(r.id, r.ticket, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Create %s failed: %v", r.id, err)
		}
	}

	all, err := repo.List(ctx, secondary.RunFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "run-c" {
		t.Errorf("List order = %v, want run-c first", ids(all))
	}

	filtered, err := repo.List(ctx, secondary.RunFilters{TicketID: "shop-0001-01-01", Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "run-c" {
		t.Errorf("filtered = %v, want [run-c]", ids(filtered))
	}

	count, err := repo.CountByTicket(ctx, "shop-0001-01-01")
	if err != nil {
		t.Fatalf("CountByTicket failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountByTicket = %d, want 2", count)
	}
}

func ids(runs []*models.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}
