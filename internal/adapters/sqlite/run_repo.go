// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kawanishi0117/agent-company-sub008/internal/errs"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

// RunRepository implements secondary.RunRepository with SQLite.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// createdAtLayout is fixed-width so that created_at sorts lexically.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, ticket_id, project_id, adapter, attempt, success, exit_code, duration_ms, output, stderr, files_changed, tests_json, lint_json, artifacts_dir, error, created_at"

// Create persists a new run.
// The run must have ID pre-populated by the service layer.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID must be pre-populated by service layer")
	}
	if run.TicketID == "" {
		return fmt.Errorf("run TicketID must be pre-populated by service layer")
	}

	files, err := json.Marshal(nonNil(run.Result.FilesChanged))
	if err != nil {
		return fmt.Errorf("failed to encode files changed: %w", err)
	}
	tests, err := json.Marshal(run.Tests)
	if err != nil {
		return fmt.Errorf("failed to encode test results: %w", err)
	}
	lint, err := json.Marshal(run.Lint)
	if err != nil {
		return fmt.Errorf("failed to encode lint results: %w", err)
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.TicketID, run.ProjectID, run.Adapter, run.Attempt,
		run.Result.Success, run.Result.ExitCode, run.Result.DurationMs,
		nullString(run.Result.Output), nullString(run.Result.Stderr),
		string(files), string(tests), string(lint),
		nullString(run.ArtifactsDir), nullString(run.Error),
		createdAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("run", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List retrieves runs matching the given filters, newest first.
func (r *RunRepository) List(ctx context.Context, filters secondary.RunFilters) ([]*models.Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	args := []any{}

	if filters.TicketID != "" {
		query += " WHERE ticket_id = ?"
		args = append(args, filters.TicketID)
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// CountByTicket returns how many runs a ticket has had.
func (r *RunRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE ticket_id = ?", ticketID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run          models.Run
		output       sql.NullString
		stderr       sql.NullString
		files        sql.NullString
		tests        sql.NullString
		lint         sql.NullString
		artifactsDir sql.NullString
		runErr       sql.NullString
		createdAt    string
	)

	err := row.Scan(
		&run.ID, &run.TicketID, &run.ProjectID, &run.Adapter, &run.Attempt,
		&run.Result.Success, &run.Result.ExitCode, &run.Result.DurationMs,
		&output, &stderr, &files, &tests, &lint, &artifactsDir, &runErr, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	run.Result.Output = output.String
	run.Result.Stderr = stderr.String
	run.ArtifactsDir = artifactsDir.String
	run.Error = runErr.String
	run.Result.FilesChanged = []string{}
	run.Tests.Coverage = -1

	if files.Valid && files.String != "" {
		if err := json.Unmarshal([]byte(files.String), &run.Result.FilesChanged); err != nil {
			return nil, fmt.Errorf("failed to decode files changed: %w", err)
		}
	}
	if tests.Valid && tests.String != "" {
		if err := json.Unmarshal([]byte(tests.String), &run.Tests); err != nil {
			return nil, fmt.Errorf("failed to decode test results: %w", err)
		}
	}
	if lint.Valid && lint.String != "" {
		if err := json.Unmarshal([]byte(lint.String), &run.Lint); err != nil {
			return nil, fmt.Errorf("failed to decode lint results: %w", err)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		run.CreatedAt = t
	}

	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
