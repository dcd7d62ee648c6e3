// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() so tests run against the
// authoritative schema. Do not declare tables in test files.
package sqlite_test

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kawanishi0117/agent-company-sub008/internal/db"
	"github.com/kawanishi0117/agent-company-sub008/internal/models"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// A second pooled connection would see a different in-memory database.
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// newTestRun builds a run with sensible defaults.
func newTestRun(id, ticketID string, createdAt time.Time) *models.Run {
	return &models.Run{
		ID:        id,
		TicketID:  ticketID,
		ProjectID: "shop",
		Adapter:   "claude",
		Attempt:   1,
		Result: models.CodingTaskResult{
			Success:      true,
			Output:       "ok",
			ExitCode:     0,
			DurationMs:   1200,
			FilesChanged: []string{"src/login.ts"},
		},
		Tests:     models.QAParseResult{Parsed: true, Total: 4, Passed: 4, Coverage: 91.5},
		Lint:      models.LintParseResult{Parsed: true, Passed: true},
		CreatedAt: createdAt,
	}
}
