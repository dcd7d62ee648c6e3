package db

import "database/sql"

// SchemaSQL is the complete schema of the run ledger.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Tests load it
// through GetSchemaSQL() instead of declaring their own tables, so a
// repository that references a missing column fails at test time.
//
// When adding columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Runs (one dispatch of a grandchild ticket to a coding agent)
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	ticket_id TEXT NOT NULL,
	project_id TEXT NOT NULL,
	adapter TEXT NOT NULL,
	attempt INTEGER NOT NULL DEFAULT 1,
	success INTEGER NOT NULL DEFAULT 0,
	exit_code INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	output TEXT,
	stderr TEXT,
	files_changed TEXT,
	tests_json TEXT,
	lint_json TEXT,
	artifacts_dir TEXT,
	error TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_ticket ON runs(ticket_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// InitSchema creates the schema on a fresh database and runs any pending
// migrations on an existing one.
func InitSchema(conn *sql.DB) error {
	var tableCount int
	err := conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		// Fresh install - create the modern schema and mark every
		// migration as applied.
		if _, err := conn.Exec(SchemaSQL); err != nil {
			return err
		}
		if _, err := conn.Exec(schemaVersionSQL); err != nil {
			return err
		}
		for _, m := range migrations {
			if _, err := conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	return RunMigrations(conn)
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
func GetSchemaSQL() string {
	return SchemaSQL
}
