package sqlite

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version supported by the migrator.
const SchemaVersion = 2

// migrations[i] upgrades the schema from version i to i+1.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		recorded_at TEXT NOT NULL,
		category TEXT NOT NULL,
		content TEXT NOT NULL,
		target_time TEXT NULL,
		status TEXT NOT NULL,
		linked_cost TEXT NOT NULL DEFAULT '0'
	);
	CREATE TABLE IF NOT EXISTS transitions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		from_value TEXT NOT NULL DEFAULT '',
		to_value TEXT NOT NULL DEFAULT '',
		at TEXT NOT NULL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_records_recorded_at ON records(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_transitions_record_id ON transitions(record_id, at);
	`,
}

// Migrate ensures the SQLite schema exists and is upgraded to SchemaVersion.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	current, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("migrate: database schema v%d is newer than supported v%d", current, SchemaVersion)
	}

	for v := current; v < SchemaVersion; v++ {
		if err := applyMigration(db, v+1, migrations[v]); err != nil {
			return err
		}
	}
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var current int
	err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("migrate: read current version: %w", err)
	}
	return current, nil
}

// applyMigration runs one step atomically.
func applyMigration(db *sql.DB, version int, ddl string) error {
	transaction, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = transaction.Rollback()
	}()

	if _, err := transaction.Exec(ddl); err != nil {
		return fmt.Errorf("migrate: apply v%d: %w", version, err)
	}
	if _, err := transaction.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, version); err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}
	return nil
}
