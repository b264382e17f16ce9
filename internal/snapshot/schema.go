package snapshot

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// initializeSchema creates the tables if they do not exist yet. The schema
// is idempotent; migrations hang off the version table when they arrive.
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createResultsTable(tx); err != nil {
			return err
		}
		if err := createManifestTable(tx); err != nil {
			return err
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

func createSchemaVersionTable(tx *sql.Tx) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

// results holds one row per (scope, row identity). row_hash is the
// content identity used by merge dedup; the UNIQUE constraint makes
// accidental double-insertion of identical rows impossible.
func createResultsTable(tx *sql.Tx) error {
	query := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		jurisdiction TEXT NOT NULL,
		level TEXT NOT NULL,
		row_hash TEXT NOT NULL,
		state TEXT NOT NULL,
		year INTEGER NOT NULL,
		election_date TEXT NOT NULL,
		election_type TEXT NOT NULL DEFAULT '',
		office TEXT NOT NULL DEFAULT '',
		office_raw TEXT NOT NULL DEFAULT '',
		row_jurisdiction TEXT NOT NULL DEFAULT '',
		jurisdiction_type TEXT NOT NULL DEFAULT '',
		district TEXT NOT NULL DEFAULT '',
		candidate TEXT NOT NULL DEFAULT '',
		party TEXT NOT NULL DEFAULT '',
		votes INTEGER NOT NULL DEFAULT 0,
		vote_share REAL NOT NULL DEFAULT 0,
		won INTEGER NOT NULL DEFAULT 0,
		incumbent INTEGER NOT NULL DEFAULT 0,
		source_url TEXT NOT NULL DEFAULT '',
		retrieved_at TEXT NOT NULL DEFAULT '',
		fetch_id TEXT NOT NULL DEFAULT '',
		UNIQUE(source_id, jurisdiction, level, row_hash)
	)`
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create results table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_results_scope ON results(source_id, jurisdiction, level)",
		"CREATE INDEX IF NOT EXISTS idx_results_date ON results(source_id, jurisdiction, level, election_date)",
	}
	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create results index: %w", err)
		}
	}
	return nil
}

// manifest records which record-dates a scope has retrieved, one entry per
// date. Covered-date queries read this table without touching result rows.
func createManifestTable(tx *sql.Tx) error {
	query := `
	CREATE TABLE IF NOT EXISTS manifest (
		source_id TEXT NOT NULL,
		jurisdiction TEXT NOT NULL,
		level TEXT NOT NULL,
		record_date TEXT NOT NULL,
		source_url TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (source_id, jurisdiction, level, record_date)
	)`
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create manifest table: %w", err)
	}
	return nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
