// Package storage persists solve runs in SQLite so that downstream tools
// (code emitters, instantiation planners) can read closures, stubs and cut
// sets without re-running the analysis.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is written to metadata by CreateSchema.
const SchemaVersion = "1.0"

// Open opens the database at path, enables foreign keys and creates the
// schema when it is missing.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// In-memory databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version == "0" {
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// CreateSchema creates all tables and indexes in one transaction and
// bootstraps metadata.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"closure_nodes", createClosureNodesTable},
		{"stubs", createStubsTable},
		{"run_notes", createRunNotesTable},
		{"cycles", createCyclesTable},
		{"cuts", createCutsTable},
		{"metadata", createMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range allIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`INSERT INTO metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`, SchemaVersion, now); err != nil {
		return fmt.Errorf("failed to bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createRunsTable = `
CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    kind TEXT NOT NULL,                          -- closure or cycles
    targets TEXT NOT NULL DEFAULT '',            -- newline separated Type#method targets
    status TEXT NOT NULL,                        -- ok or failed
    error TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL                     -- RFC 3339
)
`

const createClosureNodesTable = `
CREATE TABLE closure_nodes (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,                   -- discovery order
    handle TEXT NOT NULL,
    kind TEXT NOT NULL,                          -- type, field, method, constructor
    file_path TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, handle),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createStubsTable = `
CREATE TABLE stubs (
    run_id TEXT NOT NULL,
    fqn TEXT NOT NULL,
    kind TEXT NOT NULL,
    outer_fqn TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,                          -- JSON encoded stub report
    PRIMARY KEY (run_id, fqn),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createRunNotesTable = `
CREATE TABLE run_notes (
    run_id TEXT NOT NULL,
    category TEXT NOT NULL,                      -- external, missing or fallback
    position INTEGER NOT NULL,
    value TEXT NOT NULL,                         -- name, or JSON for fallbacks
    PRIMARY KEY (run_id, category, position),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createCyclesTable = `
CREATE TABLE cycles (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    members TEXT NOT NULL,                       -- newline separated components
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createCutsTable = `
CREATE TABLE cuts (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,                   -- selection order
    from_component TEXT NOT NULL,
    to_component TEXT NOT NULL,
    kind TEXT NOT NULL,
    member TEXT NOT NULL DEFAULT '',
    weight REAL NOT NULL,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createMetadataTable = `
CREATE TABLE metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

var allIndexes = []string{
	"CREATE INDEX idx_runs_kind ON runs(kind, started_at)",
	"CREATE INDEX idx_closure_nodes_handle ON closure_nodes(handle)",
	"CREATE INDEX idx_cuts_components ON cuts(from_component, to_component)",
}
