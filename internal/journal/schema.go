// Package journal keeps a per-run sqlite record of what a remap did: the
// table it applied, every change it made or planned, and every warning.
package journal

import (
	"database/sql"
	"fmt"
)

const runsTableDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    run_id TEXT NOT NULL,
    mode TEXT NOT NULL,
    base_path TEXT NOT NULL,
    dry_run INTEGER NOT NULL,
    reverse INTEGER NOT NULL,
    start_time INTEGER NOT NULL,
    end_time INTEGER,
    checked INTEGER DEFAULT 0,
    changed INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    warnings INTEGER DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'running'
);
`

const mappingsTableDDL = `
CREATE TABLE IF NOT EXISTS mappings (
    kind INTEGER NOT NULL,
    old_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    new_id INTEGER NOT NULL,
    PRIMARY KEY (kind, old_id)
);
`

const changesTableDDL = `
CREATE TABLE IF NOT EXISTS changes (
    id INTEGER PRIMARY KEY,
    dir TEXT NOT NULL,
    name TEXT NOT NULL,
    kind INTEGER NOT NULL,
    old_uid INTEGER NOT NULL,
    old_gid INTEGER NOT NULL,
    new_uid INTEGER NOT NULL,
    new_gid INTEGER NOT NULL,
    applied INTEGER NOT NULL
);
`

const warningsTableDDL = `
CREATE TABLE IF NOT EXISTS warnings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL,
    message TEXT NOT NULL
);
`

const changesDirIndexDDL = `CREATE INDEX IF NOT EXISTS idx_changes_dir ON changes(dir);`
const changesOldUIDIndexDDL = `CREATE INDEX IF NOT EXISTS idx_changes_old_uid ON changes(old_uid);`
const changesOldGIDIndexDDL = `CREATE INDEX IF NOT EXISTS idx_changes_old_gid ON changes(old_gid);`

// InitSchema creates all tables in the database.
func InitSchema(db *sql.DB) error {
	ddls := []string{
		runsTableDDL,
		mappingsTableDDL,
		changesTableDDL,
		warningsTableDDL,
	}

	for _, ddl := range ddls {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return nil
}

// ApplyWritePragmas configures SQLite for a run that writes as it goes.
func ApplyWritePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	return nil
}

// ApplyReadPragmas configures SQLite for read-only inspection.
func ApplyReadPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA temp_store = MEMORY",
		"PRAGMA query_only = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	return nil
}

// BuildIndexes creates indexes once the run has been written.
func BuildIndexes(db *sql.DB) error {
	indexes := []string{
		changesDirIndexDDL,
		changesOldUIDIndexDDL,
		changesOldGIDIndexDDL,
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// Finalize prepares the database for read-only access.
func Finalize(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize: %w", err)
	}

	// Switch from WAL to DELETE so the journal is a single file
	if _, err := db.Exec("PRAGMA journal_mode = DELETE"); err != nil {
		return fmt.Errorf("failed to set journal mode: %w", err)
	}

	return nil
}
