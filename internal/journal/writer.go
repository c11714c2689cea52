package journal

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/entry"
)

const insertRunSQL = `INSERT INTO runs (id, run_id, mode, base_path, dry_run, reverse, start_time) VALUES (1, ?, ?, ?, ?, ?, ?)`
const finishRunSQL = `UPDATE runs SET end_time = ?, checked = ?, changed = ?, failed = ?, skipped = ?, warnings = ?, status = ? WHERE id = 1`
const insertMappingSQL = `INSERT OR REPLACE INTO mappings (kind, old_id, name, new_id) VALUES (?, ?, ?, ?)`
const insertChangeSQL = `INSERT INTO changes (dir, name, kind, old_uid, old_gid, new_uid, new_gid, applied) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
const insertWarningSQL = `INSERT INTO warnings (path, message) VALUES (?, ?)`

// DefaultBatchSize is the number of rows buffered before a flush.
const DefaultBatchSize = 1000

// Writer batches journal rows into transactions. It is not safe for
// concurrent use; the remapper calls it from its only goroutine.
type Writer struct {
	db        *sql.DB
	batchSize int

	changeBatch  []entry.Change
	warningBatch []entry.Warning

	changeStmt  *sql.Stmt
	warningStmt *sql.Stmt

	changes  int64
	warnings int64
}

// NewWriter prepares statements on db, which must already have the schema.
func NewWriter(db *sql.DB, batchSize int) (*Writer, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	w := &Writer{
		db:           db,
		batchSize:    batchSize,
		changeBatch:  make([]entry.Change, 0, batchSize),
		warningBatch: make([]entry.Warning, 0, 64),
	}
	var err error
	w.changeStmt, err = db.Prepare(insertChangeSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare change statement: %w", err)
	}
	w.warningStmt, err = db.Prepare(insertWarningSQL)
	if err != nil {
		w.changeStmt.Close()
		return nil, fmt.Errorf("failed to prepare warning statement: %w", err)
	}
	return w, nil
}

// BeginRun records the run header.
func (w *Writer) BeginRun(meta entry.RunMeta) error {
	_, err := w.db.Exec(insertRunSQL,
		meta.RunID, meta.Mode, meta.BasePath, meta.DryRun, meta.Reverse, meta.StartTime.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecordMappings stores the table the run applies.
func (w *Writer) RecordMappings(entries []artifact.Entry) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin mapping transaction: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(insertMappingSQL, e.Kind, e.OldID, e.Name, e.NewID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert mapping %s: %w", e, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mapping transaction: %w", err)
	}
	return nil
}

// RecordChange buffers one change.
func (w *Writer) RecordChange(c entry.Change) error {
	w.changes++
	w.changeBatch = append(w.changeBatch, c)
	if len(w.changeBatch) >= w.batchSize {
		return w.flushChanges()
	}
	return nil
}

// RecordWarning buffers one warning.
func (w *Writer) RecordWarning(wn entry.Warning) error {
	w.warnings++
	w.warningBatch = append(w.warningBatch, wn)
	if len(w.warningBatch) >= w.batchSize {
		return w.flushWarnings()
	}
	return nil
}

// Counts returns the number of changes and warnings recorded so far.
func (w *Writer) Counts() (changes, warnings int64) {
	return w.changes, w.warnings
}

// Flush writes buffered rows.
func (w *Writer) Flush() error {
	if err := w.flushChanges(); err != nil {
		return err
	}
	return w.flushWarnings()
}

// FinishRun flushes and records the final counters and status.
func (w *Writer) FinishRun(meta entry.RunMeta) error {
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := w.db.Exec(finishRunSQL,
		meta.EndTime.Unix(), meta.Checked, meta.Changed, meta.Failed, meta.Skipped, meta.Warnings, meta.Status)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// Close releases the prepared statements. It does not flush.
func (w *Writer) Close() error {
	w.changeStmt.Close()
	return w.warningStmt.Close()
}

func (w *Writer) flushChanges() error {
	if len(w.changeBatch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin change transaction: %w", err)
	}

	stmt := tx.Stmt(w.changeStmt)
	for _, c := range w.changeBatch {
		dir, name := splitPath(c.Path)
		_, err := stmt.Exec(dir, name, c.Kind, c.OldUID, c.OldGID, c.NewUID, c.NewGID, c.Applied)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert change %q: %w", c.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit change transaction: %w", err)
	}

	w.changeBatch = w.changeBatch[:0]
	return nil
}

func (w *Writer) flushWarnings() error {
	if len(w.warningBatch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin warning transaction: %w", err)
	}

	stmt := tx.Stmt(w.warningStmt)
	for _, wn := range w.warningBatch {
		if _, err := stmt.Exec(wn.Path, wn.Message); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert warning for %q: %w", wn.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit warning transaction: %w", err)
	}

	w.warningBatch = w.warningBatch[:0]
	return nil
}

// splitPath stores a change under its parent directory so the journal can
// be browsed a directory at a time. The filesystem root has no parent and
// is stored with an empty dir.
func splitPath(p string) (dir, name string) {
	p = filepath.Clean(p)
	dir, name = filepath.Split(p)
	if name == "" {
		return "", p
	}
	if dir == "" {
		return ".", name
	}
	return filepath.Clean(dir), name
}
