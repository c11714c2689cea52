package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/logger"

	_ "modernc.org/sqlite"
)

const (
	filePrefix = "remapid-"
	fileSuffix = ".db"
	latestName = "latest.db"
	lockName   = ".remapid.lock"
)

// Manager owns a journal directory: one database per run, a latest.db
// symlink, retention and an exclusive lock so two remaps cannot run against
// the same journal at once.
type Manager struct {
	dir       string
	retention int
	batchSize int
	lockFile  *os.File
}

// NewManager creates a journal manager. retention <= 0 keeps every run.
func NewManager(dir string, retention int) *Manager {
	return &Manager{dir: dir, retention: retention, batchSize: DefaultBatchSize}
}

// SetBatchSize sets the number of rows buffered between transactions.
func (m *Manager) SetBatchSize(n int) {
	m.batchSize = n
}

// Run is an open journal for one remap run.
type Run struct {
	*Writer
	Meta entry.RunMeta

	mgr       *Manager
	db        *sql.DB
	tempPath  string
	finalName string
}

// Begin locks the journal directory and starts a run database. meta.RunID
// is filled in when empty.
func (m *Manager) Begin(meta entry.RunMeta, mappings []artifact.Entry) (*Run, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	if err := m.acquireLock(); err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}
	if meta.StartTime.IsZero() {
		meta.StartTime = time.Now()
	}
	meta.Status = "running"

	tempPath := filepath.Join(m.dir, fmt.Sprintf(".remapid-temp-%d.db", time.Now().UnixNano()))
	database, err := sql.Open("sqlite", tempPath)
	if err != nil {
		m.releaseLock()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	database.SetMaxOpenConns(1)

	fail := func(format string, err error) (*Run, error) {
		database.Close()
		os.Remove(tempPath)
		m.releaseLock()
		return nil, fmt.Errorf(format, err)
	}

	if err := InitSchema(database); err != nil {
		return fail("failed to initialize schema: %w", err)
	}
	if err := ApplyWritePragmas(database); err != nil {
		return fail("failed to apply pragmas: %w", err)
	}
	w, err := NewWriter(database, m.batchSize)
	if err != nil {
		return fail("%w", err)
	}
	if err := w.BeginRun(meta); err != nil {
		w.Close()
		return fail("%w", err)
	}
	if err := w.RecordMappings(mappings); err != nil {
		w.Close()
		return fail("%w", err)
	}

	short := strings.SplitN(meta.RunID, "-", 2)[0]
	return &Run{
		Writer:    w,
		Meta:      meta,
		mgr:       m,
		db:        database,
		tempPath:  tempPath,
		finalName: fmt.Sprintf("%s%s-%s%s", filePrefix, meta.StartTime.Format("20060102-150405"), short, fileSuffix),
	}, nil
}

// Close records the outcome, moves the database into place, points
// latest.db at it, prunes old runs and releases the lock. It returns the
// final database path. The journal is kept whatever the status.
func (r *Run) Close(meta entry.RunMeta) (string, error) {
	defer r.mgr.releaseLock()

	if meta.EndTime.IsZero() {
		meta.EndTime = time.Now()
	}
	r.Meta = meta

	err := r.FinishRun(meta)
	r.Writer.Close()
	if err == nil {
		err = BuildIndexes(r.db)
	}
	if err == nil {
		err = Finalize(r.db)
	}
	r.db.Close()
	if err != nil {
		os.Remove(r.tempPath)
		return "", fmt.Errorf("failed to finalize journal: %w", err)
	}

	finalPath := filepath.Join(r.mgr.dir, r.finalName)
	if err := os.Rename(r.tempPath, finalPath); err != nil {
		os.Remove(r.tempPath)
		return "", fmt.Errorf("failed to rename journal: %w", err)
	}

	// Update latest.db symlink atomically via temp symlink + rename
	latestPath := filepath.Join(r.mgr.dir, latestName)
	tempLink := filepath.Join(r.mgr.dir, ".latest.db.tmp")
	os.Remove(tempLink)
	if err := os.Symlink(r.finalName, tempLink); err == nil {
		if err := os.Rename(tempLink, latestPath); err != nil {
			os.Remove(tempLink)
			logger.Warn("failed to update latest.db symlink", logger.KeyError, err)
		}
	} else {
		logger.Warn("failed to create latest.db symlink", logger.KeyError, err)
	}

	if err := r.mgr.pruneOldRuns(); err != nil {
		logger.Warn("failed to prune old journals", logger.KeyError, err)
	}

	return finalPath, nil
}

func (m *Manager) acquireLock() error {
	lockPath := filepath.Join(m.dir, lockName)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("another remap is in progress")
	}

	m.lockFile = f
	return nil
}

func (m *Manager) releaseLock() {
	if m.lockFile != nil {
		syscall.Flock(int(m.lockFile.Fd()), syscall.LOCK_UN)
		m.lockFile.Close()
		m.lockFile = nil
	}
}

func (m *Manager) pruneOldRuns() error {
	if m.retention <= 0 {
		return nil
	}

	runs, err := m.ListRuns()
	if err != nil {
		return err
	}

	for len(runs) > m.retention {
		if err := os.Remove(runs[0]); err != nil {
			return fmt.Errorf("failed to remove %s: %w", filepath.Base(runs[0]), err)
		}
		runs = runs[1:]
	}

	return nil
}

// GetLatest returns the path to the latest run journal.
func (m *Manager) GetLatest() (string, error) {
	resolved, err := filepath.EvalSymlinks(filepath.Join(m.dir, latestName))
	if err != nil {
		return "", fmt.Errorf("no latest journal found: %w", err)
	}
	return resolved, nil
}

// ListRuns returns all run journals, oldest first.
func (m *Manager) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}

	var runs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) && strings.HasSuffix(e.Name(), fileSuffix) {
			runs = append(runs, filepath.Join(m.dir, e.Name()))
		}
	}

	// Names start with a timestamp, so lexical order is chronological
	sort.Strings(runs)
	return runs, nil
}

// Open opens a journal for reading.
func Open(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	database.SetMaxOpenConns(1)
	if err := ApplyReadPragmas(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	return database, nil
}
