package journal

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/pathutil"
)

// DisplayEntry is one child of a directory in the journal: the object's own
// change, if any, plus the number of changes recorded below it.
type DisplayEntry struct {
	Path  string
	Name  string
	Kind  entry.Kind
	Self  *entry.Change
	Below int64
}

// Total counts the entry's own change and everything below it.
func (d DisplayEntry) Total() int64 {
	if d.Self != nil {
		return d.Below + 1
	}
	return d.Below
}

// GetRunMeta retrieves run metadata.
func GetRunMeta(db *sql.DB) (*entry.RunMeta, error) {
	var m entry.RunMeta
	var startTime, endTime int64

	err := db.QueryRow(`
		SELECT run_id, mode, base_path, dry_run, reverse, start_time, COALESCE(end_time, 0),
		       checked, changed, failed, skipped, warnings, status
		FROM runs WHERE id = 1
	`).Scan(&m.RunID, &m.Mode, &m.BasePath, &m.DryRun, &m.Reverse, &startTime, &endTime,
		&m.Checked, &m.Changed, &m.Failed, &m.Skipped, &m.Warnings, &m.Status)
	if err != nil {
		return nil, err
	}

	m.StartTime = time.Unix(startTime, 0)
	if endTime > 0 {
		m.EndTime = time.Unix(endTime, 0)
	}
	return &m, nil
}

// LoadMappings returns the table the run applied, users first.
func LoadMappings(db *sql.DB) ([]artifact.Entry, error) {
	rows, err := db.Query(`SELECT kind, old_id, name, new_id FROM mappings ORDER BY kind, old_id`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []artifact.Entry
	for rows.Next() {
		var e artifact.Entry
		if err := rows.Scan(&e.Kind, &e.OldID, &e.Name, &e.NewID); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadWarnings returns up to limit warnings in the order they were raised.
func LoadWarnings(db *sql.DB, limit int) ([]entry.Warning, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT path, message FROM warnings ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []entry.Warning
	for rows.Next() {
		var w entry.Warning
		if err := rows.Scan(&w.Path, &w.Message); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ChangeFilter narrows LoadChanges.
type ChangeFilter struct {
	// Under restricts results to this directory and below.
	Under string
	// Kind and ID select changes whose old or new ID of that kind matches.
	Kind *ident.Kind
	ID   ident.ID
	// FailedOnly selects changes that were not applied.
	FailedOnly bool
	Limit      int
}

// LoadChanges returns recorded changes in traversal order.
func LoadChanges(db *sql.DB, f ChangeFilter) ([]entry.Change, error) {
	var where []string
	var args []any
	if f.Under != "" {
		under := pathutil.Normalize(f.Under)
		prefix := pathutil.DirPrefix(under)
		where = append(where, "(dir = ? OR substr(dir, 1, ?) = ?)")
		args = append(args, under, utf8.RuneCountInString(prefix), prefix)
	}
	if f.Kind != nil {
		if *f.Kind == ident.KindGroup {
			where = append(where, "(old_gid = ? OR new_gid = ?)")
		} else {
			where = append(where, "(old_uid = ? OR new_uid = ?)")
		}
		args = append(args, f.ID, f.ID)
	}
	if f.FailedOnly {
		where = append(where, "applied = 0")
	}
	query := `SELECT dir, name, kind, old_uid, old_gid, new_uid, new_gid, applied FROM changes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " ORDER BY id LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []entry.Change
	for rows.Next() {
		var c entry.Change
		var dir, name string
		if err := rows.Scan(&dir, &name, &c.Kind, &c.OldUID, &c.OldGID, &c.NewUID, &c.NewGID, &c.Applied); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		c.Path = filepath.Join(dir, name)
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadChildren lists the direct children of parent that changed or have
// changes below them. sortBy is "name" or "changes".
func LoadChildren(db *sql.DB, parent, sortBy string, limit int) ([]DisplayEntry, error) {
	parent = pathutil.Normalize(parent)
	byName := map[string]*DisplayEntry{}

	rows, err := db.Query(`
		SELECT name, kind, old_uid, old_gid, new_uid, new_gid, applied
		FROM changes WHERE dir = ?
	`, parent)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	for rows.Next() {
		c := &entry.Change{}
		var name string
		if err := rows.Scan(&name, &c.Kind, &c.OldUID, &c.OldGID, &c.NewUID, &c.NewGID, &c.Applied); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		c.Path = filepath.Join(parent, name)
		byName[name] = &DisplayEntry{Path: c.Path, Name: name, Kind: c.Kind, Self: c}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prefix := pathutil.DirPrefix(parent)
	rows, err = db.Query(`
		SELECT CASE WHEN instr(rest, '/') = 0 THEN rest
		            ELSE substr(rest, 1, instr(rest, '/') - 1) END AS child,
		       COUNT(*)
		FROM (SELECT substr(dir, ?) AS rest FROM changes WHERE dir != ? AND substr(dir, 1, ?) = ?)
		GROUP BY child
	`, utf8.RuneCountInString(prefix)+1, parent, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if name == "" {
			continue
		}
		d, ok := byName[name]
		if !ok {
			d = &DisplayEntry{Path: filepath.Join(parent, name), Name: name, Kind: entry.KindDir}
			byName[name] = d
		}
		d.Below += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DisplayEntry, 0, len(byName))
	for _, d := range byName {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if sortBy != "name" && out[i].Total() != out[j].Total() {
			return out[i].Total() > out[j].Total()
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IDCount is the number of changes that moved one ID to another.
type IDCount struct {
	Kind  ident.Kind
	OldID ident.ID
	NewID ident.ID
	Count int64
}

// CountByID tallies recorded changes per (old, new) pair of each kind.
func CountByID(db *sql.DB) ([]IDCount, error) {
	rows, err := db.Query(`
		SELECT 0, old_uid, new_uid, COUNT(*) FROM changes WHERE old_uid != new_uid GROUP BY old_uid, new_uid
		UNION ALL
		SELECT 1, old_gid, new_gid, COUNT(*) FROM changes WHERE old_gid != new_gid GROUP BY old_gid, new_gid
		ORDER BY 1, 2
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []IDCount
	for rows.Next() {
		var c IDCount
		if err := rows.Scan(&c.Kind, &c.OldID, &c.NewID, &c.Count); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

