// Package apply rewrites file ownership according to remap tables in a
// single traversal.
package apply

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/logger"
	"github.com/michaelscutari/remapid/internal/remap"
	"github.com/michaelscutari/remapid/internal/report"
)

// Options configures a Remapper run.
type Options struct {
	DryRun  bool
	Exclude []*regexp.Regexp
	Xdev    bool
}

// Journal records what a run did. Writes are synchronous.
type Journal interface {
	RecordChange(c entry.Change) error
	RecordWarning(w entry.Warning) error
}

// Stats are the counters of one traversal.
type Stats struct {
	Checked  int64 // objects visited, including ones that could not be read
	Changed  int64 // ownership changed, or would change in a dry run
	Failed   int64 // lchown failures
	Skipped  int64 // objects that could not be read
	Warnings int64
	Start    time.Time
	End      time.Time
}

// Elapsed returns the traversal duration.
func (s Stats) Elapsed() time.Duration {
	if s.End.IsZero() {
		return time.Since(s.Start)
	}
	return s.End.Sub(s.Start)
}

// Remapper applies remap tables to a tree.
type Remapper struct {
	FS       FS
	Tables   remap.Tables
	Options  Options
	Progress *report.Progress
	Journal  Journal
	// Out receives dry-run lines. Nil discards them.
	Out io.Writer
}

// CheckTables fails with ErrSuperuserID if any entry has ID 0 on either
// side, and with ErrReservedID if any entry uses ident.NoChange.
func CheckTables(t remap.Tables) error {
	if bad := t.Superuser(); len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrSuperuserID, joinEntries(bad))
	}
	if bad := t.Reserved(); len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrReservedID, joinEntries(bad))
	}
	return nil
}

func joinEntries(entries []artifact.Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

// planChange returns the ownership obj should have. ok is false when neither
// ID has a table entry.
func planChange(obj entry.Object, t remap.Tables) (c entry.Change, ok bool, err error) {
	c = entry.Change{
		Path:   obj.Path,
		Kind:   obj.Kind,
		OldUID: obj.UID,
		OldGID: obj.GID,
		NewUID: obj.UID,
		NewGID: obj.GID,
	}
	if tgt, hit := t.Users.Lookup(obj.UID); hit {
		if obj.UID == ident.Superuser || tgt.NewID == ident.Superuser {
			return c, false, fmt.Errorf("%w: uid %d -> %d at %s", ErrSuperuserID, obj.UID, tgt.NewID, obj.Path)
		}
		if tgt.NewID == ident.NoChange {
			return c, false, fmt.Errorf("%w: uid %d at %s", ErrReservedID, obj.UID, obj.Path)
		}
		c.NewUID, ok = tgt.NewID, true
	}
	if tgt, hit := t.Groups.Lookup(obj.GID); hit {
		if obj.GID == ident.Superuser || tgt.NewID == ident.Superuser {
			return c, false, fmt.Errorf("%w: gid %d -> %d at %s", ErrSuperuserID, obj.GID, tgt.NewID, obj.Path)
		}
		if tgt.NewID == ident.NoChange {
			return c, false, fmt.Errorf("%w: gid %d at %s", ErrReservedID, obj.GID, obj.Path)
		}
		c.NewGID, ok = tgt.NewID, true
	}
	return c, ok, nil
}

func chownArgs(c entry.Change) (uid, gid int) {
	uid, gid = -1, -1
	if c.UIDChanged() {
		uid = int(c.NewUID)
	}
	if c.GIDChanged() {
		gid = int(c.NewGID)
	}
	return uid, gid
}

// Run walks base and rewrites every object whose user or group has a table
// entry. Read and chown failures are warnings. ID 0 on either side of any
// entry aborts the run, before the walk when the tables say so up front.
// Stats are returned even when err is non-nil.
func (r *Remapper) Run(ctx context.Context, base string) (Stats, error) {
	stats := Stats{Start: time.Now()}
	finish := func(err error) (Stats, error) {
		stats.End = time.Now()
		return stats, err
	}

	if err := CheckTables(r.Tables); err != nil {
		return finish(err)
	}
	fsys := r.FS
	if fsys == nil {
		fsys = OSFS{}
	}
	if _, err := fsys.Lstat(base); err != nil {
		return finish(fmt.Errorf("%w: %w", ErrBasePath, err))
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}

	var journalErr error
	warn := func(path, msg string, err error) {
		stats.Warnings++
		logger.Warn(msg, logger.KeyPath, path, logger.KeyError, err)
		if r.Journal != nil && journalErr == nil {
			journalErr = r.Journal.RecordWarning(entry.Warning{Path: path, Message: fmt.Sprintf("%s: %v", msg, err)})
		}
	}

	opts := WalkOptions{
		Exclude: r.Options.Exclude,
		Xdev:    r.Options.Xdev,
		OnError: func(op, path string, err error) {
			if op == "lstat" {
				stats.Checked++
				stats.Skipped++
				warn(path, "cannot read ownership, skipping", err)
				return
			}
			warn(path, "directory listing incomplete", err)
		},
	}

	r.Progress.Start()
	err := Walk(ctx, fsys, base, opts, func(obj entry.Object) error {
		stats.Checked++
		defer func() { r.Progress.Update(stats.Checked, 0, "changed", stats.Changed) }()

		c, hit, err := planChange(obj, r.Tables)
		if err != nil {
			return err
		}
		if !hit {
			return journalErr
		}

		if r.Options.DryRun {
			fmt.Fprintf(out, "dry-run: chown %d:%d %s\n", c.NewUID, c.NewGID, c.Path)
			stats.Changed++
		} else {
			uid, gid := chownArgs(c)
			if err := fsys.Lchown(c.Path, uid, gid); err != nil {
				stats.Failed++
				warn(c.Path, "cannot change ownership", err)
			} else {
				c.Applied = true
				stats.Changed++
				logger.Debug("changed ownership", logger.KeyPath, c.Path,
					logger.KeyUID, fmt.Sprintf("%d->%d", c.OldUID, c.NewUID),
					logger.KeyGID, fmt.Sprintf("%d->%d", c.OldGID, c.NewGID))
			}
		}
		if r.Journal != nil && journalErr == nil {
			journalErr = r.Journal.RecordChange(c)
		}
		return journalErr
	})
	r.Progress.Finish()

	if journalErr != nil {
		return finish(fmt.Errorf("write journal: %w", journalErr))
	}
	return finish(err)
}
