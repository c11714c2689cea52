// Package census tallies the owners of a tree before a renumbering so the
// scan ranges can be chosen from what is actually on disk.
package census

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/michaelscutari/remapid/internal/apply"
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/logger"
	"github.com/michaelscutari/remapid/internal/report"
)

// Tally is the number of objects owned by one ID.
type Tally struct {
	Kind    ident.Kind
	ID      ident.ID
	Name    string
	Objects int64
}

// Resolved reports whether the ID has a name in the identity database.
func (t Tally) Resolved() bool {
	return t.Name != ""
}

// Result is the outcome of one census.
type Result struct {
	Objects    int64
	Unreadable int64
	Users      []Tally
	Groups     []Tally
	Start      time.Time
	End        time.Time
}

// Of returns the tallies of kind, most objects first.
func (r Result) Of(kind ident.Kind) []Tally {
	if kind == ident.KindGroup {
		return r.Groups
	}
	return r.Users
}

// Unresolved counts IDs of kind with no name.
func (r Result) Unresolved(kind ident.Kind) int {
	n := 0
	for _, t := range r.Of(kind) {
		if !t.Resolved() {
			n++
		}
	}
	return n
}

// Span returns the smallest range covering every non-superuser ID of kind.
func (r Result) Span(kind ident.Kind) (ident.Range, bool) {
	var span ident.Range
	found := false
	for _, t := range r.Of(kind) {
		if t.ID == ident.Superuser {
			continue
		}
		if !found || t.ID < span.Start {
			span.Start = t.ID
		}
		if !found || t.ID > span.End {
			span.End = t.ID
		}
		found = true
	}
	return span, found
}

// Elapsed returns the census wall time.
func (r Result) Elapsed() time.Duration { return r.End.Sub(r.Start) }

// Census walks a tree and counts objects per UID and GID.
type Census struct {
	FS       apply.FS
	Resolver ident.Resolver
	Walk     apply.WalkOptions
	Progress *report.Progress
}

// Run walks root. Unreadable objects are warned about and counted; a
// resolver failure is fatal.
func (c *Census) Run(ctx context.Context, root string) (Result, error) {
	res := Result{Start: time.Now()}
	uids := map[ident.ID]int64{}
	gids := map[ident.ID]int64{}

	opts := c.Walk
	opts.OnError = func(op, path string, err error) {
		logger.Warn("cannot read object", logger.KeyPath, path, "op", op, logger.KeyError, err)
		if op == "lstat" {
			res.Unreadable++
		}
	}

	c.Progress.Start()
	err := apply.Walk(ctx, c.FS, root, opts, func(obj entry.Object) error {
		res.Objects++
		uids[obj.UID]++
		gids[obj.GID]++
		c.Progress.Update(res.Objects, 0, "owners", len(uids))
		return nil
	})
	c.Progress.Finish()
	if err != nil {
		res.End = time.Now()
		return res, err
	}

	if res.Users, err = c.tally(ident.KindUser, uids); err != nil {
		return res, err
	}
	if res.Groups, err = c.tally(ident.KindGroup, gids); err != nil {
		return res, err
	}
	res.End = time.Now()
	return res, nil
}

func (c *Census) tally(kind ident.Kind, counts map[ident.ID]int64) ([]Tally, error) {
	out := make([]Tally, 0, len(counts))
	for id, n := range counts {
		name, ok, err := c.Resolver.LookupName(kind, id)
		if err != nil {
			return nil, fmt.Errorf("resolve %s %d: %w", kind.Short(), id, err)
		}
		if !ok {
			logger.Debug("owner has no name", logger.KeyKind, kind.String(), logger.KeyOldID, id)
		}
		out = append(out, Tally{Kind: kind, ID: id, Name: name, Objects: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Objects != out[j].Objects {
			return out[i].Objects > out[j].Objects
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
