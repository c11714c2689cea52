// Package remap derives old-ID to new-ID substitution tables from a scan and
// a fresh look at the identity database.
package remap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/logger"
)

// Target is the replacement for one old ID.
type Target struct {
	NewID ident.ID
	Name  string
}

// Table maps old IDs of one kind to their replacement.
type Table map[ident.ID]Target

// Lookup reports the replacement for id. Presence is explicit: a target of
// ID 0 is still a hit.
func (t Table) Lookup(id ident.ID) (Target, bool) {
	tgt, ok := t[id]
	return tgt, ok
}

// Tables holds the user and group tables. The two never substitute for each
// other.
type Tables struct {
	Users  Table
	Groups Table
}

// NewTables returns empty tables.
func NewTables() Tables {
	return Tables{Users: Table{}, Groups: Table{}}
}

// Of returns the table for kind.
func (t Tables) Of(kind ident.Kind) Table {
	if kind == ident.KindGroup {
		return t.Groups
	}
	return t.Users
}

// Len returns the total number of entries.
func (t Tables) Len() int {
	return len(t.Users) + len(t.Groups)
}

// Empty reports whether nothing would be substituted.
func (t Tables) Empty() bool {
	return t.Len() == 0
}

// Entries returns every entry, users first, each kind ascending by old ID.
func (t Tables) Entries() []artifact.Entry {
	entries := make([]artifact.Entry, 0, t.Len())
	for _, kind := range ident.Kinds {
		tbl := t.Of(kind)
		ids := make([]ident.ID, 0, len(tbl))
		for id := range tbl {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			tgt := tbl[id]
			entries = append(entries, artifact.Entry{Kind: kind, OldID: id, Name: tgt.Name, NewID: tgt.NewID})
		}
	}
	return entries
}

// TablesFromEntries loads tables from a map artifact. A repeated old ID keeps
// the first entry and entries whose ID did not change are ignored, both with
// a warning.
func TablesFromEntries(entries []artifact.Entry) Tables {
	t := NewTables()
	for _, e := range entries {
		tbl := t.Of(e.Kind)
		if e.OldID == e.NewID {
			logger.Warn("map entry does not change the ID, ignoring",
				logger.KeyKind, e.Kind.String(), logger.KeyOldID, e.OldID, logger.KeyName, e.Name)
			continue
		}
		if prev, ok := tbl[e.OldID]; ok {
			logger.Warn("duplicate map entry, keeping the first",
				logger.KeyKind, e.Kind.String(), logger.KeyOldID, e.OldID,
				logger.KeyName, e.Name, "kept", prev.Name)
			continue
		}
		tbl[e.OldID] = Target{NewID: e.NewID, Name: e.Name}
	}
	return t
}

// Collision is a set of old IDs that share one new ID.
type Collision struct {
	Kind   ident.Kind
	NewID  ident.ID
	OldIDs []ident.ID
}

func (c Collision) String() string {
	ids := make([]string, len(c.OldIDs))
	for i, id := range c.OldIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%s %d <- %s", c.Kind.Short(), c.NewID, strings.Join(ids, ","))
}

// Invert swaps old and new IDs in both tables, so applying the result undoes
// an earlier application of t. If two old IDs share a new ID the inverse is
// ambiguous and ErrAmbiguousInverse is returned naming every collision.
func (t Tables) Invert() (Tables, error) {
	inv := NewTables()
	var collisions []Collision
	for _, kind := range ident.Kinds {
		src := t.Of(kind)
		dst := inv.Of(kind)
		sources := map[ident.ID][]ident.ID{}
		for oldID, tgt := range src {
			sources[tgt.NewID] = append(sources[tgt.NewID], oldID)
			dst[tgt.NewID] = Target{NewID: oldID, Name: tgt.Name}
		}
		for newID, olds := range sources {
			if len(olds) > 1 {
				sort.Slice(olds, func(i, j int) bool { return olds[i] < olds[j] })
				collisions = append(collisions, Collision{Kind: kind, NewID: newID, OldIDs: olds})
			}
		}
	}
	if len(collisions) > 0 {
		sort.Slice(collisions, func(i, j int) bool {
			if collisions[i].Kind != collisions[j].Kind {
				return collisions[i].Kind < collisions[j].Kind
			}
			return collisions[i].NewID < collisions[j].NewID
		})
		parts := make([]string, len(collisions))
		for i, c := range collisions {
			parts[i] = c.String()
		}
		return Tables{}, fmt.Errorf("%w: %s", ErrAmbiguousInverse, strings.Join(parts, "; "))
	}
	return inv, nil
}

// Overlap is an ID that is both replaced and a replacement within one kind,
// as in a swap (a->b, b->a) or a chain (a->b, b->c).
type Overlap struct {
	Kind ident.Kind
	ID   ident.ID
}

// Overlaps lists IDs that appear as both a source and a target. Applying
// such a table twice is not idempotent.
func (t Tables) Overlaps() []Overlap {
	var out []Overlap
	for _, kind := range ident.Kinds {
		tbl := t.Of(kind)
		seen := map[ident.ID]bool{}
		var ids []ident.ID
		for _, tgt := range tbl {
			if _, ok := tbl[tgt.NewID]; ok && !seen[tgt.NewID] {
				seen[tgt.NewID] = true
				ids = append(ids, tgt.NewID)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			out = append(out, Overlap{Kind: kind, ID: id})
		}
	}
	return out
}

// Reserved lists entries that use NoChange on either side.
func (t Tables) Reserved() []artifact.Entry {
	var out []artifact.Entry
	for _, e := range t.Entries() {
		if e.OldID == ident.NoChange || e.NewID == ident.NoChange {
			out = append(out, e)
		}
	}
	return out
}

// Superuser lists entries that touch ID 0 on either side.
func (t Tables) Superuser() []artifact.Entry {
	var out []artifact.Entry
	for _, e := range t.Entries() {
		if e.OldID == ident.Superuser || e.NewID == ident.Superuser {
			out = append(out, e)
		}
	}
	return out
}
