package remap

import (
	"context"
	"fmt"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/logger"
	"github.com/michaelscutari/remapid/internal/report"
)

// KindCounts tallies build outcomes for one kind.
type KindCounts struct {
	Records    int64
	Changed    int64
	Unchanged  int64
	Missing    int64
	Duplicates int64
}

// BuildResult tallies a build per kind.
type BuildResult struct {
	Users  KindCounts
	Groups KindCounts
}

// Of returns the counts for kind.
func (r *BuildResult) Of(kind ident.Kind) *KindCounts {
	if kind == ident.KindGroup {
		return &r.Groups
	}
	return &r.Users
}

// Total sums both kinds.
func (r BuildResult) Total() KindCounts {
	return KindCounts{
		Records:    r.Users.Records + r.Groups.Records,
		Changed:    r.Users.Changed + r.Groups.Changed,
		Unchanged:  r.Users.Unchanged + r.Groups.Unchanged,
		Missing:    r.Users.Missing + r.Groups.Missing,
		Duplicates: r.Users.Duplicates + r.Groups.Duplicates,
	}
}

// Builder re-resolves scanned names.
type Builder struct {
	Resolver ident.Resolver
	Progress *report.Progress
}

// Build resolves every record's name again and keeps the ones whose ID moved.
// A name that no longer resolves is dropped with a warning; one that resolves
// to its old ID is noted and dropped. A resolver failure aborts the build.
func Build(ctx context.Context, records []artifact.Record, resolver ident.Resolver) (Tables, BuildResult, error) {
	return (&Builder{Resolver: resolver}).Build(ctx, records)
}

// Build implements the package-level Build with progress reporting.
func (b *Builder) Build(ctx context.Context, records []artifact.Record) (Tables, BuildResult, error) {
	tables := NewTables()
	var res BuildResult
	seen := [2]map[ident.ID]string{{}, {}}
	total := int64(len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return tables, res, err
		}
		counts := res.Of(rec.Kind)
		counts.Records++
		b.Progress.Update(int64(i+1), total, "changed", res.Users.Changed+res.Groups.Changed)

		if prev, dup := seen[rec.Kind][rec.OldID]; dup {
			counts.Duplicates++
			logger.Warn("duplicate scan record, skipping",
				logger.KeyKind, rec.Kind.String(), logger.KeyOldID, rec.OldID,
				logger.KeyName, rec.Name, "kept", prev)
			continue
		}
		seen[rec.Kind][rec.OldID] = rec.Name

		newID, found, err := b.Resolver.LookupID(rec.Kind, rec.Name)
		if err != nil {
			return tables, res, fmt.Errorf("resolve %s %q: %w", rec.Kind.Short(), rec.Name, err)
		}
		switch {
		case !found:
			counts.Missing++
			logger.Warn("identity no longer exists",
				logger.KeyKind, rec.Kind.String(), logger.KeyName, rec.Name, logger.KeyOldID, rec.OldID)
		case newID == rec.OldID:
			counts.Unchanged++
			logger.Info("identity unchanged",
				logger.KeyKind, rec.Kind.String(), logger.KeyName, rec.Name, logger.KeyOldID, rec.OldID)
		default:
			counts.Changed++
			tables.Of(rec.Kind)[rec.OldID] = Target{NewID: newID, Name: rec.Name}
			logger.Debug("identity renumbered",
				logger.KeyKind, rec.Kind.String(), logger.KeyName, rec.Name,
				logger.KeyOldID, rec.OldID, logger.KeyNewID, newID)
		}
	}
	b.Progress.Finish()
	return tables, res, nil
}
