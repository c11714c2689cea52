// Package scan records which names own which IDs before a renumbering.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/logger"
	"github.com/michaelscutari/remapid/internal/report"
)

// KindResult counts one kind's scan.
type KindResult struct {
	Scanned int64
	Found   int64
}

// Result summarizes a scan.
type Result struct {
	Users  KindResult
	Groups KindResult
	Start  time.Time
	End    time.Time
}

// Of returns the counts for kind.
func (r *Result) Of(kind ident.Kind) *KindResult {
	if kind == ident.KindGroup {
		return &r.Groups
	}
	return &r.Users
}

// Found returns the number of records written.
func (r Result) Found() int64 { return r.Users.Found + r.Groups.Found }

// Scanned returns the number of IDs looked up.
func (r Result) Scanned() int64 { return r.Users.Scanned + r.Groups.Scanned }

// Elapsed returns the scan duration.
func (r Result) Elapsed() time.Duration { return r.End.Sub(r.Start) }

// Recorder walks the configured ID ranges.
type Recorder struct {
	opts     *Options
	resolver ident.Resolver
	progress *report.Progress
}

// NewRecorder creates a recorder.
func NewRecorder(resolver ident.Resolver, opts *Options) *Recorder {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Recorder{opts: opts, resolver: resolver}
}

// SetProgress attaches a progress reporter.
func (r *Recorder) SetProgress(p *report.Progress) {
	r.progress = p
}

// Run looks up every ID in the user range, then the group range, and writes
// a record for each one that has a name. Records are handed to w as they are
// found. Resolver and writer failures abort the scan; records already written
// stay written.
func (r *Recorder) Run(ctx context.Context, w artifact.RecordWriter) (Result, error) {
	res := Result{Start: time.Now()}
	if err := r.opts.Validate(); err != nil {
		res.End = res.Start
		return res, err
	}
	total := r.opts.Total()
	var done int64
	r.progress.Start()
	defer r.progress.Finish()

	for _, kind := range ident.Kinds {
		rng := r.opts.RangeOf(kind)
		if rng == nil {
			continue
		}
		counts := res.Of(kind)
		logger.Debug("scanning range", logger.KeyKind, kind.String(), "range", rng.String())
		for id := rng.Start; ; id++ {
			if err := ctx.Err(); err != nil {
				res.End = time.Now()
				return res, err
			}
			name, found, err := r.resolver.LookupName(kind, id)
			if err != nil {
				res.End = time.Now()
				return res, fmt.Errorf("resolve %s %d: %w", kind.Short(), id, err)
			}
			counts.Scanned++
			done++
			if found {
				if err := w.Write(artifact.Record{Kind: kind, OldID: id, Name: name}); err != nil {
					res.End = time.Now()
					return res, err
				}
				counts.Found++
			}
			r.progress.Update(done, total, "found", res.Found())
			if id == rng.End {
				break
			}
		}
	}
	res.End = time.Now()
	return res, nil
}
