package scan

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenResolver struct{ ident.MapResolver }

func (*brokenResolver) LookupName(ident.Kind, ident.ID) (string, bool, error) {
	return "", false, errors.New("nss down")
}

type failAfter struct {
	n   int
	err error
}

func (f *failAfter) Write(artifact.Record) error {
	if f.n == 0 {
		return f.err
	}
	f.n--
	return nil
}

func TestRecorderEndToEndScenario(t *testing.T) {
	before := ident.NewMapResolver().
		Set(ident.KindUser, "alice", 1000).
		Set(ident.KindUser, "bob", 1002)

	var buf bytes.Buffer
	w := artifact.NewScanWriter(&buf)
	opts := DefaultOptions().WithUserRange(ident.Range{Start: 1000, End: 1002})

	res, err := NewRecorder(before, opts).Run(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, "users:1000:alice\nusers:1002:bob\n", buf.String())
	assert.Equal(t, KindResult{Scanned: 3, Found: 2}, res.Users)
	assert.Equal(t, KindResult{}, res.Groups)
	assert.Equal(t, 2, w.Count())
}

func TestRecorderUsersThenGroups(t *testing.T) {
	res := ident.NewMapResolver().
		Set(ident.KindGroup, "staff", 10).
		Set(ident.KindUser, "root", 0).
		Set(ident.KindUser, "ten", 10)

	var buf bytes.Buffer
	var progress bytes.Buffer
	rec := NewRecorder(res, DefaultOptions().WithRange(ident.Range{Start: 0, End: 10}))
	rec.SetProgress(report.NewProgress(&progress, "scan", report.ProgressOptions{}))

	got, err := rec.Run(context.Background(), artifact.NewScanWriter(&buf))
	require.NoError(t, err)
	assert.Equal(t, "users:0:root\nusers:10:ten\ngroups:10:staff\n", buf.String())
	assert.Equal(t, int64(22), got.Scanned())
	assert.Equal(t, int64(3), got.Found())
	assert.Empty(t, progress.String())
}

func TestRecorderEmptyRangeIsLegal(t *testing.T) {
	var buf bytes.Buffer
	res, err := NewRecorder(ident.NewMapResolver(), DefaultOptions().WithGroupRange(ident.Range{Start: 5000, End: 5009})).
		Run(context.Background(), artifact.NewScanWriter(&buf))
	require.NoError(t, err)
	assert.Empty(t, buf.String())
	assert.Equal(t, int64(10), res.Groups.Scanned)
}

func TestRecorderRequiresARange(t *testing.T) {
	_, err := NewRecorder(ident.NewMapResolver(), nil).Run(context.Background(), artifact.NewScanWriter(&bytes.Buffer{}))
	assert.ErrorIs(t, err, ErrNoRange)
}

func TestRecorderFailures(t *testing.T) {
	opts := DefaultOptions().WithUserRange(ident.Range{Start: 1, End: 3})

	_, err := NewRecorder(&brokenResolver{}, opts).Run(context.Background(), artifact.NewScanWriter(&bytes.Buffer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nss down")

	all := ident.NewMapResolver().Set(ident.KindUser, "a", 1).Set(ident.KindUser, "b", 2)
	diskFull := errors.New("disk full")
	res, err := NewRecorder(all, opts).Run(context.Background(), &failAfter{n: 1, err: diskFull})
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, int64(1), res.Users.Found)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRecorder(all, opts).Run(ctx, &failAfter{n: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsTotal(t *testing.T) {
	opts := DefaultOptions().WithUserRange(ident.Range{Start: 1000, End: 1999})
	assert.Equal(t, int64(1000), opts.Total())
	opts.WithGroupRange(ident.Range{Start: 7, End: 7})
	assert.Equal(t, int64(1001), opts.Total())
	assert.NoError(t, opts.Validate())
}
