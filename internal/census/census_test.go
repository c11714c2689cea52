package census

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"testing"

	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// treeFS is a read-only tree keyed by path.
type treeFS struct {
	objs     map[string]entry.Object
	lstatErr map[string]error
}

func (t *treeFS) add(path string, kind entry.Kind, uid, gid uint32) {
	t.objs[path] = entry.Object{Path: path, Kind: kind, UID: uid, GID: gid, Dev: 1, Ino: uint64(len(t.objs) + 1), Nlink: 1}
}

func (t *treeFS) Lstat(path string) (entry.Object, error) {
	if err := t.lstatErr[path]; err != nil {
		return entry.Object{}, err
	}
	obj, ok := t.objs[path]
	if !ok {
		return entry.Object{}, fs.ErrNotExist
	}
	return obj, nil
}

func (t *treeFS) ReadDir(path string) ([]string, error) {
	var names []string
	for p := range t.objs {
		if p != path && filepath.Dir(p) == path {
			names = append(names, filepath.Base(p))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (t *treeFS) Lchown(string, int, int) error {
	return errors.New("read-only")
}

type brokenResolver struct{ ident.MapResolver }

func (*brokenResolver) LookupName(ident.Kind, ident.ID) (string, bool, error) {
	return "", false, errors.New("directory down")
}

func sampleTree() *treeFS {
	t := &treeFS{objs: map[string]entry.Object{}, lstatErr: map[string]error{}}
	t.add("/srv", entry.KindDir, 0, 0)
	t.add("/srv/a", entry.KindFile, 1000, 100)
	t.add("/srv/b", entry.KindFile, 1000, 100)
	t.add("/srv/c", entry.KindFile, 1005, 100)
	t.add("/srv/d", entry.KindDir, 1000, 200)
	t.add("/srv/d/e", entry.KindSymlink, 1000, 200)
	t.add("/srv/locked", entry.KindFile, 1000, 100)
	t.lstatErr["/srv/locked"] = fs.ErrPermission
	return t
}

func TestCensusTalliesOwners(t *testing.T) {
	resolver := ident.NewMapResolver().
		Set(ident.KindUser, "root", 0).
		Set(ident.KindUser, "alice", 1000).
		Set(ident.KindGroup, "root", 0).
		Set(ident.KindGroup, "staff", 100)

	c := &Census{FS: sampleTree(), Resolver: resolver}
	res, err := c.Run(context.Background(), "/srv")
	require.NoError(t, err)

	assert.Equal(t, int64(6), res.Objects)
	assert.Equal(t, int64(1), res.Unreadable)
	assert.Equal(t, []Tally{
		{Kind: ident.KindUser, ID: 1000, Name: "alice", Objects: 4},
		{Kind: ident.KindUser, ID: 0, Name: "root", Objects: 1},
		{Kind: ident.KindUser, ID: 1005, Objects: 1},
	}, res.Users)
	assert.Equal(t, 1, res.Unresolved(ident.KindUser))
	assert.Equal(t, 1, res.Unresolved(ident.KindGroup))

	span, ok := res.Span(ident.KindUser)
	require.True(t, ok)
	assert.Equal(t, ident.Range{Start: 1000, End: 1005}, span)

	span, ok = res.Span(ident.KindGroup)
	require.True(t, ok)
	assert.Equal(t, ident.Range{Start: 100, End: 200}, span)
}

func TestCensusExclude(t *testing.T) {
	c := &Census{FS: sampleTree(), Resolver: ident.NewMapResolver()}
	require.NoError(t, c.Walk.AddExcludePattern(`/d$`))
	res, err := c.Run(context.Background(), "/srv")
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Objects)
	_, ok := res.Span(ident.KindGroup)
	assert.True(t, ok)
}

func TestCensusResolverFailure(t *testing.T) {
	c := &Census{FS: sampleTree(), Resolver: &brokenResolver{}}
	_, err := c.Run(context.Background(), "/srv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory down")
}

func TestCensusMissingRoot(t *testing.T) {
	c := &Census{FS: sampleTree(), Resolver: ident.NewMapResolver()}
	_, err := c.Run(context.Background(), "/nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSpanIgnoresSuperuser(t *testing.T) {
	res := Result{Users: []Tally{{Kind: ident.KindUser, ID: 0, Objects: 4}}}
	_, ok := res.Span(ident.KindUser)
	assert.False(t, ok)
}
