package ident

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	r, err := ParseRange("1000-1002")
	require.NoError(t, err)
	assert.Equal(t, Range{Start: 1000, End: 1002}, r)
	assert.EqualValues(t, 3, r.Len())

	single, err := ParseRange("42")
	require.NoError(t, err)
	assert.Equal(t, Range{Start: 42, End: 42}, single)

	for _, bad := range []string{"", "abc", "10-5", "-5", "1-x", "0-4294967295"} {
		_, err := ParseRange(bad)
		assert.ErrorIs(t, err, ErrInvalidRange, "input %q", bad)
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("users")
	require.NoError(t, err)
	assert.Equal(t, KindUser, k)

	k, err = ParseKind("groups")
	require.NoError(t, err)
	assert.Equal(t, KindGroup, k)

	_, err = ParseKind("user")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFileResolver(t *testing.T) {
	dir := t.TempDir()
	passwd := filepath.Join(dir, "passwd")
	group := filepath.Join(dir, "group")
	require.NoError(t, os.WriteFile(passwd, []byte(
		"# comment\nroot:x:0:0:root:/root:/bin/sh\nalice:x:1000:1000::/home/alice:/bin/sh\nbroken\nbob:x:1002:1002::/home/bob:/bin/sh\n"), 0o644))
	require.NoError(t, os.WriteFile(group, []byte("root:x:0:\nstaff:x:50:alice,bob\n"), 0o644))

	r := FileResolver{PasswdPath: passwd, GroupPath: group}

	name, ok, err := r.LookupName(KindUser, 1000)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok, err = r.LookupName(KindUser, 1001)
	require.NoError(t, err)
	assert.False(t, ok)

	id, ok, err := r.LookupID(KindGroup, "staff")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 50, id)

	// Renumber on disk: the next call sees it.
	require.NoError(t, os.WriteFile(passwd, []byte("alice:x:2000:1000::/home/alice:/bin/sh\n"), 0o644))
	id, ok, err = r.LookupID(KindUser, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 2000, id)
}

func TestFileResolverLongGroupLine(t *testing.T) {
	dir := t.TempDir()
	group := filepath.Join(dir, "group")
	members := strings.TrimSuffix(strings.Repeat("member,", 20000), ",")
	require.NoError(t, os.WriteFile(group, []byte("big:x:700:"+members+"\nstaff:x:50:"), 0o644))

	r := FileResolver{GroupPath: group}
	id, ok, err := r.LookupID(KindGroup, "big")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 700, id)

	name, ok, err := r.LookupName(KindGroup, 50)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "staff", name)
}

func TestFileResolverMissingFile(t *testing.T) {
	r := FileResolver{PasswdPath: filepath.Join(t.TempDir(), "nope")}
	_, _, err := r.LookupID(KindUser, "alice")
	assert.ErrorIs(t, err, ErrLookup)

	_, _, err = r.LookupID(KindGroup, "staff")
	assert.ErrorIs(t, err, ErrLookup)
}

func TestMapResolver(t *testing.T) {
	m := NewMapResolver().Set(KindUser, "alice", 1000).Set(KindGroup, "alice", 5000)

	name, ok, _ := m.LookupName(KindUser, 1000)
	assert.True(t, ok)
	assert.Equal(t, "alice", name)

	_, ok, _ = m.LookupName(KindUser, 5000)
	assert.False(t, ok, "namespaces must not cross")

	m.Set(KindUser, "alice", 2000)
	id, ok, _ := m.LookupID(KindUser, "alice")
	assert.True(t, ok)
	assert.EqualValues(t, 2000, id)

	m.Delete(KindUser, "alice")
	_, ok, _ = m.LookupID(KindUser, "alice")
	assert.False(t, ok)
}
