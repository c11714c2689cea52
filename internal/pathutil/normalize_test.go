package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "/srv/data", Normalize("/srv/data/"))
	assert.Equal(t, "/srv", Normalize("/srv/data/.."))
	assert.Equal(t, "rel/dir", Normalize("./rel//dir"))
}

func TestAbsolute(t *testing.T) {
	got, err := Absolute("/srv/./data/")
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", got)

	got, err = Absolute("x")
	require.NoError(t, err)
	assert.True(t, len(got) > 1 && got[0] == '/')
}

func TestDirPrefix(t *testing.T) {
	assert.Equal(t, "/srv/", DirPrefix("/srv"))
	assert.Equal(t, "/", DirPrefix("/"))
}

func TestWithin(t *testing.T) {
	assert.True(t, Within("/srv/data", "/srv/data"))
	assert.True(t, Within("/srv/data/a/b", "/srv/data/"))
	assert.False(t, Within("/srv/database", "/srv/data"))
	assert.False(t, Within("/srv", "/srv/data"))
	assert.True(t, Within("/etc", "/"))
}

func TestParentStopsAtBase(t *testing.T) {
	assert.Equal(t, "/srv/data/a", Parent("/srv/data/a/b", "/srv/data"))
	assert.Equal(t, "/srv/data", Parent("/srv/data/a", "/srv/data"))
	assert.Equal(t, "/srv/data", Parent("/srv/data", "/srv/data"))
	assert.Equal(t, "/", Parent("/srv", "/"))
}
