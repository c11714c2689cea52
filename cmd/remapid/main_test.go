package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/michaelscutari/remapid/internal/config"
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/journal"
	"github.com/michaelscutari/remapid/internal/remap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags undoes the previous Execute; cobra keeps parsed values.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestScanMapAndDryRunApply(t *testing.T) {
	dir := t.TempDir()
	passwd := filepath.Join(dir, "passwd")
	group := filepath.Join(dir, "group")
	scanFile := filepath.Join(dir, "ids.scan")
	mapFile := filepath.Join(dir, "ids.map")
	journalDir := filepath.Join(dir, "journal")
	tree := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(tree, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "sub", "f"), []byte("x"), 0644))

	write := func(path, content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	ids := []string{"--passwd-file", passwd, "--group-file", group}

	write(passwd, "alice:x:1000:1000::/home/alice:/bin/sh\nbob:x:1002:1002::/home/bob:/bin/sh\n")
	write(group, "devs:x:1001:alice,bob\n")
	require.NoError(t, execute(t, append([]string{"scan", "--range", "1000-1002", "--scan-file", scanFile}, ids...)...))

	raw, err := os.ReadFile(scanFile)
	require.NoError(t, err)
	assert.Equal(t, "users:1000:alice\nusers:1002:bob\ngroups:1001:devs\n", string(raw))

	// The renumbering.
	write(passwd, "alice:x:2000:2000::/home/alice:/bin/sh\nbob:x:1002:1002::/home/bob:/bin/sh\n")
	write(group, "devs:x:3001:alice,bob\n")
	require.NoError(t, execute(t, append([]string{"map", "--scan-file", scanFile, "--map-file", mapFile}, ids...)...))

	raw, err = os.ReadFile(mapFile)
	require.NoError(t, err)
	assert.Equal(t, "users:1000:alice:2000\ngroups:1001:devs:3001\n", string(raw))

	require.NoError(t, execute(t, "file", "--map-file", mapFile, "--path", tree, "--dry-run", "--journal-dir", journalDir))
	_, err = os.Stat(filepath.Join(journalDir, "latest.db"))
	require.NoError(t, err)

	require.NoError(t, execute(t, "info", "--journal", filepath.Join(journalDir, "latest.db"), "--output", "yaml"))
	require.NoError(t, execute(t, "query", "--journal", filepath.Join(journalDir, "latest.db")))
}

// journalRun reads back the single run journaled under dir.
func journalRun(t *testing.T, dir string) (*entry.RunMeta, []entry.Change) {
	t.Helper()
	db, err := journal.Open(filepath.Join(dir, "latest.db"))
	require.NoError(t, err)
	defer db.Close()
	meta, err := journal.GetRunMeta(db)
	require.NoError(t, err)
	changes, err := journal.LoadChanges(db, journal.ChangeFilter{})
	require.NoError(t, err)
	return meta, changes
}

// The tree is owned by the test's own uid, so a dry run can plan real
// changes without privileges.
func TestAfterAndReverseDryRun(t *testing.T) {
	uid := os.Getuid()
	if uid == 0 || uid >= 1<<31 {
		t.Skip("needs an unprivileged uid")
	}
	dir := t.TempDir()
	passwd := filepath.Join(dir, "passwd")
	group := filepath.Join(dir, "group")
	scanFile := filepath.Join(dir, "ids.scan")
	mapFile := filepath.Join(dir, "ids.map")
	tree := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(tree, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tree, "sub", "f"), []byte("x"), 0644))

	write := func(path, content string) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	ids := []string{"--passwd-file", passwd, "--group-file", group}
	write(group, "")

	write(passwd, fmt.Sprintf("alice:x:%d:%d::/home/alice:/bin/sh\n", uid, uid))
	require.NoError(t, execute(t, append([]string{"scan", "--range", fmt.Sprint(uid), "--scan-file", scanFile}, ids...)...))

	write(passwd, fmt.Sprintf("alice:x:%d:%d::/home/alice:/bin/sh\n", uid+1, uid))
	afterJournal := filepath.Join(dir, "after")
	require.NoError(t, execute(t, append([]string{"after", "--scan-file", scanFile, "--path", tree,
		"--dry-run", "--journal-dir", afterJournal}, ids...)...))

	meta, changes := journalRun(t, afterJournal)
	assert.Equal(t, "after", meta.Mode)
	assert.True(t, meta.DryRun)
	assert.Equal(t, "complete", meta.Status)
	require.Len(t, changes, 3, "tree, tree/sub and tree/sub/f")
	for _, c := range changes {
		assert.EqualValues(t, uid, c.OldUID, c.Path)
		assert.EqualValues(t, uid+1, c.NewUID, c.Path)
		assert.False(t, c.Applied, "dry run must not apply %s", c.Path)
	}

	// Reversed, the map moves the current owner back to its old ID.
	write(mapFile, fmt.Sprintf("users:%d:alice:%d\n", uid+7, uid))
	reverseJournal := filepath.Join(dir, "reverse")
	require.NoError(t, execute(t, "file", "--map-file", mapFile, "--path", tree,
		"--reverse", "--dry-run", "--journal-dir", reverseJournal))

	meta, changes = journalRun(t, reverseJournal)
	assert.Equal(t, "file", meta.Mode)
	assert.True(t, meta.Reverse)
	require.Len(t, changes, 3)
	for _, c := range changes {
		assert.EqualValues(t, uid+7, c.NewUID, c.Path)
	}

	// Two old IDs folded into one new ID cannot be reversed.
	write(mapFile, fmt.Sprintf("users:%d:alice:%d\nusers:%d:carol:%d\n", uid+7, uid, uid+8, uid))
	err := execute(t, "file", "--map-file", mapFile, "--path", tree, "--reverse", "--dry-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, remap.ErrAmbiguousInverse)
	assert.Contains(t, err.Error(), "cannot reverse map")
}

func TestConfigurationErrorsStopEarly(t *testing.T) {
	dir := t.TempDir()
	scanFile := filepath.Join(dir, "never.scan")

	err := execute(t, "scan", "--scan-file", scanFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing ID range")
	_, statErr := os.Stat(scanFile)
	assert.True(t, os.IsNotExist(statErr), "no artifact should be created on a configuration error")

	err = execute(t, "file", "--map-file", filepath.Join(dir, "x.map"), "--path", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--path is required")

	err = execute(t, "file", "--map-file", "", "--path", dir)
	require.ErrorIs(t, err, config.ErrMissingFile)
	assert.Contains(t, err.Error(), "--map-file is required")
}
