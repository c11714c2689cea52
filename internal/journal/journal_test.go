package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/ident"
)

func sampleRun(t *testing.T, dir string, start time.Time, changes []entry.Change) string {
	t.Helper()
	mgr := NewManager(dir, 0)
	mgr.SetBatchSize(2)

	run, err := mgr.Begin(entry.RunMeta{Mode: "apply", BasePath: "/srv", StartTime: start}, []artifact.Entry{
		{Kind: ident.KindUser, OldID: 1000, Name: "alice", NewID: 2000},
		{Kind: ident.KindGroup, OldID: 50, Name: "staff", NewID: 60},
	})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, c := range changes {
		if err := run.RecordChange(c); err != nil {
			t.Fatalf("record change: %v", err)
		}
	}
	if err := run.RecordWarning(entry.Warning{Path: "/srv/locked", Message: "permission denied"}); err != nil {
		t.Fatalf("record warning: %v", err)
	}
	meta := run.Meta
	meta.Checked = 10
	meta.Changed = int64(len(changes))
	meta.Warnings = 1
	meta.Status = "complete"
	path, err := run.Close(meta)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

var sampleChanges = []entry.Change{
	{Path: "/srv", Kind: entry.KindDir, OldUID: 1000, OldGID: 50, NewUID: 2000, NewGID: 60, Applied: true},
	{Path: "/srv/a.txt", Kind: entry.KindFile, OldUID: 1000, OldGID: 7, NewUID: 2000, NewGID: 7, Applied: true},
	{Path: "/srv/sub", Kind: entry.KindDir, OldUID: 1000, OldGID: 7, NewUID: 2000, NewGID: 7, Applied: true},
	{Path: "/srv/sub/b.txt", Kind: entry.KindFile, OldUID: 5, OldGID: 50, NewUID: 5, NewGID: 60, Applied: false},
	{Path: "/srv/deep/er/c.txt", Kind: entry.KindFile, OldUID: 1000, OldGID: 50, NewUID: 2000, NewGID: 60, Applied: true},
}

func TestRunJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := sampleRun(t, dir, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), sampleChanges)

	if !strings.HasPrefix(filepath.Base(path), "remapid-") {
		t.Fatalf("unexpected journal name %s", path)
	}
	database, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	meta, err := GetRunMeta(database)
	if err != nil {
		t.Fatalf("run meta: %v", err)
	}
	if meta.Status != "complete" || meta.Checked != 10 || meta.Changed != 5 || meta.BasePath != "/srv" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta.RunID == "" {
		t.Fatalf("expected a generated run id")
	}

	mappings, err := LoadMappings(database)
	if err != nil {
		t.Fatalf("mappings: %v", err)
	}
	if len(mappings) != 2 || mappings[0].String() != "users:1000:alice:2000" {
		t.Fatalf("unexpected mappings: %v", mappings)
	}

	changes, err := LoadChanges(database, ChangeFilter{})
	if err != nil {
		t.Fatalf("changes: %v", err)
	}
	if len(changes) != len(sampleChanges) {
		t.Fatalf("expected %d changes, got %d", len(sampleChanges), len(changes))
	}
	for i := range changes {
		if changes[i] != sampleChanges[i] {
			t.Fatalf("change %d: got %+v want %+v", i, changes[i], sampleChanges[i])
		}
	}

	failed, err := LoadChanges(database, ChangeFilter{FailedOnly: true})
	if err != nil {
		t.Fatalf("failed changes: %v", err)
	}
	if len(failed) != 1 || failed[0].Path != "/srv/sub/b.txt" {
		t.Fatalf("unexpected failed changes: %+v", failed)
	}

	group := ident.KindGroup
	byGID, err := LoadChanges(database, ChangeFilter{Kind: &group, ID: 60, Under: "/srv/sub"})
	if err != nil {
		t.Fatalf("changes by gid: %v", err)
	}
	if len(byGID) != 1 {
		t.Fatalf("expected 1 change under /srv/sub with gid 60, got %+v", byGID)
	}

	warnings, err := LoadWarnings(database, 0)
	if err != nil {
		t.Fatalf("warnings: %v", err)
	}
	if len(warnings) != 1 || warnings[0].Path != "/srv/locked" {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}

	counts, err := CountByID(database)
	if err != nil {
		t.Fatalf("count by id: %v", err)
	}
	want := []IDCount{
		{Kind: ident.KindUser, OldID: 1000, NewID: 2000, Count: 4},
		{Kind: ident.KindGroup, OldID: 50, NewID: 60, Count: 3},
	}
	if len(counts) != len(want) || counts[0] != want[0] || counts[1] != want[1] {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestLoadChildren(t *testing.T) {
	dir := t.TempDir()
	path := sampleRun(t, dir, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), sampleChanges)
	database, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	children, err := LoadChildren(database, "/srv", "changes", 10)
	if err != nil {
		t.Fatalf("load children: %v", err)
	}
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %+v", children)
	}
	// sub changed itself and has one change below; deep only has one below.
	if children[0].Name != "sub" || children[0].Total() != 2 || children[0].Self == nil {
		t.Fatalf("unexpected first child: %+v", children[0])
	}
	if children[1].Name != "a.txt" || children[2].Name != "deep" || children[2].Self != nil || children[2].Below != 1 {
		t.Fatalf("unexpected order: %+v", children)
	}

	root, err := LoadChildren(database, "/", "name", 0)
	if err != nil {
		t.Fatalf("load root: %v", err)
	}
	if len(root) != 1 || root[0].Name != "srv" || root[0].Total() != 5 {
		t.Fatalf("unexpected root listing: %+v", root)
	}
}

func TestManagerLatestAndRetention(t *testing.T) {
	dir := t.TempDir()
	first := sampleRun(t, dir, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), nil)

	mgr := NewManager(dir, 1)
	latest, err := mgr.GetLatest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	firstResolved, _ := filepath.EvalSymlinks(first)
	if latest != firstResolved {
		t.Fatalf("latest does not point to first journal: %s", latest)
	}

	run, err := mgr.Begin(entry.RunMeta{Mode: "after", BasePath: "/srv", StartTime: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	// The directory is locked while a run is open.
	if _, err := NewManager(dir, 1).Begin(entry.RunMeta{Mode: "after"}, nil); err == nil {
		t.Fatalf("expected a lock error")
	}

	meta := run.Meta
	meta.Status = "cancelled"
	second, err := run.Close(meta)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(first); err == nil {
		t.Fatalf("expected first journal to be pruned")
	}
	runs, err := mgr.ListRuns()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 || runs[0] != second {
		t.Fatalf("unexpected runs: %v", runs)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".remapid-temp-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestSplitPath(t *testing.T) {
	cases := map[string][2]string{
		"/srv/a": {"/srv", "a"},
		"/srv":   {"/", "srv"},
		"/":      {"", "/"},
		"rel/a/": {"rel", "a"},
		"plain":  {".", "plain"},
	}
	for in, want := range cases {
		dir, name := splitPath(in)
		if dir != want[0] || name != want[1] {
			t.Fatalf("splitPath(%q) = %q, %q; want %q, %q", in, dir, name, want[0], want[1])
		}
	}
}
