package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/michaelscutari/remapid/internal/apply"
	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/config"
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/journal"
	"github.com/michaelscutari/remapid/internal/logger"
	"github.com/michaelscutari/remapid/internal/metrics"
	"github.com/michaelscutari/remapid/internal/pathutil"
	"github.com/michaelscutari/remapid/internal/remap"
	"github.com/michaelscutari/remapid/internal/report"
	"github.com/spf13/cobra"
)

var fileCmd = &cobra.Command{
	Use:     "file",
	Aliases: []string{"apply"},
	Short:   "Rewrite ownership under a path from a map file",
	Long: `Walk --path and change the owner and group of every object whose UID or
GID appears in the map file. Symlinks are changed themselves, never followed.
Running it again is safe: objects already moved no longer match.`,
	RunE: runFile,
}

var afterCmd = &cobra.Command{
	Use:   "after",
	Short: "Build the map from a scan file and apply it in one step",
	Long: `Resolve the scan file against the renumbered identity database and
rewrite ownership under --path, without writing a map file.`,
	RunE: runAfter,
}

func init() {
	fileCmd.Flags().StringP("map-file", "m", defaultMapFile, "Map file to read")
	addTraversalFlags(fileCmd)

	afterCmd.Flags().StringP("scan-file", "s", defaultScanFile, "Scan file to read")
	addTraversalFlags(afterCmd)
}

func addTraversalFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("path", "p", "", "Base path to remap")
	f.BoolP("reverse", "r", false, "Apply the map backwards (new to old)")
	f.BoolP("dry-run", "n", false, "Print the chowns instead of making them")
	f.StringSliceP("exclude", "e", nil, "Regex patterns to exclude (can be repeated)")
	f.Bool("xdev", false, "Don't cross filesystem boundaries")
	f.String("journal-dir", "", "Record every change of this run in a journal under this directory")
	f.Int("journal-retention", 10, "Number of journals to retain (0 = unlimited)")
}

func runFile(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, config.ModeFile)
	if err != nil {
		return err
	}
	m := metrics.NewRun(string(config.ModeFile))

	var malformed int64
	entries, err := artifact.ReadMapFile(cfg.MapFile, artifactWarnings(cfg.MapFile, &malformed))
	if err != nil {
		finishMetrics(cfg, m, err)
		return err
	}
	m.AddWarnings(malformed)
	tables := remap.TablesFromEntries(entries)

	ctx, stop := signalContext()
	defer stop()

	err = remapTree(ctx, cfg, config.ModeFile, tables, m)
	finishMetrics(cfg, m, err)
	return err
}

func runAfter(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, config.ModeAfter)
	if err != nil {
		return err
	}
	m := metrics.NewRun(string(config.ModeAfter))

	ctx, stop := signalContext()
	defer stop()

	tables, res, err := buildTables(ctx, cfg, m)
	if err != nil {
		finishMetrics(cfg, m, err)
		return err
	}
	printSummary(buildSummary(res))

	err = remapTree(ctx, cfg, config.ModeAfter, tables, m)
	finishMetrics(cfg, m, err)
	return err
}

// remapTree applies tables under cfg.Path, journaling the run when a
// journal directory is configured.
func remapTree(ctx context.Context, cfg *config.Config, mode config.Mode, tables remap.Tables, m *metrics.Run) error {
	if cfg.Reverse {
		inv, err := tables.Invert()
		if err != nil {
			return fmt.Errorf("cannot reverse map: %w", err)
		}
		tables = inv
	}
	if err := apply.CheckTables(tables); err != nil {
		return err
	}
	if tables.Empty() {
		fmt.Println("No IDs to remap.")
		return nil
	}
	warnOverlaps(tables)

	base, err := pathutil.Absolute(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, err := os.Lstat(base); err != nil {
		return fmt.Errorf("%w: %w", apply.ErrBasePath, err)
	}

	var walk apply.WalkOptions
	for _, pattern := range cfg.Exclude {
		if err := walk.AddExcludePattern(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	r := &apply.Remapper{
		FS:       apply.OSFS{},
		Tables:   tables,
		Options:  apply.Options{DryRun: cfg.DryRun, Exclude: walk.Exclude, Xdev: cfg.Xdev},
		Progress: newProgress(cfg, "Remapping"),
		Out:      os.Stdout,
	}

	var run *journal.Run
	if cfg.JournalDir != "" {
		mgr := journal.NewManager(cfg.JournalDir, cfg.JournalRetention)
		run, err = mgr.Begin(entry.RunMeta{
			Mode:     string(mode),
			BasePath: base,
			DryRun:   cfg.DryRun,
			Reverse:  cfg.Reverse,
		}, tables.Entries())
		if err != nil {
			return fmt.Errorf("failed to start journal: %w", err)
		}
		r.Journal = run
		logger.Debug("journaling run", logger.KeyRunID, run.Meta.RunID)
	}

	verb := "Remapping"
	if cfg.DryRun {
		verb = "Checking"
	}
	fmt.Printf("%s %s under %s...\n", verb, report.Plural(int64(tables.Len()), "ID"), base)

	stats, runErr := r.Run(ctx, base)
	m.ObserveTraversal(stats)

	if run != nil {
		meta := run.Meta
		meta.EndTime = stats.End
		meta.Checked = stats.Checked
		meta.Changed = stats.Changed
		meta.Failed = stats.Failed
		meta.Skipped = stats.Skipped
		meta.Warnings = stats.Warnings
		meta.Status = runStatus(runErr)
		path, err := run.Close(meta)
		if err != nil {
			logger.Error("failed to save journal", logger.KeyError, err)
			if runErr == nil {
				runErr = err
			}
		} else {
			fmt.Printf("Journal: %s\n", path)
		}
	}

	printSummary(traversalSummary(stats, cfg.DryRun))

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("remap canceled after %s; run the same command again to finish",
				report.Plural(stats.Checked, "object"))
		}
		return fmt.Errorf("remap failed: %w", runErr)
	}
	return nil
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return "complete"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}

func traversalSummary(s apply.Stats, dryRun bool) *report.Summary {
	sum := report.NewSummary("Summary")
	sum.AddCount("Checked", s.Checked, "object")
	if dryRun {
		sum.AddCount("Would change", s.Changed, "object")
	} else {
		sum.AddCount("Changed", s.Changed, "object")
	}
	sum.AddCountIf("Failed", s.Failed, "object")
	sum.AddCountIf("Skipped", s.Skipped, "object")
	sum.AddCountIf("Warnings", s.Warnings, "warning")
	sum.AddElapsed(s.Elapsed(), s.Checked)
	return sum
}
