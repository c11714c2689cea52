package main

import (
	"context"
	"fmt"
	"time"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/config"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/logger"
	"github.com/michaelscutari/remapid/internal/metrics"
	"github.com/michaelscutari/remapid/internal/remap"
	"github.com/michaelscutari/remapid/internal/report"
	"github.com/spf13/cobra"
)

var mapCmd = &cobra.Command{
	Use:     "map",
	Aliases: []string{"build"},
	Short:   "Build the old-to-new ID map from a scan file, after the renumbering",
	Long: `Resolve every name in the scan file again and write a kind:old:name:new
line to the map file for each one whose ID moved. Names that no longer exist
are warned about and left out. With --dry-run the map is printed instead.`,
	RunE: runMap,
}

func init() {
	mapCmd.Flags().StringP("scan-file", "s", defaultScanFile, "Scan file to read")
	mapCmd.Flags().StringP("map-file", "m", defaultMapFile, "Map file to write")
	mapCmd.Flags().BoolP("dry-run", "n", false, "Print the map instead of writing it")
}

func runMap(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, config.ModeMap)
	if err != nil {
		return err
	}
	m := metrics.NewRun(string(config.ModeMap))

	ctx, stop := signalContext()
	defer stop()

	tables, res, err := buildTables(ctx, cfg, m)
	if err != nil {
		finishMetrics(cfg, m, err)
		return err
	}
	warnOverlaps(tables)
	entries := tables.Entries()

	if cfg.DryRun {
		for _, e := range entries {
			fmt.Printf("dry-run: %s\n", e)
		}
	} else {
		n, existed, err := artifact.WriteMapFile(cfg.MapFile, entries)
		if err != nil {
			finishMetrics(cfg, m, err)
			return err
		}
		if existed {
			logger.Warn("overwrote existing map file", logger.KeyFile, cfg.MapFile)
		}
		fmt.Printf("Map file: %s (%s)\n", cfg.MapFile, report.Plural(int64(n), "entry"))
	}
	finishMetrics(cfg, m, nil)

	printSummary(buildSummary(res))
	return nil
}

// buildTables reads the scan file and resolves every name again.
func buildTables(ctx context.Context, cfg *config.Config, m *metrics.Run) (remap.Tables, remap.BuildResult, error) {
	var malformed int64
	records, err := artifact.ReadScanFile(cfg.ScanFile, artifactWarnings(cfg.ScanFile, &malformed))
	if err != nil {
		return remap.Tables{}, remap.BuildResult{}, err
	}
	m.AddWarnings(malformed)
	fmt.Printf("Resolving %s from %s...\n", report.Plural(int64(len(records)), "identity"), cfg.ScanFile)

	b := &remap.Builder{Resolver: cfg.Resolver(), Progress: newProgress(cfg, "Resolving")}
	start := time.Now()
	tables, res, err := b.Build(ctx, records)
	m.ObserveBuild(res, time.Since(start))
	if err != nil {
		return tables, res, fmt.Errorf("build failed: %w", err)
	}
	return tables, res, nil
}

// warnOverlaps flags swaps and chains, where a repeated pass would move
// objects a second time.
func warnOverlaps(t remap.Tables) {
	for _, o := range t.Overlaps() {
		logger.Warn("ID is both a source and a target; do not run the remap twice",
			logger.KeyKind, o.Kind.String(), logger.KeyTarget, o.ID)
	}
}

func buildSummary(res remap.BuildResult) *report.Summary {
	s := report.NewSummary("Summary")
	total := res.Total()
	s.AddCount("Records", total.Records, "record")
	for _, kind := range ident.Kinds {
		k := res.Of(kind)
		if k.Records == 0 {
			continue
		}
		s.Add(titleKind(kind), fmt.Sprintf("%s changed, %s unchanged",
			report.Count(k.Changed), report.Count(k.Unchanged)))
	}
	s.AddCountIf("Missing", total.Missing, "identity")
	s.AddCountIf("Duplicates", total.Duplicates, "record")
	return s
}
