package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/config"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/logger"
	"github.com/michaelscutari/remapid/internal/metrics"
	"github.com/michaelscutari/remapid/internal/report"
	"github.com/michaelscutari/remapid/internal/scan"
	"github.com/spf13/cobra"
)

const (
	defaultScanFile = "remapid.scan"
	defaultMapFile  = "remapid.map"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Record which names own which IDs, before the renumbering",
	Long: `Look up every ID in the given ranges and write one kind:id:name line per
ID that has a name to the scan file. Run this before the identity database
is renumbered.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("range", "", "ID range for both users and groups, e.g. 1000-60000")
	scanCmd.Flags().String("uid-range", "", "UID range (overrides --range for users)")
	scanCmd.Flags().String("gid-range", "", "GID range (overrides --range for groups)")
	scanCmd.Flags().StringP("scan-file", "s", defaultScanFile, "Scan file to write")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, config.ModeScan)
	if err != nil {
		return err
	}
	opts, err := cfg.ScanOptions()
	if err != nil {
		return err
	}
	m := metrics.NewRun(string(config.ModeScan))

	f, existed, err := artifact.CreateScanFile(cfg.ScanFile)
	if err != nil {
		finishMetrics(cfg, m, err)
		return err
	}
	if existed {
		logger.Warn("overwriting existing scan file", logger.KeyFile, cfg.ScanFile)
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("Scanning %s...\n", describeRanges(opts))

	rec := scan.NewRecorder(cfg.Resolver(), opts)
	rec.SetProgress(newProgress(cfg, "Scanning"))
	w := artifact.NewScanWriter(f)
	res, err := rec.Run(ctx, w)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close scan artifact: %w", closeErr)
	}
	m.ObserveScan(res)

	if err != nil {
		finishMetrics(cfg, m, err)
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("scan canceled after %s; %s is incomplete",
				report.Plural(res.Scanned(), "ID"), cfg.ScanFile)
		}
		return fmt.Errorf("scan failed: %w", err)
	}
	finishMetrics(cfg, m, nil)

	fmt.Printf("Scan file: %s\n", cfg.ScanFile)
	s := report.NewSummary("Summary")
	for _, kind := range ident.Kinds {
		if opts.RangeOf(kind) == nil {
			continue
		}
		k := res.Of(kind)
		s.Add(titleKind(kind), fmt.Sprintf("%s found of %s scanned",
			report.Count(k.Found), report.Plural(k.Scanned, "ID")))
	}
	s.AddCount("Records written", int64(w.Count()), "record")
	s.AddElapsed(res.Elapsed(), res.Scanned())
	printSummary(s)
	return nil
}

func describeRanges(opts *scan.Options) string {
	var parts []string
	for _, kind := range ident.Kinds {
		if r := opts.RangeOf(kind); r != nil {
			parts = append(parts, fmt.Sprintf("%s %s", kind.Short()+"s", r))
		}
	}
	return strings.Join(parts, " and ")
}

func titleKind(kind ident.Kind) string {
	if kind == ident.KindGroup {
		return "Groups"
	}
	return "Users"
}
