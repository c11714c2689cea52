package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/michaelscutari/remapid/internal/apply"
	"github.com/michaelscutari/remapid/internal/census"
	"github.com/michaelscutari/remapid/internal/config"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/pathutil"
	"github.com/michaelscutari/remapid/internal/report"
	"github.com/spf13/cobra"
)

var censusCmd = &cobra.Command{
	Use:   "census",
	Short: "Count objects per owner under a path",
	Long: `Walk --path and tally objects per UID and GID, marking IDs that have no
name in the identity database. Use it before a scan to pick the ranges.`,
	RunE: runCensus,
}

func init() {
	censusCmd.Flags().StringP("path", "p", "", "Path to walk")
	censusCmd.Flags().IntP("top", "n", 20, "Owners to list per kind (0 = all)")
	censusCmd.Flags().StringSliceP("exclude", "e", nil, "Regex patterns to exclude (can be repeated)")
	censusCmd.Flags().Bool("xdev", false, "Don't cross filesystem boundaries")
}

func runCensus(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, config.ModeCensus)
	if err != nil {
		return err
	}

	root, err := pathutil.Absolute(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	c := &census.Census{
		FS:       apply.OSFS{},
		Resolver: cfg.Resolver(),
		Walk:     apply.WalkOptions{Xdev: cfg.Xdev},
		Progress: newProgress(cfg, "Counting"),
	}
	for _, pattern := range cfg.Exclude {
		if err := c.Walk.AddExcludePattern(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("Counting owners under %s...\n", root)
	res, err := c.Run(ctx, root)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Census canceled.")
			return nil
		}
		return fmt.Errorf("census failed: %w", err)
	}

	for _, kind := range ident.Kinds {
		fmt.Println()
		printTallies(kind, res.Of(kind), cfg.Top)
	}

	s := report.NewSummary("Summary")
	s.AddCount("Objects", res.Objects, "object")
	s.AddCountIf("Unreadable", res.Unreadable, "object")
	for _, kind := range ident.Kinds {
		s.Add(titleKind(kind), fmt.Sprintf("%s, %s without a name",
			report.Plural(int64(len(res.Of(kind))), "ID"), report.Count(int64(res.Unresolved(kind)))))
	}
	if r, ok := res.Span(ident.KindUser); ok {
		s.Add("Suggested UID range", r.String())
	}
	if r, ok := res.Span(ident.KindGroup); ok {
		s.Add("Suggested GID range", r.String())
	}
	s.AddElapsed(res.Elapsed(), res.Objects)
	printSummary(s)
	return nil
}

func printTallies(kind ident.Kind, tallies []census.Tally, top int) {
	shown := tallies
	if top > 0 && len(shown) > top {
		shown = shown[:top]
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "OBJECTS\t%s\tNAME\n", strings.ToUpper(kind.Short()))
	for _, t := range shown {
		name := t.Name
		if !t.Resolved() {
			name = "(no name)"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", report.Count(t.Objects), t.ID, name)
	}
	_ = w.Flush()
	if rest := len(tallies) - len(shown); rest > 0 {
		fmt.Printf("... and %s more\n", report.Plural(int64(rest), kind.Short()))
	}
}
