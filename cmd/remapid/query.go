package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/michaelscutari/remapid/internal/config"
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/ident"
	"github.com/michaelscutari/remapid/internal/journal"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a run journal non-interactively",
	Long: `List where a journaled run changed ownership, for scripting.

With no filter, print the children of --dir that changed or contain changes.
With --uid, --gid or --failed, print the matching changes one per line.
With --warnings, print the run's warnings.`,
	RunE: runQuery,
}

var (
	queryDir      string
	querySort     string
	queryLimit    int
	queryUID      int64
	queryGID      int64
	queryFailed   bool
	queryWarnings bool
)

func init() {
	queryCmd.Flags().StringP("journal", "j", defaultJournal, "Path to journal file")
	queryCmd.Flags().StringVarP(&queryDir, "dir", "d", "", "Directory to list (default: the run's base path)")
	queryCmd.Flags().StringVarP(&querySort, "sort", "s", "changes", "Sort by: changes, name")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 20, "Maximum number of results (0 = all)")
	queryCmd.Flags().Int64Var(&queryUID, "uid", -1, "Changes whose old or new UID is this")
	queryCmd.Flags().Int64Var(&queryGID, "gid", -1, "Changes whose old or new GID is this")
	queryCmd.Flags().BoolVar(&queryFailed, "failed", false, "Changes that were not applied")
	queryCmd.Flags().BoolVar(&queryWarnings, "warnings", false, "List warnings instead of changes")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, config.ModeJournal)
	if err != nil {
		return err
	}
	if querySort != "changes" && querySort != "name" {
		return fmt.Errorf("invalid sort %q (expected changes|name)", querySort)
	}
	if queryUID >= 0 && queryGID >= 0 {
		return fmt.Errorf("--uid and --gid are mutually exclusive")
	}

	database, err := journal.Open(cfg.Journal)
	if err != nil {
		return err
	}
	defer database.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if queryWarnings {
		warnings, err := journal.LoadWarnings(database, queryLimit)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		fmt.Fprintf(w, "PATH\tMESSAGE\n")
		for _, wn := range warnings {
			fmt.Fprintf(w, "%s\t%s\n", wn.Path, wn.Message)
		}
		return nil
	}

	if queryUID >= 0 || queryGID >= 0 || queryFailed {
		filter := journal.ChangeFilter{Under: queryDir, FailedOnly: queryFailed, Limit: queryLimit}
		switch {
		case queryUID >= 0:
			filter.Kind, filter.ID, err = idFilter(ident.KindUser, queryUID)
		case queryGID >= 0:
			filter.Kind, filter.ID, err = idFilter(ident.KindGroup, queryGID)
		}
		if err != nil {
			return err
		}
		changes, err := journal.LoadChanges(database, filter)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		fmt.Fprintf(w, "UID\tGID\tAPPLIED\tPATH\n")
		for _, c := range changes {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
				idChange(c.OldUID, c.NewUID), idChange(c.OldGID, c.NewGID), c.Applied, c.Path)
		}
		return nil
	}

	// If no directory specified, list the base path
	if queryDir == "" {
		meta, err := journal.GetRunMeta(database)
		if err != nil {
			return fmt.Errorf("failed to get base path: %w", err)
		}
		queryDir = meta.BasePath
	}

	entries, err := journal.LoadChildren(database, queryDir, querySort, queryLimit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Fprintf(w, "CHANGES\tSELF\tNAME\n")
	for _, e := range entries {
		self := "-"
		if e.Self != nil {
			self = idChange(e.Self.OldUID, e.Self.NewUID) + " " + idChange(e.Self.OldGID, e.Self.NewGID)
		}
		name := e.Name
		if e.Kind == entry.KindDir {
			name += "/"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", humanize.Comma(e.Total()), self, name)
	}
	return nil
}

func idFilter(kind ident.Kind, v int64) (*ident.Kind, ident.ID, error) {
	if v > int64(^uint32(0)) {
		return nil, 0, fmt.Errorf("%s %d out of range", kind.Short(), v)
	}
	return &kind, ident.ID(v), nil
}

func idChange(from, to uint32) string {
	if from == to {
		return fmt.Sprintf("%d", from)
	}
	return fmt.Sprintf("%d->%d", from, to)
}
