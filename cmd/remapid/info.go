package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/michaelscutari/remapid/internal/config"
	"github.com/michaelscutari/remapid/internal/journal"
	"github.com/michaelscutari/remapid/internal/report"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultJournal = "./journal/latest.db"

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display a run journal's metadata",
	Long:  `Print what a journaled remap did: when, where, with which map, and the resulting counts.`,
	RunE:  runInfo,
}

var infoOutput string

func init() {
	infoCmd.Flags().StringP("journal", "j", defaultJournal, "Path to journal file")
	infoCmd.Flags().StringVarP(&infoOutput, "output", "o", "table", "Output format: table, json, yaml")
}

type infoMapping struct {
	Kind    string `json:"kind" yaml:"kind"`
	OldID   uint32 `json:"old_id" yaml:"old_id"`
	Name    string `json:"name" yaml:"name"`
	NewID   uint32 `json:"new_id" yaml:"new_id"`
	Objects int64  `json:"objects" yaml:"objects"`
}

type infoDoc struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Mode      string        `json:"mode" yaml:"mode"`
	BasePath  string        `json:"base_path" yaml:"base_path"`
	DryRun    bool          `json:"dry_run" yaml:"dry_run"`
	Reverse   bool          `json:"reverse" yaml:"reverse"`
	Status    string        `json:"status" yaml:"status"`
	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   *time.Time    `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Checked   int64         `json:"checked" yaml:"checked"`
	Changed   int64         `json:"changed" yaml:"changed"`
	Failed    int64         `json:"failed" yaml:"failed"`
	Skipped   int64         `json:"skipped" yaml:"skipped"`
	Warnings  int64         `json:"warnings" yaml:"warnings"`
	Mappings  []infoMapping `json:"mappings" yaml:"mappings"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, config.ModeJournal)
	if err != nil {
		return err
	}
	switch infoOutput {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("invalid output format %q (expected table|json|yaml)", infoOutput)
	}

	database, err := journal.Open(cfg.Journal)
	if err != nil {
		return err
	}
	defer database.Close()

	meta, err := journal.GetRunMeta(database)
	if err != nil {
		return fmt.Errorf("failed to read run metadata: %w", err)
	}
	mappings, err := journal.LoadMappings(database)
	if err != nil {
		return fmt.Errorf("failed to read mappings: %w", err)
	}
	counts, err := journal.CountByID(database)
	if err != nil {
		return fmt.Errorf("failed to count changes: %w", err)
	}
	moved := map[[3]uint32]int64{}
	for _, c := range counts {
		moved[[3]uint32{uint32(c.Kind), c.OldID, c.NewID}] = c.Count
	}

	doc := infoDoc{
		RunID:     meta.RunID,
		Mode:      meta.Mode,
		BasePath:  meta.BasePath,
		DryRun:    meta.DryRun,
		Reverse:   meta.Reverse,
		Status:    meta.Status,
		StartTime: meta.StartTime,
		Checked:   meta.Checked,
		Changed:   meta.Changed,
		Failed:    meta.Failed,
		Skipped:   meta.Skipped,
		Warnings:  meta.Warnings,
	}
	if !meta.EndTime.IsZero() {
		end := meta.EndTime
		doc.EndTime = &end
	}
	for _, e := range mappings {
		doc.Mappings = append(doc.Mappings, infoMapping{
			Kind:    e.Kind.String(),
			OldID:   e.OldID,
			Name:    e.Name,
			NewID:   e.NewID,
			Objects: moved[[3]uint32{uint32(e.Kind), e.OldID, e.NewID}],
		})
	}

	switch infoOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Printf("Run Information\n")
	fmt.Printf("===============\n\n")
	fmt.Printf("Run ID:       %s\n", doc.RunID)
	fmt.Printf("Mode:         %s%s\n", doc.Mode, runFlags(doc.DryRun, doc.Reverse))
	fmt.Printf("Base Path:    %s\n", doc.BasePath)
	fmt.Printf("Status:       %s\n", doc.Status)
	fmt.Printf("Start Time:   %s\n", doc.StartTime.Format(time.RFC3339))
	if doc.EndTime != nil {
		fmt.Printf("End Time:     %s\n", doc.EndTime.Format(time.RFC3339))
		fmt.Printf("Duration:     %s\n", report.FormatElapsed(doc.EndTime.Sub(doc.StartTime)))
	}
	fmt.Printf("\nStatistics\n")
	fmt.Printf("----------\n")
	fmt.Printf("Checked:      %s\n", humanize.Comma(doc.Checked))
	fmt.Printf("Changed:      %s\n", humanize.Comma(doc.Changed))
	if doc.Failed > 0 {
		fmt.Printf("Failed:       %s\n", humanize.Comma(doc.Failed))
	}
	if doc.Skipped > 0 {
		fmt.Printf("Skipped:      %s\n", humanize.Comma(doc.Skipped))
	}
	if doc.Warnings > 0 {
		fmt.Printf("Warnings:     %s\n", humanize.Comma(doc.Warnings))
	}
	fmt.Printf("\nMappings (%s)\n", humanize.Comma(int64(len(doc.Mappings))))
	fmt.Printf("--------\n")
	for _, mp := range doc.Mappings {
		fmt.Printf("%-6s %10d -> %-10d %-16s %s\n", mp.Kind, mp.OldID, mp.NewID, mp.Name, report.Plural(mp.Objects, "object"))
	}

	return nil
}

func runFlags(dryRun, reverse bool) string {
	switch {
	case dryRun && reverse:
		return " (dry-run, reverse)"
	case dryRun:
		return " (dry-run)"
	case reverse:
		return " (reverse)"
	}
	return ""
}
