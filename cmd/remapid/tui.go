package main

import (
	"fmt"

	"github.com/michaelscutari/remapid/internal/config"
	"github.com/michaelscutari/remapid/internal/journal"
	"github.com/michaelscutari/remapid/internal/tui"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse a run journal interactively",
	Long:  `Open an interactive TUI to browse where a run changed ownership, its warnings and its map.`,
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringP("journal", "j", defaultJournal, "Path to journal file")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd, config.ModeJournal)
	if err != nil {
		return err
	}

	database, err := journal.Open(cfg.Journal)
	if err != nil {
		return err
	}
	defer database.Close()

	model := tui.NewModel(database)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
