package tui

import (
	"database/sql"
	"strings"

	"github.com/michaelscutari/remapid/internal/artifact"
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/journal"
	"github.com/michaelscutari/remapid/internal/pathutil"

	tea "github.com/charmbracelet/bubbletea"
)

// SortColumn represents the current sort field.
type SortColumn int

const (
	SortByChanges SortColumn = iota
	SortByName
)

func (s SortColumn) String() string {
	if s == SortByName {
		return "name"
	}
	return "changes"
}

// Pane is the panel being shown.
type Pane int

const (
	PaneTree Pane = iota
	PaneWarnings
	PaneMappings
)

const (
	childLimit   = 1000
	warningLimit = 1000
)

// Model holds the TUI state.
type Model struct {
	db           *sql.DB
	meta         *entry.RunMeta
	basePath     string
	currentPath  string
	allEntries   []journal.DisplayEntry
	entries      []journal.DisplayEntry
	total        int64
	warnings     []entry.Warning
	mappings     []artifact.Entry
	pane         Pane
	cursor       int
	sort         SortColumn
	width        int
	height       int
	filter       string
	filterActive bool
	err          error
}

// NewModel creates a new TUI model over an open journal.
func NewModel(database *sql.DB) *Model {
	return &Model{
		db:   database,
		sort: SortByChanges,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadInitialData
}

type dataLoadedMsg struct {
	meta     *entry.RunMeta
	entries  []journal.DisplayEntry
	warnings []entry.Warning
	mappings []artifact.Entry
	err      error
}

func (m *Model) loadInitialData() tea.Msg {
	meta, err := journal.GetRunMeta(m.db)
	if err != nil {
		return dataLoadedMsg{err: err}
	}

	entries, err := journal.LoadChildren(m.db, meta.BasePath, m.sort.String(), childLimit)
	if err != nil {
		return dataLoadedMsg{err: err}
	}

	warnings, err := journal.LoadWarnings(m.db, warningLimit)
	if err != nil {
		return dataLoadedMsg{err: err}
	}

	mappings, err := journal.LoadMappings(m.db)
	if err != nil {
		return dataLoadedMsg{err: err}
	}

	return dataLoadedMsg{
		meta:     meta,
		entries:  entries,
		warnings: warnings,
		mappings: mappings,
	}
}

type entriesLoadedMsg struct {
	entries []journal.DisplayEntry
	err     error
}

func (m *Model) loadEntries(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := journal.LoadChildren(m.db, path, m.sort.String(), childLimit)
		if err != nil {
			return entriesLoadedMsg{err: err}
		}
		return entriesLoadedMsg{entries: entries}
	}
}

func (m *Model) helpLine() string {
	if m.filterActive {
		return "Type to filter | Enter: apply | Esc: clear | q: quit"
	}
	switch m.pane {
	case PaneWarnings, PaneMappings:
		return "↑/↓ move | t: tree | w: warnings | m: mappings | q: quit"
	}
	return "↑/↓ move | Enter: open | Backspace: close | c/n: sort | /: filter | w: warnings | m: mappings | q: quit"
}

func (m *Model) setEntries(entries []journal.DisplayEntry) {
	m.allEntries = entries
	m.total = 0
	for _, e := range entries {
		m.total += e.Total()
	}
	m.applyFilter()
}

func (m *Model) applyFilter() {
	if m.filter == "" {
		m.entries = m.allEntries
	} else {
		filtered := make([]journal.DisplayEntry, 0, len(m.allEntries))
		needle := strings.ToLower(m.filter)
		for _, e := range m.allEntries {
			if strings.Contains(strings.ToLower(e.Name), needle) {
				filtered = append(filtered, e)
			}
		}
		m.entries = filtered
	}
	m.cursor = 0
}

// rows is the number of selectable lines in the current pane.
func (m *Model) rows() int {
	switch m.pane {
	case PaneWarnings:
		return len(m.warnings)
	case PaneMappings:
		return len(m.mappings)
	}
	return len(m.entries)
}

func (m *Model) atBase() bool {
	return pathutil.Normalize(m.currentPath) == pathutil.Normalize(m.basePath)
}
