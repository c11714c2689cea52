package tui

import (
	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/pathutil"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.meta = msg.meta
		m.basePath = msg.meta.BasePath
		m.currentPath = msg.meta.BasePath
		m.warnings = msg.warnings
		m.mappings = msg.mappings
		m.filter = ""
		m.filterActive = false
		m.setEntries(msg.entries)
		return m, nil

	case entriesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.filter = ""
		m.filterActive = false
		m.setEntries(msg.entries)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterActive {
		switch msg.String() {
		case "enter":
			m.filterActive = false
			return m, nil

		case "esc":
			m.filterActive = false
			m.filter = ""
			m.applyFilter()
			return m, nil

		case "backspace":
			if len(m.filter) > 0 {
				runes := []rune(m.filter)
				m.filter = string(runes[:len(runes)-1])
				m.applyFilter()
			}
			return m, nil

		case "q", "ctrl+c":
			return m, tea.Quit
		}

		if msg.Type == tea.KeyRunes {
			m.filter += msg.String()
			m.applyFilter()
			return m, nil
		}

		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.rows()-1 {
			m.cursor++
		}
		return m, nil

	case "t":
		m.switchPane(PaneTree)
		return m, nil

	case "w":
		m.switchPane(PaneWarnings)
		return m, nil

	case "m":
		m.switchPane(PaneMappings)
		return m, nil

	case "home", "g":
		m.cursor = 0
		return m, nil

	case "end", "G":
		if m.rows() > 0 {
			m.cursor = m.rows() - 1
		}
		return m, nil

	case "pgup":
		m.cursor -= 10
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case "pgdown":
		m.cursor += 10
		if m.cursor >= m.rows() {
			m.cursor = m.rows() - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil
	}

	if m.pane != PaneTree {
		return m, nil
	}

	switch msg.String() {
	case "enter", "l", "right":
		if len(m.entries) > 0 && m.cursor < len(m.entries) {
			selected := m.entries[m.cursor]
			if selected.Kind == entry.KindDir && selected.Below > 0 {
				m.currentPath = selected.Path
				m.filter = ""
				m.filterActive = false
				return m, m.loadEntries(selected.Path)
			}
		}
		return m, nil

	case "backspace", "h", "left":
		if m.meta != nil && !m.atBase() {
			parent := pathutil.Parent(m.currentPath, m.basePath)
			m.currentPath = parent
			m.filter = ""
			m.filterActive = false
			return m, m.loadEntries(parent)
		}
		return m, nil

	case "c":
		m.sort = SortByChanges
		return m, m.loadEntries(m.currentPath)

	case "n":
		m.sort = SortByName
		return m, m.loadEntries(m.currentPath)

	case "/":
		m.filterActive = true
		return m, nil
	}

	return m, nil
}

func (m *Model) switchPane(p Pane) {
	if m.pane == p {
		return
	}
	m.pane = p
	m.cursor = 0
}
