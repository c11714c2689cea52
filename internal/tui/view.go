package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/michaelscutari/remapid/internal/entry"
	"github.com/michaelscutari/remapid/internal/journal"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}

	if m.meta == nil {
		return "Loading..."
	}

	var b strings.Builder
	headerLines := 0

	writeLine := func(line string) {
		b.WriteString(line)
		b.WriteString("\n")
		headerLines++
	}

	// Header
	writeLine(titleStyle.Render("remapid - Run Journal") + "  " + m.tabs())

	runInfo := fmt.Sprintf("Run: %s | Mode: %s%s | Started: %s | Status: %s",
		shortID(m.meta.RunID),
		m.meta.Mode,
		modeFlags(m.meta),
		m.meta.StartTime.Format("2006-01-02 15:04"),
		m.meta.Status,
	)
	writeLine(runStyle.Render(runInfo))

	counts := fmt.Sprintf("Checked: %s | Changed: %s | Failed: %s | Skipped: %s | Warnings: %s",
		FormatCount(m.meta.Checked),
		FormatCount(m.meta.Changed),
		FormatCount(m.meta.Failed),
		FormatCount(m.meta.Skipped),
		FormatCount(m.meta.Warnings),
	)
	writeLine(runStyle.Render(counts))

	var body []string
	var header string
	switch m.pane {
	case PaneWarnings:
		writeLine(pathStyle.Render(fmt.Sprintf("Warnings (%s)", FormatCount(int64(len(m.warnings))))))
		header = "PATH: MESSAGE"
		for i, w := range m.warnings {
			body = append(body, m.formatRow(fmt.Sprintf("%s: %s", w.Path, w.Message), i))
		}
	case PaneMappings:
		writeLine(pathStyle.Render(fmt.Sprintf("Mappings (%s)", FormatCount(int64(len(m.mappings))))))
		header = fmt.Sprintf("%-6s  %10s  %10s  %s", "KIND", "OLD", "NEW", "NAME")
		for i, e := range m.mappings {
			line := fmt.Sprintf("%-6s  %10d  %10d  %s", e.Kind, e.OldID, e.NewID, e.Name)
			body = append(body, m.formatRow(line, i))
		}
	default:
		pathLabel := fmt.Sprintf("Path: %s", truncateMiddle(m.currentPath, max(10, m.width-6)))
		writeLine(pathStyle.Render(pathLabel))

		status := fmt.Sprintf("Items: %s | Changes here: %s",
			FormatCount(int64(len(m.entries))), FormatCount(m.total))
		if m.filter != "" {
			status += fmt.Sprintf(" | Filter: %q", m.filter)
		}
		writeLine(runStyle.Render(status))

		if m.filterActive {
			writeLine(filterStyle.Render(fmt.Sprintf("Filter: %s_", m.filter)))
		} else if m.filter != "" {
			writeLine(filterStyle.Render(fmt.Sprintf("Filter: %s", m.filter)))
		}

		widths := calcColumnWidths(m.entries)
		nameWidth := calcNameWidth(m.width, widths)
		header = m.treeHeader(widths, nameWidth)
		for i, e := range m.entries {
			body = append(body, m.formatEntry(e, i == m.cursor, widths, nameWidth))
		}
	}
	writeLine(columnsStyle.Render(header))

	footerLines := 2
	visibleRows := m.height - headerLines - footerLines
	if visibleRows < 5 {
		visibleRows = 5
	}

	startIdx := 0
	if m.cursor >= visibleRows {
		startIdx = m.cursor - visibleRows + 1
	}
	endIdx := min(len(body), startIdx+visibleRows)
	for i := startIdx; i < endIdx; i++ {
		b.WriteString(body[i])
		b.WriteString("\n")
	}
	for i := max(endIdx-startIdx, 0); i < visibleRows; i++ {
		b.WriteString("\n")
	}

	// Footer
	b.WriteString("\n")
	help := m.helpLine()
	if n := m.rows(); n > 0 {
		help = fmt.Sprintf("%s [%d/%d]", help, m.cursor+1, n)
	}
	b.WriteString(keysStyle.Render(help))

	return b.String()
}

// tabs names the panes with the open one highlighted.
func (m *Model) tabs() string {
	labels := []struct {
		pane  Pane
		label string
	}{{PaneTree, "t tree"}, {PaneWarnings, "w warnings"}, {PaneMappings, "m mappings"}}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.pane == m.pane {
			parts = append(parts, activeTabStyle.Render(l.label))
		} else {
			parts = append(parts, tabStyle.Render(l.label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) formatRow(line string, i int) string {
	line = truncateRight(line, max(minNameWidth, m.width))
	if i == m.cursor {
		return cursorStyle.Render(line)
	}
	return line
}

type columnWidths struct {
	changes int
	uid     int
	gid     int
	status  int
}

const (
	colGap        = 2
	nameGapWidth  = 2
	minNameWidth  = 10
	barBlockWidth = 10                                        // number of block characters
	barPctWidth   = 4                                         // " 78%" or "100%"
	barGapWidth   = 1                                         // space between blocks and pct
	barColWidth   = barBlockWidth + barGapWidth + barPctWidth // 15
)

func calcColumnWidths(entries []journal.DisplayEntry) columnWidths {
	w := columnWidths{
		changes: len("CHANGES") + 1,
		uid:     len("UID"),
		gid:     len("GID"),
		status:  len("STATUS"),
	}

	for _, e := range entries {
		w.changes = max(w.changes, len(FormatCount(e.Total())))
		uid, gid := ownerColumns(e.Self)
		w.uid = max(w.uid, len(uid))
		w.gid = max(w.gid, len(gid))
	}
	w.status = max(w.status, len("planned"))

	return w
}

func calcNameWidth(totalWidth int, w columnWidths) int {
	used := w.changes + w.uid + w.gid + w.status + (colGap * 4) + nameGapWidth + barColWidth
	nameWidth := totalWidth - used
	if nameWidth < minNameWidth {
		nameWidth = minNameWidth
	}
	return nameWidth
}

func (m *Model) treeHeader(widths columnWidths, nameWidth int) string {
	changesLabel := headerLabel("CHANGES", m.sort == SortByChanges, "v")
	nameLabel := truncateRight(headerLabel("NAME", m.sort == SortByName, "^"), nameWidth)
	gap := strings.Repeat(" ", colGap)
	return fmt.Sprintf("%*s%s%-*s%s%-*s%s%-*s%s%-*s%s%*s",
		widths.changes, changesLabel,
		gap,
		widths.uid, "UID",
		gap,
		widths.gid, "GID",
		gap,
		widths.status, "STATUS",
		strings.Repeat(" ", nameGapWidth),
		nameWidth, nameLabel,
		gap,
		barColWidth, "CHG%",
	)
}

func (m *Model) formatEntry(e journal.DisplayEntry, selected bool, widths columnWidths, nameWidth int) string {
	uid, gid := ownerColumns(e.Self)

	var rawName string
	switch e.Kind {
	case entry.KindDir:
		rawName = e.Name + "/"
	case entry.KindSymlink:
		rawName = e.Name + "@"
	default:
		rawName = e.Name
	}

	rawName = truncateRight(rawName, nameWidth)
	styledName := kindStyle(e.Kind).Render(rawName)

	// Pad name to fixed width so bar column aligns
	pad := nameWidth - len(rawName)
	if pad < 0 {
		pad = 0
	}
	paddedName := styledName + strings.Repeat(" ", pad)

	status := m.status(e.Self)
	statusPad := strings.Repeat(" ", max(widths.status-len(status), 0))

	gap := strings.Repeat(" ", colGap)
	line := fmt.Sprintf("%*s%s%-*s%s%-*s%s%s%s%s%s%s%s",
		widths.changes, FormatCount(e.Total()),
		gap,
		widths.uid, uid,
		gap,
		widths.gid, gid,
		gap,
		styleStatus(status), statusPad,
		strings.Repeat(" ", nameGapWidth),
		paddedName,
		gap,
		formatBar(e.Total(), m.total),
	)

	if selected {
		return cursorStyle.Render(line)
	}
	return line
}

// ownerColumns renders the object's own uid and gid change, "-" for a side
// that was left alone.
func ownerColumns(c *entry.Change) (string, string) {
	if c == nil {
		return "", ""
	}
	uid, gid := "-", "-"
	if c.UIDChanged() {
		uid = fmt.Sprintf("%d→%d", c.OldUID, c.NewUID)
	}
	if c.GIDChanged() {
		gid = fmt.Sprintf("%d→%d", c.OldGID, c.NewGID)
	}
	return uid, gid
}

func (m *Model) status(c *entry.Change) string {
	switch {
	case c == nil:
		return ""
	case c.Applied:
		return statusApplied
	case m.meta != nil && m.meta.DryRun:
		return statusPlanned
	default:
		return statusFailed
	}
}

func formatBar(entryVal, parentTotal int64) string {
	if parentTotal <= 0 || entryVal <= 0 {
		empty := strings.Repeat("░", barBlockWidth)
		return unusedStyle.Render(empty) + fmt.Sprintf(" %3d%%", 0)
	}

	pct := float64(entryVal) / float64(parentTotal) * 100
	if pct > 100 {
		pct = 100
	}

	filled := int(math.Round(pct / 100 * float64(barBlockWidth)))
	if filled < 1 && entryVal > 0 {
		filled = 1
	}
	if filled > barBlockWidth {
		filled = barBlockWidth
	}

	filledStr := shareStyle.Render(strings.Repeat("█", filled))
	emptyStr := unusedStyle.Render(strings.Repeat("░", barBlockWidth-filled))
	return filledStr + emptyStr + fmt.Sprintf(" %3d%%", int(math.Round(pct)))
}

func modeFlags(meta *entry.RunMeta) string {
	var flags []string
	if meta.DryRun {
		flags = append(flags, "dry-run")
	}
	if meta.Reverse {
		flags = append(flags, "reverse")
	}
	if len(flags) == 0 {
		return ""
	}
	return " (" + strings.Join(flags, ", ") + ")"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func headerLabel(label string, active bool, dir string) string {
	if active {
		return label + dir
	}
	return label
}

func truncateRight(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func truncateMiddle(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	head := (maxLen - 3) / 2
	tail := maxLen - 3 - head
	return s[:head] + "..." + s[len(s)-tail:]
}
