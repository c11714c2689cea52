package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/michaelscutari/remapid/internal/entry"
)

var (
	colorAccent = lipgloss.Color("39")  // blue
	colorDim    = lipgloss.Color("245") // gray
	colorLink   = lipgloss.Color("212") // pink
	colorDone   = lipgloss.Color("76")  // green
	colorPlan   = lipgloss.Color("214") // orange
	colorFail   = lipgloss.Color("196") // red
	colorFaint  = lipgloss.Color("240")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	runStyle = lipgloss.NewStyle().Foreground(colorDim)

	tabStyle       = lipgloss.NewStyle().Foreground(colorFaint).Padding(0, 1)
	activeTabStyle = tabStyle.Bold(true).Foreground(colorAccent).Underline(true)

	pathStyle = lipgloss.NewStyle().Foreground(colorDim)

	columnsStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFaint).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorFaint)

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(colorAccent)

	filterStyle = lipgloss.NewStyle().Foreground(colorPlan)

	keysStyle = lipgloss.NewStyle().Foreground(colorFaint).MarginTop(1)

	shareStyle  = lipgloss.NewStyle().Foreground(colorDone)
	unusedStyle = lipgloss.NewStyle().Foreground(colorFaint)
)

// kindStyles colors entry names by object kind; anything missing renders
// as a plain file.
var kindStyles = map[entry.Kind]lipgloss.Style{
	entry.KindDir:     lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
	entry.KindSymlink: lipgloss.NewStyle().Foreground(colorLink),
}

var fileNameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))

func kindStyle(k entry.Kind) lipgloss.Style {
	if s, ok := kindStyles[k]; ok {
		return s
	}
	return fileNameStyle
}

// Change states as shown in the STATUS column.
const (
	statusApplied = "applied"
	statusPlanned = "planned"
	statusFailed  = "failed"
)

var statusStyles = map[string]lipgloss.Style{
	statusApplied: lipgloss.NewStyle().Foreground(colorDone),
	statusPlanned: lipgloss.NewStyle().Foreground(colorPlan),
	statusFailed:  lipgloss.NewStyle().Foreground(colorFail).Bold(true),
}

func styleStatus(s string) string {
	if st, ok := statusStyles[s]; ok {
		return st.Render(s)
	}
	return s
}

// FormatCount formats a count for display.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}
