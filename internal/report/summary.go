package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Summary is the block printed when a phase finishes.
type Summary struct {
	Title string
	lines [][2]string
}

// NewSummary starts a summary block.
func NewSummary(title string) *Summary {
	return &Summary{Title: title}
}

// Add appends a preformatted value.
func (s *Summary) Add(label, value string) *Summary {
	s.lines = append(s.lines, [2]string{label, value})
	return s
}

// AddCount appends n with the pluralized unit.
func (s *Summary) AddCount(label string, n int64, unit string) *Summary {
	return s.Add(label, Plural(n, unit))
}

// AddCountIf appends the count only when n is non-zero.
func (s *Summary) AddCountIf(label string, n int64, unit string) *Summary {
	if n == 0 {
		return s
	}
	return s.AddCount(label, n, unit)
}

// AddElapsed appends elapsed time with the throughput of n units.
func (s *Summary) AddElapsed(d time.Duration, n int64) *Summary {
	return s.Add("Elapsed", fmt.Sprintf("%s (%s)", FormatElapsed(d), FormatRate(n, d)))
}

// String renders the block.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", s.Title)
	for _, l := range s.lines {
		fmt.Fprintf(&b, "  %s: %s\n", l[0], l[1])
	}
	return b.String()
}

// WriteTo writes the block to w.
func (s *Summary) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}
