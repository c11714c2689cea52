// Package report formats counts, durations and progress for the remap phases.
// Nothing here feeds back into what a phase does.
package report

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// Plural renders "1 object", "2 objects", "1,234 objects".
func Plural(n int64, word string) string {
	return fmt.Sprintf("%s %s", humanize.Comma(n), english.PluralWord(int(n), word, ""))
}

// Count renders n with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// FormatElapsed rounds d for display: milliseconds under a minute, seconds
// above it.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// Rate returns items per second. A zero elapsed time yields zero.
func Rate(n int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

// FormatRate renders Rate as "1,234/sec".
func FormatRate(n int64, d time.Duration) string {
	return humanize.Comma(int64(Rate(n, d)+0.5)) + "/sec"
}

// ETA estimates the time left given progress so far. ok is false when
// there is nothing to extrapolate from.
func ETA(done, total int64, elapsed time.Duration) (time.Duration, bool) {
	if done <= 0 || total <= 0 || elapsed <= 0 {
		return 0, false
	}
	if done >= total {
		return 0, true
	}
	perItem := float64(elapsed) / float64(done)
	return time.Duration(perItem * float64(total-done)), true
}
