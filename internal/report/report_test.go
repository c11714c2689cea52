package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluralAndCount(t *testing.T) {
	assert.Equal(t, "1 object", Plural(1, "object"))
	assert.Equal(t, "0 objects", Plural(0, "object"))
	assert.Equal(t, "1,234 identities", Plural(1234, "identity"))
	assert.Equal(t, "1,000,000", Count(1000000))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "1.235s", FormatElapsed(1234567*time.Microsecond))
	assert.Equal(t, "2m3s", FormatElapsed(2*time.Minute+3400*time.Millisecond))
	assert.Equal(t, "0s", FormatElapsed(-time.Second))
}

func TestRateAndETA(t *testing.T) {
	assert.Equal(t, 0.0, Rate(10, 0))
	assert.Equal(t, 50.0, Rate(100, 2*time.Second))
	assert.Equal(t, "50/sec", FormatRate(100, 2*time.Second))

	eta, ok := ETA(25, 100, 10*time.Second)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, eta)

	_, ok = ETA(0, 100, time.Second)
	assert.False(t, ok)
	_, ok = ETA(5, 0, time.Second)
	assert.False(t, ok, "unknown total")
}

func fakeClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestProgressLinesAreThrottled(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "scan", ProgressOptions{Enabled: true, Interval: 10 * time.Second})
	clock, advance := fakeClock(time.Unix(1000, 0))
	p.now = clock
	p.Start()

	p.Update(1, 100)
	assert.Empty(t, buf.String(), "nothing before the first interval")

	advance(10 * time.Second)
	p.Update(50, 100, "found", 3)
	advance(time.Second)
	p.Update(60, 100)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, "PROGRESS stage=scan done=50 total=100 found=3 rate=5/sec elapsed=10s eta=10s", lines[0])
	assert.Equal(t, 1, p.Lines)
}

func TestProgressTTYRedrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "Remapping", ProgressOptions{Enabled: true, TTY: true})
	clock, advance := fakeClock(time.Unix(1000, 0))
	p.now = clock
	p.Start()

	p.Update(10, 0, "changed", 2)
	p.Update(11, 0)
	advance(100 * time.Millisecond)
	p.Update(12, 0)
	p.Finish()

	out := buf.String()
	assert.Equal(t, 2, p.Lines)
	assert.Contains(t, out, "⠋ Remapping... 10 | 2 changed")
	assert.True(t, strings.HasSuffix(out, "\r\033[K"))
}

func TestProgressDisabledIsSilent(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "scan", ProgressOptions{Interval: time.Nanosecond})
	p.Update(1, 1)
	p.Finish()
	assert.Empty(t, buf.String())

	var nilProgress *Progress
	nilProgress.Update(1, 1)
	nilProgress.Finish()
}

func TestSummary(t *testing.T) {
	s := NewSummary("Summary").
		AddCount("Checked", 1234, "object").
		AddCount("Changed", 1, "object").
		AddCountIf("Failed", 0, "object").
		AddElapsed(2*time.Second, 1234)

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Summary:\n  Checked: 1,234 objects\n  Changed: 1 object\n  Elapsed: 2s (617/sec)\n", buf.String())
}
