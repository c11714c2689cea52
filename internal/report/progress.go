package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// ttyRedraw caps how often the spinner line is redrawn.
const ttyRedraw = 80 * time.Millisecond

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ProgressOptions configures a Progress reporter.
type ProgressOptions struct {
	// Enabled turns reporting on. A disabled reporter is a no-op.
	Enabled bool
	// TTY selects the redrawn spinner line over PROGRESS lines.
	TTY bool
	// Interval between PROGRESS lines when not on a TTY. Zero disables them.
	Interval time.Duration
}

// Progress reports advancement of one phase. It is driven synchronously by
// the phase loop and owns no goroutines; every call is cheap when nothing
// is due to be printed.
type Progress struct {
	w     io.Writer
	stage string
	opts  ProgressOptions
	now   func() time.Time
	start time.Time
	last  time.Time
	frame int
	drawn bool
	Lines int // PROGRESS lines or redraws emitted
}

// NewProgress returns a reporter for stage writing to w.
func NewProgress(w io.Writer, stage string, opts ProgressOptions) *Progress {
	p := &Progress{w: w, stage: stage, opts: opts, now: time.Now}
	p.start = p.now()
	p.last = p.start
	return p
}

// Start resets the clock.
func (p *Progress) Start() {
	if p == nil {
		return
	}
	p.start = p.now()
	p.last = p.start
}

// Elapsed returns the time since Start.
func (p *Progress) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

// Update reports done of total units (total 0 when unknown) plus optional
// key/value pairs such as "changed", 12.
func (p *Progress) Update(done, total int64, kv ...any) {
	if p == nil || !p.opts.Enabled {
		return
	}
	now := p.now()
	if p.opts.TTY {
		if p.drawn && now.Sub(p.last) < ttyRedraw {
			return
		}
	} else if p.opts.Interval <= 0 || now.Sub(p.last) < p.opts.Interval {
		return
	}
	p.last = now
	p.drawn = true
	p.Lines++

	elapsed := now.Sub(p.start)
	if p.opts.TTY {
		spinner := spinnerFrames[p.frame%len(spinnerFrames)]
		p.frame++
		var b strings.Builder
		fmt.Fprintf(&b, "\r\033[K%s %s... %s", spinner, p.stage, Count(done))
		if total > 0 {
			fmt.Fprintf(&b, "/%s", Count(total))
		}
		for i := 0; i+1 < len(kv); i += 2 {
			fmt.Fprintf(&b, " | %v %v", kv[i+1], kv[i])
		}
		fmt.Fprintf(&b, " | %s | %s", FormatRate(done, elapsed), FormatElapsed(elapsed))
		if eta, ok := ETA(done, total, elapsed); ok {
			fmt.Fprintf(&b, " | eta %s", FormatElapsed(eta))
		}
		_, _ = io.WriteString(p.w, b.String())
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PROGRESS stage=%s done=%d", p.stage, done)
	if total > 0 {
		fmt.Fprintf(&b, " total=%d", total)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	fmt.Fprintf(&b, " rate=%s elapsed=%s", FormatRate(done, elapsed), FormatElapsed(elapsed))
	if eta, ok := ETA(done, total, elapsed); ok {
		fmt.Fprintf(&b, " eta=%s", FormatElapsed(eta))
	}
	b.WriteByte('\n')
	_, _ = io.WriteString(p.w, b.String())
}

// Finish clears the spinner line.
func (p *Progress) Finish() {
	if p == nil || !p.opts.Enabled || !p.opts.TTY || !p.drawn {
		return
	}
	_, _ = io.WriteString(p.w, "\r\033[K")
	p.drawn = false
}
