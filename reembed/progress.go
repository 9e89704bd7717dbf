package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a single, rewritten progress line for a run over a
// known number of files. Safe for concurrent use.
type ProgressTracker struct {
	mu       sync.Mutex
	out      io.Writer
	total    int
	done     int
	skipped  int
	every    int
	printed  int
	began    time.Time
	running  bool
	clockNow func() time.Time
}

// NewProgressTracker creates a tracker writing to out. A line is printed
// whenever at least every more files are done, and at the end.
func NewProgressTracker(out io.Writer, total, every int) *ProgressTracker {
	return &ProgressTracker{
		out:      out,
		total:    total,
		every:    max(every, 1),
		clockNow: time.Now,
	}
}

// Start resets the counters and starts the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.began = p.clockNow()
	p.running = true
	p.done, p.skipped, p.printed = 0, 0, 0
}

// Increment records done more files, skipped of which had nothing to embed.
// Counts never exceed the total.
func (p *ProgressTracker) Increment(done, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.done = min(p.done+done, p.total)
	p.skipped = min(p.skipped+skipped, p.done)
	if p.done == p.total || p.done-p.printed >= p.every {
		p.print()
	}
}

// Finish prints the final line and ends it with a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.done = p.total
	p.print()
	fmt.Fprintln(p.out)
	p.running = false
}

// Elapsed is the time since Start, or zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.began.IsZero() {
		return 0
	}
	return p.clockNow().Sub(p.began)
}

// print must be called with mu held.
func (p *ProgressTracker) print() {
	p.printed = p.done
	elapsed := p.clockNow().Sub(p.began)

	var pct, perSec float64
	if p.total > 0 {
		pct = 100 * float64(p.done) / float64(p.total)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		perSec = float64(p.done) / secs
	}

	eta := "-"
	if perSec > 0 && p.done < p.total {
		eta = (time.Duration(float64(p.total-p.done)/perSec) * time.Second).Round(time.Second).String()
	}

	fmt.Fprintf(p.out, "\rProgress: %d/%d (%.1f%%) - %d skipped - %.1f files/s - eta %s",
		p.done, p.total, pct, p.skipped, perSec, eta)
}
