package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker tracks and reports progress through a fixed number of steps.
type ProgressTracker struct {
	writer    io.Writer
	total     int
	current   int
	label     string
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total number of steps
func NewProgressTracker(writer io.Writer, total int) *ProgressTracker {
	return &ProgressTracker{
		writer: writer,
		total:  total,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.label = "starting"
	p.report()
}

// Step advances progress by one and reports the step just completed.
func (p *ProgressTracker) Step(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = min(p.current+1, p.total)
	p.label = label
	p.report()
}

// Finish marks the operation as complete and prints final progress.
func (p *ProgressTracker) Finish(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.label = label
	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rIngest: %d/%d (%.1f%%) - %s [%s]",
		p.current, p.total, percentage, p.label, time.Since(p.startTime).Round(time.Millisecond))
}
