// Package progress draws a chunk progress bar on stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Display renders semantic analysis progress. It is safe for concurrent use
// by the chunk workers.
type Display struct {
	mu      sync.Mutex
	out     io.Writer
	started bool
	stopped bool

	total     int
	done      int
	failed    int
	endpoints int

	startTime time.Time
	source    string
	lastLine  string
}

// New creates a progress display writing to stderr.
func New() *Display {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates a progress display writing to w.
func NewWithWriter(w io.Writer) *Display {
	return &Display{out: w}
}

// Start begins the display for total chunks of source.
func (d *Display) Start(source string, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return
	}

	d.started = true
	d.startTime = time.Now()
	d.source = source
	d.total = total
}

// ChunkDone records a finished chunk and redraws the bar.
func (d *Display) ChunkDone(failed bool, endpoints int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.done++
	if failed {
		d.failed++
	}
	d.endpoints += endpoints

	if !d.started || d.stopped {
		return
	}
	d.draw()
}

func (d *Display) draw() {
	total := d.total
	if total == 0 {
		total = 1
	}
	percent := d.done * 100 / total
	if percent > 100 {
		percent = 100
	}

	barWidth := 30
	filled := percent * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("\r[%s] %3d%% | Chunks: %d/%d | Failed: %d | Endpoints: %d | %s",
		bar, percent, d.done, d.total, d.failed, d.endpoints, formatDuration(time.Since(d.startTime)))

	if len(line) < len(d.lastLine) {
		fmt.Fprint(d.out, "\r"+strings.Repeat(" ", len(d.lastLine)))
	}
	fmt.Fprint(d.out, line)
	d.lastLine = line
}

// Stop ends the display.
func (d *Display) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || !d.started {
		return
	}

	d.stopped = true
	fmt.Fprintln(d.out)
}

// Stats returns the chunk counters.
func (d *Display) Stats() (done, failed, endpoints int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done, d.failed, d.endpoints
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
