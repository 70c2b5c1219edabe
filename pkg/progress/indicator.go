// Package progress draws a single-line progress bar on a terminal.
package progress

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// SimpleProgress provides a basic progress bar for sequential tasks such as
// printing copies.
type SimpleProgress struct {
	out       io.Writer
	total     int
	current   int
	label     string
	width     int
	startTime time.Time
}

// NewSimpleProgress creates a progress bar that writes to out.
func NewSimpleProgress(out io.Writer, total int, label string) *SimpleProgress {
	return &SimpleProgress{
		out:       out,
		total:     total,
		label:     label,
		width:     40,
		startTime: time.Now(),
	}
}

// Update redraws the bar at current.
func (sp *SimpleProgress) Update(current int) {
	if current > sp.total {
		current = sp.total
	}
	sp.current = current
	sp.display()
}

// Callback adapts the bar to a func(done, total int) progress hook.
func (sp *SimpleProgress) Callback() func(done, total int) {
	return func(done, total int) {
		sp.total = total
		sp.Update(done)
	}
}

// display shows the current progress bar
func (sp *SimpleProgress) display() {
	if sp.total <= 0 {
		return
	}

	percentage := float64(sp.current) / float64(sp.total) * 100
	filled := sp.width * sp.current / sp.total

	bar := strings.Repeat("█", filled) + strings.Repeat("░", sp.width-filled)

	fmt.Fprintf(sp.out, "\r%s [%s] %d/%d (%.1f%%)",
		sp.label, bar, sp.current, sp.total, percentage)
}

// Finish completes the bar and prints the elapsed time.
func (sp *SimpleProgress) Finish() {
	sp.Update(sp.total)
	fmt.Fprintf(sp.out, " DONE (%v)\n", time.Since(sp.startTime).Round(time.Millisecond))
}
