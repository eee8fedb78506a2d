// Package progress renders publish progress as a plain-text bar, for
// terminals without the interactive view and for CI logs.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Indicator tracks a run that reports (message, fraction) updates.
type Indicator struct {
	writer    io.Writer
	startTime time.Time
	mu        sync.Mutex
	isCI      bool
	barWidth  int
	steps     int
	fraction  float64
	lastMsg   string
	now       func() time.Time
}

// Config holds configuration for progress indicator
type Config struct {
	Writer   io.Writer
	IsCI     bool // Set to true in CI/CD environments to print one line per update
	BarWidth int
}

// IsCIEnvironment reports whether the process runs under a CI system.
func IsCIEnvironment() bool {
	return os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
}

// NewIndicator creates a new progress indicator
func NewIndicator(cfg Config) *Indicator {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if !cfg.IsCI {
		cfg.IsCI = IsCIEnvironment()
	}
	if cfg.BarWidth <= 0 {
		cfg.BarWidth = 30
	}

	return &Indicator{
		writer:    cfg.Writer,
		startTime: time.Now(),
		isCI:      cfg.IsCI,
		barWidth:  cfg.BarWidth,
		now:       time.Now,
	}
}

// Update records one completed step. Its signature matches the
// orchestrator's progress callback; it never asks the run to stop.
func (p *Indicator) Update(message string, fraction float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.steps++
	p.fraction = min(max(fraction, 0), 1)
	p.lastMsg = message

	if p.isCI {
		fmt.Fprintf(p.writer, "[%3.0f%%] %s\n", p.fraction*100, message)
		return nil
	}
	p.render()
	return nil
}

// render draws the bar on the current line
func (p *Indicator) render() {
	filled := int(float64(p.barWidth) * p.fraction)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.barWidth-filled)
	elapsed := p.now().Sub(p.startTime)

	var eta string
	if p.fraction > 0 && p.fraction < 1 {
		remaining := time.Duration(float64(elapsed)/p.fraction) - elapsed
		eta = fmt.Sprintf(" | ETA: %s", formatDuration(remaining))
	}

	fmt.Fprintf(p.writer, "\r[%s] %.0f%% | %s%s | %s\x1b[K",
		bar,
		p.fraction*100,
		formatDuration(elapsed),
		eta,
		p.lastMsg,
	)
}

// Summary is the outcome printed by Finish.
type Summary struct {
	Created int
	// FailedAt is the local ID of the item that halted the run, if any.
	FailedAt string
	Err      error
}

// Finish ends the bar and prints the run summary
func (p *Indicator) Finish(s Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isCI && p.steps > 0 {
		fmt.Fprintln(p.writer)
	}

	elapsed := p.now().Sub(p.startTime)
	fmt.Fprintln(p.writer, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(p.writer, "Created:         %d issues\n", s.Created)
	fmt.Fprintf(p.writer, "Steps:           %d\n", p.steps)
	fmt.Fprintf(p.writer, "Total Time:      %s\n", formatDuration(elapsed))
	if s.Created > 0 {
		fmt.Fprintf(p.writer, "Avg Time/Issue:  %s\n", formatDuration(elapsed/time.Duration(s.Created)))
	}
	if s.Err != nil {
		at := s.FailedAt
		if at == "" {
			at = "before the first item"
		}
		fmt.Fprintf(p.writer, "Failed at:       %s ✗\n", at)
	}
	fmt.Fprintln(p.writer, "═══════════════════════════════════════════════════════════")
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
