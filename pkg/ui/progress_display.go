package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"liscraper/pkg/models"
)

// ProgressDisplay is the line-oriented RunView used when stdout is not a
// terminal or the dashboard is disabled
type ProgressDisplay struct {
	mu        sync.Mutex
	out       io.Writer
	total     int
	done      int
	failed    int
	pdfs      int
	state     string
	current   string
	startTime time.Time
	started   map[string]time.Time
	verbose   bool
}

// NewProgressDisplay creates a display for a run over total targets
func NewProgressDisplay(out io.Writer, total int, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		total:     total,
		startTime: time.Now(),
		started:   make(map[string]time.Time),
		verbose:   verbose,
	}
}

// StateChanged prints waits and aborts; other transitions only show in
// verbose mode
func (p *ProgressDisplay) StateChanged(from, to string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = to
	switch to {
	case "COOLDOWN_WAIT":
		fmt.Fprintf(p.out, "%s all accounts at their limit, cooling down\n", Yellow("⏸"))
	case "ABORTED":
		fmt.Fprintf(p.out, "%s no account available after cooldown, stopping\n", Red("✗"))
	default:
		if p.verbose {
			fmt.Fprintf(p.out, "%s %s → %s\n", Dim("·"), from, to)
		}
	}
}

// TargetStarted marks a target as in flight
func (p *ProgressDisplay) TargetStarted(target models.Target, account string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = target.LinkedInID
	p.started[target.String()] = time.Now()
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s via %s\n", Magenta("→"), target.String(), account)
	}
}

// TargetFinished prints one line per attempted target
func (p *ProgressDisplay) TargetFinished(result models.ScrapeResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.current = ""
	elapsed := time.Duration(0)
	if at, ok := p.started[result.Target.String()]; ok {
		elapsed = time.Since(at)
		delete(p.started, result.Target.String())
	}

	counter := fmt.Sprintf("[%d/%d]", p.done, p.total)
	if !result.Success {
		p.failed++
		fmt.Fprintf(p.out, "%s %s %s %s\n", Dim(counter), Red("✗"), result.Target.String(), Dim(result.Error))
		return
	}

	line := fmt.Sprintf("%s %s %s", Dim(counter), Green("✓"), profileLabel(result))
	if result.ArtifactPath != "" {
		p.pdfs++
		line += " " + Dim("+pdf")
	}
	if elapsed > 0 {
		line += " " + Dim(formatDuration(elapsed))
	}
	fmt.Fprintln(p.out, line)
}

func (p *ProgressDisplay) LogInfo(format string, args ...interface{}) {
	p.print(Cyan("i"), format, args...)
}

func (p *ProgressDisplay) LogWarning(format string, args ...interface{}) {
	p.print(Yellow("⚠"), format, args...)
}

func (p *ProgressDisplay) LogError(format string, args ...interface{}) {
	p.print(Red("✗"), format, args...)
}

func (p *ProgressDisplay) print(icon, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", icon, fmt.Sprintf(format, args...))
}

// Complete prints the closing statistics
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed >= time.Second {
		rate = float64(p.done) / elapsed.Minutes()
	}
	fmt.Fprintf(p.out, "  %s %d attempted in %s (%.1f/min)\n", Dim("•"), p.done, formatDuration(elapsed), rate)
	if p.failed > 0 {
		fmt.Fprintf(p.out, "  %s %d failed\n", Dim("•"), p.failed)
	}
}

func profileLabel(result models.ScrapeResult) string {
	if result.Data == nil || result.Data.Name == "" {
		return result.Target.String()
	}
	label := result.Data.Name
	if result.Data.CurrentCompany != "" {
		label += " · " + result.Data.CurrentCompany
	}
	return label
}

// formatDuration renders 45s, 3m12s or 1h05m
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
