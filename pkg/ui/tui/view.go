package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// snapshot is the part of the model a frame needs, read under one lock
type snapshot struct {
	width, height int
	state         string
	account       string
	cooldownSince time.Time
	elapsed       time.Duration
	total         int
	succeeded     int
	failed        int
	pdfs          int
	stopping      bool
	finished      bool
	summary       string
	showHelp      bool
	logs          []LogMessage
}

func (m *Model) snapshot() snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logs := make([]LogMessage, len(m.logMessages))
	copy(logs, m.logMessages)
	return snapshot{
		width:         m.width,
		height:        m.height,
		state:         m.runState,
		account:       m.account,
		cooldownSince: m.cooldownSince,
		elapsed:       m.now().Sub(m.startTime),
		total:         len(m.order),
		succeeded:     m.succeeded,
		failed:        m.failed,
		pdfs:          m.pdfs,
		stopping:      m.stopping,
		finished:      m.finished,
		summary:       m.summary,
		showHelp:      m.showHelp,
		logs:          logs,
	}
}

// View renders the dashboard
func (m *Model) View() string {
	s := m.snapshot()
	if s.width == 0 || s.height == 0 {
		return "Starting..."
	}

	half := (s.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatus(s, half),
		m.renderActive(half),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRecent(half),
		renderLogs(s, half),
	)

	sections := []string{
		headerStyle.Width(s.width).Render("liscraper"),
		lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right),
	}
	if s.showHelp {
		sections = append(sections, renderHelp(s.width))
	} else {
		sections = append(sections, helpStyle.Render("q stop · ? help"))
	}

	return baseStyle.Width(s.width).Height(s.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderStatus(s snapshot, width int) string {
	state := stateStyle(s.state).Render(s.state)
	if !s.finished && s.state != "ABORTED" {
		state = m.spinner.View() + " " + state
	}

	account := s.account
	if account == "" {
		account = "-"
	}

	lines := []string{
		titleStyle.Render("RUN"),
		field("State", state),
		field("Account", valueStyle.Render(account)),
		field("Elapsed", valueStyle.Render(formatDuration(s.elapsed))),
		field("Scraped", successStyle.Render(fmt.Sprintf("%d", s.succeeded))+" / "+valueStyle.Render(fmt.Sprintf("%d", s.total))),
		field("Failed", failedValue(s.failed)),
		field("PDFs", valueStyle.Render(fmt.Sprintf("%d", s.pdfs))),
	}
	if !s.cooldownSince.IsZero() {
		lines = append(lines, warningStyle.Render("⏸ cooling down for "+formatDuration(m.now().Sub(s.cooldownSince))))
	}
	if s.stopping && !s.finished {
		lines = append(lines, warningStyle.Render("stopping after current profile"))
	}

	fraction := 0.0
	if s.total > 0 {
		fraction = float64(s.succeeded+s.failed) / float64(s.total)
	}
	m.bar.Width = max(width-6, 10)
	lines = append(lines, "", m.bar.ViewAs(fraction))

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderActive(width int) string {
	active := m.Rows(TargetActive)
	pending := m.Rows(TargetPending)

	lines := []string{titleStyle.Render("QUEUE")}
	for _, row := range active {
		lines = append(lines, activeRowStyle.Render("→ "+row.Label)+" "+timestampStyle.Render(row.Account))
	}
	if len(pending) > 0 {
		lines = append(lines, warningStyle.Render(fmt.Sprintf("%d pending", len(pending))))
		for i := 0; i < 5 && i < len(pending); i++ {
			lines = append(lines, finishedRowStyle.Render("  • "+pending[i].Label))
		}
		if len(pending) > 5 {
			lines = append(lines, timestampStyle.Render(fmt.Sprintf("  ... and %d more", len(pending)-5)))
		}
	}
	if len(lines) == 1 {
		lines = append(lines, finishedRowStyle.Render("nothing queued"))
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderRecent(width int) string {
	done := m.Finished()
	start := max(len(done)-8, 0)

	lines := []string{titleStyle.Render("RECENT")}
	for _, row := range done[start:] {
		mark := successStyle.Render("✓")
		if row.State == TargetFailed {
			mark = errorStyle.Render("✗")
		}
		line := mark + " " + finishedRowStyle.Render(truncate(row.Label, width-16))
		if row.PDF {
			line += timestampStyle.Render(" +pdf")
		}
		lines = append(lines, line)
	}
	if len(done) == 0 {
		lines = append(lines, finishedRowStyle.Render("no profiles yet"))
	}

	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderLogs(s snapshot, width int) string {
	start := max(len(s.logs)-10, 0)

	lines := []string{titleStyle.Render("LOG")}
	for _, entry := range s.logs[start:] {
		level := lipgloss.NewStyle().Foreground(entry.Color).Bold(true).Render(fmt.Sprintf("%-7s", entry.Level))
		lines = append(lines, fmt.Sprintf("%s %s %s",
			timestampStyle.Render(entry.Time.Format("15:04:05")),
			level,
			truncate(entry.Message, width-24),
		))
	}
	if len(s.logs) == 0 {
		lines = append(lines, finishedRowStyle.Render("no messages"))
	}

	height := max(s.height-24, 6)
	return panelStyle.Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func renderHelp(width int) string {
	help := `  q        stop after the current profile (press again to close)
  ctrl+l   clear the log panel
  ?        toggle this help

  ` + successStyle.Render("✓") + ` scraped   ` + errorStyle.Render("✗") + ` failed   ` + warningStyle.Render("⏸") + ` cooling down`
	return panelStyle.Width(width).Render(help)
}

func field(name, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-9s", name)) + value
}

func failedValue(n int) string {
	if n == 0 {
		return valueStyle.Render("0")
	}
	return errorStyle.Render(fmt.Sprintf("%d", n))
}

func truncate(s string, n int) string {
	if n <= 3 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// formatDuration renders 04:05 or 01:02:03
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, secs)
	}
	return fmt.Sprintf("%02d:%02d", mins, secs)
}
