package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accentBlue  = lipgloss.Color("#0A66C2")
	accentCyan  = lipgloss.Color("#5FD7FF")
	okGreen     = lipgloss.Color("#57C785")
	warnAmber   = lipgloss.Color("#FFB000")
	failRed     = lipgloss.Color("#FF5F5F")
	darkBg      = lipgloss.Color("#101418")
	panelBg     = lipgloss.Color("#1B2128")
	dimWhite    = lipgloss.Color("#A0A8B0")
	faintGray   = lipgloss.Color("#5C6670")
	brightWhite = lipgloss.Color("#FFFFFF")

	baseStyle = lipgloss.NewStyle().
			Background(darkBg).
			Foreground(dimWhite)

	headerStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Background(accentBlue).
			Bold(true).
			Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentBlue).
			Background(panelBg).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(accentCyan).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(accentCyan)

	valueStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	successStyle = lipgloss.NewStyle().
			Foreground(okGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(failRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warnAmber).
			Bold(true)

	activeRowStyle = lipgloss.NewStyle().
			Foreground(okGreen).
			Bold(true)

	finishedRowStyle = lipgloss.NewStyle().
				Foreground(dimWhite)

	timestampStyle = lipgloss.NewStyle().
			Foreground(faintGray)

	helpStyle = lipgloss.NewStyle().
			Foreground(faintGray).
			Padding(0, 0, 0, 1)
)

// stateStyle colors the coordinator state badge
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "SCRAPING", "DONE":
		return successStyle
	case "COOLDOWN_WAIT", "AUTHENTICATING", "SELECTING_ACCOUNT":
		return warningStyle
	case "ABORTED":
		return errorStyle
	default:
		return valueStyle
	}
}

// levelColor maps a log level to its color
func levelColor(level string) lipgloss.Color {
	switch level {
	case "ERROR":
		return failRed
	case "WARN":
		return warnAmber
	case "SUCCESS":
		return okGreen
	default:
		return accentCyan
	}
}
