package tui

import (
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"liscraper/pkg/models"
)

// TargetState is the display state of one target
type TargetState int

const (
	TargetPending TargetState = iota
	TargetActive
	TargetSucceeded
	TargetFailed
)

// TargetRow is one line of the target list
type TargetRow struct {
	Key      string
	Label    string
	Account  string
	State    TargetState
	Error    string
	PDF      bool
	Started  time.Time
	Finished time.Time
}

// LogMessage is a log entry shown in the dashboard
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model holds everything the dashboard renders
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	rows  map[string]*TargetRow
	order []string

	succeeded int
	failed    int
	pdfs      int

	runState      string
	account       string
	cooldownSince time.Time
	startTime     time.Time
	summary       string

	width          int
	height         int
	showHelp       bool
	stopping       bool
	finished       bool
	logMessages    []LogMessage
	maxLogMessages int

	// onStop is called once when the operator asks to stop the run
	onStop func()
	now    func() time.Time

	mu sync.RWMutex
}

// NewModel creates a dashboard model over the run's targets
func NewModel(targets []models.Target, onStop func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentCyan)

	m := &Model{
		spinner:        s,
		bar:            progress.New(progress.WithDefaultGradient()),
		rows:           make(map[string]*TargetRow, len(targets)),
		runState:       "IDLE",
		startTime:      time.Now(),
		maxLogMessages: 50,
		onStop:         onStop,
		now:            time.Now,
	}
	for _, t := range targets {
		key := t.String()
		if _, dup := m.rows[key]; dup {
			continue
		}
		m.rows[key] = &TargetRow{Key: key, Label: label(t)}
		m.order = append(m.order, key)
	}
	return m
}

func label(t models.Target) string {
	if t.LinkedInID != "" {
		return t.LinkedInID
	}
	return t.Raw
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetState records a coordinator transition
func (m *Model) SetState(to string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runState = to
	if to == "COOLDOWN_WAIT" {
		m.cooldownSince = m.now()
	} else {
		m.cooldownSince = time.Time{}
	}
}

// StartTarget marks a target as in flight under account
func (m *Model) StartTarget(target models.Target, account string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := m.row(target)
	row.State = TargetActive
	row.Account = account
	row.Started = m.now()
	m.account = account
}

// FinishTarget records the outcome of an attempted target
func (m *Model) FinishTarget(result models.ScrapeResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := m.row(result.Target)
	row.Finished = m.now()
	row.Account = result.Account
	if result.Success {
		row.State = TargetSucceeded
		if result.Data != nil && result.Data.Name != "" {
			row.Label = result.Data.Name
		}
		m.succeeded++
	} else {
		row.State = TargetFailed
		row.Error = result.Error
		m.failed++
	}
	if result.ArtifactPath != "" {
		row.PDF = true
		m.pdfs++
	}
}

// row returns the row for target, adding one for targets not seen at start
func (m *Model) row(target models.Target) *TargetRow {
	key := target.String()
	row, ok := m.rows[key]
	if !ok {
		row = &TargetRow{Key: key, Label: label(target)}
		m.rows[key] = row
		m.order = append(m.order, key)
	}
	return row
}

// AddLogMessage appends to the log panel, keeping the newest entries
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLog(level, message)
}

func (m *Model) addLog(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Counts returns attempted, succeeded and failed totals
func (m *Model) Counts() (attempted, succeeded, failed int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.succeeded + m.failed, m.succeeded, m.failed
}

// Fraction returns the share of targets attempted
func (m *Model) Fraction() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return 0
	}
	return float64(m.succeeded+m.failed) / float64(len(m.order))
}

// Rows returns copies of rows in the given state, in input order
func (m *Model) Rows(state TargetState) []TargetRow {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []TargetRow
	for _, key := range m.order {
		if row := m.rows[key]; row.State == state {
			out = append(out, *row)
		}
	}
	return out
}

// Finished returns the rows already attempted, most recent last
func (m *Model) Finished() []TargetRow {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []TargetRow
	for _, key := range m.order {
		row := m.rows[key]
		if row.State == TargetSucceeded || row.State == TargetFailed {
			out = append(out, *row)
		}
	}
	slices.SortStableFunc(out, func(a, b TargetRow) int {
		return a.Finished.Compare(b.Finished)
	})
	return out
}

// State returns the last coordinator state seen
func (m *Model) State() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runState
}

// Stopping reports whether the operator asked to stop
func (m *Model) Stopping() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopping
}
