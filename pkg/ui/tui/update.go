package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"liscraper/pkg/models"
)

// StateMsg carries a coordinator state transition
type StateMsg struct {
	From string
	To   string
}

// TargetStartMsg is sent when the coordinator begins a target
type TargetStartMsg struct {
	Target  models.Target
	Account string
}

// TargetDoneMsg is sent when a target has been attempted
type TargetDoneMsg struct {
	Result models.ScrapeResult
}

// RunDoneMsg is sent once the run has returned
type RunDoneMsg struct {
	Summary string
}

// LogMsg adds a line to the log panel
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg refreshes elapsed times
type TickMsg time.Time

// Update applies one message to the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mu.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.mu.Unlock()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case StateMsg:
		m.SetState(msg.To)
		switch msg.To {
		case "COOLDOWN_WAIT":
			m.AddLogMessage("WARN", "all accounts at their limit, cooling down")
		case "ABORTED":
			m.AddLogMessage("ERROR", "no account available after cooldown")
		}
		return m, nil

	case TargetStartMsg:
		m.StartTarget(msg.Target, msg.Account)
		return m, nil

	case TargetDoneMsg:
		m.FinishTarget(msg.Result)
		if !msg.Result.Success {
			m.AddLogMessage("ERROR", msg.Result.Target.String()+": "+msg.Result.Error)
		}
		return m, nil

	case RunDoneMsg:
		m.mu.Lock()
		m.finished = true
		m.summary = msg.Summary
		m.addLog("SUCCESS", msg.Summary)
		m.mu.Unlock()
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress maps keys to actions. The first q asks the run to stop after
// the current profile; a second q, or any q after the run ended, exits.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.finished || m.stopping {
			return m, tea.Quit
		}
		m.stopping = true
		m.addLog("WARN", "stopping after the current profile, press q again to close")
		if m.onStop != nil {
			m.onStop()
		}
		return m, nil

	case "?":
		m.mu.Lock()
		m.showHelp = !m.showHelp
		m.mu.Unlock()
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = nil
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
