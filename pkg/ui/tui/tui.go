package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"liscraper/pkg/models"
	"liscraper/pkg/ui"
)

var _ ui.RunView = (*Dashboard)(nil)

// Dashboard is the full-screen RunView
type Dashboard struct {
	program *tea.Program
	model   *Model
}

// NewDashboard creates a dashboard over targets. onStop is called when the
// operator presses q; it should cancel the run's context.
func NewDashboard(targets []models.Target, onStop func()) *Dashboard {
	model := NewModel(targets, onStop)
	return &Dashboard{
		program: tea.NewProgram(model, tea.WithAltScreen()),
		model:   model,
	}
}

// Start runs the UI loop and blocks until the operator closes it
func (d *Dashboard) Start() error {
	_, err := d.program.Run()
	return err
}

// Stop closes the UI
func (d *Dashboard) Stop() {
	d.program.Quit()
}

// Send delivers a message to the UI loop
func (d *Dashboard) Send(msg tea.Msg) {
	if d.program != nil {
		d.program.Send(msg)
	}
}

func (d *Dashboard) StateChanged(from, to string) {
	d.Send(StateMsg{From: from, To: to})
}

func (d *Dashboard) TargetStarted(target models.Target, account string) {
	d.Send(TargetStartMsg{Target: target, Account: account})
}

func (d *Dashboard) TargetFinished(result models.ScrapeResult) {
	d.Send(TargetDoneMsg{Result: result})
}

// Finish shows the run summary; the dashboard stays open until q
func (d *Dashboard) Finish(summary string) {
	d.Send(RunDoneMsg{Summary: summary})
}

func (d *Dashboard) LogInfo(format string, args ...interface{}) {
	d.Send(LogMsg{Level: "INFO", Message: fmt.Sprintf(format, args...)})
}

func (d *Dashboard) LogWarning(format string, args ...interface{}) {
	d.Send(LogMsg{Level: "WARN", Message: fmt.Sprintf(format, args...)})
}

func (d *Dashboard) LogError(format string, args ...interface{}) {
	d.Send(LogMsg{Level: "ERROR", Message: fmt.Sprintf(format, args...)})
}

// Stopping reports whether the operator asked the run to stop
func (d *Dashboard) Stopping() bool {
	return d.model.Stopping()
}
