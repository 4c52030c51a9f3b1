package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers one desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

type linuxSender struct{}

func (linuxSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

type macSender struct{}

func (macSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// Notifier announces the end of long runs on the desktop
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender for the current platform; unsupported platforms
// get a Notifier that does nothing
func NewNotifier() *Notifier {
	switch runtime.GOOS {
	case "linux":
		return &Notifier{sender: linuxSender{}}
	case "darwin":
		return &Notifier{sender: macSender{}}
	default:
		return &Notifier{}
	}
}

// NewNotifierWithSender creates a Notifier around a custom sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// RunFinished sends the run summary. Delivery errors are returned so the
// caller can log them; they never affect the run.
func (n *Notifier) RunFinished(summary string, aborted bool) error {
	if n == nil || n.sender == nil {
		return nil
	}
	title := "liscraper: run finished"
	if aborted {
		title = "liscraper: run aborted"
	}
	return n.sender.Send(title, summary)
}
