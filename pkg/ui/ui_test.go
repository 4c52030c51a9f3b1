package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liscraper/pkg/models"
)

func TestProgressDisplayLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, 2, false)
	target := models.Target{Raw: "jane-doe", LinkedInID: "jane-doe", URL: "https://www.linkedin.com/in/jane-doe/"}

	p.TargetStarted(target, "a@example.com")
	p.TargetFinished(models.ScrapeResult{
		Target:       target,
		Success:      true,
		Data:         &models.ProfileRecord{Name: "Jane Doe", CurrentCompany: "Acme Technologies"},
		ArtifactPath: "downloads/jane-doe.pdf",
	})
	p.TargetFinished(models.ScrapeResult{Target: models.Target{Raw: "bogus"}, Error: "invalid_target: not a profile url"})

	out := buf.String()
	assert.Contains(t, out, "[1/2]")
	assert.Contains(t, out, "Jane Doe · Acme Technologies")
	assert.Contains(t, out, "+pdf")
	assert.Contains(t, out, "[2/2]")
	assert.Contains(t, out, "invalid_target")
	assert.NotContains(t, out, "via a@example.com", "start lines only in verbose mode")
}

func TestProgressDisplayStates(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, 1, false)

	p.StateChanged("IDLE", "SELECTING_ACCOUNT")
	assert.Empty(t, buf.String())

	p.StateChanged("SELECTING_ACCOUNT", "COOLDOWN_WAIT")
	p.StateChanged("COOLDOWN_WAIT", "ABORTED")
	assert.Contains(t, buf.String(), "cooling down")
	assert.Contains(t, buf.String(), "stopping")
}

func TestProgressDisplayComplete(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, 1, true)
	p.TargetFinished(models.ScrapeResult{Target: models.Target{Raw: "x"}, Error: "boom"})
	p.Complete()
	assert.Contains(t, buf.String(), "1 attempted")
	assert.Contains(t, buf.String(), "1 failed")
}

type recordingSender struct {
	title, message string
	err            error
}

func (r *recordingSender) Send(title, message string) error {
	r.title, r.message = title, message
	return r.err
}

func TestNotifierRunFinished(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifierWithSender(sender)

	require.NoError(t, n.RunFinished("3/3 profiles scraped, 0 failed", false))
	assert.Equal(t, "liscraper: run finished", sender.title)
	assert.Equal(t, "3/3 profiles scraped, 0 failed", sender.message)

	sender.err = errors.New("no notification daemon")
	assert.Error(t, n.RunFinished("1/3 profiles scraped", true))
	assert.Equal(t, "liscraper: run aborted", sender.title)

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.RunFinished("x", false))
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	defer func() { Out = prev }()

	PrintError("login failed", errors.New("bad password"))
	PrintSummary("2/3 profiles scraped, 1 failed", false)
	assert.Contains(t, buf.String(), "login failed: bad password")
	assert.Contains(t, buf.String(), "2/3 profiles scraped")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45_000_000_000))
	assert.Equal(t, "3m12s", formatDuration(192_000_000_000))
}
