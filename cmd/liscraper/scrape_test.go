package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liscraper/pkg/checkpoint"
	lierrors "liscraper/pkg/errors"
	"liscraper/pkg/logger"
	"liscraper/pkg/models"
	"liscraper/pkg/ui"
)

func captureUI(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := ui.Out
	ui.Out = &buf
	t.Cleanup(func() { ui.Out = prev })
	return &buf
}

func TestGatherTargets(t *testing.T) {
	input := filepath.Join(t.TempDir(), "profiles.txt")
	content := "# team\nhttps://www.linkedin.com/in/jane-doe/\n\nlinkedin.com/in/john-smith?trk=x\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0644))

	targets, err := gatherTargets([]string{"ada-lovelace"}, input)
	require.NoError(t, err)
	require.Len(t, targets, 3)
	assert.Equal(t, "ada-lovelace", targets[0].LinkedInID)
	assert.Equal(t, "jane-doe", targets[1].LinkedInID)
	assert.Equal(t, "https://www.linkedin.com/in/john-smith", targets[2].URL)
}

func TestGatherTargetsMissingInput(t *testing.T) {
	_, err := gatherTargets(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestGatherTargetsKeepsInvalidLines(t *testing.T) {
	targets, err := gatherTargets([]string{"not a profile"}, "")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.False(t, targets[0].Valid())
}

func TestFinishRunStatus(t *testing.T) {
	results := []models.ScrapeResult{
		{Target: models.Target{Raw: "a", URL: "https://www.linkedin.com/in/a", LinkedInID: "a"}, Success: true},
		{Target: models.Target{Raw: "b", URL: "https://www.linkedin.com/in/b", LinkedInID: "b"}, Error: "navigation: timeout"},
	}
	aborted := lierrors.Wrap(lierrors.ErrorTypeAborted, "all accounts exhausted", lierrors.ErrNoAccountAvailable)

	tests := []struct {
		name      string
		runErr    error
		cancel    bool
		status    string
		returnErr bool
	}{
		{name: "done", status: checkpoint.StatusDone},
		{name: "aborted", runErr: aborted, status: checkpoint.StatusAborted, returnErr: true},
		{name: "canceled", runErr: context.Canceled, cancel: true, status: checkpoint.StatusCanceled},
		{name: "other failure", runErr: fmt.Errorf("launch: %w", lierrors.New(lierrors.ErrorTypeBrowser, "no chrome")), status: checkpoint.StatusAborted, returnErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureUI(t)
			log := logger.NewTestLogger()

			manager, err := checkpoint.NewManager(t.TempDir(), log)
			require.NoError(t, err)
			journal, err := manager.Start()
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			err = finishRun(ctx, log, journal, results, tt.runErr, 3)
			if tt.returnErr {
				assert.ErrorIs(t, err, tt.runErr)
			} else {
				assert.NoError(t, err)
			}

			cp, err := manager.Load()
			require.NoError(t, err)
			require.NotNil(t, cp)
			assert.Equal(t, tt.status, cp.Status)

			assert.Contains(t, out.String(), "1/3 profiles scraped, 1 failed, 1 not attempted")
			assert.True(t, log.HasMessage("run summary"))
		})
	}
}
