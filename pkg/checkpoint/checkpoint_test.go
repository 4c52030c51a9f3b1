package checkpoint

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liscraper/pkg/logger"
	"liscraper/pkg/models"
)

func target(id string) models.Target {
	return models.Target{Raw: id, URL: "https://www.linkedin.com/in/" + id, LinkedInID: id}
}

func TestStartRecordLoad(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)
	assert.False(t, mgr.Exists())

	journal, err := mgr.Start()
	require.NoError(t, err)
	assert.NotEmpty(t, journal.RunID())
	assert.True(t, mgr.Exists())

	now := time.Now()
	require.NoError(t, journal.Record(models.ScrapeResult{Target: target("a"), Success: true, Account: "x@example.com", Timestamp: now}))
	require.NoError(t, journal.Record(models.ScrapeResult{Target: target("b"), Error: "navigation: timeout", Timestamp: now}))
	require.NoError(t, journal.Finish(StatusAborted))

	loaded, err := mgr.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, journal.RunID(), loaded.RunID)
	assert.Equal(t, StatusAborted, loaded.Status)
	assert.Equal(t, 1, loaded.Succeeded)
	assert.Equal(t, 1, loaded.Failed)
	assert.True(t, loaded.Resumable())
	assert.True(t, loaded.WasAttempted(target("a")))
	assert.Equal(t, "x@example.com", loaded.Attempted[target("a").URL].Account)

	_, err = os.Stat(mgr.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRemaining(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	journal, err := mgr.Start()
	require.NoError(t, err)

	invalid := models.Target{Raw: "not a profile"}
	require.NoError(t, journal.Record(models.ScrapeResult{Target: target("a"), Success: true}))
	require.NoError(t, journal.Record(models.ScrapeResult{Target: invalid}))

	cp := journal.Snapshot()
	remaining := cp.Remaining([]models.Target{target("a"), target("b"), invalid, target("c")})
	require.Len(t, remaining, 2)
	assert.Equal(t, "b", remaining[0].LinkedInID)
	assert.Equal(t, "c", remaining[1].LinkedInID)
}

func TestResumeContinuesJournal(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	journal, err := mgr.Start()
	require.NoError(t, err)
	require.NoError(t, journal.Record(models.ScrapeResult{Target: target("a"), Success: true}))
	require.NoError(t, journal.Finish(StatusAborted))

	loaded, err := mgr.Load()
	require.NoError(t, err)
	resumed := mgr.Resume(loaded)
	require.NoError(t, resumed.Record(models.ScrapeResult{Target: target("b"), Success: true}))
	require.NoError(t, resumed.Finish(StatusDone))

	final, err := mgr.Load()
	require.NoError(t, err)
	assert.Equal(t, journal.RunID(), final.RunID)
	assert.Equal(t, 2, final.Succeeded)
	assert.False(t, final.Resumable())
}

func TestLoadMissingAndDelete(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	cp, err := mgr.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)

	_, err = mgr.Start()
	require.NoError(t, err)
	require.NoError(t, mgr.Delete())
	assert.False(t, mgr.Exists())
	require.NoError(t, mgr.Delete())
}

func TestLoadRejectsGarbage(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(mgr.Path(), []byte("{not json"), 0644))

	_, err = mgr.Load()
	assert.Error(t, err)
}

func TestNewManagerDefaultsToDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	mgr, err := NewManager("", nil)
	require.NoError(t, err)
	assert.Contains(t, mgr.Path(), "liscraper")
}
