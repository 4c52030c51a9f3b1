package scraper

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liscraper/pkg/auth"
	"liscraper/pkg/config"
	"liscraper/pkg/cookies"
	"liscraper/pkg/errors"
	"liscraper/pkg/extract"
	"liscraper/pkg/humanize"
	"liscraper/pkg/ledger"
	"liscraper/pkg/linkedin"
	"liscraper/pkg/logger"
	"liscraper/pkg/models"
)

// fakeSession scripts one browser session
type fakeSession struct {
	email string

	cookieOK  bool
	cookieErr error
	login     linkedin.LoginOutcome
	loginErr  error

	extractErr  map[string]error
	artifact    string
	artifactErr error
	onExtract   func(target models.Target)

	cookieCalls int
	loginCalls  int
	extracted   []string
	closes      int
}

func (f *fakeSession) AuthenticateWithCookies(ctx context.Context, set *cookies.Set) (bool, error) {
	f.cookieCalls++
	return f.cookieOK, f.cookieErr
}

func (f *fakeSession) AuthenticateWithCredentials(ctx context.Context, email, secret string) (linkedin.LoginResult, error) {
	f.loginCalls++
	f.email = email
	if f.loginErr != nil {
		return linkedin.LoginResult{}, f.loginErr
	}
	res := linkedin.LoginResult{Outcome: f.login}
	if f.login == linkedin.LoginSucceeded {
		res.Cookies = &cookies.Set{Identity: email, Cookies: []cookies.Cookie{{Name: "li_at", Value: "fresh-" + email}}}
	}
	return res, nil
}

func (f *fakeSession) ExtractProfile(ctx context.Context, target models.Target) (*models.ProfileRecord, error) {
	f.extracted = append(f.extracted, target.URL)
	if f.onExtract != nil {
		f.onExtract(target)
	}
	if err := f.extractErr[target.LinkedInID]; err != nil {
		return nil, err
	}
	return &models.ProfileRecord{LinkedInID: target.LinkedInID, ProfileURL: target.URL, Name: "Person " + target.LinkedInID}, nil
}

func (f *fakeSession) DownloadArtifact(ctx context.Context, target models.Target) (string, error) {
	return f.artifact, f.artifactErr
}

func (f *fakeSession) Close() error {
	f.closes++
	return nil
}

// fakeLauncher hands out scripted sessions in order, then default ones
type fakeLauncher struct {
	scripted  []*fakeSession
	launched  []*fakeSession
	launchErr error
}

func (l *fakeLauncher) Launch(ctx context.Context) (linkedin.Session, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	var s *fakeSession
	if len(l.scripted) > 0 {
		s, l.scripted = l.scripted[0], l.scripted[1:]
	} else {
		s = &fakeSession{login: linkedin.LoginSucceeded}
	}
	l.launched = append(l.launched, s)
	return s, nil
}

// recordingSleeper never advances the clock, so a cooldown wait cannot make
// an exhausted account available again
type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

type memorySink struct {
	err     error
	records []*models.ProfileRecord
	metas   []models.RecordMeta
}

func (m *memorySink) Upsert(ctx context.Context, record *models.ProfileRecord, meta models.RecordMeta) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	m.metas = append(m.metas, meta)
	return nil
}

type recordingProgress struct {
	started  []string
	finished []bool
}

func (r *recordingProgress) TargetStarted(target models.Target, account string) {
	r.started = append(r.started, target.LinkedInID+"@"+account)
}

func (r *recordingProgress) TargetFinished(result models.ScrapeResult) {
	r.finished = append(r.finished, result.Success)
}

type memoryCheckpoint struct{ results []models.ScrapeResult }

func (m *memoryCheckpoint) Record(result models.ScrapeResult) error {
	m.results = append(m.results, result)
	return nil
}

type harness struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	launcher *fakeLauncher
	cookies  *cookies.MemoryStore
	sleeper  *recordingSleeper
	log      *logger.TestLogger
	states   []State
	sink     *memorySink
	journal  *memoryCheckpoint
	progress *recordingProgress
	c        *Coordinator
}

var clock = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, maxPerAccount int, emails ...string) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scraper.MaxProfilesPerAccount = maxPerAccount
	cfg.Scraper.DownloadArtifacts = false

	catalog := make([]*auth.Account, 0, len(emails))
	for _, e := range emails {
		catalog = append(catalog, &auth.Account{Email: e, Password: "pw-" + e, Active: true})
	}

	h := &harness{
		cfg:      cfg,
		ledger:   ledger.New(catalog, ledger.Policy{MaxProfilesPerAccount: maxPerAccount, Cooldown: cfg.Scraper.Cooldown()}),
		launcher: &fakeLauncher{},
		cookies:  cookies.NewMemoryStore(),
		sleeper:  &recordingSleeper{},
		log:      logger.NewTestLogger(),
		sink:     &memorySink{},
		journal:  &memoryCheckpoint{},
		progress: &recordingProgress{},
	}

	c, err := New(Options{
		Config:     cfg,
		Ledger:     h.ledger,
		Launcher:   h.launcher,
		Cookies:    h.cookies,
		Sink:       h.sink,
		Checkpoint: h.journal,
		Observer:   func(from, to State) { h.states = append(h.states, to) },
		Progress:   h.progress,
		Pacer:      humanize.NewSeededPacer(1, h.sleeper.sleep),
		Clock:      func() time.Time { return clock },
		Logger:     h.log,
	})
	require.NoError(t, err)
	h.c = c
	return h
}

func targets(ids ...string) []models.Target {
	out := make([]models.Target, len(ids))
	for i, id := range ids {
		out[i] = extract.NewTarget(id)
	}
	return out
}

func indexOf(states []State, s State) int {
	for i, st := range states {
		if st == s {
			return i
		}
	}
	return -1
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestScrapeProfilesEmptyInput(t *testing.T) {
	h := newHarness(t, 1, "a@example.com")
	before := h.ledger.Snapshot()

	results, err := h.c.ScrapeProfiles(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Empty(t, h.launcher.launched)
	assert.Equal(t, before, h.ledger.Snapshot())
	assert.Empty(t, h.states)
}

func TestScrapeProfilesAllSucceed(t *testing.T) {
	h := newHarness(t, 10, "a@example.com")

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1", "p2", "p3"))
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, "a@example.com", r.Account)
		assert.Equal(t, []string{"p1", "p2", "p3"}[i], r.Target.LinkedInID)
	}

	require.Len(t, h.launcher.launched, 1)
	assert.Equal(t, 1, h.launcher.launched[0].closes)
	assert.Equal(t, StateDone, h.c.State())

	acct, _ := h.ledger.Get("a@example.com")
	assert.Equal(t, 3, acct.ProfilesScrapedThisWindow)

	require.Len(t, h.sleeper.waits, 2, "pacing between attempts only")
	for _, w := range h.sleeper.waits {
		assert.GreaterOrEqual(t, w, 5*time.Second)
		assert.LessOrEqual(t, w, 10*time.Second)
	}

	assert.Len(t, h.sink.records, 3)
	assert.Len(t, h.journal.results, 3)
	assert.Equal(t, 3, h.log.CountContaining("profile scraped"))
	assert.Equal(t, []string{"p1@a@example.com", "p2@a@example.com", "p3@a@example.com"}, h.progress.started)
	assert.Equal(t, []bool{true, true, true}, h.progress.finished)
}

func TestTwoAccountsRotateThenCooldown(t *testing.T) {
	h := newHarness(t, 1, "a@example.com", "b@example.com")

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1", "p2", "p3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrRunAborted)

	require.Len(t, results, 2)
	assert.Equal(t, "a@example.com", results[0].Account)
	assert.Equal(t, "b@example.com", results[1].Account)

	require.Len(t, h.launcher.launched, 2, "exactly one account switch")
	for _, s := range h.launcher.launched {
		assert.Equal(t, 1, s.closes)
		assert.Len(t, s.extracted, 1)
	}

	cooldown := indexOf(h.states, StateCooldownWait)
	require.NotEqual(t, -1, cooldown)
	assert.Equal(t, StateAborted, h.states[len(h.states)-1])
	assert.Less(t, cooldown, len(h.states)-1)
	assert.Contains(t, h.sleeper.waits, 30*time.Minute)
}

func TestAbortReturnsContiguousPrefix(t *testing.T) {
	h := newHarness(t, 2, "solo@example.com")
	input := targets("p1", "p2", "p3", "p4", "p5")

	results, err := h.c.ScrapeProfiles(context.Background(), input)
	assert.ErrorIs(t, err, errors.ErrRunAborted)
	assert.ErrorIs(t, err, errors.ErrNoAccountAvailable)
	require.Less(t, len(results), len(input))
	for i, r := range results {
		assert.Equal(t, input[i], r.Target)
	}
	assert.Equal(t, StateAborted, h.c.State())
	assert.Equal(t, 1, h.launcher.launched[0].closes)
	assert.True(t, h.log.HasError())
}

func TestAuthFailureMovesToNextAccountWithoutConsumingTarget(t *testing.T) {
	h := newHarness(t, 5, "bad@example.com", "good@example.com")
	h.launcher.scripted = []*fakeSession{
		{login: linkedin.LoginFailed},
		{login: linkedin.LoginSucceeded},
	}

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "good@example.com", results[0].Account)

	bad, _ := h.ledger.Get("bad@example.com")
	assert.False(t, bad.Available)
	assert.Zero(t, bad.ProfilesScrapedThisWindow)

	assert.Equal(t, 1, h.launcher.launched[0].closes)
	assert.Empty(t, h.launcher.launched[0].extracted)
	assert.Equal(t, 1, h.launcher.launched[1].closes)
}

func TestSecurityChallengeDisablesAccount(t *testing.T) {
	h := newHarness(t, 5, "flagged@example.com")
	h.launcher.scripted = []*fakeSession{{login: linkedin.LoginChallenge}}

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1", "p2"))
	assert.ErrorIs(t, err, errors.ErrRunAborted)
	assert.Empty(t, results)

	flagged, _ := h.ledger.Get("flagged@example.com")
	assert.False(t, flagged.Available)
	require.Len(t, h.launcher.launched, 1, "challenged accounts are never retried")
	assert.Equal(t, 1, h.launcher.launched[0].loginCalls)
	assert.Equal(t, 1, h.log.CountContaining("security challenge"))
}

func TestCookieReplayFirst(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	require.NoError(t, h.cookies.Save(context.Background(), &cookies.Set{Identity: "a@example.com", Cookies: []cookies.Cookie{{Name: "li_at", Value: "stored"}}}))
	h.launcher.scripted = []*fakeSession{{cookieOK: true}}

	_, err := h.c.ScrapeProfiles(context.Background(), targets("p1"))
	require.NoError(t, err)

	s := h.launcher.launched[0]
	assert.Equal(t, 1, s.cookieCalls)
	assert.Zero(t, s.loginCalls)
	assert.Empty(t, h.cookies.Invalidated)
}

func TestRejectedCookiesAreInvalidatedAndReplaced(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	ctx := context.Background()
	require.NoError(t, h.cookies.Save(ctx, &cookies.Set{Identity: "a@example.com", Cookies: []cookies.Cookie{{Name: "li_at", Value: "stale"}}}))
	h.launcher.scripted = []*fakeSession{{cookieOK: false, login: linkedin.LoginSucceeded}}

	results, err := h.c.ScrapeProfiles(ctx, targets("p1"))
	require.NoError(t, err)
	require.True(t, results[0].Success)

	assert.Equal(t, []string{"a@example.com"}, h.cookies.Invalidated)
	saved, err := h.cookies.Load(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "fresh-a@example.com", saved.Cookies[0].Value)
}

func TestCookieReplayErrorKeepsStoredCookies(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	ctx := context.Background()
	require.NoError(t, h.cookies.Save(ctx, &cookies.Set{Identity: "a@example.com", Cookies: []cookies.Cookie{{Name: "li_at", Value: "stored"}}}))
	h.launcher.scripted = []*fakeSession{{
		cookieErr: errors.Wrap(errors.ErrorTypeBrowser, "failed to read location", stderrors.New("tab crashed")),
		login:     linkedin.LoginFailed,
	}}

	_, err := h.c.ScrapeProfiles(ctx, targets("p1"))
	assert.ErrorIs(t, err, errors.ErrRunAborted)

	assert.Equal(t, 1, h.launcher.launched[0].loginCalls, "falls back to credentials")
	assert.Empty(t, h.cookies.Invalidated)
	kept, err := h.cookies.Load(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, "stored", kept.Cookies[0].Value)
}

func TestCredentialLoginErrorDisablesOnlyThatAccount(t *testing.T) {
	h := newHarness(t, 5, "a@example.com", "b@example.com")
	h.launcher.scripted = []*fakeSession{
		{loginErr: errors.Wrap(errors.ErrorTypeBrowser, "failed to read location", stderrors.New("tab crashed"))},
		{login: linkedin.LoginSucceeded},
	}

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1", "p2"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, "b@example.com", r.Account)
	}

	a, _ := h.ledger.Get("a@example.com")
	assert.False(t, a.Available)
	assert.Zero(t, a.ProfilesScrapedThisWindow)

	require.Len(t, h.launcher.launched, 2)
	assert.Equal(t, 1, h.launcher.launched[0].closes)
	assert.Empty(t, h.launcher.launched[0].extracted)
	assert.Equal(t, StateDone, h.c.State())
	assert.Equal(t, 1, h.log.CountContaining("credential login errored"))
}

func TestCookieSaveFailureDoesNotStopRun(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	h.cookies.SaveErr = stderrors.New("disk full")

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1"))
	require.NoError(t, err)
	assert.True(t, results[0].Success)
	assert.Equal(t, 1, h.log.CountContaining("failed to save cookies"))
}

func TestTargetFailuresAreRecordedAndRunContinues(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	h.launcher.scripted = []*fakeSession{{
		login: linkedin.LoginSucceeded,
		extractErr: map[string]error{
			"gone": errors.ErrProfileNotFound,
			"slow": errors.Wrap(errors.ErrorTypeNavigation, "timeout", context.DeadlineExceeded),
		},
	}}

	results, err := h.c.ScrapeProfiles(context.Background(), targets("gone", "ok", "slow"))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "profile not found")
	assert.True(t, results[1].Success)
	assert.False(t, results[2].Success)
	assert.Contains(t, results[2].Error, "navigation")

	acct, _ := h.ledger.Get("a@example.com")
	assert.Equal(t, 3, acct.ProfilesScrapedThisWindow)
	assert.Equal(t, 1, acct.Succeeded)
	assert.Equal(t, 2, acct.Failed)
	assert.Len(t, h.sink.records, 1)
	assert.Equal(t, 2, h.log.CountContaining("profile failed"))
}

func TestInvalidTargetSkipsBrowser(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")

	results, err := h.c.ScrapeProfiles(context.Background(), targets("https://example.com/nobody"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "invalid_target")
	assert.Empty(t, h.launcher.launched)
	assert.Len(t, h.journal.results, 1)
	assert.Empty(t, h.progress.started)
	assert.Equal(t, []bool{false}, h.progress.finished)
}

func TestArtifactFailureDoesNotFailProfile(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	h.cfg.Scraper.DownloadArtifacts = true
	h.launcher.scripted = []*fakeSession{{
		login:       linkedin.LoginSucceeded,
		artifactErr: errors.New(errors.ErrorTypeArtifact, "menu missing"),
	}, {login: linkedin.LoginSucceeded, artifact: "/tmp/p2.pdf"}}

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1"))
	require.NoError(t, err)
	assert.True(t, results[0].Success)
	assert.Empty(t, results[0].ArtifactPath)
	assert.Equal(t, 1, h.log.CountContaining("pdf download failed"))
}

func TestArtifactPathRecorded(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	h.cfg.Scraper.DownloadArtifacts = true
	h.launcher.scripted = []*fakeSession{{login: linkedin.LoginSucceeded, artifact: "downloads/p1_20240601_090000.pdf"}}

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1"))
	require.NoError(t, err)
	assert.Equal(t, "downloads/p1_20240601_090000.pdf", results[0].ArtifactPath)
	require.Len(t, h.sink.metas, 1)
	assert.Equal(t, results[0].ArtifactPath, h.sink.metas[0].ArtifactPath)
}

func TestSinkFailureIsLoggedNotRetried(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	h.sink.err = stderrors.New("database locked")

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1", "p2"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, 2, h.log.CountContaining("failed to persist profile"))
}

func TestSinkReceivesRunMetadata(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")

	_, err := h.c.ScrapeProfiles(context.Background(), targets("p1", "p2"))
	require.NoError(t, err)
	require.Len(t, h.sink.metas, 2)
	assert.NotEmpty(t, h.sink.metas[0].RunID)
	assert.Equal(t, h.sink.metas[0].RunID, h.sink.metas[1].RunID)
	assert.Equal(t, "a@example.com", h.sink.metas[0].Account)
}

func TestCancellationBetweenTargets(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.launcher.scripted = []*fakeSession{{
		login:     linkedin.LoginSucceeded,
		onExtract: func(models.Target) { cancel() },
	}}

	results, err := h.c.ScrapeProfiles(ctx, targets("p1", "p2", "p3"))
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1, "the in-flight target finishes")
	assert.True(t, results[0].Success)
	assert.Equal(t, 1, h.launcher.launched[0].closes)
	assert.Equal(t, StateAborted, h.c.State())
	assert.True(t, h.log.HasMessage("component stopped"))
}

func TestLaunchFailureEndsRun(t *testing.T) {
	h := newHarness(t, 5, "a@example.com")
	h.launcher.launchErr = errors.Wrap(errors.ErrorTypeBrowser, "browser launch failed", stderrors.New("no chrome"))

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeBrowser, errors.TypeOf(err))
	assert.Empty(t, results)
	assert.Equal(t, StateAborted, h.c.State())
	assert.Equal(t, StateAborted, h.states[len(h.states)-1])
}

func TestCooldownRetrySucceedsWhenTimePasses(t *testing.T) {
	h := newHarness(t, 1, "a@example.com")
	now := clock
	h.c.now = func() time.Time { return now }
	h.c.pacer = humanize.NewSeededPacer(1, func(ctx context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	})

	results, err := h.c.ScrapeProfiles(context.Background(), targets("p1", "p2"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, h.states, StateCooldownWait)
	assert.Equal(t, StateDone, h.c.State())
	require.Len(t, h.launcher.launched, 2)
	assert.Equal(t, 1, h.launcher.launched[0].closes)
	assert.Equal(t, 1, h.launcher.launched[1].closes)
}

func TestSummary(t *testing.T) {
	s := Summarize([]models.ScrapeResult{
		{Success: true, ArtifactPath: "a.pdf"},
		{Success: true},
		{Success: false},
	})
	assert.Equal(t, Summary{Total: 3, Succeeded: 2, Failed: 1, Artifacts: 1}, s)
	assert.Equal(t, "2/5 profiles scraped, 1 failed, 2 not attempted, 1 PDFs", s.Line(5))
	assert.Equal(t, "0/0 profiles scraped, 0 failed", Summarize(nil).Line(0))
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "COOLDOWN_WAIT", StateCooldownWait.String())
	assert.True(t, StateAborted.Terminal())
	assert.False(t, StateScraping.Terminal())
}
