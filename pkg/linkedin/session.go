package linkedin

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"liscraper/pkg/config"
	"liscraper/pkg/cookies"
	"liscraper/pkg/errors"
	"liscraper/pkg/extract"
	"liscraper/pkg/humanize"
	"liscraper/pkg/logger"
	"liscraper/pkg/models"
	"liscraper/pkg/storage"
)

// LoginOutcome classifies the page reached after submitting credentials
type LoginOutcome int

const (
	LoginFailed LoginOutcome = iota
	LoginSucceeded
	LoginChallenge
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSucceeded:
		return "succeeded"
	case LoginChallenge:
		return "challenge"
	default:
		return "failed"
	}
}

// LoginResult is the outcome of a credential login. Cookies is set only on
// success.
type LoginResult struct {
	Outcome LoginOutcome
	Landing string
	Cookies *cookies.Set
}

// Session is one authenticated browser context bound to a single account
type Session interface {
	AuthenticateWithCookies(ctx context.Context, set *cookies.Set) (bool, error)
	AuthenticateWithCredentials(ctx context.Context, email, secret string) (LoginResult, error)
	ExtractProfile(ctx context.Context, target models.Target) (*models.ProfileRecord, error)
	DownloadArtifact(ctx context.Context, target models.Target) (string, error)
	Close() error
}

// Launcher starts fresh sessions
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Options are the collaborators shared by every session
type Options struct {
	Browser   config.BrowserConfig
	Pacer     *humanize.Pacer
	Pipeline  *extract.Pipeline
	Artifacts *storage.Manager
	Logger    logger.Logger
	Clock     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Pacer == nil {
		o.Pacer = humanize.NewPacer(humanize.RealSleep)
	}
	if o.Pipeline == nil {
		o.Pipeline = extract.NewDefaultPipeline()
	}
	if o.Logger == nil {
		o.Logger = logger.NewNopLogger()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

const landingPoll = 500 * time.Millisecond

type session struct {
	page    page
	opts    Options
	limiter *rate.Limiter
	logger  logger.Logger
	current string

	closeOnce sync.Once
	closeErr  error
}

func newSession(p page, opts Options) *session {
	opts = opts.withDefaults()

	limit := rate.Inf
	if n := opts.Browser.NavigationsPerMinute; n > 0 {
		limit = rate.Every(time.Minute / time.Duration(n))
	}

	return &session{
		page:    p,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  opts.Logger.WithField("component", "session"),
	}
}

func (s *session) actionDelay(ctx context.Context) error {
	lo, hi := s.opts.Browser.ActionDelayRange()
	return s.opts.Pacer.Pause(ctx, lo, hi)
}

func (s *session) navigate(ctx context.Context, url string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	s.logger.DebugWithFields("navigating", map[string]interface{}{"url": url})
	if err := s.page.Navigate(ctx, url); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrorTypeNavigation, "failed to load "+url, err)
	}
	s.current = url
	return nil
}

func (s *session) AuthenticateWithCookies(ctx context.Context, set *cookies.Set) (bool, error) {
	if set == nil {
		return false, nil
	}
	live := set.Live(s.opts.Clock())
	if len(live) == 0 {
		s.logger.DebugWithFields("stored cookies expired", map[string]interface{}{"identity": set.Identity})
		return false, nil
	}

	if err := s.page.SetCookies(ctx, live); err != nil {
		return false, errors.Wrap(errors.ErrorTypeBrowser, "failed to replay cookies", err)
	}
	if err := s.navigate(ctx, FeedURL); err != nil {
		return false, err
	}
	if err := s.actionDelay(ctx); err != nil {
		return false, err
	}

	landing, err := s.page.Location(ctx)
	if err != nil {
		return false, errors.Wrap(errors.ErrorTypeBrowser, "failed to read location", err)
	}

	ok := IsAuthenticatedURL(landing)
	s.logger.DebugWithFields("cookie replay checked", map[string]interface{}{
		"identity":      set.Identity,
		"landing":       landing,
		"authenticated": ok,
	})
	return ok, nil
}

func (s *session) AuthenticateWithCredentials(ctx context.Context, email, secret string) (LoginResult, error) {
	if err := s.navigate(ctx, LoginURL); err != nil {
		return LoginResult{}, err
	}
	if err := s.actionDelay(ctx); err != nil {
		return LoginResult{}, err
	}

	steps := []func() error{
		func() error { return s.page.Fill(ctx, usernameInput, email) },
		func() error { return s.page.Fill(ctx, passwordInput, secret) },
		func() error { return s.page.Click(ctx, submitButton) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			if ctx.Err() != nil {
				return LoginResult{}, ctx.Err()
			}
			s.logger.WarnWithFields("login form not usable", map[string]interface{}{
				"account": email,
				"error":   err.Error(),
			})
			return LoginResult{Outcome: LoginFailed}, nil
		}
		if err := s.actionDelay(ctx); err != nil {
			return LoginResult{}, err
		}
	}

	landing, err := s.waitForLanding(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	s.current = landing

	result := LoginResult{Outcome: classifyLanding(landing), Landing: landing}
	if result.Outcome == LoginSucceeded {
		jar, err := s.page.Cookies(ctx)
		if err != nil {
			return LoginResult{}, errors.Wrap(errors.ErrorTypeBrowser, "failed to export cookies", err)
		}
		result.Cookies = &cookies.Set{Identity: email, Cookies: jar, SavedAt: s.opts.Clock()}
	}

	s.logger.InfoWithFields("credential login finished", map[string]interface{}{
		"account": email,
		"outcome": result.Outcome.String(),
	})
	return result, nil
}

func classifyLanding(landing string) LoginOutcome {
	switch {
	case IsAuthenticatedURL(landing):
		return LoginSucceeded
	case IsChallengeURL(landing):
		return LoginChallenge
	default:
		return LoginFailed
	}
}

// waitForLanding polls the location until the browser leaves the login form
// or the page load timeout elapses
func (s *session) waitForLanding(ctx context.Context) (string, error) {
	deadline := s.opts.Browser.PageLoad()
	var landing string
	for waited := time.Duration(0); ; waited += landingPoll {
		loc, err := s.page.Location(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", errors.Wrap(errors.ErrorTypeBrowser, "failed to read location", err)
		}
		landing = loc
		if !strings.HasPrefix(landing, LoginURL) || waited >= deadline {
			return landing, nil
		}
		if err := s.opts.Pacer.Sleep(ctx, landingPoll); err != nil {
			return "", err
		}
	}
}

func (s *session) ExtractProfile(ctx context.Context, target models.Target) (*models.ProfileRecord, error) {
	if !target.Valid() {
		return nil, errors.New(errors.ErrorTypeInvalidTarget, "not a profile url: "+target.Raw)
	}

	if err := s.navigate(ctx, target.URL); err != nil {
		return nil, err
	}
	if err := s.actionDelay(ctx); err != nil {
		return nil, err
	}

	html, err := s.page.HTML(ctx)
	if err != nil {
		return nil, s.browserErr(ctx, "failed to read page", err)
	}
	if extract.IsNotFoundHTML(html) {
		return nil, errors.ErrProfileNotFound
	}

	if err := s.scroll(ctx); err != nil {
		return nil, err
	}
	if err := s.actionDelay(ctx); err != nil {
		return nil, err
	}

	html, err = s.page.HTML(ctx)
	if err != nil {
		return nil, s.browserErr(ctx, "failed to read page", err)
	}

	record, err := s.opts.Pipeline.Process(extract.Page{URL: target.URL, HTML: html})
	if err != nil {
		return nil, err
	}
	record.ScrapedAt = s.opts.Clock()
	return record, nil
}

// scroll walks the page top to bottom in random steps so lazy sections
// render, then returns to the top
func (s *session) scroll(ctx context.Context) error {
	height, err := s.page.PageHeight(ctx)
	if err != nil {
		return s.browserErr(ctx, "failed to measure page", err)
	}

	base := s.opts.Browser.ScrollPause()
	for _, y := range s.opts.Pacer.ScrollPlan(height) {
		if err := s.page.ScrollTo(ctx, y); err != nil {
			return s.browserErr(ctx, "failed to scroll", err)
		}
		if err := s.opts.Pacer.Sleep(ctx, s.opts.Pacer.ScrollPause(base)); err != nil {
			return err
		}
	}

	if err := s.page.ScrollTo(ctx, 0); err != nil {
		return s.browserErr(ctx, "failed to scroll", err)
	}
	return s.opts.Pacer.Sleep(ctx, time.Second)
}

func (s *session) DownloadArtifact(ctx context.Context, target models.Target) (string, error) {
	if s.opts.Artifacts == nil || !target.Valid() {
		return "", nil
	}

	if s.current != target.URL {
		if err := s.navigate(ctx, target.URL); err != nil {
			return "", s.artifactErr(ctx, "failed to open profile", err)
		}
		if err := s.actionDelay(ctx); err != nil {
			return "", err
		}
	}

	more, err := s.first(ctx, moreButtons)
	if err != nil || more == nil {
		s.logger.DebugWithFields("more menu not offered", map[string]interface{}{"target": target.URL})
		return "", err
	}
	if err := s.page.Click(ctx, *more); err != nil {
		return "", s.artifactErr(ctx, "failed to open more menu", err)
	}
	if err := s.actionDelay(ctx); err != nil {
		return "", err
	}

	save, err := s.first(ctx, savePDFItems)
	if err != nil || save == nil {
		s.logger.DebugWithFields("save to pdf not offered", map[string]interface{}{"target": target.URL})
		return "", err
	}

	staging, err := s.opts.Artifacts.StagingDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeArtifact, "failed to prepare download", err)
	}
	downloaded, err := s.page.Download(ctx, staging, *save)
	if err != nil {
		return "", s.artifactErr(ctx, "download failed", err)
	}
	if downloaded == "" {
		return "", nil
	}

	path, err := s.opts.Artifacts.Adopt(downloaded, target.LinkedInID, s.opts.Clock())
	if err != nil {
		return "", errors.Wrap(errors.ErrorTypeArtifact, "failed to store pdf", err)
	}
	return path, nil
}

// first returns the first selector present on the page
func (s *session) first(ctx context.Context, candidates []Selector) (*Selector, error) {
	for i := range candidates {
		ok, err := s.page.Exists(ctx, candidates[i])
		if err != nil {
			return nil, s.artifactErr(ctx, "failed to query page", err)
		}
		if ok {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (s *session) browserErr(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.Wrap(errors.ErrorTypeNavigation, msg, err)
}

func (s *session) artifactErr(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.Wrap(errors.ErrorTypeArtifact, msg, err)
}

func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.page.Close()
		s.logger.Debug("session closed")
	})
	return s.closeErr
}
