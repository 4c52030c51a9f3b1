package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"liscraper/pkg/config"
	"liscraper/pkg/cookies"
	"liscraper/pkg/errors"
	"liscraper/pkg/humanize"
	"liscraper/pkg/ledger"
	"liscraper/pkg/linkedin"
	"liscraper/pkg/logger"
	"liscraper/pkg/models"
)

// Options wires a Coordinator. Config, Ledger, Launcher and Cookies are
// required; the rest are optional.
type Options struct {
	Config   *config.Config
	Ledger   *ledger.Ledger
	Launcher linkedin.Launcher
	Cookies  cookies.Store

	Sink       Sink
	Checkpoint Checkpoint
	Observer   Observer
	Progress   Progress
	Pacer      *humanize.Pacer
	Clock      func() time.Time
	Logger     logger.Logger
}

// Coordinator drives targets one at a time through a single session,
// rotating accounts as the ledger allows
type Coordinator struct {
	cfg        *config.Config
	ledger     *ledger.Ledger
	launcher   linkedin.Launcher
	cookies    cookies.Store
	sink       Sink
	checkpoint Checkpoint
	observer   Observer
	progress   Progress
	pacer      *humanize.Pacer
	now        func() time.Time
	logger     logger.Logger

	state   State
	session linkedin.Session
	account string
}

// New creates a Coordinator
func New(opts Options) (*Coordinator, error) {
	switch {
	case opts.Config == nil:
		return nil, fmt.Errorf("config is required")
	case opts.Ledger == nil:
		return nil, fmt.Errorf("ledger is required")
	case opts.Launcher == nil:
		return nil, fmt.Errorf("launcher is required")
	case opts.Cookies == nil:
		return nil, fmt.Errorf("cookie store is required")
	}

	c := &Coordinator{
		cfg:        opts.Config,
		ledger:     opts.Ledger,
		launcher:   opts.Launcher,
		cookies:    opts.Cookies,
		sink:       opts.Sink,
		checkpoint: opts.Checkpoint,
		observer:   opts.Observer,
		progress:   opts.Progress,
		pacer:      opts.Pacer,
		now:        opts.Clock,
		logger:     opts.Logger,
	}
	if c.pacer == nil {
		c.pacer = humanize.NewPacer(humanize.RealSleep)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = logger.NewNopLogger()
	}
	c.logger = c.logger.WithField("component", "coordinator")
	return c, nil
}

// State returns the current phase
func (c *Coordinator) State() State {
	return c.state
}

func (c *Coordinator) transition(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.logger.DebugWithFields("state change", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
	if c.observer != nil {
		c.observer(from, to)
	}
}

// ScrapeProfiles attempts every target in order and returns one result per
// attempted target.
//
// When every account is exhausted and the single cooldown retry finds none,
// the run aborts: the results cover a prefix of targets and the error wraps
// errors.ErrRunAborted. Cancellation is observed between targets; the target
// in flight always finishes and its result is kept. Every return leaves the
// coordinator in DONE or ABORTED.
func (c *Coordinator) ScrapeProfiles(ctx context.Context, targets []models.Target) ([]models.ScrapeResult, error) {
	results := make([]models.ScrapeResult, 0, len(targets))
	if len(targets) == 0 {
		return results, nil
	}

	runID := uuid.NewString()
	log := c.logger.WithField("run_id", runID)
	started := c.now()
	logger.LogComponentStart(log, "coordinator", map[string]interface{}{
		"targets":  len(targets),
		"accounts": c.ledger.Len(),
	})
	c.state = StateIdle
	defer func() {
		if !c.state.Terminal() {
			c.transition(StateAborted)
		}
		logger.LogComponentStop(log, "coordinator", c.now().Sub(started), map[string]interface{}{
			"state":     c.state.String(),
			"attempted": len(results),
		})
	}()
	defer c.release(log)

	attempted := 0
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			log.InfoWithFields("run canceled", map[string]interface{}{"completed": len(results)})
			return results, err
		}

		if !target.Valid() {
			result := models.ScrapeResult{
				Target:    target,
				Error:     errors.New(errors.ErrorTypeInvalidTarget, "not a profile url").Error(),
				Timestamp: c.now(),
			}
			c.finishTarget(ctx, log, runID, result, nil, 0)
			results = append(results, result)
			continue
		}

		if c.session != nil && !c.ledger.HasCapacity(c.account) {
			log.InfoWithFields("account reached its limit, switching", map[string]interface{}{"account": c.account})
			c.release(log)
		}
		if c.session == nil {
			if err := c.acquire(ctx, log); err != nil {
				return results, err
			}
		}
		c.transition(StateScraping)

		if attempted > 0 {
			lo, hi := c.cfg.Scraper.PacingRange()
			if err := c.pacer.Pause(ctx, lo, hi); err != nil {
				log.InfoWithFields("run canceled", map[string]interface{}{"completed": len(results)})
				return results, err
			}
		}
		attempted++

		if c.progress != nil {
			c.progress.TargetStarted(target, c.account)
		}
		results = append(results, c.scrapeOne(ctx, log, runID, target))
	}

	c.release(log)
	c.transition(StateDone)

	summary := Summarize(results)
	log.InfoWithFields("run finished", map[string]interface{}{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"elapsed":   c.now().Sub(started),
	})
	return results, nil
}

// acquire selects an account and opens an authenticated session for it. It
// waits out one cooldown when nothing is available and aborts if the retry
// finds nothing either.
func (c *Coordinator) acquire(ctx context.Context, log logger.Logger) error {
	cooledDown := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.transition(StateSelectingAccount)

		account := c.ledger.NextAvailable(c.now())
		if account == nil {
			if cooledDown {
				c.transition(StateAborted)
				log.ErrorWithFields("no account available after cooldown, aborting run", map[string]interface{}{
					"accounts": c.ledger.Len(),
				})
				return errors.Wrap(errors.ErrorTypeAborted, "all accounts exhausted", errors.ErrNoAccountAvailable)
			}

			c.transition(StateCooldownWait)
			wait := c.ledger.Policy().Cooldown
			logger.LogCooldown(log, wait)
			if err := c.pacer.Sleep(ctx, wait); err != nil {
				return err
			}
			cooledDown = true
			continue
		}

		c.transition(StateAuthenticating)
		session, err := c.authenticate(ctx, log.WithField("account", account.Email), account)
		if err != nil {
			return err
		}
		if session == nil {
			if err := c.ledger.RecordAuthFailure(account.Email); err != nil {
				log.WithError(err).Warn("failed to record auth failure")
			}
			continue
		}

		c.session = session
		c.account = account.Email
		return nil
	}
}

// authenticate launches a browser and signs the account in, cookies first.
// A nil session with a nil error means the account failed to authenticate.
// Only a browser that cannot be launched, or cancellation, is returned as an
// error.
func (c *Coordinator) authenticate(ctx context.Context, log logger.Logger, account *ledger.Account) (linkedin.Session, error) {
	session, err := c.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	set, err := c.cookies.Load(ctx, account.Email)
	if err != nil {
		log.WithError(err).Warn("failed to load stored cookies")
		set = nil
	}

	if set != nil {
		ok, err := session.AuthenticateWithCookies(ctx, set)
		switch {
		case err != nil && ctx.Err() != nil:
			session.Close()
			return nil, ctx.Err()
		case err != nil:
			// Not a verdict on the cookies, so they stay stored
			log.WithError(err).Warn("cookie replay failed, falling back to credentials")
		case ok:
			log.Info("session restored from cookies")
			return session, nil
		default:
			log.Debug("stored cookies rejected")
			if err := c.cookies.Invalidate(ctx, account.Email); err != nil {
				log.WithError(err).Warn("failed to invalidate cookies")
			}
		}
	}

	login, err := session.AuthenticateWithCredentials(ctx, account.Email, account.Password)
	if err != nil {
		session.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warn("credential login errored, account disabled for this run")
		return nil, nil
	}

	switch login.Outcome {
	case linkedin.LoginSucceeded:
		if err := c.cookies.Save(ctx, login.Cookies); err != nil {
			log.WithError(err).Warn("failed to save cookies")
		}
		log.Info("logged in with credentials")
		return session, nil
	case linkedin.LoginChallenge:
		log.WithError(errors.ErrSecurityChallenge).WarnWithFields("security challenge, account disabled for this run", map[string]interface{}{
			"landing": login.Landing,
		})
	default:
		log.WithError(errors.ErrLoginFailed).WarnWithFields("login failed, account disabled for this run", map[string]interface{}{
			"landing": login.Landing,
		})
	}
	session.Close()
	return nil, nil
}

// scrapeOne runs extraction and the optional PDF download for one target.
// Both run to completion even if ctx is canceled meanwhile.
func (c *Coordinator) scrapeOne(ctx context.Context, log logger.Logger, runID string, target models.Target) models.ScrapeResult {
	work := context.WithoutCancel(ctx)
	started := c.now()
	result := models.ScrapeResult{
		Target:  target,
		Account: c.account,
	}

	record, err := c.session.ExtractProfile(work, target)
	if err != nil {
		result.Error = err.Error()
		if rerr := c.ledger.RecordFailure(c.account, c.now()); rerr != nil {
			log.WithError(rerr).Warn("failed to record usage")
		}
	} else {
		result.Success = true
		result.Data = record
		if rerr := c.ledger.RecordSuccess(c.account, c.now()); rerr != nil {
			log.WithError(rerr).Warn("failed to record usage")
		}
	}

	if c.cfg.Scraper.DownloadArtifacts {
		path, err := c.session.DownloadArtifact(work, target)
		if err != nil {
			log.WithError(err).WarnWithFields("pdf download failed", map[string]interface{}{"target": target.URL})
		}
		result.ArtifactPath = path
	}

	result.Timestamp = c.now()
	c.finishTarget(work, log, runID, result, record, c.now().Sub(started))
	return result
}

// finishTarget persists, journals and logs one result
func (c *Coordinator) finishTarget(ctx context.Context, log logger.Logger, runID string, result models.ScrapeResult, record *models.ProfileRecord, elapsed time.Duration) {
	if result.Success && c.sink != nil {
		meta := models.RecordMeta{
			RunID:        runID,
			Account:      result.Account,
			ArtifactPath: result.ArtifactPath,
			ScrapedAt:    result.Timestamp,
		}
		if err := c.sink.Upsert(ctx, record, meta); err != nil {
			log.WithError(err).ErrorWithFields("failed to persist profile", map[string]interface{}{
				"target": result.Target.String(),
			})
		}
	}

	if c.checkpoint != nil {
		if err := c.checkpoint.Record(result); err != nil {
			log.WithError(err).Warn("failed to write checkpoint")
		}
	}

	logger.LogTargetResult(log, result.Target.String(), result.Account, result.Success, result.Error, elapsed)
	if c.progress != nil {
		c.progress.TargetFinished(result)
	}
}

// release closes the current session, if any
func (c *Coordinator) release(log logger.Logger) {
	if c.session == nil {
		return
	}
	if err := c.session.Close(); err != nil {
		log.WithError(err).Warn("failed to close session")
	}
	c.session = nil
	c.account = ""
}
