// Package scraper coordinates a multi-account scraping run.
//
// A Coordinator walks the targets in order with a single browser session. It
// asks the ledger for an account, signs in with stored cookies or falls back
// to credentials, extracts each profile and rotates to the next account when
// the current one reaches its cap. When no account is available it waits one
// cooldown period and tries again once; if that fails the run is aborted and
// the caller receives the results gathered so far.
//
// Usage:
//
//	c, err := scraper.New(scraper.Options{
//	    Config:   cfg,
//	    Ledger:   ledger.New(accounts, policy),
//	    Launcher: linkedin.NewChromeLauncher(opts),
//	    Cookies:  store,
//	    Logger:   log,
//	})
//	results, err := c.ScrapeProfiles(ctx, targets)
package scraper
