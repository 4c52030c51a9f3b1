package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"liscraper/internal/store"
	"liscraper/pkg/auth"
	"liscraper/pkg/checkpoint"
	"liscraper/pkg/config"
	lierrors "liscraper/pkg/errors"
	"liscraper/pkg/extract"
	"liscraper/pkg/ledger"
	"liscraper/pkg/logger"
	"liscraper/pkg/models"
	"liscraper/pkg/scraper"
	"liscraper/pkg/storage"
	"liscraper/pkg/ui"
	"liscraper/pkg/ui/tui"
)

var (
	scrapeInput       string
	scrapeMaxProfiles int
	scrapeDryRun      bool
	scrapeCookiesDir  string
	scrapeDownloadDir string
	scrapeResume      bool
	scrapeNoPDF       bool
	scrapeHeadful     bool
	scrapeTUI         bool
	scrapeNotify      bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [profile...]",
	Short: "Scrape LinkedIn profiles",
	Long: `Scrape LinkedIn profiles, rotating through the account catalog.

Profiles are given as URLs or public ids, as arguments or one per line in
--input (blank lines and lines starting with # are skipped). Every profile is
attempted once, in order. The run ends early only when every account is at
its limit and still is after one cooldown.

Extracted profiles are stored in the profile database; PDFs go to the
download directory unless --no-pdf is given.`,
	Example: `  # A couple of profiles
  liscraper scrape https://www.linkedin.com/in/jane-doe/ john-roe

  # A list, without PDFs, capped at 20 profiles
  liscraper scrape --input profiles.txt --no-pdf --max-profiles 20

  # Continue an aborted run
  liscraper scrape --input profiles.txt --resume

  # See what a run would do
  liscraper scrape --input profiles.txt --dry-run`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&scrapeInput, "input", "i", "", "file with one profile URL or id per line")
	scrapeCmd.Flags().IntVarP(&scrapeMaxProfiles, "max-profiles", "n", 0, "maximum number of profiles to attempt")
	scrapeCmd.Flags().BoolVar(&scrapeDryRun, "dry-run", false, "print the plan without launching a browser")
	scrapeCmd.Flags().StringVar(&scrapeCookiesDir, "cookies-dir", "", "directory for stored cookies (file backend)")
	scrapeCmd.Flags().StringVarP(&scrapeDownloadDir, "output", "o", "", "directory for profile PDFs")
	scrapeCmd.Flags().BoolVar(&scrapeResume, "resume", false, "skip profiles attempted by the previous unfinished run")
	scrapeCmd.Flags().BoolVar(&scrapeNoPDF, "no-pdf", false, "do not download profile PDFs")
	scrapeCmd.Flags().BoolVar(&scrapeHeadful, "headful", false, "show the browser window")
	scrapeCmd.Flags().BoolVar(&scrapeTUI, "tui", false, "full-screen dashboard (logs go to the log file)")
	scrapeCmd.Flags().BoolVar(&scrapeNotify, "notify", false, "desktop notification when the run ends")
}

func runScrape(cmd *cobra.Command, args []string) error {
	useTUI := scrapeTUI && ui.IsTerminal()
	cfg, log, err := setupLogging(map[string]interface{}{
		"max-profiles": scrapeMaxProfiles,
		"cookies-dir":  scrapeCookiesDir,
		"download-dir": scrapeDownloadDir,
		"no-pdf":       scrapeNoPDF,
		"headful":      scrapeHeadful,
	}, useTUI)
	if err != nil {
		return err
	}

	targets, err := gatherTargets(args, scrapeInput)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("no profiles given: pass URLs as arguments or use --input")
	}
	if limit := cfg.Scraper.MaxProfiles; limit > 0 && len(targets) > limit {
		log.WarnWithFields("target list truncated", map[string]interface{}{
			"given": len(targets),
			"max":   limit,
		})
		targets = targets[:limit]
	}

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	journals, err := checkpoint.NewManager(cfg.Output.CheckpointDir, log)
	if err != nil {
		return err
	}
	var previous *checkpoint.Checkpoint
	if scrapeResume {
		if previous, err = journals.Load(); err != nil {
			return fmt.Errorf("failed to read checkpoint: %w", err)
		}
		if previous != nil && previous.Resumable() {
			skipped := len(targets)
			targets = previous.Remaining(targets)
			skipped -= len(targets)
			ui.PrintInfo("Resuming", fmt.Sprintf("%s, %d profiles already attempted", previous.RunID, skipped))
		} else {
			previous = nil
			ui.PrintWarning("Nothing to resume, starting a new run")
		}
	}

	if scrapeDryRun {
		printPlan(cfg, targets, catalog)
		return nil
	}
	if len(targets) == 0 {
		ui.PrintSummary("0/0 profiles scraped, 0 failed", true)
		return nil
	}

	var journal *checkpoint.Journal
	if previous != nil {
		journal = journals.Resume(previous)
	} else if journal, err = journals.Start(); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cookieStore, closeCookies, err := openCookieStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open cookie store: %w", err)
	}
	defer closeCookies()

	var artifacts *storage.Manager
	if cfg.Scraper.DownloadArtifacts {
		if artifacts, err = storage.NewManager(cfg.Output.DownloadDir); err != nil {
			return fmt.Errorf("failed to prepare download directory: %w", err)
		}
	}

	profiles, err := store.Open(cfg.Output.ProfilesDB, log)
	if err != nil {
		return err
	}
	defer profiles.Close()

	var (
		view      ui.RunView
		dashboard *tui.Dashboard
		lines     *ui.ProgressDisplay
	)
	if useTUI {
		dashboard = tui.NewDashboard(targets, cancel)
		view = dashboard
	} else {
		lines = ui.NewProgressDisplay(os.Stdout, len(targets), verbose)
		view = lines
	}

	coordinator, err := scraper.New(scraper.Options{
		Config:     cfg,
		Ledger:     ledger.New(catalog, ledger.Policy{MaxProfilesPerAccount: cfg.Scraper.MaxProfilesPerAccount, Cooldown: cfg.Scraper.Cooldown()}),
		Launcher:   newLauncher(cfg, log, artifacts),
		Cookies:    cookieStore,
		Sink:       profiles,
		Checkpoint: journal,
		Observer:   func(from, to scraper.State) { view.StateChanged(from.String(), to.String()) },
		Progress:   view,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	var (
		results []models.ScrapeResult
		runErr  error
	)
	if dashboard != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			results, runErr = coordinator.ScrapeProfiles(ctx, targets)
			dashboard.Finish(scraper.Summarize(results).Line(len(targets)))
		}()
		if err := dashboard.Start(); err != nil {
			log.WithError(err).Warn("dashboard stopped")
		}
		cancel()
		<-done
	} else {
		ui.PrintInfo("Profiles", fmt.Sprintf("%d, across %d accounts", len(targets), len(catalog)))
		results, runErr = coordinator.ScrapeProfiles(ctx, targets)
		lines.Complete()
	}

	return finishRun(ctx, log, journal, results, runErr, len(targets))
}

// finishRun closes the journal, prints the summary line and decides the
// exit status. A canceled run is not an error.
func finishRun(ctx context.Context, log logger.Logger, journal *checkpoint.Journal, results []models.ScrapeResult, runErr error, requested int) error {
	summary := scraper.Summarize(results)
	line := summary.Line(requested)

	status := checkpoint.StatusDone
	switch {
	case runErr == nil:
	case errors.Is(runErr, lierrors.ErrRunAborted):
		status = checkpoint.StatusAborted
	case errors.Is(runErr, context.Canceled) || ctx.Err() != nil:
		status = checkpoint.StatusCanceled
	default:
		status = checkpoint.StatusAborted
	}
	if err := journal.Finish(status); err != nil {
		log.WithError(err).Warn("failed to close checkpoint")
	}

	log.InfoWithFields("run summary", map[string]interface{}{
		"status":    status,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"requested": requested,
		"pdfs":      summary.Artifacts,
	})
	ui.PrintSummary(line, runErr == nil && summary.Failed == 0)

	if scrapeNotify {
		if err := ui.NewNotifier().RunFinished(line, status == checkpoint.StatusAborted); err != nil {
			log.WithError(err).Debug("desktop notification failed")
		}
	}

	if status == checkpoint.StatusCanceled {
		ui.PrintWarning("Run interrupted, continue with --resume")
		return nil
	}
	if status == checkpoint.StatusAborted {
		ui.PrintWarning("Run stopped early, continue with --resume once accounts have rested")
	}
	return runErr
}

// gatherTargets resolves positional arguments followed by the input file
func gatherTargets(args []string, input string) ([]models.Target, error) {
	lines := append([]string(nil), args...)
	if input != "" {
		file, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
	}
	return extract.NewTargets(lines), nil
}

// loadCatalog returns the accounts to rotate through, failing when none is
// active
func loadCatalog() ([]*auth.Account, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	accounts, err := manager.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	for _, account := range accounts {
		if account.Active {
			return accounts, nil
		}
	}
	return nil, errors.New("no active accounts: add one with 'liscraper accounts add' or set LINKEDIN_ACCOUNTS")
}

func printPlan(cfg *config.Config, targets []models.Target, catalog []*auth.Account) {
	active := 0
	for _, account := range catalog {
		if account.Active {
			active++
		}
	}
	invalid := 0
	for _, t := range targets {
		if !t.Valid() {
			invalid++
		}
	}

	perWindow := active * cfg.Scraper.MaxProfilesPerAccount
	ui.PrintInfo("Profiles", fmt.Sprintf("%d (%d not recognized as profiles)", len(targets), invalid))
	ui.PrintInfo("Accounts", fmt.Sprintf("%d active of %d", active, len(catalog)))
	ui.PrintInfo("Capacity", fmt.Sprintf("%d per account, %d before a cooldown of %s", cfg.Scraper.MaxProfilesPerAccount, perWindow, cfg.Scraper.Cooldown()))
	ui.PrintInfo("PDFs", onOff(cfg.Scraper.DownloadArtifacts))
	ui.PrintInfo("Cookies", cfg.Cookies.Backend)

	valid := len(targets) - invalid
	if valid > 2*perWindow {
		ui.PrintWarning(fmt.Sprintf("%d profiles exceed what the pool can serve with one cooldown (%d); expect the run to stop early", valid, 2*perWindow))
	}

	preview := targets
	if len(preview) > 10 {
		preview = preview[:10]
	}
	for _, t := range preview {
		fmt.Printf("  %s %s\n", ui.Dim("•"), t.String())
	}
	if len(targets) > len(preview) {
		fmt.Printf("  %s\n", ui.Dim(fmt.Sprintf("... and %d more", len(targets)-len(preview))))
	}
	ui.PrintSummary(fmt.Sprintf("dry run: 0/%d profiles scraped, nothing launched", len(targets)), true)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
