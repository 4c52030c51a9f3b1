package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"liscraper/pkg/auth"
	"liscraper/pkg/config"
	"liscraper/pkg/cookies"
	"liscraper/pkg/linkedin"
	"liscraper/pkg/logger"
	"liscraper/pkg/ui"
)

var (
	collectEmail      string
	collectPassword   string
	collectValidate   bool
	collectSave       bool
	sessionCookiesDir string
	sessionHeadful    bool
	validatePrune     bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored session cookies",
	Long: `Manage the session cookies liscraper keeps for each account.

A stored session lets a run skip the login form. Sessions are refreshed
automatically whenever a run has to log in with credentials.`,
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Log in once and store the session cookies",
	Long: `Log an account in through the browser and store its session cookies.

The password is taken from --password, then the credential catalog, then an
interactive prompt. With --validate nothing is stored: the existing cookies
are replayed and reported as valid or not.

If LinkedIn asks for a security check, run again with --headful and complete
it in the browser window.`,
	Example: `  # Interactive
  liscraper session collect --email me@example.com

  # Check the stored session without logging in
  liscraper session collect --email me@example.com --validate`,
	RunE: runCollect,
}

var validateSessionsCmd = &cobra.Command{
	Use:   "validate",
	Short: "Replay every stored session and report which still work",
	RunE:  runValidateSessions,
}

var listSessionsCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE:  runListSessions,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(collectCmd, validateSessionsCmd, listSessionsCmd)

	sessionCmd.PersistentFlags().StringVar(&sessionCookiesDir, "cookies-dir", "", "directory for stored cookies (file backend)")
	sessionCmd.PersistentFlags().BoolVar(&sessionHeadful, "headful", false, "show the browser window")

	collectCmd.Flags().StringVarP(&collectEmail, "email", "e", "", "account email")
	collectCmd.Flags().StringVar(&collectPassword, "password", "", "account password (prompted when omitted)")
	collectCmd.Flags().BoolVar(&collectValidate, "validate", false, "only check the stored cookies")
	collectCmd.Flags().BoolVar(&collectSave, "save-account", false, "also add the account to the credential catalog")

	validateSessionsCmd.Flags().BoolVar(&validatePrune, "prune", false, "delete sessions that are no longer valid")
}

func sessionFlags() map[string]interface{} {
	return map[string]interface{}{
		"cookies-dir": sessionCookiesDir,
		"headful":     sessionHeadful,
	}
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(sessionFlags())
	if err != nil {
		return err
	}

	email := auth.NormalizeEmail(collectEmail)
	if email == "" {
		if email, err = promptLine("LinkedIn email: "); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = auth.NormalizeEmail(email)
	}
	if email == "" {
		return errors.New("an email is required")
	}
	log = log.WithField("account", email)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	cmd.SetContext(ctx)

	store, closeStore, err := openCookieStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open cookie store: %w", err)
	}
	defer closeStore()

	if collectValidate {
		valid, err := replayStored(cmd, store, email, cfg, log)
		if err != nil {
			return err
		}
		if valid {
			ui.PrintSummary("1/1 sessions valid", true)
		} else {
			ui.PrintSummary("0/1 sessions valid", false)
		}
		return nil
	}

	password := collectPassword
	if password == "" {
		if manager, err := auth.NewManager(); err == nil {
			if account, err := manager.Retrieve(email); err == nil {
				password = account.Password
				log.Debug("using password from credential catalog")
			}
		}
	}
	if password == "" {
		if password, err = promptSecret("Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	session, err := newLauncher(cfg, log, nil).Launch(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	ui.PrintInfo("Logging in", email)
	result, err := session.AuthenticateWithCredentials(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	switch result.Outcome {
	case linkedin.LoginSucceeded:
		if err := store.Save(ctx, result.Cookies); err != nil {
			return fmt.Errorf("failed to store cookies: %w", err)
		}
		log.InfoWithFields("session collected", map[string]interface{}{"cookies": len(result.Cookies.Cookies)})
		if collectSave {
			if err := saveAccount(email, password); err != nil {
				ui.PrintWarning("Could not add account to the catalog", err)
			}
		}
		ui.PrintSummary(fmt.Sprintf("session stored for %s (%d cookies)", email, len(result.Cookies.Cookies)), true)
		return nil
	case linkedin.LoginChallenge:
		ui.PrintWarning("LinkedIn asked for a security check", result.Landing)
		ui.PrintInfo("Hint", "run again with --headful and complete the check in the browser")
		return errors.New("security challenge")
	default:
		return fmt.Errorf("login rejected for %s", email)
	}
}

// replayStored launches a fresh browser and replays the stored cookies for
// email. A missing session counts as invalid.
func replayStored(cmd *cobra.Command, store cookies.Store, email string, cfg *config.Config, log logger.Logger) (bool, error) {
	ctx := cmd.Context()
	set, err := store.Load(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to load cookies: %w", err)
	}
	if set == nil {
		ui.PrintWarning("No stored session", email)
		return false, nil
	}

	session, err := newLauncher(cfg, log, nil).Launch(ctx)
	if err != nil {
		return false, err
	}
	defer session.Close()

	ok, err := session.AuthenticateWithCookies(ctx, set)
	if err != nil {
		log.WithError(err).Warn("cookie replay failed")
		ok = false
	}
	if ok {
		fmt.Printf("%s %s %s\n", ui.Green("✓"), email, ui.Dim("saved "+set.SavedAt.Local().Format(time.DateTime)))
	} else {
		fmt.Printf("%s %s %s\n", ui.Red("✗"), email, ui.Dim("rejected"))
	}
	return ok, nil
}

func runValidateSessions(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(sessionFlags())
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	cmd.SetContext(ctx)

	store, closeStore, err := openCookieStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open cookie store: %w", err)
	}
	defer closeStore()

	identities, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(identities) == 0 {
		ui.PrintInfo("No stored sessions", "use 'liscraper session collect' to add one")
		return nil
	}

	valid := 0
	for _, identity := range identities {
		if ctx.Err() != nil {
			break
		}
		ok, err := replayStored(cmd, store, identity, cfg, log.WithField("account", identity))
		if err != nil {
			return err
		}
		if ok {
			valid++
			continue
		}
		if validatePrune {
			if err := store.Invalidate(ctx, identity); err != nil {
				log.WithError(err).Warn("failed to delete session")
			}
		}
	}

	ui.PrintSummary(fmt.Sprintf("%d/%d sessions valid", valid, len(identities)), valid == len(identities))
	return nil
}

func runListSessions(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(sessionFlags())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, closeStore, err := openCookieStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open cookie store: %w", err)
	}
	defer closeStore()

	identities, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(identities) == 0 {
		ui.PrintInfo("No stored sessions", "use 'liscraper session collect' to add one")
		return nil
	}

	now := time.Now()
	for i, identity := range identities {
		set, err := store.Load(ctx, identity)
		if err != nil || set == nil {
			fmt.Printf("%d. %s %s\n", i+1, identity, ui.Red("unreadable"))
			continue
		}
		live := len(set.Live(now))
		status := ui.Green(fmt.Sprintf("%d live cookies", live))
		if live == 0 {
			status = ui.Yellow("expired")
		}
		fmt.Printf("%d. %s  %s  %s\n", i+1, identity, status, ui.Dim("saved "+set.SavedAt.Local().Format(time.DateTime)))
	}
	return nil
}
