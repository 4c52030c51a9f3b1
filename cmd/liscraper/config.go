package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"liscraper/pkg/auth"
	"liscraper/pkg/config"
	"liscraper/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage liscraper configuration.

Values are taken from, highest priority first:
  - command line flags
  - LISCRAPER_* environment variables (a .env file is read too)
  - the configuration file
  - built-in defaults`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented configuration file",
	Long: `Write a configuration file with every option and its default.

The file is created as liscraper.yaml in the current directory unless
--config names another path. Existing files are never overwritten.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration and the environment it needs",
	RunE:  runConfigValidate,
}

var initPlain bool

func init() {
	configInitCmd.Flags().BoolVar(&initPlain, "plain", false, "write bare defaults without comments")
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}

const exampleConfig = `# liscraper configuration
#
# Every option can also be set with an environment variable prefixed
# LISCRAPER_, e.g. LISCRAPER_MAX_PROFILES_PER_ACCOUNT=30.
# Accounts are not configured here: use 'liscraper accounts add' or
# LINKEDIN_ACCOUNTS='[{"email":"...","password":"..."}]'.

browser:
  headless: true
  # Random pause around every click and keystroke, in seconds
  action_delay_min: 3
  action_delay_max: 7
  # Base pause after each scroll step, in seconds (plus up to 1s jitter)
  scroll_delay: 2
  # Navigation timeout in milliseconds
  page_load_timeout: 60000
  user_agent: ""
  # Chrome binary; empty finds the installed one
  exec_path: ""
  # Upper bound on page loads per session
  navigations_per_minute: 6

scraper:
  # Profiles one account serves before it has to rest
  max_profiles_per_account: 50
  # How long an exhausted account rests
  cooldown_minutes: 30
  # Random pause between two profiles, in seconds
  pacing_min: 5
  pacing_max: 10
  # Cap on profiles per run, 0 for no cap
  max_profiles: 100
  download_artifacts: true

cookies:
  # file or redis
  backend: file
  dir: cookies
  redis_addr: localhost:6379
  redis_password: ""
  redis_db: 0
  # How long redis keeps a session without a refresh
  ttl_hours: 720

output:
  download_dir: downloads
  profiles_db: data/profiles
  # Empty uses the per-user data directory
  checkpoint_dir: ""

logging:
  # debug, info, warn, error
  level: info
  # Also write JSON lines here
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "liscraper.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if initPlain {
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
	} else if err := os.WriteFile(path, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. liscraper accounts add")
	fmt.Println("  2. liscraper session collect --email <account>")
	fmt.Println("  3. liscraper scrape --input profiles.txt")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	display := *cfg
	if display.Cookies.RedisPassword != "" {
		display.Cookies.RedisPassword = "********"
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	fmt.Print(string(data))

	source := configFile
	if source == "" {
		source = "(searched default locations)"
	}
	fmt.Println()
	ui.PrintInfo("Config file", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		ui.PrintError("Configuration is invalid")
		return err
	}

	var problems, warnings []string

	for _, dir := range []string{cfg.Output.DownloadDir, filepath.Dir(cfg.Output.ProfilesDB)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create %s: %v", dir, err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if cfg.Browser.ExecPath != "" {
		if _, err := os.Stat(cfg.Browser.ExecPath); err != nil {
			problems = append(problems, fmt.Sprintf("chrome not found at %s", cfg.Browser.ExecPath))
		}
	}
	if cfg.Scraper.PacingMin < 2 {
		warnings = append(warnings, "pacing below 2 seconds makes accounts easy to flag")
	}

	if manager, err := auth.NewManager(); err != nil {
		warnings = append(warnings, fmt.Sprintf("credential catalog unavailable: %v", err))
	} else if accounts, err := manager.List(); err != nil || len(accounts) == 0 {
		warnings = append(warnings, "no accounts configured")
	}

	if len(warnings) > 0 {
		for _, w := range warnings {
			ui.PrintWarning("  - " + w)
		}
	}
	if len(problems) > 0 {
		for _, p := range problems {
			ui.PrintError("  - " + p)
		}
		return errors.New("configuration has errors")
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Accounts rotate", fmt.Sprintf("%d profiles each, %s cooldown", cfg.Scraper.MaxProfilesPerAccount, cfg.Scraper.Cooldown()))
	ui.PrintInfo("Cookies", cfg.Cookies.Backend)
	ui.PrintInfo("Downloads", cfg.Output.DownloadDir)
	return nil
}
