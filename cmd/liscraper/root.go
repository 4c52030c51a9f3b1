package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"liscraper/pkg/config"
	"liscraper/pkg/cookies"
	"liscraper/pkg/logger"
	"liscraper/pkg/ui"
)

const defaultLogFile = "liscraper.log"

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile string
	logLevel   string
	logFile    string
	quiet      bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "liscraper",
	Short: "Collect LinkedIn profiles across a pool of accounts",
	Long: `liscraper visits LinkedIn profile pages in a real browser, extracts the
profile into structured records and optionally saves each profile's PDF.

Work is spread over several accounts: each account serves a bounded number of
profiles, then rests for a cooldown while the next one takes over. Session
cookies are reused between runs so accounts rarely log in.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			logLevel = "error"
		} else if verbose {
			logLevel = "debug"
		}
	},
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: liscraper.yaml, then ~/.config/liscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	rootCmd.SetVersionTemplate(`liscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags with command-specific ones and loads
// the configuration from every source
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}
	return cfg, nil
}

// setup loads the configuration and builds the logger every command shares
func setup(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	return setupLogging(flags, false)
}

// setupLogging is setup with the option of keeping the console free for a
// full-screen UI, in which case logs only go to the log file
func setupLogging(flags map[string]interface{}, fileOnly bool) (*config.Config, logger.Logger, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var log logger.Logger
	if fileOnly {
		if cfg.Logging.File == "" {
			cfg.Logging.File = defaultLogFile
		}
		log, err = logger.NewFileOnly(&cfg.Logging)
	} else {
		log, err = logger.New(&cfg.Logging)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log.WithField("version", version), nil
}

// openCookieStore opens the configured cookie backend. The returned close
// function is always safe to call.
func openCookieStore(ctx context.Context, cfg *config.Config, log logger.Logger) (cookies.Store, func(), error) {
	switch strings.ToLower(cfg.Cookies.Backend) {
	case "redis":
		store, err := cookies.NewRedisStore(ctx, cookies.RedisOptions{
			Addr:     cfg.Cookies.RedisAddr,
			Password: cfg.Cookies.RedisPassword,
			DB:       cfg.Cookies.RedisDB,
			TTL:      cfg.Cookies.TTL(),
		}, log)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("failed to close redis client")
			}
		}, nil
	default:
		store, err := cookies.NewFileStore(cfg.Cookies.Dir, log)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {}, nil
	}
}
