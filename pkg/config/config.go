package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "LISCRAPER_"

// DefaultUserAgent is presented by the automated browser unless overridden
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds all settings for a scraping run
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Scraper ScraperConfig `yaml:"scraper"`
	Cookies CookiesConfig `yaml:"cookies"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// BrowserConfig controls the automated browser and its humanization pacing.
// Delays are in seconds, the page load timeout in milliseconds.
type BrowserConfig struct {
	Headless             bool    `yaml:"headless"`
	ActionDelayMin       float64 `yaml:"action_delay_min"`
	ActionDelayMax       float64 `yaml:"action_delay_max"`
	ScrollDelay          float64 `yaml:"scroll_delay"`
	PageLoadTimeout      int     `yaml:"page_load_timeout"`
	UserAgent            string  `yaml:"user_agent"`
	ExecPath             string  `yaml:"exec_path"`
	NavigationsPerMinute int     `yaml:"navigations_per_minute"`
}

// ScraperConfig controls account rotation and per-run limits
type ScraperConfig struct {
	MaxProfilesPerAccount int     `yaml:"max_profiles_per_account"`
	CooldownMinutes       int     `yaml:"cooldown_minutes"`
	PacingMin             float64 `yaml:"pacing_min"`
	PacingMax             float64 `yaml:"pacing_max"`
	MaxProfiles           int     `yaml:"max_profiles"`
	DownloadArtifacts     bool    `yaml:"download_artifacts"`
}

// CookiesConfig selects where session cookies are kept
type CookiesConfig struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLHours      int    `yaml:"ttl_hours"`
}

// OutputConfig holds the on-disk locations written by a run
type OutputConfig struct {
	DownloadDir   string `yaml:"download_dir"`
	ProfilesDB    string `yaml:"profiles_db"`
	CheckpointDir string `yaml:"checkpoint_dir"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:             true,
			ActionDelayMin:       3,
			ActionDelayMax:       7,
			ScrollDelay:          2,
			PageLoadTimeout:      60000,
			UserAgent:            DefaultUserAgent,
			NavigationsPerMinute: 6,
		},
		Scraper: ScraperConfig{
			MaxProfilesPerAccount: 50,
			CooldownMinutes:       30,
			PacingMin:             5,
			PacingMax:             10,
			MaxProfiles:           100,
			DownloadArtifacts:     true,
		},
		Cookies: CookiesConfig{
			Backend:   "file",
			Dir:       "cookies",
			RedisAddr: "localhost:6379",
			TTLHours:  720,
		},
		Output: OutputConfig{
			DownloadDir: "downloads",
			ProfilesDB:  filepath.Join("data", "profiles"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ActionDelayRange returns the humanization delay bounds
func (b BrowserConfig) ActionDelayRange() (time.Duration, time.Duration) {
	return seconds(b.ActionDelayMin), seconds(b.ActionDelayMax)
}

// ScrollPause returns the base pause after each scroll step
func (b BrowserConfig) ScrollPause() time.Duration {
	return seconds(b.ScrollDelay)
}

// PageLoad returns the navigation timeout
func (b BrowserConfig) PageLoad() time.Duration {
	return time.Duration(b.PageLoadTimeout) * time.Millisecond
}

// Cooldown returns the account cooldown as a duration
func (s ScraperConfig) Cooldown() time.Duration {
	return time.Duration(s.CooldownMinutes) * time.Minute
}

// PacingRange returns the bounds of the delay between two profile attempts
func (s ScraperConfig) PacingRange() (time.Duration, time.Duration) {
	return seconds(s.PacingMin), seconds(s.PacingMax)
}

// TTL returns how long a stored cookie set is retained by expiring backends
func (c CookiesConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// LoadFromEnv overrides values from LISCRAPER_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(envBool("HEADLESS", &c.Browser.Headless))
	collect(envFloat("ACTION_DELAY_MIN", &c.Browser.ActionDelayMin))
	collect(envFloat("ACTION_DELAY_MAX", &c.Browser.ActionDelayMax))
	collect(envFloat("SCROLL_DELAY", &c.Browser.ScrollDelay))
	collect(envInt("PAGE_LOAD_TIMEOUT", &c.Browser.PageLoadTimeout))
	envString("USER_AGENT", &c.Browser.UserAgent)
	envString("CHROME_PATH", &c.Browser.ExecPath)
	collect(envInt("NAVIGATIONS_PER_MINUTE", &c.Browser.NavigationsPerMinute))

	collect(envInt("MAX_PROFILES_PER_ACCOUNT", &c.Scraper.MaxProfilesPerAccount))
	collect(envInt("COOLDOWN_MINUTES", &c.Scraper.CooldownMinutes))
	collect(envFloat("PACING_MIN", &c.Scraper.PacingMin))
	collect(envFloat("PACING_MAX", &c.Scraper.PacingMax))
	collect(envInt("MAX_PROFILES", &c.Scraper.MaxProfiles))
	collect(envBool("DOWNLOAD_ARTIFACTS", &c.Scraper.DownloadArtifacts))

	envString("COOKIE_BACKEND", &c.Cookies.Backend)
	envString("COOKIES_DIR", &c.Cookies.Dir)
	envString("REDIS_ADDR", &c.Cookies.RedisAddr)
	envString("REDIS_PASSWORD", &c.Cookies.RedisPassword)
	collect(envInt("REDIS_DB", &c.Cookies.RedisDB))
	collect(envInt("REDIS_TTL_HOURS", &c.Cookies.TTLHours))

	envString("DOWNLOAD_DIR", &c.Output.DownloadDir)
	envString("PROFILES_DB", &c.Output.ProfilesDB)
	envString("CHECKPOINT_DIR", &c.Output.CheckpointDir)

	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

func envString(name string, dst *string) {
	if v := os.Getenv(envPrefix + name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) error {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = n
	return nil
}

func envFloat(name string, dst *float64) error {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = f
	return nil
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = b
	return nil
}

// LoadFromFile loads configuration from a YAML file. An empty path searches
// the default locations and is not an error when nothing is found.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		"liscraper.yaml",
		".liscraper.yaml",
		".liscraper.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "liscraper", "config.yaml"),
			filepath.Join(home, ".liscraper.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks the configuration and reports every problem at once
func (c *Config) Validate() error {
	var errs []error

	b := c.Browser
	if b.ActionDelayMin < 0 || b.ActionDelayMax < 0 {
		errs = append(errs, errors.New("action delays cannot be negative"))
	}
	if b.ActionDelayMin > b.ActionDelayMax {
		errs = append(errs, errors.New("action_delay_min must not exceed action_delay_max"))
	}
	if b.ScrollDelay < 0 {
		errs = append(errs, errors.New("scroll delay cannot be negative"))
	}
	if b.PageLoadTimeout <= 0 {
		errs = append(errs, errors.New("page load timeout must be positive"))
	}
	if b.NavigationsPerMinute < 0 {
		errs = append(errs, errors.New("navigations per minute cannot be negative"))
	}

	s := c.Scraper
	if s.MaxProfilesPerAccount <= 0 {
		errs = append(errs, errors.New("max profiles per account must be positive"))
	}
	if s.CooldownMinutes < 0 {
		errs = append(errs, errors.New("cooldown minutes cannot be negative"))
	}
	if s.PacingMin < 0 || s.PacingMin > s.PacingMax {
		errs = append(errs, errors.New("pacing range is invalid"))
	}
	if s.MaxProfiles < 0 {
		errs = append(errs, errors.New("max profiles cannot be negative"))
	}

	switch strings.ToLower(c.Cookies.Backend) {
	case "file":
		if c.Cookies.Dir == "" {
			errs = append(errs, errors.New("cookies directory is required for the file backend"))
		}
	case "redis":
		if c.Cookies.RedisAddr == "" {
			errs = append(errs, errors.New("redis address is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cookie backend %q", c.Cookies.Backend))
	}

	if c.Output.DownloadDir == "" {
		errs = append(errs, errors.New("download directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeCommandLineFlags applies values set on the command line. Keys are flag
// names; zero values mean the flag was not given.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["max-profiles"].(int); ok && v > 0 {
		c.Scraper.MaxProfiles = v
	}
	if v, ok := flags["cookies-dir"].(string); ok && v != "" {
		c.Cookies.Dir = v
	}
	if v, ok := flags["download-dir"].(string); ok && v != "" {
		c.Output.DownloadDir = v
	}
	if v, ok := flags["no-pdf"].(bool); ok && v {
		c.Scraper.DownloadArtifacts = false
	}
	if v, ok := flags["headful"].(bool); ok && v {
		c.Browser.Headless = false
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load builds the configuration from all sources.
// Precedence: flags > environment (including .env) > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".liscraper.env"))
	}

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
