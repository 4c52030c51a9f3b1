package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 60000, cfg.Browser.PageLoadTimeout)
	assert.Equal(t, 50, cfg.Scraper.MaxProfilesPerAccount)
	assert.Equal(t, 30, cfg.Scraper.CooldownMinutes)
	assert.Equal(t, "downloads", cfg.Output.DownloadDir)
	assert.Equal(t, "file", cfg.Cookies.Backend)
	require.NoError(t, cfg.Validate())

	lo, hi := cfg.Browser.ActionDelayRange()
	assert.Equal(t, 3*time.Second, lo)
	assert.Equal(t, 7*time.Second, hi)
	assert.Equal(t, 30*time.Minute, cfg.Scraper.Cooldown())
	assert.Equal(t, time.Minute, cfg.Browser.PageLoad())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LISCRAPER_HEADLESS", "false")
	t.Setenv("LISCRAPER_ACTION_DELAY_MIN", "1.5")
	t.Setenv("LISCRAPER_ACTION_DELAY_MAX", "2")
	t.Setenv("LISCRAPER_MAX_PROFILES_PER_ACCOUNT", "10")
	t.Setenv("LISCRAPER_COOLDOWN_MINUTES", "5")
	t.Setenv("LISCRAPER_COOKIE_BACKEND", "redis")
	t.Setenv("LISCRAPER_REDIS_ADDR", "cache:6379")
	t.Setenv("LISCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1.5, cfg.Browser.ActionDelayMin)
	assert.Equal(t, 2.0, cfg.Browser.ActionDelayMax)
	assert.Equal(t, 10, cfg.Scraper.MaxProfilesPerAccount)
	assert.Equal(t, 5, cfg.Scraper.CooldownMinutes)
	assert.Equal(t, "redis", cfg.Cookies.Backend)
	assert.Equal(t, "cache:6379", cfg.Cookies.RedisAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("LISCRAPER_COOLDOWN_MINUTES", "thirty")
	t.Setenv("LISCRAPER_HEADLESS", "maybe")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LISCRAPER_COOLDOWN_MINUTES")
	assert.Contains(t, err.Error(), "LISCRAPER_HEADLESS")
	assert.Equal(t, 30, cfg.Scraper.CooldownMinutes)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liscraper.yaml")
	content := `
browser:
  headless: false
  scroll_delay: 1
scraper:
  max_profiles_per_account: 3
  cooldown_minutes: 15
cookies:
  dir: /var/lib/liscraper/cookies
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1.0, cfg.Browser.ScrollDelay)
	assert.Equal(t, 3, cfg.Scraper.MaxProfilesPerAccount)
	assert.Equal(t, 15, cfg.Scraper.CooldownMinutes)
	assert.Equal(t, "/var/lib/liscraper/cookies", cfg.Cookies.Dir)
	// untouched keys keep their defaults
	assert.Equal(t, 60000, cfg.Browser.PageLoadTimeout)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "inverted action delays",
			mutate:  func(c *Config) { c.Browser.ActionDelayMin = 9 },
			wantErr: "action_delay_min",
		},
		{
			name:    "zero cap",
			mutate:  func(c *Config) { c.Scraper.MaxProfilesPerAccount = 0 },
			wantErr: "max profiles per account",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Cookies.Backend = "s3" },
			wantErr: "unknown cookie backend",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
		{
			name:    "no page load timeout",
			mutate:  func(c *Config) { c.Browser.PageLoadTimeout = 0 },
			wantErr: "page load timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scraper.MaxProfilesPerAccount = 0
	cfg.Output.DownloadDir = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max profiles per account")
	assert.Contains(t, err.Error(), "download directory")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"max-profiles": 7,
		"cookies-dir":  "alt-cookies",
		"no-pdf":       true,
		"log-level":    "",
	})

	assert.Equal(t, 7, cfg.Scraper.MaxProfiles)
	assert.Equal(t, "alt-cookies", cfg.Cookies.Dir)
	assert.False(t, cfg.Scraper.DownloadArtifacts)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liscraper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scraper:\n  max_profiles: 20\n  cooldown_minutes: 10\n"), 0644))
	t.Setenv("LISCRAPER_COOLDOWN_MINUTES", "12")

	cfg, err := Load(path, map[string]interface{}{"max-profiles": 4})
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scraper.MaxProfiles)
	assert.Equal(t, 12, cfg.Scraper.CooldownMinutes)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Scraper.CooldownMinutes = 45
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 45, loaded.Scraper.CooldownMinutes)
}
