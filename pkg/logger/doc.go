// Package logger provides the structured logger used across liscraper.
//
// It wraps zerolog behind a small interface so components receive a logger
// explicitly instead of reaching for a package-level instance:
//
//	log, err := logger.New(&cfg.Logging)
//	if err != nil {
//	    return err
//	}
//	log.WithField("account", "a@example.com").Info("session ready")
//	log.InfoWithFields("profile scraped", map[string]interface{}{
//	    "target":  "https://www.linkedin.com/in/jane",
//	    "elapsed": 12 * time.Second,
//	})
//
// Tests use NewNopLogger or NewTestLogger, which captures every message.
package logger
