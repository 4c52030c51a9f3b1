// Package retry re-runs operations that fail for transient reasons, such as
// a browser process that did not come up.
package retry

import (
	"context"
	"errors"
	"fmt"

	errs "liscraper/pkg/errors"
	"liscraper/pkg/logger"
)

// Config holds retry settings
type Config struct {
	// MaxAttempts counts the first try; zero means a single attempt
	MaxAttempts int
	Backoff     BackoffStrategy
	RetryIf     func(error) bool
	Logger      logger.Logger
}

// DefaultConfig returns three attempts with exponential backoff
func DefaultConfig(log logger.Logger) *Config {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Logger:      log,
	}
}

// DefaultRetryIf retries browser failures and untyped errors. Account and
// target errors are decisions, not glitches, and are returned immediately.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return typed.Type == errs.ErrorTypeBrowser || typed.Type == errs.ErrorTypeNavigation
	}
	return true
}

// Do runs op until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx ends
func Do(ctx context.Context, cfg *Config, op func(ctx context.Context) error) error {
	if cfg == nil {
		cfg = DefaultConfig(nil)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{"attempt": attempt})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		delay := cfg.Backoff.NextDelay(attempt)
		log.WithError(err).WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"delay":        delay,
		})
		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", maxAttempts, lastErr)
}

// DoWithResult is Do for operations that produce a value
func DoWithResult[T any](ctx context.Context, cfg *Config, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}
