package linkedin

import (
	"context"

	"liscraper/pkg/errors"
	"liscraper/pkg/retry"
)

// ChromeLauncher starts sessions backed by a local Chrome process
type ChromeLauncher struct {
	opts  Options
	retry *retry.Config
}

// NewChromeLauncher creates a launcher that retries browser startup with
// exponential backoff
func NewChromeLauncher(opts Options) *ChromeLauncher {
	opts = opts.withDefaults()
	return &ChromeLauncher{
		opts:  opts,
		retry: retry.DefaultConfig(opts.Logger),
	}
}

func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	return retry.DoWithResult(ctx, l.retry, func(ctx context.Context) (Session, error) {
		p, err := newChromePage(ctx, l.opts.Browser, l.opts.Logger)
		if err != nil {
			return nil, errors.Wrap(errors.ErrorTypeBrowser, "browser launch failed", err)
		}
		return newSession(p, l.opts), nil
	})
}
