package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"liscraper/pkg/config"
	"liscraper/pkg/extract"
	"liscraper/pkg/humanize"
	"liscraper/pkg/linkedin"
	"liscraper/pkg/logger"
	"liscraper/pkg/storage"
)

// signalContext is canceled on the first interrupt
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newLauncher builds the Chrome launcher every command uses. artifacts may
// be nil when PDFs are not wanted.
func newLauncher(cfg *config.Config, log logger.Logger, artifacts *storage.Manager) *linkedin.ChromeLauncher {
	return linkedin.NewChromeLauncher(linkedin.Options{
		Browser:   cfg.Browser,
		Pacer:     humanize.NewPacer(humanize.RealSleep),
		Pipeline:  extract.NewDefaultPipeline(),
		Artifacts: artifacts,
		Logger:    log,
	})
}
