package ui

import "liscraper/pkg/models"

// RunView displays a scraping run as it progresses. Both the line display
// and the full-screen dashboard implement it.
type RunView interface {
	StateChanged(from, to string)
	TargetStarted(target models.Target, account string)
	TargetFinished(result models.ScrapeResult)
	LogInfo(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
}
