package scraper

import (
	"context"

	"liscraper/pkg/models"
)

// Sink persists extracted profiles. Upsert must be idempotent per LinkedInID;
// the coordinator logs failures and never retries them.
type Sink interface {
	Upsert(ctx context.Context, record *models.ProfileRecord, meta models.RecordMeta) error
}

// Checkpoint journals every attempted target
type Checkpoint interface {
	Record(result models.ScrapeResult) error
}

// Observer is told about every state transition of a run
type Observer func(from, to State)

// Progress receives per-target updates for display. Calls happen on the
// coordinator goroutine and must not block.
type Progress interface {
	TargetStarted(target models.Target, account string)
	TargetFinished(result models.ScrapeResult)
}
