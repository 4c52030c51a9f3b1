package scraper

import (
	"fmt"

	"liscraper/pkg/models"
)

// Summary counts the outcomes of a run
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Artifacts int
}

// Summarize tallies results
func Summarize(results []models.ScrapeResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if r.ArtifactPath != "" {
			s.Artifacts++
		}
	}
	return s
}

// Line renders the one-line run summary, with requested being the number of
// targets the run was given
func (s Summary) Line(requested int) string {
	line := fmt.Sprintf("%d/%d profiles scraped, %d failed", s.Succeeded, requested, s.Failed)
	if skipped := requested - s.Total; skipped > 0 {
		line += fmt.Sprintf(", %d not attempted", skipped)
	}
	if s.Artifacts > 0 {
		line += fmt.Sprintf(", %d PDFs", s.Artifacts)
	}
	return line
}
