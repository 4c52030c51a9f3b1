package models

import "time"

// Target is one profile queued for extraction
type Target struct {
	// Raw is the string the operator supplied
	Raw string `json:"raw"`
	// URL is the canonical profile URL, empty when Raw could not be resolved
	URL string `json:"url,omitempty"`
	// LinkedInID is the public identifier from the profile URL
	LinkedInID string `json:"linkedin_id,omitempty"`
}

// Valid reports whether the target resolved to a profile URL
func (t Target) Valid() bool {
	return t.URL != ""
}

func (t Target) String() string {
	if t.URL != "" {
		return t.URL
	}
	return t.Raw
}

// Experience is one position in on-page display order
type Experience struct {
	Company    string `json:"company,omitempty"`
	Title      string `json:"title,omitempty"`
	DateRange  string `json:"date_range,omitempty"`
	IsCurrent  bool   `json:"is_current"`
	OrderIndex int    `json:"order_index"`
}

// Education is one school entry in on-page display order
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	Years       string `json:"years,omitempty"`
}

// ProfileRecord is the normalized output of one successful extraction
type ProfileRecord struct {
	LinkedInID         string       `json:"linkedin_id"`
	ProfileURL         string       `json:"profile_url"`
	Name               string       `json:"name,omitempty"`
	Headline           string       `json:"headline,omitempty"`
	Location           string       `json:"location,omitempty"`
	Summary            string       `json:"summary,omitempty"`
	Experience         []Experience `json:"experience"`
	Education          []Education  `json:"education"`
	CurrentCompany     string       `json:"current_company,omitempty"`
	CurrentDesignation string       `json:"current_designation,omitempty"`
	ExtractorVersion   string       `json:"extractor_version,omitempty"`
	ScrapedAt          time.Time    `json:"scraped_at"`
}

// ScrapeResult is produced for every attempted target
type ScrapeResult struct {
	Target       Target         `json:"target"`
	Success      bool           `json:"success"`
	Data         *ProfileRecord `json:"data,omitempty"`
	Error        string         `json:"error,omitempty"`
	Account      string         `json:"account,omitempty"`
	ArtifactPath string         `json:"artifact_path,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// RecordMeta describes how and when a record was captured
type RecordMeta struct {
	RunID        string    `json:"run_id"`
	Account      string    `json:"account,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
}
