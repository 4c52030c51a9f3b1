// Package extract turns a rendered profile page into a models.ProfileRecord.
//
// Page markup changes over time, so parsing is split into versioned
// Extractors that each recognise one template. The Pipeline picks the first
// Extractor that matches a document and normalizes its raw output. Nothing in
// this package touches the network or the clock.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"liscraper/pkg/errors"
	"liscraper/pkg/models"
)

// Page is a fully rendered profile page
type Page struct {
	URL  string
	HTML string
}

// RawExperience is one experience item as it appears on the page
type RawExperience struct {
	Company   string
	Title     string
	DateRange string
}

// RawEducation is one education item as it appears on the page
type RawEducation struct {
	Institution string
	Degree      string
	Years       string
}

// RawProfile is the unnormalized output of an Extractor
type RawProfile struct {
	LinkedInID string
	ProfileURL string
	Name       string
	Headline   string
	Location   string
	Summary    string
	Experience []RawExperience
	Education  []RawEducation
}

// Extractor parses one version of the profile page template
type Extractor interface {
	Version() string
	Match(doc *goquery.Document) bool
	Extract(doc *goquery.Document, pageURL string) RawProfile
}

// Pipeline selects an Extractor for a page and normalizes the result
type Pipeline struct {
	extractors []Extractor
}

// NewPipeline creates a pipeline trying extractors in order
func NewPipeline(extractors ...Extractor) *Pipeline {
	return &Pipeline{extractors: extractors}
}

// NewDefaultPipeline creates a pipeline with every shipped template
func NewDefaultPipeline() *Pipeline {
	return NewPipeline(Template2024{})
}

// Versions lists the template versions this pipeline understands
func (p *Pipeline) Versions() []string {
	versions := make([]string, 0, len(p.extractors))
	for _, e := range p.extractors {
		versions = append(versions, e.Version())
	}
	return versions
}

// Process parses a page into a normalized record
func (p *Pipeline) Process(page Page) (*models.ProfileRecord, error) {
	if strings.TrimSpace(page.HTML) == "" {
		return nil, errors.ErrProfileNotFound
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeExtraction, "failed to parse page", err)
	}

	if IsNotFound(doc) {
		return nil, errors.ErrProfileNotFound
	}

	for _, e := range p.extractors {
		if !e.Match(doc) {
			continue
		}
		record := Normalize(e.Extract(doc, page.URL))
		record.ExtractorVersion = e.Version()
		return record, nil
	}
	return nil, errors.ErrUnsupportedTemplate
}

// IsNotFound reports whether the document is the "Page not found" page or has
// no visible content at all. Only the page title and top level headings are
// checked, so profile text quoting the phrase does not count.
func IsNotFound(doc *goquery.Document) bool {
	if strings.TrimSpace(doc.Find("body").Text()) == "" && strings.TrimSpace(doc.Text()) == "" {
		return true
	}
	if doc.Find(profileNameSelector).Length() > 0 {
		return false
	}
	if isNotFoundHeading(doc.Find("title").First().Text()) {
		return true
	}

	found := false
	doc.Find("h1, h2").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		found = isNotFoundHeading(heading.Text())
		return !found
	})
	return found
}

// IsNotFoundHTML is IsNotFound for raw markup. Unparseable markup is not
// treated as a missing profile.
func IsNotFoundHTML(html string) bool {
	if strings.TrimSpace(html) == "" {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return IsNotFound(doc)
}

func isNotFoundHeading(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "page not found" || strings.HasPrefix(s, "page not found |")
}
