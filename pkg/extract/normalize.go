package extract

import (
	"strings"

	"liscraper/pkg/models"
)

var companySuffixes = []string{
	" Pvt. Ltd.", " Pvt Ltd", " Private Limited",
	" Ltd.", " Ltd", " Inc.", " Inc", " LLC", " LLP",
	" Corp.", " Corp", " Co.",
}

// Normalize cleans a raw profile into a record. Page order is kept and
// recorded in OrderIndex; the current position comes from the first
// experience entry only when that entry is still open-ended.
func Normalize(raw RawProfile) *models.ProfileRecord {
	record := &models.ProfileRecord{
		LinkedInID: collapse(raw.LinkedInID),
		ProfileURL: strings.TrimSpace(raw.ProfileURL),
		Name:       collapse(raw.Name),
		Headline:   collapse(raw.Headline),
		Location:   collapse(raw.Location),
		Summary:    strings.TrimSpace(raw.Summary),
		Experience: make([]models.Experience, 0, len(raw.Experience)),
		Education:  make([]models.Education, 0, len(raw.Education)),
	}

	if record.LinkedInID == "" {
		if id, ok := ExtractLinkedInID(record.ProfileURL); ok {
			record.LinkedInID = id
		}
	}
	if record.LinkedInID != "" {
		record.ProfileURL = ProfileURL(record.LinkedInID)
	}

	for i, exp := range raw.Experience {
		dates := collapse(exp.DateRange)
		record.Experience = append(record.Experience, models.Experience{
			Company:    NormalizeCompanyName(stripDetail(exp.Company)),
			Title:      collapse(exp.Title),
			DateRange:  dates,
			IsCurrent:  IsOpenEnded(dates),
			OrderIndex: i,
		})
	}

	for _, edu := range raw.Education {
		degree, field := splitDegree(collapse(edu.Degree))
		record.Education = append(record.Education, models.Education{
			Institution: collapse(edu.Institution),
			Degree:      degree,
			Field:       field,
			Years:       collapse(edu.Years),
		})
	}

	if len(record.Experience) > 0 && record.Experience[0].IsCurrent {
		record.CurrentCompany = record.Experience[0].Company
		record.CurrentDesignation = record.Experience[0].Title
	}

	return record
}

// IsOpenEnded reports whether a date range has no end, either spelled
// "Present" or left with a trailing dash
func IsOpenEnded(dates string) bool {
	span := stripDetail(dates)
	if strings.Contains(strings.ToLower(span), "present") {
		return true
	}
	span = strings.TrimSpace(span)
	return strings.HasSuffix(span, "-") || strings.HasSuffix(span, "–")
}

// NormalizeCompanyName removes one trailing legal-entity suffix
func NormalizeCompanyName(name string) string {
	name = collapse(name)
	for _, suffix := range companySuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(name, suffix))
		}
	}
	return name
}

// stripDetail drops the " · " separated tail LinkedIn appends to companies
// ("Acme · Full-time") and date ranges ("2020 - Present · 4 yrs")
func stripDetail(s string) string {
	if i := strings.Index(s, "·"); i >= 0 {
		s = s[:i]
	}
	return collapse(s)
}

func splitDegree(degree string) (string, string) {
	if i := strings.Index(degree, ", "); i >= 0 {
		return strings.TrimSpace(degree[:i]), strings.TrimSpace(degree[i+2:])
	}
	return degree, ""
}
