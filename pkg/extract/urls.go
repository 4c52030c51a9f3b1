package extract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"liscraper/pkg/models"
)

const profileBase = "https://www.linkedin.com/in/"

var profilePathPattern = regexp.MustCompile(`linkedin\.com/in/([^/?#\s]+)`)

// ExtractLinkedInID returns the public identifier from a profile URL, a
// schemeless URL or a bare identifier. Identifiers outside ASCII come back
// percent-encoded; an identifier with characters a vanity name cannot hold
// is rejected whole rather than cut short.
func ExtractLinkedInID(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return "", false
	}

	if m := profilePathPattern.FindStringSubmatch(s); m != nil {
		return canonicalID(m[1])
	}
	if strings.ContainsAny(s, "/. ") {
		return "", false
	}
	return canonicalID(s)
}

func canonicalID(segment string) (string, bool) {
	decoded, err := url.PathUnescape(segment)
	if err != nil || decoded == "" {
		return "", false
	}
	for _, r := range decoded {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return "", false
		}
	}
	return url.PathEscape(decoded), true
}

// ProfileURL builds the canonical profile URL for an identifier
func ProfileURL(id string) string {
	return profileBase + id
}

// SanitizeProfileURL rewrites any accepted profile reference into its
// canonical URL
func SanitizeProfileURL(raw string) (string, bool) {
	id, ok := ExtractLinkedInID(raw)
	if !ok {
		return "", false
	}
	return ProfileURL(id), true
}

// NewTarget resolves an operator-supplied string into a Target. Unresolvable
// input yields a Target with an empty URL.
func NewTarget(raw string) models.Target {
	target := models.Target{Raw: strings.TrimSpace(raw)}
	if id, ok := ExtractLinkedInID(raw); ok {
		target.LinkedInID = id
		target.URL = ProfileURL(id)
	}
	return target
}

// NewTargets resolves a list of inputs, skipping blank lines and comments
func NewTargets(lines []string) []models.Target {
	targets := make([]models.Target, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, NewTarget(line))
	}
	return targets
}
