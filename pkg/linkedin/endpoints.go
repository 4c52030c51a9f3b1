package linkedin

import "strings"

const (
	// BaseURL is the LinkedIn web origin
	BaseURL = "https://www.linkedin.com"

	// LoginURL serves the email and password form
	LoginURL = BaseURL + "/login"

	// FeedURL is where an authenticated session lands
	FeedURL = BaseURL + "/feed/"
)

// Selector addresses an element either by CSS query or by XPath
type Selector struct {
	Query string
	XPath bool
}

func css(query string) Selector   { return Selector{Query: query} }
func xpath(query string) Selector { return Selector{Query: query, XPath: true} }

func (s Selector) String() string {
	return s.Query
}

var (
	usernameInput = css(`input#username`)
	passwordInput = css(`input#password`)
	submitButton  = css(`button[type="submit"]`)

	moreButtons = []Selector{
		css(`button.artdeco-dropdown__trigger--placement-bottom`),
		xpath(`//button[contains(normalize-space(.), "More")]`),
	}
	savePDFItems = []Selector{
		css(`div[data-control-name="save_to_pdf"]`),
		xpath(`//span[contains(normalize-space(.), "Save to PDF")]`),
	}
)

// IsAuthenticatedURL reports whether a landing URL belongs to a signed-in
// session
func IsAuthenticatedURL(u string) bool {
	return strings.Contains(u, "/feed") || strings.Contains(u, "/mynetwork")
}

// IsChallengeURL reports whether LinkedIn interrupted the login with a
// security checkpoint
func IsChallengeURL(u string) bool {
	return strings.Contains(u, "checkpoint") || strings.Contains(u, "challenge")
}
