package linkedin

import (
	"context"

	"liscraper/pkg/cookies"
)

// page is the browser surface a Session drives. The chromedp implementation
// lives in chrome.go; tests substitute a scripted fake.
type page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)

	PageHeight(ctx context.Context) (int, error)
	ScrollTo(ctx context.Context, y int) error

	SetCookies(ctx context.Context, jar []cookies.Cookie) error
	Cookies(ctx context.Context) ([]cookies.Cookie, error)

	Fill(ctx context.Context, sel Selector, value string) error
	Click(ctx context.Context, sel Selector) error
	Exists(ctx context.Context, sel Selector) (bool, error)

	// Download clicks sel and waits for the resulting file to land in dir.
	// It returns "" when no download starts.
	Download(ctx context.Context, dir string, sel Selector) (string, error)

	Close() error
}
