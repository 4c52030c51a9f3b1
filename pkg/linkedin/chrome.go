package linkedin

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"liscraper/pkg/config"
	"liscraper/pkg/cookies"
	"liscraper/pkg/logger"
)

const downloadStartTimeout = 15 * time.Second

// chromePage drives one Chrome tab through the DevTools protocol
type chromePage struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      logger.Logger

	downloads chan download
	closeOnce sync.Once
}

type download struct {
	guid  string
	state browser.DownloadProgressState
}

func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// openChromePage prepares the allocator and tab of one browser without
// starting it. The browser does not inherit cancellation from ctx: it lives
// until Close, so a canceled run never kills a tab mid-extraction.
func openChromePage(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) *chromePage {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	p := &chromePage{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		timeout:     cfg.PageLoad(),
		logger:      log,
		downloads:   make(chan download, 4),
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*browser.EventDownloadProgress); ok {
			if e.State == browser.DownloadProgressStateCompleted || e.State == browser.DownloadProgressStateCanceled {
				select {
				case p.downloads <- download{guid: e.GUID, state: e.State}:
				default:
				}
			}
		}
	})
	return p
}

// newChromePage starts a browser process with a single tab. Startup gives up
// after the page load timeout or when ctx ends.
func newChromePage(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*chromePage, error) {
	p := openChromePage(ctx, cfg, log)

	// The first Run allocates the browser and ties it to the context it is
	// given, so it gets the tab context itself and is bounded from outside.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(p.tabCtx, network.Enable()) }()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case err := <-started:
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		return p, nil
	case <-timer.C:
		p.Close()
		<-started
		return nil, fmt.Errorf("browser did not start within %s", p.timeout)
	case <-ctx.Done():
		p.Close()
		<-started
		return nil, ctx.Err()
	}
}

// run executes actions on the tab, bounded by the page timeout and by ctx
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.tabCtx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func by(sel Selector) chromedp.QueryOption {
	if sel.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromePage) Location(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) PageHeight(ctx context.Context) (int, error) {
	var height float64
	err := p.run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &height))
	return int(height), err
}

func (p *chromePage) ScrollTo(ctx context.Context, y int) error {
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, %d)", y), nil))
}

func (p *chromePage) SetCookies(ctx context.Context, jar []cookies.Cookie) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range jar {
			params := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if sameSite := sameSiteParam(c.SameSite); sameSite != "" {
				params = params.WithSameSite(sameSite)
			}
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				params = params.WithExpires(&expires)
			}
			if err := params.Do(ctx); err != nil {
				p.logger.DebugWithFields("cookie rejected by browser", map[string]interface{}{
					"name":   c.Name,
					"domain": c.Domain,
					"error":  err.Error(),
				})
			}
		}
		return nil
	}))
}

func (p *chromePage) Cookies(ctx context.Context) ([]cookies.Cookie, error) {
	var raw []*network.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().WithURLs([]string{BaseURL}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	jar := make([]cookies.Cookie, 0, len(raw))
	for _, c := range raw {
		jar = append(jar, cookies.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return jar, nil
}

func sameSiteParam(v string) network.CookieSameSite {
	switch strings.ToLower(v) {
	case "strict":
		return network.CookieSameSiteStrict
	case "lax":
		return network.CookieSameSiteLax
	case "none":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}

func (p *chromePage) Fill(ctx context.Context, sel Selector, value string) error {
	return p.run(ctx,
		chromedp.WaitVisible(sel.Query, by(sel)),
		chromedp.Clear(sel.Query, by(sel)),
		chromedp.SendKeys(sel.Query, value, by(sel)),
	)
}

func (p *chromePage) Click(ctx context.Context, sel Selector) error {
	return p.run(ctx,
		chromedp.WaitVisible(sel.Query, by(sel)),
		chromedp.Click(sel.Query, by(sel)),
	)
}

func (p *chromePage) Exists(ctx context.Context, sel Selector) (bool, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, chromedp.Nodes(sel.Query, &nodes, by(sel), chromedp.AtLeast(0)))
	return len(nodes) > 0, err
}

func (p *chromePage) Download(ctx context.Context, dir string, sel Selector) (string, error) {
	for drained := false; !drained; {
		select {
		case <-p.downloads:
		default:
			drained = true
		}
	}

	err := p.run(ctx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
		chromedp.Click(sel.Query, by(sel)),
	)
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(downloadStartTimeout + p.timeout)
	defer timer.Stop()
	select {
	case d := <-p.downloads:
		if d.state != browser.DownloadProgressStateCompleted {
			return "", nil
		}
		return filepath.Join(dir, d.guid), nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		p.tabCancel()
		p.allocCancel()
	})
	return nil
}
