// Package browser drives a headless Chrome session through the devtools
// protocol. One Session holds one browser with its cookie jar, so every
// page of a crawl shares the authenticated state.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/yungbote/coursesync-backend/internal/platform/logger"
)

const DefaultFetchTimeout = 30 * time.Second

// Fetcher abstracts the browser so crawls can be tested with fakes.
type Fetcher interface {
	OpenSession(ctx context.Context, cookies []Cookie) (Session, error)
	Close()
}

// Session is one live browser with injected cookies.
type Session interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (html string, title string, err error)
	Close()
}

type ChromeFetcher struct {
	log      *logger.Logger
	headless bool
}

func NewChromeFetcher(log *logger.Logger, headless bool) *ChromeFetcher {
	return &ChromeFetcher{log: log, headless: headless}
}

func (f *ChromeFetcher) Close() {}

type chromeSession struct {
	log         *logger.Logger
	allocCancel context.CancelFunc
	browserCtx  context.Context
	ctxCancel   context.CancelFunc
}

// OpenSession launches Chrome, enables the network domain and injects the
// cookie set. A launch failure is fatal for the whole crawl stage.
func (f *ChromeFetcher) OpenSession(ctx context.Context, cookies []Cookie) (Session, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		ctxCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	s := &chromeSession{log: f.log, allocCancel: allocCancel, browserCtx: browserCtx, ctxCancel: ctxCancel}
	if err := s.setCookies(cookies); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *chromeSession) setCookies(cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	return chromedp.Run(s.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		injected := 0
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithDomain(strings.TrimPrefix(c.Domain, ".")).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if ss := sameSiteParam(c.SameSite); ss != "" {
				p = p.WithSameSite(ss)
			}
			if c.ExpirationDate > 0 {
				exp := time.Unix(int64(c.ExpirationDate), 0)
				if exp.After(time.Now()) {
					ts := cdp.TimeSinceEpoch(exp)
					p = p.WithExpires(&ts)
				}
			}
			if err := p.Do(ctx); err != nil {
				// A single bad cookie should not block the rest.
				s.log.Warn("cookie injection failed", "cookie_name", c.Name, "error", err)
				continue
			}
			injected++
		}
		s.log.Debug("cookies injected", "count", injected, "total", len(cookies))
		return nil
	}))
}

func sameSiteParam(v string) network.CookieSameSite {
	switch v {
	case "Strict":
		return network.CookieSameSiteStrict
	case "Lax":
		return network.CookieSameSiteLax
	case "None":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}

// Fetch navigates to url, waits for the page to settle, and returns the
// final rendered HTML and document title.
func (s *chromeSession) Fetch(ctx context.Context, url string, timeout time.Duration) (string, string, error) {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	tabCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()

	var html, title string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
		chromedp.Title(&title),
	)
	if err != nil {
		return "", "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return html, title, nil
}

func (s *chromeSession) Close() {
	s.ctxCancel()
	s.allocCancel()
}
