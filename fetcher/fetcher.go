package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-rod/rod"
	htmlesc "golang.org/x/net/html"
)

// ErrFetchFailed wraps the last error after all attempts are exhausted.
var ErrFetchFailed = errors.New("fetcher: all attempts failed")

// Config tunes fetching behaviour.
type Config struct {
	// PortalHost marks URLs that need the browser; anything else is tried
	// over plain HTTP first. Default: "help.sap.com".
	PortalHost string

	// MinContentLength is the visible-text threshold below which a render
	// is considered incomplete. Default: 100.
	MinContentLength int

	// Retries is the number of browser attempts per page. Default: 3.
	Retries int

	// NavigateTimeout bounds one navigation plus content wait. Default: 30s.
	NavigateTimeout time.Duration

	// StabilizePoll is the interval for the settle loop that waits for
	// dynamically loaded sections. Default: 500ms.
	StabilizePoll time.Duration

	HTTPTimeout time.Duration // default 10s
	Logger      *slog.Logger
}

func (c *Config) defaults() {
	if c.PortalHost == "" {
		c.PortalHost = "help.sap.com"
	}
	if c.MinContentLength <= 0 {
		c.MinContentLength = 100
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.StabilizePoll <= 0 {
		c.StabilizePoll = 500 * time.Millisecond
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher loads pages via headless Chrome or plain HTTP.
type Fetcher struct {
	cfg     Config
	browser *Browser
	client  *http.Client
	sleep   func(context.Context, time.Duration) error
}

// New creates a Fetcher sharing the given browser manager.
func New(browser *Browser, cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		cfg:     cfg,
		browser: browser,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		sleep:   sleepCtx,
	}
}

// FetchPage returns validated HTML for a URL. Portal pages render in the
// browser with explicit content waits; other URLs go over HTTP, falling
// back to the browser when that fails. Browser attempts retry with
// exponential backoff.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	log := f.cfg.Logger.With("url", pageURL)

	if !strings.Contains(pageURL, f.cfg.PortalHost) {
		src, err := f.fetchHTTP(ctx, pageURL)
		if err == nil {
			return src, nil
		}
		log.Warn("fetcher: http fetch failed, falling back to browser", "error", err)
	}

	var lastErr error
	for attempt := 1; attempt <= f.cfg.Retries; attempt++ {
		src, err := f.fetchBrowser(ctx, pageURL)
		if err == nil {
			if verr := ValidateContent(src, f.cfg.MinContentLength); verr == nil {
				return src, nil
			} else {
				err = verr
			}
		}
		lastErr = err
		log.Warn("fetcher: attempt failed", "attempt", attempt, "error", err)

		if attempt < f.cfg.Retries {
			backoff := time.Duration(1<<attempt) * time.Second
			if serr := f.sleep(ctx, backoff); serr != nil {
				return "", serr
			}
		}
	}
	return "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, pageURL, lastErr)
}

// fetchHTTP handles plain pages and APIs. JSON and plain-text payloads are
// wrapped in a <pre> document so the extractor sees them as content.
func (f *Fetcher) fetchHTTP(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetcher: http status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}

	ct := resp.Header.Get("Content-Type")
	if strings.Contains(ct, "json") || strings.Contains(ct, "text/plain") {
		return "<html><body><pre>" + htmlesc.EscapeString(string(body)) + "</pre></body></html>", nil
	}
	return string(body), nil
}

// contentWaitScript reports whether a known content container has rendered
// substantial text, not just a loading spinner.
const contentWaitScript = `(minLen) => {
	const sels = ['div#page', '[role="main"]', 'article'];
	for (const s of sels) {
		const el = document.querySelector(s);
		if (el && el.innerText && el.innerText.trim().length > minLen) return true;
	}
	return document.body && document.body.innerText.trim().length > minLen;
}`

func (f *Fetcher) fetchBrowser(ctx context.Context, pageURL string) (string, error) {
	navCtx, cancel := context.WithTimeout(ctx, f.cfg.NavigateTimeout)
	defer cancel()

	page, err := f.browser.page(navCtx)
	if err != nil {
		return "", err
	}
	defer page.Close()

	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("fetcher: navigate %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		f.cfg.Logger.Warn("fetcher: wait load timeout", "url", pageURL, "error", err)
	}

	if err := f.waitTrue(navCtx, page, contentWaitScript, f.cfg.MinContentLength); err != nil {
		return "", fmt.Errorf("fetcher: no content rendered for %s: %w", pageURL, err)
	}
	if err := f.stabilize(navCtx, page); err != nil {
		return "", err
	}

	return pageHTML(page)
}

// waitTrue polls a boolean page script until it returns true or the
// context expires.
func (f *Fetcher) waitTrue(ctx context.Context, page *rod.Page, script string, arg any) error {
	for {
		res, err := page.Context(ctx).Eval(script, arg)
		if err == nil && res.Value.Bool() {
			return nil
		}
		if serr := f.sleep(ctx, f.cfg.StabilizePoll); serr != nil {
			return serr
		}
	}
}

// stabilize waits until visible body text stops growing so dynamically
// loaded sections have fully rendered.
func (f *Fetcher) stabilize(ctx context.Context, page *rod.Page) error {
	prev := -1
	for i := 0; i < 10; i++ {
		res, err := page.Context(ctx).Eval(`() => document.body ? document.body.innerText.length : 0`)
		if err != nil {
			return fmt.Errorf("fetcher: stabilize: %w", err)
		}
		cur := res.Value.Int()
		if cur == prev {
			return nil
		}
		prev = cur
		if err := f.sleep(ctx, f.cfg.StabilizePoll); err != nil {
			return err
		}
	}
	return nil
}

func pageHTML(page *rod.Page) (string, error) {
	res, err := page.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("fetcher: serialize dom: %w", err)
	}
	return res.Value.Str(), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
