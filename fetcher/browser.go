// Package fetcher loads documentation pages. Portal pages render their
// content with JavaScript, so they go through headless Chrome via Rod with
// stealth patches; plain URLs and APIs take a direct HTTP path.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// BrowserConfig controls the Chrome lifecycle.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome. Empty launches
	// a local headless instance.
	RemoteURL string

	// RecycleInterval bounds the lifetime of one Chrome process; a fresh
	// one is launched lazily after it elapses. Default: 4h.
	RecycleInterval time.Duration

	Logger *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser manages one Chrome process, launching lazily and recycling it
// when it outlives the configured interval.
type Browser struct {
	cfg BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
}

// NewBrowser creates the manager; Chrome starts on first use.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

// page opens a fresh stealth tab, launching or recycling Chrome as needed.
func (b *Browser) page(ctx context.Context) (*rod.Page, error) {
	br, err := b.acquire()
	if err != nil {
		return nil, err
	}
	p, err := stealth.Page(br)
	if err != nil {
		return nil, fmt.Errorf("fetcher: create tab: %w", err)
	}
	return p.Context(ctx), nil
}

func (b *Browser) acquire() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("fetcher: browser manager is closed")
	}
	if b.browser != nil && time.Since(b.startAt) > b.cfg.RecycleInterval {
		b.cfg.Logger.Info("fetcher: recycling chrome", "uptime", time.Since(b.startAt))
		b.cleanupLocked()
	}
	if b.browser == nil {
		if err := b.launchLocked(); err != nil {
			return nil, err
		}
	}
	return b.browser, nil
}

func (b *Browser) launchLocked() error {
	wsURL := b.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled").
			Set("no-sandbox").
			Set("disable-dev-shm-usage").
			Set("window-size", "1920,1080")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("fetcher: launch chrome: %w", err)
		}
		b.lnch = l
		wsURL = u
		b.cfg.Logger.Info("fetcher: launched local chrome")
	} else {
		b.cfg.Logger.Info("fetcher: connecting to remote chrome", "url", wsURL)
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		b.cleanupLocked()
		return fmt.Errorf("fetcher: connect chrome: %w", err)
	}
	b.browser = br
	b.startAt = time.Now()
	return nil
}

func (b *Browser) cleanupLocked() {
	if b.browser != nil {
		_ = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}

// Close shuts Chrome down; the manager cannot be reused afterwards.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cleanupLocked()
	return nil
}
