// Package discover builds the list of documentation pages to monitor by
// walking the portal's sidebar table of contents. Nesting depth in the TOC
// tree becomes hierarchical page numbering (9, 9.1, 9.2, 12, 12.1).
package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// ErrEmptyTOC is returned when no documentation links could be found at all.
var ErrEmptyTOC = errors.New("discover: no documentation links found")

// Page is one entry of the documentation TOC.
type Page struct {
	Number string // hierarchical TOC number, e.g. "9.1"
	Title  string
	URL    string
	Name   string // normalized title, the snapshot store key
}

// FetchFunc returns fully rendered HTML for a URL, sidebar included.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Discoverer fetches the portal root and extracts the TOC, retrying while
// the sidebar tree renders progressively.
type Discoverer struct {
	fetch    FetchFunc
	logger   *slog.Logger
	minLinks int
	retries  int
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithMinLinks sets the success threshold: a TOC below this size is
// treated as half-rendered and retried.
func WithMinLinks(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.minLinks = n
		}
	}
}

// WithRetries sets the number of discovery attempts.
func WithRetries(n int) Option {
	return func(d *Discoverer) {
		if n > 0 {
			d.retries = n
		}
	}
}

// New creates a Discoverer using fetch to obtain rendered HTML.
func New(fetch FetchFunc, logger *slog.Logger, opts ...Option) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Discoverer{
		fetch:    fetch,
		logger:   logger,
		minLinks: 10,
		retries:  3,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover fetches baseURL and walks its TOC. Attempts are retried with
// linear backoff; the largest result seen wins when the threshold is never
// reached, matching how progressively rendered sidebars behave.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) ([]Page, error) {
	var best []Page
	var lastErr error

	for attempt := 1; attempt <= d.retries; attempt++ {
		src, err := d.fetch(ctx, baseURL)
		if err != nil {
			lastErr = err
			d.logger.Warn("discover: fetch failed", "attempt", attempt, "error", err)
		} else {
			pages, err := ParseTOC(src, baseURL)
			if err != nil {
				lastErr = err
				d.logger.Warn("discover: parse failed", "attempt", attempt, "error", err)
			} else {
				d.logger.Info("discover: attempt finished",
					"attempt", attempt, "pages", len(pages))
				if len(pages) > len(best) {
					best = pages
				}
				if len(pages) >= d.minLinks {
					return pages, nil
				}
			}
		}

		if attempt < d.retries {
			if err := d.sleep(ctx, time.Duration(3*attempt)*time.Second); err != nil {
				return best, err
			}
		}
	}

	if len(best) > 0 {
		d.logger.Warn("discover: below expected TOC size, using best attempt",
			"pages", len(best), "want", d.minLinks)
		return best, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("discover: all attempts failed: %w", lastErr)
	}
	return nil, ErrEmptyTOC
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

var docPrefixRE = regexp.MustCompile(`/docs/[^/]+/[a-f0-9]+/`)

// DocPrefix extracts the portal's document path prefix from the base URL,
// e.g. "/docs/btp/65de2977205c403bbc107264b8eccf4b/". Links outside the
// prefix are portal chrome, not documentation.
func DocPrefix(baseURL string) string {
	return docPrefixRE.FindString(baseURL)
}

var nonAlnumRE = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeName turns a page title into the stable snapshot key: lowercase
// with non-alphanumeric runs collapsed to single spaces.
func NormalizeName(title string) string {
	s := nonAlnumRE.ReplaceAllString(strings.ToLower(title), " ")
	return strings.TrimSpace(s)
}
