package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

// linkCountScript counts anchors pointing into the documentation prefix.
const linkCountScript = `(prefix) => {
	let n = 0;
	for (const a of document.querySelectorAll('a[href]')) {
		const href = a.href || '';
		if (href.includes(prefix) && href.includes('.html')) n++;
	}
	return n;
}`

// FetchTOC loads the portal root and waits for the sidebar navigation tree
// to populate. The main content renders before the TOC, so FetchPage's
// waits are not enough here: the sidebar is a separate component that
// loads its links progressively. We wait for a minimum count of links
// under the doc prefix, then for the count to hold still twice in a row.
func (f *Fetcher) FetchTOC(ctx context.Context, baseURL, docPrefix string, minLinks int) (string, error) {
	navCtx, cancel := context.WithTimeout(ctx, f.cfg.NavigateTimeout)
	defer cancel()

	page, err := f.browser.page(navCtx)
	if err != nil {
		return "", err
	}
	defer page.Close()

	if err := page.Navigate(baseURL); err != nil {
		return "", fmt.Errorf("fetcher: navigate %s: %w", baseURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		f.cfg.Logger.Warn("fetcher: wait load timeout", "url", baseURL, "error", err)
	}

	if docPrefix == "" {
		// No recognizable prefix; settle on general content and move on.
		if err := f.stabilize(navCtx, page); err != nil {
			return "", err
		}
		return pageHTML(page)
	}

	// Phase 1: enough links. Best effort; a short sidebar is reported by
	// the discovery layer, not a fetch error.
	waitCtx, waitCancel := context.WithTimeout(navCtx, f.cfg.NavigateTimeout)
	f.waitMinLinks(waitCtx, page, docPrefix, minLinks)
	waitCancel()

	// Phase 2: count stable for two consecutive polls.
	prev, stable := -1, 0
	for i := 0; i < 10 && stable < 2; i++ {
		res, err := page.Context(navCtx).Eval(linkCountScript, docPrefix)
		if err != nil {
			return "", fmt.Errorf("fetcher: count toc links: %w", err)
		}
		cur := res.Value.Int()
		if cur == prev {
			stable++
		} else {
			stable = 0
		}
		prev = cur
		if stable < 2 {
			if err := f.sleep(navCtx, time.Second); err != nil {
				return "", err
			}
		}
	}
	f.cfg.Logger.Info("fetcher: sidebar settled", "links", prev, "url", baseURL)

	return pageHTML(page)
}

func (f *Fetcher) waitMinLinks(ctx context.Context, page *rod.Page, docPrefix string, minLinks int) {
	for {
		res, err := page.Context(ctx).Eval(linkCountScript, docPrefix)
		if err == nil && res.Value.Int() >= minLinks {
			return
		}
		if ctx.Err() != nil {
			f.cfg.Logger.Warn("fetcher: sidebar below expected size after wait",
				"want", minLinks)
			return
		}
		if f.sleep(ctx, f.cfg.StabilizePoll) != nil {
			return
		}
	}
}
