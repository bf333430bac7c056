package discover

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/docveille/extract"
)

// tocSelectors locate the sidebar container, most specific first. The
// d4h5-sidebar id is what SAP's DITA renderer emits.
var tocSelectors = []string{
	"#d4h5-sidebar",
	"aside#d4h5-sidebar",
	"div.toc",
	"nav.toc",
	"[class*=table-of-contents]",
	"[class*=toc]",
	"#toc",
	"[role=navigation]",
	"nav",
	"aside",
}

// ParseTOC extracts the hierarchical page list from rendered portal HTML.
// When no sidebar container holds links, the whole document is scanned.
func ParseTOC(src, baseURL string) ([]Page, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("discover: parse html: %w", err)
	}

	container := findTOCContainer(doc)
	if container == nil {
		container = doc
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("discover: base url: %w", err)
	}

	w := &tocWalker{
		base:   base,
		prefix: DocPrefix(baseURL),
		seen:   make(map[string]bool),
	}
	if top := firstList(container); top != nil {
		w.walkList(top, "")
	}
	return w.pages, nil
}

func findTOCContainer(doc *html.Node) *html.Node {
	for _, sel := range tocSelectors {
		n := extract.SelectFirst(doc, sel)
		if n != nil && len(extract.SelectAll(n, "a[href]")) > 0 {
			return n
		}
	}
	return nil
}

// firstList returns the first <ul> under the container.
func firstList(n *html.Node) *html.Node {
	return extract.SelectFirst(n, "ul")
}

type tocWalker struct {
	base   *url.URL
	prefix string
	seen   map[string]bool
	pages  []Page
}

// walkList assigns hierarchical numbers from DOM nesting. Group headers
// without a link of their own still consume a number so their children
// nest under it.
func (w *tocWalker) walkList(ul *html.Node, parent string) {
	counter := 0
	number := func() string {
		counter++
		if parent == "" {
			return fmt.Sprintf("%d", counter)
		}
		return fmt.Sprintf("%s.%d", parent, counter)
	}

	for li := ul.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		nested := directChildList(li)
		link := ownLink(li)

		if link == nil {
			if nested != nil {
				w.walkList(nested, number())
			}
			continue
		}

		pageURL := w.cleanURL(extract.Attr(link, "href"))
		if pageURL == "" || w.seen[pageURL] {
			// Invalid or duplicate link; children may still be real pages.
			if nested != nil {
				w.walkList(nested, number())
			}
			continue
		}
		w.seen[pageURL] = true

		num := number()
		title := truncate(extract.Text(link), 200)
		if title != "" {
			w.pages = append(w.pages, Page{
				Number: num,
				Title:  title,
				URL:    pageURL,
				Name:   NormalizeName(title),
			})
		}
		if nested != nil {
			w.walkList(nested, num)
		}
	}
}

// ownLink finds the anchor belonging to this li itself. Anchors separated
// from the li by another <ul> belong to a child entry.
func ownLink(li *html.Node) *html.Node {
	for _, a := range extract.SelectAll(li, "a[href]") {
		nested := false
		for p := a.Parent; p != nil && p != li; p = p.Parent {
			if p.Type == html.ElementNode && p.Data == "ul" {
				nested = true
				break
			}
		}
		if !nested {
			return a
		}
	}
	return nil
}

func directChildList(li *html.Node) *html.Node {
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "ul" {
			return c
		}
	}
	return nil
}

// cleanURL resolves href against the base, strips fragment and query, and
// keeps only documentation links: under the doc prefix when one is known,
// any .html page otherwise.
func (w *tocWalker) cleanURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	u, err := w.base.Parse(href)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	u.RawQuery = ""
	full := u.String()

	if !strings.Contains(full, ".html") {
		return ""
	}
	if w.prefix != "" && !strings.Contains(full, w.prefix) {
		return ""
	}
	return full
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
