// Package extract turns documentation portal HTML into clean plain text
// suitable for line-level change detection, plus a markdown rendition for
// archival. Navigation chrome, cookie banners and other UI furniture are
// stripped; headings, steps, notes and tables keep their structure.
package extract

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoContent is returned when no main content area could be located or it
// rendered empty.
var ErrNoContent = errors.New("extract: no content found")

// Result is the extracted form of one page.
type Result struct {
	Title    string
	Text     string
	Markdown string
}

// contentSelectors are tried in order to locate the documentation body.
// SAP-style portals render into div#page; the rest are generic fallbacks.
var contentSelectors = []string{
	"div#page",
	"[role=main]",
	"main",
	"article",
	"[class*=content-main]",
	"[class*=main-content]",
	"[id*=main]",
}

// uiSelectors match chrome that must not leak into the comparison text.
var uiSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer",
	"[class*=navigation]", "[class*=nav-]", "[class*=breadcrumb]",
	"[class*=search]", "[class*=cookie]", "[class*=banner]",
	"[class*=toolbar]", "[class*=feedback]", "[class*=hero]",
	"button", "[role=button]",
}

// Extract parses the page and returns its cleaned text and markdown.
func (e *Extractor) Extract(src, pageURL string) (*Result, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, err
	}

	title := documentTitle(doc)

	// Synthetic wrapper produced by the fetcher for JSON endpoints: a body
	// whose sole element child is <pre>.
	if pre := solePreChild(doc); pre != nil {
		text := strings.TrimSpace(collectText(pre))
		if text == "" {
			return nil, ErrNoContent
		}
		return &Result{Title: title, Text: text, Markdown: "```\n" + text + "\n```"}, nil
	}

	content := mainContent(doc)
	if content == nil {
		return nil, ErrNoContent
	}

	// Menu cascades must flatten before UI stripping removes the
	// uicontrol spans they are built from.
	flattenMenuCascades(content)
	stripUI(content)

	r := &renderer{seen: make(map[string]bool)}
	r.walk(content)
	text := fixFormatting(strings.Join(r.lines, "\n"))
	if text == "" {
		return nil, ErrNoContent
	}

	return &Result{
		Title:    title,
		Text:     text,
		Markdown: e.markdown(content, pageURL, text),
	}, nil
}

func mainContent(doc *html.Node) *html.Node {
	for _, sel := range contentSelectors {
		if n := selectFirst(doc, sel); n != nil {
			return n
		}
	}
	body := selectFirst(doc, "body")
	if body == nil {
		return nil
	}
	if n := densestNode(body, 200); n != nil {
		return n
	}
	return body
}

func documentTitle(doc *html.Node) string {
	if h1 := selectFirst(doc, "h1"); h1 != nil {
		if t := strings.TrimSpace(collectText(h1)); t != "" {
			return t
		}
	}
	if tn := selectFirst(doc, "title"); tn != nil {
		return strings.TrimSpace(collectText(tn))
	}
	return ""
}

// solePreChild returns the <pre> node when it is the only element child of
// <body>; real documentation pages with code samples have siblings.
func solePreChild(doc *html.Node) *html.Node {
	body := selectFirst(doc, "body")
	if body == nil {
		return nil
	}
	var only *html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if only != nil {
			return nil
		}
		only = c
	}
	if only != nil && only.Data == "pre" {
		return only
	}
	return nil
}

// flattenMenuCascades rewrites <span class="menucascade"> elements holding
// several uicontrol spans into a single "A > B > C" text node.
func flattenMenuCascades(root *html.Node) {
	for _, cascade := range selectAll(root, "span[class*=menucascade]") {
		controls := selectAll(cascade, "span[class*=uicontrol]")
		if len(controls) < 2 {
			continue
		}
		parts := make([]string, 0, len(controls))
		for _, c := range controls {
			if t := strings.TrimSpace(collectText(c)); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) < 2 {
			continue
		}
		removeChildren(cascade)
		cascade.AppendChild(&html.Node{Type: html.TextNode, Data: strings.Join(parts, " > ")})
	}
}

func stripUI(root *html.Node) {
	for _, sel := range uiSelectors {
		for _, n := range selectAll(root, sel) {
			if n == root || n.Parent == nil {
				continue
			}
			n.Parent.RemoveChild(n)
		}
	}
	// Asides that are not note blocks are sidebars.
	for _, aside := range selectAll(root, "aside") {
		if aside.Parent != nil && !hasClass(aside, "note") {
			aside.Parent.RemoveChild(aside)
		}
	}
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

// collectText concatenates all text under n, separating adjacent nodes
// with spaces and collapsing whitespace runs.
func collectText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// fixFormatting trims trailing space, limits blank runs to two lines and
// collapses internal spaces everywhere except column-aligned table rows.
func fixFormatting(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks <= 2 {
				out = append(out, "")
			}
			continue
		}
		blanks = 0
		if isTableRow(line) {
			out = append(out, line)
		} else {
			out = append(out, strings.Join(strings.Fields(line), " "))
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// isTableRow detects intentional column padding: two or more spaces between
// non-space runs.
func isTableRow(line string) bool {
	return strings.Contains(strings.TrimSpace(line), "  ")
}
