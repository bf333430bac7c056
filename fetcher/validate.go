package fetcher

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// errorMarkers indicate a failed or incomplete load baked into otherwise
// well-formed HTML.
var errorMarkers = []string{
	"this page isn't working",
	"err_connection",
	"page not found",
	"404 not found",
	"access denied",
	"503 service unavailable",
}

// ValidateContent checks that fetched HTML holds a real rendered page:
// no error markers and at least minLen characters of visible text.
func ValidateContent(src string, minLen int) error {
	if strings.TrimSpace(src) == "" {
		return fmt.Errorf("fetcher: empty document")
	}
	lower := strings.ToLower(src)
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("fetcher: error marker detected: %q", marker)
		}
	}
	if n := visibleTextLen(src); n < minLen {
		return fmt.Errorf("fetcher: visible text too short (%d chars, minimum %d)", n, minLen)
	}
	return nil
}

// visibleTextLen measures rendered text, skipping script/style/noscript so
// a page that is all JavaScript and no content counts as empty.
func visibleTextLen(src string) int {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return 0
	}
	total := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			total += len(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return total
}
