package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// densestNode finds the subtree with the best text-to-markup ratio when no
// known content selector matches. Link-heavy regions score low, which
// keeps navigation blocks from winning on pages with thin content.
func densestNode(body *html.Node, minLen int) *html.Node {
	type scored struct {
		node  *html.Node
		score float64
	}
	var best *scored

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type != html.ElementNode || isBoilerplateNode(n) {
			return
		}
		if isContentContainer(n.Data) {
			text := collectText(n)
			if len(text) >= minLen {
				var b strings.Builder
				if err := html.Render(&b, n); err == nil && b.Len() > 0 {
					linkDens := float64(len(linkText(n))) / float64(len(text))
					if linkDens <= 0.5 {
						score := float64(len(text)) / float64(b.Len()) * lengthScale(len(text)) * (1 - linkDens)
						if best == nil || score > best.score {
							best = &scored{node: n, score: score}
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)

	if best == nil {
		return nil
	}
	return best.node
}

func isContentContainer(tag string) bool {
	switch tag {
	case "div", "section", "article", "main", "td":
		return true
	}
	return false
}

var boilerplateHints = []string{
	"nav", "footer", "sidebar", "menu", "banner", "advert", "promo", "header",
}

func isBoilerplateNode(n *html.Node) bool {
	switch n.Data {
	case "nav", "footer", "header", "aside":
		return true
	}
	marker := strings.ToLower(attrVal(n, "class") + " " + attrVal(n, "id"))
	for _, hint := range boilerplateHints {
		if strings.Contains(marker, hint) {
			return true
		}
	}
	return false
}

// lengthScale grows logarithmically so a huge low-density wrapper cannot
// beat a tight content block on raw size alone.
func lengthScale(n int) float64 {
	scale := 1.0
	for n > 100 {
		scale++
		n /= 2
	}
	return scale
}

// linkText returns only the text living inside anchors.
func linkText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inLink bool) {
		if n.Type == html.ElementNode && n.Data == "a" {
			inLink = true
		}
		if n.Type == html.TextNode && inLink {
			b.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inLink)
		}
	}
	walk(n, false)
	return b.String()
}
