package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// selector is a parsed simple CSS selector. Supported forms:
//
//	tag  .class  #id  tag.class  tag#id
//	[attr]  [attr=val]  [class*=substr]
//
// and descendant combination by spaces. This covers what documentation
// portals need without pulling in a full CSS engine.
type selector struct {
	tag       string
	id        string
	class     string
	attrKey   string
	attrVal   string
	attrSubst bool // attrVal is a substring match ([class*=nav])
}

func parseSelector(s string) selector {
	var sel selector

	if idx := strings.IndexByte(s, '['); idx >= 0 {
		attr := strings.TrimRight(s[idx+1:], "]")
		s = s[:idx]
		if eq := strings.Index(attr, "*="); eq >= 0 {
			sel.attrKey = attr[:eq]
			sel.attrVal = strings.Trim(attr[eq+2:], `"'`)
			sel.attrSubst = true
		} else if eq := strings.IndexByte(attr, '='); eq >= 0 {
			sel.attrKey = attr[:eq]
			sel.attrVal = strings.Trim(attr[eq+1:], `"'`)
		} else {
			sel.attrKey = attr
		}
	}
	if idx := strings.IndexByte(s, '#'); idx >= 0 {
		sel.id = s[idx+1:]
		s = s[:idx]
	}
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		sel.class = s[idx+1:]
		s = s[:idx]
	}
	sel.tag = s
	return sel
}

func (sel selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if sel.tag != "" && n.Data != sel.tag {
		return false
	}
	if sel.id != "" && attrVal(n, "id") != sel.id {
		return false
	}
	if sel.class != "" && !hasClass(n, sel.class) {
		return false
	}
	if sel.attrKey != "" {
		val, ok := lookupAttr(n, sel.attrKey)
		if !ok {
			return false
		}
		if sel.attrVal != "" {
			if sel.attrSubst {
				if !strings.Contains(val, sel.attrVal) {
					return false
				}
			} else if val != sel.attrVal {
				return false
			}
		}
	}
	return true
}

// SelectFirst returns the first node under root matching a simple CSS
// selector string, in document order. Exported for sibling packages that
// walk portal HTML (TOC discovery).
func SelectFirst(root *html.Node, s string) *html.Node {
	return selectFirst(root, s)
}

// SelectAll returns every node matching the selector string.
func SelectAll(root *html.Node, s string) []*html.Node {
	return selectAll(root, s)
}

// Text returns the whitespace-normalized text content of a node.
func Text(n *html.Node) string {
	return collectText(n)
}

// Attr returns the value of an attribute, or "" when absent.
func Attr(n *html.Node, key string) string {
	return attrVal(n, key)
}

// selectFirst returns the first node under root matching a (possibly
// descendant-combined) selector string, in document order.
func selectFirst(root *html.Node, s string) *html.Node {
	nodes := selectAll(root, s)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// selectAll returns every node matching the selector string.
func selectAll(root *html.Node, s string) []*html.Node {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return nil
	}
	matches := matchAll(root, parseSelector(parts[0]))
	for _, part := range parts[1:] {
		sel := parseSelector(part)
		var next []*html.Node
		for _, parent := range matches {
			next = append(next, matchAll(parent, sel)...)
		}
		matches = next
	}
	return matches
}

func matchAll(root *html.Node, sel selector) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if sel.matches(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	if sel.matches(root) {
		out = append([]*html.Node{root}, out...)
	}
	return out
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrVal(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func classContains(n *html.Node, substr string) bool {
	return strings.Contains(attrVal(n, "class"), substr)
}
