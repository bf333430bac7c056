package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// renderer walks the cleaned content tree and emits text lines, one block
// element at a time. Already-emitted block text is remembered so portals
// that render the same fragment twice (sticky headers, mobile/desktop
// variants) produce it once.
type renderer struct {
	lines []string
	seen  map[string]bool
}

func (r *renderer) walk(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			r.heading(c)
		case "ol":
			r.orderedList(c)
		case "ul":
			r.unorderedList(c)
		case "aside":
			if hasClass(c, "note") {
				r.note(c)
			}
		case "p":
			r.paragraph(c)
		case "pre", "code":
			r.codeBlock(c)
		case "blockquote":
			r.blockquote(c)
		case "table":
			r.table(c)
		case "dl":
			r.definitionList(c)
		default:
			r.walk(c)
		}
	}
}

func (r *renderer) emit(line string) {
	r.lines = append(r.lines, line)
}

func (r *renderer) emitBlank() {
	if len(r.lines) > 0 && r.lines[len(r.lines)-1] != "" {
		r.emit("")
	}
}

func (r *renderer) heading(n *html.Node) {
	text := collectText(n)
	if len(text) <= 2 || isUIText(text) || r.seen[text] {
		return
	}
	r.emitBlank()
	r.emit(text)
	r.emit("")
	r.seen[text] = true
}

func (r *renderer) orderedList(n *html.Node) {
	idx := 0
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		idx++
		text := listItemText(li)
		if text == "" || r.seen[text] {
			continue
		}
		r.emit(fmt.Sprintf("%d. %s", idx, text))
		r.seen[text] = true
		r.itemNotes(li)
	}
}

func (r *renderer) unorderedList(n *html.Node) {
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		text := listItemText(li)
		if text == "" || r.seen[text] {
			continue
		}
		r.emit("• " + text)
		r.seen[text] = true
		r.itemNotes(li)
	}
}

// itemNotes emits note blocks nested inside a list item.
func (r *renderer) itemNotes(li *html.Node) {
	for _, note := range selectAll(li, "aside.note") {
		r.note(note)
	}
}

func (r *renderer) note(n *html.Node) {
	text := noteText(n)
	if text == "" || r.seen[text] {
		return
	}
	r.emitBlank()
	r.emit("Note: " + text)
	r.emit("")
	r.seen[text] = true
}

func (r *renderer) paragraph(n *html.Node) {
	text := collectText(n)
	if len(text) <= 2 || isUIText(text) || r.duplicateParagraph(text) {
		return
	}
	r.emit(text)
	r.emit("")
	r.seen[text] = true
}

func (r *renderer) codeBlock(n *html.Node) {
	text := collectText(n)
	if len(text) <= 2 || r.seen[text] {
		return
	}
	r.emit("```")
	r.emit(text)
	r.emit("```")
	r.seen[text] = true
}

func (r *renderer) blockquote(n *html.Node) {
	text := collectText(n)
	if len(text) <= 2 || r.seen[text] {
		return
	}
	r.emit("> " + text)
	r.seen[text] = true
}

func (r *renderer) table(n *html.Node) {
	// Sticky-header ghost tables duplicate the real one.
	if classContains(n, "floating-headers") {
		return
	}
	rows := formatTable(n)
	if len(rows) == 0 {
		return
	}
	fingerprint := strings.Join(rows, "\n")
	if r.seen[fingerprint] {
		return
	}
	r.emitBlank()
	r.lines = append(r.lines, rows...)
	r.emit("")
	r.seen[fingerprint] = true
}

func (r *renderer) definitionList(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		text := collectText(c)
		if len(text) <= 2 || r.seen[text] {
			continue
		}
		switch c.Data {
		case "dt":
			r.emit(text)
		case "dd":
			r.emit("  " + text)
		default:
			continue
		}
		r.seen[text] = true
	}
}

// duplicateParagraph applies fuzzy matching: long paragraphs that contain,
// or are contained by, an already-seen one are re-renders, not new content.
func (r *renderer) duplicateParagraph(text string) bool {
	if r.seen[text] {
		return true
	}
	if len(text) <= 50 {
		return false
	}
	for seen := range r.seen {
		if len(seen) > 50 && (strings.Contains(seen, text) || strings.Contains(text, seen)) {
			return true
		}
	}
	return false
}

// listItemText flattens a list item, nested lists included, into one line.
// Note blocks are excluded; they are emitted separately.
func listItemText(li *html.Node) string {
	text := collectText(li)
	for _, note := range selectAll(li, "aside.note") {
		nt := collectText(note)
		if nt != "" {
			text = strings.Replace(text, nt, "", 1)
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

// noteText extracts a note body, dropping the rendered "Note" title.
func noteText(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "div" && hasClass(c, "title") {
			continue
		}
		if t := collectTextNode(c); t != "" {
			parts = append(parts, t)
		}
	}
	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "note") {
		text = strings.TrimSpace(text[4:])
		text = strings.TrimSpace(strings.TrimPrefix(text, ":"))
	}
	return text
}

func collectTextNode(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.Join(strings.Fields(n.Data), " ")
	}
	return collectText(n)
}
