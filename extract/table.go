package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// formatTable renders an HTML table as column-aligned plain text with a
// dash separator under the header row, the way terminals print tables.
// Nested tables are captured by the outermost one.
func formatTable(table *html.Node) []string {
	type row struct {
		cells  []string
		header bool
	}
	var rows []row

	for _, tr := range selectAll(table, "tr") {
		var cells []string
		header := true
		any := false
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
				continue
			}
			text := collectText(c)
			cells = append(cells, text)
			if text != "" {
				any = true
			}
			if c.Data != "th" {
				header = false
			}
		}
		// Ghost rows from sticky-header rendering are fully empty.
		if !any {
			continue
		}
		rows = append(rows, row{cells: cells, header: header})
	}
	if len(rows) == 0 {
		return nil
	}

	cols := 0
	for _, r := range rows {
		if len(r.cells) > cols {
			cols = len(r.cells)
		}
	}
	widths := make([]int, cols)
	for i := range rows {
		for len(rows[i].cells) < cols {
			rows[i].cells = append(rows[i].cells, "")
		}
		for ci, cell := range rows[i].cells {
			if len(cell) > widths[ci] {
				widths[ci] = len(cell)
			}
		}
	}

	pad := func(cells []string) string {
		parts := make([]string, len(cells))
		for ci, cell := range cells {
			parts[ci] = cell + strings.Repeat(" ", widths[ci]-len(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var out []string
	for ri, r := range rows {
		out = append(out, pad(r.cells))
		// Separator goes under the last header row.
		if r.header && (ri+1 >= len(rows) || !rows[ri+1].header) {
			sep := make([]string, cols)
			for ci, w := range widths {
				sep[ci] = strings.Repeat("-", w)
			}
			out = append(out, strings.Join(sep, "  "))
		}
	}
	return out
}
