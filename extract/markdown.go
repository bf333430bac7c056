package extract

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// Extractor holds the markdown converter; New is cheap enough to call once
// per process.
type Extractor struct {
	md *converter.Converter
}

func New() *Extractor {
	return &Extractor{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// markdown renders the cleaned content node as markdown. On conversion
// failure the plain text stands in; the archive copy is best-effort.
func (e *Extractor) markdown(content *html.Node, pageURL, fallback string) string {
	var b strings.Builder
	if err := html.Render(&b, content); err != nil {
		return fallback
	}
	out, err := e.md.ConvertString(b.String(), converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(out) == "" {
		return fallback
	}
	return strings.TrimSpace(out)
}
