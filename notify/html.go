package notify

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/docveille/compare"
)

// Page text comes from scraped HTML, so anything interpolated into the
// HTML body goes through a strict sanitizer first.
var escaper = bluemonday.StrictPolicy()

func esc(s string) string {
	return escaper.Sanitize(s)
}

func severityColor(s compare.Severity) string {
	switch s {
	case compare.SeverityHigh:
		return "#d32f2f"
	case compare.SeverityMedium:
		return "#f57c00"
	case compare.SeverityLow:
		return "#fbc02d"
	default:
		return "#388e3c"
	}
}

// BuildHTML renders the HTML notification body.
func BuildHTML(r *RunReport) string {
	var b strings.Builder
	additions, removals, warnings := r.Counts()

	b.WriteString(`<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#212121;max-width:860px;margin:0 auto">`)

	headline := "No Changes Detected"
	if r.HasChanges() {
		headline = "Changes Detected"
	}
	fmt.Fprintf(&b, `<div style="background:%s;color:#fff;padding:14px 18px;border-radius:4px"><h2 style="margin:0">Documentation Monitoring Report</h2><p style="margin:4px 0 0">%s &middot; Severity %s</p></div>`,
		severityColor(r.OverallSeverity()), headline, r.OverallSeverity())

	b.WriteString(`<table style="border-collapse:collapse;margin:16px 0">`)
	summaryRow(&b, "Timestamp", r.Timestamp.Format("2006-01-02 15:04:05 MST"))
	summaryRow(&b, "Run Status", esc(r.Status))
	summaryRow(&b, "Pages Checked", fmt.Sprint(len(r.Outcomes)))
	summaryRow(&b, "New / Modified / Removed", fmt.Sprintf("%d / %d / %d",
		len(r.NewPages()), len(r.ModifiedPages()), len(r.RemovedPages())))
	summaryRow(&b, "Line Additions / Removals", fmt.Sprintf("%d / %d", additions, removals))
	summaryRow(&b, "Structural Warnings", fmt.Sprint(warnings))
	b.WriteString(`</table>`)

	if pages := r.NewPages(); len(pages) > 0 {
		sectionTitle(&b, fmt.Sprintf("New Pages (%d)", len(pages)))
		for _, o := range pages {
			htmlNewPage(&b, o)
		}
	}
	if pages := r.ModifiedPages(); len(pages) > 0 {
		sectionTitle(&b, fmt.Sprintf("Modified Pages (%d)", len(pages)))
		for _, o := range pages {
			htmlModifiedPage(&b, o)
		}
	}
	if pages := r.RemovedPages(); len(pages) > 0 {
		sectionTitle(&b, fmt.Sprintf("Removed Pages (%d)", len(pages)))
		for _, o := range pages {
			htmlRemovedPage(&b, o)
		}
	}
	if !r.HasChanges() {
		fmt.Fprintf(&b, `<p>All %d monitored pages are identical to the previous run.</p>`, len(r.Outcomes))
	}

	htmlPagesTable(&b, r)

	b.WriteString(`<p style="color:#757575;font-size:12px">Automated report. Review flagged pages before acting on them.`)
	if !r.NextRun.IsZero() {
		fmt.Fprintf(&b, ` Next scheduled run: %s.`, r.NextRun.Format("2006-01-02 15:04 MST"))
	}
	b.WriteString(`</p></body></html>`)
	return b.String()
}

func summaryRow(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, `<tr><td style="padding:2px 16px 2px 0;color:#757575">%s</td><td style="padding:2px 0">%s</td></tr>`, key, value)
}

func sectionTitle(b *strings.Builder, title string) {
	fmt.Fprintf(b, `<h3 style="border-bottom:2px solid #e0e0e0;padding-bottom:4px">%s</h3>`, title)
}

func htmlPageHeading(b *strings.Builder, o compare.PageOutcome) {
	fmt.Fprintf(b, `<h4 style="margin:12px 0 2px">%s</h4>`, esc(pageHeading(o)))
	if o.URL != "" {
		fmt.Fprintf(b, `<p style="margin:0 0 6px"><a href="%s">%s</a></p>`, esc(o.URL), esc(o.URL))
	}
}

func htmlNewPage(b *strings.Builder, o compare.PageOutcome) {
	htmlPageHeading(b, o)
	if len(o.Preview) == 0 {
		return
	}
	shown := o.Preview
	if len(shown) > maxPreviewLines {
		shown = shown[:maxPreviewLines]
	}
	b.WriteString(`<pre style="background:#f5f5f5;padding:8px;border-radius:4px;white-space:pre-wrap">`)
	for _, line := range shown {
		b.WriteString(esc(line) + "\n")
	}
	if o.TotalLines > len(shown) {
		fmt.Fprintf(b, "... and %d more lines\n", o.TotalLines-len(shown))
	}
	b.WriteString(`</pre>`)
}

func htmlModifiedPage(b *strings.Builder, o compare.PageOutcome) {
	htmlPageHeading(b, o)
	rep := o.Report
	if rep == nil {
		return
	}
	fmt.Fprintf(b, `<p style="margin:0 0 6px">Additions: %d &middot; Removals: %d &middot; Severity <span style="color:%s;font-weight:bold">%s</span></p>`,
		len(rep.Added), len(rep.Removed), severityColor(rep.MaxSeverity), rep.MaxSeverity)

	if !rep.Trusted {
		fmt.Fprintf(b, `<p style="color:#d32f2f">Snapshot rejected: content shrank from %d to %d characters with no additions. Stored snapshot kept.</p>`,
			rep.OldLength, rep.NewLength)
		return
	}

	if warns := rep.NewWarnings(); len(warns) > 0 {
		b.WriteString(`<ul style="color:#d32f2f;margin:4px 0">`)
		for _, w := range warns {
			fmt.Fprintf(b, `<li>%s</li>`, esc(w.Message))
		}
		b.WriteString(`</ul>`)
	}
	htmlDeltas(b, "#2e7d32", "+", rep.Added)
	htmlDeltas(b, "#c62828", "&minus;", rep.Removed)
}

func htmlDeltas(b *strings.Builder, color, marker string, deltas []compare.LineDelta) {
	if len(deltas) == 0 {
		return
	}
	shown := deltas
	if len(shown) > maxDeltaLines {
		shown = shown[:maxDeltaLines]
	}
	fmt.Fprintf(b, `<ul style="list-style:none;padding-left:8px;margin:4px 0">`)
	for _, d := range shown {
		suffix := ""
		if d.Count > 1 {
			suffix = fmt.Sprintf(" (x%d)", d.Count)
		}
		fmt.Fprintf(b, `<li style="color:%s">%s %s%s</li>`, color, marker, esc(d.Text), suffix)
	}
	if rest := len(deltas) - len(shown); rest > 0 {
		fmt.Fprintf(b, `<li style="color:#757575">... and %d more</li>`, rest)
	}
	b.WriteString(`</ul>`)
}

func htmlRemovedPage(b *strings.Builder, o compare.PageOutcome) {
	htmlPageHeading(b, o)
	if o.TotalLines > 0 {
		fmt.Fprintf(b, `<p style="margin:0">Previously had %d lines.</p>`, o.TotalLines)
	}
	b.WriteString(`<p style="margin:0 0 6px">No longer found in the documentation table of contents.</p>`)
}

func htmlPagesTable(b *strings.Builder, r *RunReport) {
	sectionTitle(b, fmt.Sprintf("Pages Monitored (%d)", len(r.Outcomes)))
	b.WriteString(`<table style="border-collapse:collapse;width:100%;font-size:13px">`)
	b.WriteString(`<tr style="background:#eeeeee"><th style="text-align:left;padding:4px">#</th><th style="text-align:left;padding:4px">Page No.</th><th style="text-align:left;padding:4px">Status</th><th style="text-align:left;padding:4px">Page Name</th></tr>`)
	for i, o := range r.Outcomes {
		status := tableStatus(o.Status)
		color := "#388e3c"
		if status != "OK" {
			color = severityColor(o.MaxSeverity())
		}
		name := esc(o.Title)
		if o.URL != "" {
			name = fmt.Sprintf(`<a href="%s">%s</a>`, esc(o.URL), name)
		}
		fmt.Fprintf(b, `<tr><td style="padding:4px">%d</td><td style="padding:4px">%s</td><td style="padding:4px;color:%s;font-weight:bold">%s</td><td style="padding:4px">%s</td></tr>`,
			i+1, esc(o.Number), color, status, name)
	}
	b.WriteString(`</table>`)
}
