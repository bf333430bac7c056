package notify

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/docveille/compare"
)

const (
	banner = "============================================================"

	// Caps on per-page detail so a large docs rewrite does not produce a
	// megabyte email.
	maxPreviewLines = 10
	maxDeltaLines   = 5
)

// BuildText renders the plain-text notification body.
func BuildText(r *RunReport) string {
	var b strings.Builder

	writeHeader(&b, r)

	if pages := r.NewPages(); len(pages) > 0 {
		writeBanner(&b, fmt.Sprintf("NEW PAGES (%d)", len(pages)))
		for _, o := range pages {
			writeNewPage(&b, o)
		}
	}
	if pages := r.ModifiedPages(); len(pages) > 0 {
		writeBanner(&b, fmt.Sprintf("MODIFIED PAGES (%d)", len(pages)))
		for _, o := range pages {
			writeModifiedPage(&b, o)
		}
	}
	if pages := r.RemovedPages(); len(pages) > 0 {
		writeBanner(&b, fmt.Sprintf("REMOVED PAGES (%d)", len(pages)))
		for _, o := range pages {
			writeRemovedPage(&b, o)
		}
	}
	if !r.HasChanges() {
		writeBanner(&b, "ALL PAGES UNCHANGED")
		fmt.Fprintf(&b, "\nAll %d monitored pages are identical to the previous run.\n", len(r.Outcomes))
	}

	writePagesTable(&b, r)

	b.WriteString("\n" + banner + "\n")
	b.WriteString("Automated report. Review flagged pages before acting on them.\n")
	if !r.NextRun.IsZero() {
		fmt.Fprintf(&b, "Next scheduled run: %s\n", r.NextRun.Format("2006-01-02 15:04 MST"))
	}
	return b.String()
}

func writeHeader(b *strings.Builder, r *RunReport) {
	additions, removals, warnings := r.Counts()

	b.WriteString("Documentation Monitoring Report\n")
	b.WriteString(banner + "\n")
	fmt.Fprintf(b, "%-20s %s\n", "Timestamp:", r.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(b, "%-20s %s\n", "Run Status:", r.Status)
	fmt.Fprintf(b, "%-20s %d\n", "Pages Checked:", len(r.Outcomes))
	fmt.Fprintf(b, "%-20s %d\n", "New Pages:", len(r.NewPages()))
	fmt.Fprintf(b, "%-20s %d\n", "Modified Pages:", len(r.ModifiedPages()))
	fmt.Fprintf(b, "%-20s %d\n", "Unchanged Pages:", len(r.filter(compare.StatusUnchanged)))
	fmt.Fprintf(b, "%-20s %d\n", "Removed Pages:", len(r.RemovedPages()))
	fmt.Fprintf(b, "%-20s %d\n", "Line Additions:", additions)
	fmt.Fprintf(b, "%-20s %d\n", "Line Removals:", removals)
	fmt.Fprintf(b, "%-20s %d\n", "Struct. Warnings:", warnings)
	fmt.Fprintf(b, "%-20s %s\n", "Overall Severity:", r.OverallSeverity())
}

func writeBanner(b *strings.Builder, title string) {
	b.WriteString("\n" + banner + "\n")
	b.WriteString(title + "\n")
	b.WriteString(banner + "\n")
}

func pageHeading(o compare.PageOutcome) string {
	if o.Number != "" {
		return fmt.Sprintf("[%s] %s", o.Number, o.Title)
	}
	return o.Title
}

func writeNewPage(b *strings.Builder, o compare.PageOutcome) {
	fmt.Fprintf(b, "\n%s\n", pageHeading(o))
	if o.URL != "" {
		fmt.Fprintf(b, "URL: %s\n", o.URL)
	}
	if len(o.Preview) == 0 {
		return
	}
	b.WriteString("Preview:\n")
	shown := o.Preview
	if len(shown) > maxPreviewLines {
		shown = shown[:maxPreviewLines]
	}
	for _, line := range shown {
		fmt.Fprintf(b, "  %s\n", line)
	}
	if o.TotalLines > len(shown) {
		fmt.Fprintf(b, "  ... and %d more lines\n", o.TotalLines-len(shown))
	}
}

func writeModifiedPage(b *strings.Builder, o compare.PageOutcome) {
	fmt.Fprintf(b, "\n%s\n", pageHeading(o))
	if o.URL != "" {
		fmt.Fprintf(b, "URL: %s\n", o.URL)
	}
	rep := o.Report
	if rep == nil {
		return
	}
	fmt.Fprintf(b, "Additions: %d | Removals: %d | Severity: %s\n",
		len(rep.Added), len(rep.Removed), rep.MaxSeverity)

	if !rep.Trusted {
		fmt.Fprintf(b, "[!] Snapshot rejected: content shrank from %d to %d characters with no additions. Stored snapshot kept.\n",
			rep.OldLength, rep.NewLength)
		return
	}

	if warns := rep.NewWarnings(); len(warns) > 0 {
		b.WriteString("[!] Structural warnings:\n")
		for _, w := range warns {
			fmt.Fprintf(b, "  - %s\n", w.Message)
		}
	}
	writeDeltas(b, "[+] New content:", "+", rep.Added)
	writeDeltas(b, "[-] Removed content:", "-", rep.Removed)
}

func writeDeltas(b *strings.Builder, title, marker string, deltas []compare.LineDelta) {
	if len(deltas) == 0 {
		return
	}
	b.WriteString(title + "\n")
	shown := deltas
	if len(shown) > maxDeltaLines {
		shown = shown[:maxDeltaLines]
	}
	for _, d := range shown {
		suffix := ""
		if d.Count > 1 {
			suffix = fmt.Sprintf(" (x%d)", d.Count)
		}
		fmt.Fprintf(b, "  %s %s%s\n", marker, d.Text, suffix)
	}
	if rest := len(deltas) - len(shown); rest > 0 {
		fmt.Fprintf(b, "  ... and %d more\n", rest)
	}
}

func writeRemovedPage(b *strings.Builder, o compare.PageOutcome) {
	fmt.Fprintf(b, "\n%s\n", pageHeading(o))
	if o.URL != "" {
		fmt.Fprintf(b, "URL: %s\n", o.URL)
	}
	if o.TotalLines > 0 {
		fmt.Fprintf(b, "Previously had %d lines\n", o.TotalLines)
	}
	b.WriteString("No longer found in the documentation table of contents\n")
}

func writePagesTable(b *strings.Builder, r *RunReport) {
	writeBanner(b, fmt.Sprintf("PAGES MONITORED (%d)", len(r.Outcomes)))

	nameWidth := len("Page Name")
	for _, o := range r.Outcomes {
		if len(o.Title) > nameWidth {
			nameWidth = len(o.Title)
		}
	}
	if nameWidth > 45 {
		nameWidth = 45
	}

	fmt.Fprintf(b, "%-6s %-9s %-8s %-*s %s\n", "S.No.", "Page No.", "Status", nameWidth, "Page Name", "URL")
	for i, o := range r.Outcomes {
		title := o.Title
		if len(title) > nameWidth {
			title = title[:nameWidth-3] + "..."
		}
		fmt.Fprintf(b, "%-6d %-9s %-8s %-*s %s\n",
			i+1, o.Number, tableStatus(o.Status), nameWidth, title, o.URL)
	}
}

func tableStatus(s compare.Status) string {
	switch s {
	case compare.StatusNew:
		return "NEW"
	case compare.StatusModified:
		return "CHANGED"
	case compare.StatusRemoved:
		return "REMOVED"
	default:
		return "OK"
	}
}
