package compare

import "strings"

// Status is the per-page verdict of one monitoring cycle.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusModified  Status = "modified"
	StatusNew       Status = "new"
	StatusRemoved   Status = "removed"
)

// PageOutcome is the cycle result for a single documentation page.
type PageOutcome struct {
	Name   string // normalized page name, the store key
	Number string // hierarchical TOC number, e.g. "9.1"
	Title  string
	URL    string

	Status Status

	// Report is set for modified pages.
	Report *Report

	// Preview holds the first lines of a new page; TotalLines is the full
	// non-empty line count.
	Preview    []string
	TotalLines int
}

// MaxSeverity of the outcome: new and removed pages alert at HIGH, modified
// pages inherit the report severity, unchanged pages none.
func (o PageOutcome) MaxSeverity() Severity {
	switch o.Status {
	case StatusNew, StatusRemoved:
		return SeverityHigh
	case StatusModified:
		if o.Report != nil {
			return o.Report.MaxSeverity
		}
	}
	return SeverityNone
}

// Preview extracts the first n non-empty lines of a page along with the
// total non-empty line count, for presenting newly discovered pages.
func Preview(text string, n int) (lines []string, total int) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		total++
		if len(lines) < n {
			lines = append(lines, trimmed)
		}
	}
	return lines, total
}
