// Package notify renders monitoring run reports as plain text and HTML and
// delivers them over SMTP.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/docveille/compare"
)

// RunReport aggregates one cycle's page outcomes for notification.
type RunReport struct {
	Timestamp time.Time
	NextRun   time.Time // zero when not scheduled
	Status    string    // "Success" or a brief error description

	// Outcomes holds every monitored page in TOC order.
	Outcomes []compare.PageOutcome
}

func (r *RunReport) filter(status compare.Status) []compare.PageOutcome {
	var out []compare.PageOutcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// NewPages returns outcomes for pages seen for the first time.
func (r *RunReport) NewPages() []compare.PageOutcome { return r.filter(compare.StatusNew) }

// ModifiedPages returns outcomes with content changes.
func (r *RunReport) ModifiedPages() []compare.PageOutcome { return r.filter(compare.StatusModified) }

// RemovedPages returns outcomes for pages gone from the TOC.
func (r *RunReport) RemovedPages() []compare.PageOutcome { return r.filter(compare.StatusRemoved) }

// HasChanges reports whether anything happened this cycle.
func (r *RunReport) HasChanges() bool {
	for _, o := range r.Outcomes {
		if o.Status != compare.StatusUnchanged {
			return true
		}
	}
	return false
}

// OverallSeverity is the maximum severity across all outcomes.
func (r *RunReport) OverallSeverity() compare.Severity {
	max := compare.SeverityNone
	for _, o := range r.Outcomes {
		if s := o.MaxSeverity(); s > max {
			max = s
		}
	}
	return max
}

// Counts returns the added/removed line delta totals and warning count
// across modified pages.
func (r *RunReport) Counts() (additions, removals, warnings int) {
	for _, o := range r.ModifiedPages() {
		if o.Report == nil {
			continue
		}
		additions += len(o.Report.Added)
		removals += len(o.Report.Removed)
		warnings += len(o.Report.NewWarnings())
	}
	return additions, removals, warnings
}

// Subject builds the email subject line.
func (r *RunReport) Subject(prefix string) string {
	if prefix == "" {
		prefix = "Doc Monitor"
	}
	if !r.HasChanges() {
		return prefix + " - No Changes Detected"
	}
	var parts []string
	if n := len(r.NewPages()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d New", n))
	}
	if n := len(r.ModifiedPages()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d Modified", n))
	}
	if n := len(r.RemovedPages()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d Removed", n))
	}
	sevTag := ""
	if sev := r.OverallSeverity(); sev > compare.SeverityNone {
		sevTag = fmt.Sprintf(" [%s]", sev)
	}
	return fmt.Sprintf("%s - Changes Detected%s: %s", prefix, sevTag, strings.Join(parts, ", "))
}
