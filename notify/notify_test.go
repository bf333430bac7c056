package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/docveille/compare"
)

func sampleReport() *RunReport {
	return &RunReport{
		Timestamp: time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC),
		Status:    "Success",
		Outcomes: []compare.PageOutcome{
			{
				Name: "overview", Number: "1", Title: "Overview",
				URL:    "https://help.example.com/docs/x/abc123def456/overview.html",
				Status: compare.StatusUnchanged,
			},
			{
				Name: "create alerts", Number: "4.2", Title: "Create Alerts",
				URL:    "https://help.example.com/docs/x/abc123def456/alerts.html",
				Status: compare.StatusModified,
				Report: &compare.Report{
					Trusted:    true,
					HasChanges: true,
					Added: []compare.LineDelta{
						{Text: "Choose Save and Activate.", Count: 1, Severity: compare.SeverityHigh},
					},
					Removed: []compare.LineDelta{
						{Text: "Choose Save.", Count: 2, Severity: compare.SeverityHigh},
					},
					Warnings: []compare.StructuralWarning{
						{Kind: compare.WarnNumberingGap, Detail: "step-3", Message: "Step 3 is missing", Severity: compare.SeverityHigh, Newly: true},
					},
					MaxSeverity: compare.SeverityHigh,
				},
			},
			{
				Name: "getting started", Number: "2", Title: "Getting Started",
				URL:        "https://help.example.com/docs/x/abc123def456/start.html",
				Status:     compare.StatusNew,
				Preview:    []string{"Getting Started", "Prerequisites", "You need an admin role."},
				TotalLines: 40,
			},
			{
				Name: "legacy setup", Number: "7", Title: "Legacy Setup",
				Status: compare.StatusRemoved, TotalLines: 120,
			},
		},
	}
}

func TestSubject_Changes(t *testing.T) {
	// WHAT: The subject names the severity and counts per status.
	// WHY: Operators triage from the subject line alone.
	got := sampleReport().Subject("APM Docs")
	want := "APM Docs - Changes Detected [HIGH]: 1 New, 1 Modified, 1 Removed"
	if got != want {
		t.Errorf("Subject = %q, want %q", got, want)
	}
}

func TestSubject_NoChanges(t *testing.T) {
	// WHAT: A quiet run gets a distinct subject with no severity tag.
	// WHY: Heartbeat mails must be filterable from change alerts.
	r := &RunReport{Outcomes: []compare.PageOutcome{{Status: compare.StatusUnchanged}}}
	if got := r.Subject(""); got != "Doc Monitor - No Changes Detected" {
		t.Errorf("Subject = %q", got)
	}
}

func TestBuildText_Sections(t *testing.T) {
	// WHAT: The plain body carries the summary header, one section per
	// status, per-page markers, and the monitored pages table.
	// WHY: The email is the whole operator interface; every change class
	// must be visible without opening the portal.
	body := BuildText(sampleReport())

	for _, want := range []string{
		"Documentation Monitoring Report",
		"Pages Checked:       4",
		"Overall Severity:    HIGH",
		"NEW PAGES (1)",
		"[2] Getting Started",
		"You need an admin role.",
		"... and 37 more lines",
		"MODIFIED PAGES (1)",
		"Additions: 1 | Removals: 1 | Severity: HIGH",
		"[!] Structural warnings:",
		"  - Step 3 is missing",
		"  + Choose Save and Activate.",
		"  - Choose Save. (x2)",
		"REMOVED PAGES (1)",
		"Previously had 120 lines",
		"No longer found in the documentation table of contents",
		"PAGES MONITORED (4)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\n%s", want, body)
		}
	}
	if strings.Contains(body, "ALL PAGES UNCHANGED") {
		t.Error("unchanged block present despite changes")
	}
}

func TestBuildText_TableStatuses(t *testing.T) {
	// WHAT: The pages table shows one row per page with a status column.
	// WHY: The table is the at-a-glance coverage inventory.
	body := BuildText(sampleReport())
	table := body[strings.Index(body, "PAGES MONITORED"):]
	for _, want := range []string{"OK", "CHANGED", "NEW", "REMOVED", "Create Alerts"} {
		if !strings.Contains(table, want) {
			t.Errorf("table missing %q\n%s", want, table)
		}
	}
}

func TestBuildText_Unchanged(t *testing.T) {
	// WHAT: A quiet run renders the unchanged block and no change sections.
	r := &RunReport{
		Timestamp: time.Now(),
		Status:    "Success",
		Outcomes:  []compare.PageOutcome{{Title: "Overview", Status: compare.StatusUnchanged}},
	}
	body := BuildText(r)
	if !strings.Contains(body, "ALL PAGES UNCHANGED") {
		t.Error("missing unchanged block")
	}
	if strings.Contains(body, "MODIFIED PAGES") {
		t.Error("unexpected modified section")
	}
}

func TestBuildText_DeltaCap(t *testing.T) {
	// WHAT: Per-page delta listings stop at the cap with an overflow note.
	// WHY: A full docs rewrite must not produce an unreadable email.
	var added []compare.LineDelta
	for i := 0; i < 12; i++ {
		added = append(added, compare.LineDelta{Text: fmt.Sprintf("line %d", i), Count: 1})
	}
	r := &RunReport{
		Timestamp: time.Now(), Status: "Success",
		Outcomes: []compare.PageOutcome{{
			Title: "Big Page", Status: compare.StatusModified,
			Report: &compare.Report{Trusted: true, HasChanges: true, Added: added},
		}},
	}
	body := BuildText(r)
	if !strings.Contains(body, "... and 7 more") {
		t.Errorf("missing overflow note:\n%s", body)
	}
	if strings.Contains(body, "line 6") {
		t.Error("delta beyond cap rendered")
	}
}

func TestBuildText_UntrustedReport(t *testing.T) {
	// WHAT: A rejected snapshot renders the shrinkage note instead of deltas.
	// WHY: Operators must see that the fetch was discarded, not that the
	// page emptied out.
	r := &RunReport{
		Timestamp: time.Now(), Status: "Success",
		Outcomes: []compare.PageOutcome{{
			Title: "Flaky Page", Status: compare.StatusModified,
			Report: &compare.Report{
				Trusted: false, HasChanges: true,
				MaxSeverity: compare.SeverityHigh,
				OldLength:   5000, NewLength: 90,
			},
		}},
	}
	body := BuildText(r)
	if !strings.Contains(body, "Snapshot rejected: content shrank from 5000 to 90 characters") {
		t.Errorf("missing rejection note:\n%s", body)
	}
}

func TestBuildHTML_EscapesPageText(t *testing.T) {
	// WHAT: Page-derived text cannot inject markup into the HTML body.
	// WHY: Titles and deltas come from scraped pages.
	r := &RunReport{
		Timestamp: time.Now(), Status: "Success",
		Outcomes: []compare.PageOutcome{{
			Title: `<script>alert("x")</script>Overview`, Status: compare.StatusModified,
			Report: &compare.Report{
				Trusted: true, HasChanges: true,
				Added: []compare.LineDelta{{Text: `<img src=x onerror=alert(1)>`, Count: 1}},
			},
		}},
	}
	body := BuildHTML(r)
	if strings.Contains(body, "<script>") || strings.Contains(body, "<img src=x") {
		t.Errorf("unescaped page text in HTML:\n%s", body)
	}
	if !strings.Contains(body, "Overview") {
		t.Error("title text lost in sanitization")
	}
}

func TestBuildHTML_SeverityBanner(t *testing.T) {
	// WHAT: The banner colour tracks the overall severity.
	body := BuildHTML(sampleReport())
	if !strings.Contains(body, "#d32f2f") {
		t.Error("missing high-severity colour")
	}
	quiet := BuildHTML(&RunReport{Timestamp: time.Now(), Status: "Success"})
	if !strings.Contains(quiet, "#388e3c") {
		t.Error("missing quiet-run colour")
	}
}

func TestSplitRecipients(t *testing.T) {
	// WHAT: Both separators work, whitespace and empties are dropped.
	// WHY: Recipient lists arrive from config pasted out of mail clients.
	got := SplitRecipients("a@x.com; b@x.com ,, c@x.com")
	want := []string{"a@x.com", "b@x.com", "c@x.com"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMailer_SkipsQuietRun(t *testing.T) {
	// WHAT: Without AlwaysNotify, a no-change run sends nothing.
	// WHY: Heartbeat noise trains operators to ignore the alerts.
	sent := false
	m := NewMailer(MailConfig{Host: "smtp.example.com", To: "ops@example.com"}, nil)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		sent = true
		return nil
	}
	r := &RunReport{Outcomes: []compare.PageOutcome{{Status: compare.StatusUnchanged}}}
	if err := m.Notify(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if sent {
		t.Error("quiet run was mailed")
	}
}

func TestMailer_SendsMultipart(t *testing.T) {
	// WHAT: Delivery targets host:port with all recipients and a
	// multipart/alternative message carrying both bodies.
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	m := NewMailer(MailConfig{
		Host: "smtp.example.com", Port: 587,
		From: "monitor@example.com", To: "a@x.com;b@x.com",
	}, nil)
	m.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	if err := m.Notify(context.Background(), sampleReport()); err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if len(gotTo) != 2 {
		t.Errorf("to = %v", gotTo)
	}
	msg := string(gotMsg)
	for _, want := range []string{
		"Content-Type: multipart/alternative",
		"text/plain; charset=utf-8",
		"text/html; charset=utf-8",
		"Documentation Monitoring Report",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestMailer_NoRecipients(t *testing.T) {
	// WHAT: An empty recipient list is an explicit error, not a silent noop.
	m := NewMailer(MailConfig{Host: "smtp.example.com", To: " ; , "}, nil)
	err := m.Send(context.Background(), "s", "t", "h")
	if err != ErrNoRecipients {
		t.Errorf("err = %v, want ErrNoRecipients", err)
	}
}
