package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/docveille/compare"
	"github.com/hazyhaar/docveille/dbopen"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(dbopen.OpenMemory(t, dbopen.WithSchema(Schema)))
}

func TestUpsertAndGet(t *testing.T) {
	// WHAT: A stored snapshot round-trips with its metadata and content
	// length computed on write.
	// WHY: The comparison cycle reads back exactly what the last trusted
	// fetch wrote.
	s := testStore(t)
	ctx := context.Background()

	snap := &Snapshot{
		Name:     "standard role collections",
		Number:   "9.1",
		Title:    "Standard Role Collections",
		URL:      "https://help.example.com/docs/x/roles.html",
		Content:  "Prerequisites\nYou need the admin role.",
		Markdown: "# Standard Role Collections",
	}
	if err := s.Upsert(ctx, snap); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "standard role collections")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != snap.Content || got.Number != "9.1" || got.Title != snap.Title {
		t.Errorf("got %+v", got)
	}
	if got.Length != len(snap.Content) {
		t.Errorf("Length = %d, want %d", got.Length, len(snap.Content))
	}
}

func TestUpsert_ReplacesExisting(t *testing.T) {
	// WHAT: Upserting the same name overwrites content and timestamps.
	// WHY: One row per page, always the latest trusted snapshot.
	s := testStore(t)
	ctx := context.Background()

	for _, content := range []string{"first version", "second version"} {
		if err := s.Upsert(ctx, &Snapshot{Name: "overview", Content: content}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Get(ctx, "overview")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "second version" {
		t.Errorf("Content = %q", got.Content)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("LoadAll returned %d rows, want 1", len(all))
	}
}

func TestGet_NotFound(t *testing.T) {
	// WHAT: Missing pages return ErrNotFound.
	// WHY: "No snapshot yet" drives the new-page outcome; it must be
	// distinguishable from real errors.
	s := testStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete_RemovesPageAndWarnings(t *testing.T) {
	// WHAT: Deleting a page drops its snapshot and its warning baseline.
	// WHY: A removed page must not leave stale warnings that would suppress
	// alerts if the page comes back.
	s := testStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, &Snapshot{Name: "gone", Content: "text"}); err != nil {
		t.Fatal(err)
	}
	warn := []compare.StructuralWarning{{
		Kind: compare.WarnNumberingGap, Detail: "step-2",
		Message: "Step 2 is missing", Severity: compare.SeverityHigh,
	}}
	if err := s.ReplaceWarnings(ctx, "gone", warn); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatal("page still present after delete")
	}
	ws, err := s.Warnings(ctx, "gone")
	if err != nil {
		t.Fatal(err)
	}
	if len(ws) != 0 {
		t.Errorf("warnings survived delete: %v", ws)
	}
}

func TestReplaceWarnings_RoundTrip(t *testing.T) {
	// WHAT: The warning baseline round-trips with parsed severities.
	// WHY: The next cycle's dedup input comes from this table.
	s := testStore(t)
	ctx := context.Background()

	in := []compare.StructuralWarning{
		{Kind: compare.WarnNumberingGap, Detail: "step-12", Message: "Step 12 is missing", Severity: compare.SeverityHigh},
		{Kind: compare.WarnMissingSection, Detail: "procedure", Message: "Procedure section may be missing", Severity: compare.SeverityHigh},
	}
	if err := s.ReplaceWarnings(ctx, "page", in); err != nil {
		t.Fatal(err)
	}

	got, err := s.Warnings(ctx, "page")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d warnings, want 2", len(got))
	}
	for _, w := range got {
		if w.Severity != compare.SeverityHigh {
			t.Errorf("severity lost in round trip: %+v", w)
		}
	}
}

func TestReplaceWarnings_DropsResolved(t *testing.T) {
	// WHAT: Replacing with a smaller set removes resolved warnings.
	// WHY: A fixed numbering gap must re-alert if it regresses later.
	s := testStore(t)
	ctx := context.Background()

	full := []compare.StructuralWarning{
		{Kind: compare.WarnNumberingGap, Detail: "step-3", Message: "m1", Severity: compare.SeverityHigh},
		{Kind: compare.WarnMissingSection, Detail: "prerequisites", Message: "m2", Severity: compare.SeverityHigh},
	}
	if err := s.ReplaceWarnings(ctx, "page", full); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceWarnings(ctx, "page", full[:1]); err != nil {
		t.Fatal(err)
	}

	got, err := s.Warnings(ctx, "page")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Kind != compare.WarnNumberingGap {
		t.Errorf("got %+v, want only the numbering gap", got)
	}
}

func TestRecordRunAndLatest(t *testing.T) {
	// WHAT: Runs append to history; LatestRun returns the newest.
	// WHY: The serve endpoint reports the last cycle's outcome.
	s := testStore(t)
	ctx := context.Background()

	now := time.Now()
	first := &RunSummary{StartedAt: now.Add(-time.Hour), FinishedAt: now.Add(-time.Hour), Status: "ok"}
	if _, err := s.RecordRun(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &RunSummary{
		StartedAt: now, FinishedAt: now, Status: "ok",
		PagesChecked: 25, PagesModified: 2, MaxSeverity: compare.SeverityHigh,
	}
	id, err := s.RecordRun(ctx, second)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id || got.PagesChecked != 25 || got.MaxSeverity != compare.SeverityHigh {
		t.Errorf("LatestRun = %+v", got)
	}
}

func TestLatestRun_Empty(t *testing.T) {
	// WHAT: An empty history returns ErrNotFound.
	// WHY: The serve endpoint answers 404 before the first run.
	s := testStore(t)
	if _, err := s.LatestRun(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
