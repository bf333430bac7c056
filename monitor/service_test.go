package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/docveille/compare"
	"github.com/hazyhaar/docveille/dbopen"
	"github.com/hazyhaar/docveille/notify"
	"github.com/hazyhaar/docveille/snapshot"
)

// fakeFetcher serves canned HTML per URL, optionally blocking so tests
// can observe an in-flight run.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	block chan struct{}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[pageURL]; ok {
		return "", err
	}
	src, ok := f.pages[pageURL]
	if !ok {
		return "", fmt.Errorf("no fixture for %s", pageURL)
	}
	return src, nil
}

func (f *fakeFetcher) FetchTOC(ctx context.Context, baseURL, docPrefix string, minLinks int) (string, error) {
	return f.FetchPage(ctx, baseURL)
}

type fakeNotifier struct {
	reports []*notify.RunReport
}

func (n *fakeNotifier) Notify(_ context.Context, r *notify.RunReport) error {
	n.reports = append(n.reports, r)
	return nil
}

func docHTML(title string, paragraphs ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + title + "</title></head><body>")
	b.WriteString(`<div id="page"><h1>` + title + `</h1>`)
	for _, p := range paragraphs {
		b.WriteString("<p>" + p + "</p>")
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func testConfig(pages ...ManualPage) *Config {
	cfg := &Config{Pages: pages}
	cfg.defaults()
	// Fixtures are short; do not let the length floor reject them.
	cfg.Compare.MinSnapshotLength = 10
	return cfg
}

func testService(t *testing.T, cfg *Config, f *fakeFetcher) (*Service, *snapshot.Store, *fakeNotifier) {
	t.Helper()
	store := snapshot.NewStore(dbopen.OpenMemory(t, dbopen.WithSchema(snapshot.Schema)))
	notifier := &fakeNotifier{}
	return NewService(cfg, store, f, notifier, nil), store, notifier
}

func TestRunOnce_NewPages(t *testing.T) {
	// WHAT: First contact with a portal stores every page as new and
	// notifies with previews.
	// WHY: The initial run establishes the baseline without raising diffs.
	f := &fakeFetcher{pages: map[string]string{
		"https://x/overview.html": docHTML("Overview", "The platform does things.", "Navigate to the cockpit."),
		"https://x/setup.html":    docHTML("Setup", "Prerequisites", "You need an admin role."),
	}}
	cfg := testConfig(
		ManualPage{Name: "overview", URL: "https://x/overview.html"},
		ManualPage{Name: "setup", URL: "https://x/setup.html"},
	)
	svc, store, notifier := testService(t, cfg, f)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(report.NewPages()); got != 2 {
		t.Fatalf("new pages = %d, want 2", got)
	}
	if report.NewPages()[0].TotalLines == 0 {
		t.Error("new page outcome missing preview totals")
	}

	snap, err := store.Get(context.Background(), "overview")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(snap.Content, "Navigate to the cockpit.") {
		t.Errorf("snapshot content = %q", snap.Content)
	}

	if len(notifier.reports) != 1 {
		t.Fatalf("notifier calls = %d", len(notifier.reports))
	}
	run, err := store.LatestRun(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.PagesNew != 2 || run.Status != "Success" {
		t.Errorf("run = %+v", run)
	}
}

func TestRunOnce_ModifiedAndUnchanged(t *testing.T) {
	// WHAT: A second cycle flags only the edited page; the untouched one
	// stays unchanged.
	f := &fakeFetcher{pages: map[string]string{
		"https://x/a.html": docHTML("Alpha", "Choose Save to persist changes."),
		"https://x/b.html": docHTML("Beta", "Nothing interesting happens here."),
	}}
	cfg := testConfig(
		ManualPage{Name: "alpha", URL: "https://x/a.html"},
		ManualPage{Name: "beta", URL: "https://x/b.html"},
	)
	svc, _, _ := testService(t, cfg, f)

	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	f.pages["https://x/a.html"] = docHTML("Alpha", "Choose Save and Activate to persist changes.")
	f.mu.Unlock()

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(report.ModifiedPages()); got != 1 {
		t.Fatalf("modified = %d, want 1\n%+v", got, report.Outcomes)
	}
	mod := report.ModifiedPages()[0]
	if mod.Name != "alpha" || mod.Report == nil || len(mod.Report.Added) == 0 {
		t.Errorf("outcome = %+v", mod)
	}
	for _, o := range report.Outcomes {
		if o.Name == "beta" && o.Status != compare.StatusUnchanged {
			t.Errorf("beta status = %s", o.Status)
		}
	}
}

func TestRunOnce_RemovedPage(t *testing.T) {
	// WHAT: A page that vanishes from the monitored set is reported removed
	// and its snapshot dropped.
	f := &fakeFetcher{pages: map[string]string{
		"https://x/a.html": docHTML("Alpha", "Choose Save to persist changes."),
		"https://x/b.html": docHTML("Beta", "This page is about to disappear."),
	}}
	both := testConfig(
		ManualPage{Name: "alpha", URL: "https://x/a.html"},
		ManualPage{Name: "beta", URL: "https://x/b.html"},
	)
	svc, store, _ := testService(t, both, f)
	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	only := testConfig(ManualPage{Name: "alpha", URL: "https://x/a.html"})
	only.Compare.MinSnapshotLength = 10
	svc2 := NewService(only, store, f, nil, nil)

	report, err := svc2.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	removed := report.RemovedPages()
	if len(removed) != 1 || removed[0].Name != "beta" {
		t.Fatalf("removed = %+v", removed)
	}
	if removed[0].TotalLines == 0 {
		t.Error("removed outcome missing previous line count")
	}
	if _, err := store.Get(context.Background(), "beta"); !errors.Is(err, snapshot.ErrNotFound) {
		t.Error("snapshot survived removal")
	}
}

func TestRunOnce_FetchErrorKeepsSnapshot(t *testing.T) {
	// WHAT: A failed fetch keeps the stored snapshot and marks the run
	// status, instead of reporting the page as emptied or removed.
	// WHY: Transient portal errors must never destroy the baseline.
	f := &fakeFetcher{pages: map[string]string{
		"https://x/a.html": docHTML("Alpha", "Choose Save to persist changes."),
	}}
	cfg := testConfig(ManualPage{Name: "alpha", URL: "https://x/a.html"})
	svc, store, _ := testService(t, cfg, f)
	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.mu.Lock()
	f.errs = map[string]error{"https://x/a.html": errors.New("portal down")}
	f.mu.Unlock()

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != "Completed with 1 fetch errors" {
		t.Errorf("status = %q", report.Status)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Status != compare.StatusUnchanged {
		t.Errorf("outcomes = %+v", report.Outcomes)
	}
	if _, err := store.Get(context.Background(), "alpha"); err != nil {
		t.Error("baseline snapshot lost after fetch error")
	}
}

func TestRunOnce_IntegrityGuard(t *testing.T) {
	// WHAT: A collapsed render is reported untrusted and does not overwrite
	// the stored snapshot.
	long := make([]string, 20)
	for i := range long {
		long[i] = fmt.Sprintf("Step content number %d with enough words to matter.", i)
	}
	f := &fakeFetcher{pages: map[string]string{
		"https://x/a.html": docHTML("Alpha", long...),
	}}
	cfg := testConfig(ManualPage{Name: "alpha", URL: "https://x/a.html"})
	svc, store, _ := testService(t, cfg, f)
	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, err := store.Get(context.Background(), "alpha")
	if err != nil {
		t.Fatal(err)
	}

	f.mu.Lock()
	f.pages["https://x/a.html"] = docHTML("Alpha", long[0])
	f.mu.Unlock()

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	mod := report.ModifiedPages()
	if len(mod) != 1 || mod[0].Report == nil || mod[0].Report.Trusted {
		t.Fatalf("expected untrusted modified outcome, got %+v", mod)
	}

	after, err := store.Get(context.Background(), "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if after.Content != before.Content {
		t.Error("untrusted snapshot overwrote the baseline")
	}
}

func TestRunOnce_Concurrent(t *testing.T) {
	// WHAT: A second RunOnce while one is in flight fails fast.
	// WHY: Overlapping cycles would race on the snapshot store.
	f := &fakeFetcher{
		pages: map[string]string{"https://x/a.html": docHTML("Alpha", "Some content here.")},
		block: make(chan struct{}),
	}
	cfg := testConfig(ManualPage{Name: "alpha", URL: "https://x/a.html"})
	svc, _, _ := testService(t, cfg, f)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunOnce(context.Background())
		done <- err
	}()

	for !svc.Running() {
		time.Sleep(time.Millisecond)
	}
	if _, err := svc.RunOnce(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("err = %v, want ErrRunInProgress", err)
	}

	close(f.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestPageList_ManualFallbackNames(t *testing.T) {
	// WHAT: Manual pages get sequential numbers and normalized names.
	cfg := testConfig(
		ManualPage{Name: "Role-Collections", Title: "Role Collections", URL: "https://x/r.html"},
		ManualPage{Name: "overview", URL: "https://x/o.html"},
	)
	svc := NewService(cfg, nil, &fakeFetcher{}, nil, nil)

	pages, err := svc.pageList(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pages[0].Name != "role collections" || pages[0].Number != "1" {
		t.Errorf("pages[0] = %+v", pages[0])
	}
	if pages[1].Title != "overview" || pages[1].Number != "2" {
		t.Errorf("pages[1] = %+v", pages[1])
	}
}
