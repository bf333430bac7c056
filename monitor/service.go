package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/docveille/compare"
	"github.com/hazyhaar/docveille/discover"
	"github.com/hazyhaar/docveille/extract"
	"github.com/hazyhaar/docveille/notify"
	"github.com/hazyhaar/docveille/snapshot"
)

// ErrRunInProgress is returned when a cycle is already executing.
var ErrRunInProgress = errors.New("monitor: run already in progress")

// PageFetcher is the slice of the fetcher the service needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (string, error)
	FetchTOC(ctx context.Context, baseURL, docPrefix string, minLinks int) (string, error)
}

// Notifier delivers a finished run report.
type Notifier interface {
	Notify(ctx context.Context, r *notify.RunReport) error
}

// Service runs monitoring cycles: discover, fetch, extract, compare,
// persist, notify.
type Service struct {
	cfg       *Config
	store     *snapshot.Store
	fetcher   PageFetcher
	extractor *extract.Extractor
	notifier  Notifier
	logger    *slog.Logger

	running atomic.Bool
}

// NewService wires a Service. notifier may be nil to disable delivery.
func NewService(cfg *Config, store *snapshot.Store, f PageFetcher, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		store:     store,
		fetcher:   f,
		extractor: extract.New(),
		notifier:  notifier,
		logger:    logger,
	}
}

// Running reports whether a cycle is currently executing.
func (s *Service) Running() bool {
	return s.running.Load()
}

type fetchResult struct {
	page discover.Page
	res  *extract.Result
	err  error
}

// RunOnce executes one full monitoring cycle and returns its report.
// Only one cycle runs at a time; concurrent calls get ErrRunInProgress.
func (s *Service) RunOnce(ctx context.Context) (*notify.RunReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	started := time.Now()
	s.logger.Info("monitor: run started")

	pages, err := s.pageList(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	results := s.fetchAll(ctx, pages)

	report := &notify.RunReport{Timestamp: started, Status: "Success"}
	ccfg := s.cfg.CompareConfig()
	fetchErrors := 0
	current := make(map[string]bool, len(pages))

	for _, fr := range results {
		current[fr.page.Name] = true
		prev := stored[fr.page.Name]

		if fr.err != nil {
			fetchErrors++
			s.logger.Error("monitor: page failed, keeping stored snapshot",
				"page", fr.page.Name, "error", fr.err)
			if prev != nil {
				report.Outcomes = append(report.Outcomes, outcomeBase(fr.page, compare.StatusUnchanged))
			}
			continue
		}

		outcome, err := s.reconcile(ctx, fr, prev, ccfg)
		if err != nil {
			return nil, err
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	removed, err := s.reconcileRemoved(ctx, stored, current)
	if err != nil {
		return nil, err
	}
	report.Outcomes = append(report.Outcomes, removed...)

	if fetchErrors > 0 {
		report.Status = fmt.Sprintf("Completed with %d fetch errors", fetchErrors)
	}

	summary := &snapshot.RunSummary{
		StartedAt:     started,
		FinishedAt:    time.Now(),
		Status:        report.Status,
		PagesChecked:  len(report.Outcomes),
		PagesNew:      len(report.NewPages()),
		PagesModified: len(report.ModifiedPages()),
		PagesRemoved:  len(report.RemovedPages()),
		MaxSeverity:   report.OverallSeverity(),
	}
	if _, err := s.store.RecordRun(ctx, summary); err != nil {
		return nil, err
	}

	s.logger.Info("monitor: run finished",
		"pages", summary.PagesChecked,
		"new", summary.PagesNew,
		"modified", summary.PagesModified,
		"removed", summary.PagesRemoved,
		"severity", summary.MaxSeverity.String(),
		"duration", time.Since(started).Round(time.Millisecond))

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, report); err != nil {
			return report, fmt.Errorf("monitor: notify: %w", err)
		}
	}
	return report, nil
}

// DiscoverPages returns the current monitored page list without running a
// full cycle.
func (s *Service) DiscoverPages(ctx context.Context) ([]discover.Page, error) {
	return s.pageList(ctx)
}

// pageList discovers the TOC, falling back to manually configured pages.
func (s *Service) pageList(ctx context.Context) ([]discover.Page, error) {
	if s.cfg.BaseURL != "" {
		var opts []discover.Option
		if s.cfg.Discovery.MinLinks > 0 {
			opts = append(opts, discover.WithMinLinks(s.cfg.Discovery.MinLinks))
		}
		if s.cfg.Discovery.Retries > 0 {
			opts = append(opts, discover.WithRetries(s.cfg.Discovery.Retries))
		}
		d := discover.New(s.fetchTOC, s.logger, opts...)
		pages, err := d.Discover(ctx, s.cfg.BaseURL)
		if err == nil {
			return pages, nil
		}
		if len(s.cfg.Pages) == 0 {
			return nil, err
		}
		s.logger.Error("monitor: discovery failed, using configured pages", "error", err)
	}

	pages := make([]discover.Page, 0, len(s.cfg.Pages))
	for i, p := range s.cfg.Pages {
		title := p.Title
		if title == "" {
			title = p.Name
		}
		pages = append(pages, discover.Page{
			Number: fmt.Sprint(i + 1),
			Title:  title,
			URL:    p.URL,
			Name:   discover.NormalizeName(p.Name),
		})
	}
	return pages, nil
}

func (s *Service) fetchTOC(ctx context.Context, baseURL string) (string, error) {
	minLinks := s.cfg.Discovery.MinLinks
	if minLinks <= 0 {
		minLinks = 10
	}
	return s.fetcher.FetchTOC(ctx, baseURL, discover.DocPrefix(baseURL), minLinks)
}

// fetchAll loads and extracts every page with bounded parallelism,
// preserving TOC order.
func (s *Service) fetchAll(ctx context.Context, pages []discover.Page) []fetchResult {
	results := make([]fetchResult, len(pages))

	limit := s.cfg.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, page := range pages {
		g.Go(func() error {
			results[i] = s.fetchOne(gctx, page)
			return nil
		})
	}
	g.Wait()
	return results
}

func (s *Service) fetchOne(ctx context.Context, page discover.Page) fetchResult {
	src, err := s.fetcher.FetchPage(ctx, page.URL)
	if err != nil {
		return fetchResult{page: page, err: err}
	}
	res, err := s.extractor.Extract(src, page.URL)
	if err != nil {
		return fetchResult{page: page, err: fmt.Errorf("extract %s: %w", page.Name, err)}
	}
	return fetchResult{page: page, res: res}
}

func outcomeBase(page discover.Page, status compare.Status) compare.PageOutcome {
	return compare.PageOutcome{
		Name:   page.Name,
		Number: page.Number,
		Title:  page.Title,
		URL:    page.URL,
		Status: status,
	}
}

// reconcile compares one fetched page against its stored snapshot and
// persists the result when the new snapshot is trustworthy.
func (s *Service) reconcile(ctx context.Context, fr fetchResult, prev *snapshot.Snapshot, ccfg compare.Config) (compare.PageOutcome, error) {
	text := fr.res.Text

	if prev == nil {
		outcome := outcomeBase(fr.page, compare.StatusNew)
		outcome.Preview, outcome.TotalLines = compare.Preview(text, ccfg.PreviewLines)
		warnings := compare.ValidateStructure("", text, nil)
		if err := s.persist(ctx, fr, warnings, ccfg); err != nil {
			return outcome, err
		}
		return outcome, nil
	}

	previous, err := s.store.Warnings(ctx, fr.page.Name)
	if err != nil {
		return compare.PageOutcome{}, err
	}
	rep := compare.Compare(prev.Content, text, previous, ccfg)

	status := compare.StatusUnchanged
	if rep.HasChanges {
		status = compare.StatusModified
	}
	outcome := outcomeBase(fr.page, status)
	if rep.HasChanges {
		outcome.Report = &rep
	}

	if !rep.Trusted {
		s.logger.Warn("monitor: snapshot rejected by integrity guard",
			"page", fr.page.Name, "old_len", rep.OldLength, "new_len", rep.NewLength)
		return outcome, nil
	}
	if err := s.persist(ctx, fr, rep.Warnings, ccfg); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// persist stores the snapshot and its full warning baseline. Snapshots
// below the minimum length are kept out of the store so a blank render
// cannot become the comparison baseline.
func (s *Service) persist(ctx context.Context, fr fetchResult, warnings []compare.StructuralWarning, ccfg compare.Config) error {
	if utf8.RuneCountInString(fr.res.Text) < ccfg.MinSnapshotLength {
		s.logger.Warn("monitor: snapshot too short, not persisting",
			"page", fr.page.Name, "length", utf8.RuneCountInString(fr.res.Text))
		return nil
	}
	snap := &snapshot.Snapshot{
		Name:      fr.page.Name,
		Number:    fr.page.Number,
		Title:     fr.page.Title,
		URL:       fr.page.URL,
		Content:   fr.res.Text,
		Markdown:  fr.res.Markdown,
		FetchedAt: time.Now(),
	}
	if err := s.store.Upsert(ctx, snap); err != nil {
		return err
	}
	return s.store.ReplaceWarnings(ctx, fr.page.Name, warnings)
}

// reconcileRemoved reports stored pages that vanished from the TOC and
// drops their snapshots.
func (s *Service) reconcileRemoved(ctx context.Context, stored map[string]*snapshot.Snapshot, current map[string]bool) ([]compare.PageOutcome, error) {
	var names []string
	for name := range stored {
		if !current[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []compare.PageOutcome
	for _, name := range names {
		prev := stored[name]
		outcome := compare.PageOutcome{
			Name:   name,
			Number: prev.Number,
			Title:  prev.Title,
			URL:    prev.URL,
			Status: compare.StatusRemoved,
		}
		_, outcome.TotalLines = compare.Preview(prev.Content, 0)
		out = append(out, outcome)

		if err := s.store.Delete(ctx, name); err != nil {
			return nil, err
		}
		s.logger.Info("monitor: page removed from TOC", "page", name)
	}
	return out, nil
}
