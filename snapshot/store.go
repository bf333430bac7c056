// Package snapshot persists page snapshots, structural warning baselines
// and run history in SQLite.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/docveille/compare"
	"github.com/hazyhaar/docveille/dbopen"
)

// ErrNotFound is returned when a page has no stored snapshot.
var ErrNotFound = errors.New("snapshot: not found")

// Snapshot is the stored state of one documentation page.
type Snapshot struct {
	Name      string // normalized page name, primary key
	Number    string
	Title     string
	URL       string
	Content   string // extracted plain text
	Markdown  string // archival rendition
	Length    int
	FetchedAt time.Time
	UpdatedAt time.Time
}

// RunSummary records one monitoring cycle.
type RunSummary struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        string
	PagesChecked  int
	PagesNew      int
	PagesModified int
	PagesRemoved  int
	MaxSeverity   compare.Severity
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle; the schema must already be applied.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the snapshot for a page name.
func (s *Store) Get(ctx context.Context, name string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, number, title, url, content, markdown, content_len, fetched_at, updated_at
		FROM pages WHERE name = ?`, name)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return snap, err
}

// LoadAll returns every stored snapshot keyed by page name.
func (s *Store) LoadAll(ctx context.Context) (map[string]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, number, title, url, content, markdown, content_len, fetched_at, updated_at
		FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load all: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*Snapshot)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out[snap.Name] = snap
	}
	return out, rows.Err()
}

// Upsert stores or replaces a page snapshot.
func (s *Store) Upsert(ctx context.Context, snap *Snapshot) error {
	now := time.Now().Unix()
	fetched := snap.FetchedAt.Unix()
	if snap.FetchedAt.IsZero() {
		fetched = now
	}
	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO pages (name, number, title, url, content, markdown, content_len, fetched_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			number = excluded.number,
			title = excluded.title,
			url = excluded.url,
			content = excluded.content,
			markdown = excluded.markdown,
			content_len = excluded.content_len,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at`,
		snap.Name, snap.Number, snap.Title, snap.URL, snap.Content, snap.Markdown,
		len(snap.Content), fetched, now)
	if err != nil {
		return fmt.Errorf("snapshot: upsert %s: %w", snap.Name, err)
	}
	return nil
}

// Delete removes a page snapshot and its warning baseline.
func (s *Store) Delete(ctx context.Context, name string) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE name = ?`, name); err != nil {
			return fmt.Errorf("snapshot: delete %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM warnings WHERE page_name = ?`, name); err != nil {
			return fmt.Errorf("snapshot: delete warnings %s: %w", name, err)
		}
		return nil
	})
}

// Warnings returns the structural warning baseline for a page, used to
// suppress re-alerting on pre-existing problems.
func (s *Store) Warnings(ctx context.Context, name string) ([]compare.StructuralWarning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, detail, message, severity FROM warnings WHERE page_name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("snapshot: warnings %s: %w", name, err)
	}
	defer rows.Close()

	var out []compare.StructuralWarning
	for rows.Next() {
		var w compare.StructuralWarning
		var sev string
		if err := rows.Scan(&w.Kind, &w.Detail, &w.Message, &sev); err != nil {
			return nil, err
		}
		w.Severity = compare.ParseSeverity(sev)
		out = append(out, w)
	}
	return out, rows.Err()
}

// ReplaceWarnings swaps the page's warning baseline for the current set.
// First-seen timestamps survive for warnings that persist across cycles.
func (s *Store) ReplaceWarnings(ctx context.Context, name string, warnings []compare.StructuralWarning) error {
	now := time.Now().Unix()
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		existing := make(map[string]int64)
		rows, err := tx.QueryContext(ctx, `
			SELECT kind, detail, first_seen_at FROM warnings WHERE page_name = ?`, name)
		if err != nil {
			return err
		}
		for rows.Next() {
			var kind, detail string
			var seen int64
			if err := rows.Scan(&kind, &detail, &seen); err != nil {
				rows.Close()
				return err
			}
			existing[kind+"\x00"+detail] = seen
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM warnings WHERE page_name = ?`, name); err != nil {
			return err
		}
		for _, w := range warnings {
			firstSeen := now
			if ts, ok := existing[w.Key()]; ok {
				firstSeen = ts
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO warnings (page_name, kind, detail, message, severity, first_seen_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(page_name, kind, detail) DO UPDATE SET
					message = excluded.message,
					severity = excluded.severity`,
				name, w.Kind, w.Detail, w.Message, w.Severity.String(), firstSeen); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordRun appends a run to the history and returns its id.
func (s *Store) RecordRun(ctx context.Context, run *RunSummary) (int64, error) {
	res, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO runs (started_at, finished_at, status, pages_checked, pages_new, pages_modified, pages_removed, max_severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Status,
		run.PagesChecked, run.PagesNew, run.PagesModified, run.PagesRemoved,
		run.MaxSeverity.String())
	if err != nil {
		return 0, fmt.Errorf("snapshot: record run: %w", err)
	}
	return res.LastInsertId()
}

// LatestRun returns the most recent run, or ErrNotFound when none exist.
func (s *Store) LatestRun(ctx context.Context) (*RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, pages_checked, pages_new, pages_modified, pages_removed, max_severity
		FROM runs ORDER BY id DESC LIMIT 1`)

	var run RunSummary
	var started, finished int64
	var sev string
	err := row.Scan(&run.ID, &started, &finished, &run.Status,
		&run.PagesChecked, &run.PagesNew, &run.PagesModified, &run.PagesRemoved, &sev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: latest run: %w", err)
	}
	run.StartedAt = time.Unix(started, 0)
	run.FinishedAt = time.Unix(finished, 0)
	run.MaxSeverity = compare.ParseSeverity(sev)
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var snap Snapshot
	var fetched, updated int64
	err := row.Scan(&snap.Name, &snap.Number, &snap.Title, &snap.URL,
		&snap.Content, &snap.Markdown, &snap.Length, &fetched, &updated)
	if err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Unix(fetched, 0)
	snap.UpdatedAt = time.Unix(updated, 0)
	return &snap, nil
}
