package snapshot

// Schema creates the monitor's tables. Snapshots are keyed by the
// normalized page name so renamed files and re-discovered TOC entries for
// the same page converge on one row.
const Schema = `
CREATE TABLE IF NOT EXISTS pages (
	name        TEXT PRIMARY KEY,
	number      TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL,
	markdown    TEXT NOT NULL DEFAULT '',
	content_len INTEGER NOT NULL DEFAULT 0,
	fetched_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS warnings (
	page_name     TEXT NOT NULL,
	kind          TEXT NOT NULL,
	detail        TEXT NOT NULL,
	message       TEXT NOT NULL,
	severity      TEXT NOT NULL,
	first_seen_at INTEGER NOT NULL,
	PRIMARY KEY (page_name, kind, detail)
);

CREATE TABLE IF NOT EXISTS runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at     INTEGER NOT NULL,
	finished_at    INTEGER NOT NULL,
	status         TEXT NOT NULL,
	pages_checked  INTEGER NOT NULL DEFAULT 0,
	pages_new      INTEGER NOT NULL DEFAULT 0,
	pages_modified INTEGER NOT NULL DEFAULT 0,
	pages_removed  INTEGER NOT NULL DEFAULT 0,
	max_severity   TEXT NOT NULL DEFAULT 'NONE'
);
`
