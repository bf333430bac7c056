package compare

import "unicode/utf8"

// Config tunes the engine thresholds.
type Config struct {
	// ShrinkThreshold is the fraction of content that may disappear before
	// a snapshot with no additions is considered a corrupted fetch.
	ShrinkThreshold float64

	// MinSnapshotLength is the minimum character count for a snapshot to be
	// worth persisting.
	MinSnapshotLength int

	// PreviewLines is how many leading lines a new-page outcome carries.
	PreviewLines int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	c := Config{}
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.ShrinkThreshold <= 0 {
		c.ShrinkThreshold = 0.7
	}
	if c.MinSnapshotLength <= 0 {
		c.MinSnapshotLength = 100
	}
	if c.PreviewLines <= 0 {
		c.PreviewLines = 15
	}
}

// Report is the result of comparing two snapshots of one page.
type Report struct {
	Added    []LineDelta
	Removed  []LineDelta
	Warnings []StructuralWarning

	HasChanges bool
	// MaxSeverity covers deltas and newly introduced warnings only;
	// SeverityNone when nothing changed.
	MaxSeverity Severity

	// Trusted is false when the integrity guard rejected the new snapshot
	// as a likely corrupted fetch. Untrusted reports carry no deltas and
	// must not overwrite the stored snapshot.
	Trusted bool

	OldLength int // old text length in characters
	NewLength int
}

// Compare runs the full engine: normalization, count-aware diff,
// classification, structural validation against previous warnings, and the
// integrity guard.
func Compare(oldText, newText string, previous []StructuralWarning, cfg Config) Report {
	cfg.defaults()

	oldLen := utf8.RuneCountInString(oldText)
	newLen := utf8.RuneCountInString(newText)

	added, removed := diffLines(oldText, newText)

	// Integrity guard: a page that lost most of its content without
	// gaining a single line is a failed render, not an edit.
	if oldLen > 0 && len(added) == 0 {
		shrinkage := 1 - float64(newLen)/float64(oldLen)
		if shrinkage > cfg.ShrinkThreshold {
			return Report{
				HasChanges:  true,
				MaxSeverity: SeverityHigh,
				Trusted:     false,
				OldLength:   oldLen,
				NewLength:   newLen,
			}
		}
	}

	warnings := ValidateStructure(oldText, newText, previous)

	r := Report{
		Added:     added,
		Removed:   removed,
		Warnings:  warnings,
		Trusted:   true,
		OldLength: oldLen,
		NewLength: newLen,
	}

	for _, d := range added {
		if d.Severity > r.MaxSeverity {
			r.MaxSeverity = d.Severity
		}
	}
	for _, d := range removed {
		if d.Severity > r.MaxSeverity {
			r.MaxSeverity = d.Severity
		}
	}
	for _, w := range warnings {
		if w.Newly && w.Severity > r.MaxSeverity {
			r.MaxSeverity = w.Severity
		}
	}

	r.HasChanges = len(added) > 0 || len(removed) > 0 || r.anyNewWarning()
	return r
}

func (r *Report) anyNewWarning() bool {
	for _, w := range r.Warnings {
		if w.Newly {
			return true
		}
	}
	return false
}

// NewWarnings returns only the warnings introduced this cycle.
func (r *Report) NewWarnings() []StructuralWarning {
	var out []StructuralWarning
	for _, w := range r.Warnings {
		if w.Newly {
			out = append(out, w)
		}
	}
	return out
}
