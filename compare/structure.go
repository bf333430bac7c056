package compare

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Structural warning kinds.
const (
	WarnNumberingGap        = "NUMBERING_GAP"
	WarnMissingSection      = "MISSING_SECTION"
	WarnMissingPrerequisite = "MISSING_PREREQUISITE"
)

// StructuralWarning flags a document-structure problem in the new snapshot.
// Newly is false when an equivalent warning (same Kind and Detail) was
// already reported for this page in the previous cycle; such warnings are
// kept for bookkeeping but do not alert again.
type StructuralWarning struct {
	Kind     string
	Detail   string // stable dedup key within the kind
	Message  string
	Severity Severity
	Newly    bool
}

// Key identifies a warning for deduplication across cycles.
func (w StructuralWarning) Key() string {
	return w.Kind + "\x00" + w.Detail
}

// ValidateStructure runs all structural checks against the new text and
// marks each warning as newly introduced unless an equivalent one appears
// in previous. The removed-prerequisite check compares old against new and
// is always newly introduced.
func ValidateStructure(oldText, newText string, previous []StructuralWarning) []StructuralWarning {
	warnings := detectNumberingGaps(newText)
	warnings = append(warnings, detectMissingSections(newText)...)

	seen := make(map[string]bool, len(previous))
	for _, w := range previous {
		seen[w.Key()] = true
	}
	for i := range warnings {
		warnings[i].Newly = !seen[warnings[i].Key()]
	}

	warnings = append(warnings, detectRemovedPrerequisites(oldText, newText)...)

	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].Severity > warnings[j].Severity
	})
	return warnings
}

// detectNumberingGaps reports missing step numbers. The expected counter
// resets whenever numbering restarts at 1 (a new sub-procedure).
func detectNumberingGaps(text string) []StructuralWarning {
	var warnings []StructuralWarning
	prev := -1

	for _, line := range strings.Split(text, "\n") {
		m := stepNumberRE.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if num == 1 {
			prev = 1
			continue
		}
		if prev >= 0 && num > prev+1 {
			for missing := prev + 1; missing < num; missing++ {
				warnings = append(warnings, StructuralWarning{
					Kind:     WarnNumberingGap,
					Detail:   fmt.Sprintf("step-%d", missing),
					Message:  fmt.Sprintf("Step %d is missing (numbering jumps from %d to %d)", missing, prev, num),
					Severity: SeverityHigh,
				})
			}
		}
		prev = num
	}
	return warnings
}

// detectMissingSections warns when a document that looks procedural lacks
// the sections readers expect. Non-procedural pages are left alone.
func detectMissingSections(text string) []StructuralWarning {
	norm := strings.ToLower(text)

	procedural := strings.Contains(norm, "choose ") ||
		strings.Contains(norm, "select ") ||
		strings.Contains(norm, "navigate ")
	if !procedural {
		return nil
	}

	var warnings []StructuralWarning
	expected := []struct{ keyword, label string }{
		{"prerequisites", "Prerequisites section"},
		{"procedure", "Procedure section"},
	}
	for _, e := range expected {
		if !strings.Contains(norm, e.keyword) {
			warnings = append(warnings, StructuralWarning{
				Kind:     WarnMissingSection,
				Detail:   e.keyword,
				Message:  fmt.Sprintf("%s may be missing from the document", e.label),
				Severity: SeverityHigh,
			})
		}
	}
	return warnings
}

// detectRemovedPrerequisites flags prerequisite lines present in the old
// snapshot but absent from the new one.
func detectRemovedPrerequisites(oldText, newText string) []StructuralWarning {
	oldPrereqs := prerequisiteSet(oldText)
	newPrereqs := prerequisiteSet(newText)

	missing := make([]string, 0)
	for p := range oldPrereqs {
		if !newPrereqs[p] {
			missing = append(missing, p)
		}
	}
	sort.Strings(missing)

	warnings := make([]StructuralWarning, 0, len(missing))
	for _, p := range missing {
		warnings = append(warnings, StructuralWarning{
			Kind:     WarnMissingPrerequisite,
			Detail:   p,
			Message:  fmt.Sprintf("Prerequisite removed: %q", p),
			Severity: SeverityHigh,
			Newly:    true,
		})
	}
	return warnings
}

func prerequisiteSet(text string) map[string]bool {
	out := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		if Classify(line) == CategoryPrerequisite {
			out[NormalizeLine(line)] = true
		}
	}
	return out
}
