package compare

import (
	"sort"
	"strings"
)

// LineDelta is one net addition or removal found by the multiset diff.
type LineDelta struct {
	Text       string   // representative raw line, first occurrence on the winning side
	Normalized string   // canonical form the diff matched on
	Count      int      // net occurrences (always >= 1)
	Category   Category
	Severity   Severity
}

// lineBag is a frequency map over normalized lines, remembering the first
// raw spelling of each.
type lineBag struct {
	counts   map[string]int
	firstRaw map[string]string
}

func bagLines(text string) lineBag {
	b := lineBag{
		counts:   make(map[string]int),
		firstRaw: make(map[string]string),
	}
	for _, line := range strings.Split(text, "\n") {
		if IsNoise(line) {
			continue
		}
		n := NormalizeLine(line)
		if n == "" {
			continue
		}
		if _, ok := b.firstRaw[n]; !ok {
			b.firstRaw[n] = strings.TrimSpace(line)
		}
		b.counts[n]++
	}
	return b
}

// diffLines performs the count-aware comparison. A line occurring three
// times in the old text and once in the new yields a single removal delta
// with Count 2. Reordered duplicates cancel out entirely.
func diffLines(oldText, newText string) (added, removed []LineDelta) {
	oldBag := bagLines(oldText)
	newBag := bagLines(newText)

	norms := make([]string, 0, len(oldBag.counts)+len(newBag.counts))
	for n := range oldBag.counts {
		norms = append(norms, n)
	}
	for n := range newBag.counts {
		if _, ok := oldBag.counts[n]; !ok {
			norms = append(norms, n)
		}
	}
	sort.Strings(norms)

	for _, n := range norms {
		oldC := oldBag.counts[n]
		newC := newBag.counts[n]
		switch {
		case oldC > newC:
			raw := oldBag.firstRaw[n]
			cat := Classify(raw)
			if cat == CategoryNoise {
				continue
			}
			removed = append(removed, LineDelta{
				Text:       raw,
				Normalized: n,
				Count:      oldC - newC,
				Category:   cat,
				Severity:   severityFor(cat),
			})
		case newC > oldC:
			raw := newBag.firstRaw[n]
			cat := Classify(raw)
			if cat == CategoryNoise {
				continue
			}
			added = append(added, LineDelta{
				Text:       raw,
				Normalized: n,
				Count:      newC - oldC,
				Category:   cat,
				Severity:   severityFor(cat),
			})
		}
	}

	sortDeltas(added)
	sortDeltas(removed)
	return added, removed
}

// sortDeltas orders severity-descending; the alphabetical pass above keeps
// ties deterministic.
func sortDeltas(ds []LineDelta) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Severity > ds[j].Severity
	})
}
