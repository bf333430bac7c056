// Package compare implements the change detection engine for documentation
// pages: deep line normalization, a count-aware semantic diff, change
// classification with severity levels, structural validation and an
// integrity guard against corrupted fetches.
//
// The package is pure: no I/O, no globals, deterministic output for a given
// input.
package compare

import (
	"regexp"
	"strings"
)

var (
	bulletRE     = regexp.MustCompile(`^\s*[•·\-*‣◦⁃∙]+\s*`)
	stepNumberRE = regexp.MustCompile(`^\s*(\d+)[.)]\s*`)
	romanRE      = regexp.MustCompile(`^[IVXLCDM]+[.)]\s+`)
	separatorRE  = regexp.MustCompile(`^\s*[-=*_─]{3,}\s*$`)
	arrowRE      = regexp.MustCompile(`\s*[→►▶➜➤»]\s*`)
	tableSepRE   = regexp.MustCompile(`^\s*[-─]+(\s{2,}[-─]+)+\s*$`)
	spaceRE      = regexp.MustCompile(`\s+`)
)

// NormalizeLine reduces a line to its canonical comparison form: leading
// bullets, step numbers and roman enumerations are stripped, arrow glyph
// variants become " > ", whitespace runs collapse to single spaces and the
// result is lowercased. Normalizing an already normalized line is a no-op.
func NormalizeLine(line string) string {
	s := strings.TrimSpace(line)
	if s == "" {
		return ""
	}

	// "3. Choose ..." → "Choose ...", "IV. Results" → "Results".
	// Prefixes strip to a fixpoint: a stacked "1. 2. x" must not shed one
	// prefix per pass, or normalization stops being idempotent.
	for {
		prev := s
		s = bulletRE.ReplaceAllString(s, "")
		s = stepNumberRE.ReplaceAllString(s, "")
		s = romanRE.ReplaceAllString(s, "")
		if s == prev {
			break
		}
	}

	s = arrowRE.ReplaceAllString(s, " > ")

	s = spaceRE.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// IsNoise reports whether a raw line carries no semantic content: blank
// lines, horizontal separator runs and table separator rows.
func IsNoise(line string) bool {
	stripped := strings.TrimSpace(line)
	if stripped == "" {
		return true
	}
	if separatorRE.MatchString(stripped) {
		return true
	}
	return tableSepRE.MatchString(stripped)
}
