package compare

import "strings"

// Severity ranks how much a change matters to a reader of the page.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "HIGH"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityLow:
		return "LOW"
	default:
		return "NONE"
	}
}

// ParseSeverity is the inverse of String. Unknown values map to SeverityNone.
func ParseSeverity(s string) Severity {
	switch s {
	case "HIGH":
		return SeverityHigh
	case "MEDIUM":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Category is the semantic role of a documentation line.
type Category string

const (
	CategorySectionHeader Category = "section_header"
	CategoryPrerequisite  Category = "prerequisite"
	CategoryInstruction   Category = "instruction"
	CategoryNote          Category = "note"
	CategoryContent       Category = "content"
	CategoryNoise         Category = "noise"
)

var actionVerbs = map[string]bool{
	"choose": true, "select": true, "click": true, "enter": true,
	"navigate": true, "open": true, "upload": true, "download": true,
	"save": true, "add": true, "remove": true, "delete": true,
	"create": true, "configure": true, "check": true, "verify": true,
	"confirm": true, "submit": true, "type": true, "drag": true,
	"drop": true, "browse": true, "expand": true, "collapse": true,
	"go": true, "log": true, "sign": true, "press": true,
	"enable": true, "disable": true, "set": true, "change": true,
	"update": true, "assign": true, "map": true, "register": true,
	"subscribe": true, "search": true, "copy": true, "paste": true,
	"refresh": true,
}

var sectionKeywords = map[string]bool{
	"prerequisites": true, "prerequisite": true, "procedure": true,
	"results": true, "result": true, "context": true, "steps": true,
	"next steps": true, "related information": true,
}

var prerequisitePrefixes = []string{
	"you've", "you're", "you need", "you must",
	"you have", "you should", "before you begin",
}

// Classify assigns a semantic category to a raw line. The first matching
// rule wins: section header, then prerequisite, then instruction, then
// note. Everything else is content; lines the noise filter drops are noise.
func Classify(line string) Category {
	stripped := strings.TrimSpace(line)
	if stripped == "" || IsNoise(stripped) {
		return CategoryNoise
	}
	norm := NormalizeLine(stripped)
	if norm == "" {
		return CategoryNoise
	}

	clean := strings.TrimSpace(strings.TrimRight(norm, ":"))
	if sectionKeywords[clean] {
		return CategorySectionHeader
	}
	// Step-group sub-headers ("Steps in the SAP BTP cockpit:").
	if strings.HasPrefix(norm, "steps in") || strings.HasPrefix(norm, "steps for") {
		return CategorySectionHeader
	}

	for _, p := range prerequisitePrefixes {
		if strings.HasPrefix(norm, p) {
			return CategoryPrerequisite
		}
	}

	first, _, _ := strings.Cut(norm, " ")
	if actionVerbs[first] {
		return CategoryInstruction
	}

	if strings.HasPrefix(norm, "note:") || strings.HasPrefix(norm, "note ") || norm == "note" {
		return CategoryNote
	}

	return CategoryContent
}

// severityFor maps a line category to the severity of a change touching it.
func severityFor(cat Category) Severity {
	switch cat {
	case CategorySectionHeader, CategoryPrerequisite, CategoryInstruction:
		return SeverityHigh
	case CategoryNoise:
		return SeverityLow
	default:
		return SeverityMedium
	}
}
