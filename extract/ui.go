package extract

import (
	"regexp"
	"strings"
)

// uiTextPatterns match text fragments that are portal UI rather than
// documentation: buttons, navigation labels, cookie prompts, icon glyphs.
// Anchored where a plain word could also be real content.
var uiTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(yes|no|ok|cancel|close|back|next|previous|submit|search|filter|sort)$`),
	regexp.MustCompile(`^(save|edit|delete|remove|add|create|update|share|print|download|upload)$`),
	regexp.MustCompile(`^(send feedback|feedback|send|view|show|hide|expand|collapse)$`),
	regexp.MustCompile(`^(home|menu|navigation|breadcrumb|table of contents|contents)$`),
	regexp.MustCompile(`^(page \d+|go to|skip to)`),
	regexp.MustCompile(`cookie|privacy policy|terms of use|legal|copyright|all rights reserved`),
	regexp.MustCompile(`©.*\d{4}`),
	regexp.MustCompile(`^search$|^filter by\b|^sort by\b`),
	regexp.MustCompile(`^search through this document$|^search scope$|^provide feedback$`),
	regexp.MustCompile(`^share on\b|^follow us\b|^social media$`),
	regexp.MustCompile(`^[▼▲►◄★☆♥♡✓✔✗✘←→↑↓⋮⋯]+$`),
	regexp.MustCompile(`^add to favorites$|^bookmark$|^favorite$`),
	regexp.MustCompile(`^pdf$|^share$|^favorites$`),
	regexp.MustCompile(`^export to pdf$|^download pdf$|^print page$`),
	regexp.MustCompile(`^on this page$|^was this page helpful`),
	regexp.MustCompile(`^explore sap$|^what's new$`),
	regexp.MustCompile(`^(products|help portal)$`),
	regexp.MustCompile(`^table of contents$`),
}

var uiSingleWords = map[string]bool{
	"home": true, "menu": true, "help": true, "about": true,
	"contact": true, "login": true, "logout": true, "settings": true,
	"profile": true, "account": true, "dashboard": true, "admin": true,
}

// isUIText reports whether a text fragment is chrome rather than content.
func isUIText(text string) bool {
	if len(text) < 3 {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, re := range uiTextPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	if !strings.ContainsRune(lower, ' ') && len(text) < 15 && uiSingleWords[lower] {
		return true
	}
	return false
}
