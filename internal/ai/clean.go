package ai

import (
	"regexp"
	"strings"
)

var (
	headingLine  = regexp.MustCompile(`(?m)^#+\s?.*$`)
	horizontal   = regexp.MustCompile(`---+`)
	orderedItem  = regexp.MustCompile(`(?m)^\s*\d+\.\s*`)
	bulletItem   = regexp.MustCompile(`(?m)^\s*-\s*`)
	emphasis     = regexp.MustCompile(`\*`)
	newlines     = regexp.MustCompile(`\r?\n+`)
	spaceRuns    = regexp.MustCompile(`\s{2,}`)
	quoteReplace = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`,
		"‘", "'", "’", "'",
	)
)

// CleanText flattens model markdown into a single line of plain text.
// Heading lines are dropped entirely; list markers, rules and emphasis are
// removed; typographic quotes become ASCII.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = headingLine.ReplaceAllString(s, "")
	s = horizontal.ReplaceAllString(s, " ")
	s = orderedItem.ReplaceAllString(s, "")
	s = bulletItem.ReplaceAllString(s, "")
	s = emphasis.ReplaceAllString(s, "")
	s = quoteReplace.Replace(s)
	s = newlines.ReplaceAllString(s, " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
