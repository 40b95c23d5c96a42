package conversation

import (
	"html"
	"regexp"
	"strings"
)

// hygieneThreshold is the length below which a raw Text body with no
// suspicious characters is retained verbatim rather than run through the
// cleanup pass (spec.md §4.4).
const hygieneThreshold = 64

var (
	htmlTagPattern      = regexp.MustCompile(`<[^>]+>`)
	whitespaceRunPattern = regexp.MustCompile(`[ \t]+`)
	blankLineRunPattern  = regexp.MustCompile(`\n{3,}`)
)

// suspiciousChars are artifacts that, even in a short string, indicate the
// text needs cleanup rather than passthrough (escaped quotes/newlines, raw
// angle brackets).
func hasSuspiciousChars(s string) bool {
	return strings.ContainsAny(s, "<>") || strings.Contains(s, `\"`) || strings.Contains(s, `\n`)
}

// cleanText runs the text-hygiene pass: strip HTML tags/entities, collapse
// whitespace, unescape common JSON artifacts, and trim.
func cleanText(raw string) string {
	if len(raw) < hygieneThreshold && !hasSuspiciousChars(raw) {
		return raw
	}

	s := raw
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = whitespaceRunPattern.ReplaceAllString(s, " ")
	s = blankLineRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
