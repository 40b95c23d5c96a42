package conversation

import "regexp"

// Sentinel markers the model emits inside an otherwise-ordinary text block.
// The vendor adapter rewrites matching Text blocks into UserInput or
// FinalResponse on ingest (spec.md §4.4).
const (
	markerUserInput     = "NEED_USER_INPUT"
	markerFinalResponse = "FINAL_RESPONSE"
)

// Captures everything after the marker (and an optional ":" separator) up
// to a blank line or end-of-string.
var (
	userInputPattern     = regexp.MustCompile(`(?s)NEED_USER_INPUT:?\s*(.*?)(?:\n\s*\n|$)`)
	finalResponsePattern = regexp.MustCompile(`(?s)FINAL_RESPONSE:?\s*(.*?)(?:\n\s*\n|$)`)
)

// detectSentinel inspects raw model text and returns the sentinel block it
// represents, if any. Idempotent: a string with no marker (e.g. a plain
// Text block that has already been classified and re-emitted without its
// trigger substring) returns ok=false on a second pass (P6).
func detectSentinel(text string) (ContentBlock, bool) {
	if m := finalResponsePattern.FindStringSubmatch(text); m != nil {
		return FinalResponse{Response: trimBody(m[1])}, true
	}
	if m := userInputPattern.FindStringSubmatch(text); m != nil {
		return UserInput{Request: trimBody(m[1])}, true
	}
	return nil, false
}

func trimBody(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	for len(s) > 0 && (s[0] == '\n' || s[0] == '\r' || s[0] == ' ') {
		s = s[1:]
	}
	return s
}
