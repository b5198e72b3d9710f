package classifier

import (
	"encoding/json"
	"regexp"
	"strings"
)

var trailingBrace = regexp.MustCompile(`\}\s*$`)

// NormalizeJSON recovers a best-effort JSON object from a JSON-like LLM
// response. It handles exactly two observed failure modes: junk before
// the first '{' or after the last '}', and duplicated trailing closing
// braces. It is deliberately not a relaxed JSON parser; anything beyond
// those repairs is returned for the caller's decoder to reject.
func NormalizeJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	candidate := raw[start : end+1]

	// Peel surplus trailing braces one at a time, stopping as soon as
	// the candidate parses so legitimately nested tails survive.
	for !json.Valid([]byte(candidate)) {
		stripped := strings.TrimRight(candidate, " \t\r\n")
		if !strings.HasSuffix(stripped, "}") {
			break
		}
		inner := trailingBrace.ReplaceAllString(stripped, "")
		if !strings.HasSuffix(strings.TrimRight(inner, " \t\r\n"), "}") {
			break
		}
		candidate = inner
	}
	return candidate
}
