package ledger

import (
	"regexp"
	"strings"
)

var (
	fencedJSON     = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	bracketedArray = regexp.MustCompile(`(?s)(\[.*\])`)
)

// ExtractJSON pulls order JSON out of freeform generation output. Preference
// order: the first fenced block labeled json, then the first top-level
// bracketed array, then the trimmed input verbatim. The last case leaves
// validation to the ledger's write gate.
func ExtractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := bracketedArray.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
