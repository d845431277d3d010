package search

import "strings"

const (
	snippetContextBefore = 30
	snippetMaxLen        = 200
)

// extractSnippet builds a display snippet for a match at byte offset col
// within line: the line is trimmed, up to 30 characters before the match
// are kept, and the snippet is capped at 200 characters with ellipses
// marking elisions.
func extractSnippet(line string, col int) string {
	leading := len(line) - len(strings.TrimLeft(line, " \t"))
	trimmed := strings.TrimSpace(line)

	col -= leading
	if col < 0 {
		col = 0
	}
	if col > len(trimmed) {
		col = len(trimmed)
	}

	start := col - snippetContextBefore
	if start < 0 {
		start = 0
	}
	end := start + snippetMaxLen
	if end > len(trimmed) {
		end = len(trimmed)
	}

	snippet := trimmed[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(trimmed) {
		snippet += "..."
	}
	return snippet
}
