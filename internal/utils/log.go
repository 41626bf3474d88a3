package utils

import "strings"

// TruncateForLog returns a single-line preview of s limited to limit runes.
// Runs of whitespace, including the newlines of multi-line prompts, collapse
// to one space. An ellipsis marks a cut.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
