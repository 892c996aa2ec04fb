package agent

import (
	"strings"
	"unicode/utf8"
)

// stripCodeFences removes a surrounding markdown code fence from model
// output, with or without a language tag. Output without fences passes
// through unchanged.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// truncate cuts s to at most limit bytes without splitting a multi-byte
// rune, so truncated prompt content stays valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// joinOr joins items with "; " or returns a placeholder for an empty list,
// keeping prompt templates free of empty bullet values.
func joinOr(items []string, placeholder string) string {
	if len(items) == 0 {
		return placeholder
	}
	return strings.Join(items, "; ")
}
