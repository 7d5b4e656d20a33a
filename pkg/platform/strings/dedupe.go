// Package strings holds small string-cleaning helpers for untrusted
// upstream feeds.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value, drops blanks, and removes duplicates
// while preserving first-seen order. Roster columns imported from the
// CRM export routinely carry padded and repeated entries ("Meridian",
// " Meridian"), and the dropdown endpoints must not surface those twice.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
