// Package strings holds the small string helpers shared by the
// document and identification packages, mostly for sanitizing name
// variant lists.
package strings

import "strings"

// DedupeAndTrim trims every element and drops empties and duplicates,
// keeping first-seen order. Name variant lists accumulate across saves
// and merges; this keeps them canonical.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower additionally lowercases, for case-insensitive
// token sets.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
