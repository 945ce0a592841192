// Package strings holds slice helpers for request parameters and recipient
// lists.
package strings

import "strings"

// NormalizeList trims and lowercases values, dropping blanks and repeats.
// The first occurrence wins.
func NormalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return Unique(out)
}

// Unique drops repeated items, keeping the first occurrence of each.
func Unique[T comparable](items []T) []T {
	if len(items) < 2 {
		return items
	}
	seen := make(map[T]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
