package catalog

import (
	"strconv"
	"strings"
)

// DefaultSlug is used when a title has no usable characters.
const DefaultSlug = "prompt"

// Slugify converts a title to a URL-safe slug, falling back to DefaultSlug.
func Slugify(s string) string {
	return SlugifyOr(s, DefaultSlug)
}

// SlugifyOr converts a title to a URL-safe slug, returning fallback when
// nothing alphanumeric is left.
func SlugifyOr(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return fallback
	}
	return out
}

// UniqueSlug returns candidate if it is not in existing, otherwise the first
// free candidate-1, candidate-2, ... value.
func UniqueSlug(candidate string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}
	if _, ok := taken[candidate]; !ok {
		return candidate
	}
	for n := 1; ; n++ {
		slug := candidate + "-" + strconv.Itoa(n)
		if _, ok := taken[slug]; !ok {
			return slug
		}
	}
}
