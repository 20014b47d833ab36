package utils

import (
	"regexp"
	"strings"
)

const (
	maxSlugLength = 40
	fallbackSlug  = "category"
)

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9_]+$`)
	nonSlugRunes  = regexp.MustCompile(`[^a-z0-9]+`)
	edgeUnderbars = regexp.MustCompile(`^_+|_+$`)
)

// IsValidSlug reports whether s is a non-empty run of [a-z0-9_].
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Slugify derives a category slug from a free-text name.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = nonSlugRunes.ReplaceAllString(s, "_")
	s = edgeUnderbars.ReplaceAllString(s, "")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	if s == "" {
		return fallbackSlug
	}
	return s
}
