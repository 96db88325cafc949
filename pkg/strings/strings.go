// Package strings provides the name and key helpers shared by the feature store
package strings

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	multiUnderRe = regexp.MustCompile(`_{2,}`)
)

// Sanitise lower-cases name, replaces every non-word character by an
// underscore, trims underscores at both ends and collapses runs of them.
// The result is usable as a catalog column or table name.
//
// Sanitise is idempotent.
func Sanitise(name string) string {
	s := nonWordRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return multiUnderRe.ReplaceAllString(strings.Trim(s, "_"), "_")
}

// Strip removes prefix and suffix from s when present.
func Strip(s, prefix, suffix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, prefix), suffix)
}

// JoinKey joins object key segments with "/", dropping empty segments and
// the separators already present at segment edges.
func JoinKey(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}

// HasLetter reports whether s contains at least one alphabetic character.
func HasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
