// Package sanitize normalizes user-supplied tenant identifiers into safe
// key fragments.
package sanitize

import "strings"

// ID lowercases s and strips every character outside [a-z0-9-]. The result
// is safe to embed in a key-value key. Idempotent: ID(ID(s)) == ID(s).
func ID(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsClean reports whether s is already in sanitized form. Creation paths
// reject unclean identifiers rather than silently coercing them; only
// lookups sanitize.
func IsClean(s string) bool {
	return s != "" && ID(s) == s
}
