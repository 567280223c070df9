package validation

import (
	"path/filepath"
	"strings"
)

// NormalizeEmail trims surrounding whitespace and case-folds the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Present reports whether every value is non-empty.
func Present(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}

// Extension returns the lower-cased suffix of a filename including the dot,
// or "" when there is none.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
