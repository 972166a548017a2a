// Package sanitize cleans untrusted strings before they become file names.
package sanitize

import (
	"regexp"
	"strings"
)

const maxFilenameLen = 64

var (
	nonFilenameRegex = regexp.MustCompile(`[^a-z0-9-]+`)
	multiDashRegex   = regexp.MustCompile(`-+`)
)

// ForFilename reduces s to lower-case kebab-case safe for a single path
// element. Separators and dots are replaced, so the result never escapes its
// directory.
func ForFilename(s string) string {
	s = strings.ToLower(s)
	s = nonFilenameRegex.ReplaceAllString(s, "-")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxFilenameLen {
		s = strings.TrimRight(s[:maxFilenameLen], "-")
	}
	return s
}
