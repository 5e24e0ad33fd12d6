package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any non-alphanumeric character.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL-safe slug.
// "San José" -> "san-jose".
// "Winston-Salem, NC" -> "winston-salem-nc".
func Slugify(s string) string {
	// Decompose accented characters so the base letter survives.
	s = norm.NFKD.String(s)

	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ZipCode uppercases and strips spaces from a postal code.
func ZipCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// State uppercases two-letter state codes and title-cleans longer names.
func State(s string) string {
	s = Line(s)
	if len(s) == 2 {
		return strings.ToUpper(s)
	}
	return s
}
