package textutil

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	slugStripPattern    = regexp.MustCompile(`[^a-z0-9_\s-]`)
	slugCollapsePattern = regexp.MustCompile(`[-\s]+`)
)

// Slugify converts text to a lowercase ASCII slug. Accented characters are
// decomposed and their marks dropped, so "Fårö" becomes "faro".
func Slugify(text string) string {
	decomposed := norm.NFKD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	lowered := strings.ToLower(b.String())
	stripped := slugStripPattern.ReplaceAllString(lowered, "")
	return strings.Trim(slugCollapsePattern.ReplaceAllString(stripped, "-"), "-")
}

// FilmID derives a canonical film identifier from a title and optional year.
// The year suffix is omitted when year is nil or not positive.
func FilmID(title string, year *int) string {
	slug := Slugify(title)
	if year == nil || *year <= 0 {
		return slug
	}
	return slug + "-" + strconv.Itoa(*year)
}
