package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	formatTagPattern          = regexp.MustCompile(`(?i)\s*\((?:BD|4K UHD|4K|UHD|DVD|Blu-ray)\)`)
	collectionSuffixPattern   = regexp.MustCompile(`(?i)\s*\([^)]*(?:box|trilogy|set|collection|films)\s*\)`)
	trailingParentheticalExpr = regexp.MustCompile(`\(([^)]+)\)$`)
	smartQuoteReplacer        = strings.NewReplacer(
		"‘", "'",
		"’", "'",
		"“", `"`,
		"”", `"`,
	)
)

// collectionKeywords mark a trailing parenthetical as a collection name.
var collectionKeywords = []string{"trilogy", "box", "set", "double feature", "cinema project", "films"}

// NormalizeTitle removes release-format tags such as "(Blu-ray)", strips
// trailing footnote markers, and collapses whitespace.
func NormalizeTitle(title string) string {
	cleaned := formatTagPattern.ReplaceAllString(title, "")
	cleaned = strings.TrimRight(strings.TrimSpace(cleaned), "*†‡")
	return strings.Join(strings.Fields(cleaned), " ")
}

// StripCollectionAnnotation removes a parenthetical that names the collection
// a film was sold in, e.g. "Aparajito (Apu Trilogy)" becomes "Aparajito".
func StripCollectionAnnotation(title string) string {
	return strings.TrimSpace(collectionSuffixPattern.ReplaceAllString(title, ""))
}

// TrailingParenthetical splits "Base (Inner)" into its base and inner parts.
// ok is false when the title does not end in a parenthetical.
func TrailingParenthetical(title string) (base, inner string, ok bool) {
	trimmed := strings.TrimSpace(title)
	loc := trailingParentheticalExpr.FindStringSubmatchIndex(trimmed)
	if loc == nil {
		return trimmed, "", false
	}
	return strings.TrimSpace(trimmed[:loc[0]]), strings.TrimSpace(trimmed[loc[2]:loc[3]]), true
}

// CollectionAnnotation returns the collection named by a catalog title's
// trailing parenthetical, if that parenthetical looks like a collection.
func CollectionAnnotation(title string) (string, bool) {
	_, inner, ok := TrailingParenthetical(title)
	if !ok {
		return "", false
	}
	lower := strings.ToLower(inner)
	for _, kw := range collectionKeywords {
		if strings.Contains(lower, kw) {
			return inner, true
		}
	}
	return "", false
}

// NormalizeQuotes replaces typographic quotes with their ASCII forms.
func NormalizeQuotes(text string) string {
	return smartQuoteReplacer.Replace(text)
}

// FoldKey is the comparison key used for case-insensitive title lookups.
func FoldKey(text string) string {
	return cases.Fold().String(strings.Join(strings.Fields(text), " "))
}

// TitleFromSlug renders a readable title for an identifier that has no
// display title of its own, e.g. "the-apu-trilogy" becomes "The Apu Trilogy".
func TitleFromSlug(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	return cases.Title(language.Und).String(strings.Join(words, " "))
}
