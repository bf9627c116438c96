package textutil

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxQuoteLength caps stored excerpts, ellipsis included.
const MaxQuoteLength = 500

var (
	fillerPattern         = regexp.MustCompile(`(?i)\b(?:uh|um|hmm|ahh?)\b`)
	multiSpacePattern     = regexp.MustCompile(`\s{2,}`)
	spaceBeforePunct      = regexp.MustCompile(`\s+([.,!?;:])`)
	missingSpaceAfterPunc = regexp.MustCompile(`([.,!?;:])([A-Za-z])`)
	sentenceStartPattern  = regexp.MustCompile(`([.!?])\s+([a-z])`)
	standaloneIPattern    = regexp.MustCompile(`\bi\b`)
)

// knownTitleCorrections fixes auto-caption renderings of titles that are
// not recoverable from the catalog alone.
var knownTitleCorrections = map[string]string{
	"rack catcher": "Ratcatcher",
	"rat catcher":  "Ratcatcher",
	"decalog":      "Dekalog",
	"decalogue":    "Dekalog",
	"rashaman":     "Rashomon",
	"roshomon":     "Rashomon",
}

// QuoteCleaner normalizes transcript excerpts. Build one per pass with the
// catalog titles so title capitalization can be restored.
type QuoteCleaner struct {
	titles []titleFix
}

type titleFix struct {
	pattern *regexp.Regexp
	title   string
}

// NewQuoteCleaner prepares title capitalization fixes from catalog titles.
// Titles shorter than five characters are ignored to avoid false matches.
func NewQuoteCleaner(catalogTitles []string) *QuoteCleaner {
	byLower := make(map[string]string, len(catalogTitles)*2+len(knownTitleCorrections))
	for _, title := range catalogTitles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		byLower[strings.ToLower(title)] = title
		if base, _, ok := TrailingParenthetical(title); ok && base != "" {
			byLower[strings.ToLower(base)] = base
		}
	}
	for lower, title := range knownTitleCorrections {
		byLower[lower] = title
	}
	keys := make([]string, 0, len(byLower))
	for lower := range byLower {
		if utf8.RuneCountInString(lower) < 5 {
			continue
		}
		keys = append(keys, lower)
	}
	// Longer titles first so "the seventh seal" wins over "seventh seal".
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	fixes := make([]titleFix, 0, len(keys))
	for _, lower := range keys {
		fixes = append(fixes, titleFix{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(lower) + `\b`),
			title:   byLower[lower],
		})
	}
	return &QuoteCleaner{titles: fixes}
}

// Clean applies filler removal, repeated-word collapse, title and sentence
// capitalization, punctuation spacing, and the length cap. An excerpt that
// stops mid-sentence gets a trailing ellipsis.
func (c *QuoteCleaner) Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = fillerPattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(multiSpacePattern.ReplaceAllString(text, " "))
	text = collapseRepeatedWords(text)
	if c != nil {
		for _, fix := range c.titles {
			text = fix.pattern.ReplaceAllLiteralString(text, fix.title)
		}
	}
	text = fixCapitalization(text)
	text = multiSpacePattern.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = missingSpaceAfterPunc.ReplaceAllString(text, "$1 $2")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if !strings.ContainsAny(text[len(text)-1:], `.!?"'`) {
		text = strings.TrimRight(text, ",;: ") + "..."
	}
	return TruncateQuote(text)
}

// TruncateQuote enforces MaxQuoteLength, replacing the tail with an ellipsis.
func TruncateQuote(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxQuoteLength {
		return text
	}
	return string(runes[:MaxQuoteLength-3]) + "..."
}

func collapseRepeatedWords(text string) string {
	words := strings.Fields(text)
	if len(words) < 2 {
		return text
	}
	out := words[:1]
	for _, word := range words[1:] {
		last := out[len(out)-1]
		if strings.EqualFold(bareWord(last), bareWord(word)) && bareWord(word) != "" && bareWord(last) == last {
			out[len(out)-1] = word
			continue
		}
		out = append(out, word)
	}
	return strings.Join(out, " ")
}

// bareWord strips trailing punctuation so "like like," still collapses.
func bareWord(word string) string {
	return strings.TrimRightFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func fixCapitalization(text string) string {
	if text == "" {
		return text
	}
	first, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(first)) + text[size:]
	text = sentenceStartPattern.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ToUpper(m)
	})
	return standaloneIPattern.ReplaceAllString(text, "I")
}
