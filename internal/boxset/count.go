package boxset

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	digitFilmsPattern   = regexp.MustCompile(`(\d+)\s+films?\b`)
	leadingDigitPattern = regexp.MustCompile(`^(\d+)\s+`)
	numberWords         = []string{"two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	wordFilmsPatterns   = buildWordFilmsPatterns()
)

func buildWordFilmsPatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(numberWords))
	for i, w := range numberWords {
		out[i] = regexp.MustCompile(`\b` + w + `\s+films?\b`)
	}
	return out
}

// InferCount guesses a collection's size from its name: "3 Films by",
// "Five Films", "Trilogy", "Double Feature", a leading number ("Six Moral
// Tales"), or a slash-separated title list. ok is false when nothing fits.
func InferCount(name string) (count int, ok bool) {
	lower := strings.ToLower(name)

	if m := digitFilmsPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
	}
	for i, re := range wordFilmsPatterns {
		if re.MatchString(lower) {
			return i + 2, true
		}
	}

	if strings.Contains(lower, "trilogy") {
		return 3, true
	}
	if strings.Contains(lower, "double feature") {
		return 2, true
	}

	for i, w := range numberWords {
		if strings.HasPrefix(lower, w+" ") {
			return i + 2, true
		}
	}
	if m := leadingDigitPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
	}

	if strings.Contains(name, "/") && !strings.Contains(lower, "eclipse") {
		parts := 0
		for _, p := range strings.Split(name, "/") {
			if strings.TrimSpace(p) != "" {
				parts++
			}
		}
		if parts >= 2 && parts <= 3 {
			return parts, true
		}
	}
	return 0, false
}
