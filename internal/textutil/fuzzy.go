package textutil

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// TokenSortRatio scores two strings on a 0-100 scale after lowercasing,
// replacing punctuation with spaces, and sorting whitespace-separated tokens.
// Word order therefore does not affect the score.
func TokenSortRatio(a, b string) int {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// Ratio returns the normalized indel similarity of two strings on a 0-100
// scale, rounded to the nearest integer. Empty input scores 0.
func Ratio(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := longestCommonSubsequence(ra, rb)
	return int(math.Round(100 * float64(2*lcs) / float64(total)))
}

func sortedTokens(s string) string {
	processed := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	tokens := strings.Fields(processed)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func longestCommonSubsequence(a, b []rune) int {
	prev := make([]int, len(b)+1)
	row := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				row[j] = prev[j-1] + 1
			case prev[j] >= row[j-1]:
				row[j] = prev[j]
			default:
				row[j] = row[j-1]
			}
		}
		prev, row = row, prev
	}
	return prev[len(b)]
}
