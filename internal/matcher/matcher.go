// Package matcher resolves loosely specified film references against the
// canonical catalog.
package matcher

import (
	"strconv"
	"strings"

	"closetpicks/internal/dataset"
	"closetpicks/internal/textutil"
)

// Match methods recorded on raw picks. Fuzzy matches record "fuzzy_<score>".
const (
	MethodCriterionURL = "criterion_url"
	MethodExact        = "exact"
	MethodUnmatched    = "unmatched"

	fuzzyPrefix = "fuzzy_"
)

// Default thresholds and tolerance used when Options leaves them zero.
const (
	DefaultLooseThreshold  = 75
	DefaultStrictThreshold = 85
	DefaultYearTolerance   = 1
)

// FuzzyMethod renders the method string for a fuzzy match at score.
func FuzzyMethod(score int) string {
	return fuzzyPrefix + strconv.Itoa(score)
}

// IsFuzzy reports whether method names a fuzzy match.
func IsFuzzy(method string) bool {
	return strings.HasPrefix(method, fuzzyPrefix)
}

// Reference is a film mention from an upstream source.
type Reference struct {
	Title string
	Year  *int
	URL   string
	// Structured references come from sources with reliable titles and are
	// held to the strict fuzzy threshold.
	Structured bool
}

// Result is the outcome of one match. Entry is nil when Method is
// MethodUnmatched; FilmID then holds the provisional identifier.
type Result struct {
	Entry  *dataset.CatalogEntry
	Method string
	Score  int
	FilmID string
}

// Matched reports whether a catalog entry was found.
func (r Result) Matched() bool { return r.Entry != nil }

// ExactYear is the YearTolerance that demands equal years.
const ExactYear = -1

// Options tunes a Matcher. Zero values take the defaults; set YearTolerance
// to ExactYear to disable year tolerance.
type Options struct {
	LooseThreshold  int
	StrictThreshold int
	YearTolerance   int
}

func (o Options) withDefaults() Options {
	if o.LooseThreshold <= 0 {
		o.LooseThreshold = DefaultLooseThreshold
	}
	if o.StrictThreshold <= 0 {
		o.StrictThreshold = DefaultStrictThreshold
	}
	switch {
	case o.YearTolerance == 0:
		o.YearTolerance = DefaultYearTolerance
	case o.YearTolerance < 0:
		o.YearTolerance = 0
	}
	return o
}

type candidate struct {
	entry    *dataset.CatalogEntry
	exact    []string
	tokens   []string
	hasYear  bool
	yearBase int
}

// Matcher holds a prepared view of the catalog. It refers to the entries of
// the slice it was built from and must be rebuilt when that slice changes.
type Matcher struct {
	opts       Options
	candidates []candidate
	byURL      map[string]*dataset.CatalogEntry
}

// New prepares catalog for matching. Candidates are tried in slice order, so
// ties resolve to the earliest entry.
func New(catalog []dataset.CatalogEntry, opts Options) *Matcher {
	m := &Matcher{
		opts:       opts.withDefaults(),
		candidates: make([]candidate, 0, len(catalog)),
		byURL:      make(map[string]*dataset.CatalogEntry, len(catalog)),
	}
	for i := range catalog {
		entry := &catalog[i]
		if ref, ok := dataset.ParseCriterionURL(entry.CriterionURL); ok {
			if _, seen := m.byURL[ref.Key()]; !seen {
				m.byURL[ref.Key()] = entry
			}
		}
		c := candidate{entry: entry}
		for _, variant := range titleVariants(entry.Title) {
			c.exact = append(c.exact, textutil.FoldKey(variant))
			c.tokens = append(c.tokens, variant)
		}
		if entry.Year != nil {
			c.hasYear = true
			c.yearBase = *entry.Year
		}
		m.candidates = append(m.candidates, c)
	}
	return m
}

// titleVariants returns the normalized title and, when different, the title
// with its collection annotation removed.
func titleVariants(title string) []string {
	normalized := textutil.NormalizeTitle(title)
	if normalized == "" {
		return nil
	}
	out := []string{normalized}
	if stripped := textutil.StripCollectionAnnotation(normalized); stripped != "" && stripped != normalized {
		out = append(out, stripped)
	}
	return out
}

// Match resolves ref. Priority: Criterion URL, exact title, fuzzy title.
func (m *Matcher) Match(ref Reference) Result {
	if entry, ok := m.matchURL(ref.URL); ok {
		return Result{Entry: entry, Method: MethodCriterionURL, Score: 100, FilmID: entry.FilmID}
	}

	variants := titleVariants(ref.Title)
	if len(variants) == 0 {
		return Result{Method: MethodUnmatched}
	}

	keys := make([]string, len(variants))
	for i, v := range variants {
		keys[i] = textutil.FoldKey(v)
	}
	for i := range m.candidates {
		c := &m.candidates[i]
		if !m.yearCompatible(c, ref.Year) {
			continue
		}
		for _, k := range keys {
			for _, ck := range c.exact {
				if k == ck {
					return Result{Entry: c.entry, Method: MethodExact, Score: 100, FilmID: c.entry.FilmID}
				}
			}
		}
	}

	threshold := m.opts.LooseThreshold
	if ref.Structured {
		threshold = m.opts.StrictThreshold
	}
	var best *candidate
	bestScore := 0
	for i := range m.candidates {
		c := &m.candidates[i]
		if !m.yearCompatible(c, ref.Year) {
			continue
		}
		score := 0
		for _, v := range variants {
			for _, ct := range c.tokens {
				if s := textutil.TokenSortRatio(v, ct); s > score {
					score = s
				}
			}
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if best != nil && bestScore >= threshold {
		return Result{Entry: best.entry, Method: FuzzyMethod(bestScore), Score: bestScore, FilmID: best.entry.FilmID}
	}

	return Result{
		Method: MethodUnmatched,
		Score:  bestScore,
		FilmID: textutil.FilmID(variants[0], ref.Year),
	}
}

func (m *Matcher) matchURL(raw string) (*dataset.CatalogEntry, bool) {
	ref, ok := dataset.ParseCriterionURL(raw)
	if !ok {
		return nil, false
	}
	entry, ok := m.byURL[ref.Key()]
	return entry, ok
}

func (m *Matcher) yearCompatible(c *candidate, year *int) bool {
	if year == nil || !c.hasYear {
		return true
	}
	diff := *year - c.yearBase
	if diff < 0 {
		diff = -diff
	}
	return diff <= m.opts.YearTolerance
}
