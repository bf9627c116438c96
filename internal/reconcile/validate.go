package reconcile

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"closetpicks/internal/dataset"
)

// Issue types reported by Validate.
const (
	IssueDuplicateFilmID      = "duplicate_film_id"
	IssueDuplicateSlug        = "duplicate_slug"
	IssueDuplicatePick        = "duplicate_pick"
	IssueUnknownGuestSlug     = "unknown_guest_slug"
	IssueUnknownFilmID        = "unknown_film_id"
	IssueVisitOutOfRange      = "visit_out_of_range"
	IssueAggregateWithoutName = "aggregate_without_name"
	IssueZeroMemberCount      = "zero_member_count"
	IssueDuplicateSpine       = "duplicate_spine"
)

// Issue is one integrity violation.
type Issue struct {
	Type   string `json:"type"`
	Key    string `json:"key"`
	Detail string `json:"detail,omitempty"`
}

// Counts is the coverage summary of a snapshot.
type Counts struct {
	Catalog        int            `json:"catalog"`
	Synthetic      int            `json:"synthetic"`
	Enriched       int            `json:"enriched"`
	Guests         int            `json:"guests"`
	MultiVisit     int            `json:"multi_visit"`
	RawPicks       int            `json:"raw_picks"`
	Picks          int            `json:"picks"`
	Aggregates     int            `json:"aggregates"`
	WithQuote      int            `json:"with_quote"`
	WithTimestamp  int            `json:"with_timestamp"`
	Confidence     map[string]int `json:"confidence"`
	DisplayedPicks int            `json:"displayed_picks"`
}

// ValidationReport is the output of Validate.
type ValidationReport struct {
	Counts Counts  `json:"counts"`
	Issues []Issue `json:"issues"`
}

// OK reports whether no issue was found.
func (r *ValidationReport) OK() bool { return r == nil || len(r.Issues) == 0 }

// ByType tallies issues per type.
func (r *ValidationReport) ByType() map[string]int {
	out := make(map[string]int)
	if r == nil {
		return out
	}
	for _, issue := range r.Issues {
		out[issue.Type]++
	}
	return out
}

// Validate checks uniqueness, referential integrity, visit ranges, and
// aggregate well-formedness. It does not modify ds.
func Validate(ds *dataset.Dataset) *ValidationReport {
	report := &ValidationReport{Issues: []Issue{}}
	add := func(kind, key, detail string) {
		report.Issues = append(report.Issues, Issue{Type: kind, Key: key, Detail: detail})
	}
	c := &report.Counts
	c.Confidence = make(map[string]int)

	catalog := make(map[string]*dataset.CatalogEntry, len(ds.Catalog))
	spines := make(map[int]string)
	for i := range ds.Catalog {
		e := &ds.Catalog[i]
		c.Catalog++
		if e.Synthetic {
			c.Synthetic++
		}
		if e.Enriched() {
			c.Enriched++
		}
		if _, dup := catalog[e.FilmID]; dup {
			add(IssueDuplicateFilmID, e.FilmID, e.Title)
		} else {
			catalog[e.FilmID] = e
		}
		if e.SpineNumber != nil {
			if first, dup := spines[*e.SpineNumber]; dup {
				add(IssueDuplicateSpine, strconv.Itoa(*e.SpineNumber), fmt.Sprintf("%s, %s", first, e.FilmID))
			} else {
				spines[*e.SpineNumber] = e.FilmID
			}
		}
	}

	guests := make(map[string]*dataset.Guest, len(ds.Guests))
	for i := range ds.Guests {
		g := &ds.Guests[i]
		c.Guests++
		if len(g.Visits) > 1 {
			c.MultiVisit++
		}
		if _, dup := guests[g.Slug]; dup {
			add(IssueDuplicateSlug, g.Slug, g.Name)
			continue
		}
		guests[g.Slug] = g
	}

	seen := make(map[filmKey]bool, len(ds.Picks))
	for i := range ds.Picks {
		p := &ds.Picks[i]
		c.Picks++
		c.Confidence[string(p.ExtractionConfidence)]++
		if p.HasQuote() {
			c.WithQuote++
		}
		if p.StartTimestamp != nil {
			c.WithTimestamp++
		}
		if p.Displayable() {
			c.DisplayedPicks++
		}
		key := fmt.Sprintf("%s/%s", p.GuestSlug, p.FilmID)
		if seen[filmKey{p.GuestSlug, p.FilmID}] {
			add(IssueDuplicatePick, key, p.FilmTitle)
		}
		seen[filmKey{p.GuestSlug, p.FilmID}] = true

		g, ok := guests[p.GuestSlug]
		if !ok {
			add(IssueUnknownGuestSlug, key, "pick")
		} else if !g.HasVisit(p.VisitIndex) {
			add(IssueVisitOutOfRange, key, fmt.Sprintf("visit %d of %d", p.VisitIndex, g.VisitCount()))
		}
		entry, ok := catalog[p.FilmID]
		if !ok {
			add(IssueUnknownFilmID, key, p.FilmTitle)
		}
		if p.IsAggregate() {
			c.Aggregates++
			if p.BoxSetName == "" {
				add(IssueAggregateWithoutName, key, p.FilmTitle)
			}
		} else if ok && entry.IsBoxSet {
			add(IssueZeroMemberCount, key, entry.Title)
		}
	}

	for _, r := range ds.RawPicks {
		c.RawPicks++
		key := fmt.Sprintf("%s/%s", r.GuestSlug, r.FilmTitle)
		g, ok := guests[r.GuestSlug]
		if !ok {
			add(IssueUnknownGuestSlug, key, "raw pick")
			continue
		}
		if r.VisitIndex != 0 && !g.HasVisit(r.VisitIndex) {
			add(IssueVisitOutOfRange, key, fmt.Sprintf("visit %d of %d", r.VisitIndex, g.VisitCount()))
		}
	}

	return report
}

// SortedConfidence returns confidence tiers present in counts, in rank order.
func (c Counts) SortedConfidence() []string {
	tiers := slices.Collect(maps.Keys(c.Confidence))
	slices.SortFunc(tiers, func(a, b string) int {
		return cmp.Or(
			cmp.Compare(dataset.Confidence(b).Rank(), dataset.Confidence(a).Rank()),
			cmp.Compare(a, b),
		)
	})
	return tiers
}
