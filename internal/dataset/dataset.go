package dataset

import (
	"cmp"
	"slices"
	"strings"
)

const (
	minPlausibleYear = 1880
	maxPlausibleYear = 2100
)

// Dataset is the in-memory snapshot a reconciliation run works on.
type Dataset struct {
	Catalog  []CatalogEntry
	Guests   []Guest
	RawPicks []RawPick
	Picks    []Pick
}

// NormalizeYear maps zero and implausible years to nil.
func NormalizeYear(year *int) *int {
	if year == nil || *year < minPlausibleYear || *year > maxPlausibleYear {
		return nil
	}
	v := *year
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Normalize repairs decode-level irregularities: zero years, missing visit
// lists, blank confidence tiers, and stray whitespace in keys.
func (d *Dataset) Normalize() {
	for i := range d.Catalog {
		e := &d.Catalog[i]
		e.FilmID = strings.TrimSpace(e.FilmID)
		e.Title = strings.TrimSpace(e.Title)
		e.Year = NormalizeYear(e.Year)
		if IsBoxSetURL(e.CriterionURL) {
			e.IsBoxSet = true
		}
	}
	for i := range d.Guests {
		g := &d.Guests[i]
		g.Slug = strings.TrimSpace(g.Slug)
		if len(g.Visits) == 0 {
			if v := g.TopLevelVisit(); !v.IsZero() {
				g.Visits = []Visit{v}
			}
		}
	}
	for i := range d.RawPicks {
		r := &d.RawPicks[i]
		r.GuestSlug = strings.TrimSpace(r.GuestSlug)
		r.FilmYear = NormalizeYear(r.FilmYear)
	}
	for i := range d.Picks {
		p := &d.Picks[i]
		p.GuestSlug = strings.TrimSpace(p.GuestSlug)
		p.ExtractionConfidence = ParseConfidence(string(p.ExtractionConfidence))
		if p.BoxSetFilmCount < UnknownMemberCount {
			p.BoxSetFilmCount = UnknownMemberCount
		}
	}
}

// Sort puts every collection into canonical order so encoding is stable.
func (d *Dataset) Sort() {
	slices.SortStableFunc(d.Catalog, func(a, b CatalogEntry) int {
		return cmp.Compare(a.FilmID, b.FilmID)
	})
	slices.SortStableFunc(d.Guests, func(a, b Guest) int {
		return cmp.Compare(a.Slug, b.Slug)
	})
	slices.SortStableFunc(d.Picks, func(a, b Pick) int {
		return cmp.Or(
			cmp.Compare(a.GuestSlug, b.GuestSlug),
			cmp.Compare(a.FilmID, b.FilmID),
			cmp.Compare(a.FilmTitle, b.FilmTitle),
		)
	})
	slices.SortStableFunc(d.RawPicks, func(a, b RawPick) int {
		return cmp.Or(
			cmp.Compare(a.GuestSlug, b.GuestSlug),
			cmp.Compare(a.FilmTitle, b.FilmTitle),
			cmp.Compare(a.FilmID, b.FilmID),
			cmp.Compare(a.Source, b.Source),
		)
	})
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Catalog:  make([]CatalogEntry, len(d.Catalog)),
		Guests:   make([]Guest, len(d.Guests)),
		RawPicks: make([]RawPick, len(d.RawPicks)),
		Picks:    make([]Pick, len(d.Picks)),
	}
	for i, e := range d.Catalog {
		e.Year = cloneInt(e.Year)
		e.SpineNumber = cloneInt(e.SpineNumber)
		e.Genres = slices.Clone(e.Genres)
		out.Catalog[i] = e
	}
	for i, g := range d.Guests {
		g.Visits = slices.Clone(g.Visits)
		out.Guests[i] = g
	}
	for i, r := range d.RawPicks {
		r.FilmYear = cloneInt(r.FilmYear)
		r.CatalogSpine = cloneInt(r.CatalogSpine)
		out.RawPicks[i] = r
	}
	for i, p := range d.Picks {
		p.StartTimestamp = cloneInt(p.StartTimestamp)
		p.CatalogSpine = cloneInt(p.CatalogSpine)
		p.BoxSetFilmTitles = slices.Clone(p.BoxSetFilmTitles)
		out.Picks[i] = p
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Guest returns the guest with slug, or nil.
func (d *Dataset) Guest(slug string) *Guest {
	for i := range d.Guests {
		if d.Guests[i].Slug == slug {
			return &d.Guests[i]
		}
	}
	return nil
}

// CatalogEntry returns the entry with filmID, or nil.
func (d *Dataset) CatalogEntry(filmID string) *CatalogEntry {
	for i := range d.Catalog {
		if d.Catalog[i].FilmID == filmID {
			return &d.Catalog[i]
		}
	}
	return nil
}

// RemoveGuest deletes the guest with slug and reports whether it existed.
func (d *Dataset) RemoveGuest(slug string) bool {
	before := len(d.Guests)
	d.Guests = slices.DeleteFunc(d.Guests, func(g Guest) bool { return g.Slug == slug })
	return len(d.Guests) != before
}

// Reassign moves every pick and raw pick owned by from to to. It returns the
// number of picks and raw picks moved.
func (d *Dataset) Reassign(from, to string) (picks, raw int) {
	for i := range d.Picks {
		if d.Picks[i].GuestSlug == from {
			d.Picks[i].GuestSlug = to
			picks++
		}
	}
	for i := range d.RawPicks {
		if d.RawPicks[i].GuestSlug == from {
			d.RawPicks[i].GuestSlug = to
			raw++
		}
	}
	return picks, raw
}

// PicksFor returns pointers to the picks owned by slug, in slice order.
func (d *Dataset) PicksFor(slug string) []*Pick {
	var out []*Pick
	for i := range d.Picks {
		if d.Picks[i].GuestSlug == slug {
			out = append(out, &d.Picks[i])
		}
	}
	return out
}

// RawPicksFor returns pointers to the raw picks owned by slug.
func (d *Dataset) RawPicksFor(slug string) []*RawPick {
	var out []*RawPick
	for i := range d.RawPicks {
		if d.RawPicks[i].GuestSlug == slug {
			out = append(out, &d.RawPicks[i])
		}
	}
	return out
}
