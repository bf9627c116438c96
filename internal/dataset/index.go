package dataset

import "strings"

// Index holds the lookup tables a pass needs. It is built once, at the start
// of a pass, and refers to positions in the snapshot it was built from; a
// pass that appends to or removes from a collection must rebuild it.
type Index struct {
	ds *Dataset

	catalogByID    map[string]int
	catalogBySpine map[int]int
	catalogByURL   map[string]int
	guestsBySlug   map[string]int
	rawByTitle     map[guestKey][]int
	rawByFilm      map[guestKey][]int
}

type guestKey struct {
	slug string
	key  string
}

// NewIndex builds the lookup tables for ds. On duplicate keys the first
// occurrence wins.
func NewIndex(ds *Dataset) *Index {
	idx := &Index{
		ds:             ds,
		catalogByID:    make(map[string]int, len(ds.Catalog)),
		catalogBySpine: make(map[int]int, len(ds.Catalog)),
		catalogByURL:   make(map[string]int, len(ds.Catalog)),
		guestsBySlug:   make(map[string]int, len(ds.Guests)),
		rawByTitle:     make(map[guestKey][]int, len(ds.RawPicks)),
		rawByFilm:      make(map[guestKey][]int, len(ds.RawPicks)),
	}
	for i, e := range ds.Catalog {
		if _, ok := idx.catalogByID[e.FilmID]; !ok {
			idx.catalogByID[e.FilmID] = i
		}
		if e.SpineNumber != nil {
			if _, ok := idx.catalogBySpine[*e.SpineNumber]; !ok {
				idx.catalogBySpine[*e.SpineNumber] = i
			}
		}
		if ref, ok := ParseCriterionURL(e.CriterionURL); ok {
			if _, seen := idx.catalogByURL[ref.Key()]; !seen {
				idx.catalogByURL[ref.Key()] = i
			}
		}
	}
	for i, g := range ds.Guests {
		if _, ok := idx.guestsBySlug[g.Slug]; !ok {
			idx.guestsBySlug[g.Slug] = i
		}
	}
	for i, r := range ds.RawPicks {
		if title := strings.ToLower(strings.TrimSpace(r.FilmTitle)); title != "" {
			k := guestKey{r.GuestSlug, title}
			idx.rawByTitle[k] = append(idx.rawByTitle[k], i)
		}
		if r.FilmID != "" {
			k := guestKey{r.GuestSlug, r.FilmID}
			idx.rawByFilm[k] = append(idx.rawByFilm[k], i)
		}
	}
	return idx
}

// Catalog returns the entry with filmID.
func (x *Index) Catalog(filmID string) (*CatalogEntry, bool) {
	i, ok := x.catalogByID[filmID]
	if !ok {
		return nil, false
	}
	return &x.ds.Catalog[i], true
}

// CatalogBySpine returns the entry carrying spine.
func (x *Index) CatalogBySpine(spine int) (*CatalogEntry, bool) {
	i, ok := x.catalogBySpine[spine]
	if !ok {
		return nil, false
	}
	return &x.ds.Catalog[i], true
}

// CatalogByURL returns the entry whose Criterion URL has the same family and
// numeric id as raw.
func (x *Index) CatalogByURL(raw string) (*CatalogEntry, bool) {
	ref, ok := ParseCriterionURL(raw)
	if !ok {
		return nil, false
	}
	i, ok := x.catalogByURL[ref.Key()]
	if !ok {
		return nil, false
	}
	return &x.ds.Catalog[i], true
}

// Guest returns the guest with slug.
func (x *Index) Guest(slug string) (*Guest, bool) {
	i, ok := x.guestsBySlug[slug]
	if !ok {
		return nil, false
	}
	return &x.ds.Guests[i], true
}

// HasFilm reports whether filmID is in the catalog.
func (x *Index) HasFilm(filmID string) bool {
	_, ok := x.catalogByID[filmID]
	return ok
}

// RawByTitle returns the guest's raw picks whose title matches
// case-insensitively.
func (x *Index) RawByTitle(slug, title string) []*RawPick {
	return x.raws(x.rawByTitle[guestKey{slug, strings.ToLower(strings.TrimSpace(title))}])
}

// RawByFilm returns the guest's raw picks carrying filmID.
func (x *Index) RawByFilm(slug, filmID string) []*RawPick {
	return x.raws(x.rawByFilm[guestKey{slug, filmID}])
}

func (x *Index) raws(positions []int) []*RawPick {
	if len(positions) == 0 {
		return nil
	}
	out := make([]*RawPick, 0, len(positions))
	for _, i := range positions {
		out = append(out, &x.ds.RawPicks[i])
	}
	return out
}
