package reconcile

import (
	"strings"

	"closetpicks/internal/dataset"
)

// BackfillReport counts records completed by backfill.
type BackfillReport struct {
	CatalogEntries int `json:"catalog_entries"`
	RawSources     int `json:"raw_sources"`
	PickSources    int `json:"pick_sources"`
}

// Backfill adds synthetic catalog entries for picks that reference an id the
// catalog lacks, then fills missing source tags.
func Backfill(ds *dataset.Dataset) BackfillReport {
	var report BackfillReport
	report.CatalogEntries = backfillCatalog(ds)
	report.RawSources, report.PickSources = backfillSources(ds)
	return report
}

func backfillCatalog(ds *dataset.Dataset) int {
	idx := dataset.NewIndex(ds)
	added := make(map[string]bool)
	var entries []dataset.CatalogEntry
	for i := range ds.Picks {
		p := &ds.Picks[i]
		if p.FilmID == "" || added[p.FilmID] || idx.HasFilm(p.FilmID) {
			continue
		}
		entry := dataset.CatalogEntry{
			FilmID:       p.FilmID,
			Title:        p.FilmTitle,
			CriterionURL: p.CriterionFilmURL,
			Synthetic:    true,
		}
		if p.IsAggregate() {
			entry.IsBoxSet = true
			if p.BoxSetName != "" {
				entry.Title = p.BoxSetName
			}
			if entry.CriterionURL == "" {
				entry.CriterionURL = p.BoxSetCriterionURL
			}
		} else {
			for _, raw := range rawFor(idx, p) {
				if entry.Year == nil {
					entry.Year = dataset.NormalizeYear(raw.FilmYear)
				}
				if entry.CriterionURL == "" {
					entry.CriterionURL = raw.CriterionFilmURL
				}
			}
		}
		if dataset.IsBoxSetURL(entry.CriterionURL) {
			entry.IsBoxSet = true
		}
		added[p.FilmID] = true
		entries = append(entries, entry)
	}
	ds.Catalog = append(ds.Catalog, entries...)
	return len(entries)
}

func rawFor(idx *dataset.Index, p *dataset.Pick) []*dataset.RawPick {
	if raws := idx.RawByFilm(p.GuestSlug, p.FilmID); len(raws) > 0 {
		return raws
	}
	return idx.RawByTitle(p.GuestSlug, p.FilmTitle)
}

// backfillSources tags untagged raw picks by whether they carry a film page
// URL, then lets picks inherit the tag of their raw pick, matched by
// lowercased title and then by film id. Manual picks are never retagged; a
// pick with no raw counterpart keeps its tag or falls back to letterboxd.
func backfillSources(ds *dataset.Dataset) (raw, picks int) {
	for i := range ds.RawPicks {
		r := &ds.RawPicks[i]
		if r.Source != "" {
			continue
		}
		if strings.TrimSpace(r.CriterionFilmURL) != "" {
			r.Source = dataset.SourceCriterion
		} else {
			r.Source = dataset.SourceLetterboxd
		}
		raw++
	}

	byTitle := make(map[filmKey]dataset.Source, len(ds.RawPicks))
	byFilm := make(map[filmKey]dataset.Source, len(ds.RawPicks))
	for _, r := range ds.RawPicks {
		byTitle[filmKey{r.GuestSlug, strings.ToLower(r.FilmTitle)}] = r.Source
		if r.FilmID != "" {
			byFilm[filmKey{r.GuestSlug, r.FilmID}] = r.Source
		}
	}

	for i := range ds.Picks {
		p := &ds.Picks[i]
		if p.Source == dataset.SourceManual {
			continue
		}
		source, ok := byTitle[filmKey{p.GuestSlug, strings.ToLower(p.FilmTitle)}]
		if !ok {
			source, ok = byFilm[filmKey{p.GuestSlug, p.FilmID}]
		}
		switch {
		case ok:
		case p.Source != "":
			continue
		default:
			source = dataset.SourceLetterboxd
		}
		if p.Source != source {
			p.Source = source
			picks++
		}
	}
	return raw, picks
}
