// Package collision repairs catalog identifiers that were derived for two
// different films, using spine-keyed corrections as the authority.
package collision

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"closetpicks/internal/dataset"
	"closetpicks/internal/directives"
	"closetpicks/internal/logging"
	"closetpicks/internal/services"
	"closetpicks/internal/textutil"
)

// ErrUnresolvedCollision reports duplicate catalog ids that survive every
// correction. The correction table is incomplete; the run must halt.
var ErrUnresolvedCollision = errors.New("unresolved film id collision")

// Report summarizes one correction run.
type Report struct {
	EntriesCorrected int      `json:"entries_corrected"`
	RawRekeyed       int      `json:"raw_rekeyed"`
	PicksRekeyed     int      `json:"picks_rekeyed"`
	Unresolvable     int      `json:"unresolvable"`
	Ambiguous        []string `json:"ambiguous,omitempty"`
}

// Changed reports whether any record was rewritten.
func (r Report) Changed() bool {
	return r.EntriesCorrected+r.RawRekeyed+r.PicksRekeyed > 0
}

// Correct applies corrections to the catalog, then re-keys raw picks and
// picks that carry an ambiguous id by their own Criterion URL.
func Correct(ds *dataset.Dataset, corrections []directives.SpineCorrection, logger *slog.Logger) (Report, error) {
	logger = logging.NewComponentLogger(logger, "collision")
	var report Report

	ambiguous := collidingIDs(ds.Catalog)
	for _, c := range corrections {
		if fixCatalogEntry(ds, c, logger) {
			report.EntriesCorrected++
		}
	}

	byURL := make(map[string]directives.SpineCorrection, len(corrections))
	groups := make(map[string][]string, len(corrections))
	for _, c := range corrections {
		if ref, ok := dataset.ParseCriterionURL(c.CriterionURL); ok {
			byURL[ref.Key()] = c
		}
		base := textutil.Slugify(c.Title)
		groups[base] = append(groups[base], c.FilmID)
	}
	for base, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		ambiguous[base] = true
		for _, id := range ids {
			ambiguous[id] = true
		}
	}
	for id := range ambiguous {
		report.Ambiguous = append(report.Ambiguous, id)
	}
	slices.Sort(report.Ambiguous)

	resolve := func(rawURL string) (directives.SpineCorrection, bool) {
		ref, ok := dataset.ParseCriterionURL(rawURL)
		if !ok {
			return directives.SpineCorrection{}, false
		}
		c, ok := byURL[ref.Key()]
		return c, ok
	}

	for i := range ds.RawPicks {
		raw := &ds.RawPicks[i]
		if !ambiguous[raw.FilmID] {
			continue
		}
		c, ok := resolve(raw.CriterionFilmURL)
		if !ok {
			report.Unresolvable++
			warnUnresolved(logger, raw.GuestSlug, raw.FilmID, raw.CriterionFilmURL, "raw pick")
			continue
		}
		if raw.FilmID == c.FilmID && raw.CatalogSpine != nil && *raw.CatalogSpine == c.Spine {
			continue
		}
		raw.FilmID = c.FilmID
		raw.CatalogSpine = dataset.IntPtr(c.Spine)
		raw.CatalogTitle = c.Title
		report.RawRekeyed++
	}

	idx := dataset.NewIndex(ds)
	for i := range ds.Picks {
		p := &ds.Picks[i]
		if !ambiguous[p.FilmID] {
			continue
		}
		url := p.CriterionFilmURL
		if url == "" {
			for _, raw := range idx.RawByTitle(p.GuestSlug, p.FilmTitle) {
				if raw.CriterionFilmURL != "" {
					url = raw.CriterionFilmURL
					break
				}
			}
		}
		c, ok := resolve(url)
		if !ok {
			report.Unresolvable++
			warnUnresolved(logger, p.GuestSlug, p.FilmID, url, "pick")
			continue
		}
		if p.FilmID == c.FilmID && p.CatalogSpine != nil && *p.CatalogSpine == c.Spine {
			continue
		}
		logger.Info("pick re-keyed by source url",
			slog.String(logging.FieldGuest, p.GuestSlug),
			slog.String("from", p.FilmID),
			slog.String("to", c.FilmID),
		)
		p.FilmID = c.FilmID
		p.CatalogSpine = dataset.IntPtr(c.Spine)
		report.PicksRekeyed++
	}

	if dupes := duplicateIDs(ds.Catalog); len(dupes) > 0 {
		return report, services.Wrap(services.ErrConfiguration, "collision", "verify",
			"catalog ids still collide: "+strings.Join(dupes, ", "),
			ErrUnresolvedCollision)
	}
	logger.Info("collision correction complete",
		slog.Int("entries_corrected", report.EntriesCorrected),
		slog.Int("raw_rekeyed", report.RawRekeyed),
		slog.Int("picks_rekeyed", report.PicksRekeyed),
	)
	return report, nil
}

func fixCatalogEntry(ds *dataset.Dataset, c directives.SpineCorrection, logger *slog.Logger) bool {
	for i := range ds.Catalog {
		e := &ds.Catalog[i]
		if e.SpineNumber == nil || *e.SpineNumber != c.Spine {
			continue
		}
		if e.FilmID == c.FilmID {
			return false
		}
		logger.Info("catalog entry corrected",
			slog.Int("spine", c.Spine),
			slog.String("from", e.FilmID),
			slog.String("to", c.FilmID),
		)
		e.FilmID = c.FilmID
		e.Title = c.Title
		e.Year = dataset.NormalizeYear(c.Year)
		e.Director = c.Director
		if c.CriterionURL != "" {
			e.CriterionURL = c.CriterionURL
		}
		e.ClearEnrichment()
		return true
	}
	logger.Debug("no catalog entry carries spine", slog.Int("spine", c.Spine))
	return false
}

func warnUnresolved(logger *slog.Logger, guest, filmID, url, kind string) {
	reason := "no criterion url"
	if url != "" {
		reason = "url matches no correction"
	}
	logging.WarnWithContext(logger, "ambiguous id left unresolved", "collision_unresolved",
		slog.String(logging.FieldGuest, guest),
		slog.String("film_id", filmID),
		slog.String("record", kind),
		slog.String("url", url),
		slog.String("reason", reason),
		slog.String(logging.FieldErrorHint, "add the film's criterion url to the spine correction table"),
		slog.String(logging.FieldImpact, "record keeps its ambiguous id"),
	)
}

func collidingIDs(catalog []dataset.CatalogEntry) map[string]bool {
	out := make(map[string]bool)
	for id, n := range idCounts(catalog) {
		if n > 1 {
			out[id] = true
		}
	}
	return out
}

func idCounts(catalog []dataset.CatalogEntry) map[string]int {
	counts := make(map[string]int, len(catalog))
	for _, e := range catalog {
		counts[e.FilmID]++
	}
	return counts
}

func duplicateIDs(catalog []dataset.CatalogEntry) []string {
	var dupes []string
	for id, n := range idCounts(catalog) {
		if n > 1 {
			dupes = append(dupes, fmt.Sprintf("%s (x%d)", id, n))
		}
	}
	slices.Sort(dupes)
	return dupes
}
