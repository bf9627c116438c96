package matcher

import (
	"log/slog"
	"strings"

	"closetpicks/internal/dataset"
	"closetpicks/internal/logging"
)

// Report summarizes one matching pass.
type Report struct {
	RawMatched   int            `json:"raw_matched"`
	RawUnmatched int            `json:"raw_unmatched"`
	PicksRekeyed int            `json:"picks_rekeyed"`
	Methods      map[string]int `json:"methods,omitempty"`
}

func (r *Report) count(method string) {
	if r.Methods == nil {
		r.Methods = make(map[string]int)
	}
	if IsFuzzy(method) {
		method = "fuzzy"
	}
	r.Methods[method]++
}

// Pass resolves raw picks that have no film id yet, then re-keys picks whose
// film id is missing from the catalog. Raw picks from the primary source are
// treated as structured references.
func Pass(ds *dataset.Dataset, m *Matcher, logger *slog.Logger) Report {
	logger = logging.NewComponentLogger(logger, "matcher")
	var report Report

	for i := range ds.RawPicks {
		raw := &ds.RawPicks[i]
		if strings.TrimSpace(raw.FilmID) != "" {
			continue
		}
		res := m.Match(Reference{
			Title:      raw.FilmTitle,
			Year:       raw.FilmYear,
			URL:        raw.CriterionFilmURL,
			Structured: raw.Source.Primary(),
		})
		if res.FilmID == "" {
			continue
		}
		raw.FilmID = res.FilmID
		raw.MatchMethod = res.Method
		report.count(res.Method)
		if res.Entry == nil {
			report.RawUnmatched++
			logger.Debug("raw pick unmatched",
				slog.String(logging.FieldGuest, raw.GuestSlug),
				slog.String("title", raw.FilmTitle),
				slog.String("film_id", res.FilmID),
				slog.Int("best_score", res.Score),
			)
			continue
		}
		report.RawMatched++
		raw.CatalogTitle = res.Entry.Title
		if res.Entry.SpineNumber != nil {
			raw.CatalogSpine = dataset.IntPtr(*res.Entry.SpineNumber)
		}
	}

	idx := dataset.NewIndex(ds)
	for i := range ds.Picks {
		p := &ds.Picks[i]
		if p.IsAggregate() || idx.HasFilm(p.FilmID) {
			continue
		}
		ref := Reference{Title: p.FilmTitle, URL: p.CriterionFilmURL}
		if raws := idx.RawByTitle(p.GuestSlug, p.FilmTitle); len(raws) > 0 {
			ref.Year = raws[0].FilmYear
			if ref.URL == "" {
				ref.URL = raws[0].CriterionFilmURL
			}
			ref.Structured = raws[0].Source.Primary()
		}
		res := m.Match(ref)
		if res.Entry == nil || res.FilmID == p.FilmID {
			continue
		}
		logger.Info("pick re-keyed to catalog entry",
			slog.String(logging.FieldGuest, p.GuestSlug),
			slog.String("from", p.FilmID),
			slog.String("to", res.FilmID),
			slog.String("method", res.Method),
		)
		p.FilmID = res.FilmID
		report.PicksRekeyed++
	}

	logger.Info("matching pass complete",
		slog.Int("raw_matched", report.RawMatched),
		slog.Int("raw_unmatched", report.RawUnmatched),
		slog.Int("picks_rekeyed", report.PicksRekeyed),
	)
	return report
}
