// Package visits attributes picks and raw picks to the visit that produced
// them.
//
// Evidence is applied strongest last: a video id in the pick's timestamp URL,
// then the index a per-visit collection page assigned to the matching raw
// pick. Picks with no evidence keep a valid index they already carry and
// otherwise default to visit 1. The heuristic is best effort; the only hard
// guarantee is that every index is in range.
package visits

import (
	"log/slog"
	"strings"

	"closetpicks/internal/dataset"
	"closetpicks/internal/logging"
)

// Report summarizes one attribution run.
type Report struct {
	ByVideo       int `json:"by_video"`
	ByCriterion   int `json:"by_criterion"`
	Defaulted     int `json:"defaulted"`
	RawCrossRef   int `json:"raw_cross_ref"`
	RawOtherVisit int `json:"raw_other_visit"`
	Clamped       int `json:"clamped"`
	Changed       int `json:"changed"`
}

type slugKey struct {
	slug string
	key  string
}

type attributor struct {
	ds     *dataset.Dataset
	logger *slog.Logger
	report Report

	visitCount   map[string]int
	videoVisit   map[slugKey]int
	multiPageSet map[string]bool
}

// Attribute assigns visit_index on every pick and raw pick.
func Attribute(ds *dataset.Dataset, logger *slog.Logger) Report {
	a := &attributor{
		ds:           ds,
		logger:       logging.NewComponentLogger(logger, "visits"),
		visitCount:   make(map[string]int, len(ds.Guests)),
		videoVisit:   make(map[slugKey]int),
		multiPageSet: make(map[string]bool),
	}
	a.indexGuests()

	pickBefore := make([]int, len(ds.Picks))
	for i, p := range ds.Picks {
		pickBefore[i] = p.VisitIndex
	}
	rawBefore := make([]int, len(ds.RawPicks))
	for i, r := range ds.RawPicks {
		rawBefore[i] = r.VisitIndex
	}

	a.attributePicks()
	a.overrideFromCriterion()
	a.attributeRaw()
	a.clamp()

	for i, p := range ds.Picks {
		if p.VisitIndex != pickBefore[i] {
			a.report.Changed++
		}
	}
	for i, r := range ds.RawPicks {
		if r.VisitIndex != rawBefore[i] {
			a.report.Changed++
		}
	}
	a.logger.Info("visit attribution complete",
		slog.Int("by_video", a.report.ByVideo),
		slog.Int("by_criterion", a.report.ByCriterion),
		slog.Int("defaulted", a.report.Defaulted),
		slog.Int("changed", a.report.Changed),
	)
	return a.report
}

func (a *attributor) indexGuests() {
	for _, g := range a.ds.Guests {
		a.visitCount[g.Slug] = g.VisitCount()
		if len(g.Visits) < 2 {
			continue
		}
		pages := make(map[string]bool)
		for i, v := range g.Visits {
			if v.YouTubeVideoID != "" {
				a.videoVisit[slugKey{g.Slug, v.YouTubeVideoID}] = i + 1
			}
			if v.VimeoVideoID != "" {
				a.videoVisit[slugKey{g.Slug, v.VimeoVideoID}] = i + 1
			}
			if v.CriterionPageURL != "" {
				pages[v.CriterionPageURL] = true
			}
		}
		if len(pages) >= 2 {
			a.multiPageSet[g.Slug] = true
		}
	}
}

func (a *attributor) multiVisit(slug string) bool {
	return a.visitCount[slug] >= 2
}

func (a *attributor) valid(slug string, index int) bool {
	n := a.visitCount[slug]
	if n == 0 {
		n = 1
	}
	return index >= 1 && index <= n
}

func (a *attributor) videoIndex(p *dataset.Pick) int {
	if id := dataset.YouTubeIDFromURL(p.YouTubeTimestampURL); id != "" {
		if idx, ok := a.videoVisit[slugKey{p.GuestSlug, id}]; ok {
			return idx
		}
	}
	if id := dataset.VimeoIDFromURL(p.VimeoTimestampURL); id != "" {
		if idx, ok := a.videoVisit[slugKey{p.GuestSlug, id}]; ok {
			return idx
		}
	}
	return 0
}

func (a *attributor) attributePicks() {
	for i := range a.ds.Picks {
		p := &a.ds.Picks[i]
		if !a.multiVisit(p.GuestSlug) {
			p.VisitIndex = 1
			continue
		}
		if idx := a.videoIndex(p); idx > 0 {
			p.VisitIndex = idx
			a.report.ByVideo++
			continue
		}
		if a.valid(p.GuestSlug, p.VisitIndex) {
			continue
		}
		p.VisitIndex = 1
		a.report.Defaulted++
	}
}

// overrideFromCriterion applies per-visit page evidence for guests whose
// visits carry two or more distinct collection page URLs.
func (a *attributor) overrideFromCriterion() {
	if len(a.multiPageSet) == 0 {
		return
	}
	byKey := make(map[slugKey]int)
	for _, r := range a.ds.RawPicks {
		if r.Source != dataset.SourceCriterion || r.VisitIndex == 0 || !a.multiPageSet[r.GuestSlug] {
			continue
		}
		if r.FilmID != "" {
			byKey[slugKey{r.GuestSlug, r.FilmID}] = r.VisitIndex
		}
		if t := strings.ToLower(strings.TrimSpace(r.FilmTitle)); t != "" {
			byKey[slugKey{r.GuestSlug, t}] = r.VisitIndex
		}
	}
	for i := range a.ds.Picks {
		p := &a.ds.Picks[i]
		if p.Source != dataset.SourceCriterion || !a.multiPageSet[p.GuestSlug] {
			continue
		}
		idx, ok := byKey[slugKey{p.GuestSlug, p.FilmID}]
		if !ok {
			idx, ok = byKey[slugKey{p.GuestSlug, strings.ToLower(strings.TrimSpace(p.FilmTitle))}]
		}
		if ok && p.VisitIndex != idx {
			p.VisitIndex = idx
			a.report.ByCriterion++
		}
	}
}

func (a *attributor) attributeRaw() {
	pickVisit := make(map[slugKey]int)
	covered := make(map[string]map[int]bool)
	for _, p := range a.ds.Picks {
		if p.VisitIndex == 0 {
			continue
		}
		if p.FilmID != "" {
			pickVisit[slugKey{p.GuestSlug, p.FilmID}] = p.VisitIndex
		}
		if t := strings.ToLower(strings.TrimSpace(p.FilmTitle)); t != "" {
			pickVisit[slugKey{p.GuestSlug, t}] = p.VisitIndex
		}
		if a.multiVisit(p.GuestSlug) {
			if covered[p.GuestSlug] == nil {
				covered[p.GuestSlug] = make(map[int]bool)
			}
			covered[p.GuestSlug][p.VisitIndex] = true
		}
	}

	for i := range a.ds.RawPicks {
		r := &a.ds.RawPicks[i]
		if r.Source == dataset.SourceCriterion && r.VisitIndex != 0 {
			continue
		}
		if !a.multiVisit(r.GuestSlug) {
			r.VisitIndex = 1
			continue
		}
		idx, ok := pickVisit[slugKey{r.GuestSlug, r.FilmID}]
		if !ok || r.FilmID == "" {
			idx, ok = pickVisit[slugKey{r.GuestSlug, strings.ToLower(strings.TrimSpace(r.FilmTitle))}]
		}
		if ok {
			r.VisitIndex = idx
			a.report.RawCrossRef++
			continue
		}
		if a.valid(r.GuestSlug, r.VisitIndex) {
			continue
		}
		known := covered[r.GuestSlug]
		if len(known) == 1 && a.visitCount[r.GuestSlug] == 2 {
			r.VisitIndex = 2
			if known[2] {
				r.VisitIndex = 1
			}
			a.report.RawOtherVisit++
			continue
		}
		r.VisitIndex = 1
		a.report.Defaulted++
	}
}

func (a *attributor) clamp() {
	fix := func(slug string, index *int) {
		n := a.visitCount[slug]
		if n == 0 {
			n = 1
		}
		switch {
		case *index < 1:
			*index = 1
		case *index > n:
			*index = n
		default:
			return
		}
		a.report.Clamped++
	}
	for i := range a.ds.Picks {
		fix(a.ds.Picks[i].GuestSlug, &a.ds.Picks[i].VisitIndex)
	}
	for i := range a.ds.RawPicks {
		fix(a.ds.RawPicks[i].GuestSlug, &a.ds.RawPicks[i].VisitIndex)
	}
}
