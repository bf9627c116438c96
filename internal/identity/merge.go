package identity

import (
	"log/slog"
	"slices"
	"strings"

	"closetpicks/internal/dataset"
	"closetpicks/internal/directives"
	"closetpicks/internal/logging"
)

func (r *resolver) merge(m directives.GuestMerge) {
	directive := string(m.Kind)
	primary := r.ds.Guest(m.Primary)
	secondary := r.ds.Guest(m.Secondary)
	switch {
	case secondary == nil && primary != nil:
		r.logger.Debug("merge already applied",
			slog.String("directive", directive),
			slog.String("primary", m.Primary),
			slog.String("secondary", m.Secondary),
		)
		return
	case secondary == nil:
		r.skip(directive, m.Secondary, "neither primary nor secondary exists")
		return
	case primary == nil:
		r.skip(directive, m.Primary, "primary not found")
		return
	}

	if m.Kind == directives.MergeRepeatVisit {
		remap := extendVisits(primary, secondary)
		for _, p := range r.ds.PicksFor(secondary.Slug) {
			p.VisitIndex = remap(p.VisitIndex)
		}
		for _, raw := range r.ds.RawPicksFor(secondary.Slug) {
			if raw.VisitIndex != 0 {
				raw.VisitIndex = remap(raw.VisitIndex)
			}
		}
	}
	fillMissing(primary, secondary)

	picks, raw := r.ds.Reassign(secondary.Slug, primary.Slug)
	r.ds.RemoveGuest(m.Secondary)
	// RemoveGuest shifts the slice; re-resolve before touching the primary.
	if primary = r.ds.Guest(m.Primary); primary != nil && m.Kind == directives.MergeRepeatVisit {
		dedupeVisitVideos(primary)
	}

	r.report.Merges = append(r.report.Merges, MergeRecord{
		Directive:  directive,
		Primary:    m.Primary,
		Secondary:  m.Secondary,
		PicksMoved: picks,
		RawMoved:   raw,
	})
	r.report.changed(directive, 1)
	r.logger.Info("guest merged",
		slog.String("directive", directive),
		slog.String("primary", m.Primary),
		slog.String("secondary", m.Secondary),
		slog.Int("picks_moved", picks),
		slog.Int("raw_moved", raw),
	)
}

// visitsOf returns the guest's visit list, falling back to the single visit
// built from its top-level fields. That visit is kept even when empty: a
// guest always accounts for at least one occasion.
func visitsOf(g *dataset.Guest) []dataset.Visit {
	if len(g.Visits) > 0 {
		return g.Visits
	}
	return []dataset.Visit{g.TopLevelVisit()}
}

// extendVisits appends every secondary visit to the primary's list. Only a
// visit whose Letterboxd list the primary already has is folded into the
// existing one; shared videos stay separate occasions and are cleared
// afterwards by dedupeVisitVideos. The returned function maps a secondary
// visit index to its index on the primary.
func extendVisits(primary, secondary *dataset.Guest) func(int) int {
	merged := slices.Clone(visitsOf(primary))
	lists := make(map[string]int, len(merged))
	for i, v := range merged {
		if list := strings.TrimSpace(v.LetterboxdListURL); list != "" {
			lists[list] = i + 1
		}
	}

	incoming := visitsOf(secondary)
	mapping := make([]int, len(incoming))
	for j, v := range incoming {
		list := strings.TrimSpace(v.LetterboxdListURL)
		if pos, ok := lists[list]; ok && list != "" {
			mapping[j] = pos
			continue
		}
		merged = append(merged, v)
		mapping[j] = len(merged)
		if list != "" {
			lists[list] = len(merged)
		}
	}
	primary.Visits = merged

	return func(index int) int {
		if index < 1 || index > len(mapping) {
			return mapping[0]
		}
		return mapping[index-1]
	}
}

func fillMissing(primary, secondary *dataset.Guest) {
	if primary.Profession == "" {
		primary.Profession = secondary.Profession
	}
	if primary.PhotoURL == "" {
		primary.PhotoURL = secondary.PhotoURL
	}
	if primary.EpisodeDate == "" {
		primary.EpisodeDate = secondary.EpisodeDate
	}
}

// dedupeVisitVideos clears a visit's video references when an earlier visit
// already carries the same one.
func dedupeVisitVideos(g *dataset.Guest) {
	seenYouTube := make(map[string]bool, len(g.Visits))
	seenVimeo := make(map[string]bool, len(g.Visits))
	for i := range g.Visits {
		v := &g.Visits[i]
		if v.YouTubeVideoID != "" {
			if seenYouTube[v.YouTubeVideoID] {
				v.YouTubeVideoID = ""
				v.YouTubeVideoURL = ""
			} else {
				seenYouTube[v.YouTubeVideoID] = true
			}
		}
		if v.VimeoVideoID != "" {
			if seenVimeo[v.VimeoVideoID] {
				v.VimeoVideoID = ""
			} else {
				seenVimeo[v.VimeoVideoID] = true
			}
		}
	}
}

func (r *resolver) createPair(p directives.SyntheticPair) {
	if r.ds.Guest(p.Slug) != nil {
		r.logger.Debug("synthetic pair already exists", slog.String(logging.FieldGuest, p.Slug))
		return
	}
	sources := make([]dataset.Guest, 0, len(p.From))
	for _, slug := range p.From {
		g := r.ds.Guest(slug)
		if g == nil {
			r.skip(DirectiveSyntheticPair, slug, "source guest not found for "+p.Slug)
			return
		}
		sources = append(sources, *g)
	}

	pair := sources[0]
	pair.Slug = p.Slug
	pair.Name = p.Name
	pair.GuestType = ""
	pair.PickCount = 0
	if p.SharedVideo != "" {
		pair.YouTubeVideoID = p.SharedVideo
		pair.YouTubeVideoURL = "https://www.youtube.com/watch?v=" + p.SharedVideo
		pair.VimeoVideoID = ""
	}
	pair.Visits = nil
	if v := pair.TopLevelVisit(); !v.IsZero() {
		pair.Visits = []dataset.Visit{v}
	}
	for i := 1; i < len(sources); i++ {
		fillMissing(&pair, &sources[i])
		if pair.LetterboxdListURL == "" {
			pair.LetterboxdListURL = sources[i].LetterboxdListURL
		}
		if pair.CriterionPageURL == "" {
			pair.CriterionPageURL = sources[i].CriterionPageURL
		}
	}
	r.ds.Guests = append(r.ds.Guests, pair)

	for _, src := range sources {
		for _, pk := range r.ds.PicksFor(src.Slug) {
			pk.VisitIndex = 1
		}
		for _, raw := range r.ds.RawPicksFor(src.Slug) {
			raw.VisitIndex = 0
		}
		picks, raw := r.ds.Reassign(src.Slug, p.Slug)
		r.ds.RemoveGuest(src.Slug)
		r.report.Merges = append(r.report.Merges, MergeRecord{
			Directive:  DirectiveSyntheticPair,
			Primary:    p.Slug,
			Secondary:  src.Slug,
			PicksMoved: picks,
			RawMoved:   raw,
		})
	}
	r.report.changed(DirectiveSyntheticPair, 1)
	r.logger.Info("synthetic pair created",
		slog.String(logging.FieldGuest, p.Slug),
		slog.Any("sources", p.From),
	)
}
