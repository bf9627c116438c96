// Package identity folds duplicate, fragmented, and mislabeled guest records
// into canonical identities, driven by directive tables.
package identity

import (
	"log/slog"

	"closetpicks/internal/dataset"
	"closetpicks/internal/directives"
	"closetpicks/internal/logging"
)

type resolver struct {
	ds     *dataset.Dataset
	logger *slog.Logger
	report Report
}

// Resolve applies the table's guest directives to ds in a fixed order: name
// fixes, repeat-visit merges, name-variant merges, solo-into-pair merges,
// synthetic pairs, video fixes, guest types. Every step is idempotent.
func Resolve(ds *dataset.Dataset, table *directives.Table, logger *slog.Logger) Report {
	r := &resolver{ds: ds, logger: logging.NewComponentLogger(logger, "identity")}
	if table == nil {
		return r.report
	}
	r.applyNameFixes(table.NameFixes)
	for _, kind := range []directives.MergeKind{
		directives.MergeRepeatVisit,
		directives.MergeNameVariant,
		directives.MergeSoloIntoPair,
	} {
		for _, m := range table.Merges(kind) {
			r.merge(m)
		}
	}
	for _, p := range table.SyntheticPairs {
		r.createPair(p)
	}
	r.applyVideoFixes(table.VideoFixes)
	r.applyGuestTypes(table.GuestTypes)

	r.logger.Info("identity directives applied",
		slog.Int("changes", r.report.Total()),
		slog.Int("merged", len(r.report.Merges)),
		slog.Int("skipped", len(r.report.Skips)),
	)
	return r.report
}

func (r *resolver) skip(directive, target, reason string) {
	r.report.Skips = append(r.report.Skips, Skip{Directive: directive, Target: target, Reason: reason})
	logging.WarnWithContext(r.logger, "directive skipped", "directive_skipped",
		slog.String("directive", directive),
		slog.String(logging.FieldGuest, target),
		slog.String("reason", reason),
		slog.String(logging.FieldErrorHint, "check the directive table against guests.json"),
		slog.String(logging.FieldImpact, "guest records left as scraped"),
	)
}

func (r *resolver) applyNameFixes(fixes []directives.NameFix) {
	for _, fix := range fixes {
		for i := range r.ds.Guests {
			g := &r.ds.Guests[i]
			if g.Name == fix.From {
				g.Name = fix.To
				r.report.changed(DirectiveNameFix, 1)
			}
		}
	}
}

func (r *resolver) applyVideoFixes(fixes []directives.VideoFix) {
	for _, fix := range fixes {
		g := r.ds.Guest(fix.Slug)
		if g == nil {
			r.skip(DirectiveVideoFix, fix.Slug, "guest not found")
			continue
		}
		changed := 0
		if g.YouTubeVideoID == fix.VideoID {
			g.YouTubeVideoID = ""
			g.YouTubeVideoURL = ""
			g.VimeoVideoID = ""
			changed++
		}
		for i := range g.Visits {
			if g.Visits[i].YouTubeVideoID == fix.VideoID {
				g.Visits[i].YouTubeVideoID = ""
				g.Visits[i].YouTubeVideoURL = ""
				changed++
			}
		}
		for _, p := range r.ds.PicksFor(g.Slug) {
			if p.YouTubeTimestampURL != "" && dataset.YouTubeIDFromURL(p.YouTubeTimestampURL) == fix.VideoID {
				p.YouTubeTimestampURL = ""
				changed++
			}
		}
		r.report.changed(DirectiveVideoFix, changed)
	}
}

func (r *resolver) applyGuestTypes(types []directives.GuestType) {
	for _, gt := range types {
		g := r.ds.Guest(gt.Slug)
		if g == nil {
			r.logger.Debug("guest type target absent", slog.String(logging.FieldGuest, gt.Slug))
			continue
		}
		want := gt.Type
		if want == "person" {
			want = ""
		}
		if g.GuestType != want {
			g.GuestType = want
			r.report.changed(DirectiveGuestType, 1)
		}
	}
}
