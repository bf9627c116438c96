package enrich

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"closetpicks/internal/dataset"
	"closetpicks/internal/logging"
	"closetpicks/internal/services"
	"closetpicks/internal/services/llm"
	"closetpicks/internal/textutil"
)

type video struct {
	id    string
	vimeo bool
}

func (v video) timestampURL(seconds int) string {
	if v.vimeo {
		return dataset.VimeoTimestampURL(v.id, seconds)
	}
	return dataset.YouTubeTimestampURL(v.id, seconds)
}

// visitVideo resolves the video for a 1-based visit index. Visit 1 falls
// back to the guest's top-level reference.
func visitVideo(g *dataset.Guest, index int) (video, bool) {
	var candidates []dataset.Visit
	if index >= 1 && index <= len(g.Visits) {
		candidates = append(candidates, g.Visits[index-1])
	}
	if index == 1 {
		candidates = append(candidates, g.TopLevelVisit())
	}
	for _, v := range candidates {
		if id := strings.TrimSpace(v.YouTubeVideoID); id != "" {
			return video{id: id}, true
		}
		if id := dataset.YouTubeIDFromURL(v.YouTubeVideoURL); id != "" {
			return video{id: id}, true
		}
		if id := strings.TrimSpace(v.VimeoVideoID); id != "" {
			return video{id: id, vimeo: true}, true
		}
	}
	return video{}, false
}

// extraction carries the read-only state shared by every shard.
type extraction struct {
	guests  map[string]*dataset.Guest
	picks   map[string][]*dataset.Pick
	years   map[string]*int
	cleaner *textutil.QuoteCleaner
	cp      dataset.Checkpoint
}

func (e *Enricher) prepareExtraction(ds *dataset.Dataset) (*extraction, error) {
	cp, err := e.loadCheckpoint()
	if err != nil {
		return nil, err
	}
	x := &extraction{
		guests: make(map[string]*dataset.Guest, len(ds.Guests)),
		picks:  make(map[string][]*dataset.Pick),
		years:  make(map[string]*int, len(ds.Catalog)),
		cp:     cp,
	}
	titles := make([]string, 0, len(ds.Catalog))
	for i := range ds.Catalog {
		entry := &ds.Catalog[i]
		titles = append(titles, entry.Title)
		x.years[entry.FilmID] = entry.Year
	}
	x.cleaner = textutil.NewQuoteCleaner(titles)
	for i := range ds.Guests {
		x.guests[ds.Guests[i].Slug] = &ds.Guests[i]
	}
	for i := range ds.Picks {
		p := &ds.Picks[i]
		x.picks[p.GuestSlug] = append(x.picks[p.GuestSlug], p)
	}
	return x, nil
}

// ExtractionPass attaches excerpts to picks. The first pass reads each
// guest's first-visit transcript; the second reads later visits for picks
// still at confidence none.
func (e *Enricher) ExtractionPass(ctx context.Context, ds *dataset.Dataset) (primary, second PassReport, err error) {
	if e.deps.Extractor == nil {
		return primary, second, services.Wrap(services.ErrConfiguration, "enrich", PassExtraction, "extractor not configured", nil)
	}
	x, err := e.prepareExtraction(ds)
	if err != nil {
		return primary, second, err
	}

	var firstKeys, visitKeys []string
	for slug, g := range x.guests {
		if len(x.picks[slug]) == 0 {
			continue
		}
		firstKeys = append(firstKeys, slug)
		if len(g.Visits) >= 2 {
			visitKeys = append(visitKeys, slug)
		}
	}

	primary, err = e.forEachShard(ctx, PassExtraction, firstKeys, func(ctx context.Context, logger *slog.Logger, slug string) (PassReport, error) {
		return e.extractFirstVisit(services.WithGuest(ctx, slug), x, slug)
	})
	e.logPass(PassExtraction, primary)
	if err != nil {
		return primary, second, err
	}

	second, err = e.forEachShard(ctx, PassVisits, visitKeys, func(ctx context.Context, logger *slog.Logger, slug string) (PassReport, error) {
		return e.extractLaterVisits(services.WithGuest(ctx, slug), x, slug)
	})
	e.logPass(PassVisits, second)
	return primary, second, err
}

func (e *Enricher) logPass(pass string, r PassReport) {
	e.logger.Info("extraction pass complete",
		logging.String(logging.FieldPass, pass),
		logging.Int("considered", r.Considered),
		logging.Int("enriched", r.Enriched),
		logging.Int("no_enrichment", r.NoEnrichment),
		logging.Int("skipped", r.Skipped),
		logging.Int("excerpts", r.Excerpts),
		logging.Int("upgraded", r.Upgraded),
	)
}

func (e *Enricher) extractFirstVisit(ctx context.Context, x *extraction, slug string) (PassReport, error) {
	logger := logging.WithContext(ctx, e.logger)
	if _, done := x.cp[slug]; done {
		return PassReport{Skipped: 1}, nil
	}
	guest := x.guests[slug]
	multiVisit := len(guest.Visits) >= 2
	targets := selectTargets(x.picks[slug], func(p *dataset.Pick) bool {
		return !multiVisit || p.VisitIndex <= 1
	})
	return e.extractVisit(ctx, logger, x, guest, 1, slug, targets)
}

func (e *Enricher) extractLaterVisits(ctx context.Context, x *extraction, slug string) (PassReport, error) {
	logger := logging.WithContext(ctx, e.logger)
	guest := x.guests[slug]
	var report PassReport
	for visit := 2; visit <= len(guest.Visits); visit++ {
		key := slug + "_visit" + strconv.Itoa(visit)
		if _, done := x.cp[key]; done {
			report.Skipped++
			continue
		}
		targets := selectTargets(x.picks[slug], func(p *dataset.Pick) bool {
			return p.ExtractionConfidence.Rank() == 0 && !p.HasQuote()
		})
		if len(targets) == 0 {
			break
		}
		r, err := e.extractVisit(ctx, logger, x, guest, visit, key, targets)
		report.add(r)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// selectTargets keeps picks matching keep, never offering manual excerpts
// for replacement.
func selectTargets(picks []*dataset.Pick, keep func(*dataset.Pick) bool) []*dataset.Pick {
	var out []*dataset.Pick
	for _, p := range picks {
		if p.ExtractionConfidence == dataset.ConfidenceManual {
			continue
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// extractVisit runs batched extraction for one visit's transcript and
// checkpoints key when at least one batch succeeded.
func (e *Enricher) extractVisit(ctx context.Context, logger *slog.Logger, x *extraction, guest *dataset.Guest, visit int, key string, targets []*dataset.Pick) (PassReport, error) {
	if len(targets) == 0 {
		return PassReport{Skipped: 1}, nil
	}
	vid, ok := visitVideo(guest, visit)
	if !ok {
		return PassReport{Skipped: 1}, nil
	}
	segments, err := e.deps.Transcripts.Transcript(vid.id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Debug("no transcript", logging.String("video_id", vid.id), logging.Int("visit", visit))
			return PassReport{Skipped: 1}, nil
		}
		logging.WarnWithContext(logger, "transcript unreadable", "transcript_unreadable",
			logging.String("video_id", vid.id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-download the transcript file"),
			logging.String(logging.FieldImpact, "guest left without excerpts"),
		)
		e.deps.Metrics.ObserveEnrichment(PassExtraction, services.OutcomeNoEnrichment)
		return PassReport{Considered: 1, NoEnrichment: 1}, nil
	}
	if len(segments) == 0 {
		return PassReport{Skipped: 1}, nil
	}
	if len(segments) > e.opts.MaxSegments {
		logger.Debug("transcript truncated", logging.Int("segments", len(segments)), logging.Int("kept", e.opts.MaxSegments))
		segments = segments[:e.opts.MaxSegments]
	}

	report := PassReport{Considered: 1}
	var (
		excerpts  []llm.Excerpt
		succeeded int
		failed    int
	)
	for start := 0; start < len(targets); start += e.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		batch := targets[start:min(start+e.opts.BatchSize, len(targets))]
		req := llm.ExtractRequest{Guest: guest.Name, Segments: segments}
		for _, p := range batch {
			req.Targets = append(req.Targets, llm.Target{Title: p.FilmTitle, Year: x.years[p.FilmID]})
		}
		got, err := castResult[[]llm.Excerpt](e.extractGuard.execute(ctx, func(ctx context.Context) (any, error) {
			return e.deps.Extractor.Extract(ctx, req)
		}))
		if err != nil {
			if e.collaboratorFailed(logger, PassExtraction, key, err) {
				failed++
				continue
			}
			return report, err
		}
		succeeded++
		excerpts = append(excerpts, got...)
	}
	if succeeded == 0 {
		report.NoEnrichment++
		return report, nil
	}

	report.Excerpts = len(excerpts)
	report.Upgraded = e.applyExcerpts(x.cleaner, targets, excerpts, vid, visit)
	if failed > 0 {
		// Left unrecorded so the next run repeats every batch.
		report.NoEnrichment++
		logging.WarnWithContext(logger, "extraction incomplete", "extraction_partial",
			logging.Int("visit", visit),
			logging.Int("failed_batches", failed),
			logging.Int("upgraded", report.Upgraded),
			logging.String(logging.FieldImpact, "guest is retried on the next run"),
		)
		return report, nil
	}
	report.Enriched++
	e.deps.Metrics.ObserveEnrichment(PassExtraction, services.OutcomeOK)
	logger.Info("excerpts extracted",
		logging.Int("visit", visit),
		logging.Int("targets", len(targets)),
		logging.Int("excerpts", report.Excerpts),
		logging.Int("upgraded", report.Upgraded),
	)
	return report, e.record(key, dataset.CheckpointEntry{
		QuotesCount: len(excerpts),
		PicksCount:  len(targets),
		Outcome:     services.OutcomeOK,
	})
}

// applyExcerpts matches excerpts to targets by case-folded title and applies
// those that raise the pick's confidence. Returns the number of picks
// changed.
func (e *Enricher) applyExcerpts(cleaner *textutil.QuoteCleaner, targets []*dataset.Pick, excerpts []llm.Excerpt, vid video, visit int) int {
	byTitle := make(map[string]llm.Excerpt, len(excerpts))
	for _, ex := range excerpts {
		byTitle[strings.ToLower(ex.Title)] = ex
	}
	upgraded := 0
	for _, p := range targets {
		ex, ok := byTitle[strings.ToLower(strings.TrimSpace(p.FilmTitle))]
		if !ok {
			continue
		}
		confidence := dataset.ParseConfidence(ex.Confidence)
		if confidence == dataset.ConfidenceManual {
			confidence = dataset.ConfidenceNone
		}
		if confidence.Rank() <= p.ExtractionConfidence.Rank() {
			continue
		}
		quote := cleaner.Clean(truncateRunes(ex.Quote, e.opts.MaxQuoteChars))
		if quote == "" {
			continue
		}
		p.Quote = quote
		p.ExtractionConfidence = confidence
		p.VisitIndex = visit
		p.YouTubeTimestampURL = ""
		p.VimeoTimestampURL = ""
		p.StartTimestamp = nil
		if ex.StartSeconds > 0 {
			seconds := ex.StartSeconds
			p.StartTimestamp = &seconds
			if vid.vimeo {
				p.VimeoTimestampURL = vid.timestampURL(seconds)
			} else {
				p.YouTubeTimestampURL = vid.timestampURL(seconds)
			}
		}
		upgraded++
	}
	return upgraded
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
