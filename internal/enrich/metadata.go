package enrich

import (
	"context"
	"log/slog"

	"closetpicks/internal/dataset"
	"closetpicks/internal/logging"
	"closetpicks/internal/services"
)

const metadataKeySuffix = "_metadata"

// MetadataPass fills external metadata on catalog entries that lack it.
// Collections are skipped; entries with a checkpoint record are skipped
// unless Force is set.
func (e *Enricher) MetadataPass(ctx context.Context, ds *dataset.Dataset) (PassReport, error) {
	if e.deps.Metadata == nil {
		return PassReport{}, services.Wrap(services.ErrConfiguration, "enrich", PassMetadata, "metadata source not configured", nil)
	}
	cp, err := e.loadCheckpoint()
	if err != nil {
		return PassReport{}, err
	}

	entries := make(map[string]*dataset.CatalogEntry, len(ds.Catalog))
	var (
		keys    []string
		skipped int
	)
	for i := range ds.Catalog {
		entry := &ds.Catalog[i]
		if entry.IsBoxSet {
			continue
		}
		if _, dup := entries[entry.FilmID]; dup {
			continue
		}
		if entry.Enriched() && !e.opts.Force {
			skipped++
			continue
		}
		if _, done := cp[entry.FilmID+metadataKeySuffix]; done {
			skipped++
			continue
		}
		entries[entry.FilmID] = entry
		keys = append(keys, entry.FilmID)
	}

	report, err := e.forEachShard(ctx, PassMetadata, keys, func(ctx context.Context, logger *slog.Logger, filmID string) (PassReport, error) {
		return e.enrichEntry(ctx, logger, entries[filmID])
	})
	report.Skipped += skipped
	e.logger.Info("metadata pass complete",
		logging.Int("considered", report.Considered),
		logging.Int("enriched", report.Enriched),
		logging.Int("no_enrichment", report.NoEnrichment),
		logging.Int("skipped", report.Skipped),
	)
	return report, err
}

func (e *Enricher) enrichEntry(ctx context.Context, logger *slog.Logger, entry *dataset.CatalogEntry) (PassReport, error) {
	report := PassReport{Considered: 1}
	query := MetadataQuery{Title: entry.Title, Year: entry.Year, URL: entry.CriterionURL}
	meta, err := castResult[*Metadata](e.metaGuard.execute(ctx, func(ctx context.Context) (any, error) {
		return e.deps.Metadata.Lookup(ctx, query)
	}))
	if err != nil {
		if e.collaboratorFailed(logger, PassMetadata, entry.FilmID, err) {
			report.NoEnrichment++
			return report, nil
		}
		return report, err
	}
	outcome := services.OutcomeOK
	if meta == nil || meta.TMDBID == 0 {
		outcome = services.OutcomeNoEnrichment
		report.NoEnrichment++
		logger.Debug("no metadata candidate", logging.String("film_id", entry.FilmID), logging.String("title", entry.Title))
	} else {
		applyMetadata(entry, meta)
		report.Enriched++
	}
	e.deps.Metrics.ObserveEnrichment(PassMetadata, outcome)
	return report, e.record(entry.FilmID+metadataKeySuffix, dataset.CheckpointEntry{Outcome: outcome})
}

// applyMetadata overwrites fetched fields and fills curated ones only when
// empty.
func applyMetadata(entry *dataset.CatalogEntry, meta *Metadata) {
	entry.TMDBID = meta.TMDBID
	if meta.IMDBID != "" {
		entry.IMDBID = meta.IMDBID
	}
	if meta.PosterURL != "" {
		entry.PosterURL = meta.PosterURL
	}
	if len(meta.Genres) > 0 {
		entry.Genres = append([]string(nil), meta.Genres...)
	}
	if entry.Director == "" {
		entry.Director = meta.Director
	}
	if entry.Country == "" {
		entry.Country = meta.Country
	}
	if entry.Year == nil && meta.Year > 0 {
		year := meta.Year
		entry.Year = &year
	}
}
