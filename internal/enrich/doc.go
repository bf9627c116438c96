// Package enrich attaches external data to a reconciled dataset.
//
// MetadataPass looks up catalog entries in a metadata source and fills
// TMDB/IMDb ids, posters, genres, and director. ExtractionPass sends each
// guest's transcript and known picks to an extractor and attaches excerpts,
// timestamps, and confidence to picks, only ever upgrading confidence. A
// second extraction pass retries later visits for picks still at none.
//
// Work is split into contiguous shards of sorted keys and run on an errgroup
// bounded by the worker count. Each shard owns its records, so the dataset is
// never written by two goroutines at once; the only shared state is the
// checkpoint store, whose Update is serialized. Completed keys (slug,
// slug_visitN, film_metadata) are skipped on the next run unless Force is set.
//
// Collaborator calls go through a circuit breaker and are retried once when
// the failure is retryable. Collaborator trouble is recorded as
// no_enrichment and never fails the run; checkpoint or decode failures do.
package enrich
