// Package store reads and writes the whole-document JSON files that hold a
// dataset snapshot: catalog.json, guests.json, picks_raw.json, picks.json,
// and the enrichment checkpoint.
//
// Documents are encoded with two-space indentation and a trailing newline so
// repeated runs produce byte-identical files. Every write goes through a
// temp file and rename; a failed run never leaves a partial document.
// RunLock serializes reconcile and enrich runs against one data directory,
// and CheckpointStore funnels concurrent checkpoint updates through a mutex
// and a file lock.
package store
