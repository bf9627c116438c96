// Package ledger records reconciliation and enrichment runs in SQLite.
//
// Each run gets a row in runs with its kind, status, timing, and a JSON
// summary of the per-pass reports. Identity merges performed by a run are
// written to merges, which doubles as the aliases-merged-from relation:
// Aliases walks it to list every slug folded into a guest, directly or
// through an intermediate guest.
//
// Schema changes bump schemaVersion in schema.go; an existing database with
// another version is rejected with ErrSchemaMismatch and must be removed.
package ledger
