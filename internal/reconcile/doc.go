// Package reconcile sequences the reconciliation passes over one dataset
// snapshot and owns the steps that only make sense once every pass has run:
// pick deduplication, catalog and source backfill, derived pick counts, and
// the integrity report.
//
// Run mutates the snapshot in place and never touches disk; callers persist
// the result through internal/store only when Run returns without error.
package reconcile
