// Package dataset defines the reconciled record types (catalog entries, guest
// identities, raw picks, picks, checkpoint entries) and the snapshot they
// live in while a reconciliation run is in flight.
//
// A Dataset is an in-memory copy of the five persisted collections. Passes
// mutate it in place; nothing is written back until every pass succeeds.
// Index builds the typed lookup tables a pass needs once, up front, and the
// pass treats them as read-only for its duration. Sort puts every collection
// into a canonical order so repeated runs encode to identical bytes.
//
// The package also owns the URL conventions shared by several passes:
// Criterion film/boxset page ids and YouTube/Vimeo video ids embedded in
// excerpt timestamp links.
package dataset
