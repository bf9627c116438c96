// Package textutil provides the text normalization primitives shared by the
// reconciliation passes.
//
// The primary use cases are:
//   - Deriving canonical identifiers from titles (Slugify, FilmID)
//   - Scoring loose title and name matches with a token-sort ratio on the
//     0-100 scale
//   - Stripping release-format suffixes and collection annotations from
//     catalog titles before comparison
//   - Cleaning transcript excerpts before they are stored on picks
//
// Every function is pure and deterministic so repeated reconciliation runs
// produce identical identifiers and scores.
package textutil
