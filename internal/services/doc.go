// Package services defines shared utilities consumed by the reconciliation
// passes and the enrichment collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, shard numbers, guest slugs, and
//     pass names for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run outcomes (fatal vs no_enrichment).
//
// Collaborator clients live in subpackages: tmdb for film metadata and llm
// for excerpt extraction.
package services
