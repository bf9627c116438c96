// Package main hosts the closetpicks CLI entrypoint and command graph.
//
// The Cobra command tree loads the dataset from the configured data
// directory, runs reconciliation or enrichment over it, and records each run
// in the ledger. Read-only commands (validate, match, status, history,
// aliases) never take the run lock.
//
// Keep this package lean: behavior belongs in the internal packages and is
// surfaced here through dedicated commands or flags.
package main
