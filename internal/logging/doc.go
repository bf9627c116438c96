// Package logging assembles structured slog loggers and formatting helpers used
// across closetpicks.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pass and worker code can
// automatically tag log lines with run IDs, shards, guests, and pass names.
// When a log directory is configured every record is also appended as JSON to
// closetpicks.log. The package provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
