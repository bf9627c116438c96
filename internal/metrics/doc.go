/*
Package metrics records per-run counters and gauges in a private Prometheus
registry and writes them in text exposition format for the node-exporter
textfile collector.

closetpicks runs as a batch command, not a server, so nothing is scraped
directly. After each run the CLI calls WriteTextfile when [metrics] textfile
is set; the file is replaced atomically.

# Available Metrics

Run Metrics:
  - closetpicks_runs_total: Runs by kind and status (counter)
  - closetpicks_last_run_timestamp_seconds: Start of the last run (gauge)
    Labels: kind
  - closetpicks_last_run_duration_seconds: Wall time of the last run (gauge)
    Labels: kind

Dataset Metrics:
  - closetpicks_dataset_records: Records per collection after the run (gauge)
    Labels: collection (catalog, guests, raw_picks, picks, aggregates, synthetic)
  - closetpicks_reconcile_changes: Records changed by a pass (gauge)
    Labels: pass
  - closetpicks_integrity_issues: Validation issues by type (gauge)
    Labels: type

Enrichment Metrics:
  - closetpicks_enrich_units_total: Units of enrichment work by outcome (counter)
    Labels: pass, outcome
  - closetpicks_circuit_breaker_state: Collaborator breaker state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open

A nil *Recorder is valid and records nothing.
*/
package metrics
