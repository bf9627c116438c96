package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "closetpicks"

// Recorder owns one registry per process.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	lastRunStart   *prometheus.GaugeVec
	lastRunSeconds *prometheus.GaugeVec
	records        *prometheus.GaugeVec
	changes        *prometheus.GaugeVec
	issues         *prometheus.GaugeVec
	enrichUnits    *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
}

// New builds a Recorder with every metric registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of runs by kind and final status",
			},
			[]string{"kind", "status"},
		),
		lastRunStart: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix timestamp of the start of the last run",
			},
			[]string{"kind"},
		),
		lastRunSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_duration_seconds",
				Help:      "Wall time of the last run in seconds",
			},
			[]string{"kind"},
		),
		records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_records",
				Help:      "Records per collection after the last run",
			},
			[]string{"collection"},
		),
		changes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reconcile_changes",
				Help:      "Records changed by each reconciliation pass in the last run",
			},
			[]string{"pass"},
		),
		issues: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "integrity_issues",
				Help:      "Integrity issues found by the last validation, by type",
			},
			[]string{"type"},
		),
		enrichUnits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enrich_units_total",
				Help:      "Units of enrichment work by pass and outcome",
			},
			[]string{"pass", "outcome"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Collaborator circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}
	r.registry.MustRegister(
		r.runsTotal,
		r.lastRunStart,
		r.lastRunSeconds,
		r.records,
		r.changes,
		r.issues,
		r.enrichUnits,
		r.breakerState,
	)
	return r
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRun records the end of a run.
func (r *Recorder) ObserveRun(kind, status string, started time.Time, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(kind, status).Inc()
	r.lastRunStart.WithLabelValues(kind).Set(float64(started.Unix()))
	r.lastRunSeconds.WithLabelValues(kind).Set(elapsed.Seconds())
}

// SetRecords sets the per-collection record gauges.
func (r *Recorder) SetRecords(counts map[string]int) {
	if r == nil {
		return
	}
	for collection, n := range counts {
		r.records.WithLabelValues(collection).Set(float64(n))
	}
}

// SetChanges sets the per-pass change gauges.
func (r *Recorder) SetChanges(changes map[string]int) {
	if r == nil {
		return
	}
	for pass, n := range changes {
		r.changes.WithLabelValues(pass).Set(float64(n))
	}
}

// SetIssues replaces the integrity issue gauges.
func (r *Recorder) SetIssues(byType map[string]int) {
	if r == nil {
		return
	}
	r.issues.Reset()
	for kind, n := range byType {
		r.issues.WithLabelValues(kind).Set(float64(n))
	}
}

// ObserveEnrichment counts one unit of enrichment work. Safe for concurrent use.
func (r *Recorder) ObserveEnrichment(pass, outcome string) {
	if r == nil {
		return
	}
	r.enrichUnits.WithLabelValues(pass, outcome).Inc()
}

// SetBreakerState records a collaborator breaker transition.
func (r *Recorder) SetBreakerState(name string, state int) {
	if r == nil {
		return
	}
	r.breakerState.WithLabelValues(name).Set(float64(state))
}

// WriteTextfile writes every metric to path in text exposition format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
