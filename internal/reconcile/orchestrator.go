package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"closetpicks/internal/boxset"
	"closetpicks/internal/collision"
	"closetpicks/internal/dataset"
	"closetpicks/internal/directives"
	"closetpicks/internal/identity"
	"closetpicks/internal/logging"
	"closetpicks/internal/matcher"
	"closetpicks/internal/services"
	"closetpicks/internal/visits"
)

// Pass names, in execution order. They appear in logs under the pass key.
const (
	PassMatch     = "match"
	PassIdentity  = "identity"
	PassCollision = "collision"
	PassBoxSet    = "boxset"
	PassVisits    = "visits"
	PassFinalize  = "finalize"
)

// Options tunes a run.
type Options struct {
	Matching matcher.Options
}

// Result collects the per-pass reports of one run.
type Result struct {
	Matcher           matcher.Report    `json:"matcher"`
	Identity          identity.Report   `json:"identity"`
	Collision         collision.Report  `json:"collision"`
	BoxSet            boxset.Report     `json:"box_set"`
	Visits            visits.Report     `json:"visits"`
	Dedup             DedupReport       `json:"dedup"`
	Backfill          BackfillReport    `json:"backfill"`
	PickCountsChanged int               `json:"pick_counts_changed"`
	Validation        *ValidationReport `json:"validation"`
}

// Merges returns the identity merge log of the run.
func (r *Result) Merges() []identity.MergeRecord {
	if r == nil {
		return nil
	}
	return r.Identity.Merges
}

// Changes tallies the records each pass rewrote, keyed by pass name.
func (r *Result) Changes() map[string]int {
	if r == nil {
		return nil
	}
	b := r.BoxSet
	aggregated := b.NamesCanonicalized + b.CatalogMarked + b.URLsFixed + b.UnitsConverted +
		b.MembersTagged + b.AggregatesCreated + b.PicksCollapsed + b.AggregatesMerged + b.URLsPropagated
	finalize := r.Dedup.Picks + r.Dedup.RawPicks +
		r.Backfill.CatalogEntries + r.Backfill.RawSources + r.Backfill.PickSources + r.PickCountsChanged
	return map[string]int{
		PassMatch:     r.Matcher.PicksRekeyed,
		PassIdentity:  r.Identity.Total(),
		PassCollision: r.Collision.EntriesCorrected + r.Collision.RawRekeyed + r.Collision.PicksRekeyed,
		PassBoxSet:    aggregated,
		PassVisits:    r.Visits.Changed,
		PassFinalize:  finalize,
	}
}

// Run executes every pass over ds in order. A remaining identifier
// collision aborts the run with an error; ds is then left partially
// reconciled and must not be written.
func Run(ctx context.Context, ds *dataset.Dataset, table *directives.Table, opts Options, logger *slog.Logger) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if table == nil {
		builtin, err := directives.Builtin()
		if err != nil {
			return nil, err
		}
		table = builtin
	}
	logger = logging.NewComponentLogger(logger, "reconcile")
	result := &Result{}

	ds.Normalize()

	steps := []struct {
		name string
		run  func(*slog.Logger) error
	}{
		{PassMatch, func(l *slog.Logger) error {
			result.Matcher = matcher.Pass(ds, matcher.New(ds.Catalog, opts.Matching), l)
			return nil
		}},
		{PassIdentity, func(l *slog.Logger) error {
			result.Identity = identity.Resolve(ds, table, l)
			return nil
		}},
		{PassCollision, func(l *slog.Logger) error {
			report, err := collision.Correct(ds, table.SpineCorrections, l)
			result.Collision = report
			return err
		}},
		{PassBoxSet, func(l *slog.Logger) error {
			result.BoxSet = boxset.Aggregate(ds, table, l)
			return nil
		}},
		{PassVisits, func(l *slog.Logger) error {
			result.Visits = visits.Attribute(ds, l)
			return nil
		}},
		{PassFinalize, func(l *slog.Logger) error {
			result.Dedup = Dedup(ds)
			result.Backfill = Backfill(ds)
			result.PickCountsChanged = UpdatePickCounts(ds)
			return nil
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("reconcile before %s: %w", step.name, err)
		}
		passLogger := logging.WithContext(services.WithPass(ctx, step.name), logger)
		if err := step.run(passLogger); err != nil {
			logging.ErrorWithContext(passLogger, "reconciliation halted", "reconcile_halted",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "add a spine correction for the colliding ids and rerun"),
			)
			return result, err
		}
	}

	ds.Sort()
	result.Validation = Validate(ds)

	logger.Info("reconciliation complete",
		slog.Int("guests", len(ds.Guests)),
		slog.Int("picks", len(ds.Picks)),
		slog.Int("merges", len(result.Identity.Merges)),
		slog.Int("skips", len(result.Identity.Skips)),
		slog.Int("collisions_fixed", result.Collision.EntriesCorrected),
		slog.Int("issues", len(result.Validation.Issues)),
	)
	for _, issue := range result.Validation.Issues {
		logging.WarnWithContext(logger, "integrity issue", "integrity_issue",
			logging.String("type", issue.Type),
			logging.String("key", issue.Key),
			logging.String("detail", issue.Detail),
			logging.String(logging.FieldImpact, "record kept; downstream display may be wrong"),
		)
	}
	return result, nil
}
