package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"closetpicks/internal/dataset"
	"closetpicks/internal/logging"
	"closetpicks/internal/metrics"
	"closetpicks/internal/services"
)

// Options tunes an Enricher. Zero values fall back to defaults.
type Options struct {
	Workers       int
	BatchSize     int
	MaxSegments   int
	MaxQuoteChars int
	// Force ignores the checkpoint and re-processes completed keys.
	Force bool
}

const (
	defaultWorkers       = 4
	defaultBatchSize     = 20
	defaultMaxSegments   = 1000
	defaultMaxQuoteChars = 500
)

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.MaxSegments <= 0 {
		o.MaxSegments = defaultMaxSegments
	}
	if o.MaxQuoteChars <= 0 {
		o.MaxQuoteChars = defaultMaxQuoteChars
	}
	return o
}

// Dependencies are the collaborators an Enricher talks to. Metadata and
// Extractor may be nil to disable the corresponding pass.
type Dependencies struct {
	Metadata    MetadataSource
	Extractor   Extractor
	Transcripts TranscriptSource
	Checkpoint  Checkpoint
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
}

// Enricher runs the enrichment passes.
type Enricher struct {
	deps         Dependencies
	opts         Options
	logger       *slog.Logger
	metaGuard    *guard
	extractGuard *guard
	now          func() time.Time
}

// New builds an Enricher.
func New(deps Dependencies, opts Options) (*Enricher, error) {
	if deps.Checkpoint == nil {
		return nil, services.Wrap(services.ErrConfiguration, "enrich", "new", "checkpoint store required", nil)
	}
	if deps.Extractor != nil && deps.Transcripts == nil {
		return nil, services.Wrap(services.ErrConfiguration, "enrich", "new", "transcript source required for extraction", nil)
	}
	logger := logging.NewComponentLogger(deps.Logger, "enrich")
	return &Enricher{
		deps:         deps,
		opts:         opts.withDefaults(),
		logger:       logger,
		metaGuard:    newGuard("metadata", logger, deps.Metrics),
		extractGuard: newGuard("extraction", logger, deps.Metrics),
		now:          time.Now,
	}, nil
}

// Run executes the metadata pass then the extraction passes, skipping any
// pass whose collaborator is not configured.
func (e *Enricher) Run(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	report := &Report{}
	if e.deps.Metadata != nil {
		pass, err := e.MetadataPass(ctx, ds)
		report.Metadata = pass
		if err != nil {
			return report, err
		}
	}
	if e.deps.Extractor != nil {
		primary, second, err := e.ExtractionPass(ctx, ds)
		report.Extraction = primary
		report.VisitsSecond = second
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// shards splits sorted keys into at most workers contiguous chunks of
// ceil(n/workers) keys each.
func shards(keys []string, workers int) [][]string {
	if len(keys) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	size := (len(keys) + workers - 1) / workers
	out := make([][]string, 0, workers)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		out = append(out, keys[start:end])
	}
	return out
}

// forEachShard runs work over each shard of keys on a bounded errgroup. A
// returned error cancels the remaining shards.
func (e *Enricher) forEachShard(ctx context.Context, pass string, keys []string, work func(ctx context.Context, logger *slog.Logger, key string) (PassReport, error)) (PassReport, error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	parts := shards(keys, e.opts.Workers)

	var (
		mu    sync.Mutex
		total PassReport
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.opts.Workers)
	for i, part := range parts {
		shardCtx := services.WithShard(services.WithPass(groupCtx, pass), i)
		group.Go(func() error {
			logger := logging.WithContext(shardCtx, e.logger)
			logger.Debug("shard started", logging.Int("keys", len(part)))
			var local PassReport
			defer func() {
				mu.Lock()
				total.add(local)
				mu.Unlock()
			}()
			for _, key := range part {
				// Stoppable between keys; completed keys are already checkpointed.
				if err := shardCtx.Err(); err != nil {
					return err
				}
				r, err := work(shardCtx, logger, key)
				local.add(r)
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := group.Wait()
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return total, fmt.Errorf("%s pass: %w", pass, err)
	}
	return total, nil
}

func (e *Enricher) loadCheckpoint() (dataset.Checkpoint, error) {
	if e.opts.Force {
		return dataset.Checkpoint{}, nil
	}
	cp, err := e.deps.Checkpoint.Load()
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return cp, nil
}

func (e *Enricher) record(key string, entry dataset.CheckpointEntry) error {
	entry.ProcessedAt = e.now().UTC()
	if err := e.deps.Checkpoint.Update(key, entry); err != nil {
		return fmt.Errorf("checkpoint %s: %w", key, err)
	}
	return nil
}

// collaboratorFailed logs a degraded call and reports whether the error is
// survivable. Fatal errors are returned to the caller unchanged.
func (e *Enricher) collaboratorFailed(logger *slog.Logger, pass, subject string, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if services.Outcome(err) != services.OutcomeNoEnrichment {
		return false
	}
	e.deps.Metrics.ObserveEnrichment(pass, services.OutcomeNoEnrichment)
	logging.WarnWithContext(logger, "collaborator call failed", "collaborator_failure",
		logging.String("subject", subject),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "re-run enrich later; completed work is checkpointed"),
		logging.String(logging.FieldImpact, "record left without enrichment"),
	)
	return true
}
