package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"closetpicks/internal/config"
	"closetpicks/internal/dataset"
	"closetpicks/internal/ledger"
	"closetpicks/internal/logging"
	"closetpicks/internal/metrics"
	"closetpicks/internal/services"
	"closetpicks/internal/store"
)

// runSession holds the run lock and ledger row for one mutating command.
type runSession struct {
	id      string
	kind    ledger.Kind
	dryRun  bool
	started time.Time

	ctx      context.Context
	cfg      *config.Config
	logger   *slog.Logger
	ledger   *ledger.Store
	lock     *store.RunLock
	recorder *metrics.Recorder
}

func beginRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, kind ledger.Kind, dryRun bool) (*runSession, error) {
	lock, err := store.AcquireRunLock(cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}
	led, err := ledger.Open(cfg)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	id := uuid.NewString()
	if _, err := led.BeginRun(ctx, id, kind, dryRun); err != nil {
		_ = led.Close()
		_ = lock.Release()
		return nil, err
	}
	ctx = services.WithRunID(ctx, id)
	s := &runSession{
		id:       id,
		kind:     kind,
		dryRun:   dryRun,
		started:  time.Now(),
		ctx:      ctx,
		cfg:      cfg,
		logger:   logging.WithContext(ctx, logger),
		ledger:   led,
		lock:     lock,
		recorder: metrics.New(),
	}
	s.logger.Info("run started", logging.String("kind", string(kind)), logging.Bool("dry_run", dryRun))
	return s, nil
}

// backupDir is where this run's pre-write copies of the documents go.
func (s *runSession) backupDir() string {
	return filepath.Join(s.cfg.Paths.StateDir, "backups", s.id)
}

func (s *runSession) observeDataset(ds *dataset.Dataset) {
	s.recorder.SetRecords(recordCounts(ds))
}

// finish records the outcome, writes metrics, and releases the lock. The
// ledger row is written even when the run was canceled.
func (s *runSession) finish(summary any, runErr error) error {
	elapsed := time.Since(s.started)
	status := string(ledger.StatusSucceeded)
	if runErr != nil {
		status = string(ledger.StatusFailed)
	}
	s.recorder.ObserveRun(string(s.kind), status, s.started, elapsed)

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := s.ledger.FinishRun(context.WithoutCancel(s.ctx), s.id, summary, runErr); err != nil {
		errs = append(errs, fmt.Errorf("record run: %w", err))
	}
	if err := s.recorder.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(s.logger, "metrics textfile not written", "metrics_write_failed",
			logging.String("path", s.cfg.Metrics.Textfile),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the metrics.textfile directory permissions"),
		)
	}
	if err := s.ledger.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	s.logger.Info("run finished",
		logging.String("status", status),
		logging.Duration("elapsed", elapsed),
	)
	return errors.Join(errs...)
}

func recordCounts(ds *dataset.Dataset) map[string]int {
	return map[string]int{
		"catalog":   len(ds.Catalog),
		"guests":    len(ds.Guests),
		"raw_picks": len(ds.RawPicks),
		"picks":     len(ds.Picks),
	}
}
