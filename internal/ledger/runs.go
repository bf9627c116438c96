package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"closetpicks/internal/identity"
)

// Kind names what a run did.
type Kind string

const (
	KindReconcile Kind = "reconcile"
	KindEnrich    Kind = "enrich"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded invocation.
type Run struct {
	ID         string
	Kind       Kind
	Status     Status
	DryRun     bool
	StartedAt  time.Time
	FinishedAt *time.Time
	Summary    string
	Error      string
}

// Duration is the wall time of a finished run, zero while running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Merge is one persisted identity merge.
type Merge struct {
	RunID      string
	Directive  string
	Primary    string
	Secondary  string
	PicksMoved int
	RawMoved   int
	RecordedAt time.Time
}

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, kind, status, dry_run, started_at, finished_at, summary_json, error_message"

const mergeColumns = "run_id, directive, primary_slug, secondary_slug, picks_moved, raw_moved, recorded_at"

// BeginRun inserts a running row.
func (s *Store) BeginRun(ctx context.Context, id string, kind Kind, dryRun bool) (*Run, error) {
	if id == "" {
		return nil, errors.New("run id is required")
	}
	now := time.Now().UTC()
	if _, err := s.exec(ctx,
		`INSERT INTO runs (id, kind, status, dry_run, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, kind, StatusRunning, sqliteBool(dryRun), now.Format(timeLayout),
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{ID: id, Kind: kind, Status: StatusRunning, DryRun: dryRun, StartedAt: now}, nil
}

// FinishRun marks a run succeeded, or failed when runErr is non-nil, and
// stores summary encoded as JSON.
func (s *Store) FinishRun(ctx context.Context, id string, summary any, runErr error) error {
	status := StatusSucceeded
	errMsg := ""
	if runErr != nil {
		status = StatusFailed
		errMsg = runErr.Error()
	}
	var summaryJSON string
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("encode run summary: %w", err)
		}
		summaryJSON = string(data)
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, summary_json = ?, error_message = ? WHERE id = ?`,
		status, time.Now().UTC().Format(timeLayout), nullIfEmpty(summaryJSON), nullIfEmpty(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %q", id)
	}
	return nil
}

// RecordMerges appends a run's merge log in one transaction.
func (s *Store) RecordMerges(ctx context.Context, runID string, merges []identity.MergeRecord) error {
	if len(merges) == 0 {
		return nil
	}
	return whileBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin merge tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO merges (`+mergeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare merge insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC().Format(timeLayout)
		for _, m := range merges {
			if _, err := stmt.ExecContext(ctx, runID, m.Directive, m.Primary, m.Secondary, m.PicksMoved, m.RawMoved, now); err != nil {
				return fmt.Errorf("insert merge %s: %w", m.Secondary, err)
			}
		}
		return tx.Commit()
	})
}

// GetRun fetches a run by id; nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// LastRun returns the most recent run of kind; nil when there is none.
func (s *Store) LastRun(ctx context.Context, kind Kind) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE kind = ? ORDER BY started_at DESC LIMIT 1`, kind)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	return run, nil
}

// History lists runs newest first. limit <= 0 means all.
func (s *Store) History(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Aliases returns every merge that folded a slug into slug, following
// chains: if a was merged into b and b into slug, both merges are listed.
// Merges are ordered by recording time.
func (s *Store) Aliases(ctx context.Context, slug string) ([]Merge, error) {
	rows, err := s.db.QueryContext(ctx, `
        WITH RECURSIVE absorbed(slug) AS (
            SELECT ?
            UNION
            SELECT m.secondary_slug FROM merges m JOIN absorbed a ON m.primary_slug = a.slug
        )
        SELECT `+mergeColumns+` FROM merges
        WHERE primary_slug IN (SELECT slug FROM absorbed)
        ORDER BY recorded_at, id`, slug)
	if err != nil {
		return nil, fmt.Errorf("query aliases: %w", err)
	}
	defer rows.Close()

	var merges []Merge
	for rows.Next() {
		var (
			m          Merge
			recordedAt string
		)
		if err := rows.Scan(&m.RunID, &m.Directive, &m.Primary, &m.Secondary, &m.PicksMoved, &m.RawMoved, &recordedAt); err != nil {
			return nil, err
		}
		m.RecordedAt, _ = parseStamp(recordedAt)
		merges = append(merges, m)
	}
	return merges, rows.Err()
}

// MergedInto returns the primary a slug was absorbed by, or "" when the slug
// was never merged away.
func (s *Store) MergedInto(ctx context.Context, slug string) (string, error) {
	var primary string
	err := s.db.QueryRowContext(ctx,
		`SELECT primary_slug FROM merges WHERE secondary_slug = ? ORDER BY recorded_at DESC, id DESC LIMIT 1`, slug,
	).Scan(&primary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query merged into: %w", err)
	}
	return primary, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		kind        string
		status      string
		dryRun      int
		startedRaw  string
		finishedRaw sql.NullString
		summary     sql.NullString
		errMsg      sql.NullString
	)
	if err := scanner.Scan(&run.ID, &kind, &status, &dryRun, &startedRaw, &finishedRaw, &summary, &errMsg); err != nil {
		return nil, err
	}
	run.Kind = Kind(kind)
	run.Status = Status(status)
	run.DryRun = dryRun != 0
	run.Summary = summary.String
	run.Error = errMsg.String
	run.StartedAt, _ = parseStamp(startedRaw)
	if t, ok := parseStamp(finishedRaw.String); ok && finishedRaw.Valid {
		run.FinishedAt = &t
	}
	return &run, nil
}
