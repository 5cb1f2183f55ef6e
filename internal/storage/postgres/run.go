package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"news_tracker/internal/domain"
)

type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// Record upserts the run keyed by its scheduling slot. The collector calls
// it once when a cycle starts and once when it finalizes.
func (s *RunStore) Record(ctx context.Context, run *domain.CollectionRun) error {
	query := `
		INSERT INTO collection_runs (
			scheduled_for, started_at, completed_at, status,
			fetched, new_count, duplicate_count, rejected_count, failed_channels
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (scheduled_for) DO UPDATE SET
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			status = EXCLUDED.status,
			fetched = EXCLUDED.fetched,
			new_count = EXCLUDED.new_count,
			duplicate_count = EXCLUDED.duplicate_count,
			rejected_count = EXCLUDED.rejected_count,
			failed_channels = EXCLUDED.failed_channels`

	exec := GetExecutor(ctx, s.db)
	_, err := exec.ExecContext(ctx, query,
		run.ScheduledFor,
		run.StartedAt,
		run.CompletedAt,
		run.Status,
		run.Fetched,
		run.NewCount,
		run.DuplicateCount,
		run.RejectedCount,
		pq.Array(run.FailedChannels),
	)
	return err
}

// LastSuccessful returns the most recent run that finished its cycle, or
// nil when no run has succeeded yet.
func (s *RunStore) LastSuccessful(ctx context.Context) (*domain.CollectionRun, error) {
	query := `
		SELECT scheduled_for, started_at, completed_at, status,
		       fetched, new_count, duplicate_count, rejected_count, failed_channels
		FROM collection_runs
		WHERE status IN ($1, $2)
		ORDER BY scheduled_for DESC
		LIMIT 1`

	return s.queryOne(ctx, query, domain.RunCompleted, domain.RunPartiallyFailed)
}

// Latest returns the most recent run regardless of outcome, or nil when the
// log is empty.
func (s *RunStore) Latest(ctx context.Context) (*domain.CollectionRun, error) {
	query := `
		SELECT scheduled_for, started_at, completed_at, status,
		       fetched, new_count, duplicate_count, rejected_count, failed_channels
		FROM collection_runs
		ORDER BY scheduled_for DESC
		LIMIT 1`

	return s.queryOne(ctx, query)
}

func (s *RunStore) queryOne(ctx context.Context, query string, args ...interface{}) (*domain.CollectionRun, error) {
	var run domain.CollectionRun
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&run.ScheduledFor,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Status,
		&run.Fetched,
		&run.NewCount,
		&run.DuplicateCount,
		&run.RejectedCount,
		pq.Array(&run.FailedChannels),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
