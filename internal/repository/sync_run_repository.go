package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobmirror/internal/database"

	"github.com/jackc/pgx/v5"
)

var ErrNoSyncRuns = errors.New("no sync runs recorded")

// SyncRun is one append-only audit row: created provisionally at run start,
// finalized exactly once at run end.
type SyncRun struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  sql.NullTime
	OK          bool
	FetchedJobs int64
	NewJobs     int64
	UpdatedJobs int64
	ExpiredJobs int64
	Error       sql.NullString
}

// SyncCounts is the outcome of one successful reconciliation.
type SyncCounts struct {
	Fetched int64
	New     int64
	Updated int64
	Expired int64
}

type SyncRunRepository interface {
	Create(ctx context.Context, startedAt time.Time) (int64, error)
	FinishSuccess(ctx context.Context, id int64, finishedAt time.Time, counts SyncCounts) error
	FinishFailure(ctx context.Context, id int64, finishedAt time.Time, errMsg string) error
	Latest(ctx context.Context) (*SyncRun, error)
	List(ctx context.Context, limit int) ([]SyncRun, error)
}

const syncRunColumns = `id, started_at, finished_at, ok, fetched_jobs, new_jobs, updated_jobs, expired_jobs, error`

type PostgresSyncRunRepository struct {
	db database.DB
}

func NewPostgresSyncRunRepository(db database.DB) *PostgresSyncRunRepository {
	return &PostgresSyncRunRepository{db: db}
}

func (r *PostgresSyncRunRepository) Create(ctx context.Context, startedAt time.Time) (int64, error) {
	var id int64
	row := r.db.QueryRow(ctx,
		`INSERT INTO sync_runs (started_at, ok) VALUES ($1, FALSE) RETURNING id`,
		startedAt,
	)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresSyncRunRepository) FinishSuccess(ctx context.Context, id int64, finishedAt time.Time, counts SyncCounts) error {
	_, err := r.db.Exec(ctx, `
		UPDATE sync_runs SET finished_at = $2, ok = TRUE,
			fetched_jobs = $3, new_jobs = $4, updated_jobs = $5, expired_jobs = $6
		WHERE id = $1`,
		id, finishedAt, counts.Fetched, counts.New, counts.Updated, counts.Expired,
	)
	return err
}

func (r *PostgresSyncRunRepository) FinishFailure(ctx context.Context, id int64, finishedAt time.Time, errMsg string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sync_runs SET finished_at = $2, ok = FALSE, error = $3 WHERE id = $1`,
		id, finishedAt, errMsg,
	)
	return err
}

func (r *PostgresSyncRunRepository) Latest(ctx context.Context) (*SyncRun, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+syncRunColumns+` FROM sync_runs ORDER BY id DESC LIMIT 1`)
	run, err := scanSyncRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSyncRuns
		}
		return nil, err
	}
	return &run, nil
}

func (r *PostgresSyncRunRepository) List(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+syncRunColumns+` FROM sync_runs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SyncRun, 0, limit)
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanSyncRun(s scanner) (SyncRun, error) {
	var run SyncRun
	err := s.Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.OK,
		&run.FetchedJobs, &run.NewJobs, &run.UpdatedJobs, &run.ExpiredJobs,
		&run.Error,
	)
	return run, err
}

var _ SyncRunRepository = (*PostgresSyncRunRepository)(nil)
