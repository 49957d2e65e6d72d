package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobmirror/internal/database"

	"github.com/jackc/pgx/v5"
)

var ErrDetailsNotFound = errors.New("job details not found")

// JobDetails is the cached public-details row: the raw upstream blob plus the
// denormalized columns consumers read without parsing it.
type JobDetails struct {
	JobPrimaryID int64
	JobType      int
	DetailsJSON  []byte
	FetchedAt    time.Time

	AdvertisementFile          sql.NullString
	AdvertisementNo            sql.NullString
	AdvertisementPublishedDate sql.NullString
	ApplicationSite            sql.NullString
	JobSource                  sql.NullString

	MinAge    sql.NullInt64
	MaxAge    sql.NullInt64
	Gender    sql.NullInt64
	ViewCount sql.NullInt64
}

type JobDetailsRepository interface {
	Get(ctx context.Context, jobPrimaryID int64) (*JobDetails, error)
	Upsert(ctx context.Context, d JobDetails) error
}

const jobDetailsColumns = `job_primary_id, job_type, details_json, fetched_at,
	advertisement_file, advertisement_no, advertisement_published_date,
	application_site, job_source,
	min_age, max_age, gender, view_count`

type PostgresJobDetailsRepository struct {
	db database.DB
}

func NewPostgresJobDetailsRepository(db database.DB) *PostgresJobDetailsRepository {
	return &PostgresJobDetailsRepository{db: db}
}

func (r *PostgresJobDetailsRepository) Get(ctx context.Context, jobPrimaryID int64) (*JobDetails, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+jobDetailsColumns+` FROM job_details WHERE job_primary_id = $1`,
		jobPrimaryID,
	)

	var d JobDetails
	err := row.Scan(
		&d.JobPrimaryID, &d.JobType, &d.DetailsJSON, &d.FetchedAt,
		&d.AdvertisementFile, &d.AdvertisementNo, &d.AdvertisementPublishedDate,
		&d.ApplicationSite, &d.JobSource,
		&d.MinAge, &d.MaxAge, &d.Gender, &d.ViewCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDetailsNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Upsert overwrites the whole cached row. Repeated fetches for the same id
// are idempotent by design; there is no TTL.
func (r *PostgresJobDetailsRepository) Upsert(ctx context.Context, d JobDetails) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO job_details (`+jobDetailsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (job_primary_id) DO UPDATE SET
			job_type = EXCLUDED.job_type,
			details_json = EXCLUDED.details_json,
			fetched_at = EXCLUDED.fetched_at,
			advertisement_file = EXCLUDED.advertisement_file,
			advertisement_no = EXCLUDED.advertisement_no,
			advertisement_published_date = EXCLUDED.advertisement_published_date,
			application_site = EXCLUDED.application_site,
			job_source = EXCLUDED.job_source,
			min_age = EXCLUDED.min_age,
			max_age = EXCLUDED.max_age,
			gender = EXCLUDED.gender,
			view_count = EXCLUDED.view_count`,
		d.JobPrimaryID, d.JobType, d.DetailsJSON, d.FetchedAt,
		d.AdvertisementFile, d.AdvertisementNo, d.AdvertisementPublishedDate,
		d.ApplicationSite, d.JobSource,
		d.MinAge, d.MaxAge, d.Gender, d.ViewCount,
	)
	return err
}

var _ JobDetailsRepository = (*PostgresJobDetailsRepository)(nil)
