package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobmirror/internal/database"

	"github.com/jackc/pgx/v5"
)

var ErrJobNotFound = errors.New("job not found")

// Upstream job-type enum.
const (
	JobTypeGovernment = 1
	JobTypePrivate    = 2
)

// JobContent holds every upstream content field of a job row. Nullable source
// fields use sql.Null types so a missing value and an empty value stay
// distinguishable through change detection.
type JobContent struct {
	JobID              string
	JobTitle           string
	JobTitleBn         sql.NullString
	JobType            int
	Vacancy            string
	VacancyNotSpecific bool
	ApplicationSiteURL string
	PublishedAt        time.Time
	DeadlineAt         time.Time
	Status             int
	CreatedAtSource    time.Time
	OrganizationID     int64
	CategoryID         int64
	RecruiterID        int64
	JobLocation        string
	Salary             int64
	OrgName            string
	OrgNameBn          sql.NullString
	ShortName          sql.NullString
	LogoPath           sql.NullString
	Website            sql.NullString
	ShortCode          sql.NullString
	IndustryTypeID     sql.NullInt64
	IndustryTitle      sql.NullString
}

type Job struct {
	JobPrimaryID int64
	JobContent
	ViewCount     int64
	IsActive      bool
	FirstSeenAt   time.Time
	LastSeenAt    time.Time
	LastChangedAt time.Time
}

// significantFields is the comparable projection used for change
// classification. View count is deliberately absent: it moves on nearly every
// fetch and must not mark a row "updated". Timestamps compare as UTC
// microseconds so wall-clock representation differences cannot fake a change.
type significantFields struct {
	JobID              string
	JobTitle           string
	JobTitleBn         sql.NullString
	JobType            int
	Vacancy            string
	VacancyNotSpecific bool
	ApplicationSiteURL string
	PublishedAt        int64
	DeadlineAt         int64
	Status             int
	CreatedAtSource    int64
	OrganizationID     int64
	CategoryID         int64
	RecruiterID        int64
	JobLocation        string
	Salary             int64
	OrgName            string
	OrgNameBn          sql.NullString
	ShortName          sql.NullString
	LogoPath           sql.NullString
	Website            sql.NullString
	ShortCode          sql.NullString
	IndustryTypeID     sql.NullInt64
	IndustryTitle      sql.NullString
}

func (c JobContent) significant() significantFields {
	return significantFields{
		JobID:              c.JobID,
		JobTitle:           c.JobTitle,
		JobTitleBn:         c.JobTitleBn,
		JobType:            c.JobType,
		Vacancy:            c.Vacancy,
		VacancyNotSpecific: c.VacancyNotSpecific,
		ApplicationSiteURL: c.ApplicationSiteURL,
		PublishedAt:        c.PublishedAt.UTC().UnixMicro(),
		DeadlineAt:         c.DeadlineAt.UTC().UnixMicro(),
		Status:             c.Status,
		CreatedAtSource:    c.CreatedAtSource.UTC().UnixMicro(),
		OrganizationID:     c.OrganizationID,
		CategoryID:         c.CategoryID,
		RecruiterID:        c.RecruiterID,
		JobLocation:        c.JobLocation,
		Salary:             c.Salary,
		OrgName:            c.OrgName,
		OrgNameBn:          c.OrgNameBn,
		ShortName:          c.ShortName,
		LogoPath:           c.LogoPath,
		Website:            c.Website,
		ShortCode:          c.ShortCode,
		IndustryTypeID:     c.IndustryTypeID,
		IndustryTitle:      c.IndustryTitle,
	}
}

// EqualSignificant reports whether two rows agree on every
// reconciliation-significant field.
func (c JobContent) EqualSignificant(o JobContent) bool {
	return c.significant() == o.significant()
}

// JobSyncRepository is the write surface of the reconciler. Every method runs
// on the caller-owned transaction so one sync run is one atomic batch.
type JobSyncRepository interface {
	FindByPrimaryID(ctx context.Context, tx database.Tx, jobPrimaryID int64) (*Job, error)
	Insert(ctx context.Context, tx database.Tx, job Job) error
	UpdateContent(ctx context.Context, tx database.Tx, job Job) error
	UpdateObserved(ctx context.Context, tx database.Tx, jobPrimaryID, viewCount int64, seenAt time.Time) error
	ExpireExcept(ctx context.Context, tx database.Tx, seen []int64) (int64, error)
}

const jobColumns = `job_primary_id, job_id,
	job_title, job_title_bn, job_type, vacancy, vacancy_not_specific, application_site_url,
	published_at, deadline_at, status, created_at_source,
	organization_id, category_id, recruiter_id,
	job_location, salary, view_count,
	org_name, org_name_bn, short_name, logo_path, website, short_code, industry_type_id, industry_title,
	is_active, first_seen_at, last_seen_at, last_changed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (Job, error) {
	var j Job
	err := s.Scan(
		&j.JobPrimaryID, &j.JobID,
		&j.JobTitle, &j.JobTitleBn, &j.JobType, &j.Vacancy, &j.VacancyNotSpecific, &j.ApplicationSiteURL,
		&j.PublishedAt, &j.DeadlineAt, &j.Status, &j.CreatedAtSource,
		&j.OrganizationID, &j.CategoryID, &j.RecruiterID,
		&j.JobLocation, &j.Salary, &j.ViewCount,
		&j.OrgName, &j.OrgNameBn, &j.ShortName, &j.LogoPath, &j.Website, &j.ShortCode, &j.IndustryTypeID, &j.IndustryTitle,
		&j.IsActive, &j.FirstSeenAt, &j.LastSeenAt, &j.LastChangedAt,
	)
	return j, err
}

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) FindByPrimaryID(ctx context.Context, tx database.Tx, jobPrimaryID int64) (*Job, error) {
	row := tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_primary_id = $1`, jobPrimaryID)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (r *PostgresJobRepository) Insert(ctx context.Context, tx database.Tx, job Job) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2,
			$3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15,
			$16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26,
			TRUE, $27, $28, $29)`,
		job.JobPrimaryID, job.JobID,
		job.JobTitle, job.JobTitleBn, job.JobType, job.Vacancy, job.VacancyNotSpecific, job.ApplicationSiteURL,
		job.PublishedAt, job.DeadlineAt, job.Status, job.CreatedAtSource,
		job.OrganizationID, job.CategoryID, job.RecruiterID,
		job.JobLocation, job.Salary, job.ViewCount,
		job.OrgName, job.OrgNameBn, job.ShortName, job.LogoPath, job.Website, job.ShortCode, job.IndustryTypeID, job.IndustryTitle,
		job.FirstSeenAt, job.LastSeenAt, job.LastChangedAt,
	)
	return err
}

// UpdateContent rewrites every content column after a significant change.
// first_seen_at is never touched here.
func (r *PostgresJobRepository) UpdateContent(ctx context.Context, tx database.Tx, job Job) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET
			job_id = $2,
			job_title = $3, job_title_bn = $4, job_type = $5, vacancy = $6,
			vacancy_not_specific = $7, application_site_url = $8,
			published_at = $9, deadline_at = $10, status = $11, created_at_source = $12,
			organization_id = $13, category_id = $14, recruiter_id = $15,
			job_location = $16, salary = $17, view_count = $18,
			org_name = $19, org_name_bn = $20, short_name = $21, logo_path = $22,
			website = $23, short_code = $24, industry_type_id = $25, industry_title = $26,
			is_active = TRUE, last_seen_at = $27, last_changed_at = $28
		WHERE job_primary_id = $1`,
		job.JobPrimaryID, job.JobID,
		job.JobTitle, job.JobTitleBn, job.JobType, job.Vacancy,
		job.VacancyNotSpecific, job.ApplicationSiteURL,
		job.PublishedAt, job.DeadlineAt, job.Status, job.CreatedAtSource,
		job.OrganizationID, job.CategoryID, job.RecruiterID,
		job.JobLocation, job.Salary, job.ViewCount,
		job.OrgName, job.OrgNameBn, job.ShortName, job.LogoPath,
		job.Website, job.ShortCode, job.IndustryTypeID, job.IndustryTitle,
		job.LastSeenAt, job.LastChangedAt,
	)
	return err
}

// UpdateObserved marks an unchanged row as seen in the current run. The row
// still gets is_active=TRUE so expire-by-exclusion can rely on it.
func (r *PostgresJobRepository) UpdateObserved(ctx context.Context, tx database.Tx, jobPrimaryID, viewCount int64, seenAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs SET view_count = $2, is_active = TRUE, last_seen_at = $3
		WHERE job_primary_id = $1`,
		jobPrimaryID, viewCount, seenAt,
	)
	return err
}

func (r *PostgresJobRepository) ExpireExcept(ctx context.Context, tx database.Tx, seen []int64) (int64, error) {
	return tx.Exec(ctx, `
		UPDATE jobs SET is_active = FALSE
		WHERE is_active AND NOT (job_primary_id = ANY($1))`,
		seen,
	)
}

var _ JobSyncRepository = (*PostgresJobRepository)(nil)
