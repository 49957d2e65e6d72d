package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobmirror/internal/database"

	"github.com/jackc/pgx/v5"
)

// JobListFilter carries pre-validated filter values; clamping and day-boundary
// math happen in the usecase layer, this type only renders SQL.
type JobListFilter struct {
	Q              string
	JobType        *int
	OrganizationID *int64
	ComputerOnly   bool
	DataEntryOnly  bool
	ActiveOnly     bool

	// PublishedTo and DeadlineBefore are exclusive bounds (calendar-day
	// windows); DeadlineTo is inclusive (expires-within windows).
	PublishedFrom  *time.Time
	PublishedTo    *time.Time
	DeadlineFrom   *time.Time
	DeadlineTo     *time.Time
	DeadlineBefore *time.Time

	// Sort is "deadline" (soonest first) or "published" (newest first).
	Sort   string
	Limit  int
	Offset int
}

type JobQueryRepository interface {
	QueryJobs(ctx context.Context, f JobListFilter) ([]Job, int, error)
	GetByPrimaryID(ctx context.Context, jobPrimaryID int64) (*Job, error)
	CountJobs(ctx context.Context) (total int64, active int64, err error)
}

type PostgresJobQueryRepository struct {
	db database.DB
}

func NewPostgresJobQueryRepository(db database.DB) *PostgresJobQueryRepository {
	return &PostgresJobQueryRepository{db: db}
}

func (f JobListFilter) whereClause() (string, []any) {
	where := []string{"TRUE"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ActiveOnly {
		where = append(where, "is_active")
	}
	if f.ComputerOnly {
		where = append(where, "job_title ILIKE "+arg("%computer%"))
	}
	if f.DataEntryOnly {
		where = append(where, "(job_title ILIKE "+arg("%data entry%")+" OR job_title ILIKE "+arg("%data-entry%")+")")
	}
	if f.JobType != nil {
		where = append(where, "job_type = "+arg(*f.JobType))
	}
	if f.OrganizationID != nil {
		where = append(where, "organization_id = "+arg(*f.OrganizationID))
	}

	if q := strings.TrimSpace(f.Q); q != "" {
		like := "%" + q + "%"
		where = append(where, fmt.Sprintf(
			"(job_title ILIKE %s OR org_name ILIKE %s OR job_id ILIKE %s OR COALESCE(short_name, '') ILIKE %s)",
			arg(like), arg(like), arg(like), arg(like),
		))
	}

	if f.PublishedFrom != nil {
		where = append(where, "published_at >= "+arg(*f.PublishedFrom))
	}
	if f.PublishedTo != nil {
		where = append(where, "published_at < "+arg(*f.PublishedTo))
	}
	if f.DeadlineFrom != nil {
		where = append(where, "deadline_at >= "+arg(*f.DeadlineFrom))
	}
	if f.DeadlineTo != nil {
		where = append(where, "deadline_at <= "+arg(*f.DeadlineTo))
	}
	if f.DeadlineBefore != nil {
		where = append(where, "deadline_at < "+arg(*f.DeadlineBefore))
	}

	return strings.Join(where, " AND "), args
}

func (f JobListFilter) orderClause() string {
	if f.Sort == "deadline" {
		return "deadline_at ASC"
	}
	return "published_at DESC"
}

func (r *PostgresJobQueryRepository) QueryJobs(ctx context.Context, f JobListFilter) ([]Job, int, error) {
	whereSQL, args := f.whereClause()

	var total int
	row := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM jobs WHERE `+whereSQL, args...)
	if err := row.Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	pageArgs := append(append([]any{}, args...), limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM jobs WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		jobColumns, whereSQL, f.orderClause(), len(args)+1, len(args)+2,
	)

	rows, err := r.db.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PostgresJobQueryRepository) GetByPrimaryID(ctx context.Context, jobPrimaryID int64) (*Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_primary_id = $1`, jobPrimaryID)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (r *PostgresJobQueryRepository) CountJobs(ctx context.Context) (int64, int64, error) {
	var total, active int64
	row := r.db.QueryRow(ctx, `SELECT COUNT(1), COUNT(1) FILTER (WHERE is_active) FROM jobs`)
	if err := row.Scan(&total, &active); err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

var _ JobQueryRepository = (*PostgresJobQueryRepository)(nil)
