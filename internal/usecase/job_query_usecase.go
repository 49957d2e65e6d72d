package usecase

import (
	"context"
	"time"

	"jobmirror/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// dhakaZone is a fixed +06:00 offset, not the IANA zone: Bangladesh has no
// DST today, and "posted today" windows stay deterministic without tzdata.
// A known simplification if the country ever changes its offset.
var dhakaZone = time.FixedZone("Asia/Dhaka", 6*60*60)

// JobsQuery carries raw caller inputs; out-of-range values are clamped, not
// rejected. IncludeExpired inverts the default active-only behavior.
type JobsQuery struct {
	Page           int
	Limit          int
	Q              string
	JobType        *int
	OrganizationID *int64
	ComputerOnly   bool
	DataEntryOnly  bool
	IncludeExpired bool
	PostedToday    bool
	DeadlineToday  bool
	ExpiresInDays  int
	Sort           string
}

type JobsPage struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
	Items      []repository.Job
}

type JobQueryUsecase interface {
	QueryJobs(ctx context.Context, in JobsQuery) (JobsPage, error)
	GetJobByPrimaryID(ctx context.Context, jobPrimaryID int64) (*repository.Job, error)
}

type JobQuery struct {
	repo repository.JobQueryRepository
	now  func() time.Time
}

func NewJobQueryUsecase(repo repository.JobQueryRepository) *JobQuery {
	return &JobQuery{repo: repo, now: time.Now}
}

// QueryJobs is a pure read: the result depends only on the filter values and
// the current store state.
func (u *JobQuery) QueryJobs(ctx context.Context, in JobsQuery) (JobsPage, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit == 0 {
		limit = defaultPageLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	sort := in.Sort
	if sort != "deadline" {
		sort = "published"
	}

	f := repository.JobListFilter{
		Q:              in.Q,
		JobType:        in.JobType,
		OrganizationID: in.OrganizationID,
		ComputerOnly:   in.ComputerOnly,
		DataEntryOnly:  in.DataEntryOnly,
		ActiveOnly:     !in.IncludeExpired,
		Sort:           sort,
		Limit:          limit,
		Offset:         (page - 1) * limit,
	}

	now := u.now().UTC()
	if in.PostedToday {
		start, end := dhakaDayRange(now)
		f.PublishedFrom = &start
		f.PublishedTo = &end
	}
	if in.DeadlineToday {
		start, end := dhakaDayRange(now)
		f.DeadlineFrom = &start
		f.DeadlineBefore = &end
	}
	if in.ExpiresInDays > 0 {
		from := now
		to := now.Add(time.Duration(in.ExpiresInDays) * 24 * time.Hour)
		f.DeadlineFrom = &from
		f.DeadlineTo = &to
	}

	items, total, err := u.repo.QueryJobs(ctx, f)
	if err != nil {
		return JobsPage{}, err
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	return JobsPage{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Items:      items,
	}, nil
}

func (u *JobQuery) GetJobByPrimaryID(ctx context.Context, jobPrimaryID int64) (*repository.Job, error) {
	return u.repo.GetByPrimaryID(ctx, jobPrimaryID)
}

// dhakaDayRange returns the UTC instants bounding the current Dhaka calendar
// day, [start, end).
func dhakaDayRange(now time.Time) (time.Time, time.Time) {
	local := now.In(dhakaZone)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, dhakaZone)
	return start.UTC(), start.Add(24 * time.Hour).UTC()
}

var _ JobQueryUsecase = (*JobQuery)(nil)
