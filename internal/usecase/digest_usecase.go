package usecase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"jobmirror/internal/repository"
	"jobmirror/internal/upstream"
)

const (
	defaultExpiringDays = 7
	maxExpiringDays     = 30
	expiringListLimit   = 50
)

// DigestItem pairs a job row with its cached public details when available.
// Details stay nil for private jobs and for jobs whose fetch failed.
type DigestItem struct {
	Job     repository.Job
	Details *upstream.JobDetails
}

type DigestUsecase interface {
	ListComputerJobs(ctx context.Context, limit int) ([]repository.Job, error)
	ListDataEntryJobs(ctx context.Context, limit int) ([]repository.Job, error)
	ListActiveJobs(ctx context.Context, limit int) ([]repository.Job, error)
	ListExpiringJobs(ctx context.Context, days int) ([]repository.Job, error)
	AttachDetails(ctx context.Context, jobs []repository.Job) []DigestItem
	EnsureDetails(ctx context.Context, jobPrimaryID int64) (*upstream.JobDetails, error)
	LastSyncFinishedAt(ctx context.Context) (*time.Time, error)
}

// Digest serves the curated lists the bot relays: active jobs ordered by the
// soonest deadline, lazily enriched with cached upstream details.
type Digest struct {
	queries  repository.JobQueryRepository
	details  repository.JobDetailsRepository
	runs     repository.SyncRunRepository
	upstream upstream.Client
	logger   *log.Logger
	now      func() time.Time
}

func NewDigestUsecase(
	queries repository.JobQueryRepository,
	details repository.JobDetailsRepository,
	runs repository.SyncRunRepository,
	client upstream.Client,
	logger *log.Logger,
) *Digest {
	return &Digest{
		queries:  queries,
		details:  details,
		runs:     runs,
		upstream: client,
		logger:   logger,
		now:      time.Now,
	}
}

func (u *Digest) ListComputerJobs(ctx context.Context, limit int) ([]repository.Job, error) {
	return u.list(ctx, repository.JobListFilter{ComputerOnly: true}, limit)
}

func (u *Digest) ListDataEntryJobs(ctx context.Context, limit int) ([]repository.Job, error) {
	return u.list(ctx, repository.JobListFilter{DataEntryOnly: true}, limit)
}

func (u *Digest) ListActiveJobs(ctx context.Context, limit int) ([]repository.Job, error) {
	return u.list(ctx, repository.JobListFilter{}, limit)
}

func (u *Digest) ListExpiringJobs(ctx context.Context, days int) ([]repository.Job, error) {
	if days < 1 {
		days = defaultExpiringDays
	}
	if days > maxExpiringDays {
		days = maxExpiringDays
	}
	from := u.now().UTC()
	to := from.Add(time.Duration(days) * 24 * time.Hour)

	f := repository.JobListFilter{DeadlineFrom: &from, DeadlineTo: &to}
	return u.list(ctx, f, expiringListLimit)
}

func (u *Digest) list(ctx context.Context, f repository.JobListFilter, limit int) ([]repository.Job, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	f.ActiveOnly = true
	f.Sort = "deadline"
	f.Limit = limit

	items, _, err := u.queries.QueryJobs(ctx, f)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AttachDetails enriches each government job with cached or freshly fetched
// details. Failures are isolated per item: one bad fetch never drops the
// digest, the item just falls back to its store row.
func (u *Digest) AttachDetails(ctx context.Context, jobs []repository.Job) []DigestItem {
	out := make([]DigestItem, 0, len(jobs))
	for _, j := range jobs {
		item := DigestItem{Job: j}
		if j.JobType == repository.JobTypeGovernment {
			d, err := u.EnsureDetails(ctx, j.JobPrimaryID)
			if err != nil {
				if u.logger != nil {
					u.logger.Printf("[Digest] details unavailable job=%d: %v", j.JobPrimaryID, err)
				}
			} else {
				item.Details = d
			}
		}
		out = append(out, item)
	}
	return out
}

// EnsureDetails returns the cached details blob, fetching and caching it on
// first use. The cache never expires; a fresh fetch happens only when the
// cached blob is missing or unreadable.
func (u *Digest) EnsureDetails(ctx context.Context, jobPrimaryID int64) (*upstream.JobDetails, error) {
	cached, err := u.details.Get(ctx, jobPrimaryID)
	if err != nil && !errors.Is(err, repository.ErrDetailsNotFound) {
		return nil, err
	}
	if err == nil && len(cached.DetailsJSON) > 0 {
		var d upstream.JobDetails
		if jerr := json.Unmarshal(cached.DetailsJSON, &d); jerr == nil {
			d.Raw = cached.DetailsJSON
			return &d, nil
		}
	}

	live, err := u.upstream.FetchJobDetails(ctx, jobPrimaryID)
	if err != nil {
		return nil, err
	}
	if err := u.details.Upsert(ctx, detailsToRow(live, u.now().UTC())); err != nil {
		return nil, err
	}
	return &live, nil
}

func (u *Digest) LastSyncFinishedAt(ctx context.Context) (*time.Time, error) {
	run, err := u.runs.Latest(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoSyncRuns) {
			return nil, nil
		}
		return nil, err
	}
	if !run.FinishedAt.Valid {
		return nil, nil
	}
	t := run.FinishedAt.Time
	return &t, nil
}

func detailsToRow(d upstream.JobDetails, fetchedAt time.Time) repository.JobDetails {
	return repository.JobDetails{
		JobPrimaryID: d.ID,
		JobType:      d.JobType,
		DetailsJSON:  d.Raw,
		FetchedAt:    fetchedAt,

		AdvertisementFile:          nullString(d.AdvertisementFile),
		AdvertisementNo:            nullString(d.AdvertisementNo),
		AdvertisementPublishedDate: nullString(d.AdvertisementPublishedDate),
		ApplicationSite:            nullString(&d.ApplicationSite),
		JobSource:                  nullString(d.JobSource),

		MinAge:    nullIntValue(d.MinAge),
		MaxAge:    nullIntValue(d.MaxAge),
		Gender:    nullIntValue(d.Gender),
		ViewCount: nullInt64(d.ViewCount),
	}
}

func nullIntValue(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

var _ DigestUsecase = (*Digest)(nil)
