package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"jobmirror/internal/database"
	"jobmirror/internal/repository"
	"jobmirror/internal/upstream"
)

var ErrSyncInProgress = errors.New("sync already in progress")

const (
	syncLockKey = "sync:lock"
	// Crash backstop only; the lock is released explicitly at run end.
	syncLockTTL = 30 * time.Minute

	maxRunErrorLen = 2000
)

// SyncLocker is the cross-process run-in-progress guard. Acquire must report
// true when the guard is unavailable so a degraded cache never blocks syncs;
// the in-process mutex still prevents overlap within one process.
type SyncLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

type SyncUsecase interface {
	RunSync(ctx context.Context) (repository.SyncCounts, error)
}

// Sync reconciles the local store against the full upstream catalog snapshot.
// It is the sole writer of job rows and sync_runs entries.
type Sync struct {
	db       database.DB
	upstream upstream.Client
	jobs     repository.JobSyncRepository
	runs     repository.SyncRunRepository
	locker   SyncLocker
	logger   *log.Logger
	now      func() time.Time

	mu sync.Mutex
}

func NewSyncUsecase(
	db database.DB,
	client upstream.Client,
	jobs repository.JobSyncRepository,
	runs repository.SyncRunRepository,
	locker SyncLocker,
	logger *log.Logger,
) *Sync {
	return &Sync{
		db:       db,
		upstream: client,
		jobs:     jobs,
		runs:     runs,
		locker:   locker,
		logger:   logger,
		now:      time.Now,
	}
}

// RunSync performs one complete sync attempt. Every attempt creates exactly
// one sync_runs row and finalizes it exactly once, success or failure. A
// second concurrent invocation gets ErrSyncInProgress without touching the
// ledger.
func (u *Sync) RunSync(ctx context.Context) (repository.SyncCounts, error) {
	if !u.mu.TryLock() {
		return repository.SyncCounts{}, ErrSyncInProgress
	}
	defer u.mu.Unlock()

	if u.locker != nil {
		ok, err := u.locker.AcquireLock(ctx, syncLockKey, syncLockTTL)
		if err != nil {
			return repository.SyncCounts{}, fmt.Errorf("acquire sync lock: %w", err)
		}
		if !ok {
			return repository.SyncCounts{}, ErrSyncInProgress
		}
		defer func() {
			_ = u.locker.ReleaseLock(context.WithoutCancel(ctx), syncLockKey)
		}()
	}

	startedAt := u.now().UTC()
	runID, err := u.runs.Create(ctx, startedAt)
	if err != nil {
		return repository.SyncCounts{}, fmt.Errorf("record sync run: %w", err)
	}

	counts, err := u.reconcile(ctx)
	finishedAt := u.now().UTC()
	if err != nil {
		if ferr := u.runs.FinishFailure(ctx, runID, finishedAt, truncateRunError(err)); ferr != nil && u.logger != nil {
			u.logger.Printf("[Sync] finalize failed run id=%d: %v", runID, ferr)
		}
		if u.logger != nil {
			u.logger.Printf("[Sync] run failed id=%d dur=%s err=%v", runID, finishedAt.Sub(startedAt), err)
		}
		return repository.SyncCounts{}, err
	}

	if err := u.runs.FinishSuccess(ctx, runID, finishedAt, counts); err != nil {
		return counts, fmt.Errorf("finalize sync run: %w", err)
	}
	if u.logger != nil {
		u.logger.Printf("[Sync] run ok id=%d dur=%s fetched=%d new=%d updated=%d expired=%d",
			runID, finishedAt.Sub(startedAt), counts.Fetched, counts.New, counts.Updated, counts.Expired)
	}
	return counts, nil
}

// reconcile exhausts all catalog pages, then applies the whole batch inside
// one transaction. A failed page fetch aborts before any write.
func (u *Sync) reconcile(ctx context.Context) (repository.SyncCounts, error) {
	var counts repository.SyncCounts

	first, err := u.upstream.FetchCatalogPage(ctx, 1, upstream.PageLimit)
	if err != nil {
		return counts, err
	}

	total := first.Count
	if total < len(first.GovtJobs) {
		total = len(first.GovtJobs)
	}
	pages := (total + upstream.PageLimit - 1) / upstream.PageLimit
	if pages < 1 {
		pages = 1
	}

	all := first.GovtJobs
	for p := 2; p <= pages; p++ {
		page, err := u.upstream.FetchCatalogPage(ctx, p, upstream.PageLimit)
		if err != nil {
			return counts, err
		}
		all = append(all, page.GovtJobs...)
	}
	counts.Fetched = int64(len(all))

	now := u.now().UTC()

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("begin sync transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	seen := make([]int64, 0, len(all))
	for _, item := range all {
		if item.JobPrimaryID <= 0 {
			continue
		}

		incoming, err := catalogJobToRow(item, now)
		if err != nil {
			return counts, err
		}
		seen = append(seen, incoming.JobPrimaryID)

		existing, err := u.jobs.FindByPrimaryID(ctx, tx, incoming.JobPrimaryID)
		if errors.Is(err, repository.ErrJobNotFound) {
			if err := u.jobs.Insert(ctx, tx, incoming); err != nil {
				return counts, err
			}
			counts.New++
			continue
		}
		if err != nil {
			return counts, err
		}

		// first_seen_at survives every update.
		incoming.FirstSeenAt = existing.FirstSeenAt

		if existing.JobContent.EqualSignificant(incoming.JobContent) {
			// Still mark the row observed so expiration sees it as current.
			if err := u.jobs.UpdateObserved(ctx, tx, incoming.JobPrimaryID, incoming.ViewCount, now); err != nil {
				return counts, err
			}
			continue
		}

		if err := u.jobs.UpdateContent(ctx, tx, incoming); err != nil {
			return counts, err
		}
		counts.Updated++
	}

	// An empty snapshot expires nothing; a catalog outage must not wipe the
	// active set.
	if len(seen) > 0 {
		expired, err := u.jobs.ExpireExcept(ctx, tx, seen)
		if err != nil {
			return counts, err
		}
		counts.Expired = expired
	}

	if err := tx.Commit(ctx); err != nil {
		return counts, fmt.Errorf("commit sync transaction: %w", err)
	}
	committed = true
	return counts, nil
}

func catalogJobToRow(j upstream.CatalogJob, now time.Time) (repository.Job, error) {
	publishedAt, err := parseUpstreamTime(j.PublishedDate)
	if err != nil {
		return repository.Job{}, fmt.Errorf("job %d: bad published_date %q: %w", j.JobPrimaryID, j.PublishedDate, err)
	}
	deadlineAt, err := parseUpstreamTime(j.DeadlineDate)
	if err != nil {
		return repository.Job{}, fmt.Errorf("job %d: bad deadline_date %q: %w", j.JobPrimaryID, j.DeadlineDate, err)
	}
	createdAt, err := parseUpstreamTime(j.CreatedAt)
	if err != nil {
		return repository.Job{}, fmt.Errorf("job %d: bad created_at %q: %w", j.JobPrimaryID, j.CreatedAt, err)
	}

	return repository.Job{
		JobPrimaryID: j.JobPrimaryID,
		JobContent: repository.JobContent{
			JobID:              j.JobID,
			JobTitle:           j.JobTitle,
			JobTitleBn:         nullString(j.JobTitleBn),
			JobType:            j.JobType,
			Vacancy:            j.Vacancy,
			VacancyNotSpecific: j.VacancyNotSpecific,
			ApplicationSiteURL: j.ApplicationSiteURL,
			PublishedAt:        publishedAt,
			DeadlineAt:         deadlineAt,
			Status:             j.Status,
			CreatedAtSource:    createdAt,
			OrganizationID:     j.OrganizationID,
			CategoryID:         j.CategoryID,
			RecruiterID:        j.RecruiterID,
			JobLocation:        j.JobLocation,
			Salary:             j.Salary,
			OrgName:            j.OrgName,
			OrgNameBn:          nullString(j.OrgNameBn),
			ShortName:          nullString(j.ShortName),
			LogoPath:           nullString(j.Logo),
			Website:            nullString(j.Website),
			ShortCode:          nullString(j.ShortCode),
			IndustryTypeID:     nullInt64(j.IndustryTypeID),
			IndustryTitle:      nullString(j.IndustryTitle),
		},
		ViewCount:     j.ViewCount,
		IsActive:      true,
		FirstSeenAt:   now,
		LastSeenAt:    now,
		LastChangedAt: now,
	}, nil
}

// parseUpstreamTime normalizes the source's ISO timestamps to UTC. The RFC
// 3339 layout also accepts fractional seconds.
func parseUpstreamTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func truncateRunError(err error) string {
	msg := err.Error()
	if len(msg) > maxRunErrorLen {
		msg = msg[:maxRunErrorLen]
	}
	return msg
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

var _ SyncUsecase = (*Sync)(nil)
