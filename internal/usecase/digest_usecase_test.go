package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobmirror/internal/repository"
	"jobmirror/internal/upstream"
)

type fakeDetailsStore struct {
	rows    map[int64]repository.JobDetails
	upserts int
}

func (s *fakeDetailsStore) Get(_ context.Context, id int64) (*repository.JobDetails, error) {
	if s.rows == nil {
		return nil, repository.ErrDetailsNotFound
	}
	d, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrDetailsNotFound
	}
	return &d, nil
}

func (s *fakeDetailsStore) Upsert(_ context.Context, d repository.JobDetails) error {
	if s.rows == nil {
		s.rows = map[int64]repository.JobDetails{}
	}
	s.rows[d.JobPrimaryID] = d
	s.upserts++
	return nil
}

type fakeDetailsFetcher struct {
	details map[int64]upstream.JobDetails
	errs    map[int64]error
	fetches int
}

func (f *fakeDetailsFetcher) FetchCatalogPage(context.Context, int, int) (upstream.CatalogPage, error) {
	return upstream.CatalogPage{}, errors.New("not implemented")
}

func (f *fakeDetailsFetcher) FetchJobDetails(_ context.Context, id int64) (upstream.JobDetails, error) {
	f.fetches++
	if err, ok := f.errs[id]; ok {
		return upstream.JobDetails{}, err
	}
	d, ok := f.details[id]
	if !ok {
		return upstream.JobDetails{}, errors.New("no such job")
	}
	return d, nil
}

func govtJob(id int64, title string) repository.Job {
	return repository.Job{
		JobPrimaryID: id,
		JobContent: repository.JobContent{
			JobTitle: title,
			JobType:  repository.JobTypeGovernment,
		},
		IsActive: true,
	}
}

func newTestDigest(queries *capturingQueryRepo, store *fakeDetailsStore, fetcher *fakeDetailsFetcher) *Digest {
	return NewDigestUsecase(queries, store, &fakeRunLedger{}, fetcher, nil)
}

func TestAttachDetails_UsesCachedBlob(t *testing.T) {
	store := &fakeDetailsStore{rows: map[int64]repository.JobDetails{
		7: {JobPrimaryID: 7, DetailsJSON: []byte(`{"id":7,"job_title":"Cached Title"}`)},
	}}
	fetcher := &fakeDetailsFetcher{}
	uc := newTestDigest(&capturingQueryRepo{}, store, fetcher)

	items := uc.AttachDetails(context.Background(), []repository.Job{govtJob(7, "Row Title")})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Details == nil || items[0].Details.JobTitle != "Cached Title" {
		t.Fatalf("expected cached details, got %+v", items[0].Details)
	}
	if fetcher.fetches != 0 {
		t.Fatalf("cache hit must not reach upstream, got %d fetches", fetcher.fetches)
	}
}

func TestAttachDetails_FetchesAndCachesOnMiss(t *testing.T) {
	store := &fakeDetailsStore{}
	fetcher := &fakeDetailsFetcher{details: map[int64]upstream.JobDetails{
		7: {ID: 7, JobTitle: "Fresh Title", Raw: []byte(`{"id":7,"job_title":"Fresh Title"}`)},
	}}
	uc := newTestDigest(&capturingQueryRepo{}, store, fetcher)

	items := uc.AttachDetails(context.Background(), []repository.Job{govtJob(7, "Row Title")})
	if items[0].Details == nil || items[0].Details.JobTitle != "Fresh Title" {
		t.Fatalf("expected fetched details, got %+v", items[0].Details)
	}
	if fetcher.fetches != 1 || store.upserts != 1 {
		t.Fatalf("expected one fetch and one upsert, got fetches=%d upserts=%d", fetcher.fetches, store.upserts)
	}
}

func TestAttachDetails_IsolatesPerItemFailures(t *testing.T) {
	store := &fakeDetailsStore{}
	fetcher := &fakeDetailsFetcher{
		details: map[int64]upstream.JobDetails{
			2: {ID: 2, JobTitle: "Two", Raw: []byte(`{"id":2}`)},
		},
		errs: map[int64]error{1: errors.New("upstream details failed")},
	}
	uc := newTestDigest(&capturingQueryRepo{}, store, fetcher)

	items := uc.AttachDetails(context.Background(), []repository.Job{
		govtJob(1, "One"),
		govtJob(2, "Two"),
	})
	if len(items) != 2 {
		t.Fatalf("a failed fetch must not drop the item, got %d", len(items))
	}
	if items[0].Details != nil {
		t.Fatalf("failed item should fall back to its row")
	}
	if items[1].Details == nil {
		t.Fatalf("healthy item should still be enriched")
	}
}

func TestAttachDetails_SkipsPrivateJobs(t *testing.T) {
	fetcher := &fakeDetailsFetcher{}
	uc := newTestDigest(&capturingQueryRepo{}, &fakeDetailsStore{}, fetcher)

	private := govtJob(9, "Private Role")
	private.JobType = repository.JobTypePrivate

	items := uc.AttachDetails(context.Background(), []repository.Job{private})
	if items[0].Details != nil {
		t.Fatalf("private jobs carry no public details")
	}
	if fetcher.fetches != 0 {
		t.Fatalf("private jobs must not trigger a details fetch")
	}
}

func TestListExpiringJobs_ClampsDaysAndFilters(t *testing.T) {
	queries := &capturingQueryRepo{}
	uc := newTestDigest(queries, &fakeDetailsStore{}, &fakeDetailsFetcher{})
	now := time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	if _, err := uc.ListExpiringJobs(context.Background(), 90); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	f := queries.lastFilter
	if !f.ActiveOnly || f.Sort != "deadline" {
		t.Fatalf("digest lists are active-only by soonest deadline, got %+v", f)
	}
	if f.DeadlineFrom == nil || f.DeadlineTo == nil {
		t.Fatalf("expected deadline window")
	}
	if got := f.DeadlineTo.Sub(*f.DeadlineFrom); got != time.Duration(maxExpiringDays)*24*time.Hour {
		t.Fatalf("expected clamp to %d days, got %s", maxExpiringDays, got)
	}

	if _, err := uc.ListExpiringJobs(context.Background(), 0); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	f = queries.lastFilter
	if got := f.DeadlineTo.Sub(*f.DeadlineFrom); got != time.Duration(defaultExpiringDays)*24*time.Hour {
		t.Fatalf("expected default %d-day window, got %s", defaultExpiringDays, got)
	}
}

func TestLastSyncFinishedAt_NoRuns(t *testing.T) {
	uc := newTestDigest(&capturingQueryRepo{}, &fakeDetailsStore{}, &fakeDetailsFetcher{})

	got, err := uc.LastSyncFinishedAt(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil when no runs exist, got %v", got)
	}
}
