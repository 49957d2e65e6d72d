package usecase

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"jobmirror/internal/database"
	"jobmirror/internal/repository"
	"jobmirror/internal/upstream"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(context.Context, string, ...any) (int64, error) { return 0, nil }
func (t *fakeTx) Query(context.Context, string, ...any) (database.Rows, error) {
	return nil, errors.New("not implemented")
}
func (t *fakeTx) QueryRow(context.Context, string, ...any) database.Row { return nil }
func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}
func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	txs      []*fakeTx
	beginErr error
}

func (d *fakeDB) Ping(context.Context) error { return nil }
func (d *fakeDB) Close() error               { return nil }
func (d *fakeDB) Exec(context.Context, string, ...any) (int64, error) {
	return 0, nil
}
func (d *fakeDB) Query(context.Context, string, ...any) (database.Rows, error) {
	return nil, errors.New("not implemented")
}
func (d *fakeDB) QueryRow(context.Context, string, ...any) database.Row { return nil }
func (d *fakeDB) SQLDB() *sql.DB                                        { return nil }
func (d *fakeDB) Begin(context.Context) (database.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	return tx, nil
}

type fakeJobStore struct {
	jobs map[int64]repository.Job
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: map[int64]repository.Job{}}
}

func (s *fakeJobStore) FindByPrimaryID(_ context.Context, _ database.Tx, id int64) (*repository.Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	return &j, nil
}

func (s *fakeJobStore) Insert(_ context.Context, _ database.Tx, job repository.Job) error {
	job.IsActive = true
	s.jobs[job.JobPrimaryID] = job
	return nil
}

func (s *fakeJobStore) UpdateContent(_ context.Context, _ database.Tx, job repository.Job) error {
	job.IsActive = true
	s.jobs[job.JobPrimaryID] = job
	return nil
}

func (s *fakeJobStore) UpdateObserved(_ context.Context, _ database.Tx, id, viewCount int64, seenAt time.Time) error {
	j := s.jobs[id]
	j.ViewCount = viewCount
	j.IsActive = true
	j.LastSeenAt = seenAt
	s.jobs[id] = j
	return nil
}

func (s *fakeJobStore) ExpireExcept(_ context.Context, _ database.Tx, seen []int64) (int64, error) {
	keep := map[int64]struct{}{}
	for _, id := range seen {
		keep[id] = struct{}{}
	}
	var n int64
	for id, j := range s.jobs {
		if _, ok := keep[id]; ok || !j.IsActive {
			continue
		}
		j.IsActive = false
		s.jobs[id] = j
		n++
	}
	return n, nil
}

type fakeRunLedger struct {
	nextID    int64
	created   int
	successes []repository.SyncCounts
	failures  []string
}

func (l *fakeRunLedger) Create(context.Context, time.Time) (int64, error) {
	l.nextID++
	l.created++
	return l.nextID, nil
}
func (l *fakeRunLedger) FinishSuccess(_ context.Context, _ int64, _ time.Time, counts repository.SyncCounts) error {
	l.successes = append(l.successes, counts)
	return nil
}
func (l *fakeRunLedger) FinishFailure(_ context.Context, _ int64, _ time.Time, msg string) error {
	l.failures = append(l.failures, msg)
	return nil
}
func (l *fakeRunLedger) Latest(context.Context) (*repository.SyncRun, error) {
	return nil, repository.ErrNoSyncRuns
}
func (l *fakeRunLedger) List(context.Context, int) ([]repository.SyncRun, error) { return nil, nil }

type fakeCatalog struct {
	pages   map[int]upstream.CatalogPage
	pageErr map[int]error
	calls   []int
}

func (c *fakeCatalog) FetchCatalogPage(_ context.Context, page, _ int) (upstream.CatalogPage, error) {
	c.calls = append(c.calls, page)
	if err, ok := c.pageErr[page]; ok {
		return upstream.CatalogPage{}, err
	}
	p, ok := c.pages[page]
	if !ok {
		return upstream.CatalogPage{GovtJobs: []upstream.CatalogJob{}}, nil
	}
	return p, nil
}

func (c *fakeCatalog) FetchJobDetails(context.Context, int64) (upstream.JobDetails, error) {
	return upstream.JobDetails{}, errors.New("not implemented")
}

func catalogJob(id int64, title string, views int64) upstream.CatalogJob {
	return upstream.CatalogJob{
		JobPrimaryID:       id,
		JobTitle:           title,
		JobID:              "JOB-0001",
		JobType:            1,
		Vacancy:            "10",
		ApplicationSiteURL: "https://example.org/apply",
		PublishedDate:      "2026-08-01T00:00:00.000Z",
		DeadlineDate:       "2026-09-15T17:59:00.000Z",
		Status:             1,
		CreatedAt:          "2026-08-01T04:30:00.000Z",
		OrganizationID:     7,
		CategoryID:         2,
		RecruiterID:        3,
		JobLocation:        "Dhaka",
		Salary:             0,
		ViewCount:          views,
		OrgName:            "Teletalk Bangladesh Limited",
	}
}

func newTestSync(cat upstream.Client, store *fakeJobStore, runs *fakeRunLedger) (*Sync, *fakeDB) {
	db := &fakeDB{}
	uc := NewSyncUsecase(db, cat, store, runs, nil, nil)
	return uc, db
}

func TestRunSync_InsertsNewJobs(t *testing.T) {
	cat := &fakeCatalog{pages: map[int]upstream.CatalogPage{
		1: {Count: 2, GovtJobs: []upstream.CatalogJob{
			catalogJob(1, "Assistant Programmer", 100),
			catalogJob(2, "Data Entry Operator", 50),
		}},
	}}
	store := newFakeJobStore()
	runs := &fakeRunLedger{}
	uc, db := newTestSync(cat, store, runs)

	counts, err := uc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if counts.Fetched != 2 || counts.New != 2 || counts.Updated != 0 || counts.Expired != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if len(store.jobs) != 2 {
		t.Fatalf("expected 2 stored jobs, got %d", len(store.jobs))
	}
	if len(db.txs) != 1 || !db.txs[0].committed {
		t.Fatalf("expected one committed transaction")
	}
	if len(runs.successes) != 1 {
		t.Fatalf("expected one finalized run, got %d", len(runs.successes))
	}
}

func TestRunSync_SecondIdenticalRunIsNoop(t *testing.T) {
	page := upstream.CatalogPage{Count: 1, GovtJobs: []upstream.CatalogJob{
		catalogJob(1, "Assistant Programmer", 100),
	}}
	cat := &fakeCatalog{pages: map[int]upstream.CatalogPage{1: page}}
	store := newFakeJobStore()
	runs := &fakeRunLedger{}
	uc, _ := newTestSync(cat, store, runs)

	if _, err := uc.RunSync(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	counts, err := uc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if counts.New != 0 || counts.Updated != 0 || counts.Expired != 0 {
		t.Fatalf("expected no-op counts, got %+v", counts)
	}
	if !store.jobs[1].IsActive {
		t.Fatalf("job should stay active")
	}
}

func TestRunSync_ViewCountChangeIsNotAnUpdate(t *testing.T) {
	cat := &fakeCatalog{pages: map[int]upstream.CatalogPage{
		1: {Count: 1, GovtJobs: []upstream.CatalogJob{catalogJob(1, "Assistant Programmer", 100)}},
	}}
	store := newFakeJobStore()
	runs := &fakeRunLedger{}
	uc, _ := newTestSync(cat, store, runs)

	if _, err := uc.RunSync(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	cat.pages[1] = upstream.CatalogPage{Count: 1, GovtJobs: []upstream.CatalogJob{
		catalogJob(1, "Assistant Programmer", 250),
	}}
	counts, err := uc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if counts.Updated != 0 {
		t.Fatalf("view count movement must not count as update, got %+v", counts)
	}
	if store.jobs[1].ViewCount != 250 {
		t.Fatalf("view count should still be refreshed, got %d", store.jobs[1].ViewCount)
	}
}

func TestRunSync_TitleChangeCountsAsUpdate(t *testing.T) {
	cat := &fakeCatalog{pages: map[int]upstream.CatalogPage{
		1: {Count: 1, GovtJobs: []upstream.CatalogJob{catalogJob(1, "Assistant Programmer", 100)}},
	}}
	store := newFakeJobStore()
	runs := &fakeRunLedger{}
	uc, _ := newTestSync(cat, store, runs)

	if _, err := uc.RunSync(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstSeen := store.jobs[1].FirstSeenAt

	cat.pages[1] = upstream.CatalogPage{Count: 1, GovtJobs: []upstream.CatalogJob{
		catalogJob(1, "Senior Assistant Programmer", 100),
	}}
	counts, err := uc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if counts.Updated != 1 {
		t.Fatalf("expected 1 update, got %+v", counts)
	}
	if store.jobs[1].JobTitle != "Senior Assistant Programmer" {
		t.Fatalf("title not rewritten: %q", store.jobs[1].JobTitle)
	}
	if !store.jobs[1].FirstSeenAt.Equal(firstSeen) {
		t.Fatalf("first_seen_at must survive updates")
	}
}

func TestRunSync_ExpiresJobsMissingFromSnapshot(t *testing.T) {
	cat := &fakeCatalog{pages: map[int]upstream.CatalogPage{
		1: {Count: 3, GovtJobs: []upstream.CatalogJob{
			catalogJob(1, "Job One", 1),
			catalogJob(2, "Job Two", 1),
			catalogJob(3, "Job Three", 1),
		}},
	}}
	store := newFakeJobStore()
	runs := &fakeRunLedger{}
	uc, _ := newTestSync(cat, store, runs)

	if _, err := uc.RunSync(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	cat.pages[1] = upstream.CatalogPage{Count: 2, GovtJobs: []upstream.CatalogJob{
		catalogJob(1, "Job One", 1),
		catalogJob(3, "Job Three", 1),
	}}
	counts, err := uc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if counts.Expired != 1 {
		t.Fatalf("expected 1 expired, got %+v", counts)
	}
	if store.jobs[2].IsActive {
		t.Fatalf("job 2 should be expired")
	}
	if !store.jobs[1].IsActive || !store.jobs[3].IsActive {
		t.Fatalf("seen jobs must stay active")
	}
}

func TestRunSync_EmptySnapshotExpiresNothing(t *testing.T) {
	cat := &fakeCatalog{pages: map[int]upstream.CatalogPage{
		1: {Count: 1, GovtJobs: []upstream.CatalogJob{catalogJob(1, "Job One", 1)}},
	}}
	store := newFakeJobStore()
	runs := &fakeRunLedger{}
	uc, _ := newTestSync(cat, store, runs)

	if _, err := uc.RunSync(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	cat.pages[1] = upstream.CatalogPage{Count: 0, GovtJobs: []upstream.CatalogJob{}}
	counts, err := uc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if counts.Expired != 0 {
		t.Fatalf("empty snapshot must not expire, got %+v", counts)
	}
	if !store.jobs[1].IsActive {
		t.Fatalf("job 1 should stay active after empty snapshot")
	}
}

func TestRunSync_FetchesAllPages(t *testing.T) {
	cat := &fakeCatalog{pages: map[int]upstream.CatalogPage{
		1: {Count: 45, GovtJobs: []upstream.CatalogJob{catalogJob(1, "A", 1)}},
		2: {Count: 45, GovtJobs: []upstream.CatalogJob{catalogJob(2, "B", 1)}},
		3: {Count: 45, GovtJobs: []upstream.CatalogJob{catalogJob(3, "C", 1)}},
	}}
	store := newFakeJobStore()
	runs := &fakeRunLedger{}
	uc, _ := newTestSync(cat, store, runs)

	counts, err := uc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(cat.calls) != 3 {
		t.Fatalf("expected 3 page fetches, got %v", cat.calls)
	}
	if counts.Fetched != 3 || counts.New != 3 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestRunSync_PageFailureWritesNothing(t *testing.T) {
	cat := &fakeCatalog{
		pages: map[int]upstream.CatalogPage{
			1: {Count: 45, GovtJobs: []upstream.CatalogJob{catalogJob(1, "A", 1)}},
		},
		pageErr: map[int]error{2: errors.New("upstream catalog failed: status=503")},
	}
	store := newFakeJobStore()
	runs := &fakeRunLedger{}
	uc, db := newTestSync(cat, store, runs)

	_, err := uc.RunSync(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(store.jobs) != 0 {
		t.Fatalf("failed run must write no rows, got %d", len(store.jobs))
	}
	if len(db.txs) != 0 {
		t.Fatalf("no transaction should start before all pages are in")
	}
	if len(runs.failures) != 1 {
		t.Fatalf("expected one failed ledger row, got %d", len(runs.failures))
	}
	if !strings.Contains(runs.failures[0], "503") {
		t.Fatalf("ledger error should carry the cause: %q", runs.failures[0])
	}
}

func TestRunSync_LedgerErrorIsTruncated(t *testing.T) {
	longMsg := strings.Repeat("x", 5000)
	cat := &fakeCatalog{pageErr: map[int]error{1: errors.New(longMsg)}}
	runs := &fakeRunLedger{}
	uc, _ := newTestSync(cat, newFakeJobStore(), runs)

	if _, err := uc.RunSync(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if len(runs.failures) != 1 {
		t.Fatalf("expected one failure, got %d", len(runs.failures))
	}
	if len(runs.failures[0]) != maxRunErrorLen {
		t.Fatalf("expected truncation to %d chars, got %d", maxRunErrorLen, len(runs.failures[0]))
	}
}

type fakeLocker struct {
	acquired bool
	released int
}

func (l *fakeLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) {
	return l.acquired, nil
}
func (l *fakeLocker) ReleaseLock(context.Context, string) error {
	l.released++
	return nil
}

func TestRunSync_HeldLockReturnsInProgress(t *testing.T) {
	cat := &fakeCatalog{pages: map[int]upstream.CatalogPage{
		1: {Count: 0, GovtJobs: []upstream.CatalogJob{}},
	}}
	runs := &fakeRunLedger{}
	db := &fakeDB{}
	uc := NewSyncUsecase(db, cat, newFakeJobStore(), runs, &fakeLocker{acquired: false}, nil)

	_, err := uc.RunSync(context.Background())
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
	if runs.created != 0 {
		t.Fatalf("blocked run must not create a ledger row")
	}
}

func TestRunSync_ReleasesLockAfterRun(t *testing.T) {
	cat := &fakeCatalog{pages: map[int]upstream.CatalogPage{
		1: {Count: 0, GovtJobs: []upstream.CatalogJob{}},
	}}
	locker := &fakeLocker{acquired: true}
	uc := NewSyncUsecase(&fakeDB{}, cat, newFakeJobStore(), &fakeRunLedger{}, locker, nil)

	if _, err := uc.RunSync(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if locker.released != 1 {
		t.Fatalf("expected lock release, got %d", locker.released)
	}
}

func TestParseUpstreamTime_NormalizesToUTC(t *testing.T) {
	got, err := parseUpstreamTime("2026-08-01T06:00:00.000+06:00")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := parseUpstreamTime("01-08-2026"); err == nil {
		t.Fatalf("expected error for non-ISO input")
	}
}
