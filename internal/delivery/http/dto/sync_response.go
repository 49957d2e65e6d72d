package dto

import "jobmirror/internal/repository"

type SyncResultResponse struct {
	FetchedJobs int64 `json:"fetchedJobs"`
	NewJobs     int64 `json:"newJobs"`
	UpdatedJobs int64 `json:"updatedJobs"`
	ExpiredJobs int64 `json:"expiredJobs"`
}

type SyncRunResponse struct {
	ID          int64   `json:"id"`
	StartedAt   string  `json:"started_at"`
	FinishedAt  *string `json:"finished_at"`
	OK          bool    `json:"ok"`
	FetchedJobs int64   `json:"fetched_jobs"`
	NewJobs     int64   `json:"new_jobs"`
	UpdatedJobs int64   `json:"updated_jobs"`
	ExpiredJobs int64   `json:"expired_jobs"`
	Error       *string `json:"error"`
}

type DBInfoResponse struct {
	TotalJobs  int64            `json:"totalJobs"`
	ActiveJobs int64            `json:"activeJobs"`
	LastRun    *SyncRunResponse `json:"lastRun"`
}

func FromSyncCounts(c repository.SyncCounts) SyncResultResponse {
	return SyncResultResponse{
		FetchedJobs: c.Fetched,
		NewJobs:     c.New,
		UpdatedJobs: c.Updated,
		ExpiredJobs: c.Expired,
	}
}

func FromSyncRun(r repository.SyncRun) SyncRunResponse {
	out := SyncRunResponse{
		ID:          r.ID,
		StartedAt:   rfc3339(r.StartedAt),
		OK:          r.OK,
		FetchedJobs: r.FetchedJobs,
		NewJobs:     r.NewJobs,
		UpdatedJobs: r.UpdatedJobs,
		ExpiredJobs: r.ExpiredJobs,
		Error:       strPtr(r.Error),
	}
	if r.FinishedAt.Valid {
		s := rfc3339(r.FinishedAt.Time)
		out.FinishedAt = &s
	}
	return out
}

func FromSyncRuns(runs []repository.SyncRun) []SyncRunResponse {
	out := make([]SyncRunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, FromSyncRun(r))
	}
	return out
}
