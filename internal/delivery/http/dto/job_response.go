package dto

import (
	"database/sql"
	"time"

	"jobmirror/internal/repository"
)

type JobResponse struct {
	JobPrimaryID int64  `json:"job_primary_id"`
	JobID        string `json:"job_id"`

	JobTitle           string  `json:"job_title"`
	JobTitleBn         *string `json:"job_title_bn"`
	JobType            int     `json:"job_type"`
	Vacancy            string  `json:"vacancy"`
	VacancyNotSpecific bool    `json:"vacancy_not_specific"`
	ApplicationSiteURL string  `json:"application_site_url"`

	PublishedAt     string `json:"published_at"`
	DeadlineAt      string `json:"deadline_at"`
	Status          int    `json:"status"`
	CreatedAtSource string `json:"created_at_source"`

	OrganizationID int64 `json:"organization_id"`
	CategoryID     int64 `json:"category_id"`
	RecruiterID    int64 `json:"recruiter_id"`

	JobLocation string `json:"job_location"`
	Salary      int64  `json:"salary"`
	ViewCount   int64  `json:"view_count"`

	OrgName        string  `json:"org_name"`
	OrgNameBn      *string `json:"org_name_bn"`
	ShortName      *string `json:"short_name"`
	LogoPath       *string `json:"logo_path"`
	Website        *string `json:"website"`
	ShortCode      *string `json:"short_code"`
	IndustryTypeID *int64  `json:"industry_type_id"`
	IndustryTitle  *string `json:"industry_title"`

	IsActive      bool   `json:"is_active"`
	FirstSeenAt   string `json:"first_seen_at"`
	LastSeenAt    string `json:"last_seen_at"`
	LastChangedAt string `json:"last_changed_at"`
}

type JobsPageResponse struct {
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
	Items      []JobResponse `json:"items"`
}

func FromJob(j repository.Job) JobResponse {
	return JobResponse{
		JobPrimaryID: j.JobPrimaryID,
		JobID:        j.JobID,

		JobTitle:           j.JobTitle,
		JobTitleBn:         strPtr(j.JobTitleBn),
		JobType:            j.JobType,
		Vacancy:            j.Vacancy,
		VacancyNotSpecific: j.VacancyNotSpecific,
		ApplicationSiteURL: j.ApplicationSiteURL,

		PublishedAt:     rfc3339(j.PublishedAt),
		DeadlineAt:      rfc3339(j.DeadlineAt),
		Status:          j.Status,
		CreatedAtSource: rfc3339(j.CreatedAtSource),

		OrganizationID: j.OrganizationID,
		CategoryID:     j.CategoryID,
		RecruiterID:    j.RecruiterID,

		JobLocation: j.JobLocation,
		Salary:      j.Salary,
		ViewCount:   j.ViewCount,

		OrgName:        j.OrgName,
		OrgNameBn:      strPtr(j.OrgNameBn),
		ShortName:      strPtr(j.ShortName),
		LogoPath:       strPtr(j.LogoPath),
		Website:        strPtr(j.Website),
		ShortCode:      strPtr(j.ShortCode),
		IndustryTypeID: int64Ptr(j.IndustryTypeID),
		IndustryTitle:  strPtr(j.IndustryTitle),

		IsActive:      j.IsActive,
		FirstSeenAt:   rfc3339(j.FirstSeenAt),
		LastSeenAt:    rfc3339(j.LastSeenAt),
		LastChangedAt: rfc3339(j.LastChangedAt),
	}
}

func FromJobs(jobs []repository.Job) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, FromJob(j))
	}
	return out
}

func rfc3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
