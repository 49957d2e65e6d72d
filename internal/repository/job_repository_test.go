package repository

import (
	"database/sql"
	"strings"
	"testing"
	"time"
)

func sampleContent() JobContent {
	return JobContent{
		JobID:              "BTCL-2026-01",
		JobTitle:           "Assistant Programmer",
		JobType:            JobTypeGovernment,
		Vacancy:            "10",
		ApplicationSiteURL: "https://example.org/apply",
		PublishedAt:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DeadlineAt:         time.Date(2026, 9, 15, 17, 59, 0, 0, time.UTC),
		Status:             1,
		CreatedAtSource:    time.Date(2026, 8, 1, 4, 30, 0, 0, time.UTC),
		OrganizationID:     7,
		OrgName:            "Bangladesh Telecommunications Company Limited",
		ShortName:          sql.NullString{String: "BTCL", Valid: true},
	}
}

func TestEqualSignificant_IgnoresTimeRepresentation(t *testing.T) {
	a := sampleContent()
	b := sampleContent()
	// Same instant, different wall-clock zone.
	b.DeadlineAt = b.DeadlineAt.In(time.FixedZone("Asia/Dhaka", 6*60*60))

	if !a.EqualSignificant(b) {
		t.Fatalf("equal instants in different zones must compare equal")
	}
}

func TestEqualSignificant_DetectsContentChange(t *testing.T) {
	a := sampleContent()

	b := sampleContent()
	b.DeadlineAt = b.DeadlineAt.Add(24 * time.Hour)
	if a.EqualSignificant(b) {
		t.Fatalf("deadline change must be significant")
	}

	c := sampleContent()
	c.ShortName = sql.NullString{}
	if a.EqualSignificant(c) {
		t.Fatalf("null vs present nullable must be significant")
	}
}

func TestWhereClause_ActiveAndSearch(t *testing.T) {
	f := JobListFilter{ActiveOnly: true, Q: "programmer"}
	where, args := f.whereClause()

	if !strings.Contains(where, "is_active") {
		t.Fatalf("missing active filter: %s", where)
	}
	if !strings.Contains(where, "job_title ILIKE") || !strings.Contains(where, "org_name ILIKE") {
		t.Fatalf("search must cover title and organization: %s", where)
	}
	for _, a := range args {
		if s, ok := a.(string); ok && s == "%programmer%" {
			return
		}
	}
	t.Fatalf("search term must be bound as a parameter, args=%v", args)
}

func TestWhereClause_DeadlineBounds(t *testing.T) {
	from := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)
	before := from.Add(24 * time.Hour)

	f := JobListFilter{DeadlineFrom: &from, DeadlineTo: &to, DeadlineBefore: &before}
	where, args := f.whereClause()

	if !strings.Contains(where, "deadline_at >=") {
		t.Fatalf("missing lower bound: %s", where)
	}
	if !strings.Contains(where, "deadline_at <=") || !strings.Contains(where, "deadline_at <") {
		t.Fatalf("inclusive and exclusive upper bounds must both render: %s", where)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 bound args, got %d", len(args))
	}
}

func TestOrderClause(t *testing.T) {
	if got := (JobListFilter{Sort: "deadline"}).orderClause(); got != "deadline_at ASC" {
		t.Fatalf("deadline sort: %s", got)
	}
	if got := (JobListFilter{Sort: "anything-else"}).orderClause(); got != "published_at DESC" {
		t.Fatalf("default sort: %s", got)
	}
}
