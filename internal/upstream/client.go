// Package upstream talks to the alljobs.teletalk.com.bd public API. Both calls
// are pure network I/O: no retries, no shared state, bounded by a 25s timeout.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PageLimit is the catalog page size the search endpoint is asked for. The
// page count for a full sync is derived from the first page's reported count.
const PageLimit = 20

const (
	searchPath  = "/api/v1/published-jobs/search"
	detailsPath = "/api/v1/govt-jobs/public-details"

	requestTimeout = 25 * time.Second
	maxErrBody     = 400
)

// Error is the failure taxonomy for upstream calls: transport errors, non-2xx
// responses, and well-formed HTTP responses whose body does not match the
// expected envelope. It is always fatal for the call that produced it.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Cause)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s failed: status=%d body=%s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream %s failed: unexpected response shape", e.Op)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// CatalogJob is one item of the published-jobs search envelope. Timestamps
// stay as the source's ISO strings until the reconciler normalizes them.
type CatalogJob struct {
	JobPrimaryID       int64   `json:"job_primary_id"`
	JobTitle           string  `json:"job_title"`
	JobTitleBn         *string `json:"job_title_bn"`
	JobID              string  `json:"job_id"`
	JobType            int     `json:"job_type"`
	Vacancy            string  `json:"vacancy"`
	VacancyNotSpecific bool    `json:"vacancy_not_specific"`
	ApplicationSiteURL string  `json:"application_site_url"`
	PublishedDate      string  `json:"published_date"`
	DeadlineDate       string  `json:"deadline_date"`
	Status             int     `json:"status"`
	CreatedAt          string  `json:"created_at"`
	OrganizationID     int64   `json:"organization_id"`
	CategoryID         int64   `json:"category_id"`
	RecruiterID        int64   `json:"recruiter_id"`
	JobLocation        string  `json:"job_location"`
	Salary             int64   `json:"salary"`
	ViewCount          int64   `json:"view_count"`
	OrgName            string  `json:"org_name"`
	OrgNameBn          *string `json:"org_name_bn"`
	ShortName          *string `json:"short_name"`
	Logo               *string `json:"logo"`
	Website            *string `json:"website"`
	ShortCode          *string `json:"short_code"`
	IndustryTypeID     *int64  `json:"industry_type_id"`
	IndustryTitle      *string `json:"industry_title"`
}

type CatalogPage struct {
	Status          string       `json:"status"`
	StatusCode      int          `json:"statusCode"`
	Count           int          `json:"count"`
	TotalPrivateJob int          `json:"totalPrivateJob"`
	GovtJobs        []CatalogJob `json:"govtJobs"`
}

// JobDetails is the decoded public-details payload plus the raw JSON blob the
// callers cache verbatim.
type JobDetails struct {
	ID                         int64                `json:"id"`
	JobTitle                   string               `json:"job_title"`
	JobTitleBn                 *string              `json:"job_title_bn"`
	JobID                      string               `json:"job_id"`
	JobType                    int                  `json:"job_type"`
	Vacancy                    string               `json:"vacancy"`
	Gender                     *int                 `json:"gender"`
	MinAge                     *int                 `json:"min_age"`
	MaxAge                     *int                 `json:"max_age"`
	ApplicationSite            string               `json:"application_site"`
	AdvertisementFile          *string              `json:"advertisement_file"`
	PublishedDate              string               `json:"published_date"`
	DeadlineDate               string               `json:"deadline_date"`
	AdvertisementNo            *string              `json:"advertisement_no"`
	AdvertisementPublishedDate *string              `json:"advertisement_published_date"`
	JobSource                  *string              `json:"job_source"`
	VacancyNotSpecific         *bool                `json:"vacancy_not_specific"`
	ViewCount                  *int64               `json:"view_count"`
	Status                     *int                 `json:"status"`
	Organization               *DetailsOrganization `json:"job_utilities_govtorganization"`

	Raw json.RawMessage `json:"-"`
}

type DetailsOrganization struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	NameBn    *string `json:"name_bn"`
	ShortName *string `json:"short_name"`
	Logo      *string `json:"logo"`
	Website   *string `json:"website"`
	Details   *string `json:"details"`
}

type detailsEnvelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"statusCode"`
	Details    json.RawMessage `json:"details"`
}

type Client interface {
	FetchCatalogPage(ctx context.Context, page, limit int) (CatalogPage, error)
	FetchJobDetails(ctx context.Context, jobPrimaryID int64) (JobDetails, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil
	}
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// MediaURL resolves an upstream media path (logos, advertisement files) to an
// absolute URL.
func MediaURL(baseURL, filePath string) string {
	return strings.TrimRight(baseURL, "/") + "/media/" + strings.TrimLeft(filePath, "/\\")
}

func (c *httpClient) FetchCatalogPage(ctx context.Context, page, limit int) (CatalogPage, error) {
	if c == nil || c.client == nil {
		return CatalogPage{}, errors.New("nil upstream client")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = PageLimit
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + searchPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CatalogPage{}, &Error{Op: "catalog", Cause: err}
	}
	// The search endpoint rejects non-browser clients.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Origin", c.baseURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return CatalogPage{}, &Error{Op: "catalog", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CatalogPage{}, &Error{Op: "catalog", StatusCode: resp.StatusCode, Body: readErrBody(resp.Body)}
	}

	var out CatalogPage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CatalogPage{}, &Error{Op: "catalog", Cause: err}
	}
	if out.GovtJobs == nil {
		return CatalogPage{}, &Error{Op: "catalog"}
	}
	return out, nil
}

func (c *httpClient) FetchJobDetails(ctx context.Context, jobPrimaryID int64) (JobDetails, error) {
	if c == nil || c.client == nil {
		return JobDetails{}, errors.New("nil upstream client")
	}

	q := url.Values{}
	q.Set("id", strconv.FormatInt(jobPrimaryID, 10))
	endpoint := c.baseURL + detailsPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return JobDetails{}, &Error{Op: "details", Cause: err}
	}
	req.Header.Set("User-Agent", "jobmirror-local/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return JobDetails{}, &Error{Op: "details", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return JobDetails{}, &Error{Op: "details", StatusCode: resp.StatusCode, Body: readErrBody(resp.Body)}
	}

	var env detailsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return JobDetails{}, &Error{Op: "details", Cause: err}
	}
	if env.StatusCode != 200 || len(env.Details) == 0 || string(env.Details) == "null" {
		return JobDetails{}, &Error{Op: "details"}
	}

	var out JobDetails
	if err := json.Unmarshal(env.Details, &out); err != nil {
		return JobDetails{}, &Error{Op: "details", Cause: err}
	}
	out.Raw = env.Details
	return out, nil
}

func readErrBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrBody {
		s = s[:maxErrBody]
	}
	return s
}

var _ Client = (*httpClient)(nil)
