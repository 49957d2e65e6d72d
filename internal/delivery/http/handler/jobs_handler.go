package handler

import (
	"errors"
	"strconv"

	"jobmirror/internal/delivery/http/dto"
	"jobmirror/internal/delivery/http/middleware"
	"jobmirror/internal/pkg/response"
	"jobmirror/internal/repository"
	"jobmirror/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type JobsHandler struct {
	uc usecase.JobQueryUsecase
}

func NewJobsHandler(uc usecase.JobQueryUsecase) *JobsHandler {
	return &JobsHandler{uc: uc}
}

func (h *JobsHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/jobs", h.HandleListJobs)
	r.Get("/jobs/:id", h.HandleGetJob)
}

// HandleListJobs maps query params onto the query contract. Malformed values
// fall back to defaults; the usecase clamps ranges.
func (h *JobsHandler) HandleListJobs(c fiber.Ctx) error {
	in := usecase.JobsQuery{
		Page:           queryInt(c, "page", 1),
		Limit:          queryInt(c, "limit", 20),
		Q:              c.Query("q"),
		ComputerOnly:   queryFlag(c, "computerOnly", false),
		DataEntryOnly:  queryFlag(c, "dataEntryOnly", false),
		IncludeExpired: !queryFlag(c, "activeOnly", true),
		PostedToday:    queryFlag(c, "postedToday", false),
		DeadlineToday:  queryFlag(c, "deadlineToday", false),
		ExpiresInDays:  queryInt(c, "expiresInDays", 0),
	}

	if s := c.Query("jobType"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			in.JobType = &v
		}
	}
	if s := c.Query("organizationId"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			in.OrganizationID = &v
		}
	}
	if s := c.Query("sort"); s == "deadline" || s == "published" {
		in.Sort = s
	}

	page, err := h.uc.QueryJobs(c.Context(), in)
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.JobsPageResponse{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Items:      dto.FromJobs(page.Items),
	})
}

func (h *JobsHandler) HandleGetJob(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	}

	job, err := h.uc.GetJobByPrimaryID(c.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return middleware.NewAppError(fiber.StatusNotFound, response.MessageNotFound, nil, err)
		}
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromJob(*job))
}

func queryInt(c fiber.Ctx, key string, def int) int {
	s := c.Query(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// queryFlag treats "1" as true and "0" as false, the original wire format.
func queryFlag(c fiber.Ctx, key string, def bool) bool {
	switch c.Query(key) {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}
