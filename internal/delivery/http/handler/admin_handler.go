package handler

import (
	"errors"

	"jobmirror/internal/delivery/http/dto"
	"jobmirror/internal/delivery/http/middleware"
	"jobmirror/internal/pkg/response"
	"jobmirror/internal/repository"
	"jobmirror/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

// AdminHandler exposes the sync trigger and store diagnostics. Routes are
// expected to sit behind the sync-token middleware.
type AdminHandler struct {
	sync usecase.SyncUsecase
	jobs repository.JobQueryRepository
	runs repository.SyncRunRepository
}

func NewAdminHandler(sync usecase.SyncUsecase, jobs repository.JobQueryRepository, runs repository.SyncRunRepository) *AdminHandler {
	return &AdminHandler{sync: sync, jobs: jobs, runs: runs}
}

func (h *AdminHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/sync", h.HandleSync)
	r.Post("/sync", h.HandleSync)
	r.Get("/dbinfo", h.HandleDBInfo)
	r.Get("/runs", h.HandleListRuns)
}

func (h *AdminHandler) HandleSync(c fiber.Ctx) error {
	counts, err := h.sync.RunSync(c.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrSyncInProgress) {
			return middleware.NewAppError(fiber.StatusConflict, "sync already in progress", nil, err)
		}
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromSyncCounts(counts))
}

func (h *AdminHandler) HandleDBInfo(c fiber.Ctx) error {
	total, active, err := h.jobs.CountJobs(c.Context())
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}

	info := dto.DBInfoResponse{TotalJobs: total, ActiveJobs: active}

	last, err := h.runs.Latest(c.Context())
	if err != nil && !errors.Is(err, repository.ErrNoSyncRuns) {
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	if last != nil {
		run := dto.FromSyncRun(*last)
		info.LastRun = &run
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, info)
}

func (h *AdminHandler) HandleListRuns(c fiber.Ctx) error {
	runs, err := h.runs.List(c.Context(), queryInt(c, "limit", 50))
	if err != nil {
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.FromSyncRuns(runs))
}
