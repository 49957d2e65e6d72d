package app

import (
	"fmt"
	"strings"

	"jobmirror/internal/delivery/http/handler"
	"jobmirror/internal/delivery/http/middleware"
	"jobmirror/internal/pkg/response"
	"jobmirror/internal/repository"
	"jobmirror/internal/upstream"
	"jobmirror/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber *fiber.App
}

// New wires repositories, usecases and handlers onto a Fiber app.
func New(c *Container) *App {
	f := fiber.New(fiber.Config{})

	errMw := middleware.NewErrorMiddleware()
	accessMw := middleware.NewAccessLogMiddleware(c.Logger)
	f.Use(errMw.Middleware())
	f.Use(accessMw.Middleware())

	f.Get("/health", func(ctx fiber.Ctx) error {
		return response.Success(ctx, fiber.StatusOK, response.MessageOK, nil)
	})

	client := upstream.NewClient(c.Config.Upstream.BaseURL)

	jobRepo := repository.NewPostgresJobRepository(c.DB)
	queryRepo := repository.NewPostgresJobQueryRepository(c.DB)
	runRepo := repository.NewPostgresSyncRunRepository(c.DB)

	syncUC := usecase.NewSyncUsecase(c.DB, client, jobRepo, runRepo, c.Cache, c.Logger)
	queryUC := usecase.NewJobQueryUsecase(queryRepo)

	api := f.Group("/api")

	jobsHandler := handler.NewJobsHandler(queryUC)
	jobsHandler.RegisterRoutes(api)

	tokenMw := middleware.NewSyncTokenMiddleware(c.Config)
	admin := api.Group("/admin", tokenMw.Middleware())

	adminHandler := handler.NewAdminHandler(syncUC, queryRepo, runRepo)
	adminHandler.RegisterRoutes(admin)

	return &App{Fiber: f}
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
