package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobmirror/internal/app"
	"jobmirror/internal/config"
	"jobmirror/internal/database/migration"
	"jobmirror/internal/repository"
	"jobmirror/internal/scheduler"
	"jobmirror/internal/upstream"
	"jobmirror/internal/usecase"
)

func main() {
	watch := flag.Bool("watch", false, "keep running and re-sync on the configured interval")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := log.Default()

	c, err := app.NewContainer(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	migCtx, migCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer migCancel()
	r := migration.Runner{Dir: "migrations"}
	if err := r.Run(migCtx, c.DB.SQLDB()); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	client := upstream.NewClient(cfg.Upstream.BaseURL)
	if client == nil {
		log.Fatalf("UPSTREAM_BASE_URL is not configured")
	}

	jobRepo := repository.NewPostgresJobRepository(c.DB)
	runRepo := repository.NewPostgresSyncRunRepository(c.DB)
	syncUC := usecase.NewSyncUsecase(c.DB, client, jobRepo, runRepo, c.Cache, logger)

	if !*watch {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		counts, err := syncUC.RunSync(ctx)
		if err != nil {
			log.Fatalf("sync failed: %v", err)
		}
		log.Printf("sync done fetched=%d new=%d updated=%d expired=%d",
			counts.Fetched, counts.New, counts.Updated, counts.Expired)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := scheduler.New(syncUC, cfg.Sync.IntervalMinutes, logger)
	if err := s.Start(ctx); err != nil {
		log.Fatalf("scheduler failed to start: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	s.Stop()
	cancel()
}
