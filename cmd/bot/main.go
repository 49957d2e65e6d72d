package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jobmirror/internal/app"
	"jobmirror/internal/bot"
	"jobmirror/internal/config"
	"jobmirror/internal/repository"
	"jobmirror/internal/upstream"
	"jobmirror/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := log.Default()

	tg := bot.NewTelegramClient(cfg.Telegram.BotToken)
	if tg == nil {
		log.Fatalf("TELEGRAM_BOT_TOKEN is not configured")
	}

	c, err := app.NewContainer(cfg, logger)
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	client := upstream.NewClient(cfg.Upstream.BaseURL)
	if client == nil {
		log.Fatalf("UPSTREAM_BASE_URL is not configured")
	}

	queryRepo := repository.NewPostgresJobQueryRepository(c.DB)
	detailsRepo := repository.NewPostgresJobDetailsRepository(c.DB)
	runRepo := repository.NewPostgresSyncRunRepository(c.DB)
	digestUC := usecase.NewDigestUsecase(queryRepo, detailsRepo, runRepo, client, logger)

	loop := bot.NewLoop(
		tg,
		digestUC,
		c.Cache,
		cfg.Telegram.AllowedChatIDs,
		cfg.Telegram.DefaultLimit,
		cfg.Telegram.UpdateOffset,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped: %v", err)
	}
}
