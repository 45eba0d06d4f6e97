package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/medidocs/backend/internal/config"
	"github.com/medidocs/backend/internal/database"
	"github.com/medidocs/backend/internal/queue"
	"github.com/medidocs/backend/internal/usage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewPool(context.Background(), cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
		},
	)

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeUsageSave, queue.NewUsageSaveHandler(usage.NewPgStore(db), logger))

	logger.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
}
