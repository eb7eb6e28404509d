// cmd/historian/main.go is an asynchronous historian service that pops race results from a Redis queue and persists them to a PostgreSQL database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/typerace/internal/cache"
	"github.com/jason-s-yu/typerace/internal/config"
	"github.com/jason-s-yu/typerace/internal/database"
	"github.com/jason-s-yu/typerace/internal/historian"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
		logger.Fatalf("migrate: %v", err)
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()

	rdb, err := cache.Connect(ctx, redisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.NewService(
		historian.NewRedisQueue(rdb, cfg.ResultsQueue),
		database.NewResultStore(pool),
		historian.Options{
			BatchSize:  cfg.HistorianBatchSize,
			FlushDelay: cfg.HistorianFlush,
			Logger:     logger.WithField("queue", cfg.ResultsQueue),
		},
	)
	svc.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
