// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/typerace/internal/cache"
	"github.com/jason-s-yu/typerace/internal/config"
	"github.com/jason-s-yu/typerace/internal/database"
	"github.com/jason-s-yu/typerace/internal/handlers"
	"github.com/jason-s-yu/typerace/internal/race"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := race.Options{
		Passages:  loadPassages(ctx, cfg, logger),
		Logger:    logger,
		Countdown: cfg.CountdownSeconds,
		Tick:      cfg.CountdownTick,
	}

	var publisherDone chan struct{}
	pubCtx, stopPublisher := context.WithCancel(context.Background())
	defer stopPublisher()
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		pub := cache.NewPublisher(rdb, cfg.ResultsQueue, 0, logger)
		opts.Results = pub
		publisherDone = make(chan struct{})
		go func() {
			defer close(publisherDone)
			pub.Run(pubCtx)
		}()
		logger.Infof("Publishing race results to %s/%s", cfg.RedisAddr, cfg.ResultsQueue)
	} else {
		logger.Info("REDIS_ADDR not set, race results will not be published")
	}

	hub := handlers.NewHub(logger)
	registry := race.NewRegistry(hub, opts)
	gateway := handlers.NewGateway(registry, hub, logger, 256)
	go gateway.Run(ctx)

	srv := &http.Server{Addr: cfg.Addr(), Handler: routes(ctx, cfg, logger, hub, registry, gateway)}
	go func() {
		logger.Infof("Running on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	registry.Close()

	stopPublisher()
	if publisherDone != nil {
		<-publisherDone
	}
	logger.Info("shutdown complete")
}

// loadPassages returns the stored corpus when DATABASE_URL is set and the
// table is non-empty, otherwise the built-in passages.
func loadPassages(ctx context.Context, cfg config.Config, logger *logrus.Logger) race.PassageSource {
	if cfg.DatabaseURL == "" {
		return race.NewCorpus(race.DefaultPassages)
	}
	if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
		logger.Warnf("passages: %v; using built-in passages", err)
		return race.NewCorpus(race.DefaultPassages)
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warnf("passages: %v; using built-in passages", err)
		return race.NewCorpus(race.DefaultPassages)
	}
	defer pool.Close()

	texts, err := database.NewPassageStore(pool).ListPassages(ctx)
	if err != nil {
		logger.Warnf("passages: %v; using built-in passages", err)
		return race.NewCorpus(race.DefaultPassages)
	}
	corpus := race.NewCorpus(texts)
	logger.Infof("Loaded %d passages", corpus.Len())
	return corpus
}
