// Command indexer runs the background maintenance worker: it rebuilds the
// tag index and prunes old interaction records on a schedule, and processes
// rebuilds requested through the admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/internal/config"
	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/db/repository"
	"github.com/reelhub/discovery/internal/queue"
	"github.com/reelhub/discovery/internal/service"
	"github.com/reelhub/discovery/internal/tagindex"
	"github.com/reelhub/discovery/pkg/logger"
)

const concurrency = 2

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "indexer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required to run the indexer")
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.Pool())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(pool)

	redisClient, err := queue.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("redis client: %w", err)
	}
	defer redisClient.Close()

	engine := service.NewEngine(
		repository.NewVideoRepository(pool),
		repository.NewInteractionRepository(pool),
		tagindex.NewRedisIndex(redisClient),
		service.WithSearchLog(repository.NewSearchLogRepository(pool)),
	)

	server, err := queue.NewServer(cfg.Redis.URL, concurrency, queue.NewMaintenanceHandler(engine))
	if err != nil {
		return fmt.Errorf("create queue server: %w", err)
	}

	scheduler, err := queue.NewScheduler(cfg.Redis.URL, queue.Schedule{
		TagIndexSpec:  cfg.Maintenance.TagIndexInterval,
		CleanupSpec:   cfg.Maintenance.CleanupInterval,
		RetentionDays: cfg.Maintenance.InteractionRetentionDays,
	})
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("start queue server: %w", err)
	}
	defer server.Stop()

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Stop()

	logger.Log.Info("Indexer started",
		zap.String("tagIndexInterval", cfg.Maintenance.TagIndexInterval),
		zap.String("cleanupInterval", cfg.Maintenance.CleanupInterval),
		zap.Int("retentionDays", cfg.Maintenance.InteractionRetentionDays),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown

	logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	return nil
}
