package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/internal/config"
	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/db/repository"
	"github.com/reelhub/discovery/internal/handler"
	"github.com/reelhub/discovery/internal/metrics"
	"github.com/reelhub/discovery/internal/queue"
	"github.com/reelhub/discovery/internal/service"
	"github.com/reelhub/discovery/internal/tagindex"
	"github.com/reelhub/discovery/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.Mode)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.Pool())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(pool)

	logger.Log.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.Int32("maxConns", pool.Config().MaxConns),
	)

	videos := repository.NewVideoRepository(pool)
	interactions := repository.NewInteractionRepository(pool)
	m := metrics.New()

	var tags tagindex.Index = tagindex.NewMemoryIndex()
	var tasks handler.TagIndexEnqueuer
	if cfg.Redis.URL != "" {
		redisClient, err := queue.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis client: %w", err)
		}
		defer redisClient.Close()
		tags = tagindex.NewRedisIndex(redisClient)

		queueClient, err := queue.NewClient(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("queue client: %w", err)
		}
		defer queueClient.Close()
		tasks = queueClient

		logger.Log.Info("Redis tag index and maintenance queue enabled")
	} else {
		logger.Log.Info("Redis not configured, tag index is kept in process")
	}

	recorders := service.MultiLogger{interactions}
	var publisher handler.HealthChecker
	if cfg.RabbitMQ.Enabled {
		mp, err := service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			return fmt.Errorf("rabbitmq publisher: %w", err)
		}
		defer mp.Close()
		recorders = append(recorders, mp)
		publisher = mp
	}

	engine := service.NewEngine(videos, interactions, tags,
		service.WithRecorder(recorders),
		service.WithSearchLog(repository.NewSearchLogRepository(pool)),
		service.WithMetrics(m),
	)

	if n, err := engine.RebuildTagIndex(ctx); err != nil {
		logger.Log.Warn("Initial tag index rebuild failed", zap.Error(err))
	} else {
		logger.Log.Info("Initial tag index built", zap.Int("tags", n))
	}

	if len(cfg.Admin.APIKeys) == 0 {
		logger.Log.Warn("No admin API keys configured, admin endpoints will reject all requests")
	}

	router := handler.NewRouter(handler.RouterConfig{
		Engine:    engine,
		Store:     videos,
		Publisher: publisher,
		Queue:     tasks,
		Metrics:   m,
		APIKeys:   cfg.Admin.APIKeys,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	logger.Log.Info("Server stopped gracefully")
	return nil
}
