package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/pkg/logger"
)

// Server processes maintenance tasks.
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
}

// NewServer creates a new task processing server
func NewServer(redisURL string, concurrency int, handler *MaintenanceHandler) (*Server, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueMaintenance: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Log.Error("Task failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	handler.Register(mux)

	return &Server{
		asynqServer: srv,
		mux:         mux,
	}, nil
}

// Start starts processing in the background.
func (s *Server) Start() error {
	logger.Log.Info("Starting maintenance task server")
	return s.asynqServer.Start(s.mux)
}

// Stop waits for in-flight tasks and shuts the server down.
func (s *Server) Stop() {
	logger.Log.Info("Shutting down maintenance task server")
	s.asynqServer.Shutdown()
}

// Schedule is the cron configuration of the periodic maintenance tasks.
// A blank spec disables the corresponding task.
type Schedule struct {
	TagIndexSpec  string
	CleanupSpec   string
	RetentionDays int
}

// Scheduler enqueues maintenance tasks on a cron schedule.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

// NewScheduler registers the periodic tasks described by schedule.
func NewScheduler(redisURL string, schedule Schedule) (*Scheduler, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Log.Warn("Scheduled task not enqueued", zap.Error(err))
			}
		},
	})

	if schedule.TagIndexSpec != "" {
		task, err := NewTagIndexRebuildTask("scheduled")
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register(schedule.TagIndexSpec, task,
			asynq.Queue(QueueMaintenance), asynq.Unique(rebuildUniqueWindow)); err != nil {
			return nil, fmt.Errorf("register tag index rebuild %q: %w", schedule.TagIndexSpec, err)
		}
	}

	if schedule.CleanupSpec != "" {
		task, err := NewInteractionCleanupTask(schedule.RetentionDays)
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register(schedule.CleanupSpec, task, asynq.Queue(QueueMaintenance)); err != nil {
			return nil, fmt.Errorf("register interaction cleanup %q: %w", schedule.CleanupSpec, err)
		}
	}

	return &Scheduler{scheduler: scheduler}, nil
}

// Start starts the scheduler in the background.
func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
}
