package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/pkg/logger"
)

// rebuildUniqueWindow collapses rebuild requests arriving close together into
// one task.
const rebuildUniqueWindow = time.Minute

// Client wraps asynq client for enqueueing maintenance tasks
type Client struct {
	asynqClient *asynq.Client
}

// NewClient creates a new queue client
func NewClient(redisURL string) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
	}, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueTagIndexRebuild enqueues a tag index rebuild. A rebuild already
// waiting in the queue absorbs the request, in which case the returned task
// id is empty.
func (c *Client) EnqueueTagIndexRebuild(ctx context.Context, reason string) (string, error) {
	task, err := NewTagIndexRebuildTask(reason)
	if err != nil {
		return "", err
	}

	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue(QueueMaintenance),
		asynq.Unique(rebuildUniqueWindow),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Log.Info("Tag index rebuild already queued", zap.String("reason", reason))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to enqueue tag index rebuild: %w", err)
	}

	logger.Log.Info("Enqueued tag index rebuild",
		zap.String("taskId", info.ID),
		zap.String("reason", reason),
	)
	return info.ID, nil
}

// EnqueueInteractionCleanup enqueues an interaction retention cleanup.
func (c *Client) EnqueueInteractionCleanup(ctx context.Context, retentionDays int) (string, error) {
	task, err := NewInteractionCleanupTask(retentionDays)
	if err != nil {
		return "", err
	}

	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Queue(QueueMaintenance),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue interaction cleanup: %w", err)
	}

	logger.Log.Info("Enqueued interaction cleanup",
		zap.String("taskId", info.ID),
		zap.Int("retentionDays", retentionDays),
	)
	return info.ID, nil
}
