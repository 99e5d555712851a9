package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/reelhub/discovery/pkg/logger"
)

// Maintainer runs the maintenance operations behind the queued tasks.
type Maintainer interface {
	RebuildTagIndex(ctx context.Context) (int, error)
	CleanupInteractions(ctx context.Context, retentionDays int) (int64, error)
}

// MaintenanceHandler handles tag index rebuild and interaction cleanup tasks
type MaintenanceHandler struct {
	maintainer Maintainer
}

// NewMaintenanceHandler creates a new maintenance task handler
func NewMaintenanceHandler(maintainer Maintainer) *MaintenanceHandler {
	return &MaintenanceHandler{maintainer: maintainer}
}

// Register binds the handler's task types on mux.
func (h *MaintenanceHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeTagIndexRebuild, h.ProcessTagIndexRebuild)
	mux.HandleFunc(TypeInteractionCleanup, h.ProcessInteractionCleanup)
}

// ProcessTagIndexRebuild implements asynq.HandlerFunc
func (h *MaintenanceHandler) ProcessTagIndexRebuild(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalTagIndexRebuildPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	start := time.Now()
	n, err := h.maintainer.RebuildTagIndex(ctx)
	if err != nil {
		return fmt.Errorf("rebuild tag index: %w", err)
	}

	logger.Log.Info("Processed tag index rebuild",
		zap.String("reason", payload.Reason),
		zap.Int("tags", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// ProcessInteractionCleanup implements asynq.HandlerFunc
func (h *MaintenanceHandler) ProcessInteractionCleanup(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalInteractionCleanupPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	removed, err := h.maintainer.CleanupInteractions(ctx, payload.RetentionDays)
	if err != nil {
		return fmt.Errorf("cleanup interactions: %w", err)
	}

	logger.Log.Info("Processed interaction cleanup",
		zap.Int("retentionDays", payload.RetentionDays),
		zap.Int64("removed", removed),
	)
	return nil
}
