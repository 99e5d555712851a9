package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/reelhub/discovery/internal/db/repository"
	"github.com/reelhub/discovery/internal/models"
	"github.com/reelhub/discovery/internal/validation"
	"github.com/reelhub/discovery/pkg/logger"
)

// RegisterView increments the view counter by one and returns the new count.
func (e *Engine) RegisterView(ctx context.Context, id int64) (int64, error) {
	return e.bump(ctx, id, repository.CounterViews, 1, models.InteractionView)
}

// RegisterLike increments the like counter by one and returns the new count.
func (e *Engine) RegisterLike(ctx context.Context, id int64) (int64, error) {
	return e.bump(ctx, id, repository.CounterLikes, 1, models.InteractionLike)
}

// UnregisterLike decrements the like counter, never below zero, and returns
// the new count.
func (e *Engine) UnregisterLike(ctx context.Context, id int64) (int64, error) {
	return e.bump(ctx, id, repository.CounterLikes, -1, models.InteractionUnlike)
}

// BatchRegisterViews applies several view deltas. Each row succeeds or fails
// on its own; only a malformed batch is rejected as a whole.
func (e *Engine) BatchRegisterViews(ctx context.Context, deltas []models.ViewDelta) ([]models.ViewUpdateResult, error) {
	if err := validation.ValidateViewDeltas(deltas); err != nil {
		return nil, err
	}

	results, err := e.videos.BatchIncrementViews(ctx, deltas)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	logger.Log.Info("Batch view update applied",
		zap.Int("rows", len(results)),
		zap.Int("failed", failed),
	)
	return results, nil
}

func (e *Engine) bump(ctx context.Context, id int64, field repository.CounterField, delta int64, typ models.InteractionType) (int64, error) {
	if id <= 0 {
		return 0, invalidf("invalid video id %d", id)
	}

	value, err := e.videos.AtomicIncrement(ctx, id, field, delta)
	e.metrics.CounterUpdated(string(field), err)
	if err != nil {
		return 0, err
	}

	e.record(ctx, id, typ)
	return value, nil
}

// record logs an interaction after a successful counter update. Failures are
// logged and dropped.
func (e *Engine) record(ctx context.Context, id int64, typ models.InteractionType) {
	if e.recorder == nil {
		return
	}

	client := clientFrom(ctx)
	interaction := models.NewInteraction(id, typ, client.ip, client.userAgent, nil)

	if err := e.recorder.LogInteraction(ctx, interaction); err != nil {
		e.metrics.InteractionDropped()
		logger.Log.Warn("Failed to log interaction",
			zap.Error(err),
			zap.Int64("videoId", id),
			zap.String("type", string(typ)),
		)
	}
}
