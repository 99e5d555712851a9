package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TypeTagIndexRebuild    = "maintenance:tags_rebuild"
	TypeInteractionCleanup = "maintenance:interactions_cleanup"
)

// QueueMaintenance is the asynq queue all maintenance tasks run on.
const QueueMaintenance = "maintenance"

// TagIndexRebuildPayload is the payload for tag index rebuild tasks
type TagIndexRebuildPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewTagIndexRebuildTask creates a tag index rebuild task
func NewTagIndexRebuildTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "unspecified"
	}
	payload, err := json.Marshal(TagIndexRebuildPayload{Reason: reason, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeTagIndexRebuild, payload), nil
}

// UnmarshalTagIndexRebuildPayload deserializes JSON to payload
func UnmarshalTagIndexRebuildPayload(data []byte) (*TagIndexRebuildPayload, error) {
	var payload TagIndexRebuildPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}

// InteractionCleanupPayload is the payload for interaction retention tasks
type InteractionCleanupPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewInteractionCleanupTask creates an interaction cleanup task
func NewInteractionCleanupTask(retentionDays int) (*asynq.Task, error) {
	if retentionDays < 1 {
		return nil, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	payload, err := json.Marshal(InteractionCleanupPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeInteractionCleanup, payload), nil
}

// UnmarshalInteractionCleanupPayload deserializes JSON to payload
func UnmarshalInteractionCleanupPayload(data []byte) (*InteractionCleanupPayload, error) {
	var payload InteractionCleanupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.RetentionDays < 1 {
		return nil, fmt.Errorf("retention days must be positive, got %d", payload.RetentionDays)
	}
	return &payload, nil
}
