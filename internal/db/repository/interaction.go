package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/models"
)

// InteractionRepository stores the viewer interaction analytics log.
type InteractionRepository interface {
	// LogInteraction appends an interaction record.
	LogInteraction(ctx context.Context, interaction *models.Interaction) error

	// DeleteInteractionsBefore removes records created before cutoff and returns how many were removed.
	DeleteInteractionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type interactionRepository struct {
	pool *pgxpool.Pool
}

// NewInteractionRepository creates a PostgreSQL backed InteractionRepository.
func NewInteractionRepository(pool *pgxpool.Pool) InteractionRepository {
	return &interactionRepository{pool: pool}
}

func (r *interactionRepository) LogInteraction(ctx context.Context, interaction *models.Interaction) error {
	metadata, err := json.Marshal(interaction.Metadata)
	if err != nil {
		return fmt.Errorf("marshal interaction metadata: %w", err)
	}

	query := `
		INSERT INTO video_interactions (id, video_id, interaction_type, client_ip, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		interaction.ID,
		interaction.VideoID,
		string(interaction.Type),
		interaction.ClientIP,
		interaction.UserAgent,
		metadata,
		interaction.CreatedAt,
	)
	if err != nil {
		return db.WrapError(err, "log interaction")
	}

	return nil
}

func (r *interactionRepository) DeleteInteractionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM video_interactions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, db.WrapError(err, "delete interactions")
	}
	return tag.RowsAffected(), nil
}

type memoryInteractionRepository struct {
	mu           sync.Mutex
	interactions []*models.Interaction
}

// NewMemoryInteractionRepository creates an in-process InteractionRepository.
func NewMemoryInteractionRepository() InteractionRepository {
	return &memoryInteractionRepository{}
}

func (r *memoryInteractionRepository) LogInteraction(_ context.Context, interaction *models.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interactions = append(r.interactions, interaction)
	return nil
}

func (r *memoryInteractionRepository) DeleteInteractionsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.interactions[:0]
	var removed int64
	for _, in := range r.interactions {
		if in.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, in)
	}
	r.interactions = kept
	return removed, nil
}
