package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reelhub/discovery/internal/db"
	"github.com/reelhub/discovery/internal/models"
)

// SearchLogRepository stores the search query analytics log.
type SearchLogRepository interface {
	// LogSearch appends a search record.
	LogSearch(ctx context.Context, search *models.SearchQuery) error

	// DeleteSearchesBefore removes records created before cutoff and returns how many were removed.
	DeleteSearchesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type searchLogRepository struct {
	pool *pgxpool.Pool
}

// NewSearchLogRepository creates a PostgreSQL backed SearchLogRepository.
func NewSearchLogRepository(pool *pgxpool.Pool) SearchLogRepository {
	return &searchLogRepository{pool: pool}
}

func (r *searchLogRepository) LogSearch(ctx context.Context, search *models.SearchQuery) error {
	query := `
		INSERT INTO search_queries (id, query, result_count, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		search.ID,
		search.Query,
		search.Results,
		search.ClientIP,
		search.UserAgent,
		search.CreatedAt,
	)
	if err != nil {
		return db.WrapError(err, "log search")
	}

	return nil
}

func (r *searchLogRepository) DeleteSearchesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM search_queries WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, db.WrapError(err, "delete searches")
	}
	return tag.RowsAffected(), nil
}

type memorySearchLogRepository struct {
	mu       sync.Mutex
	searches []*models.SearchQuery
}

// NewMemorySearchLogRepository creates an in-process SearchLogRepository.
func NewMemorySearchLogRepository() SearchLogRepository {
	return &memorySearchLogRepository{}
}

func (r *memorySearchLogRepository) LogSearch(_ context.Context, search *models.SearchQuery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.searches = append(r.searches, search)
	return nil
}

func (r *memorySearchLogRepository) DeleteSearchesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.searches[:0]
	var removed int64
	for _, s := range r.searches {
		if s.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	r.searches = kept
	return removed, nil
}
