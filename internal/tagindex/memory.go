package tagindex

import (
	"context"
	"sync"

	"github.com/reelhub/discovery/internal/models"
)

// MemoryIndex keeps the sorted tag counts in process.
type MemoryIndex struct {
	mu     sync.RWMutex
	sorted []models.TagCount
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Rebuild(_ context.Context, rawTags []string) (int, error) {
	sorted := Sorted(Count(rawTags))

	m.mu.Lock()
	m.sorted = sorted
	m.mu.Unlock()

	return len(sorted), nil
}

func (m *MemoryIndex) Top(_ context.Context, limit int) ([]models.TagCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = min(max(limit, 0), len(m.sorted))
	out := make([]models.TagCount, limit)
	copy(out, m.sorted[:limit])
	return out, nil
}

func (m *MemoryIndex) Match(_ context.Context, substr string, limit int) ([]models.TagCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return filterContaining(m.sorted, substr, limit), nil
}
