package storage

import (
	"context"
	"sync"

	"github.com/amirhf/imageSearch/services/search-web/models"
)

const defaultCapacity = 500

type MemoryStore struct {
	mu       sync.RWMutex
	items    []models.SearchOutcome
	capacity int
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) Record(_ context.Context, outcome models.SearchOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, outcome)
	if over := len(s.items) - s.capacity; over > 0 {
		s.items = append([]models.SearchOutcome(nil), s.items[over:]...)
	}
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]models.SearchOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit = clampLimit(limit, len(s.items))
	out := make([]models.SearchOutcome, 0, limit)
	for i := len(s.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
