package analysis

import (
	"context"
	"sync"
	"time"

	"requiem/internal/errors"
	"requiem/ports"
)

// MemoryStore is the default in-process DatasetStore
type MemoryStore struct {
	mu       sync.RWMutex
	datasets map[string]*ports.Dataset
}

var _ ports.DatasetStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{datasets: make(map[string]*ports.Dataset)}
}

func (s *MemoryStore) Save(ctx context.Context, ds *ports.Dataset) error {
	if ds == nil || ds.ID == "" {
		return errors.InvalidInput("dataset id is required")
	}
	copied := *ds
	copied.Values = append([]float64(nil), ds.Values...)

	s.mu.Lock()
	s.datasets[ds.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*ports.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[id]
	if !ok {
		return nil, errors.NotFound("dataset")
	}
	return ds, nil
}

func (s *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, ds := range s.datasets {
		if ds.CreatedAt.Before(cutoff) {
			delete(s.datasets, id)
			removed++
		}
	}
	return removed, nil
}
