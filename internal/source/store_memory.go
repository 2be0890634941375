package source

import (
	"context"
	"sort"
	"sync"

	"bioport/pkg/platform/sentinel"
)

// InMemoryStore keeps sources in a mutex-guarded map.
type InMemoryStore struct {
	mu      sync.RWMutex
	sources map[string]Source
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sources: make(map[string]Source)}
}

func (s *InMemoryStore) Upsert(_ context.Context, src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID] = src
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, exists := s.sources[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return &src, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
	return nil
}

// All returns every source, most trusted first.
func (s *InMemoryStore) All(_ context.Context) ([]Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Source, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quality != out[j].Quality {
			return out[i].Quality > out[j].Quality
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
