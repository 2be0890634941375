package similarity

import (
	"context"
	"sort"
	"sync"

	"bioport/pkg/domain"
)

// InMemoryStore keeps the cache in a mutex-guarded map.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.Pair]float64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[domain.Pair]float64)}
}

func (s *InMemoryStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[e.Pair]; ok && existing >= e.Score {
		return nil
	}
	s.entries[e.Pair] = e.Score
	return nil
}

func (s *InMemoryStore) HasComputed(_ context.Context, id domain.SubjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[domain.Pair{Low: id, High: id}]
	return ok, nil
}

func (s *InMemoryStore) Top(_ context.Context, f TopFilter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for pair, score := range s.entries {
		if pair.IsSelf() || score <= f.MinScore {
			continue
		}
		if !f.SubjectID.IsZero() && !pair.Contains(f.SubjectID) {
			continue
		}
		out = append(out, Entry{Pair: pair, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Pair.Low != out[j].Pair.Low {
			return out[i].Pair.Low < out[j].Pair.Low
		}
		return out[i].Pair.High < out[j].Pair.High
	})
	return out, nil
}

func (s *InMemoryStore) DeleteForSubject(_ context.Context, id domain.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pair := range s.entries {
		if pair.Contains(id) {
			delete(s.entries, pair)
		}
	}
	return nil
}

func (s *InMemoryStore) DeletePair(_ context.Context, pair domain.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, pair)
	return nil
}
