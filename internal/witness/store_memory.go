package witness

import (
	"context"
	"sort"
	"sync"

	"bioport/pkg/domain"
)

type pairKind struct {
	pair domain.Pair
	kind Kind
}

// InMemoryStore keeps verdicts in a mutex-guarded set.
type InMemoryStore struct {
	mu       sync.RWMutex
	verdicts map[pairKind]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{verdicts: make(map[pairKind]bool)}
}

func (s *InMemoryStore) Add(_ context.Context, pair domain.Pair, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts[pairKind{pair, kind}] = true
	return nil
}

func (s *InMemoryStore) Has(_ context.Context, pair domain.Pair, kind Kind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verdicts[pairKind{pair, kind}], nil
}

func (s *InMemoryStore) Remove(_ context.Context, pair domain.Pair, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.verdicts, pairKind{pair, kind})
	return nil
}

func (s *InMemoryStore) RemoveForSubject(_ context.Context, id domain.SubjectID, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pk := range s.verdicts {
		if pk.kind == kind && pk.pair.Contains(id) {
			delete(s.verdicts, pk)
		}
	}
	return nil
}

func (s *InMemoryStore) List(_ context.Context, kind Kind) ([]domain.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Pair
	for pk := range s.verdicts {
		if pk.kind == kind {
			out = append(out, pk.pair)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Low != out[j].Low {
			return out[i].Low < out[j].Low
		}
		return out[i].High < out[j].High
	})
	return out, nil
}
