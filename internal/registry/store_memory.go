package registry

import (
	"context"
	"sync"

	"bioport/pkg/domain"
	"bioport/pkg/platform/sentinel"
)

// InMemoryStore keeps the registry in a mutex-guarded map. Used by unit
// tests and single-process dev mode.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[domain.SubjectID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[domain.SubjectID]*Record)}
}

func (s *InMemoryStore) Insert(_ context.Context, id domain.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[id]; exists {
		return sentinel.ErrConflict
	}
	s.records[id] = &Record{ID: id}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.SubjectID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, exists := s.records[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *InMemoryStore) SetRedirect(_ context.Context, id domain.SubjectID, to *domain.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.records[id]
	if !exists {
		return sentinel.ErrNotFound
	}
	if to == nil {
		rec.RedirectTo = nil
		return nil
	}
	target := *to
	rec.RedirectTo = &target
	return nil
}

func (s *InMemoryStore) All(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *copyRecord(rec))
	}
	return out, nil
}

func copyRecord(rec *Record) *Record {
	out := &Record{ID: rec.ID}
	if rec.RedirectTo != nil {
		target := *rec.RedirectTo
		out.RedirectTo = &target
	}
	return out
}
