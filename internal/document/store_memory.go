package document

import (
	"context"
	"sort"
	"sync"

	"bioport/pkg/domain"
	"bioport/pkg/platform/sentinel"
)

// InMemoryStore keeps revision slices in a mutex-guarded map, index
// equals version.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[domain.DocumentKey][]Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[domain.DocumentKey][]Document)}
}

func (s *InMemoryStore) Save(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	revisions := s.docs[doc.Key]
	doc.Version = 0
	shifted := make([]Document, 0, len(revisions)+1)
	shifted = append(shifted, copyDocument(doc))
	for _, rev := range revisions {
		rev.Version++
		shifted = append(shifted, rev)
	}
	s.docs[doc.Key] = shifted
	return nil
}

func (s *InMemoryStore) Current(ctx context.Context, key domain.DocumentKey) (*Document, error) {
	return s.Get(ctx, key, 0)
}

func (s *InMemoryStore) Get(_ context.Context, key domain.DocumentKey, version int) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revisions := s.docs[key]
	if version < 0 || version >= len(revisions) {
		return nil, sentinel.ErrNotFound
	}
	doc := copyDocument(revisions[version])
	return &doc, nil
}

func (s *InMemoryStore) Versions(_ context.Context, key domain.DocumentKey) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revisions := s.docs[key]
	out := make([]Document, 0, len(revisions))
	for _, rev := range revisions {
		out = append(out, copyDocument(rev))
	}
	return out, nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, revisions := range s.docs {
		for _, rev := range revisions {
			if !f.AllVersions && rev.Version != 0 {
				break
			}
			if f.SourceID != "" && rev.Key.SourceID != f.SourceID {
				continue
			}
			if f.Author != "" && rev.Author != f.Author {
				continue
			}
			if !f.SubjectID.IsZero() && rev.SubjectID != f.SubjectID {
				continue
			}
			if !f.SavedSince.IsZero() && rev.SavedAt.Before(f.SavedSince) {
				continue
			}
			if !f.SavedUntil.IsZero() && rev.SavedAt.After(f.SavedUntil) {
				continue
			}
			out = append(out, copyDocument(rev))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if f.NewestFirst && !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		if out[i].Key != out[j].Key {
			return out[i].Key.String() < out[j].Key.String()
		}
		return out[i].Version < out[j].Version
	})
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, key domain.DocumentKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}

func copyDocument(doc Document) Document {
	out := doc
	if doc.Details.Names != nil {
		out.Details.Names = append([]string(nil), doc.Details.Names...)
	}
	return out
}
