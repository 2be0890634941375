package subject

import (
	"context"
	"sort"
	"sync"

	"bioport/pkg/domain"
	"bioport/pkg/platform/sentinel"
)

// InMemoryStore keeps aggregates in a mutex-guarded map.
type InMemoryStore struct {
	mu       sync.RWMutex
	subjects map[domain.SubjectID]Subject
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{subjects: make(map[domain.SubjectID]Subject)}
}

func (s *InMemoryStore) Upsert(_ context.Context, subj Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[subj.ID] = copySubject(subj)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.SubjectID) (*Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subj, exists := s.subjects[id]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	out := copySubject(subj)
	return &out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subjects, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Subject
	for _, subj := range s.subjects {
		if !matches(subj, f) {
			continue
		}
		out = append(out, copySubject(subj))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortKey != out[j].SortKey {
			return out[i].SortKey < out[j].SortKey
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Start, f.Size), nil
}

func (s *InMemoryStore) IDsByPhoneticKey(_ context.Context, key string, familyOnly bool) ([]domain.SubjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SubjectID
	for id, subj := range s.subjects {
		for _, k := range subj.PhoneticKeys {
			if k.Value != key {
				continue
			}
			if familyOnly && !k.FromFamilyName {
				continue
			}
			out = append(out, id)
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func matches(subj Subject, f Filter) bool {
	if f.Status != 0 && subj.Status != f.Status {
		return false
	}
	if f.Sex != "" && subj.Sex != f.Sex {
		return false
	}
	if f.SourceID != "" && !containsString(subj.Sources, f.SourceID) {
		return false
	}
	if f.NameToken != "" && !containsToken(subj.NameTokens, f.NameToken, f.FamilyNameOnly) {
		return false
	}
	if f.PhoneticKey != "" && !containsToken(subj.PhoneticKeys, f.PhoneticKey, f.FamilyNameOnly) {
		return false
	}
	if !yearsOverlap(subj.BirthMin, subj.BirthMax, f.BirthYearMin, f.BirthYearMax) {
		return false
	}
	if !yearsOverlap(subj.DeathMin, subj.DeathMax, f.DeathYearMin, f.DeathYearMax) {
		return false
	}
	return true
}

// yearsOverlap checks the subject's [dateMin, dateMax] interval against
// the filter years. Either interval side falls back to the other when
// only one bound is recorded.
func yearsOverlap(dateMin, dateMax string, yearMin, yearMax int) bool {
	if yearMin == 0 && yearMax == 0 {
		return true
	}
	lo, hi := YearOf(dateMin), YearOf(dateMax)
	if lo == 0 {
		lo = hi
	}
	if hi == 0 {
		hi = lo
	}
	if lo == 0 {
		return false
	}
	if yearMin != 0 && hi < yearMin {
		return false
	}
	if yearMax != 0 && lo > yearMax {
		return false
	}
	return true
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func containsToken(tokens []Token, want string, familyOnly bool) bool {
	for _, t := range tokens {
		if t.Value != want {
			continue
		}
		if familyOnly && !t.FromFamilyName {
			continue
		}
		return true
	}
	return false
}

func paginate(list []Subject, start, size int) []Subject {
	if start >= len(list) {
		return nil
	}
	list = list[start:]
	if size > 0 && size < len(list) {
		list = list[:size]
	}
	return list
}

func copySubject(subj Subject) Subject {
	out := subj
	out.Sources = append([]string(nil), subj.Sources...)
	out.NameTokens = append([]Token(nil), subj.NameTokens...)
	out.PhoneticKeys = append([]Token(nil), subj.PhoneticKeys...)
	return out
}
