// Package similarity computes and caches similarity scores between
// subjects. Candidates are bucketed by the phonetic keys of their
// family names; for each subject the best scoring candidates above a
// threshold are cached as canonical pairs. The self pair with score
// one doubles as the "already computed" marker.
package similarity

import (
	"context"

	"bioport/pkg/domain"
)

// Entry is one cached pair score.
type Entry struct {
	Pair  domain.Pair
	Score float64
}

// TopFilter narrows cache reads. Self pairs are always excluded.
type TopFilter struct {
	MinScore  float64
	SubjectID domain.SubjectID
}

// Store persists the similarity cache.
type Store interface {
	// Put inserts the entry. When the pair exists the higher score
	// wins; a lower score never downgrades a cached one.
	Put(ctx context.Context, e Entry) error
	// HasComputed reports whether the self marker for id exists.
	HasComputed(ctx context.Context, id domain.SubjectID) (bool, error)
	// Top returns non-self entries with score above f.MinScore,
	// ordered by score descending then pair ascending. A non-zero
	// f.SubjectID restricts to pairs involving that subject.
	Top(ctx context.Context, f TopFilter) ([]Entry, error)
	// DeleteForSubject removes every entry involving id, the self
	// marker included.
	DeleteForSubject(ctx context.Context, id domain.SubjectID) error
	// DeletePair removes one pair entry.
	DeletePair(ctx context.Context, pair domain.Pair) error
}
