// Package witness records curator verdicts about pairs of subjects:
// anti-identifications ("these are different people") and deferrals
// ("decide later"). Both are stored on the canonical pair so argument
// order never matters.
package witness

import (
	"context"

	"bioport/pkg/domain"
)

// Kind discriminates the two verdicts.
type Kind string

const (
	// KindAnti marks a pair as definitely different people.
	KindAnti Kind = "anti"
	// KindDeferred marks a pair as postponed for later review.
	KindDeferred Kind = "deferred"
)

// Store persists pair verdicts. Adds are idempotent.
type Store interface {
	Add(ctx context.Context, pair domain.Pair, kind Kind) error
	Has(ctx context.Context, pair domain.Pair, kind Kind) (bool, error)
	// Remove drops the verdict; removing an absent one is a no-op.
	Remove(ctx context.Context, pair domain.Pair, kind Kind) error
	// RemoveForSubject drops every verdict of the kind that involves
	// the subject.
	RemoveForSubject(ctx context.Context, id domain.SubjectID, kind Kind) error
	// List returns all pairs carrying the verdict.
	List(ctx context.Context, kind Kind) ([]domain.Pair, error)
}
