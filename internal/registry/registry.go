// Package registry issues canonical subject identifiers and maintains
// the redirect graph that keeps retired identifiers resolvable after a
// merge. The graph is a forest: every redirect chain terminates at a
// live id, and the public API never constructs a cycle.
package registry

import (
	"context"

	"bioport/pkg/domain"
)

// Record is one registry row: an identifier and its optional redirect
// target. A nil RedirectTo means the id is live.
type Record struct {
	ID         domain.SubjectID
	RedirectTo *domain.SubjectID
}

// Retired reports whether the id has been merged away.
func (r *Record) Retired() bool { return r.RedirectTo != nil }

// Store persists the identifier registry. Implementations are pure I/O;
// collision handling and cycle guarding belong to the service.
type Store interface {
	// Insert registers a new identifier. Returns sentinel.ErrConflict
	// (possibly wrapped) when the id is already present.
	Insert(ctx context.Context, id domain.SubjectID) error
	// Get returns the record for id, sentinel.ErrNotFound when unknown.
	Get(ctx context.Context, id domain.SubjectID) (*Record, error)
	// SetRedirect overwrites the redirect target; nil clears it.
	// Returns sentinel.ErrNotFound when the id is unknown.
	SetRedirect(ctx context.Context, id domain.SubjectID, to *domain.SubjectID) error
	// All lists every identifier ever issued, live and retired.
	All(ctx context.Context) ([]Record, error)
}
