// Package source manages the registry of biographical sources: the
// repositories documents are harvested from, plus the editorial
// pseudo-source that holds curator-authored documents.
package source

import (
	"context"

	"bioport/pkg/domain"
)

// Source describes one provider of biographical documents. Quality
// ranks the source for merge decisions; higher wins. DefaultStatus is
// assigned to subjects created from this source's documents.
type Source struct {
	ID            string
	URL           string
	Description   string
	Quality       int
	DefaultStatus int
}

// IsEditorial reports whether this is the built-in editorial source.
func (s Source) IsEditorial() bool { return s.ID == domain.EditorialSourceID }

// Store persists source registrations.
type Store interface {
	// Upsert inserts or updates a source by id.
	Upsert(ctx context.Context, src Source) error
	// Get returns the source, sentinel.ErrNotFound when unknown.
	Get(ctx context.Context, id string) (*Source, error)
	// Delete removes the registration. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error
	// All lists every registered source.
	All(ctx context.Context) ([]Source, error)
}
