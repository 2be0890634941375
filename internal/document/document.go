// Package document stores biographical documents and their full
// revision history. A document is keyed by (source, local id); every
// save shifts existing revisions one version up and inserts the new
// revision at version zero, so version zero is always current and
// nothing is ever overwritten.
package document

import (
	"context"
	"time"

	"bioport/pkg/domain"
)

// Details is the structured core of a document: the fields the
// similarity engine scores on. Date bounds are partial ISO dates
// ("1872", "1872-03", "1872-03-14"); an empty string means unknown.
type Details struct {
	Names      []string `json:"names,omitempty"`
	Sex        string   `json:"sex,omitempty"`
	BirthMin   string   `json:"birth_min,omitempty"`
	BirthMax   string   `json:"birth_max,omitempty"`
	DeathMin   string   `json:"death_min,omitempty"`
	DeathMax   string   `json:"death_max,omitempty"`
	BirthPlace string   `json:"birth_place,omitempty"`
	DeathPlace string   `json:"death_place,omitempty"`
}

// Document is one revision of a biographical document.
type Document struct {
	Key     domain.DocumentKey
	Version int

	// SubjectID is the identifier the document is currently attached
	// to. OriginalSubjectID is the identifier it was first recorded
	// under; a split reverts documents to it.
	SubjectID         domain.SubjectID
	OriginalSubjectID domain.SubjectID

	Details   Details
	Payload   string
	SourceURL string
	Author    string
	Comment   string
	SavedAt   time.Time
}

// IsEditorial reports whether the document was authored by a curator
// rather than harvested.
func (d *Document) IsEditorial() bool { return d.Key.IsEditorial() }

// Filter narrows document listings. Zero fields match all. Listings
// cover current revisions only unless AllVersions is set.
type Filter struct {
	SourceID  string
	Author    string
	SubjectID domain.SubjectID
	// SavedSince and SavedUntil bound the save timestamp, inclusive.
	SavedSince time.Time
	SavedUntil time.Time
	// AllVersions includes superseded revisions, so the history of
	// edits across documents is searchable by author and time range.
	AllVersions bool
	// NewestFirst orders by save time descending instead of by key and
	// version.
	NewestFirst bool
	// Limit caps the number of results; zero means unbounded.
	Limit int
}

// Store persists documents. Save is the only write path for revisions;
// implementations must make the version shift atomic.
type Store interface {
	// Save shifts all stored revisions of doc.Key one version up and
	// inserts doc at version zero.
	Save(ctx context.Context, doc Document) error
	// Current returns version zero, sentinel.ErrNotFound when the key
	// is unknown.
	Current(ctx context.Context, key domain.DocumentKey) (*Document, error)
	// Get returns one specific revision, sentinel.ErrNotFound when
	// absent.
	Get(ctx context.Context, key domain.DocumentKey, version int) (*Document, error)
	// Versions returns all revisions of the key ordered by version
	// ascending, current first. Empty when the key is unknown.
	Versions(ctx context.Context, key domain.DocumentKey) ([]Document, error)
	// List returns the current revisions matching the filter.
	List(ctx context.Context, f Filter) ([]Document, error)
	// Delete removes every revision of the key.
	Delete(ctx context.Context, key domain.DocumentKey) error
}
