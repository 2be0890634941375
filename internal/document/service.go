package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bioport/internal/platform/metrics"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
	"bioport/pkg/platform/sentinel"
	pstrings "bioport/pkg/platform/strings"
	"bioport/pkg/platform/tx"
	"bioport/pkg/requestcontext"
)

// Service exposes the document revision store. All writes run inside
// the transaction runner so the version shift commits atomically.
type Service struct {
	store   Store
	runner  tx.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, runner tx.Runner, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, runner: runner, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores doc as the new current revision. The author defaults to
// the editor on the context, the timestamp to the request time, and
// the original subject id to the subject id on first save.
func (s *Service) Save(ctx context.Context, doc Document) (*Document, error) {
	if doc.Key.SourceID == "" || doc.Key.LocalID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document key requires source and local id")
	}
	if doc.SubjectID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document requires a subject id")
	}
	if doc.Author == "" {
		doc.Author = requestcontext.Editor(ctx)
	}
	doc.Details.Names = pstrings.DedupeAndTrim(doc.Details.Names)
	doc.SavedAt = requestcontext.Now(ctx)
	doc.Version = 0

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if doc.OriginalSubjectID.IsZero() {
			prev, err := s.store.Current(ctx, doc.Key)
			switch {
			case err == nil:
				doc.OriginalSubjectID = prev.OriginalSubjectID
			case errors.Is(err, sentinel.ErrNotFound):
				doc.OriginalSubjectID = doc.SubjectID
			default:
				return fmt.Errorf("load previous revision: %w", err)
			}
		}
		return s.store.Save(ctx, doc)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save document")
	}
	if s.metrics != nil {
		s.metrics.DocumentsSaved.Inc()
	}
	s.logger.InfoContext(ctx, "document saved",
		"document", doc.Key.String(), "subject", doc.SubjectID, "author", doc.Author)
	return &doc, nil
}

// Current returns the live revision of the key.
func (s *Service) Current(ctx context.Context, key domain.DocumentKey) (*Document, error) {
	doc, err := s.store.Current(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "document %s not found", key)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get document")
	}
	return doc, nil
}

// Get returns one specific revision.
func (s *Service) Get(ctx context.Context, key domain.DocumentKey, version int) (*Document, error) {
	doc, err := s.store.Get(ctx, key, version)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "document %s has no version %d", key, version)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get document version")
	}
	return doc, nil
}

// History returns all revisions, current first.
func (s *Service) History(ctx context.Context, key domain.DocumentKey) ([]Document, error) {
	revisions, err := s.store.Versions(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list document versions")
	}
	if len(revisions) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "document %s not found", key)
	}
	return revisions, nil
}

// List returns the revisions matching the filter; current revisions
// only unless the filter asks for all versions.
func (s *Service) List(ctx context.Context, f Filter) ([]Document, error) {
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list documents")
	}
	return out, nil
}

// Delete removes a document with its entire revision history. Used by
// the identity workflows and the source cascade; regular edits go
// through Save so history survives.
func (s *Service) Delete(ctx context.Context, key domain.DocumentKey) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, key)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete document")
	}
	s.logger.InfoContext(ctx, "document deleted", "document", key.String())
	return nil
}

// Undo reverts the revision at the given version to the one saved
// before it, by storing that older revision as the new current. Undoing
// version zero restores the previous save; nothing is ever removed, so
// an undo can itself be undone.
func (s *Service) Undo(ctx context.Context, key domain.DocumentKey, version int) (*Document, error) {
	var restored Document
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		prev, err := s.store.Get(ctx, key, version+1)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeConflict,
					"document %s has no version earlier than %d", key, version)
			}
			return fmt.Errorf("load revision to restore: %w", err)
		}
		restored = *prev
		restored.Version = 0
		restored.Author = requestcontext.Editor(ctx)
		restored.SavedAt = requestcontext.Now(ctx)
		restored.Comment = fmt.Sprintf("restored revision %d", version+1)
		return s.store.Save(ctx, restored)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "undo document")
	}
	s.logger.InfoContext(ctx, "document reverted",
		"document", key.String(), "restored_version", version+1)
	return &restored, nil
}
