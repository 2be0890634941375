// Package ingest is the write boundary for harvested documents. It
// decides which subject an incoming document lands on, keeps reimports
// idempotent, and cascades source removals down to orphaned subjects.
package ingest

import (
	"context"
	"log/slog"

	"bioport/internal/document"
	"bioport/internal/registry"
	"bioport/internal/similarity"
	"bioport/internal/source"
	"bioport/internal/subject"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
	"bioport/pkg/platform/tx"
)

// Service wires document intake to the identity verticals.
type Service struct {
	registry  *registry.Service
	documents *document.Service
	subjects  *subject.Service
	similar   *similarity.Service
	sources   source.Store
	runner    tx.Runner
	logger    *slog.Logger
}

func NewService(
	reg *registry.Service,
	documents *document.Service,
	subjects *subject.Service,
	similar *similarity.Service,
	sources source.Store,
	runner tx.Runner,
	logger *slog.Logger,
) *Service {
	return &Service{
		registry:  reg,
		documents: documents,
		subjects:  subjects,
		similar:   similar,
		sources:   sources,
		runner:    runner,
		logger:    logger,
	}
}

// SaveDocument stores one document revision and keeps the subject side
// consistent. A reimport of a known key stays attached to whatever
// subject curators moved it to; a new document without a subject gets
// a freshly issued identifier.
func (s *Service) SaveDocument(ctx context.Context, doc document.Document) (*document.Document, error) {
	if doc.Key.SourceID == "" || doc.Key.LocalID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document key requires source and local id")
	}
	if _, err := s.sources.Get(ctx, doc.Key.SourceID); err != nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "source %s not registered", doc.Key.SourceID)
	}

	var saved *document.Document
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.documents.Current(ctx, doc.Key)
		switch {
		case err == nil:
			// Curators may have moved the document since the last
			// harvest; the reimport must not move it back.
			doc.SubjectID = existing.SubjectID
			doc.OriginalSubjectID = existing.OriginalSubjectID
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			if err := s.attachSubject(ctx, &doc); err != nil {
				return err
			}
		default:
			return err
		}

		saved, err = s.documents.Save(ctx, doc)
		if err != nil {
			return err
		}
		if err := s.subjects.Rebuild(ctx, doc.SubjectID); err != nil {
			return err
		}
		// New data means old scores are stale.
		return s.similar.Invalidate(ctx, doc.SubjectID)
	})
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "ingest document")
	}
	return saved, nil
}

// attachSubject resolves where a brand new document belongs: the
// subject the caller named, or a freshly issued identifier.
func (s *Service) attachSubject(ctx context.Context, doc *document.Document) error {
	if doc.SubjectID.IsZero() {
		id, err := s.registry.Issue(ctx)
		if err != nil {
			return err
		}
		doc.SubjectID = id
		doc.OriginalSubjectID = id
		return nil
	}
	resolved, err := s.registry.Resolve(ctx, doc.SubjectID)
	if err != nil {
		return err
	}
	exists, err := s.registry.Exists(ctx, resolved)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.registry.Register(ctx, resolved); err != nil {
			return err
		}
	}
	doc.SubjectID = resolved
	if doc.OriginalSubjectID.IsZero() {
		doc.OriginalSubjectID = resolved
	}
	return nil
}

// DeleteDocument removes one document with its history and cleans up
// the subject it was attached to.
func (s *Service) DeleteDocument(ctx context.Context, key domain.DocumentKey) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		doc, err := s.documents.Current(ctx, key)
		if err != nil {
			return err
		}
		if err := s.documents.Delete(ctx, key); err != nil {
			return err
		}
		if err := s.similar.Invalidate(ctx, doc.SubjectID); err != nil {
			return err
		}
		return s.subjects.Rebuild(ctx, doc.SubjectID)
	})
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete document")
	}
	return nil
}

// DeleteDocumentsForSource removes every document of a source and the
// subjects that are left with nothing. Returns how many documents were
// removed.
func (s *Service) DeleteDocumentsForSource(ctx context.Context, sourceID string) (int, error) {
	if sourceID == domain.EditorialSourceID {
		return 0, dErrors.New(dErrors.CodeInvariantViolation, "editorial documents cannot be bulk-deleted")
	}
	var removed int
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		docs, err := s.documents.List(ctx, document.Filter{SourceID: sourceID})
		if err != nil {
			return err
		}
		affected := make(map[domain.SubjectID]bool)
		for _, doc := range docs {
			if err := s.documents.Delete(ctx, doc.Key); err != nil {
				return err
			}
			affected[doc.SubjectID] = true
			removed++
		}
		for id := range affected {
			if err := s.similar.Invalidate(ctx, id); err != nil {
				return err
			}
			if err := s.subjects.Rebuild(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return 0, err
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "delete source documents")
	}
	s.logger.InfoContext(ctx, "source documents deleted", "source", sourceID, "count", removed)
	return removed, nil
}
