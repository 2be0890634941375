package identification

import (
	"context"
	"fmt"
	"sort"

	"bioport/internal/document"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
)

// Unidentify undoes earlier merges: every harvested document returns
// to the identifier it was originally recorded under. An original id
// that meanwhile belongs to someone else is replaced by a fresh one.
// Curator-authored documents describe the merged person and are
// deleted. Returns the resulting subject ids.
func (s *Service) Unidentify(ctx context.Context, id domain.SubjectID) ([]domain.SubjectID, error) {
	var result []domain.SubjectID
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		docs, err := s.documents.List(ctx, document.Filter{SubjectID: id})
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return dErrors.Newf(dErrors.CodeNotFound, "subject %s has no documents", id)
		}

		assigned := make(map[domain.SubjectID]domain.SubjectID)
		touched := map[domain.SubjectID]bool{id: true}
		for _, doc := range docs {
			if doc.IsEditorial() {
				if err := s.documents.Delete(ctx, doc.Key); err != nil {
					return err
				}
				continue
			}
			original := doc.OriginalSubjectID
			if original.IsZero() {
				original = id
			}
			target, ok := assigned[original]
			if !ok {
				target, err = s.claimTarget(ctx, id, original)
				if err != nil {
					return err
				}
				assigned[original] = target
			}
			if target == id {
				continue
			}
			doc.SubjectID = target
			doc.OriginalSubjectID = target
			doc.Comment = fmt.Sprintf("split from %s", id)
			if _, err := s.documents.Save(ctx, doc); err != nil {
				return err
			}
			touched[target] = true
		}

		for target := range touched {
			if err := s.similar.Invalidate(ctx, target); err != nil {
				return err
			}
			if err := s.subjects.Rebuild(ctx, target); err != nil {
				return err
			}
			if target != id {
				msg := fmt.Sprintf("split %s out of %s", target, id)
				if err := s.audit.Record(ctx, auditTable, string(target), msg); err != nil {
					return err
				}
			}
		}
		if err := s.audit.Record(ctx, auditTable, string(id),
			fmt.Sprintf("unidentified %s into %d subjects", id, len(touched))); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.SubjectsSplit.Inc()
		}

		for target := range touched {
			result = append(result, target)
		}
		sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
		s.logger.InfoContext(ctx, "subject unidentified", "subject", id, "resulting", len(result))
		return nil
	})
	if err != nil {
		return nil, wrapWorkflow(err, "unidentify subject")
	}
	return result, nil
}

// claimTarget decides which identifier a split document lands on. The
// original id is revived when it still points back at the merged
// subject; an id that was never issued is registered as-is; an id that
// meanwhile serves another subject is replaced by a fresh one.
func (s *Service) claimTarget(ctx context.Context, current, original domain.SubjectID) (domain.SubjectID, error) {
	if original == current {
		return current, nil
	}
	exists, err := s.registry.Exists(ctx, original)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := s.registry.Register(ctx, original); err != nil {
			return "", err
		}
		return original, nil
	}
	resolved, err := s.registry.Resolve(ctx, original)
	if err != nil {
		return "", err
	}
	if resolved == current {
		if err := s.registry.ClearRedirect(ctx, original); err != nil {
			return "", err
		}
		return original, nil
	}
	if resolved == original {
		// Live but possibly occupied by an unrelated subject.
		if _, err := s.subjects.Get(ctx, original); err == nil {
			return s.registry.Issue(ctx)
		} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return "", err
		}
		return original, nil
	}
	// Redirected somewhere else entirely; the history is not ours to
	// rewrite.
	return s.registry.Issue(ctx)
}

// Detach moves one document onto a fresh subject of its own. The last
// document of a subject cannot be detached; that would leave an
// aggregate with nothing behind it.
func (s *Service) Detach(ctx context.Context, key domain.DocumentKey) (domain.SubjectID, error) {
	if key.IsEditorial() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "editorial documents cannot be detached")
	}
	var fresh domain.SubjectID
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		doc, err := s.documents.Current(ctx, key)
		if err != nil {
			return err
		}
		siblings, err := s.documents.List(ctx, document.Filter{SubjectID: doc.SubjectID})
		if err != nil {
			return err
		}
		if len(siblings) <= 1 {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"document %s is the only document of subject %s", key, doc.SubjectID)
		}

		fresh, err = s.registry.Issue(ctx)
		if err != nil {
			return err
		}
		previous := doc.SubjectID
		doc.SubjectID = fresh
		doc.OriginalSubjectID = fresh
		doc.Comment = fmt.Sprintf("detached from %s", previous)
		if _, err := s.documents.Save(ctx, *doc); err != nil {
			return err
		}

		for _, affected := range []domain.SubjectID{previous, fresh} {
			if err := s.similar.Invalidate(ctx, affected); err != nil {
				return err
			}
			if err := s.subjects.Rebuild(ctx, affected); err != nil {
				return err
			}
		}
		msg := fmt.Sprintf("detached document %s from %s to %s", key, previous, fresh)
		if err := s.audit.Record(ctx, auditTable, string(previous), msg); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, auditTable, string(fresh), msg); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "document detached",
			"document", key.String(), "from", previous, "to", fresh)
		return nil
	})
	if err != nil {
		return "", wrapWorkflow(err, "detach document")
	}
	return fresh, nil
}
