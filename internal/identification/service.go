// Package identification implements the curator workflows that change
// what the repository believes about identity: merging two subjects
// into one person, declaring them different, postponing the decision,
// and undoing earlier merges. Every workflow runs as one transaction
// and leaves a change-log trail.
package identification

import (
	"context"
	"fmt"
	"log/slog"

	"bioport/internal/audit"
	"bioport/internal/document"
	"bioport/internal/platform/metrics"
	"bioport/internal/registry"
	"bioport/internal/similarity"
	"bioport/internal/source"
	"bioport/internal/subject"
	"bioport/internal/witness"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
	pstrings "bioport/pkg/platform/strings"
	"bioport/pkg/platform/tx"
)

// auditTable is the change-log table name for identity decisions.
const auditTable = "subjects"

// Service orchestrates the identity workflows across the verticals.
type Service struct {
	registry  *registry.Service
	documents *document.Service
	subjects  *subject.Service
	similar   *similarity.Service
	sources   source.Store
	witnesses witness.Store
	audit     *audit.Recorder
	runner    tx.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(
	reg *registry.Service,
	documents *document.Service,
	subjects *subject.Service,
	similar *similarity.Service,
	sources source.Store,
	witnesses witness.Store,
	auditor *audit.Recorder,
	runner tx.Runner,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		registry:  reg,
		documents: documents,
		subjects:  subjects,
		similar:   similar,
		sources:   sources,
		witnesses: witnesses,
		audit:     auditor,
		runner:    runner,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identify merges two subjects into one person. The subject backed by
// the most trusted source survives; on equal trust the first argument
// wins. Documents of the loser are reattached to the survivor, the
// loser's identifier is retired via a redirect, and the survivor is
// rebuilt. Identifying a subject with itself is a no-op.
func (s *Service) Identify(ctx context.Context, a, b domain.SubjectID) (domain.SubjectID, error) {
	var winner domain.SubjectID
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		resolvedA, err := s.registry.Resolve(ctx, a)
		if err != nil {
			return err
		}
		resolvedB, err := s.registry.Resolve(ctx, b)
		if err != nil {
			return err
		}
		if resolvedA == resolvedB {
			winner = resolvedA
			return nil
		}

		winner, err = s.pickSurvivor(ctx, resolvedA, resolvedB)
		if err != nil {
			return err
		}
		loser := resolvedA
		if winner == resolvedA {
			loser = resolvedB
		}
		return s.merge(ctx, winner, loser)
	})
	if err != nil {
		return "", wrapWorkflow(err, "identify subjects")
	}
	return winner, nil
}

// pickSurvivor ranks the two subjects by the best source quality among
// their harvested documents. Curator-authored documents carry no
// trust; they follow the winner anyway.
func (s *Service) pickSurvivor(ctx context.Context, a, b domain.SubjectID) (domain.SubjectID, error) {
	trustA, err := s.trust(ctx, a)
	if err != nil {
		return "", err
	}
	trustB, err := s.trust(ctx, b)
	if err != nil {
		return "", err
	}
	if trustB > trustA {
		return b, nil
	}
	return a, nil
}

func (s *Service) trust(ctx context.Context, id domain.SubjectID) (int, error) {
	docs, err := s.documents.List(ctx, document.Filter{SubjectID: id})
	if err != nil {
		return 0, err
	}
	best := -1
	qualities := make(map[string]int)
	for _, doc := range docs {
		if doc.IsEditorial() {
			continue
		}
		quality, seen := qualities[doc.Key.SourceID]
		if !seen {
			quality = 0
			if src, err := s.sources.Get(ctx, doc.Key.SourceID); err == nil {
				quality = src.Quality
			}
			qualities[doc.Key.SourceID] = quality
		}
		if quality > best {
			best = quality
		}
	}
	return best, nil
}

func (s *Service) merge(ctx context.Context, winner, loser domain.SubjectID) error {
	docs, err := s.documents.List(ctx, document.Filter{SubjectID: loser})
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if doc.IsEditorial() {
			continue
		}
		doc.SubjectID = winner
		doc.Comment = fmt.Sprintf("reattached from %s: identified with %s", loser, winner)
		if _, err := s.documents.Save(ctx, doc); err != nil {
			return err
		}
	}
	if err := s.mergeEditorial(ctx, winner, loser); err != nil {
		return err
	}

	if err := s.registry.Redirect(ctx, loser, winner); err != nil {
		return err
	}
	// The pair is decided now; neither a pending deferral nor an old
	// anti verdict may outlive the merge.
	pair := domain.PairOf(winner, loser)
	if err := s.witnesses.Remove(ctx, pair, witness.KindDeferred); err != nil {
		return err
	}
	if err := s.witnesses.Remove(ctx, pair, witness.KindAnti); err != nil {
		return err
	}
	for _, id := range []domain.SubjectID{winner, loser} {
		if err := s.similar.Invalidate(ctx, id); err != nil {
			return err
		}
	}
	if err := s.subjects.Rebuild(ctx, loser); err != nil {
		return err
	}
	if err := s.subjects.Rebuild(ctx, winner); err != nil {
		return err
	}

	msg := fmt.Sprintf("identified %s with %s, %s survives", loser, winner, winner)
	if err := s.audit.Record(ctx, auditTable, string(winner), msg); err != nil {
		return err
	}
	if err := s.audit.Record(ctx, auditTable, string(loser), msg); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.SubjectsMerged.Inc()
	}
	s.logger.InfoContext(ctx, "subjects identified", "winner", winner, "loser", loser)
	return nil
}

// mergeEditorial folds the loser's curator-authored document into the
// winner's. Winner values win field conflicts, name variants
// accumulate.
func (s *Service) mergeEditorial(ctx context.Context, winner, loser domain.SubjectID) error {
	loserKey := domain.EditorialKey(loser)
	loserDoc, err := s.documents.Current(ctx, loserKey)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil
		}
		return err
	}

	winnerKey := domain.EditorialKey(winner)
	merged := *loserDoc
	merged.Key = winnerKey
	merged.SubjectID = winner
	merged.OriginalSubjectID = winner
	merged.Comment = fmt.Sprintf("merged editorial document from %s", loser)

	winnerDoc, err := s.documents.Current(ctx, winnerKey)
	switch {
	case err == nil:
		merged.Details = mergeDetails(winnerDoc.Details, loserDoc.Details)
		if winnerDoc.Payload != "" {
			merged.Payload = winnerDoc.Payload
		}
	case dErrors.HasCode(err, dErrors.CodeNotFound):
	default:
		return err
	}

	if _, err := s.documents.Save(ctx, merged); err != nil {
		return err
	}
	return s.documents.Delete(ctx, loserKey)
}

func mergeDetails(primary, secondary document.Details) document.Details {
	out := primary
	union := make([]string, 0, len(primary.Names)+len(secondary.Names))
	union = append(union, primary.Names...)
	union = append(union, secondary.Names...)
	out.Names = pstrings.DedupeAndTrim(union)
	take := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	take(&out.Sex, secondary.Sex)
	take(&out.BirthMin, secondary.BirthMin)
	take(&out.BirthMax, secondary.BirthMax)
	take(&out.DeathMin, secondary.DeathMin)
	take(&out.DeathMax, secondary.DeathMax)
	take(&out.BirthPlace, secondary.BirthPlace)
	take(&out.DeathPlace, secondary.DeathPlace)
	return out
}

// wrapWorkflow keeps domain error codes intact and wraps everything
// else as internal.
func wrapWorkflow(err error, msg string) error {
	if err == nil {
		return nil
	}
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
