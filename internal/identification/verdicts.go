package identification

import (
	"context"
	"fmt"

	"bioport/internal/witness"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
)

// AntiIdentify records that two subjects are different people. The
// verdict is idempotent and clears any pending deferral; the pair
// never reappears in similarity results.
func (s *Service) AntiIdentify(ctx context.Context, a, b domain.SubjectID) error {
	if a == b {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot anti-identify a subject with itself")
	}
	pair := domain.PairOf(a, b)

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		already, err := s.witnesses.Has(ctx, pair, witness.KindAnti)
		if err != nil {
			return err
		}
		if already {
			return nil
		}
		if err := s.witnesses.Add(ctx, pair, witness.KindAnti); err != nil {
			return err
		}
		if err := s.witnesses.Remove(ctx, pair, witness.KindDeferred); err != nil {
			return err
		}
		if err := s.similar.PurgePair(ctx, pair); err != nil {
			return err
		}
		msg := fmt.Sprintf("marked %s and %s as different people", pair.Low, pair.High)
		if err := s.audit.Record(ctx, auditTable, string(pair.Low), msg); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, auditTable, string(pair.High), msg); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.PairsAntiMatched.Inc()
		}
		s.logger.InfoContext(ctx, "pair anti-identified", "low", pair.Low, "high", pair.High)
		return nil
	})
	return wrapWorkflow(err, "anti-identify subjects")
}

// Defer postpones the decision about a pair. The pair drops out of
// similarity results and stays out until it is identified or
// anti-identified; a deferral is never re-surfaced on refresh.
func (s *Service) Defer(ctx context.Context, a, b domain.SubjectID) error {
	if a == b {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot defer a subject against itself")
	}
	pair := domain.PairOf(a, b)

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		already, err := s.witnesses.Has(ctx, pair, witness.KindDeferred)
		if err != nil {
			return err
		}
		if already {
			return nil
		}
		if err := s.witnesses.Add(ctx, pair, witness.KindDeferred); err != nil {
			return err
		}
		if err := s.similar.PurgePair(ctx, pair); err != nil {
			return err
		}
		msg := fmt.Sprintf("deferred decision on %s and %s", pair.Low, pair.High)
		if err := s.audit.Record(ctx, auditTable, string(pair.Low), msg); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.PairsDeferred.Inc()
		}
		s.logger.InfoContext(ctx, "pair deferred", "low", pair.Low, "high", pair.High)
		return nil
	})
	return wrapWorkflow(err, "defer subjects")
}

// AntiIdentified reports whether the pair carries an anti verdict.
func (s *Service) AntiIdentified(ctx context.Context, a, b domain.SubjectID) (bool, error) {
	has, err := s.witnesses.Has(ctx, domain.PairOf(a, b), witness.KindAnti)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check anti verdict")
	}
	return has, nil
}

// Deferred reports whether the pair is postponed.
func (s *Service) Deferred(ctx context.Context, a, b domain.SubjectID) (bool, error) {
	has, err := s.witnesses.Has(ctx, domain.PairOf(a, b), witness.KindDeferred)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check deferral")
	}
	return has, nil
}

// DeferredPairs lists every postponed pair.
func (s *Service) DeferredPairs(ctx context.Context) ([]domain.Pair, error) {
	pairs, err := s.witnesses.List(ctx, witness.KindDeferred)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list deferred pairs")
	}
	return pairs, nil
}
