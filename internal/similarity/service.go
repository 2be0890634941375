package similarity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"bioport/internal/platform/metrics"
	"bioport/internal/registry"
	"bioport/internal/subject"
	"bioport/internal/witness"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
	"bioport/pkg/platform/sentinel"
	"bioport/pkg/platform/tx"
)

// Config tunes the engine.
type Config struct {
	// MinScore is the threshold below which pairs are not cached.
	MinScore float64
	// TopK caps how many candidates are cached per subject.
	TopK int
	// RefreshWorkers bounds bulk refresh concurrency.
	RefreshWorkers int
}

// DefaultConfig mirrors the values the public data set was built with.
func DefaultConfig() Config {
	return Config{MinScore: 0.70, TopK: 20, RefreshWorkers: 4}
}

// refreshGuardTTL bounds how long a crashed bulk refresh can block the
// next one.
const refreshGuardTTL = 30 * time.Minute

// Match is one scored candidate pair with both aggregates resolved.
type Match struct {
	Score float64
	A     *subject.Subject
	B     *subject.Subject
}

// Query narrows TopSimilar results. Sex, Status and SourceID match
// when either side of the pair matches; SourceID2 requires one side
// per source.
type Query struct {
	MinScore  float64
	SubjectID domain.SubjectID
	SourceID  string
	SourceID2 string
	Sex       string
	Status    int

	Start int
	Size  int
}

// Service computes, caches and serves similarity matches.
type Service struct {
	cache     Store
	subjects  subject.Store
	witnesses witness.Store
	registry  *registry.Service
	runner    tx.Runner
	guard     Guard
	logger    *slog.Logger
	metrics   *metrics.Metrics
	cfg       Config
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithGuard(g Guard) Option {
	return func(s *Service) { s.guard = g }
}

func NewService(cache Store, subjects subject.Store, witnesses witness.Store,
	reg *registry.Service, runner tx.Runner, logger *slog.Logger, cfg Config, opts ...Option) *Service {
	if cfg.MinScore == 0 {
		cfg.MinScore = DefaultConfig().MinScore
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.RefreshWorkers == 0 {
		cfg.RefreshWorkers = DefaultConfig().RefreshWorkers
	}
	s := &Service{
		cache:     cache,
		subjects:  subjects,
		witnesses: witnesses,
		registry:  reg,
		runner:    runner,
		guard:     NoopGuard{},
		logger:    logger,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh recomputes the cached candidates for one subject. Without
// force a subject that already carries its self marker is skipped, so
// repeated bulk runs resume cheaply.
func (s *Service) Refresh(ctx context.Context, id domain.SubjectID, force bool) error {
	if !force {
		done, err := s.cache.HasComputed(ctx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "check similarity marker")
		}
		if done {
			return nil
		}
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if force {
			if err := s.cache.DeleteForSubject(ctx, id); err != nil {
				return err
			}
		}
		// The self pair marks the subject as computed even when no
		// candidate clears the threshold.
		if err := s.cache.Put(ctx, Entry{Pair: domain.Pair{Low: id, High: id}, Score: 1.0}); err != nil {
			return err
		}

		subj, err := s.subjects.Get(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("load subject: %w", err)
		}
		if !subj.EligibleForMatching() {
			return nil
		}

		scored, err := s.scoreCandidates(ctx, subj)
		if err != nil {
			return err
		}
		// Tie-break on the pair ids so equal scores cut
		// deterministically at the top-k boundary.
		sort.Slice(scored, func(i, j int) bool {
			if scored[i].Score != scored[j].Score {
				return scored[i].Score > scored[j].Score
			}
			if scored[i].Pair.Low != scored[j].Pair.Low {
				return scored[i].Pair.Low < scored[j].Pair.Low
			}
			return scored[i].Pair.High < scored[j].Pair.High
		})
		if len(scored) > s.cfg.TopK {
			scored = scored[:s.cfg.TopK]
		}
		for _, e := range scored {
			if err := s.cache.Put(ctx, e); err != nil {
				return err
			}
		}
		s.logger.DebugContext(ctx, "similarity refreshed", "subject", id, "cached", len(scored))
		return nil
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "refresh similarity")
	}
	return nil
}

func (s *Service) scoreCandidates(ctx context.Context, subj *subject.Subject) ([]Entry, error) {
	seen := map[domain.SubjectID]bool{subj.ID: true}
	var scored []Entry
	for _, key := range subj.PhoneticKeys {
		if !key.FromFamilyName {
			continue
		}
		ids, err := s.subjects.IDsByPhoneticKey(ctx, key.Value, true)
		if err != nil {
			return nil, fmt.Errorf("candidates for key %s: %w", key.Value, err)
		}
		for _, candidateID := range ids {
			if seen[candidateID] {
				continue
			}
			seen[candidateID] = true

			allowed, err := s.pairAllowed(ctx, subj.ID, candidateID)
			if err != nil {
				return nil, err
			}
			if !allowed {
				continue
			}
			candidate, err := s.subjects.Get(ctx, candidateID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("load candidate: %w", err)
			}
			if !candidate.EligibleForMatching() {
				continue
			}
			if score := Score(subj, candidate); score > s.cfg.MinScore {
				scored = append(scored, Entry{Pair: domain.PairOf(subj.ID, candidateID), Score: score})
			}
		}
	}
	return scored, nil
}

// pairAllowed applies the curator verdicts and liveness: pairs already
// judged different, postponed pairs and retired ids stay out of the
// cache.
func (s *Service) pairAllowed(ctx context.Context, a, b domain.SubjectID) (bool, error) {
	pair := domain.PairOf(a, b)
	for _, kind := range []witness.Kind{witness.KindAnti, witness.KindDeferred} {
		has, err := s.witnesses.Has(ctx, pair, kind)
		if err != nil {
			return false, fmt.Errorf("check pair witness: %w", err)
		}
		if has {
			return false, nil
		}
	}
	for _, id := range []domain.SubjectID{a, b} {
		live, err := s.registry.IsLive(ctx, id)
		if err != nil {
			return false, err
		}
		if !live {
			return false, nil
		}
	}
	return true, nil
}

// RefreshAll refreshes every subject, optionally restricted to one
// source. Concurrent runs of the same scope are skipped via the guard.
func (s *Service) RefreshAll(ctx context.Context, sourceID string, force bool) error {
	scope := sourceID
	if scope == "" {
		scope = "all"
	}
	ok, err := s.guard.Acquire(ctx, scope, refreshGuardTTL)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "acquire refresh guard")
	}
	if !ok {
		return dErrors.Newf(dErrors.CodeConflict, "similarity refresh for %s already running", scope)
	}
	defer func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), scope); err != nil {
			s.logger.WarnContext(ctx, "failed to release refresh guard", "scope", scope, "error", err)
		}
	}()

	subjects, err := s.subjects.List(ctx, subject.Filter{SourceID: sourceID})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list subjects for refresh")
	}
	s.logger.InfoContext(ctx, "bulk similarity refresh started",
		"scope", scope, "subjects", len(subjects), "force", force)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.RefreshWorkers)
	for _, subj := range subjects {
		g.Go(func() error {
			return s.Refresh(gctx, subj.ID, force)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "bulk similarity refresh finished", "scope", scope)
	return nil
}

// TopSimilar returns the best cached matches, both aggregates loaded,
// ordered by score descending.
func (s *Service) TopSimilar(ctx context.Context, q Query) ([]Match, error) {
	minScore := q.MinScore
	if minScore == 0 {
		minScore = s.cfg.MinScore
	}
	entries, err := s.cache.Top(ctx, TopFilter{MinScore: minScore, SubjectID: q.SubjectID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read similarity cache")
	}

	var out []Match
	for _, e := range entries {
		allowed, err := s.pairAllowed(ctx, e.Pair.Low, e.Pair.High)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}
		a, err := s.subjects.Get(ctx, e.Pair.Low)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load matched subject")
		}
		b, err := s.subjects.Get(ctx, e.Pair.High)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load matched subject")
		}
		if !matchesQuery(q, a, b) {
			continue
		}
		out = append(out, Match{Score: e.Score, A: a, B: b})
	}

	if q.Start >= len(out) {
		return nil, nil
	}
	out = out[q.Start:]
	if q.Size > 0 && q.Size < len(out) {
		out = out[:q.Size]
	}
	return out, nil
}

func matchesQuery(q Query, a, b *subject.Subject) bool {
	if q.Sex != "" && a.Sex != q.Sex && b.Sex != q.Sex {
		return false
	}
	if q.Status != 0 && a.Status != q.Status && b.Status != q.Status {
		return false
	}
	switch {
	case q.SourceID != "" && q.SourceID2 != "":
		forward := hasSource(a, q.SourceID) && hasSource(b, q.SourceID2)
		backward := hasSource(a, q.SourceID2) && hasSource(b, q.SourceID)
		if !forward && !backward {
			return false
		}
	case q.SourceID != "":
		if !hasSource(a, q.SourceID) && !hasSource(b, q.SourceID) {
			return false
		}
	}
	return true
}

func hasSource(subj *subject.Subject, sourceID string) bool {
	for _, s := range subj.Sources {
		if s == sourceID {
			return true
		}
	}
	return false
}

// PurgePair drops one cached pair, typically because a curator verdict
// settled it.
func (s *Service) PurgePair(ctx context.Context, pair domain.Pair) error {
	if err := s.cache.DeletePair(ctx, pair); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "purge similarity pair")
	}
	if s.metrics != nil {
		s.metrics.CachePurges.Inc()
	}
	return nil
}

// Invalidate drops every cached pair involving id. The next refresh
// recomputes from scratch.
func (s *Service) Invalidate(ctx context.Context, id domain.SubjectID) error {
	if err := s.cache.DeleteForSubject(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "invalidate similarity cache")
	}
	if s.metrics != nil {
		s.metrics.CachePurges.Inc()
	}
	return nil
}
