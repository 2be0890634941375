package registry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"

	"bioport/internal/platform/metrics"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
	"bioport/pkg/platform/sentinel"
)

// issueAttempts bounds how often Issue retries after a token collision.
// The collision probability and the bound are load-bearing, tested
// behavior; do not widen without revisiting the id length.
const issueAttempts = 3

// Service owns identifier issuance and redirect resolution.
type Service struct {
	store    Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	newToken func() domain.SubjectID
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics wires collision counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTokenSource overrides token generation; tests use it to force
// collisions deterministically.
func WithTokenSource(fn func() domain.SubjectID) Option {
	return func(s *Service) { s.newToken = fn }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   logger,
		newToken: randomToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomToken() domain.SubjectID {
	buf := make([]byte, domain.SubjectIDLength)
	for i := range buf {
		buf[i] = byte('0' + rand.IntN(10))
	}
	return domain.SubjectID(buf)
}

// Issue mints a fresh identifier and registers it. A collision with an
// already-issued id (live or retired) triggers a retry; exhausting the
// retry bound is fatal for the calling operation.
func (s *Service) Issue(ctx context.Context) (domain.SubjectID, error) {
	for i := 0; i < issueAttempts; i++ {
		id := s.newToken()
		err := s.store.Insert(ctx, id)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			if s.metrics != nil {
				s.metrics.IdentifierRetries.Inc()
			}
			s.logger.WarnContext(ctx, "identifier collision, retrying", "id", id, "attempt", i+1)
			continue
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "register fresh identifier")
	}
	return "", dErrors.Newf(dErrors.CodeUnavailable, "identifier space exhausted after %d attempts", issueAttempts)
}

// Register records an externally supplied identifier as active.
func (s *Service) Register(ctx context.Context, id domain.SubjectID) error {
	if err := s.store.Insert(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeConflict, "identifier %s already registered", id)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "register identifier")
	}
	return nil
}

// Exists reports whether the id has ever been issued.
func (s *Service) Exists(ctx context.Context, id domain.SubjectID) (bool, error) {
	_, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "look up identifier")
	}
	return true, nil
}

// Redirect retires `from` in favor of `to`. Documents under `from` are
// considered to belong to `to` from this point; resolution is lazy, so
// the call is O(1). Redirecting an id to itself is rejected: that is
// the one-step cycle the forest invariant forbids.
func (s *Service) Redirect(ctx context.Context, from, to domain.SubjectID) error {
	if from == to {
		return dErrors.New(dErrors.CodeInvariantViolation, "identifier cannot redirect to itself")
	}
	if err := s.store.SetRedirect(ctx, from, &to); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "identifier %s not registered", from)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "set redirect")
	}
	return nil
}

// ClearRedirect revives a retired id; used when a document is
// re-attached directly to an identifier that was merged away before.
func (s *Service) ClearRedirect(ctx context.Context, id domain.SubjectID) error {
	if err := s.store.SetRedirect(ctx, id, nil); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "identifier %s not registered", id)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "clear redirect")
	}
	return nil
}

// Resolve follows redirect edges to the terminal live id. Unknown ids
// resolve to themselves so callers can treat never-registered ids as
// live. A malformed cycle (never constructible through the public API)
// is truncated at the first repeat: the last distinct id seen is
// returned and a warning logged, the caller is not crashed.
func (s *Service) Resolve(ctx context.Context, id domain.SubjectID) (domain.SubjectID, error) {
	current := id
	seen := map[domain.SubjectID]bool{current: true}
	for {
		rec, err := s.store.Get(ctx, current)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return current, nil
			}
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "resolve identifier")
		}
		if rec.RedirectTo == nil {
			return current, nil
		}
		next := *rec.RedirectTo
		if seen[next] {
			s.logger.WarnContext(ctx, "malformed redirect cycle detected",
				"start", id, "truncated_at", current)
			return current, nil
		}
		seen[next] = true
		current = next
	}
}

// IsLive reports whether the id resolves to itself.
func (s *Service) IsLive(ctx context.Context, id domain.SubjectID) (bool, error) {
	resolved, err := s.Resolve(ctx, id)
	if err != nil {
		return false, err
	}
	return resolved == id, nil
}
