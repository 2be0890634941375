package source

import (
	"context"
	"errors"
	"log/slog"

	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
	"bioport/pkg/platform/sentinel"
)

// Service exposes source registration. The editorial pseudo-source is
// always present and cannot be deleted.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// EnsureEditorial registers the built-in editorial source if missing.
// Called at startup. Editorial documents never participate in trust
// selection, so its quality is irrelevant; zero keeps it last.
func (s *Service) EnsureEditorial(ctx context.Context) error {
	_, err := s.store.Get(ctx, domain.EditorialSourceID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "look up editorial source")
	}
	editorial := Source{
		ID:            domain.EditorialSourceID,
		Description:   "curator-authored biographical notes",
		DefaultStatus: 1,
	}
	if err := s.store.Upsert(ctx, editorial); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "register editorial source")
	}
	s.logger.InfoContext(ctx, "registered editorial source", "source_id", editorial.ID)
	return nil
}

// Register inserts or updates a source.
func (s *Service) Register(ctx context.Context, src Source) error {
	if src.ID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "source id is required")
	}
	if src.DefaultStatus == 0 {
		src.DefaultStatus = 1
	}
	if err := s.store.Upsert(ctx, src); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "register source")
	}
	return nil
}

// Get returns one source.
func (s *Service) Get(ctx context.Context, id string) (*Source, error) {
	src, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "source %s not registered", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get source")
	}
	return src, nil
}

// List returns all registered sources.
func (s *Service) List(ctx context.Context) ([]Source, error) {
	out, err := s.store.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list sources")
	}
	return out, nil
}

// Unregister removes a source registration. The documents harvested
// from it are not touched here; the ingest service owns that cascade.
func (s *Service) Unregister(ctx context.Context, id string) error {
	if id == domain.EditorialSourceID {
		return dErrors.New(dErrors.CodeInvariantViolation, "editorial source cannot be removed")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "unregister source")
	}
	return nil
}

// Quality returns the source quality, zero for unknown sources so
// callers ranking trust need no special case.
func (s *Service) Quality(ctx context.Context, id string) (int, error) {
	src, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, nil
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "get source quality")
	}
	return src.Quality, nil
}
