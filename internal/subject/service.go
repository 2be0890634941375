package subject

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"bioport/internal/document"
	"bioport/internal/naming"
	"bioport/internal/source"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
	"bioport/pkg/platform/sentinel"
	"bioport/pkg/platform/tx"
	"bioport/pkg/requestcontext"
)

// Service rebuilds and serves subject aggregates.
type Service struct {
	store     Store
	documents document.Store
	sources   source.Store
	runner    tx.Runner
	logger    *slog.Logger
}

func NewService(store Store, documents document.Store, sources source.Store, runner tx.Runner, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		documents: documents,
		sources:   sources,
		runner:    runner,
		logger:    logger,
	}
}

// Get returns one aggregate.
func (s *Service) Get(ctx context.Context, id domain.SubjectID) (*Subject, error) {
	subj, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "subject %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "get subject")
	}
	return subj, nil
}

// List returns aggregates matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Subject, error) {
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list subjects")
	}
	return out, nil
}

// SetStatus updates the editorial status of a subject.
func (s *Service) SetStatus(ctx context.Context, id domain.SubjectID, status int) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		subj, err := s.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "subject %s not found", id)
			}
			return fmt.Errorf("load subject: %w", err)
		}
		subj.Status = status
		subj.UpdatedAt = requestcontext.Now(ctx)
		return s.store.Upsert(ctx, *subj)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "set subject status")
	}
	return nil
}

// Rebuild recomputes the aggregate for id from its current documents.
// A subject left without documents is removed. The existing editorial
// status survives the rebuild; a brand new subject takes the default
// status of its best source.
func (s *Service) Rebuild(ctx context.Context, id domain.SubjectID) error {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		docs, err := s.documents.List(ctx, document.Filter{SubjectID: id})
		if err != nil {
			return fmt.Errorf("load subject documents: %w", err)
		}
		if len(docs) == 0 {
			return s.store.Delete(ctx, id)
		}

		ordered, qualities, err := s.orderByPrecedence(ctx, docs)
		if err != nil {
			return err
		}
		subj := mergeDocuments(id, ordered)
		subj.UpdatedAt = requestcontext.Now(ctx)

		existing, err := s.store.Get(ctx, id)
		switch {
		case err == nil:
			subj.Status = existing.Status
		case errors.Is(err, sentinel.ErrNotFound):
			subj.Status = s.defaultStatus(ctx, ordered, qualities)
		default:
			return fmt.Errorf("load existing subject: %w", err)
		}
		return s.store.Upsert(ctx, subj)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rebuild subject")
	}
	return nil
}

// orderByPrecedence sorts documents editorial-first, then by source
// quality descending. Curator-authored documents always win a field
// conflict against harvested ones.
func (s *Service) orderByPrecedence(ctx context.Context, docs []document.Document) ([]document.Document, map[string]int, error) {
	qualities := make(map[string]int)
	for _, doc := range docs {
		sourceID := doc.Key.SourceID
		if _, seen := qualities[sourceID]; seen {
			continue
		}
		src, err := s.sources.Get(ctx, sourceID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				qualities[sourceID] = 0
				continue
			}
			return nil, nil, fmt.Errorf("load source %s: %w", sourceID, err)
		}
		qualities[sourceID] = src.Quality
	}

	ordered := append([]document.Document(nil), docs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ei, ej := ordered[i].IsEditorial(), ordered[j].IsEditorial()
		if ei != ej {
			return ei
		}
		return qualities[ordered[i].Key.SourceID] > qualities[ordered[j].Key.SourceID]
	})
	return ordered, qualities, nil
}

func (s *Service) defaultStatus(ctx context.Context, ordered []document.Document, qualities map[string]int) int {
	for _, doc := range ordered {
		if doc.IsEditorial() {
			continue
		}
		src, err := s.sources.Get(ctx, doc.Key.SourceID)
		if err != nil {
			break
		}
		if src.DefaultStatus != 0 {
			return src.DefaultStatus
		}
	}
	return StatusNew
}

// mergeDocuments folds the ordered documents into one aggregate:
// first non-empty value wins per field, names accumulate in
// precedence order.
func mergeDocuments(id domain.SubjectID, ordered []document.Document) Subject {
	subj := Subject{ID: id}
	var names []string
	seenNames := make(map[string]bool)
	seenSources := make(map[string]bool)

	take := func(dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
		}
	}
	for _, doc := range ordered {
		for _, name := range doc.Details.Names {
			folded := naming.Fold(name)
			if folded == "" || seenNames[folded] {
				continue
			}
			seenNames[folded] = true
			names = append(names, name)
		}
		take(&subj.Sex, doc.Details.Sex)
		take(&subj.BirthMin, doc.Details.BirthMin)
		take(&subj.BirthMax, doc.Details.BirthMax)
		take(&subj.DeathMin, doc.Details.DeathMin)
		take(&subj.DeathMax, doc.Details.DeathMax)
		take(&subj.BirthPlace, doc.Details.BirthPlace)
		take(&subj.DeathPlace, doc.Details.DeathPlace)
		if !seenSources[doc.Key.SourceID] {
			seenSources[doc.Key.SourceID] = true
			subj.Sources = append(subj.Sources, doc.Key.SourceID)
		}
	}
	sort.Strings(subj.Sources)

	if len(names) > 0 {
		subj.DisplayName = names[0]
		subj.SortKey = naming.SortKey(names[0])
		subj.FamilyName = naming.FamilyName(names[0])
	}
	subj.NameTokens, subj.PhoneticKeys = deriveTokens(names)
	return subj
}

// deriveTokens flattens every name variant into searchable tokens and
// phonetic keys, flagging the ones that come from family-name parts.
func deriveTokens(names []string) ([]Token, []Token) {
	var tokens, keys []Token
	seenToken := make(map[Token]bool)
	seenKey := make(map[Token]bool)

	for _, name := range names {
		family := make(map[string]bool)
		for _, t := range naming.FamilyNameTokens(name) {
			family[t] = true
		}
		for _, word := range naming.Tokenize(name) {
			fromFamily := family[word] || naming.IsTussenvoegsel(word)
			tok := Token{Value: word, FromFamilyName: fromFamily}
			if !seenToken[tok] {
				seenToken[tok] = true
				tokens = append(tokens, tok)
			}
			if len([]rune(word)) < 2 || naming.IsTussenvoegsel(word) {
				continue
			}
			key := Token{Value: naming.PhoneticKey(word), FromFamilyName: fromFamily}
			if key.Value == "" || seenKey[key] {
				continue
			}
			seenKey[key] = true
			keys = append(keys, key)
		}
	}
	return tokens, keys
}

// Names returns the merged name variants of a subject, derived from
// its current documents in precedence order.
func (s *Service) Names(ctx context.Context, id domain.SubjectID) ([]string, error) {
	docs, err := s.documents.List(ctx, document.Filter{SubjectID: id})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load subject documents")
	}
	var names []string
	seen := make(map[string]bool)
	for _, doc := range docs {
		for _, name := range doc.Details.Names {
			folded := naming.Fold(strings.TrimSpace(name))
			if folded == "" || seen[folded] {
				continue
			}
			seen[folded] = true
			names = append(names, name)
		}
	}
	return names, nil
}
