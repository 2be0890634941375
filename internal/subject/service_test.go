package subject

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioport/internal/document"
	"bioport/internal/naming"
	"bioport/internal/source"
	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
	"bioport/pkg/platform/tx"
	"bioport/pkg/requestcontext"
)

type fixture struct {
	subjects  *InMemoryStore
	documents *document.InMemoryStore
	sources   *source.InMemoryStore
	svc       *Service
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		subjects:  NewInMemoryStore(),
		documents: document.NewInMemoryStore(),
		sources:   source.NewInMemoryStore(),
	}
	f.svc = NewService(f.subjects, f.documents, f.sources, tx.NewMemoryRunner(), slog.Default())
	f.ctx = requestcontext.WithTime(context.Background(), time.Date(2010, 6, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, f.sources.Upsert(f.ctx, source.Source{ID: "knaw", Quality: 8, DefaultStatus: StatusReviewed}))
	require.NoError(t, f.sources.Upsert(f.ctx, source.Source{ID: "dbnl", Quality: 3, DefaultStatus: StatusNew}))
	require.NoError(t, f.sources.Upsert(f.ctx, source.Source{ID: domain.EditorialSourceID, DefaultStatus: StatusNew}))
	return f
}

func (f *fixture) addDoc(t *testing.T, sourceID, localID string, id domain.SubjectID, details document.Details) {
	t.Helper()
	require.NoError(t, f.documents.Save(f.ctx, document.Document{
		Key:       domain.DocumentKey{SourceID: sourceID, LocalID: localID},
		SubjectID: id,
		Details:   details,
	}))
}

func TestRebuildMergesByQuality(t *testing.T) {
	f := newFixture(t)
	id := domain.SubjectID("12345678")

	f.addDoc(t, "dbnl", "a", id, document.Details{
		Names: []string{"J. de Vries"}, Sex: "m", BirthMin: "1820", BirthMax: "1830",
	})
	f.addDoc(t, "knaw", "b", id, document.Details{
		Names: []string{"Jan de Vries"}, BirthMin: "1821", BirthMax: "1821", BirthPlace: "Leiden",
	})

	require.NoError(t, f.svc.Rebuild(f.ctx, id))

	subj, err := f.svc.Get(f.ctx, id)
	require.NoError(t, err)

	// knaw outranks dbnl, so its values win field conflicts; the sex
	// only dbnl provides still comes through.
	assert.Equal(t, "Jan de Vries", subj.DisplayName)
	assert.Equal(t, "vries, jan de", subj.SortKey)
	assert.Equal(t, "vries", subj.FamilyName)
	assert.Equal(t, "m", subj.Sex)
	assert.Equal(t, "1821", subj.BirthMin)
	assert.Equal(t, "Leiden", subj.BirthPlace)
	assert.Equal(t, []string{"dbnl", "knaw"}, subj.Sources)
	assert.Equal(t, StatusReviewed, subj.Status)
}

func TestRebuildEditorialDocumentWins(t *testing.T) {
	f := newFixture(t)
	id := domain.SubjectID("12345678")

	f.addDoc(t, "knaw", "b", id, document.Details{Names: []string{"Jan de Vries"}, BirthPlace: "Leiden"})
	f.addDoc(t, domain.EditorialSourceID, string(id), id, document.Details{
		Names: []string{"Johannes de Vries"}, BirthPlace: "Amsterdam",
	})

	require.NoError(t, f.svc.Rebuild(f.ctx, id))

	subj, err := f.svc.Get(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Johannes de Vries", subj.DisplayName)
	assert.Equal(t, "Amsterdam", subj.BirthPlace)
}

func TestRebuildPreservesStatus(t *testing.T) {
	f := newFixture(t)
	id := domain.SubjectID("12345678")

	f.addDoc(t, "knaw", "b", id, document.Details{Names: []string{"Jan de Vries"}})
	require.NoError(t, f.svc.Rebuild(f.ctx, id))
	require.NoError(t, f.svc.SetStatus(f.ctx, id, StatusFinished))

	f.addDoc(t, "dbnl", "a", id, document.Details{Names: []string{"J. de Vries"}})
	require.NoError(t, f.svc.Rebuild(f.ctx, id))

	subj, err := f.svc.Get(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, subj.Status)
}

func TestRebuildRemovesOrphan(t *testing.T) {
	f := newFixture(t)
	id := domain.SubjectID("12345678")

	f.addDoc(t, "knaw", "b", id, document.Details{Names: []string{"Jan de Vries"}})
	require.NoError(t, f.svc.Rebuild(f.ctx, id))

	require.NoError(t, f.documents.Delete(f.ctx, domain.DocumentKey{SourceID: "knaw", LocalID: "b"}))
	require.NoError(t, f.svc.Rebuild(f.ctx, id))

	_, err := f.svc.Get(f.ctx, id)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRebuildDerivesPhoneticKeys(t *testing.T) {
	f := newFixture(t)
	id := domain.SubjectID("12345678")

	f.addDoc(t, "knaw", "b", id, document.Details{Names: []string{"Jan de Vries"}})
	require.NoError(t, f.svc.Rebuild(f.ctx, id))

	ids, err := f.subjects.IDsByPhoneticKey(f.ctx, naming.PhoneticKey("Fries"), true)
	require.NoError(t, err)
	assert.Equal(t, []domain.SubjectID{id}, ids)

	// "jan" is a given name, not a family-name key.
	ids, err = f.subjects.IDsByPhoneticKey(f.ctx, naming.PhoneticKey("jan"), true)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	a, b := domain.SubjectID("10000001"), domain.SubjectID("10000002")

	f.addDoc(t, "knaw", "a", a, document.Details{
		Names: []string{"Jan de Vries"}, Sex: "m", BirthMin: "1820", BirthMax: "1822",
	})
	f.addDoc(t, "dbnl", "b", b, document.Details{
		Names: []string{"Anna Bakker"}, Sex: "f", BirthMin: "1871-03",
	})
	require.NoError(t, f.svc.Rebuild(f.ctx, a))
	require.NoError(t, f.svc.Rebuild(f.ctx, b))

	listIDs := func(filter Filter) []domain.SubjectID {
		t.Helper()
		subjects, err := f.svc.List(f.ctx, filter)
		require.NoError(t, err)
		out := make([]domain.SubjectID, 0, len(subjects))
		for _, s := range subjects {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t, []domain.SubjectID{b, a}, listIDs(Filter{}), "sorted by sort key")
	assert.Equal(t, []domain.SubjectID{a}, listIDs(Filter{Sex: "m"}))
	assert.Equal(t, []domain.SubjectID{b}, listIDs(Filter{SourceID: "dbnl"}))
	assert.Equal(t, []domain.SubjectID{a}, listIDs(Filter{NameToken: "vries", FamilyNameOnly: true}))
	assert.Empty(t, listIDs(Filter{NameToken: "jan", FamilyNameOnly: true}))

	// Year ranges match on interval overlap; a single partial date
	// stands in for both bounds.
	assert.Equal(t, []domain.SubjectID{a}, listIDs(Filter{BirthYearMin: 1800, BirthYearMax: 1850}))
	assert.Equal(t, []domain.SubjectID{b}, listIDs(Filter{BirthYearMin: 1871}))
	assert.Empty(t, listIDs(Filter{BirthYearMin: 1823, BirthYearMax: 1870}))
	assert.Empty(t, listIDs(Filter{DeathYearMin: 1800}), "no death dates recorded")

	assert.Equal(t, []domain.SubjectID{a}, listIDs(Filter{Start: 1}))
	assert.Equal(t, []domain.SubjectID{b}, listIDs(Filter{Size: 1}))
}

func TestEligibleForMatching(t *testing.T) {
	subj := Subject{Status: StatusReviewed}
	assert.True(t, subj.EligibleForMatching())

	subj.Status = StatusMessy
	assert.False(t, subj.EligibleForMatching())

	subj.Status = StatusReferenceEntry
	assert.False(t, subj.EligibleForMatching())
}
