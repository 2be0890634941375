package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioport/internal/registry"
	"bioport/internal/subject"
	"bioport/internal/witness"
	"bioport/pkg/domain"
	"bioport/pkg/platform/tx"
)

type fixture struct {
	cache     *InMemoryStore
	subjects  *subject.InMemoryStore
	witnesses *witness.InMemoryStore
	registry  *registry.Service
	svc       *Service
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cache:     NewInMemoryStore(),
		subjects:  subject.NewInMemoryStore(),
		witnesses: witness.NewInMemoryStore(),
		ctx:       context.Background(),
	}
	f.registry = registry.NewService(registry.NewInMemoryStore(), slog.Default())
	f.svc = NewService(f.cache, f.subjects, f.witnesses, f.registry,
		tx.NewMemoryRunner(), slog.Default(), Config{})
	return f
}

func (f *fixture) addSubject(t *testing.T, id, name, sex string) domain.SubjectID {
	t.Helper()
	subjectID := domain.SubjectID(id)
	require.NoError(t, f.registry.Register(f.ctx, subjectID))
	require.NoError(t, f.subjects.Upsert(f.ctx, *makeSubject(id, name, sex)))
	return subjectID
}

func TestRefreshCachesSimilarPair(t *testing.T) {
	f := newFixture(t)
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")
	b := f.addSubject(t, "10000002", "Jan de Fries", "m")

	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	matches, err := f.svc.TopSimilar(f.ctx, Query{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, a, matches[0].A.ID)
	assert.Equal(t, b, matches[0].B.ID)
	assert.Greater(t, matches[0].Score, 0.70)
}

func TestRefreshWritesSelfMarker(t *testing.T) {
	f := newFixture(t)
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")

	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	done, err := f.cache.HasComputed(f.ctx, a)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRefreshSkipsAlreadyComputed(t *testing.T) {
	f := newFixture(t)
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")
	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	// A near-identical subject arrives later; without force the old
	// marker short-circuits the refresh.
	f.addSubject(t, "10000002", "Jan de Vries", "m")
	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	matches, err := f.svc.TopSimilar(f.ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, f.svc.Refresh(f.ctx, a, true))
	matches, err = f.svc.TopSimilar(f.ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRefreshExcludesAntiIdentifiedPair(t *testing.T) {
	f := newFixture(t)
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")
	b := f.addSubject(t, "10000002", "Jan de Vries", "m")
	require.NoError(t, f.witnesses.Add(f.ctx, domain.PairOf(a, b), witness.KindAnti))

	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	matches, err := f.svc.TopSimilar(f.ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRefreshExcludesIneligibleStatus(t *testing.T) {
	f := newFixture(t)
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")

	messy := makeSubject("10000002", "Jan de Vries", "m")
	messy.Status = subject.StatusMessy
	require.NoError(t, f.registry.Register(f.ctx, messy.ID))
	require.NoError(t, f.subjects.Upsert(f.ctx, *messy))

	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	matches, err := f.svc.TopSimilar(f.ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRefreshExcludesRetiredID(t *testing.T) {
	f := newFixture(t)
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")
	b := f.addSubject(t, "10000002", "Jan de Vries", "m")
	c := f.addSubject(t, "10000003", "Pieter Bakker", "m")
	require.NoError(t, f.registry.Redirect(f.ctx, b, c))

	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	matches, err := f.svc.TopSimilar(f.ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRefreshCapsAtTopK(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.TopK = 3

	a := f.addSubject(t, "10000001", "Jan de Vries", "m")
	for i := 0; i < 6; i++ {
		f.addSubject(t, fmt.Sprintf("2000000%d", i), "Jan de Vries", "m")
	}

	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	matches, err := f.svc.TopSimilar(f.ctx, Query{SubjectID: a})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestRefreshTopKCutIsDeterministic(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.TopK = 2

	// Identical candidates score identically, so only the id order can
	// decide who survives the cut.
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")
	for i := 0; i < 5; i++ {
		f.addSubject(t, fmt.Sprintf("2000000%d", i), "Jan de Vries", "m")
	}

	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	matches, err := f.svc.TopSimilar(f.ctx, Query{SubjectID: a})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, domain.SubjectID("20000000"), matches[0].B.ID)
	assert.Equal(t, domain.SubjectID("20000001"), matches[1].B.ID)
}

func TestPutKeepsHigherScore(t *testing.T) {
	f := newFixture(t)
	pair := domain.PairOf("10000001", "10000002")

	require.NoError(t, f.cache.Put(f.ctx, Entry{Pair: pair, Score: 0.9}))
	require.NoError(t, f.cache.Put(f.ctx, Entry{Pair: pair, Score: 0.8}))

	entries, err := f.cache.Top(f.ctx, TopFilter{MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 0.9, entries[0].Score)
}

func TestInvalidatePurgesSubjectPairs(t *testing.T) {
	f := newFixture(t)
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")
	f.addSubject(t, "10000002", "Jan de Vries", "m")
	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	require.NoError(t, f.svc.Invalidate(f.ctx, a))

	matches, err := f.svc.TopSimilar(f.ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, matches)

	done, err := f.cache.HasComputed(f.ctx, a)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestTopSimilarFiltersBySex(t *testing.T) {
	f := newFixture(t)
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")
	f.addSubject(t, "10000002", "Jan de Vries", "")
	require.NoError(t, f.svc.Refresh(f.ctx, a, false))

	matches, err := f.svc.TopSimilar(f.ctx, Query{Sex: "m"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = f.svc.TopSimilar(f.ctx, Query{Sex: "f"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRefreshAll(t *testing.T) {
	f := newFixture(t)
	a := f.addSubject(t, "10000001", "Jan de Vries", "m")
	b := f.addSubject(t, "10000002", "Jan de Fries", "m")

	require.NoError(t, f.svc.RefreshAll(f.ctx, "", false))

	for _, id := range []domain.SubjectID{a, b} {
		done, err := f.cache.HasComputed(f.ctx, id)
		require.NoError(t, err)
		assert.True(t, done, "subject %s should carry its marker", id)
	}
}
