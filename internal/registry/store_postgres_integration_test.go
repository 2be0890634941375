//go:build integration

package registry_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"bioport/internal/registry"
	"bioport/pkg/domain"
	"bioport/pkg/platform/sentinel"
	"bioport/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *registry.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = registry.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "identifiers"))
}

// TestConcurrentInsertSameID verifies that concurrent registrations of
// one identifier yield exactly one success. The issue loop depends on
// the database rejecting the rest.
func (s *PostgresStoreSuite) TestConcurrentInsertSameID() {
	ctx := context.Background()
	id := domain.SubjectID("41112223")
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Insert(ctx, id)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one insert should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestRedirectRoundtrip() {
	ctx := context.Background()
	a, b := domain.SubjectID("10000001"), domain.SubjectID("10000002")
	s.Require().NoError(s.store.Insert(ctx, a))
	s.Require().NoError(s.store.Insert(ctx, b))

	s.Require().NoError(s.store.SetRedirect(ctx, a, &b))
	rec, err := s.store.Get(ctx, a)
	s.Require().NoError(err)
	s.Require().True(rec.Retired())
	s.Equal(b, *rec.RedirectTo)

	s.Require().NoError(s.store.SetRedirect(ctx, a, nil))
	rec, err = s.store.Get(ctx, a)
	s.Require().NoError(err)
	s.False(rec.Retired())
}

func (s *PostgresStoreSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), "99999999")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestAllListsLiveAndRetired() {
	ctx := context.Background()
	a, b := domain.SubjectID("10000001"), domain.SubjectID("10000002")
	s.Require().NoError(s.store.Insert(ctx, a))
	s.Require().NoError(s.store.Insert(ctx, b))
	s.Require().NoError(s.store.SetRedirect(ctx, b, &a))

	records, err := s.store.All(ctx)
	s.Require().NoError(err)
	s.Len(records, 2)
}
