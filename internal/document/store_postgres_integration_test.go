//go:build integration

package document_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bioport/internal/document"
	"bioport/pkg/domain"
	"bioport/pkg/platform/sentinel"
	"bioport/pkg/platform/tx"
	"bioport/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *document.PostgresStore
	runner   tx.Runner
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
	s.store = document.NewPostgres(s.postgres.DB)
	s.runner = tx.NewSQLRunner(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "documents"))
}

func (s *PostgresStoreSuite) save(doc document.Document) {
	err := s.runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return s.store.Save(ctx, doc)
	})
	s.Require().NoError(err)
}

func testDoc(local string, names ...string) document.Document {
	return document.Document{
		Key:               domain.DocumentKey{SourceID: "knaw", LocalID: local},
		SubjectID:         "10000001",
		OriginalSubjectID: "10000001",
		Details:           document.Details{Names: names},
		Author:            "j.doe",
		SavedAt:           time.Now().UTC().Truncate(time.Second),
	}
}

// TestVersionShift verifies the primary-key safe shift: after n saves
// the revisions are 0..n-1 with version zero the newest.
func (s *PostgresStoreSuite) TestVersionShift() {
	ctx := context.Background()
	const saves = 5
	for i := 0; i < saves; i++ {
		s.save(testDoc("p1", fmt.Sprintf("Jan de Vries %d", i)))
	}

	revisions, err := s.store.Versions(ctx, domain.DocumentKey{SourceID: "knaw", LocalID: "p1"})
	s.Require().NoError(err)
	s.Require().Len(revisions, saves)
	for i, rev := range revisions {
		s.Equal(i, rev.Version)
	}
	s.Equal([]string{"Jan de Vries 4"}, revisions[0].Details.Names)
	s.Equal([]string{"Jan de Vries 0"}, revisions[saves-1].Details.Names)
}

func (s *PostgresStoreSuite) TestCurrentAndGet() {
	ctx := context.Background()
	s.save(testDoc("p1", "Jan de Vries"))
	s.save(testDoc("p1", "Johannes de Vries"))

	key := domain.DocumentKey{SourceID: "knaw", LocalID: "p1"}
	current, err := s.store.Current(ctx, key)
	s.Require().NoError(err)
	s.Equal([]string{"Johannes de Vries"}, current.Details.Names)

	old, err := s.store.Get(ctx, key, 1)
	s.Require().NoError(err)
	s.Equal([]string{"Jan de Vries"}, old.Details.Names)

	_, err = s.store.Get(ctx, key, 2)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestDeleteRemovesAllRevisions() {
	ctx := context.Background()
	s.save(testDoc("p1", "Jan de Vries"))
	s.save(testDoc("p1", "Johannes de Vries"))

	key := domain.DocumentKey{SourceID: "knaw", LocalID: "p1"}
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, key)
	})
	s.Require().NoError(err)

	revisions, err := s.store.Versions(ctx, key)
	s.Require().NoError(err)
	s.Empty(revisions)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()
	s.save(testDoc("p1", "Jan de Vries"))
	other := testDoc("p2", "Piet Bakker")
	other.SubjectID = "10000002"
	other.Author = "a.curator"
	s.save(other)

	docs, err := s.store.List(ctx, document.Filter{SubjectID: "10000002"})
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal("p2", docs[0].Key.LocalID)

	docs, err = s.store.List(ctx, document.Filter{Author: "j.doe"})
	s.Require().NoError(err)
	s.Require().Len(docs, 1)
	s.Equal("p1", docs[0].Key.LocalID)
}
