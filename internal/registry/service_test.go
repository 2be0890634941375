package registry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	return NewService(store, slog.Default(), opts...), store
}

func TestIssueReturnsEightDigitID(t *testing.T) {
	svc, _ := newTestService(t)

	id, err := svc.Issue(context.Background())
	require.NoError(t, err)

	parsed, err := domain.ParseSubjectID(string(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestIssueRetriesOnCollision(t *testing.T) {
	tokens := []domain.SubjectID{"11111111", "11111111", "22222222"}
	var calls int
	svc, _ := newTestService(t, WithTokenSource(func() domain.SubjectID {
		id := tokens[calls]
		calls++
		return id
	}))

	ctx := context.Background()
	first, err := svc.Issue(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectID("11111111"), first)

	second, err := svc.Issue(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectID("22222222"), second)
	assert.Equal(t, 3, calls)
}

func TestIssueGivesUpAfterThreeCollisions(t *testing.T) {
	svc, _ := newTestService(t, WithTokenSource(func() domain.SubjectID {
		return "33333333"
	}))

	ctx := context.Background()
	_, err := svc.Issue(ctx)
	require.NoError(t, err)

	_, err = svc.Issue(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "44444444"))

	err := svc.Register(ctx, "44444444")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestResolveFollowsRedirectChain(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []domain.SubjectID{"10000001", "10000002", "10000003"} {
		require.NoError(t, svc.Register(ctx, id))
	}
	require.NoError(t, svc.Redirect(ctx, "10000001", "10000002"))
	require.NoError(t, svc.Redirect(ctx, "10000002", "10000003"))

	got, err := svc.Resolve(ctx, "10000001")
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectID("10000003"), got)

	live, err := svc.IsLive(ctx, "10000001")
	require.NoError(t, err)
	assert.False(t, live)

	live, err = svc.IsLive(ctx, "10000003")
	require.NoError(t, err)
	assert.True(t, live)
}

func TestResolveUnknownIDReturnsItself(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.Resolve(context.Background(), "99999999")
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectID("99999999"), got)
}

func TestResolveTruncatesMalformedCycle(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "20000001"))
	require.NoError(t, svc.Register(ctx, "20000002"))

	// Corrupt the store directly; the service API refuses to build cycles.
	a, b := domain.SubjectID("20000001"), domain.SubjectID("20000002")
	require.NoError(t, store.SetRedirect(ctx, a, &b))
	require.NoError(t, store.SetRedirect(ctx, b, &a))

	got, err := svc.Resolve(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestRedirectToSelfRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "50000001"))

	err := svc.Redirect(ctx, "50000001", "50000001")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestClearRedirectRevivesID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "60000001"))
	require.NoError(t, svc.Register(ctx, "60000002"))
	require.NoError(t, svc.Redirect(ctx, "60000001", "60000002"))
	require.NoError(t, svc.ClearRedirect(ctx, "60000001"))

	got, err := svc.Resolve(ctx, "60000001")
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectID("60000001"), got)
}
