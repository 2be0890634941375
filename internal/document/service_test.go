package document

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioport/pkg/domain"
	dErrors "bioport/pkg/domain-errors"
	"bioport/pkg/platform/tx"
	"bioport/pkg/requestcontext"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewInMemoryStore(), tx.NewMemoryRunner(), slog.Default())
}

func editorContext(editor string) context.Context {
	ctx := requestcontext.WithEditor(context.Background(), editor)
	return requestcontext.WithTime(ctx, time.Date(2010, 6, 1, 12, 0, 0, 0, time.UTC))
}

func testDoc(localID string, payload string) Document {
	return Document{
		Key:       domain.DocumentKey{SourceID: "knaw", LocalID: localID},
		SubjectID: "12345678",
		Details:   Details{Names: []string{"Jan de Vries"}, Sex: "m"},
		Payload:   payload,
	}
}

func TestSaveAssignsEditorAndTimestamp(t *testing.T) {
	svc := newTestService(t)
	ctx := editorContext("annotator")

	saved, err := svc.Save(ctx, testDoc("001", "v1"))
	require.NoError(t, err)

	assert.Equal(t, "annotator", saved.Author)
	assert.Equal(t, time.Date(2010, 6, 1, 12, 0, 0, 0, time.UTC), saved.SavedAt)
	assert.Equal(t, domain.SubjectID("12345678"), saved.OriginalSubjectID)
}

func TestSaveShiftsVersions(t *testing.T) {
	svc := newTestService(t)
	ctx := editorContext("annotator")
	key := domain.DocumentKey{SourceID: "knaw", LocalID: "001"}

	for _, payload := range []string{"v1", "v2", "v3"} {
		_, err := svc.Save(ctx, testDoc("001", payload))
		require.NoError(t, err)
	}

	current, err := svc.Current(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v3", current.Payload)
	assert.Equal(t, 0, current.Version)

	history, err := svc.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"v3", "v2", "v1"},
		[]string{history[0].Payload, history[1].Payload, history[2].Payload})
	for i, rev := range history {
		assert.Equal(t, i, rev.Version)
	}
}

func TestSavePreservesOriginalSubject(t *testing.T) {
	svc := newTestService(t)
	ctx := editorContext("annotator")
	key := domain.DocumentKey{SourceID: "knaw", LocalID: "001"}

	_, err := svc.Save(ctx, testDoc("001", "v1"))
	require.NoError(t, err)

	// Reattach to another subject; the originally recorded id sticks.
	moved := testDoc("001", "v2")
	moved.SubjectID = "87654321"
	_, err = svc.Save(ctx, moved)
	require.NoError(t, err)

	current, err := svc.Current(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectID("87654321"), current.SubjectID)
	assert.Equal(t, domain.SubjectID("12345678"), current.OriginalSubjectID)
}

func TestUndoRestoresPreviousRevision(t *testing.T) {
	svc := newTestService(t)
	ctx := editorContext("annotator")
	key := domain.DocumentKey{SourceID: "knaw", LocalID: "001"}

	_, err := svc.Save(ctx, testDoc("001", "v1"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, testDoc("001", "v2"))
	require.NoError(t, err)

	restored, err := svc.Undo(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "v1", restored.Payload)

	current, err := svc.Current(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v1", current.Payload)

	history, err := svc.History(ctx, key)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestUndoWithoutEarlierVersion(t *testing.T) {
	svc := newTestService(t)
	ctx := editorContext("annotator")
	key := domain.DocumentKey{SourceID: "knaw", LocalID: "001"}

	_, err := svc.Save(ctx, testDoc("001", "v1"))
	require.NoError(t, err)

	_, err = svc.Undo(ctx, key, 0)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestListFiltersCurrentRevisions(t *testing.T) {
	svc := newTestService(t)
	ctx := editorContext("annotator")

	_, err := svc.Save(ctx, testDoc("001", "v1"))
	require.NoError(t, err)
	other := testDoc("002", "v1")
	other.SubjectID = "87654321"
	_, err = svc.Save(ctx, other)
	require.NoError(t, err)

	docs, err := svc.List(ctx, Filter{SubjectID: "87654321"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "002", docs[0].Key.LocalID)

	docs, err = svc.List(ctx, Filter{SourceID: "knaw"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestListTimeRangeAndLimit(t *testing.T) {
	svc := newTestService(t)
	day := func(d int) context.Context {
		ctx := requestcontext.WithEditor(context.Background(), "annotator")
		return requestcontext.WithTime(ctx, time.Date(2010, 6, d, 12, 0, 0, 0, time.UTC))
	}
	for i, local := range []string{"001", "002", "003"} {
		_, err := svc.Save(day(i+1), testDoc(local, "v1"))
		require.NoError(t, err)
	}

	docs, err := svc.List(context.Background(), Filter{
		SavedSince: time.Date(2010, 6, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = svc.List(context.Background(), Filter{
		SavedUntil: time.Date(2010, 6, 1, 23, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "001", docs[0].Key.LocalID)

	docs, err = svc.List(context.Background(), Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestListAllVersionsSearchesHistory(t *testing.T) {
	svc := newTestService(t)
	save := func(editor, local, payload string, d int) {
		t.Helper()
		ctx := requestcontext.WithEditor(context.Background(), editor)
		ctx = requestcontext.WithTime(ctx, time.Date(2010, 6, d, 12, 0, 0, 0, time.UTC))
		doc := testDoc(local, payload)
		doc.Author = editor
		_, err := svc.Save(ctx, doc)
		require.NoError(t, err)
	}
	save("annotator", "001", "v1", 1)
	save("reviser", "001", "v2", 2)
	save("annotator", "002", "v1", 3)

	// The superseded revision of 001 is reachable by its author even
	// though a later save buried it.
	docs, err := svc.List(context.Background(), Filter{Author: "annotator", AllVersions: true})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "001", docs[0].Key.LocalID)
	assert.Equal(t, 1, docs[0].Version)
	assert.Equal(t, "002", docs[1].Key.LocalID)

	// Without the flag the same author filter only sees current
	// revisions.
	docs, err = svc.List(context.Background(), Filter{Author: "annotator"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "002", docs[0].Key.LocalID)

	// Time range applies per revision.
	docs, err = svc.List(context.Background(), Filter{
		AllVersions: true,
		SavedUntil:  time.Date(2010, 6, 1, 23, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "v1", docs[0].Payload)

	docs, err = svc.List(context.Background(), Filter{AllVersions: true, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"v1", "v2", "v1"},
		[]string{docs[0].Payload, docs[1].Payload, docs[2].Payload})
	assert.Equal(t, "002", docs[0].Key.LocalID)
}

func TestSaveNormalizesNames(t *testing.T) {
	svc := newTestService(t)
	ctx := editorContext("annotator")

	doc := testDoc("001", "v1")
	doc.Details.Names = []string{"  Jan de Vries ", "Jan de Vries", "", "Johannes de Vries"}
	saved, err := svc.Save(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Jan de Vries", "Johannes de Vries"}, saved.Details.Names)
}

func TestSaveRequiresKeyAndSubject(t *testing.T) {
	svc := newTestService(t)
	ctx := editorContext("annotator")

	doc := testDoc("001", "v1")
	doc.Key.LocalID = ""
	_, err := svc.Save(ctx, doc)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	doc = testDoc("001", "v1")
	doc.SubjectID = ""
	_, err = svc.Save(ctx, doc)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
