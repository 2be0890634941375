package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bioport/pkg/domain-errors"
)

func TestParseSubjectID(t *testing.T) {
	t.Run("accepts an 8 digit token", func(t *testing.T) {
		id, err := ParseSubjectID("04231871")
		require.NoError(t, err)
		assert.Equal(t, SubjectID("04231871"), id)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		for _, s := range []string{"", "1234567", "123456789"} {
			_, err := ParseSubjectID(s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), s)
		}
	})

	t.Run("rejects non-digits", func(t *testing.T) {
		_, err := ParseSubjectID("1234567a")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestPairOfCanonicalizes(t *testing.T) {
	a, b := SubjectID("10000002"), SubjectID("10000001")
	p := PairOf(a, b)
	assert.Equal(t, b, p.Low)
	assert.Equal(t, a, p.High)
	assert.Equal(t, p, PairOf(b, a))
	assert.False(t, p.IsSelf())
	assert.True(t, p.Contains(a))
	assert.False(t, p.Contains(SubjectID("10000003")))
}

func TestPairSelf(t *testing.T) {
	p := PairOf("10000001", "10000001")
	assert.True(t, p.IsSelf())
}

func TestParseDocumentKey(t *testing.T) {
	t.Run("splits on the first slash", func(t *testing.T) {
		key, err := ParseDocumentKey("vdaa/w0269/a")
		require.NoError(t, err)
		assert.Equal(t, "vdaa", key.SourceID)
		assert.Equal(t, "w0269/a", key.LocalID)
	})

	t.Run("rejects missing parts", func(t *testing.T) {
		for _, s := range []string{"", "vdaa", "vdaa/", "/w0269"} {
			_, err := ParseDocumentKey(s)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), s)
		}
	})
}

func TestEditorialKey(t *testing.T) {
	key := EditorialKey("04231871")
	assert.True(t, key.IsEditorial())
	assert.Equal(t, "04231871", key.LocalID)
}
