package editortoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bioport/pkg/domain-errors"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService("test-key", "bioport")

	token, err := svc.Issue("j.doe", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "j.doe", claims.Editor)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-key", "bioport")

	token, err := svc.Issue("j.doe", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewService("key-one", "bioport").Issue("j.doe", time.Hour)
	require.NoError(t, err)

	_, err = NewService("key-two", "bioport").ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestIssueRequiresEditor(t *testing.T) {
	_, err := NewService("test-key", "bioport").Issue("", time.Hour)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
