package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuminh/blogapi/backend/internal/models"
)

var testUser = &models.User{
	ID:    "5c9b8f1e-0000-4000-8000-000000000001",
	Email: "author@example.com",
	Name:  "Author",
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	signed, err := tokens.Issue(testUser)
	require.NoError(t, err)

	id, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, id.ID)
	assert.Equal(t, testUser.Email, id.Email)
	assert.Equal(t, testUser.Name, id.Name)
	assert.NotEmpty(t, id.TokenID, "every token carries a jti")
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a", time.Hour).Issue(testUser)
	require.NoError(t, err)

	_, err = NewTokens("secret-b", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := tokens.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	tokens := NewTokens("test-secret", -time.Minute)

	signed, err := tokens.Issue(testUser)
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTampered(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	signed, err := tokens.Issue(testUser)
	require.NoError(t, err)

	tampered := signed[:len(signed)-2] + "xx"
	_, err = tokens.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
