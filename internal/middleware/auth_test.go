package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuminh/blogapi/backend/internal/auth"
	"github.com/vuminh/blogapi/backend/internal/models"
)

type stubRevoker struct {
	revoked map[string]bool
}

func (s *stubRevoker) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	s.revoked[tokenID] = true
	return nil
}

func (s *stubRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], nil
}

func issueFor(t *testing.T, tokens *auth.Tokens) string {
	t.Helper()
	signed, err := tokens.Issue(&models.User{ID: "u1", Email: "a@b.com", Name: "An"})
	require.NoError(t, err)
	return signed
}

func TestIdentifyRejectsMissingCredential(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	revoker := &stubRevoker{revoked: make(map[string]bool)}
	called := false
	handler := Identify(tokens, revoker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/posts", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called, "downstream handler must not run")
}

func TestIdentifyRejectsInvalidToken(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	revoker := &stubRevoker{revoked: make(map[string]bool)}
	handler := Identify(tokens, revoker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIdentifyReadsCookieForBrowserClients(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	revoker := &stubRevoker{revoked: make(map[string]bool)}
	var seen *auth.Identity
	handler := Identify(tokens, revoker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.IdentityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: issueFor(t, tokens)})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.ID)
	assert.Equal(t, "a@b.com", seen.Email)
}

func TestIdentifyReadsAuthorizationForNonBrowserClients(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	revoker := &stubRevoker{revoked: make(map[string]bool)}
	var seen *auth.Identity
	handler := Identify(tokens, revoker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.IdentityFrom(r.Context())
	}))

	signed := issueFor(t, tokens)
	for _, header := range []string{signed, "Bearer " + signed} {
		seen = nil
		req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
		req.Header.Set("client", "not-browser")
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "u1", seen.ID)
	}
}

func TestIdentifyIgnoresCookieForNonBrowserClients(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	revoker := &stubRevoker{revoked: make(map[string]bool)}
	handler := Identify(tokens, revoker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// Valid cookie but client signals non-browser with no Authorization header.
	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	req.Header.Set("client", "not-browser")
	req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: issueFor(t, tokens)})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIdentifyRejectsRevokedToken(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	revoker := &stubRevoker{revoked: make(map[string]bool)}
	handler := Identify(tokens, revoker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	signed := issueFor(t, tokens)
	id, err := tokens.Verify(signed)
	require.NoError(t, err)
	require.NoError(t, revoker.Revoke(context.Background(), id.TokenID, time.Hour))

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: signed})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
