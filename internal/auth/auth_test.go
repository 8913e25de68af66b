package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applymail/applymail/internal/models"
)

func testUser() *models.UserAccount {
	return &models.UserAccount{
		ID:      "u1",
		Email:   "jane@example.com",
		Name:    "Jane Doe",
		Picture: "https://pic.example/jane.png",
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := NewTokenManager("test-secret")

	token, err := m.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.ID)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "Jane Doe", claims.Name)
}

func TestTokenManager_WrongSecretRejected(t *testing.T) {
	token, err := NewTokenManager("secret-a").Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestTokenManager_GarbageRejected(t *testing.T) {
	_, err := NewTokenManager("test-secret").Verify("not.a.jwt")
	assert.Error(t, err)
}

func TestMiddleware_MissingTokenIs401(t *testing.T) {
	m := NewTokenManager("test-secret")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached without a token")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "access token required")
}

func TestMiddleware_InvalidTokenIs403(t *testing.T) {
	m := NewTokenManager("test-secret")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached with an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestMiddleware_ClaimsReachHandler(t *testing.T) {
	m := NewTokenManager("test-secret")
	token, err := m.Issue(testUser())
	require.NoError(t, err)

	var got *Claims
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		got = claims
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "jane@example.com", got.Email)
}
