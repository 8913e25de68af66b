package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

var claimsKey = contextKey{}

// ContextWithClaims returns a context carrying the given claims, as the
// middleware would produce.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the verified claims placed by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// Middleware enforces bearer authentication: 401 when the header is missing,
// 403 when the token does not verify. Verified claims land on the request
// context.
func (m *TokenManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"access token required"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.Verify(token)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"invalid token"}`, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}
