package middleware

import (
	"context"
	"net/http"
	"strings"

	jwtinfra "github.com/go-batchform-api/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// RevocationChecker reports whether a session identifier has been revoked.
type RevocationChecker interface {
	Exists(ctx context.Context, jti string) (bool, error)
}

// Auth returns middleware that validates the Bearer JWT, rejects revoked
// sessions, and injects claims into context.
func Auth(provider *jwtinfra.Provider, ledger RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := provider.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if ledger != nil {
				revoked, err := ledger.Exists(r.Context(), claims.ID)
				if err != nil {
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				if revoked {
					writeJSONError(w, http.StatusUnauthorized, "token revoked")
					return
				}
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
