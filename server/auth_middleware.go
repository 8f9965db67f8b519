package server

import (
	"context"
	"net/http"
	"slices"
	"strings"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/token"
	"github.com/jrsteele09/masapp-server/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores parsed token claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyAccessToken stores the raw bearer token, so handlers can revoke it
	ContextKeyAccessToken ContextKey = "access_token"
)

// RequireAuth is middleware that validates a Bearer access token and that its user is still
// allowed in
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="masapp"`)
				writeJSONError(w, "unauthorized", "Missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := s.auth.Authenticate(r.Context(), raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="masapp", error="invalid_token"`)
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			ctx = context.WithValue(ctx, ContextKeyAccessToken, raw)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRoles is middleware that admits only the listed roles.
// Should be chained after RequireAuth to ensure claims are present
func (s *Server) RequireRoles(roles ...users.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromContext(r.Context())
			if !ok {
				writeError(w, apperrors.ErrUnauthenticated)
				return
			}
			if !slices.Contains(roles, claims.Role) {
				writeError(w, apperrors.ErrForbidden)
				return
			}
			next(w, r)
		}
	}
}

func claimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok && claims != nil
}

func accessTokenFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(ContextKeyAccessToken).(string)
	return raw
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	return raw, raw != ""
}
