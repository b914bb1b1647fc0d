package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-social-server/auth"
	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyIdentity stores the authenticated *auth.Identity
	ContextKeyIdentity ContextKey = "identity"
)

// RequireAuth validates the access token from the Authorization header, falling back
// to the accessToken cookie, and stores the caller's identity in the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			accessToken, err := accessTokenFromRequest(r)
			if err != nil {
				writeError(w, r, err)
				return
			}

			identity, err := s.auth.Authenticate(r.Context(), accessToken)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			next(w, r.WithContext(ctx))
		}
	}
}

// IdentityFromContext returns the identity stored by RequireAuth.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(ContextKeyIdentity).(*auth.Identity)
	return identity, ok && identity != nil
}

func accessTokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", apperrors.Wrapf(apperrors.ErrUnauthorized, "invalid Authorization header format")
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value), nil
	}
	return "", apperrors.Wrapf(apperrors.ErrUnauthorized, "missing access token")
}
