package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/auth/jwt"
	httperrors "github.com/gokatarajesh/quiz-results/pkg/http/errors"
)

type claimsKey struct{}

// TokenValidator is satisfied by *jwt.Manager.
type TokenValidator interface {
	Validate(token string) (*jwt.Claims, error)
}

// Middleware validates bearer tokens and injects claims into the request context.
// Requests without a token pass through unauthenticated.
func Middleware(validator TokenValidator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := tokenFromRequest(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if token == "" {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid authorization header")
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.Warn().Err(err).Msg("token validation failed")
				if errors.Is(err, jwt.ErrExpiredToken) {
					httperrors.RespondUnauthorized(w, httperrors.ErrCodeTokenExpired, "Token expired")
					return
				}
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// tokenFromRequest reads "Authorization: Bearer <token>", falling back to the
// token query parameter browsers use for WebSocket upgrades. ok is false when
// neither is present.
func tokenFromRequest(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", true
		}
		return parts[1], true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok && claims != nil
}

// PlayerID returns the authenticated player id, or "" when unauthenticated.
func PlayerID(ctx context.Context) string {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return ""
	}
	return claims.PlayerID()
}

// HasRole reports whether the request carries one of roles.
func HasRole(ctx context.Context, roles ...string) bool {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return false
	}
	for _, role := range roles {
		if claims.Role == role {
			return true
		}
	}
	return false
}

// RequireAuth ensures the request is authenticated.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the request is authenticated with one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasRole(r.Context(), roles...) {
				httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Moderator or Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
