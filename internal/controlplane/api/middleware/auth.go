// Package middleware provides HTTP middleware for ShareGuard's control
// plane API: bearer token authentication and role-based authorization.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shareguard/shareguard/internal/controlplane/api/auth"
	"github.com/shareguard/shareguard/internal/controlplane/api/handlers"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// GetClaimsFromContext returns the caller's claims, or nil if the request
// was not authenticated.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := header[len(prefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

// JWTAuth requires a valid bearer token, verified against validator's JWKS
// key set, rejecting the request with 401 otherwise. On success the
// caller's claims are attached to the request context.
func JWTAuth(validator *auth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				handlers.Unauthorized(w, "Missing or malformed Authorization header")
				return
			}

			claims, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				handlers.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTAuth validates a bearer token when present but never rejects
// the request -- used for endpoints whose response varies by caller
// identity without requiring one (e.g. public read-only dashboards).
func OptionalJWTAuth(validator *auth.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose caller lacks the "admin" role with
// 401 (unauthenticated) or 403 (authenticated but not admin).
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole("admin")
}

// RequireRole rejects requests whose caller lacks role with 401
// (unauthenticated) or 403 (authenticated but missing the role).
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				handlers.Unauthorized(w, "Authentication required")
				return
			}
			if !claims.HasRole(role) {
				handlers.Forbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
