// Package auth provides bearer token validation for ShareGuard's API.
//
// Authentication is validation-only: ShareGuard never issues its own
// tokens. An external identity provider issues JWTs; this package verifies
// their signature against the provider's JWKS endpoint and extracts the
// caller identity used for authorization and audit logging.
package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims ShareGuard expects from its external
// identity provider, using abstract identity (subject, roles) rather than
// any ShareGuard-local user record -- there is no local user store.
type Claims struct {
	jwt.RegisteredClaims

	// Username is a human-readable identifier for audit logging.
	Username string `json:"preferred_username,omitempty"`

	// Roles authorizes role-gated endpoints (e.g. "admin" for issue
	// status transitions and monitor control).
	Roles []string `json:"roles,omitempty"`
}

// IsAdmin returns true if the caller has the "admin" role.
func (c *Claims) IsAdmin() bool {
	return c.HasRole("admin")
}

// HasRole returns true if the caller has the given role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// UserID returns the caller's stable identifier, used for audit trails
// (e.g. IssueStatusChange.ChangedBy). Falls back to Username if the
// provider didn't set a subject claim.
func (c *Claims) UserID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Username
}
