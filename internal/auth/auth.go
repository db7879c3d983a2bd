// Package auth defines caller identities and how they travel through a
// request context.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller may not perform the operation.
var ErrForbidden = errors.New("forbidden")

// Role is the kind of caller.
type Role string

const (
	// RoleAdmin manages projects and payments.
	RoleAdmin Role = "admin"
	// RoleOrganization submits reports for its own projects.
	RoleOrganization Role = "organization"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOrganization
}

// Identity is the authenticated caller.
type Identity struct {
	OrgID string `json:"org_id,omitempty"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the caller has administrative rights.
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// Actor names the caller in audit entries.
func (id Identity) Actor() string {
	if id.OrgID != "" {
		return id.OrgID
	}
	return string(id.Role)
}

// Resolver resolves an identity from a bearer token.
type Resolver interface {
	ResolveIdentity(ctx context.Context, token string) (Identity, error)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored in ctx, if present.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// HashKey returns the stored form of an API key.
func HashKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
