// Package context carries request-scoped values: the authenticated user and trace ids.
package context

import (
	"context"

	"konditer/internal/core/apperror"
	"konditer/internal/core/security"
)

// SystemUserID is the actor recorded for work started by the worker.
const SystemUserID = "system"

// UserContext contains authenticated user information.
type UserContext struct {
	UserID       string
	Email        string
	Roles        []string
	Capabilities security.CapabilitySet
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// WithSystemUser marks ctx as running on behalf of the service itself.
func WithSystemUser(ctx context.Context) context.Context {
	return WithUser(ctx, &UserContext{
		UserID:       SystemUserID,
		Roles:        []string{security.RoleAdmin},
		Capabilities: security.All(),
	})
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// Can reports whether the user in ctx holds capability c.
func Can(ctx context.Context, c security.Capability) bool {
	u := GetUser(ctx)
	return u != nil && u.Capabilities.Has(c)
}

// Require returns a forbidden error unless the user in ctx holds c.
func Require(ctx context.Context, c security.Capability) error {
	if !Can(ctx, c) {
		return apperror.NewForbidden("operation not permitted").WithDetail("capability", string(c))
	}
	return nil
}
