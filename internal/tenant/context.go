// Package tenant carries the current account (tenant) identity through a
// context.Context. Every unit of work (an HTTP request or a queue task)
// derives its own context, so there is no shared mutable tenant state
// between concurrently executing units and nothing to reset between them.
package tenant

import (
	"context"

	"github.com/expensio/expensio-backend/internal/apperrors"
)

type contextKey struct{}

var tenantKey contextKey

// With returns a child context scoped to the given account ID.
func With(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, tenantKey, accountID)
}

// Clear returns a child context with no tenant set. Used by administrative
// paths that must not inherit an ambient tenant.
func Clear(ctx context.Context) context.Context {
	return context.WithValue(ctx, tenantKey, "")
}

// Current returns the account ID in scope, or ErrNoTenantSet if none is set.
// Scoped reads must fail on this error rather than fall back to unscoped data.
func Current(ctx context.Context) (string, error) {
	id, ok := ctx.Value(tenantKey).(string)
	if !ok || id == "" {
		return "", apperrors.ErrNoTenantSet
	}
	return id, nil
}

// CurrentOr returns the account ID in scope, or fallback if none is set.
func CurrentOr(ctx context.Context, fallback string) string {
	id, ok := ctx.Value(tenantKey).(string)
	if !ok || id == "" {
		return fallback
	}
	return id
}

// IsSet reports whether an account is in scope.
func IsSet(ctx context.Context) bool {
	id, ok := ctx.Value(tenantKey).(string)
	return ok && id != ""
}

// RunWith executes fn with the tenant scope overridden to accountID. The
// override lives only in the derived context handed to fn; the caller's
// context is untouched, so the prior scope is restored by construction even
// when fn returns an error or panics.
func RunWith(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	return fn(With(ctx, accountID))
}
