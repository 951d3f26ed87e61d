package tenant_test

import (
	"context"
	"testing"

	"github.com/expensio/expensio-backend/internal/apperrors"
	"github.com/expensio/expensio-backend/internal/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrent_AbsentByDefault(t *testing.T) {
	_, err := tenant.Current(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoTenantSet)
	assert.False(t, tenant.IsSet(context.Background()))
}

func TestWith_SetsCurrent(t *testing.T) {
	accountID := uuid.NewString()
	ctx := tenant.With(context.Background(), accountID)

	got, err := tenant.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, accountID, got)
	assert.True(t, tenant.IsSet(ctx))
}

func TestClear_RemovesInheritedTenant(t *testing.T) {
	ctx := tenant.With(context.Background(), uuid.NewString())
	cleared := tenant.Clear(ctx)

	_, err := tenant.Current(cleared)
	assert.ErrorIs(t, err, apperrors.ErrNoTenantSet)

	// The parent scope is untouched.
	_, err = tenant.Current(ctx)
	assert.NoError(t, err)
}

func TestRunWith_ScopedOverride(t *testing.T) {
	outer := uuid.NewString()
	inner := uuid.NewString()
	ctx := tenant.With(context.Background(), outer)

	err := tenant.RunWith(ctx, inner, func(scoped context.Context) error {
		got, err := tenant.Current(scoped)
		require.NoError(t, err)
		assert.Equal(t, inner, got)
		return nil
	})
	require.NoError(t, err)

	// Prior scope restored after the override.
	got, err := tenant.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, outer, got)
}

func TestRunWith_RestoresOnPanic(t *testing.T) {
	outer := uuid.NewString()
	ctx := tenant.With(context.Background(), outer)

	func() {
		defer func() { _ = recover() }()
		_ = tenant.RunWith(ctx, uuid.NewString(), func(scoped context.Context) error {
			panic("boom")
		})
	}()

	got, err := tenant.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, outer, got)
}

func TestCurrentOr_Fallback(t *testing.T) {
	assert.Equal(t, "fallback", tenant.CurrentOr(context.Background(), "fallback"))

	accountID := uuid.NewString()
	ctx := tenant.With(context.Background(), accountID)
	assert.Equal(t, accountID, tenant.CurrentOr(ctx, "fallback"))
}
