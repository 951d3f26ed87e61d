package services

import (
	"context"

	"github.com/expensio/expensio-backend/internal/core/domain"
)

// MigrationOptions controls a migration run.
type MigrationOptions struct {
	// DryRun executes the full pipeline in a transaction that is always
	// rolled back; statistics are reported as if committed.
	DryRun bool

	// BatchSize is the number of legacy users converted per batch.
	BatchSize int

	// SkipBackup skips the backup stage.
	SkipBackup bool

	// FallbackAccountID receives orphan records. When empty, orphans are
	// deleted (and counted).
	FallbackAccountID string
}

// MigrationSvc converts legacy single-tenant data into accounts, memberships
// and stamped tenant-scoped rows, exactly once, with zero data loss.
type MigrationSvc interface {
	// Run executes the pipeline. On stage failure the returned stats carry
	// the failed stage name; committed progress is not undone automatically.
	Run(ctx context.Context, opts MigrationOptions) (*domain.MigrationStats, error)

	// Rollback restores legacy tables from the backup taken by a prior run.
	Rollback(ctx context.Context) error
}
