package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MigrationStage names one stage of the legacy-data migration pipeline.
type MigrationStage string

const (
	StagePreconditions  MigrationStage = "PRECONDITIONS"
	StageBackup         MigrationStage = "BACKUP"
	StageConvert        MigrationStage = "CONVERT"
	StageReconcile      MigrationStage = "RECONCILE"
	StageOrphanCleanup  MigrationStage = "ORPHAN_CLEANUP"
	StagePostValidation MigrationStage = "POST_VALIDATION"
)

// LegacyUser is a pre-multi-tenant user row: its expenses and categories hang
// directly off the user with no account reference.
type LegacyUser struct {
	UserID   string
	Email    string
	Name     string
	Migrated bool
}

// MigrationStats is the report produced by a migration run. DryRun runs
// produce the same numbers as a committed run over the same fixture.
type MigrationStats struct {
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool

	LegacyUsersSeen    int
	AccountsCreated    int
	AccountsReused     int
	MembershipsCreated int
	ExpensesStamped    int
	CategoriesStamped  int
	BudgetsStamped     int
	CategoriesMerged   int
	OrphansReassigned  int
	OrphansDeleted     int
	FailedStage        MigrationStage `json:",omitempty"`
	PreMigrationTotal  decimal.Decimal
	PostMigrationTotal decimal.Decimal
	RemainingUnstamped int
}

// MigrationCheckpoint records progress between batches so a resumed run does
// not reprocess already-converted legacy users.
type MigrationCheckpoint struct {
	LastLegacyUserID string
	ProcessedCount   int
	UpdatedAt        time.Time
}
