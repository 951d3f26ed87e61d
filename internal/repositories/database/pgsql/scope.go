package pgsql

import (
	"context"
	"log/slog"

	"github.com/expensio/expensio-backend/internal/middleware"
)

// auditUnscopedAccess logs every use of an explicit escape hatch that reads
// tenant-scoped tables without the ambient tenant filter. Best-effort
// detection only; administrative paths legitimately pass through here.
func auditUnscopedAccess(ctx context.Context, operation, target string) {
	middleware.GetLoggerFromCtx(ctx).Warn("Tenant scope bypassed",
		slog.String("operation", operation),
		slog.String("target", target))
}
