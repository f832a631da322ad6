package exports

import (
	"context"
	"time"
)

// Repo defines persistence operations for exports.
type Repo interface {
	Create(ctx context.Context, export Export) error
	// GetByID is unscoped and used by workers.
	GetByID(ctx context.Context, exportID string) (Export, error)
	GetForOrg(ctx context.Context, orgID, exportID string) (Export, error)
	MarkProcessing(ctx context.Context, exportID string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, exportID, storageKey string, sizeBytes int64, completedAt time.Time) error
	MarkFailed(ctx context.Context, exportID, message string, failedAt time.Time) error
}
