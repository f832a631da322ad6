package exports

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores exports in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Export
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Export)}
}

func (r *MemoryRepo) Create(ctx context.Context, export Export) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[export.ID] = export
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, exportID string) (Export, error) {
	if err := ctx.Err(); err != nil {
		return Export{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[exportID]
	if !ok {
		return Export{}, ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepo) GetForOrg(ctx context.Context, orgID, exportID string) (Export, error) {
	e, err := r.GetByID(ctx, exportID)
	if err != nil {
		return Export{}, err
	}
	if e.OrgID != orgID {
		return Export{}, ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, exportID string, startedAt time.Time) error {
	return r.update(ctx, exportID, func(e *Export) {
		e.Status = StatusProcessing
		e.StartedAt = &startedAt
		e.ErrorMessage = ""
		e.UpdatedAt = startedAt
	})
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, exportID, storageKey string, sizeBytes int64, completedAt time.Time) error {
	return r.update(ctx, exportID, func(e *Export) {
		e.Status = StatusCompleted
		e.StorageKey = storageKey
		e.SizeBytes = sizeBytes
		e.CompletedAt = &completedAt
		e.UpdatedAt = completedAt
	})
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, exportID, message string, failedAt time.Time) error {
	return r.update(ctx, exportID, func(e *Export) {
		e.Status = StatusFailed
		e.ErrorMessage = message
		e.CompletedAt = &failedAt
		e.UpdatedAt = failedAt
	})
}

func (r *MemoryRepo) update(ctx context.Context, exportID string, fn func(*Export)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[exportID]
	if !ok {
		return ErrNotFound
	}
	fn(&e)
	r.byID[exportID] = e
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
